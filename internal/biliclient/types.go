package biliclient

// Envelope is the platform's common response wrapper: a numeric code, a
// message, and a data payload — grounded on original_source's BiliResp
// (bili_client.rs). Go generics let every endpoint share one decode type
// instead of the original's serde_json::Value + second parse pass.
type Envelope[T any] struct {
	Code int    `json:"code"`
	Msg  string `json:"message"`
	Data T      `json:"data"`
}

// QrcodeData is returned by GenerateQRCode: the login page URL to render
// and an opaque key to poll with.
type QrcodeData struct {
	URL       string `json:"url"`
	QrcodeKey string `json:"qrcode_key"`
}

// QrcodeStatus is one poll result. Code: 0 = logged in (Cookie/sessdata
// populated), 86038 = expired, 86090 = scanned-not-confirmed, 86101 =
// not-yet-scanned.
type QrcodeStatus struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	SessData string `json:"-"` // pulled from the Set-Cookie header, not the JSON body
}

// UserInfo is the nav endpoint's identity payload.
type UserInfo struct {
	IsLogin  bool   `json:"isLogin"`
	UID      int64  `json:"mid"`
	Uname    string `json:"uname"`
	FaceURL  string `json:"face"`
	VipLabel string `json:"vip_label"`
}

// StreamCandidate is one encode of a video/audio stream: its id, codec (if
// applicable), and ordered candidate URLs (primary then backups) — the
// shape spec.md §4.4 step 2 asks the preparer to collect.
type StreamCandidate struct {
	QualityID int64
	Codec     string
	URLs      []string
}

// MediaManifest is the common shape GetNormalURL/GetBangumiURL/GetCheeseURL
// resolve to: every candidate video encode and every candidate audio
// encode for one cid.
type MediaManifest struct {
	Videos []StreamCandidate
	Audios []StreamCandidate
}

// NormalInfo is the owner/title metadata for a user-uploaded video. Field
// set is enriched beyond the original manifest response, grounded on
// original_source's types/normal_info.rs, to carry everything
// internal/nfo's to_movie_nfo needs without a second round-trip.
type NormalInfo struct {
	AID      int64  `json:"aid"`
	BVID     string `json:"bvid"`
	Title    string `json:"title"`
	Cover    string `json:"pic"`
	Desc     string `json:"desc"`
	PubTS    int64  `json:"pubdate"`
	Duration int64  `json:"duration"`
	Tname    string `json:"tname"`
	TnameV2  string `json:"tname_v2"`
	Owner    struct {
		UID  int64  `json:"mid"`
		Name string `json:"name"`
	} `json:"owner"`
	Pages []struct {
		CID  int64  `json:"cid"`
		Part string `json:"part"`
		Page int64  `json:"page"`
	} `json:"pages"`
	Staff []struct {
		Title string `json:"title"`
		Name  string `json:"name"`
		Face  string `json:"face"`
	} `json:"staff"`
	UgcSeason *struct {
		Title string `json:"title"`
		Cover string `json:"cover"`
		Intro string `json:"intro"`
	} `json:"ugc_season"`
}

// BangumiInfo is the season/episode metadata for a bangumi-style series
// (anime, films, documentaries, ...). Enriched beyond the bare
// season_title/episodes pair to carry everything to_tvshow_nfo and
// to_episode_details_nfo need, grounded on original_source's
// types/bangumi_info.rs.
type BangumiInfo struct {
	SeasonTitle string `json:"season_title"`
	Evaluate    string `json:"evaluate"`
	ShareSubTitle string `json:"share_sub_title"`
	Cover       string `json:"cover"`
	BkgCover    string `json:"bkg_cover"`
	TypeField   int64  `json:"type"`
	Styles      []string `json:"styles"`
	Areas       []struct {
		Name string `json:"name"`
	} `json:"areas"`
	Publish struct {
		PubTime  string `json:"pub_time"`
		IsFinish int64  `json:"is_finish"`
	} `json:"publish"`
	UpInfo *struct {
		Uname string `json:"uname"`
	} `json:"up_info"`
	Episodes []struct {
		EpID      int64  `json:"ep_id"`
		AID       int64  `json:"aid"`
		CID       int64  `json:"cid"`
		Title     string `json:"title"`
		Long      string `json:"long_title"`
		ShowTitle string `json:"show_title"`
		ShareCopy string `json:"share_copy"`
		PubTS     int64  `json:"pub_time"`
		Duration  int64  `json:"duration"`
	} `json:"episodes"`
}

// CheeseInfo is the season/episode metadata for a paid course season.
// Enriched beyond title/episodes per original_source's
// types/cheese_info.rs to carry what to_tvshow_nfo and
// to_episode_details_nfo need.
type CheeseInfo struct {
	Title         string `json:"title"`
	Subtitle      string `json:"subtitle"`
	Cover         string `json:"cover"`
	ReleaseStatus string `json:"release_status"`
	UpInfo        *struct {
		Uname string `json:"uname"`
	} `json:"up_info"`
	Episodes []struct {
		EpID     int64  `json:"id"`
		AID      int64  `json:"aid"`
		CID      int64  `json:"cid"`
		Title    string `json:"title"`
		Subtitle string `json:"subtitle"`
		Index    int64  `json:"index"`
		PubTS    int64  `json:"release_date"`
		Duration int64  `json:"duration"`
	} `json:"episodes"`
}

// PlayerInfo carries view points (chapters) used to build a ChapterSegments
// timeline (C8) and subtitle entries consumed by the subtitle stage.
type PlayerInfo struct {
	ViewPoints []struct {
		Title string `json:"content"`
		Start uint64 `json:"from"`
		End   uint64 `json:"to"`
	} `json:"view_points"`
	SubtitleList []SubtitleEntry `json:"subtitle,omitempty"`
}

// SubtitleEntry names one fetchable subtitle track.
type SubtitleEntry struct {
	Lan        string `json:"lan"`
	SubtitleURL string `json:"subtitle_url"`
}

// SubtitleBody is the fetched subtitle JSON's line list, transcoded to SRT
// by the subtitle sibling generator (C10).
type SubtitleBody struct {
	Body []struct {
		From    float64 `json:"from"`
		To      float64 `json:"to"`
		Content string  `json:"content"`
	} `json:"body"`
}

// SkipSegment is one external community annotation — category maps to a
// display title via downloader.SkipCategoryTitle.
type SkipSegment struct {
	Category string `json:"category"`
	Start    uint64 `json:"start"`
	End      uint64 `json:"end"`
}

// Tags is the flat list of user-facing tags for a Normal video, used by
// the NFO stage.
type Tags []struct {
	Name string `json:"tag_name"`
}

