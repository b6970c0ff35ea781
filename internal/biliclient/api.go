package biliclient

import (
	"fmt"
	"net/url"
	"strconv"
)

// GetUserInfo returns the logged-in identity for the client's current
// session cookie.
func (c *Client) GetUserInfo() (UserInfo, error) {
	var envelope Envelope[UserInfo]
	resp, err := c.http.R().SetResult(&envelope).Get("https://api.bilibili.com/x/web-interface/nav")
	if err != nil {
		return UserInfo{}, fmt.Errorf("failed to fetch user info: %w", err)
	}
	if resp.StatusCode() != 200 {
		return UserInfo{}, fmt.Errorf("unexpected status fetching user info: %d", resp.StatusCode())
	}
	return envelope.Data, nil
}

// GetNormalInfo fetches the owner/title/pages metadata for a user-uploaded
// video identified by aid or bvid.
func (c *Client) GetNormalInfo(aid int64, bvid string) (NormalInfo, error) {
	req := c.http.R()
	if bvid != "" {
		req.SetQueryParam("bvid", bvid)
	} else {
		req.SetQueryParam("aid", strconv.FormatInt(aid, 10))
	}

	var envelope Envelope[NormalInfo]
	resp, err := req.SetResult(&envelope).Get("https://api.bilibili.com/x/web-interface/view")
	if err != nil {
		return NormalInfo{}, fmt.Errorf("failed to fetch normal info: %w", err)
	}
	if resp.StatusCode() != 200 || envelope.Code != 0 {
		return NormalInfo{}, fmt.Errorf("unexpected response fetching normal info: status=%d code=%d %s", resp.StatusCode(), envelope.Code, envelope.Msg)
	}
	return envelope.Data, nil
}

func (c *Client) GetBangumiInfo(seasonID int64) (BangumiInfo, error) {
	var envelope Envelope[BangumiInfo]
	resp, err := c.http.R().
		SetQueryParam("season_id", strconv.FormatInt(seasonID, 10)).
		SetResult(&envelope).
		Get("https://api.bilibili.com/pgc/view/web/season")
	if err != nil {
		return BangumiInfo{}, fmt.Errorf("failed to fetch bangumi info: %w", err)
	}
	if resp.StatusCode() != 200 || envelope.Code != 0 {
		return BangumiInfo{}, fmt.Errorf("unexpected response fetching bangumi info: status=%d code=%d %s", resp.StatusCode(), envelope.Code, envelope.Msg)
	}
	return envelope.Data, nil
}

func (c *Client) GetCheeseInfo(seasonID int64) (CheeseInfo, error) {
	var envelope Envelope[CheeseInfo]
	resp, err := c.http.R().
		SetQueryParam("season_id", strconv.FormatInt(seasonID, 10)).
		SetResult(&envelope).
		Get("https://api.bilibili.com/pugv/view/web/season")
	if err != nil {
		return CheeseInfo{}, fmt.Errorf("failed to fetch cheese info: %w", err)
	}
	if resp.StatusCode() != 200 || envelope.Code != 0 {
		return CheeseInfo{}, fmt.Errorf("unexpected response fetching cheese info: status=%d code=%d %s", resp.StatusCode(), envelope.Code, envelope.Msg)
	}
	return envelope.Data, nil
}

// playURLData is the raw dash-stream envelope shared by the normal/bangumi/
// cheese URL endpoints, mapped into the common MediaManifest shape.
type playURLData struct {
	Dash struct {
		Video []struct {
			ID        int64    `json:"id"`
			Codecid   int64    `json:"codecid"`
			BaseURL   string   `json:"baseUrl"`
			BackupURL []string `json:"backupUrl"`
		} `json:"video"`
		Audio []struct {
			ID        int64    `json:"id"`
			BaseURL   string   `json:"baseUrl"`
			BackupURL []string `json:"backupUrl"`
		} `json:"audio"`
	} `json:"dash"`
}

func toManifest(d playURLData) MediaManifest {
	m := MediaManifest{}
	for _, v := range d.Dash.Video {
		m.Videos = append(m.Videos, StreamCandidate{
			QualityID: v.ID,
			Codec:     codecName(v.Codecid),
			URLs:      append([]string{v.BaseURL}, v.BackupURL...),
		})
	}
	for _, a := range d.Dash.Audio {
		m.Audios = append(m.Audios, StreamCandidate{
			QualityID: a.ID,
			URLs:      append([]string{a.BaseURL}, a.BackupURL...),
		})
	}
	return m
}

func codecName(codecID int64) string {
	switch codecID {
	case 7:
		return "avc"
	case 12:
		return "hevc"
	case 13:
		return "av1"
	default:
		return "unknown"
	}
}

// GetNormalURL fetches the dash manifest for a user-uploaded video's page.
func (c *Client) GetNormalURL(aid, cid int64) (MediaManifest, error) {
	params := url.Values{
		"avid": {strconv.FormatInt(aid, 10)},
		"cid":  {strconv.FormatInt(cid, 10)},
		"fnval": {"4048"},
	}
	signed, err := c.Sign(params)
	if err != nil {
		return MediaManifest{}, fmt.Errorf("failed to sign normal url request: %w", err)
	}

	var envelope Envelope[playURLData]
	resp, err := c.http.R().
		SetQueryParamsFromValues(signed).
		SetResult(&envelope).
		Get("https://api.bilibili.com/x/player/wbi/playurl")
	if err != nil {
		return MediaManifest{}, fmt.Errorf("failed to fetch normal media url: %w", err)
	}
	if resp.StatusCode() != 200 || envelope.Code != 0 {
		return MediaManifest{}, fmt.Errorf("unexpected response fetching normal media url: status=%d code=%d %s", resp.StatusCode(), envelope.Code, envelope.Msg)
	}
	return toManifest(envelope.Data), nil
}

func (c *Client) GetBangumiURL(aid, cid int64) (MediaManifest, error) {
	var envelope Envelope[playURLData]
	resp, err := c.http.R().
		SetQueryParam("avid", strconv.FormatInt(aid, 10)).
		SetQueryParam("cid", strconv.FormatInt(cid, 10)).
		SetQueryParam("fnval", "4048").
		SetResult(&envelope).
		Get("https://api.bilibili.com/pgc/player/web/playurl")
	if err != nil {
		return MediaManifest{}, fmt.Errorf("failed to fetch bangumi media url: %w", err)
	}
	if resp.StatusCode() != 200 || envelope.Code != 0 {
		return MediaManifest{}, fmt.Errorf("unexpected response fetching bangumi media url: status=%d code=%d %s", resp.StatusCode(), envelope.Code, envelope.Msg)
	}
	return toManifest(envelope.Data), nil
}

func (c *Client) GetCheeseURL(aid, cid int64) (MediaManifest, error) {
	var envelope Envelope[playURLData]
	resp, err := c.http.R().
		SetQueryParam("avid", strconv.FormatInt(aid, 10)).
		SetQueryParam("cid", strconv.FormatInt(cid, 10)).
		SetQueryParam("fnval", "4048").
		SetResult(&envelope).
		Get("https://api.bilibili.com/pugv/player/web/playurl")
	if err != nil {
		return MediaManifest{}, fmt.Errorf("failed to fetch cheese media url: %w", err)
	}
	if resp.StatusCode() != 200 || envelope.Code != 0 {
		return MediaManifest{}, fmt.Errorf("unexpected response fetching cheese media url: status=%d code=%d %s", resp.StatusCode(), envelope.Code, envelope.Msg)
	}
	return toManifest(envelope.Data), nil
}

// GetPlayerInfo fetches view points (chapters) and the subtitle list for
// one (aid, cid) — consumed by C8 and the subtitle stage.
func (c *Client) GetPlayerInfo(aid, cid int64) (PlayerInfo, error) {
	var envelope Envelope[PlayerInfo]
	resp, err := c.http.R().
		SetQueryParam("aid", strconv.FormatInt(aid, 10)).
		SetQueryParam("cid", strconv.FormatInt(cid, 10)).
		SetResult(&envelope).
		Get("https://api.bilibili.com/x/player/v2")
	if err != nil {
		return PlayerInfo{}, fmt.Errorf("failed to fetch player info: %w", err)
	}
	if resp.StatusCode() != 200 || envelope.Code != 0 {
		return PlayerInfo{}, fmt.Errorf("unexpected response fetching player info: status=%d code=%d %s", resp.StatusCode(), envelope.Code, envelope.Msg)
	}
	return envelope.Data, nil
}

// GetTags fetches the user-facing tag list for a Normal video, used by the
// NFO stage.
func (c *Client) GetTags(aid int64) (Tags, error) {
	var envelope Envelope[Tags]
	resp, err := c.http.R().
		SetQueryParam("aid", strconv.FormatInt(aid, 10)).
		SetResult(&envelope).
		Get("https://api.bilibili.com/x/tag/archive/tags")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tags: %w", err)
	}
	if resp.StatusCode() != 200 || envelope.Code != 0 {
		return nil, fmt.Errorf("unexpected response fetching tags: status=%d code=%d %s", resp.StatusCode(), envelope.Code, envelope.Msg)
	}
	return envelope.Data, nil
}

// GetSubtitle fetches one subtitle track's body JSON.
func (c *Client) GetSubtitle(rawURL string) (SubtitleBody, error) {
	if rawURL == "" {
		return SubtitleBody{}, fmt.Errorf("empty subtitle url")
	}
	if rawURL[0] == '/' {
		rawURL = "https:" + rawURL
	}
	var body SubtitleBody
	resp, err := c.http.R().SetResult(&body).Get(rawURL)
	if err != nil {
		return SubtitleBody{}, fmt.Errorf("failed to fetch subtitle: %w", err)
	}
	if resp.StatusCode() != 200 {
		return SubtitleBody{}, fmt.Errorf("unexpected status fetching subtitle: %d", resp.StatusCode())
	}
	return body, nil
}

// GetDanmaku fetches every 6-minute danmaku segment for a stream of the
// given duration and returns the raw protobuf payloads, one per segment; the
// caller (the danmaku sibling generator) decodes and renders them.
func (c *Client) GetDanmaku(aid, cid int64, durationSeconds uint64) ([][]byte, error) {
	const segmentSeconds = 6 * 60
	segmentCount := durationSeconds/segmentSeconds + 1

	var segments [][]byte
	for i := uint64(1); i <= segmentCount; i++ {
		resp, err := c.http.R().
			SetQueryParam("type", "1").
			SetQueryParam("oid", strconv.FormatInt(cid, 10)).
			SetQueryParam("segment_index", strconv.FormatUint(i, 10)).
			Get("https://api.bilibili.com/x/v2/dm/web/seg.so")
		if err != nil {
			return nil, fmt.Errorf("failed to fetch danmaku segment %d: %w", i, err)
		}
		if resp.StatusCode() != 200 {
			return nil, fmt.Errorf("unexpected status fetching danmaku segment %d: %d", i, resp.StatusCode())
		}
		segments = append(segments, resp.Body())
	}
	return segments, nil
}

// GetCoverDataAndExt fetches cover image bytes and infers a file extension
// from the response content type, per spec.md §4.5 step 6.
func (c *Client) GetCoverDataAndExt(rawURL string) ([]byte, string, error) {
	resp, err := c.http.R().Get(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch cover: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, "", fmt.Errorf("unexpected status fetching cover: %d", resp.StatusCode())
	}
	ext := "jpg"
	switch resp.Header().Get("Content-Type") {
	case "image/png":
		ext = "png"
	case "image/webp":
		ext = "webp"
	case "image/avif":
		ext = "avif"
	}
	return resp.Body(), ext, nil
}

// GetSkipSegments fetches community-submitted skip annotations for a
// video, used to compose the chapter timeline (C8).
func (c *Client) GetSkipSegments(bvid string, cid int64) ([]SkipSegment, error) {
	var segments []SkipSegment
	resp, err := c.http.R().
		SetQueryParam("bvid", bvid).
		SetQueryParam("cid", strconv.FormatInt(cid, 10)).
		SetResult(&segments).
		Get("https://bsbsb.top/api/skipSegments")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch skip segments: %w", err)
	}
	if resp.StatusCode() == 404 {
		return nil, nil // no submissions for this video is not an error
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("unexpected status fetching skip segments: %d", resp.StatusCode())
	}
	return segments, nil
}
