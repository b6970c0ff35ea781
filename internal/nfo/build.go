package nfo

import "time"

// bilibiliStudio is the studio credit stamped on every generated NFO: the
// platform's Chinese name.
const bilibiliStudio = "哔哩哔哩"

// bangumiGenres maps BangumiInfo.TypeField (1-7) to the Chinese category
// name nfo_task.rs's get_genre prefixes with "Bilibili".
var bangumiGenres = map[int64]string{
	1: "番剧",
	2: "电影",
	3: "纪录片",
	4: "国创",
	5: "电视剧",
	6: "漫画",
	7: "综艺",
}

// MovieInput carries BuildMovie's inputs in a form that doesn't require
// this package to import internal/biliclient — internal/downloader's
// pipeline.go maps from the fetched info struct to this shape.
type MovieInput struct {
	Title        string
	Desc         string
	PubTS        int64
	DurationSec  int64
	Tname        string
	TnameV2      string
	Tags         []string
	SetName      string
	SetOverview  string
	HasSet       bool
	Staff        []StaffInput
}

// StaffInput is one credited staff member.
type StaffInput struct {
	Name  string
	Title string
	Face  string
}

// BuildMovie builds the NFO for a standalone (non-season) upload, grounded
// on nfo_task.rs's NormalInfo::to_movie_nfo.
func BuildMovie(in MovieInput) Movie {
	m := Movie{
		Title:   in.Title,
		Plot:    in.Desc,
		Runtime: in.DurationSec / 60,
		Studio:  []string{bilibiliStudio},
		Genre:   nonEmpty([]string{"Bilibili视频", in.Tname, in.TnameV2}),
		Tag:     nonEmpty(in.Tags),
	}
	if in.PubTS > 0 {
		t := time.Unix(in.PubTS, 0).UTC()
		m.Premiered = t.Format("2006-01-02")
		m.Year = t.Year()
	}
	if in.HasSet {
		m.Set = &Set{Name: in.SetName, Overview: in.SetOverview}
	}
	for i, s := range in.Staff {
		m.Actor = append(m.Actor, Actor{Name: s.Name, Role: s.Title, Order: i, Thumb: s.Face})
	}
	return m
}

// BangumiTvshowInput carries BuildBangumiTvshow's inputs.
type BangumiTvshowInput struct {
	SeasonTitle   string
	Evaluate      string
	ShareSubTitle string
	TypeField     int64
	Styles        []string
	Areas         []string
	PubTimeStr    string // publish.pub_time, "2006-01-02 15:04:05"
	IsFinish      int64
	UpName        string
}

// BuildBangumiTvshow builds the season-level NFO for bangumi content,
// grounded on nfo_task.rs's BangumiInfo::to_tvshow_nfo.
func BuildBangumiTvshow(in BangumiTvshowInput) Tvshow {
	tv := Tvshow{
		Title:   in.SeasonTitle,
		Plot:    in.Evaluate,
		Tagline: in.ShareSubTitle,
		Studio:  []string{bilibiliStudio},
		Genre:   bangumiGenre(in.TypeField, in.Styles),
		Country: nonEmpty(in.Areas),
	}
	if in.IsFinish == 0 {
		tv.Status = "Continuing"
	} else {
		tv.Status = "Ended"
	}
	if in.UpName != "" {
		tv.Director = []string{in.UpName}
	}
	if t, err := time.Parse("2006-01-02 15:04:05", in.PubTimeStr); err == nil {
		tv.Premiered = t.Format("2006-01-02")
		tv.Year = t.Year()
	}
	return tv
}

func bangumiGenre(typeField int64, styles []string) []string {
	genres := []string{}
	if name, ok := bangumiGenres[typeField]; ok {
		genres = append(genres, "Bilibili"+name)
	}
	genres = append(genres, nonEmpty(styles)...)
	return genres
}

// EpisodeInput carries BuildEpisodeDetails's inputs, shared by bangumi and
// cheese episodes.
type EpisodeInput struct {
	Title       string
	Plot        string
	PremieredTS int64
	DurationSec int64
	Episode     int64
}

// BuildEpisodeDetails builds one episode's NFO, grounded on nfo_task.rs's
// BangumiInfo::to_episode_details_nfo and CheeseInfo::to_episode_details_nfo
// (both reduce to the same shape once caller has picked the right time/
// duration unit).
func BuildEpisodeDetails(in EpisodeInput) EpisodeDetails {
	ed := EpisodeDetails{
		Title:   in.Title,
		Plot:    in.Plot,
		Runtime: in.DurationSec / 60,
		Episode: in.Episode,
		Studio:  []string{bilibiliStudio},
	}
	if in.PremieredTS > 0 {
		t := time.Unix(in.PremieredTS, 0).UTC()
		ed.Premiered = t.Format("2006-01-02")
		ed.Year = t.Year()
	}
	return ed
}

// CheeseTvshowInput carries BuildCheeseTvshow's inputs.
type CheeseTvshowInput struct {
	Title         string
	Subtitle      string
	ReleaseStatus string
	UpName        string
}

// BuildCheeseTvshow builds the season-level NFO for a paid course,
// grounded on nfo_task.rs's CheeseInfo::to_tvshow_nfo.
func BuildCheeseTvshow(in CheeseTvshowInput) Tvshow {
	tv := Tvshow{
		Title:  in.Title,
		Plot:   in.Subtitle,
		Studio: []string{bilibiliStudio},
		Genre:  []string{"Bilibili课程"},
	}
	if in.ReleaseStatus == "已完结" {
		tv.Status = "Ended"
	} else {
		tv.Status = "Continuing"
	}
	if in.UpName != "" {
		tv.Director = []string{in.UpName}
	}
	return tv
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
