package nfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMovieDerivesDateAndGenre(t *testing.T) {
	m := BuildMovie(MovieInput{
		Title:       "测试视频",
		Desc:        "一段描述",
		PubTS:       1609459200, // 2021-01-01T00:00:00Z
		DurationSec: 600,
		Tname:       "知识",
		TnameV2:     "科技",
		Tags:        []string{"标签1", "", "标签2"},
		Staff: []StaffInput{
			{Name: "UP主A", Title: "导演", Face: "http://example.com/a.jpg"},
		},
	})

	assert.Equal(t, "2021-01-01", m.Premiered)
	assert.Equal(t, 2021, m.Year)
	assert.Equal(t, int64(10), m.Runtime)
	assert.Equal(t, []string{"Bilibili视频", "知识", "科技"}, m.Genre)
	assert.Equal(t, []string{"标签1", "标签2"}, m.Tag)
	require.Len(t, m.Actor, 1)
	assert.Equal(t, "UP主A", m.Actor[0].Name)
	assert.Equal(t, 0, m.Actor[0].Order)
}

func TestBuildBangumiTvshowStatusFromIsFinish(t *testing.T) {
	ongoing := BuildBangumiTvshow(BangumiTvshowInput{TypeField: 1, IsFinish: 0})
	assert.Equal(t, "Continuing", ongoing.Status)
	assert.Equal(t, []string{"Bilibili番剧"}, ongoing.Genre)

	finished := BuildBangumiTvshow(BangumiTvshowInput{TypeField: 2, IsFinish: 1})
	assert.Equal(t, "Ended", finished.Status)
	assert.Equal(t, []string{"Bilibili电影"}, finished.Genre)
}

func TestBuildCheeseTvshowStatusFromReleaseStatus(t *testing.T) {
	ended := BuildCheeseTvshow(CheeseTvshowInput{ReleaseStatus: "已完结"})
	assert.Equal(t, "Ended", ended.Status)

	ongoing := BuildCheeseTvshow(CheeseTvshowInput{ReleaseStatus: "连载中"})
	assert.Equal(t, "Continuing", ongoing.Status)
}

func TestMarshalIncludesXMLHeader(t *testing.T) {
	m := BuildMovie(MovieInput{Title: "t"})
	out, err := Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(out), `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	assert.Contains(t, string(out), "<movie>")
}
