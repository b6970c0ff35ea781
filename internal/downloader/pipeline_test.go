package downloader

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilidl/bilidl/internal/biliclient"
	"github.com/bilidl/bilidl/internal/config"
	"github.com/bilidl/bilidl/pkg/progress"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestLastChunkEnd(t *testing.T) {
	assert.EqualValues(t, 0, lastChunkEnd(nil))
	chunks := []progress.MediaChunk{{Start: 0, End: 99}, {Start: 100, End: 199}}
	assert.EqualValues(t, 199, lastChunkEnd(chunks))
}

func TestPickTitlePrefersFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "a", pickTitle("a", "b"))
	assert.Equal(t, "b", pickTitle("", "b"))
	assert.Equal(t, "", pickTitle("", ""))
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	assert.True(t, fileExists(path))
	assert.False(t, fileExists(filepath.Join(dir, "absent.txt")))
}

func TestSubtitleToSRT(t *testing.T) {
	body := biliclient.SubtitleBody{Body: []struct {
		From    float64 `json:"from"`
		To      float64 `json:"to"`
		Content string  `json:"content"`
	}{
		{From: 1.5, To: 3, Content: "hello"},
	}}

	out := subtitleToSRT(body)
	assert.Contains(t, out, "1\n")
	assert.Contains(t, out, "00:00:01,500 --> 00:00:03,000")
	assert.Contains(t, out, "hello")
}

func TestSrtTimestamp(t *testing.T) {
	assert.Equal(t, "00:00:00,000", srtTimestamp(0))
	assert.Equal(t, "01:01:01,250", srtTimestamp(3661.25))
}

func TestCanvasConfigFromSettings(t *testing.T) {
	c := canvasConfigFromSettings(config.DanmakuCanvas{
		Width: 1920, Height: 1080, FontSize: 38, Opacity: 0.8, DisplayArea: 0.5, ScrollSpeed: 10,
	})
	assert.EqualValues(t, 1920, c.Width)
	assert.EqualValues(t, 1080, c.Height)
	assert.EqualValues(t, 38, c.FontSize)
	assert.Equal(t, 0.8, c.Alpha)
	assert.Equal(t, 0.5, c.FloatPercentage)
	assert.Equal(t, 10.0, c.DurationSec)
}

func TestMergeAndEmbedSkipsWhenAlreadyDone(t *testing.T) {
	pl := NewPipeline(mustClient(t), &config.Downloads{}, nil, make(chan struct{}, 1), new(int64), "", testLogger())
	p := &progress.DownloadProgress{Process: progress.VideoProcessTask{Completed: true}}

	mutated := false
	err := pl.mergeAndEmbed(context.Background(), p, func(fn func(*progress.DownloadProgress)) {
		mutated = true
		fn(p)
	})
	require.NoError(t, err)
	assert.False(t, mutated, "should return before mutate is ever called")
}

func TestMergeAndEmbedMarksDoneWhenVideoFileMissing(t *testing.T) {
	dir := t.TempDir()
	pl := NewPipeline(mustClient(t), &config.Downloads{}, nil, make(chan struct{}, 1), new(int64), "", testLogger())
	p := &progress.DownloadProgress{
		EpisodeDir: dir,
		Filename:   "episode",
		Process:    progress.VideoProcessTask{MergeSelected: true},
	}

	var gotCompleted bool
	err := pl.mergeAndEmbed(context.Background(), p, func(fn func(*progress.DownloadProgress)) {
		fn(p)
		gotCompleted = p.Process.Completed
	})
	require.NoError(t, err)
	assert.True(t, gotCompleted)
}

func TestMergeAndEmbedErrorsWhenFfmpegMissing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "episode.mp4"), []byte("v"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "episode.m4a"), []byte("a"), 0o644))

	pl := NewPipeline(mustClient(t), &config.Downloads{}, nil, make(chan struct{}, 1), new(int64), "", testLogger())
	p := &progress.DownloadProgress{
		EpisodeDir: dir,
		Filename:   "episode",
		Process:    progress.VideoProcessTask{MergeSelected: true},
	}

	err := pl.mergeAndEmbed(context.Background(), p, func(fn func(*progress.DownloadProgress)) { fn(p) })
	assert.Error(t, err)
}

func mustClient(t *testing.T) *biliclient.Client {
	t.Helper()
	c, err := biliclient.New(&config.Downloads{})
	require.NoError(t, err)
	return c
}
