package downloader

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilidl/bilidl/internal/biliclient"
	"github.com/bilidl/bilidl/internal/config"
	"github.com/bilidl/bilidl/internal/events"
	"github.com/bilidl/bilidl/pkg/progress"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	client, err := biliclient.New(&config.Downloads{})
	require.NoError(t, err)

	journal := NewJournal(t.TempDir(), slog.New(slog.NewTextHandler(os.Stderr, nil)))
	bus := events.New()
	cfg := &config.Downloads{
		TaskConcurrency:  2,
		ChunkConcurrency: 2,
		DirFmt:           "{collection_title}",
		DirFmtForPart:    "{collection_title}/{episode_title}",
	}
	cfg.Selections.DownloadVideo = true
	cfg.Selections.DownloadNfo = true

	return NewManager(context.Background(), cfg, client, bus, journal, nil, "", slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func TestSelectionsForMapsAllToggles(t *testing.T) {
	sel := config.Selections{
		DownloadVideo:       true,
		DownloadAudio:       true,
		AutoMerge:           true,
		EmbedChapter:        true,
		EmbedSkip:           true,
		DownloadDanmakuXML:  true,
		DownloadDanmakuASS:  false,
		DownloadDanmakuJSON: true,
		DownloadSubtitle:    true,
		DownloadCover:       true,
		DownloadNfo:         true,
		DownloadJSON:        true,
	}

	video, audio, process, danmaku, subtitle, cover, nfoSel, jsonSel := selectionsFor(sel)

	assert.True(t, video)
	assert.True(t, audio)
	assert.True(t, process.MergeSelected)
	assert.True(t, process.EmbedChapterSelected)
	assert.True(t, process.EmbedSkipSelected)
	assert.True(t, danmaku.XMLSelected)
	assert.False(t, danmaku.ASSSelected)
	assert.True(t, danmaku.JSONSelected)
	assert.True(t, subtitle)
	assert.True(t, cover)
	assert.True(t, nfoSel)
	assert.True(t, jsonSel)
}

func TestManagerCreateRegistersTaskAndResolvesPath(t *testing.T) {
	m := testManager(t)

	task, err := m.Create(progress.CreateParams{
		EpisodeType:     progress.EpisodeNormal,
		BVID:            "BV1xx411c7mD",
		CollectionTitle: "Some Collection",
		EpisodeTitle:    "Episode One",
	})
	require.NoError(t, err)
	require.NotNil(t, task)

	snapshot := task.Progress()
	assert.Equal(t, StatePending, task.State())
	assert.Contains(t, snapshot.Filename, "Some Collection")
	assert.True(t, snapshot.Video.Selected)
	assert.True(t, snapshot.Nfo.Selected)

	list := m.List()
	require.Len(t, list, 1)
	assert.Equal(t, snapshot.TaskID, list[0].TaskID)
}

func TestManagerActionsOnUnknownTaskReturnError(t *testing.T) {
	m := testManager(t)

	assert.Error(t, m.Pause("missing"))
	assert.Error(t, m.Resume("missing"))
	assert.Error(t, m.Restart("missing"))
	assert.Error(t, m.Delete("missing"))
}

func TestManagerDeleteForgetsTaskOnceDriverExits(t *testing.T) {
	m := testManager(t)

	task, err := m.Create(progress.CreateParams{
		EpisodeType:     progress.EpisodeNormal,
		BVID:            "BV1xx411c7mD",
		CollectionTitle: "Some Collection",
		EpisodeTitle:    "Episode One",
	})
	require.NoError(t, err)

	require.NoError(t, m.Delete(task.Progress().TaskID))

	select {
	case <-task.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("task driver did not exit after Delete")
	}

	assert.Empty(t, m.List())
}

func TestManagerRestoreAllResumesFromJournal(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	journal := NewJournal(dir, logger)

	completed := &progress.DownloadProgress{
		TaskID:       "completed-task",
		EpisodeTitle: "Done Episode",
	}
	completed.MarkComplete(time.Now())
	require.NoError(t, journal.Save(completed, true))

	inProgress := &progress.DownloadProgress{
		TaskID:       "inprogress-task",
		EpisodeTitle: "Partial Episode",
		Video:        progress.VideoTask{Selected: true},
	}
	require.NoError(t, journal.Save(inProgress, true))

	client, err := biliclient.New(&config.Downloads{})
	require.NoError(t, err)
	bus := events.New()
	cfg := &config.Downloads{TaskConcurrency: 1, ChunkConcurrency: 1}

	m := NewManager(context.Background(), cfg, client, bus, journal, nil, "", logger)
	require.NoError(t, m.RestoreAll())

	list := m.List()
	byID := make(map[string]*progress.DownloadProgress, len(list))
	for _, p := range list {
		byID[p.TaskID] = p
	}
	require.Contains(t, byID, "completed-task")
	require.Contains(t, byID, "inprogress-task")

	completedTask, ok := m.get("completed-task")
	require.True(t, ok)
	assert.Equal(t, StateCompleted, completedTask.State())

	partialTask, ok := m.get("inprogress-task")
	require.True(t, ok)
	assert.Equal(t, StatePaused, partialTask.State())
}

func TestJournalPathUsesTaskIDFilename(t *testing.T) {
	j := NewJournal("/tmp/whatever", slog.New(slog.NewTextHandler(os.Stderr, nil)))
	assert.Equal(t, filepath.Join("/tmp/whatever", "abc.json"), j.path("abc"))
}
