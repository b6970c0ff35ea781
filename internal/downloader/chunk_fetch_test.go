package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchChunkWritesBytesAtOffset(t *testing.T) {
	payload := []byte("0123456789")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Range", "bytes 5-14/100")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.Truncate(100))

	client := resty.New()
	chunkSem := make(chan struct{}, 2)
	var bytesCounter int64

	res, err := FetchChunk(context.Background(), client, srv.URL, ChunkJob{Index: 2, Start: 5, End: 14}, f, chunkSem, nil, 0, &bytesCounter)
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, 2, res.Index)
	assert.EqualValues(t, len(payload), bytesCounter)

	got := make([]byte, len(payload))
	_, err = f.ReadAt(got, 5)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestFetchChunkRejectsNonPartialContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "out.bin"))
	require.NoError(t, err)
	defer f.Close()

	client := resty.New()
	chunkSem := make(chan struct{}, 1)
	var bytesCounter int64

	_, err = FetchChunk(context.Background(), client, srv.URL, ChunkJob{Index: 0, Start: 0, End: 9}, f, chunkSem, nil, 0, &bytesCounter)
	assert.Error(t, err)
}

func TestFetchChunkBacksOffOnPauseBeforeAcquiringPermit(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "out.bin"))
	require.NoError(t, err)
	defer f.Close()

	// Capacity-1 semaphore already held, so FetchChunk must wait — then
	// observe pauseRequested instead of ever acquiring it.
	chunkSem := make(chan struct{}, 1)
	chunkSem <- struct{}{}

	pauseRequested := make(chan struct{})
	close(pauseRequested)

	client := resty.New()
	var bytesCounter int64

	start := time.Now()
	res, err := FetchChunk(context.Background(), client, "http://example.invalid/unused", ChunkJob{Index: 1, Start: 0, End: 9}, f, chunkSem, pauseRequested, 0, &bytesCounter)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, 1, res.Index)
	assert.GreaterOrEqual(t, elapsed, pauseDebounce)
	assert.EqualValues(t, 0, bytesCounter)
}

func TestFetchChunkAbortsOnContextCancel(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "out.bin"))
	require.NoError(t, err)
	defer f.Close()

	chunkSem := make(chan struct{}, 1)
	chunkSem <- struct{}{} // held, never released in this test

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := resty.New()
	var bytesCounter int64

	res, err := FetchChunk(ctx, client, "http://example.invalid/unused", ChunkJob{Index: 4, Start: 0, End: 9}, f, chunkSem, nil, 0, &bytesCounter)
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, 4, res.Index)
}
