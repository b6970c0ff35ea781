package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

// ChunkJob names one chunk of a stream: its index in the plan and its
// inclusive byte range.
type ChunkJob struct {
	Index int
	Start uint64
	End   uint64 // inclusive
}

// ChunkResult is what FetchChunk reports back to its caller. Completed is
// false whenever the fetch was interrupted by pause/restart/delete before
// the bytes were fully written — the caller must not mark the chunk done.
type ChunkResult struct {
	Index     int
	Completed bool
}

// FetchChunk downloads the inclusive byte range job.Start..job.End of
// rawURL into file at that offset — spec.md §4.2 (C2).
//
// attemptCtx aborts even a transfer already in flight (restart/delete);
// pauseRequested only backs a fetch off while it is still waiting for a
// chunk permit — once the permit is held and the HTTP body is streaming,
// the transfer is allowed to finish, honoring §4.3's "bytes already being
// written for active chunks complete and their chunk marks are honored".
func FetchChunk(attemptCtx context.Context, client *resty.Client, rawURL string, job ChunkJob, file *os.File, chunkSem chan struct{}, pauseRequested <-chan struct{}, chunkInterval time.Duration, bytesCounter *int64) (ChunkResult, error) {
	select {
	case chunkSem <- struct{}{}:
	case <-attemptCtx.Done():
		return ChunkResult{Index: job.Index}, nil
	case <-pauseRequested:
		time.Sleep(pauseDebounce)
		return ChunkResult{Index: job.Index}, nil
	}
	defer func() { <-chunkSem }()

	resp, err := client.R().
		SetContext(attemptCtx).
		SetDoNotParseResponse(true).
		SetHeader("Range", fmt.Sprintf("bytes=%d-%d", job.Start, job.End)).
		Get(rawURL)
	if err != nil {
		if attemptCtx.Err() != nil {
			return ChunkResult{Index: job.Index}, nil
		}
		return ChunkResult{}, fmt.Errorf("failed to request chunk %d: %w", job.Index, err)
	}
	body := resp.RawBody()
	defer func() { _ = body.Close() }()

	if resp.StatusCode() != http.StatusPartialContent {
		return ChunkResult{}, fmt.Errorf("chunk %d: expected 206 Partial Content, got %d", job.Index, resp.StatusCode())
	}

	offset := int64(job.Start)
	buf := make([]byte, 32*1024)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			// WriteAt (pwrite) is safe for concurrent callers writing
			// disjoint offsets of the same *os.File without extra locking.
			if _, wErr := file.WriteAt(buf[:n], offset); wErr != nil {
				return ChunkResult{}, fmt.Errorf("failed to write chunk %d: %w", job.Index, wErr)
			}
			offset += int64(n)
			atomic.AddInt64(bytesCounter, int64(n))
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			if attemptCtx.Err() != nil {
				return ChunkResult{Index: job.Index}, nil
			}
			return ChunkResult{}, fmt.Errorf("failed to read chunk %d: %w", job.Index, readErr)
		}
	}

	if chunkInterval > 0 {
		time.Sleep(chunkInterval)
	}
	return ChunkResult{Index: job.Index, Completed: true}, nil
}
