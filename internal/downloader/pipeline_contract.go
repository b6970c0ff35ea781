package downloader

import (
	"context"

	"github.com/bilidl/bilidl/pkg/progress"
)

// Pipeline runs the ordered §4.5 stage sequence for one task attempt. Run
// must be idempotent and re-entrant: called again (after resume) it must
// skip every stage whose completion predicate already holds.
//
// ctx aborts the attempt hard, including any in-flight chunk transfer —
// used for restart/delete. pauseRequested is closed once, by the caller,
// when the user pauses; a chunk fetcher already mid-transfer is allowed to
// finish, but anything still waiting for a chunk permit backs off.
//
// mutate is the task's single progress mutator (journal + emit, exactly
// once per call, per spec.md §3) — stage implementations that make
// resumable progress mid-attempt (a chunk completing, a sub-stage
// finishing) call it instead of writing p's fields directly, so a pause
// mid-download leaves an accurate, already-journaled chunk map behind.
type Pipeline interface {
	Run(ctx context.Context, p *progress.DownloadProgress, pauseRequested <-chan struct{}, mutate func(fn func(*progress.DownloadProgress))) error
}
