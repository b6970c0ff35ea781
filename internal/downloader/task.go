package downloader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bilidl/bilidl/internal/events"
	"github.com/bilidl/bilidl/pkg/progress"
)

// State is one of the five lifecycle states spec.md §4.3 (C3) names.
type State string

const (
	StatePending     State = "pending"
	StateDownloading State = "downloading"
	StatePaused      State = "paused"
	StateFailed      State = "failed"
	StateCompleted   State = "completed"
)

// Task drives one DownloadProgress through its state machine. Its run loop
// is the only mutator of both its own state and its progress — the
// Manager (C7) only ever sends it signals, exactly the §9 "avoid a
// god-handle, avoid callbacks" design note.
type Task struct {
	mu       sync.RWMutex
	progress *progress.DownloadProgress
	state    State

	journal  *Journal
	bus      *events.Bus
	pipeline Pipeline
	taskSem  chan struct{}
	logger   *slog.Logger

	taskDownloadInterval time.Duration

	pauseCh   chan struct{}
	resumeCh  chan struct{}
	restartCh chan struct{}
	deleteCh  chan struct{}
	cancelCh  chan struct{}

	doneCh chan struct{}
}

// NewTask builds a driver for p, starting in initialState (Pending for a
// freshly created task, or Completed/Paused when restored from a journal
// per C7's restore() contract — never Downloading on restore).
func NewTask(p *progress.DownloadProgress, initialState State, journal *Journal, bus *events.Bus, pipeline Pipeline, taskSem chan struct{}, taskDownloadInterval time.Duration, logger *slog.Logger) *Task {
	return &Task{
		progress:             p,
		state:                initialState,
		journal:              journal,
		bus:                  bus,
		pipeline:             pipeline,
		taskSem:              taskSem,
		logger:               logger.With("task_id", p.TaskID),
		taskDownloadInterval: taskDownloadInterval,
		pauseCh:              newSignalChan(),
		resumeCh:             newSignalChan(),
		restartCh:            newSignalChan(),
		deleteCh:             newSignalChan(),
		cancelCh:             newSignalChan(),
		doneCh:               make(chan struct{}),
	}
}

func (t *Task) ID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.progress.TaskID
}

func (t *Task) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

func (t *Task) Progress() *progress.DownloadProgress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.progress
}

func (t *Task) Pause()   { sendSignal(t.pauseCh) }
func (t *Task) Resume()  { sendSignal(t.resumeCh) }
func (t *Task) Restart() { sendSignal(t.restartCh) }
func (t *Task) Delete()  { sendSignal(t.deleteCh) }
func (t *Task) Cancel()  { sendSignal(t.cancelCh) }

// Done reports driver exit, for a caller that wants to wait out a delete.
func (t *Task) Done() <-chan struct{} { return t.doneCh }

func (t *Task) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
	t.bus.TaskStateUpdate(t.progress.TaskID, string(s))
}

// mutateProgress is the single mutator spec.md §3 requires: every write to
// progress goes through here, which journals then emits exactly once.
func (t *Task) mutateProgress(fn func(p *progress.DownloadProgress)) {
	t.mu.Lock()
	fn(t.progress)
	if err := t.journal.Save(t.progress, false); err != nil {
		t.logger.Error("failed to save journal", "error", err)
	}
	p := t.progress
	t.mu.Unlock()
	t.bus.ProgressUpdate(p)
}

// Run is the per-task driver loop: a state machine advancing on whichever
// of {work future, state change, restart, delete, cancel} fires first,
// never more than one at a time per task — spec.md §9's re-architecture
// note against callbacks and god-handles.
func (t *Task) Run(appCtx context.Context) {
	defer close(t.doneCh)

	for {
		switch t.State() {
		case StatePending:
			if !t.runPending(appCtx) {
				return
			}
		case StateDownloading:
			if !t.runDownloading(appCtx) {
				return
			}
		case StatePaused:
			if !t.runPaused() {
				return
			}
		case StateCompleted, StateFailed:
			if !t.runTerminal() {
				return
			}
		}
	}
}

// runPending blocks until a task permit is acquired, then re-checks for a
// delete/cancel that raced the grant — spec.md §4.3's documented race
// window, resolved here by a non-blocking drain right after the permit is
// won, before any state change to Downloading is committed.
func (t *Task) runPending(ctx context.Context) bool {
	select {
	case t.taskSem <- struct{}{}:
		select {
		case <-t.deleteCh:
			<-t.taskSem
			t.onDelete()
			return false
		case <-t.cancelCh:
			<-t.taskSem
			t.onDelete()
			return false
		default:
			t.setState(StateDownloading)
			return true
		}
	case <-t.deleteCh:
		t.onDelete()
		return false
	case <-t.cancelCh:
		t.onDelete()
		return false
	case <-ctx.Done():
		return false
	}
}

type attemptResult struct {
	err error
}

// runDownloading holds the task permit for the duration of one pipeline
// attempt. pauseRequested is closed (not cancelled) on pause so an
// in-flight chunk transfer is allowed to finish; attemptCtx is hard
// cancelled on restart/delete, aborting even a mid-flight transfer.
func (t *Task) runDownloading(appCtx context.Context) bool {
	defer func() { <-t.taskSem }()

	attemptCtx, cancelAttempt := context.WithCancel(appCtx)
	defer cancelAttempt()
	pauseRequested := make(chan struct{})

	t.bus.ProgressPreparing(t.progress.TaskID)

	done := make(chan attemptResult, 1)
	go func() {
		err := t.pipeline.Run(attemptCtx, t.Progress(), pauseRequested, t.mutateProgress)
		done <- attemptResult{err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			chain := ""
			for i, e := 0, res.err; e != nil; i, e = i+1, errors.Unwrap(e) {
				chain += fmt.Sprintf("%d: %v\n", i, e)
			}
			t.logger.Error("pipeline attempt failed", "error", chain)
			t.setState(StateFailed)
			return true
		}
		t.mutateProgress(func(p *progress.DownloadProgress) {
			now := time.Now()
			p.MarkComplete(now)
		})
		if t.taskDownloadInterval > 0 {
			remaining := int(t.taskDownloadInterval.Seconds())
			ticker := time.NewTicker(time.Second)
			for remaining > 0 {
				t.bus.TaskSleeping(t.progress.TaskID, remaining)
				select {
				case <-ticker.C:
					remaining--
				case <-t.deleteCh:
					ticker.Stop()
					t.onDelete()
					return false
				case <-t.cancelCh:
					ticker.Stop()
					t.onDelete()
					return false
				}
			}
			ticker.Stop()
		}
		t.setState(StateCompleted)
		return true

	case <-t.pauseCh:
		close(pauseRequested)
		<-done // in-flight chunks finish on their own; no hard cancel.
		time.Sleep(pauseDebounce)
		t.setState(StatePaused)
		return true

	case <-t.deleteCh:
		cancelAttempt()
		time.Sleep(pauseDebounce)
		<-done
		t.onDelete()
		return false

	case <-t.cancelCh:
		cancelAttempt()
		<-done
		t.onDelete()
		return false
	}
}

func (t *Task) runPaused() bool {
	select {
	case <-t.resumeCh:
		t.setState(StatePending)
		return true
	case <-t.deleteCh:
		t.onDelete()
		return false
	case <-t.cancelCh:
		t.onDelete()
		return false
	}
}

func (t *Task) runTerminal() bool {
	select {
	case <-t.restartCh:
		t.onRestart()
		return true
	case <-t.deleteCh:
		t.onDelete()
		return false
	case <-t.cancelCh:
		t.onDelete()
		return false
	}
}

// onRestart implements scenario 6: every selected sub-task's completed
// flag (and every chunk's) clears, completed_ts clears, state becomes
// Pending.
func (t *Task) onRestart() {
	t.mutateProgress(func(p *progress.DownloadProgress) {
		p.ResetForRestart()
	})
	t.setState(StatePending)
}

func (t *Task) onDelete() {
	if err := t.journal.Delete(t.progress.TaskID); err != nil {
		t.logger.Error("failed to delete journal", "error", err)
	}
	t.bus.TaskDelete(t.progress.TaskID)
}

// FailWithContext wraps err with the task's breadcrumb the way spec.md §7
// requires: "<ids> <title> 下载失败: 原始原因"; runDownloading logs the
// resulting chain as an ordered list.
func FailWithContext(taskID, title string, err error) error {
	return fmt.Errorf("%s %s 下载失败: %w", taskID, title, err)
}
