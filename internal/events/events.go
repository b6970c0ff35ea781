// Package events implements the UI event surface described in spec.md §6:
// a typed publish/subscribe bus the core emits to and the TUI (or any other
// front end) subscribes from. Modeled as channel fan-out rather than a
// widening callback interface, per the §9 "avoid callbacks" design note.
package events

import (
	"sync"

	"github.com/bilidl/bilidl/pkg/progress"
)

// Kind identifies one of the seven event shapes in spec.md §6.
type Kind string

const (
	KindSpeed             Kind = "speed"
	KindTaskCreate        Kind = "task_create"
	KindTaskStateUpdate   Kind = "task_state_update"
	KindTaskSleeping      Kind = "task_sleeping"
	KindTaskDelete        Kind = "task_delete"
	KindProgressPreparing Kind = "progress_preparing"
	KindProgressUpdate    Kind = "progress_update"
)

// Event is the envelope delivered to subscribers. Only the field matching
// Kind is meaningful.
type Event struct {
	Kind Kind

	Speed string // humanized bytes per second, e.g. "1.2 MB/s"

	TaskID        string
	State         string
	RemainingSec  int
	Progress      *progress.DownloadProgress
}

// Bus fans out events to any number of subscribers. Publish never blocks on
// a slow subscriber: each subscriber has its own buffered channel and a
// full channel drops the event rather than stalling the publisher, which
// would otherwise couple the download pipeline's pace to the UI's.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// New creates an empty event bus.
func New() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a new listener with the given buffer depth and
// returns the channel plus an unsubscribe function.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan Event, buffer)
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

// Publish delivers ev to every current subscriber, dropping it for any
// subscriber whose buffer is full.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *Bus) Speed(s string) {
	b.Publish(Event{Kind: KindSpeed, Speed: s})
}

func (b *Bus) TaskCreate(p *progress.DownloadProgress, state string) {
	b.Publish(Event{Kind: KindTaskCreate, TaskID: p.TaskID, Progress: p, State: state})
}

func (b *Bus) TaskStateUpdate(taskID, state string) {
	b.Publish(Event{Kind: KindTaskStateUpdate, TaskID: taskID, State: state})
}

func (b *Bus) TaskSleeping(taskID string, remainingSec int) {
	b.Publish(Event{Kind: KindTaskSleeping, TaskID: taskID, RemainingSec: remainingSec})
}

func (b *Bus) TaskDelete(taskID string) {
	b.Publish(Event{Kind: KindTaskDelete, TaskID: taskID})
}

func (b *Bus) ProgressPreparing(taskID string) {
	b.Publish(Event{Kind: KindProgressPreparing, TaskID: taskID})
}

func (b *Bus) ProgressUpdate(p *progress.DownloadProgress) {
	b.Publish(Event{Kind: KindProgressUpdate, TaskID: p.TaskID, Progress: p})
}
