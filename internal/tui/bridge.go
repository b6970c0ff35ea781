package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bilidl/bilidl/internal/events"
)

// Bridge forwards every bus event to the running bubbletea program as an
// EventMsg, grounded on darkprince558-JEND's sender.go/receiver.go
// sendMsg-via-p.Send pattern — a plain goroutine loop rather than a
// channel-reading tea.Cmd, since the program is already running by the
// time the orchestrator starts emitting.
func Bridge(ctx context.Context, bus *events.Bus, p *tea.Program) {
	ch, unsubscribe := bus.Subscribe(64)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			p.Send(EventMsg(ev))
		}
	}
}
