// Package tui is the bubbletea dashboard named in spec.md §6's UI event
// table: one row per task, live progress bars, a fuzzy filter over titles,
// and the same pause/resume/restart/delete actions the CLI exposes.
// Grounded on darkprince558-JEND's internal/ui (Model/Update/View split,
// background goroutine driving the bubbletea program via p.Send) but
// reshaped from a single-transfer view into a multi-task table.
package tui

import (
	"fmt"
	"sort"
	"strings"

	bprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"github.com/bilidl/bilidl/internal/events"
	"github.com/bilidl/bilidl/pkg/progress"
)

// EventMsg carries one orchestrator event into the bubbletea update loop.
type EventMsg events.Event

// Actions is the set of operations the dashboard can request on the
// selected task. Wired by the caller (cmd/bilidl) to a *downloader.Manager
// so this package never imports the orchestrator directly.
type Actions struct {
	Pause   func(taskID string)
	Resume  func(taskID string)
	Restart func(taskID string)
	Delete  func(taskID string)
}

type row struct {
	taskID string
	title  string
	state  string
	bar    bprogress.Model
}

// Model is the dashboard's bubbletea state.
type Model struct {
	rows    map[string]*row
	order   []string
	cursor  int
	speed   string
	filter  textinput.Model
	filtering bool
	width   int
	height  int
	actions Actions
	quitting bool
}

// New builds an empty dashboard; rows are populated as TaskCreate events
// arrive.
func New(actions Actions) Model {
	ti := textinput.New()
	ti.Placeholder = "filter by title..."
	ti.Prompt = "/ "

	return Model{
		rows:    make(map[string]*row),
		filter:  ti,
		actions: actions,
		speed:   "0 B/s",
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		for _, r := range m.rows {
			r.bar.Width = m.barWidth()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case bprogress.FrameMsg:
		var cmds []tea.Cmd
		for _, r := range m.rows {
			updated, cmd := r.bar.Update(msg)
			r.bar = updated.(bprogress.Model)
			if cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
		return m, tea.Batch(cmds...)

	case EventMsg:
		return m.handleEvent(events.Event(msg))
	}

	if m.filtering {
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering {
		switch msg.Type {
		case tea.KeyEsc:
			m.filtering = false
			m.filter.Blur()
			m.filter.SetValue("")
			return m, nil
		case tea.KeyEnter:
			m.filtering = false
			m.filter.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	case "/":
		m.filtering = true
		m.filter.Focus()
		return m, nil
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		visible := m.visibleOrder()
		if m.cursor < len(visible)-1 {
			m.cursor++
		}
		return m, nil
	case "p":
		m.withSelected(m.actions.Pause)
		return m, nil
	case "r":
		m.withSelected(m.actions.Resume)
		return m, nil
	case "x":
		m.withSelected(m.actions.Restart)
		return m, nil
	case "d":
		m.withSelected(m.actions.Delete)
		return m, nil
	}
	return m, nil
}

func (m Model) withSelected(fn func(taskID string)) {
	if fn == nil {
		return
	}
	visible := m.visibleOrder()
	if m.cursor < 0 || m.cursor >= len(visible) {
		return
	}
	fn(visible[m.cursor])
}

func (m Model) handleEvent(ev events.Event) (tea.Model, tea.Cmd) {
	switch ev.Kind {
	case events.KindSpeed:
		m.speed = ev.Speed

	case events.KindTaskCreate:
		r := &row{taskID: ev.TaskID, state: ev.State, bar: bprogress.New(bprogress.WithGradient("#7D56F4", "#9F7AEA"), bprogress.WithWidth(m.barWidth()))}
		if ev.Progress != nil {
			r.title = ev.Progress.EpisodeTitle
		}
		m.rows[ev.TaskID] = r
		m.order = append(m.order, ev.TaskID)
		sort.Strings(m.order)

	case events.KindTaskStateUpdate:
		if r, ok := m.rows[ev.TaskID]; ok {
			r.state = ev.State
		}

	case events.KindTaskDelete:
		delete(m.rows, ev.TaskID)
		filtered := m.order[:0]
		for _, id := range m.order {
			if id != ev.TaskID {
				filtered = append(filtered, id)
			}
		}
		m.order = filtered

	case events.KindProgressUpdate:
		if r, ok := m.rows[ev.TaskID]; ok && ev.Progress != nil {
			r.title = ev.Progress.EpisodeTitle
			cmd := r.bar.SetPercent(percentComplete(ev.Progress))
			return m, cmd
		}
	}
	return m, nil
}

// percentComplete is a rough progress estimate: fraction of the eight
// sub-tasks that report done, weighted evenly — good enough for a
// dashboard bar, not a byte-accurate ETA.
func percentComplete(p *progress.DownloadProgress) float64 {
	done := 0
	total := 8
	for _, d := range []bool{
		p.Video.IsDone(), p.Audio.IsDone(), p.Process.IsDone(), p.Danmaku.IsDone(),
		p.Subtitle.IsDone(), p.Cover.IsDone(), p.Nfo.IsDone(), p.Json.IsDone(),
	} {
		if d {
			done++
		}
	}
	return float64(done) / float64(total)
}

func (m Model) visibleOrder() []string {
	query := strings.TrimSpace(m.filter.Value())
	if query == "" {
		return m.order
	}
	titles := make([]string, len(m.order))
	for i, id := range m.order {
		titles[i] = m.rows[id].title
	}
	matches := fuzzy.Find(query, titles)
	out := make([]string, 0, len(matches))
	for _, match := range matches {
		out = append(out, m.order[match.Index])
	}
	return out
}

func (m Model) barWidth() int {
	if m.width <= 20 {
		return 30
	}
	return m.width - 40
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("bilidl") + "  " + speedStyle.Render(m.speed) + "\n\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-10s %-40s %s", "STATE", "TITLE", "PROGRESS")) + "\n")

	for i, id := range m.visibleOrder() {
		r := m.rows[id]
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		line := fmt.Sprintf("%s%-10s %-40s %s", cursor, stateStyle(r.state).Render(r.state), truncate(r.title, 40), r.bar.View())
		b.WriteString(line + "\n")
	}

	if m.filtering {
		b.WriteString("\n" + m.filter.View())
	}
	b.WriteString("\n" + footerStyle.Render("p pause · r resume · x restart · d delete · / filter · q quit"))

	return containerStyle.Render(b.String())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
