// Package ui renders the --ui phase progress view.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	gprogress "garnet/internal/progress"
)

type progressModel struct {
	title   string
	events  <-chan gprogress.Event
	spinner spinner.Model
	prog    progress.Model
	rows    []stageRow
	index   map[gprogress.Stage]int
	width   int
	done    bool
}

type stageRow struct {
	stage   gprogress.Stage
	status  gprogress.Status
	done    int
	total   int
	elapsed time.Duration
	err     error
}

type eventMsg gprogress.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders one row per
// pipeline stage. The model quits when events is closed.
func NewProgressModel(title string, events <-chan gprogress.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	rows := make([]stageRow, 0, len(gprogress.Stages))
	index := make(map[gprogress.Stage]int, len(gprogress.Stages))
	for i, st := range gprogress.Stages {
		rows = append(rows, stageRow{stage: st, status: gprogress.StatusQueued})
		index[st] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		rows:    rows,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(gprogress.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		// Ctrl+C обрабатывает вызывающий через контекст
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(truncate(header, m.width)))
	b.WriteString("\n\n")
	for _, row := range m.rows {
		status := styleStatus(row.status).Render(fmt.Sprintf("%9s", row.status))
		line := fmt.Sprintf("  %s %-10s", status, row.stage)
		if row.total > 0 {
			line += fmt.Sprintf(" %d/%d", row.done, row.total)
		}
		if row.elapsed > 0 {
			line += " " + row.elapsed.Round(time.Millisecond).String()
		}
		if row.err != nil {
			line += " " + row.err.Error()
		}
		b.WriteString(truncate(line, m.width))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev gprogress.Event) tea.Cmd {
	idx, ok := m.index[ev.Stage]
	if !ok {
		return nil
	}
	row := &m.rows[idx]
	row.status = ev.Status
	if ev.Total > 0 {
		row.total = ev.Total
	}
	if ev.Done > row.done {
		row.done = ev.Done
	}
	if ev.Elapsed > 0 {
		row.elapsed = ev.Elapsed
	}
	if ev.Err != nil {
		row.err = ev.Err
	}
	return m.prog.SetPercent(m.fraction())
}

// fraction is the share of finished stages; a running stage counts by its
// done/total ratio.
func (m *progressModel) fraction() float64 {
	var sum float64
	for _, row := range m.rows {
		switch row.status {
		case gprogress.StatusDone, gprogress.StatusSkipped, gprogress.StatusError:
			sum++
		case gprogress.StatusWorking:
			if row.total > 0 {
				sum += float64(row.done) / float64(row.total)
			}
		}
	}
	return sum / float64(len(m.rows))
}

func styleStatus(status gprogress.Status) lipgloss.Style {
	switch status {
	case gprogress.StatusDone:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case gprogress.StatusError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case gprogress.StatusWorking:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	case gprogress.StatusSkipped:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
