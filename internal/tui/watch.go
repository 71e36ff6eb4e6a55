package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/listenin/internal/pipeline"
)

// NextFunc blocks until the daemon publishes the next snapshot.
type NextFunc func() (pipeline.Snapshot, error)

// ControlFunc sends one control command to the daemon and returns its reply.
type ControlFunc func(cmd byte, arg string) (string, error)

type snapshotMsg pipeline.Snapshot

type feedClosedMsg struct{ err error }

type replyMsg struct {
	reply string
	err   error
}

type tickMsg time.Time

const transcriptTail = 6

type watchModel struct {
	next    NextFunc
	control ControlFunc
	now     func() time.Time

	snap     pipeline.Snapshot
	received time.Time
	reply    string
	err      error
	closed   bool
	spinner  spinner.Model
	width    int
}

func newWatchModel(next NextFunc, control ControlFunc) watchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorSecondary)
	return watchModel{
		next:    next,
		control: control,
		now:     time.Now,
		spinner: s,
		width:   textWidth,
		snap:    pipeline.Snapshot{Status: pipeline.Idle},
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.waitNext(), m.spinner.Tick, tick())
}

func (m watchModel) waitNext() tea.Cmd {
	return func() tea.Msg {
		s, err := m.next()
		if err != nil {
			return feedClosedMsg{err: err}
		}
		return snapshotMsg(s)
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m watchModel) send(cmd byte) tea.Cmd {
	if m.control == nil {
		return nil
	}
	return func() tea.Msg {
		reply, err := m.control(cmd, "")
		return replyMsg{reply: strings.TrimSpace(reply), err: err}
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r", "t", "p", "u", "x":
			return m, m.send(msg.String()[0])
		}
	case tea.WindowSizeMsg:
		m.width = min(msg.Width, textWidth)
	case snapshotMsg:
		m.snap = pipeline.Snapshot(msg)
		m.received = m.now()
		return m, m.waitNext()
	case feedClosedMsg:
		m.closed = true
		m.err = msg.err
		return m, tea.Quit
	case replyMsg:
		m.reply = msg.reply
		if msg.err != nil {
			m.reply = "ERR " + msg.err.Error()
		}
	case tickMsg:
		return m, tick()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// elapsed advances the last reported elapsed time while recording.
func (m watchModel) elapsed() time.Duration {
	e := m.snap.Elapsed
	if m.snap.Status == pipeline.Recording && !m.received.IsZero() {
		e += m.now().Sub(m.received)
	}
	return e.Truncate(time.Second)
}

func (m watchModel) View() string {
	var b strings.Builder

	switch m.snap.Status {
	case pipeline.Recording:
		b.WriteString(StyleRecording.Render("● REC"))
	case pipeline.Paused:
		b.WriteString(StyleWarning.Render("❚❚ PAUSED"))
	case pipeline.SummaryPending:
		b.WriteString(m.spinner.View() + StyleHighlight.Render(fmt.Sprintf(" Summarizing %d%%", m.snap.Progress)))
	default:
		b.WriteString(StyleMuted.Render("○ IDLE"))
	}
	if m.snap.Status != pipeline.Idle || m.snap.Elapsed > 0 {
		fmt.Fprintf(&b, "  %s", formatClock(m.elapsed()))
	}
	if m.snap.Framework != "" {
		fmt.Fprintf(&b, "  %s", StyleMuted.Render(m.snap.Framework.DisplayName()))
	}
	b.WriteString("\n\n")

	if t := tail(m.snap.Transcript, transcriptTail, m.width); t != "" {
		b.WriteString(t)
		b.WriteString("\n\n")
	}

	if m.snap.SummaryID != "" {
		fmt.Fprintf(&b, "%s %s\n", StyleSuccess.Render("Summary ready:"), m.snap.SummaryID)
	}
	if m.snap.Error != "" {
		fmt.Fprintf(&b, "%s %s\n", StyleError.Render("Error:"), m.snap.Error)
	}
	if m.snap.Notice != "" {
		fmt.Fprintf(&b, "%s\n", StyleWarning.Render(m.snap.Notice))
	}
	if m.reply != "" {
		fmt.Fprintf(&b, "%s\n", StyleMuted.Render(m.reply))
	}
	if m.closed && m.err != nil {
		fmt.Fprintf(&b, "%s %v\n", StyleError.Render("Feed closed:"), m.err)
	}

	help := "q quit"
	if m.control != nil {
		help = "r start • p pause • u resume • x stop • q quit"
	}
	b.WriteString("\n" + StyleSubtle.Render(help) + "\n")
	return b.String()
}

func formatClock(d time.Duration) string {
	s := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}

// tail wraps text to width and keeps its last n lines.
func tail(text string, n, width int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	lines := strings.Split(lipgloss.NewStyle().Width(width).Render(text), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// Watch renders the live snapshot feed until the feed closes or the user quits.
// control may be nil for a read-only view.
func Watch(next NextFunc, control ControlFunc) error {
	_, err := tea.NewProgram(newWatchModel(next, control)).Run()
	return err
}
