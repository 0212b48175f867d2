// Package ui is the interactive prompt loop: a bubbletea chat screen when
// attached to a terminal and a plain line loop otherwise.
package ui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/lance13c/replyctl/internal/engine"
)

// quitWords end the loop when typed on their own.
var quitWords = []string{"quit", "exit", "q", "終了"}

// IsQuit reports whether input is a quit command.
func IsQuit(input string) bool {
	input = strings.ToLower(strings.TrimSpace(input))
	for _, w := range quitWords {
		if input == w {
			return true
		}
	}
	return false
}

// AcquireFunc runs one acquisition.
type AcquireFunc func(ctx context.Context, prompt string) (engine.Outcome, error)

// ExpandFunc rewrites a prompt before it is sent, e.g. template variables.
type ExpandFunc func(prompt string) string

// Entry is one line of the transcript.
type Entry struct {
	Role     string // "prompt", "reply", "system", "error"
	Text     string
	Degraded bool
	At       time.Time
}

// EngineEventMsg carries an engine status event into the program.
type EngineEventMsg struct {
	Event engine.Event
}

// AcquiredMsg is sent when an acquisition finishes.
type AcquiredMsg struct {
	Outcome engine.Outcome
	Err     error
}

// Notifier forwards engine events to a running program. Register its
// Observe method with the engine before the program exists, then Attach.
type Notifier struct {
	mu sync.Mutex
	p  *tea.Program
}

// Attach starts forwarding to p.
func (n *Notifier) Attach(p *tea.Program) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.p = p
}

// Observe implements engine.Observer.
func (n *Notifier) Observe(ev engine.Event) {
	n.mu.Lock()
	p := n.p
	n.mu.Unlock()
	if p != nil {
		p.Send(EngineEventMsg{Event: ev})
	}
}

// ChatModel is the interactive prompt screen.
type ChatModel struct {
	ctx     context.Context
	acquire AcquireFunc
	expand  ExpandFunc
	target  string

	entries  []Entry
	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
	styles   *Styles
	render   func(string) string

	width  int
	height int
	busy   bool
	status string
}

// NewChatModel creates the chat screen. target is shown in the header.
func NewChatModel(ctx context.Context, acquire AcquireFunc, expand ExpandFunc, target string) *ChatModel {
	ti := textinput.New()
	ti.Placeholder = "Type a prompt and press Enter (quit to leave)"
	ti.CharLimit = 0
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot

	if expand == nil {
		expand = func(p string) string { return p }
	}

	m := &ChatModel{
		ctx:      ctx,
		acquire:  acquire,
		expand:   expand,
		target:   target,
		input:    ti,
		spinner:  s,
		viewport: viewport.New(80, 20),
		styles:   NewStyles(),
		render:   markdownRenderer(76),
		width:    80,
		height:   25,
		status:   "ready",
	}
	m.addEntry("system", "Connected to "+target)
	return m
}

// Entries returns the transcript so far.
func (m *ChatModel) Entries() []Entry {
	return m.entries
}

// Busy reports whether an acquisition is running.
func (m *ChatModel) Busy() bool {
	return m.busy
}

// Init implements tea.Model
func (m *ChatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Update implements tea.Model
func (m *ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 9
		m.input.Width = msg.Width - 6
		if msg.Width > 20 {
			m.render = markdownRenderer(msg.Width - 6)
		}

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			cmd := m.submit()
			m.refresh()
			return m, cmd
		}

	case EngineEventMsg:
		m.status = msg.Event.Describe()

	case AcquiredMsg:
		m.busy = false
		m.status = "ready"
		m.finish(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	if !m.busy {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.refresh()
	return m, tea.Batch(cmds...)
}

func (m *ChatModel) refresh() {
	m.viewport.SetContent(m.renderEntries())
	m.viewport.GotoBottom()
}

// submit handles Enter. While an acquisition runs the key is ignored.
func (m *ChatModel) submit() tea.Cmd {
	if m.busy {
		return nil
	}

	text := strings.TrimSpace(m.input.Value())
	m.input.Reset()

	if IsQuit(text) {
		return tea.Quit
	}
	if text == "" {
		m.addEntry("system", "Empty prompt, type something first.")
		return nil
	}

	prompt := m.expand(text)
	m.addEntry("prompt", prompt)
	m.busy = true
	m.status = "sending"

	ctx, acquire := m.ctx, m.acquire
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		out, err := acquire(ctx, prompt)
		return AcquiredMsg{Outcome: out, Err: err}
	})
}

func (m *ChatModel) finish(msg AcquiredMsg) {
	if msg.Err != nil {
		m.addEntry("error", msg.Err.Error())
		return
	}

	out := msg.Outcome
	switch {
	case out.OK():
		m.addEntry("reply", out.Text)
	case out.Degraded():
		m.entries = append(m.entries, Entry{Role: "reply", Text: out.Text, Degraded: true, At: time.Now()})
	default:
		m.addEntry("error", out.Err().Error())
	}
	if out.Location != "" {
		m.addEntry("system", "saved to "+out.Location)
	}
}

func (m *ChatModel) addEntry(role, text string) {
	m.entries = append(m.entries, Entry{Role: role, Text: text, At: time.Now()})
}

// View implements tea.Model
func (m *ChatModel) View() string {
	header := m.styles.Header.Render("replyctl · " + m.target)

	chat := m.styles.Border.Width(max(m.width-2, 10)).Render(m.viewport.View())

	status := m.styles.Status.Render(m.status)
	if m.busy {
		status = m.spinner.View() + " " + status
	}

	footer := m.styles.Footer.Render("[Enter Send] [quit/exit/q/終了 Leave] [Ctrl+C Abort]")

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		chat,
		status,
		m.input.View(),
		footer,
	)
}

func (m *ChatModel) renderEntries() string {
	var b strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderEntry(e))
	}
	return b.String()
}

func (m *ChatModel) renderEntry(e Entry) string {
	ts := e.At.Format("15:04:05")
	switch e.Role {
	case "prompt":
		return m.styles.Prompt.Render(fmt.Sprintf("[%s] > %s", ts, e.Text))
	case "reply":
		if e.Degraded {
			return m.styles.Degraded.Render(fmt.Sprintf("[%s] (fallback) %s", ts, e.Text))
		}
		return m.styles.Reply.Render(fmt.Sprintf("[%s]", ts)) + "\n" + m.render(e.Text)
	case "error":
		return m.styles.Error.Render(fmt.Sprintf("[%s] ✗ %s", ts, e.Text))
	default:
		return m.styles.System.Render(fmt.Sprintf("[%s] %s", ts, e.Text))
	}
}

// markdownRenderer renders replies as terminal markdown. Replies that fail
// to render are shown as plain text.
func markdownRenderer(width int) func(string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return func(s string) string { return s }
	}
	return func(s string) string {
		out, err := r.Render(s)
		if err != nil {
			return s
		}
		return strings.Trim(out, "\n")
	}
}
