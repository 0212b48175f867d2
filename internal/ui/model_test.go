package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lance13c/replyctl/internal/engine"
)

func TestIsQuit(t *testing.T) {
	for _, in := range []string{"quit", "EXIT", " q ", "終了"} {
		assert.True(t, IsQuit(in), in)
	}
	for _, in := range []string{"", "quite", "exit now", "qq"} {
		assert.False(t, IsQuit(in), in)
	}
}

func newTestModel(acquire AcquireFunc) *ChatModel {
	return NewChatModel(context.Background(), acquire, strings.ToUpper, "https://chat.example.com")
}

// runCmd executes cmd, flattening batches, and returns the messages.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func TestChatModelSubmitsExpandedPrompt(t *testing.T) {
	var got string
	m := newTestModel(func(_ context.Context, prompt string) (engine.Outcome, error) {
		got = prompt
		return engine.Outcome{Kind: engine.Success, Text: "Fuji is 3776 m.", Location: "outputs/output_001.md"}, nil
	})

	m.input.SetValue("how tall is fuji")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.Busy())

	var acquired *AcquiredMsg
	for _, msg := range runCmd(cmd) {
		if a, ok := msg.(AcquiredMsg); ok {
			acquired = &a
		}
	}
	require.NotNil(t, acquired)
	assert.Equal(t, "HOW TALL IS FUJI", got)

	m.Update(*acquired)
	assert.False(t, m.Busy())

	entries := m.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, "prompt", entries[1].Role)
	assert.Equal(t, "reply", entries[2].Role)
	assert.Equal(t, "Fuji is 3776 m.", entries[2].Text)
	assert.Contains(t, entries[3].Text, "output_001.md")
}

func TestChatModelQuitWord(t *testing.T) {
	m := newTestModel(nil)
	m.input.SetValue("終了")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestChatModelEmptyPrompt(t *testing.T) {
	m := newTestModel(nil)
	m.input.SetValue("   ")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.False(t, m.Busy())

	entries := m.Entries()
	assert.Equal(t, "system", entries[len(entries)-1].Role)
}

func TestChatModelIgnoresEnterWhileBusy(t *testing.T) {
	calls := 0
	m := newTestModel(func(context.Context, string) (engine.Outcome, error) {
		calls++
		return engine.Outcome{Kind: engine.Success, Text: "x"}, nil
	})
	m.input.SetValue("first")
	_, first := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, first)

	m.input.SetValue("second")
	_, second := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, second)
	assert.Zero(t, calls)
}

func TestChatModelStatusAndOutcomes(t *testing.T) {
	m := newTestModel(nil)
	m.Update(EngineEventMsg{Event: engine.Event{Kind: engine.EventPolling, Poll: 2}})
	assert.Contains(t, m.View(), "waiting for reply (poll 2)")

	m.Update(AcquiredMsg{Outcome: engine.Outcome{Kind: engine.RegenerateExhausted, Text: "fallback answer"}})
	last := m.Entries()[len(m.Entries())-1]
	assert.True(t, last.Degraded)

	m.Update(AcquiredMsg{Outcome: engine.Outcome{Kind: engine.SendFailed}})
	last = m.Entries()[len(m.Entries())-1]
	assert.Equal(t, "error", last.Role)

	m.Update(AcquiredMsg{Err: errors.New("browser gone")})
	last = m.Entries()[len(m.Entries())-1]
	assert.Equal(t, "browser gone", last.Text)
}

func TestNotifierWithoutProgram(t *testing.T) {
	var n Notifier
	assert.NotPanics(t, func() { n.Observe(engine.Event{Kind: engine.EventDone}) })
}

func TestRunLines(t *testing.T) {
	var prompts []string
	acquire := func(_ context.Context, prompt string) (engine.Outcome, error) {
		prompts = append(prompts, prompt)
		if prompt == "BROKEN" {
			return engine.Outcome{Kind: engine.Timeout}, nil
		}
		return engine.Outcome{Kind: engine.Success, Text: "reply to " + prompt}, nil
	}

	in := strings.NewReader("hello\n\nbroken\nquit\nnever sent\n")
	var out bytes.Buffer
	require.NoError(t, RunLines(context.Background(), in, &out, acquire, strings.ToUpper))

	assert.Equal(t, []string{"HELLO", "BROKEN"}, prompts)
	assert.Contains(t, out.String(), "reply to HELLO")
	assert.Contains(t, out.String(), "Empty prompt")
	assert.Contains(t, out.String(), "error: ")
}

func TestRunLinesEndOfInput(t *testing.T) {
	var out bytes.Buffer
	err := RunLines(context.Background(), strings.NewReader(""), &out, nil, nil)
	assert.NoError(t, err)
}

func TestMarkdownRenderer(t *testing.T) {
	render := markdownRenderer(40)
	out := render("# Fuji\n\nA **volcano** in Japan.")
	assert.Contains(t, out, "Fuji")
	assert.Contains(t, out, "volcano")
}
