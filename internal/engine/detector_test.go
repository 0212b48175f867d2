package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lance13c/replyctl/internal/sanitize"
)

func newTestDetector(prompt string, baseline ...Turn) *detector {
	sess := &Session{PromptText: prompt, Baseline: NewBaseline(baseline)}
	return newDetector(testConfig().withDefaults(), sanitize.New(), sess)
}

func TestClassifyRegenerateKeywordWins(t *testing.T) {
	tests := []struct {
		name   string
		sample Sample
	}{
		{"keyword in long marked text", Sample{Turns: []Turn{{ID: 3, Text: longReply + " Regenerate response", HasActionMarker: true}}}},
		{"keyword while generating", Sample{Turns: []Turn{{ID: 3, Text: "regenerate", IsGenerating: true}}}},
		{"japanese notice", Sample{Turns: []Turn{{ID: 3, Text: errorNotice}}}},
		{"probe only", Sample{Turns: []Turn{{ID: 3, Text: longReply, HasActionMarker: true}}, RegenerateSignal: true}},
		{"probe without candidates", Sample{RegenerateSignal: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDetector("question", Turn{ID: 1}, Turn{ID: 2})
			assert.Equal(t, ErrorSignal, d.classify(tt.sample).Class)
		})
	}
}

func TestClassifyNeverPicksBaselineTurns(t *testing.T) {
	baseline := []Turn{
		{ID: 1, Text: longReply, HasActionMarker: true},
		{ID: 7, Text: longReply + " again", HasActionMarker: true},
	}
	d := newTestDetector("question", baseline...)

	pages := [][]Turn{
		baseline,
		append(baseline, Turn{ID: 8, Text: "partial", IsGenerating: true}),
		append(baseline, Turn{ID: 8, Text: longReply, HasActionMarker: true}),
	}
	for _, page := range pages {
		for i := 0; i < 4; i++ {
			det := d.classify(Sample{Turns: page})
			assert.NotEqual(t, int64(1), det.TurnID)
			assert.NotEqual(t, int64(7), det.TurnID)
		}
	}
}

func TestClassifyNeverAcceptsPromptEcho(t *testing.T) {
	prompt := "  " + longReply + "\n"
	d := newTestDetector(prompt)

	for i := 0; i < 10; i++ {
		det := d.classify(Sample{Turns: []Turn{{ID: 5, Text: longReply, HasActionMarker: true}}})
		assert.NotEqual(t, StableCandidate, det.Class)
	}
}

func TestClassifyMarkerNeedsRiseAndLength(t *testing.T) {
	t.Run("marker count not above baseline", func(t *testing.T) {
		d := newTestDetector("question", Turn{ID: 1, HasActionMarker: true})
		// The old marker vanished while the new one appeared: count is unchanged.
		det := d.classify(Sample{Turns: []Turn{{ID: 2, Text: longReply, HasActionMarker: true}}})
		assert.Equal(t, Generating, det.Class)
	})

	t.Run("short text with marker", func(t *testing.T) {
		d := newTestDetector("question")
		det := d.classify(Sample{Turns: []Turn{{ID: 2, Text: "short", HasActionMarker: true}}})
		assert.Equal(t, Generating, det.Class)
	})

	t.Run("long text with new marker", func(t *testing.T) {
		d := newTestDetector("question")
		det := d.classify(Sample{Turns: []Turn{{ID: 2, Text: longReply + " コピー", HasActionMarker: true}}})
		assert.Equal(t, StableCandidate, det.Class)
		assert.Equal(t, longReply, det.Text)
	})
}

func TestClassifyStabilityWindow(t *testing.T) {
	d := newTestDetector("question")

	stream := []string{"Fuji", "Fuji rises", "Fuji rises", "Fuji rises above", "Fuji rises above", "Fuji rises above"}
	var got []Classification
	for _, text := range stream {
		got = append(got, d.classify(Sample{Turns: []Turn{{ID: 2, Text: text}}}).Class)
	}
	assert.Equal(t, []Classification{Generating, Generating, Generating, Generating, Generating, StableCandidate}, got)
}

func TestClassifyPlaceholderNeverStable(t *testing.T) {
	for _, text := range []string{"Thinking...", "考え中", "█", "Generating…", "Generating...", "...", "…"} {
		d := newTestDetector("question")
		for i := 0; i < 6; i++ {
			det := d.classify(Sample{Turns: []Turn{{ID: 2, Text: text}}})
			assert.Equal(t, Generating, det.Class, text)
		}
	}
}

func TestClassifyIgnoresSignalPresentBeforeSubmit(t *testing.T) {
	d := newTestDetector("question", Turn{ID: 1, Text: "old answer", HasActionMarker: true})
	d.baseline.RegenerateSignal = true

	det := d.classify(Sample{Turns: []Turn{{ID: 1, Text: "old answer", HasActionMarker: true}}, RegenerateSignal: true})
	assert.Equal(t, Generating, det.Class)

	reply := strings.Repeat("a finished answer ", 10)
	det = d.classify(Sample{
		Turns: []Turn{
			{ID: 1, Text: "old answer", HasActionMarker: true},
			{ID: 2, Text: reply, HasActionMarker: true},
		},
		RegenerateSignal: true,
	})
	assert.Equal(t, StableCandidate, det.Class)
	assert.Equal(t, int64(2), det.TurnID)

	det = d.classify(Sample{
		Turns:            []Turn{{ID: 3, Text: errorNotice}},
		RegenerateSignal: true,
	})
	assert.Equal(t, ErrorSignal, det.Class)
}

func TestClassifyGeneratingTurnNeverStable(t *testing.T) {
	d := newTestDetector("question")
	for i := 0; i < 6; i++ {
		det := d.classify(Sample{Turns: []Turn{{ID: 2, Text: "steady text", IsGenerating: true}}})
		assert.Equal(t, Generating, det.Class)
	}
}

func TestClassifyFailedSample(t *testing.T) {
	d := newTestDetector("question")
	det := d.classify(Sample{Err: errors.New("stale element")})
	assert.Equal(t, Generating, det.Class)
}

func TestPickPrefersFinishedThenLatest(t *testing.T) {
	best, ok := pick([]Turn{
		{ID: 4, IsGenerating: false},
		{ID: 9, IsGenerating: true},
		{ID: 6, IsGenerating: false},
	})
	assert.True(t, ok)
	assert.Equal(t, int64(6), best.ID)

	best, ok = pick([]Turn{{ID: 2, IsGenerating: true}, {ID: 3, IsGenerating: true}})
	assert.True(t, ok)
	assert.Equal(t, int64(3), best.ID)

	_, ok = pick(nil)
	assert.False(t, ok)
}
