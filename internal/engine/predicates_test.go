package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasRegenerateSignal(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Please REGENERATE the answer", true},
		{"応答を再生成", true},
		{"応答の生成中にエラーが発生しました。", true},
		{"A normal answer about lakes.", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HasRegenerateSignal(tt.text, DefaultRegenerateKeywords), tt.text)
	}
}

func TestIsPromptEcho(t *testing.T) {
	assert.True(t, IsPromptEcho("  what is Fuji?\n", "what is Fuji?"))
	assert.False(t, IsPromptEcho("What is Fuji?", "what is Fuji?"))
	assert.False(t, IsPromptEcho("what is Fuji? It is a mountain.", "what is Fuji?"))
}

func TestIsGeneratingPlaceholder(t *testing.T) {
	assert.True(t, IsGeneratingPlaceholder("", DefaultGeneratingIndicators))
	assert.True(t, IsGeneratingPlaceholder("Thinking...", DefaultGeneratingIndicators))
	assert.True(t, IsGeneratingPlaceholder("生成中です", DefaultGeneratingIndicators))
	assert.True(t, IsGeneratingPlaceholder("Generating…", DefaultGeneratingIndicators))
	assert.True(t, IsGeneratingPlaceholder("...", DefaultGeneratingIndicators))
	assert.True(t, IsGeneratingPlaceholder(" … ", nil))
	assert.False(t, IsGeneratingPlaceholder("hi", DefaultGeneratingIndicators))
	assert.False(t, IsGeneratingPlaceholder("Sure... here it is.", DefaultGeneratingIndicators))

	long := "I was thinking about this question for a while and here is my full answer."
	assert.False(t, IsGeneratingPlaceholder(long, DefaultGeneratingIndicators))
}

func TestEchoesPrompt(t *testing.T) {
	msg := "Please answer the previous question once more in full."
	prefix := string([]rune(msg)[:20])

	assert.True(t, EchoesPrompt(prefix+"...", msg, 20))
	assert.True(t, EchoesPrompt("You said: "+msg, msg, 20))
	assert.False(t, EchoesPrompt(longReply, msg, 20))
	assert.False(t, EchoesPrompt("anything", "", 20))

	jp := "前の質問にもう一度詳しく答えてください。お願いします。"
	assert.True(t, EchoesPrompt(string([]rune(jp)[:20])+"について", jp, 20))
}

func TestLongEnough(t *testing.T) {
	assert.False(t, LongEnough(strings.Repeat("a", 100), 100))
	assert.True(t, LongEnough(strings.Repeat("a", 101), 100))
	assert.False(t, LongEnough("  "+strings.Repeat("あ", 100)+"  ", 100))
	assert.True(t, LongEnough("x", 0))
	assert.False(t, LongEnough("   ", 0))
}

func TestIsTrivialResponse(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wholeWord bool
		want      bool
	}{
		{"empty", "", false, true},
		{"greeting", "Hello!", false, true},
		{"japanese", "ありがとうございます", false, true},
		{"substring hit", "I do not know", false, true},
		{"clean text", longReply, false, false},
		{"word mode ignores substrings", "I do not know", true, false},
		{"word mode hits words", "OK, sure.", true, true},
		{"word mode japanese", "こんにちは、世界", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTrivialResponse(tt.text, DefaultTrivialResponses, tt.wholeWord))
		})
	}
}
