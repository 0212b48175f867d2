package engine

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultRegenerateKeywords mark a turn whose text is an error notice.
var DefaultRegenerateKeywords = []string{
	"regenerate",
	"応答を再生成",
	"応答の生成中にエラーが発生",
}

// DefaultGeneratingIndicators appear in a short placeholder turn while the
// reply is still being produced.
var DefaultGeneratingIndicators = []string{
	"thinking...", "thinking", "generating…", "generating",
	"考え中", "生成中", "█",
}

// DefaultTrivialResponses are greetings and acknowledgements never accepted
// as a fallback answer.
var DefaultTrivialResponses = []string{"hello", "hi", "ok", "yes", "no", "こんにちは", "ありがとう"}

// placeholderMaxLength bounds how long a turn may be and still count as a
// "generating" placeholder.
const placeholderMaxLength = 50

func runeLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

// HasRegenerateSignal reports whether text contains any keyword,
// case-insensitively.
func HasRegenerateSignal(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// IsPromptEcho reports whether text is the submitted prompt itself, compared
// exactly after trimming surrounding whitespace.
func IsPromptEcho(text, prompt string) bool {
	return strings.TrimSpace(text) == strings.TrimSpace(prompt)
}

// IsGeneratingPlaceholder reports whether text is empty, only dots, or a
// short "thinking" style placeholder.
func IsGeneratingPlaceholder(text string, indicators []string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return true
	}
	if utf8.RuneCountInString(t) >= placeholderMaxLength {
		return false
	}
	if onlyEllipsis(t) {
		return true
	}
	lower := strings.ToLower(t)
	for _, ind := range indicators {
		if ind != "" && strings.Contains(lower, strings.ToLower(ind)) {
			return true
		}
	}
	return false
}

// onlyEllipsis reports whether t is made of dots, ellipses and spaces.
func onlyEllipsis(t string) bool {
	for _, r := range t {
		if r != '.' && r != '…' && r != '・' && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// EchoesPrompt reports whether text contains the first prefixLen runes of
// prompt.
func EchoesPrompt(text, prompt string, prefixLen int) bool {
	p := []rune(strings.TrimSpace(prompt))
	if len(p) == 0 {
		return false
	}
	if prefixLen > 0 && len(p) > prefixLen {
		p = p[:prefixLen]
	}
	return strings.Contains(text, string(p))
}

// LongEnough reports whether the trimmed text is longer than minLen runes.
func LongEnough(text string, minLen int) bool {
	return runeLen(text) > minLen
}

// IsTrivialResponse reports whether text matches the denylist. By default any
// case-insensitive substring hit counts; with wholeWord only complete words
// do. Empty text is always trivial.
func IsTrivialResponse(text string, denylist []string, wholeWord bool) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return true
	}

	if !wholeWord {
		for _, d := range denylist {
			if d != "" && strings.Contains(lower, strings.ToLower(d)) {
				return true
			}
		}
		return false
	}

	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		for _, d := range denylist {
			if w == strings.ToLower(d) {
				return true
			}
		}
	}
	return false
}
