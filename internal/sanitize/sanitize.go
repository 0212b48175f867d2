// Package sanitize strips UI chrome that leaks into captured reply text.
package sanitize

import (
	"strings"
	"unicode/utf8"
)

// DefaultChromeMarkers are labels after which everything is button chrome.
var DefaultChromeMarkers = []string{"コピー", "Copy", "copy"}

// DefaultTrailingLabels are action-button labels trimmed from the tail.
var DefaultTrailingLabels = []string{
	"再生成", "Regenerate",
	"いいね", "Like",
	"シェア", "Share",
	"次へ", "戻る", "Previous", "Next",
	"メニュー", "Menu",
	"設定", "Settings",
}

// DefaultTailFraction is the share of the text, counted from the end, in
// which a trailing label is considered chrome.
const DefaultTailFraction = 0.2

// Sanitizer removes chrome markers and trailing action labels.
type Sanitizer struct {
	ChromeMarkers  []string
	TrailingLabels []string
	TailFraction   float64
}

// New returns a Sanitizer with the default marker sets.
func New() *Sanitizer {
	return &Sanitizer{
		ChromeMarkers:  DefaultChromeMarkers,
		TrailingLabels: DefaultTrailingLabels,
		TailFraction:   DefaultTailFraction,
	}
}

// Sanitize cuts text at the earliest chrome marker, then trims trailing
// action labels until none is left in the tail. The result is a fixpoint:
// Sanitize(Sanitize(x)) == Sanitize(x).
func (s *Sanitizer) Sanitize(text string) string {
	if text == "" {
		return text
	}

	out := text
	if p := s.firstMarker(out); p >= 0 {
		out = out[:p]
	}
	out = strings.TrimSpace(out)

	for {
		next := s.trimTrailingLabel(out)
		if next == out {
			return out
		}
		out = next
	}
}

// firstMarker returns the byte offset of the earliest chrome marker, or -1.
func (s *Sanitizer) firstMarker(text string) int {
	best := -1
	for _, m := range s.ChromeMarkers {
		if m == "" {
			continue
		}
		if i := strings.Index(text, m); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	return best
}

func (s *Sanitizer) trimTrailingLabel(text string) string {
	total := utf8.RuneCountInString(text)
	if total == 0 {
		return text
	}
	threshold := float64(total) * (1 - s.tailFraction())

	for _, label := range s.TrailingLabels {
		if label == "" {
			continue
		}
		i := strings.LastIndex(text, label)
		if i <= 0 {
			continue
		}
		if float64(utf8.RuneCountInString(text[:i])) > threshold {
			return strings.TrimSpace(text[:i])
		}
	}
	return text
}

func (s *Sanitizer) tailFraction() float64 {
	if s.TailFraction <= 0 || s.TailFraction >= 1 {
		return DefaultTailFraction
	}
	return s.TailFraction
}

var defaultSanitizer = New()

// Sanitize runs the default Sanitizer.
func Sanitize(text string) string {
	return defaultSanitizer.Sanitize(text)
}
