package output

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// DefaultWindow is the context window assumed when sizing a prompt for the
// configured model. Gemini Flash models accept one million input tokens.
const DefaultWindow = 1_000_000

// runesPerToken approximates how prompts made of C identifiers and tree
// punctuation tokenize.
const runesPerToken = 4

// PromptSize is an estimate of how much of a model's context a prompt uses.
type PromptSize struct {
	Tokens int
	Window int
}

// MeasurePrompt estimates the token count of text against window. A
// non-positive window uses DefaultWindow.
func MeasurePrompt(text string, window int) PromptSize {
	if window <= 0 {
		window = DefaultWindow
	}
	return PromptSize{Tokens: EstimateTokens(text), Window: window}
}

// EstimateTokens rounds the rune count of text divided by four.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + runesPerToken/2) / runesPerToken
}

// Percent is the share of the window the prompt fills.
func (p PromptSize) Percent() float64 {
	if p.Window <= 0 {
		return 0
	}
	return float64(p.Tokens) * 100 / float64(p.Window)
}

// Fits reports whether the prompt leaves room in the window.
func (p PromptSize) Fits() bool {
	return p.Tokens < p.Window
}

func (p PromptSize) String() string {
	return fmt.Sprintf("~%s tokens (%.1f%% of %s)", CompactCount(p.Tokens), p.Percent(), CompactCount(p.Window))
}

// CompactCount renders n as "950", "15.5k" or "1M".
func CompactCount(n int) string {
	switch {
	case n >= 1_000_000:
		return trimZero(float64(n)/1_000_000) + "M"
	case n >= 1000:
		return trimZero(float64(n)/1000) + "k"
	default:
		return strconv.Itoa(n)
	}
}

func trimZero(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
