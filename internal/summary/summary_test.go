package summary

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	fiveSentences := make([]string, 5)
	for i := range fiveSentences {
		fiveSentences[i] = strings.Repeat("a", 79) + "."
	}
	unterminated := strings.Repeat("x", 300)
	nearLimit := strings.Repeat("a", 82) + ". " + strings.Repeat("b", 82) + ". " + strings.Repeat("c", 83) + "."

	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "empty body",
			text:     "",
			expected: Empty,
		},
		{
			name:     "whitespace only",
			text:     " \n\t ",
			expected: Empty,
		},
		{
			name:     "short body verbatim",
			text:     strings.Repeat("y", 180),
			expected: strings.Repeat("y", 180),
		},
		{
			name:     "whitespace normalized before length check",
			text:     "Hello   there,\n\nsee you soon",
			expected: "Hello there, see you soon",
		},
		{
			name:     "first three sentences",
			text:     strings.Join(fiveSentences, " "),
			expected: strings.Join(fiveSentences[:3], " "),
		},
		{
			name:     "no terminators falls back to prefix",
			text:     unterminated,
			expected: strings.Repeat("x", 200) + "...",
		},
		{
			name:     "tiny first sentence falls back to prefix",
			text:     "Hi. " + unterminated,
			expected: "Hi. " + strings.Repeat("x", 196) + "...",
		},
		{
			name:     "joined sentences over limit are cut",
			text:     nearLimit + " " + strings.Repeat("d", 100) + ".",
			expected: nearLimit[:247] + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Summarize(tt.text))
		})
	}
}

func TestSummarizeStopsBeforeOverflow(t *testing.T) {
	first := strings.Repeat("a", 120) + "."
	second := strings.Repeat("b", 140) + "."
	got := Summarize(first + " " + second + " tail.")
	assert.Equal(t, first, got)
}

func TestSummarizeBounded(t *testing.T) {
	text := strings.Repeat("Sentence with some words in it! ", 40)
	got := Summarize(text)
	assert.LessOrEqual(t, len([]rune(got)), MaxLength)
}
