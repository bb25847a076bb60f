package summary

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/inboxguard/inboxguard/internal/body"
)

const (
	// Empty is returned when there is no body to summarize.
	Empty = "No content available for summary."

	// VerbatimLength is the longest body returned unchanged.
	VerbatimLength = 200
	// MaxLength bounds a sentence-based summary.
	MaxLength = 250
	// MinLength is the shortest sentence-based summary worth keeping.
	MinLength = 50
	// MaxSentences is how many leading sentences are considered.
	MaxSentences = 3

	ellipsis = "..."
)

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+`)

// Summarize returns a short preview of body built from its leading sentences.
func Summarize(text string) string {
	text = body.CollapseSpace(text)
	if text == "" {
		return Empty
	}
	if runeLen(text) <= VerbatimLength {
		return text
	}

	sentences := sentencePattern.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{text}
	}

	var b strings.Builder
	count := 0
	for i := 0; i < len(sentences) && i < MaxSentences; i++ {
		sentence := strings.TrimSpace(sentences[i])
		n := runeLen(sentence)
		if count+n > MaxLength {
			break
		}
		b.WriteString(sentence)
		b.WriteByte(' ')
		count += n
	}

	summary := strings.TrimSpace(b.String())
	if runeLen(summary) > MinLength {
		if runeLen(summary) > MaxLength {
			return body.Truncate(summary, MaxLength-len(ellipsis)) + ellipsis
		}
		return summary
	}

	return body.Truncate(text, VerbatimLength) + ellipsis
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
