package analysis

import (
	"strings"

	"github.com/inboxguard/inboxguard/internal/category"
	"github.com/inboxguard/inboxguard/internal/config"
	"github.com/inboxguard/inboxguard/internal/tone"
)

// Policy decides which reports warrant an alert
type Policy struct {
	Categories map[category.Category]bool
	Sentiments map[tone.Sentiment]bool
	Urgent     bool
}

// DefaultPolicy alerts on phishing, spam and angry mail.
func DefaultPolicy() Policy {
	return NewPolicy([]string{string(category.Phishing), string(category.Spam)}, []string{string(tone.Angry)}, false)
}

// NewPolicy builds a policy from category and sentiment names.
func NewPolicy(categories, sentiments []string, urgent bool) Policy {
	p := Policy{
		Categories: make(map[category.Category]bool),
		Sentiments: make(map[tone.Sentiment]bool),
		Urgent:     urgent,
	}
	for _, c := range categories {
		p.Categories[category.Category(strings.ToLower(strings.TrimSpace(c)))] = true
	}
	for _, s := range sentiments {
		p.Sentiments[tone.Sentiment(strings.ToLower(strings.TrimSpace(s)))] = true
	}
	return p
}

// PolicyFromConfig builds the alert policy from configuration.
func PolicyFromConfig(cfg config.AlertConfig) Policy {
	return NewPolicy(cfg.Categories, cfg.Sentiments, cfg.Urgent)
}

// ShouldAlert reports whether r matches the policy.
func (p Policy) ShouldAlert(r Report) bool {
	if p.Categories[r.Category] || p.Sentiments[r.Tone.Sentiment] {
		return true
	}
	return p.Urgent && r.Tone.Urgent
}

// Reasons lists why r matched the policy.
func (p Policy) Reasons(r Report) []string {
	var reasons []string
	if p.Categories[r.Category] {
		reasons = append(reasons, "category "+string(r.Category))
	}
	if p.Sentiments[r.Tone.Sentiment] {
		reasons = append(reasons, "tone "+string(r.Tone.Sentiment))
	}
	if p.Urgent && r.Tone.Urgent {
		reasons = append(reasons, "urgent wording")
	}
	return reasons
}
