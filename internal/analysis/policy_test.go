package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inboxguard/inboxguard/internal/category"
	"github.com/inboxguard/inboxguard/internal/config"
	"github.com/inboxguard/inboxguard/internal/tone"
)

func TestPolicy(t *testing.T) {
	tests := []struct {
		name     string
		policy   Policy
		report   Report
		expected bool
	}{
		{
			name:     "phishing alerts by default",
			policy:   DefaultPolicy(),
			report:   Report{Category: category.Phishing, Tone: tone.Result{Sentiment: tone.Neutral}},
			expected: true,
		},
		{
			name:     "angry alerts by default",
			policy:   DefaultPolicy(),
			report:   Report{Category: category.Work, Tone: tone.Result{Sentiment: tone.Angry}},
			expected: true,
		},
		{
			name:     "positive work mail does not alert",
			policy:   DefaultPolicy(),
			report:   Report{Category: category.Work, Tone: tone.Result{Sentiment: tone.Positive}},
			expected: false,
		},
		{
			name:     "urgent only when enabled",
			policy:   NewPolicy(nil, nil, false),
			report:   Report{Category: category.Work, Tone: tone.Result{Urgent: true}},
			expected: false,
		},
		{
			name:     "urgent enabled",
			policy:   NewPolicy(nil, nil, true),
			report:   Report{Category: category.Work, Tone: tone.Result{Urgent: true}},
			expected: true,
		},
		{
			name:     "names are normalized",
			policy:   NewPolicy([]string{" Finance "}, nil, false),
			report:   Report{Category: category.Finance},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.ShouldAlert(tt.report); got != tt.expected {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(config.AlertConfig{Categories: []string{"spam"}, Sentiments: []string{"frustrated"}, Urgent: true})
	r := Report{Category: category.Spam, Tone: tone.Result{Sentiment: tone.Frustrated, Urgent: true}}
	assert.True(t, p.ShouldAlert(r))
	assert.Equal(t, []string{"category spam", "tone frustrated", "urgent wording"}, p.Reasons(r))
}
