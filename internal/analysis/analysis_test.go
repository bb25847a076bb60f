package analysis

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxguard/inboxguard/internal/body"
	"github.com/inboxguard/inboxguard/internal/category"
	"github.com/inboxguard/inboxguard/internal/inbox"
	"github.com/inboxguard/inboxguard/internal/summary"
	"github.com/inboxguard/inboxguard/internal/tone"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name          string
		email         inbox.Email
		wantCategory  category.Category
		wantSentiment tone.Sentiment
	}{
		{
			name: "Angry customer",
			email: inbox.Email{
				Subject: "Order 1182",
				Body:    "I am furious, this is unacceptable, I will sue",
			},
			wantCategory:  category.Unknown,
			wantSentiment: tone.Angry,
		},
		{
			name: "Phishing with gratitude",
			email: inbox.Email{
				Subject: "Your account has been suspended, verify immediately",
				Body:    "Thank you so much, I really appreciate your help",
			},
			wantCategory:  category.Phishing,
			wantSentiment: tone.Appreciative,
		},
		{
			name:          "Empty email",
			email:         inbox.Email{},
			wantCategory:  category.Unknown,
			wantSentiment: tone.Neutral,
		},
	}

	a := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := a.Analyze(tt.email)
			assert.Equal(t, tt.wantCategory, r.Category)
			assert.Equal(t, tt.wantSentiment, r.Tone.Sentiment)
			assert.NotEmpty(t, r.Summary)
		})
	}
}

func TestAnalyzeEmptyBodySummary(t *testing.T) {
	r := New().Analyze(inbox.Email{Subject: "Nothing"})
	assert.Equal(t, summary.Empty, r.Summary)
	assert.Zero(t, r.Tone.Score)
}

func TestAnalyzeBoundsBody(t *testing.T) {
	r := New().Analyze(inbox.Email{Body: strings.Repeat("long ", 300)})
	assert.Equal(t, body.MaxLength, len([]rune(r.Email.Body)))
}

func TestAnalyzePayload(t *testing.T) {
	payload := &body.Part{
		MimeType: "multipart/alternative",
		Headers: []body.Header{
			{Name: "Subject", Value: "Team meeting"},
			{Name: "From", Value: "Lee <lee@example.com>"},
		},
		Parts: []*body.Part{
			body.NewTextPart(body.MimeTextHTML, "<p>ignored</p>"),
			body.NewTextPart(body.MimeTextPlain, "Great news, the project shipped."),
		},
	}

	r := New().AnalyzePayload(payload)
	assert.Equal(t, "lee@example.com", r.Email.SenderEmail)
	assert.Equal(t, category.Work, r.Category)
	assert.Equal(t, tone.Positive, r.Tone.Sentiment)
	assert.Equal(t, "Great news, the project shipped.", r.Summary)
}

func TestAnalyzeAllKeepsOrder(t *testing.T) {
	var emails []inbox.Email
	for i := 0; i < 20; i++ {
		emails = append(emails, inbox.Email{Subject: fmt.Sprintf("msg %d", i), Body: "Thank you"})
	}

	reports, err := New(WithWorkers(3)).AnalyzeAll(context.Background(), emails)
	require.NoError(t, err)
	require.Len(t, reports, len(emails))
	for i, r := range reports {
		assert.Equal(t, fmt.Sprintf("msg %d", i), r.Email.Subject)
	}
}

func TestAnalyzeAllMatchesSequential(t *testing.T) {
	emails := []inbox.Email{
		{Subject: "Invoice", Body: "Payment received, thanks!"},
		{Subject: "Hey", Body: "How are you? Still waiting, no response, so confused."},
		{Subject: "Sale", Body: "50% off today only"},
	}

	a := New()
	a.now = func() time.Time { return time.Unix(0, 0) }

	reports, err := a.AnalyzeAll(context.Background(), emails)
	require.NoError(t, err)
	for i, e := range emails {
		assert.Equal(t, a.Analyze(e), reports[i])
	}
}

func TestAnalyzeAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().AnalyzeAll(ctx, []inbox.Email{{Body: "hello"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummarize(t *testing.T) {
	reports := []Report{
		{Category: category.Phishing, Tone: tone.Result{Sentiment: tone.Neutral}},
		{Category: category.Work, Tone: tone.Result{Sentiment: tone.Angry, Urgent: true}},
		{Category: category.Work, Tone: tone.Result{Sentiment: tone.Positive}},
	}

	stats := Summarize(reports)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Categories[category.Work])
	assert.Equal(t, 1, stats.Sentiments[tone.Angry])
	assert.Equal(t, 1, stats.Urgent)
	assert.Equal(t, 2, stats.NeedsAction)

	assert.Len(t, FilterByCategory(reports, category.Work), 2)
}

func TestSortByRisk(t *testing.T) {
	reports := []Report{
		{Email: inbox.Email{Subject: "a"}, Category: category.Work},
		{Email: inbox.Email{Subject: "b"}, Category: category.Spam},
		{Email: inbox.Email{Subject: "c"}, Category: category.Personal},
		{Email: inbox.Email{Subject: "d"}, Category: category.Phishing},
	}

	SortByRisk(reports, DefaultPolicy())
	var order []string
	for _, r := range reports {
		order = append(order, r.Email.Subject)
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, order)
}
