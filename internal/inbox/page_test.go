package inbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePage(t *testing.T) {
	tests := []struct {
		name        string
		html        string
		wantSubject string
		wantSender  string
		wantEmail   string
		wantBody    string
	}{
		{
			name: "Full message view",
			html: `<html><body>
				<h2 class="hP">Quarterly numbers</h2>
				<span class="gD" email="cfo@example.com" name="Chris">Chris CFO</span>
				<div class="a3s aiL"><div>Numbers   attached.</div><div>Sent from my iPhone</div></div>
			</body></html>`,
			wantSubject: "Quarterly numbers",
			wantSender:  "Chris CFO",
			wantEmail:   "cfo@example.com",
			wantBody:    "Numbers attached.",
		},
		{
			name: "Fallback selectors and defaults",
			html: `<html><body>
				<div class="gD">Someone</div>
				<div dir="ltr"><div>Plain fallback body</div></div>
			</body></html>`,
			wantSubject: "No Subject",
			wantSender:  "Someone",
			wantEmail:   "",
			wantBody:    "Plain fallback body",
		},
		{
			name:        "Unknown sender",
			html:        `<div class="a3s aiL">Just a body</div>`,
			wantSubject: "No Subject",
			wantSender:  "Unknown Sender",
			wantBody:    "Just a body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email, err := ParsePage(strings.NewReader(tt.html))
			require.NoError(t, err)
			assert.Equal(t, tt.wantSubject, email.Subject)
			assert.Equal(t, tt.wantSender, email.Sender)
			assert.Equal(t, tt.wantEmail, email.SenderEmail)
			assert.Equal(t, tt.wantBody, email.Body)
			assert.Equal(t, SourcePage, email.Source)
		})
	}
}

func TestParsePageWithoutBody(t *testing.T) {
	_, err := ParsePage(strings.NewReader(`<h2 class="hP">Inbox</h2>`))
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestCleanScrapedBody(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"trailing signature", "See you there.\nSent from my Phone", "See you there."},
		{"case insensitive", "Ok. sent FROM mobile", "Ok."},
		{"signature not on last line is kept", "Sent from my iPhone\nThanks", "Sent from my iPhone Thanks"},
		{"capped", strings.Repeat("a", 600), strings.Repeat("a", 512)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanScrapedBody(tt.text))
		})
	}
}
