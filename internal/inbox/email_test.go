package inbox

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inboxguard/inboxguard/internal/body"
)

func TestExtractSenderEmail(t *testing.T) {
	tests := []struct {
		name     string
		from     string
		expected string
	}{
		{"display name with brackets", "Jane Doe <jane@example.com>", "jane@example.com"},
		{"bare address", "jane@example.com", "jane@example.com"},
		{"quoted name", `"Doe, Jane" <jane@example.com>`, "jane@example.com"},
		{"no address", "Jane Doe", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractSenderEmail(tt.from); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSenderName(t *testing.T) {
	tests := []struct {
		name     string
		from     string
		expected string
	}{
		{"display name", "Jane Doe <jane@example.com>", "Jane Doe"},
		{"bare address", "jane@example.com", "jane@example.com"},
		{"brackets only", "<jane@example.com>", "<jane@example.com>"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SenderName(tt.from); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestHeaderValue(t *testing.T) {
	headers := []body.Header{
		{Name: "subject", Value: "Lunch?"},
		{Name: "From", Value: "Sam <sam@example.com>"},
	}
	assert.Equal(t, "Lunch?", HeaderValue(headers, "Subject"))
	assert.Equal(t, "Sam <sam@example.com>", HeaderValue(headers, "FROM"))
	assert.Equal(t, "", HeaderValue(headers, "Date"))
	assert.Equal(t, "", HeaderValue(nil, "Subject"))
}

func TestFromPayload(t *testing.T) {
	payload := &body.Part{
		MimeType: "multipart/alternative",
		Headers: []body.Header{
			{Name: "Subject", Value: "Invoice attached"},
			{Name: "From", Value: "Billing <billing@example.com>"},
		},
		Parts: []*body.Part{
			body.NewTextPart(body.MimeTextHTML, "<p>Your invoice</p>"),
			body.NewTextPart(body.MimeTextPlain, "Your   invoice\nis ready."),
		},
	}

	email := FromPayload(payload)
	assert.Equal(t, "Invoice attached", email.Subject)
	assert.Equal(t, "Billing <billing@example.com>", email.Sender)
	assert.Equal(t, "billing@example.com", email.SenderEmail)
	assert.Equal(t, "Your invoice is ready.", email.Body)

	assert.Equal(t, Email{}, FromPayload(nil))
}

func TestFromText(t *testing.T) {
	email := FromText("Hi", "pat@example.com", "  hello \n there ")
	assert.Equal(t, "hello there", email.Body)
	assert.Equal(t, "pat@example.com", email.SenderEmail)
}

func TestDisplayDefaults(t *testing.T) {
	var email Email
	assert.Equal(t, "Unknown Sender", email.DisplaySender())
	assert.Equal(t, "Not available", email.DisplayEmail())
	assert.Equal(t, "No subject", email.DisplaySubject())

	email = Email{Sender: "Jane Doe <jane@example.com>", SenderEmail: "jane@example.com", Subject: "Hi"}
	assert.Equal(t, "Jane Doe", email.DisplaySender())
	assert.Equal(t, "jane@example.com", email.DisplayEmail())
	assert.Equal(t, "Hi", email.DisplaySubject())
}
