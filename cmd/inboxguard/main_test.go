package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxguard/inboxguard/internal/analysis"
	"github.com/inboxguard/inboxguard/internal/category"
	"github.com/inboxguard/inboxguard/internal/inbox"
	"github.com/inboxguard/inboxguard/internal/tone"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadEmail(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		content     string
		wantSubject string
		wantSender  string
		wantBody    string
	}{
		{
			name: "rfc 5322 message",
			file: "message.eml",
			content: "From: Jane Doe <jane@example.com>\r\n" +
				"Subject: Team meeting\r\n" +
				"Content-Type: text/plain; charset=utf-8\r\n" +
				"\r\n" +
				"Project review moved to Friday.\r\n",
			wantSubject: "Team meeting",
			wantSender:  "jane@example.com",
			wantBody:    "Project review moved to Friday.",
		},
		{
			name: "api message",
			file: "message.json",
			content: `{"id":"18c1","payload":{"mimeType":"text/plain",` +
				`"headers":[{"name":"Subject","value":"Invoice"},{"name":"From","value":"billing@example.com"}],` +
				`"body":{"data":"UGF5bWVudCBkdWU="}}}`,
			wantSubject: "Invoice",
			wantSender:  "billing@example.com",
			wantBody:    "Payment due",
		},
		{
			name: "bare payload",
			file: "payload.json",
			content: `{"mimeType":"text/plain","headers":[{"name":"Subject","value":"Hi"}],` +
				`"body":{"data":"SGVsbG8gdGhlcmU"}}`,
			wantSubject: "Hi",
			wantBody:    "Hello there",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := loadEmail(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.wantSubject, e.Subject)
			assert.Equal(t, tt.wantSender, e.SenderEmail)
			assert.Contains(t, e.Body, tt.wantBody)
			assert.Equal(t, inbox.SourceFile, e.Source)
		})
	}
}

func TestLoadEmailAPIMessageID(t *testing.T) {
	e, err := loadEmail(writeFile(t, "m.json", `{"id":"abc123","payload":{"mimeType":"text/plain","body":{"data":"aGk"}}}`))
	require.NoError(t, err)
	assert.Equal(t, "abc123", e.MessageID)
}

func TestLoadEmailErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"invalid json", "bad.json", "{not json"},
		{"json without payload", "empty.json", `{"id":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadEmail(writeFile(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := loadEmail(filepath.Join(t.TempDir(), "nope.eml"))
		assert.Error(t, err)
	})
}

func TestYes(t *testing.T) {
	assert.True(t, yes("y"))
	assert.True(t, yes("YES"))
	assert.False(t, yes(""))
	assert.False(t, yes("no"))
}

func TestSeenSetSkipsHandledEmails(t *testing.T) {
	set := newSeenSet()
	first := []inbox.Email{
		{UID: 7, MessageID: "<a@example.com>"},
		{UID: 8},
		{Subject: "no identity"},
	}

	assert.Len(t, set.unseen(first), 3)
	set.add(first)

	// The same unread mail comes back on the next mailbox update
	again := append(first, inbox.Email{UID: 9, MessageID: "<b@example.com>"})
	got := set.unseen(again)
	require.Len(t, got, 2)
	assert.Equal(t, "no identity", got[0].Subject)
	assert.Equal(t, uint32(9), got[1].UID)
}

func TestSelectReports(t *testing.T) {
	a := analysis.New()
	analyze := func(subject, text string) analysis.Report {
		return a.Analyze(inbox.FromText(subject, "", text))
	}
	reports := []analysis.Report{
		analyze("Team sync", "The project meeting moved to Monday."),
		analyze("Notice", "Your account has been suspended, verify now."),
		analyze("Budget review", "Please review the team budget."),
	}
	policy := analysis.DefaultPolicy()

	t.Run("riskiest first", func(t *testing.T) {
		got, err := selectReports(append([]analysis.Report(nil), reports...), "", policy)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, category.Phishing, got[0].Category)
		assert.Equal(t, "Team sync", got[1].Email.Subject)
		assert.Equal(t, "Budget review", got[2].Email.Subject)
	})

	t.Run("category filter", func(t *testing.T) {
		got, err := selectReports(append([]analysis.Report(nil), reports...), "Work", policy)
		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, r := range got {
			assert.Equal(t, category.Work, r.Category)
		}
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := selectReports(reports, "newsletters", policy)
		assert.Error(t, err)
	})
}

func TestFormatSignals(t *testing.T) {
	got := formatSignals(tone.Signals{Positive: 2, Appreciative: 3.5})
	assert.Equal(t, "positive 2.0, negative 0.0, angry 0.0, frustrated 0.0, appreciative 3.5", got)
}
