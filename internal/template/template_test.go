package template

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxguard/inboxguard/internal/analysis"
	"github.com/inboxguard/inboxguard/internal/inbox"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine()
	require.NoError(t, err)
	e.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }
	return e
}

func TestNewEngine(t *testing.T) {
	e := newTestEngine(t)
	assert.ElementsMatch(t, []string{"alert", "digest"}, e.AvailableTemplates())
}

func TestRenderAlert(t *testing.T) {
	e := newTestEngine(t)
	a := analysis.New()
	r := a.Analyze(inbox.FromText(
		"Your account has been suspended",
		"Security Team <security@examp1e.com>",
		"Verify immediately or your account will be closed. This is unacceptable.",
	))
	p := analysis.DefaultPolicy()

	msg, err := e.RenderAlert(r, p.Reasons(r), "http://127.0.0.1:8080/")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(msg.Subject, "[InboxGuard] Phishing / "))
	assert.NotContains(t, msg.Subject, "\n")
	assert.Contains(t, msg.Body, "March 1, 2024 09:30")
	assert.Contains(t, msg.Body, "Why: category phishing")
	assert.Contains(t, msg.Body, "From:     Security Team (security@examp1e.com)")
	assert.Contains(t, msg.Body, "Category: Phishing")
	assert.Contains(t, msg.Body, "Review: http://127.0.0.1:8080/")
}

func TestRenderAlertDefaults(t *testing.T) {
	e := newTestEngine(t)
	r := analysis.New().Analyze(inbox.Email{})

	msg, err := e.RenderAlert(r, nil, "")
	require.NoError(t, err)
	assert.Contains(t, msg.Subject, "No subject")
	assert.Contains(t, msg.Body, "From:     Unknown Sender (Not available)")
	assert.Contains(t, msg.Body, "No content available for summary.")
	assert.NotContains(t, msg.Body, "Review:")
}

func TestAlertSubjectIsBounded(t *testing.T) {
	r := analysis.New().Analyze(inbox.Email{Subject: strings.Repeat("word ", 40) + "\r\nBcc: x@example.com"})
	subject := alertSubject(r)
	assert.NotContains(t, subject, "\r")
	assert.NotContains(t, subject, "\n")
	assert.LessOrEqual(t, len([]rune(subject)), maxSubjectLength+40)
}

func TestRenderDigest(t *testing.T) {
	e := newTestEngine(t)
	a := analysis.New()
	reports := []analysis.Report{
		a.Analyze(inbox.FromText("Lunch?", "Sam <sam@example.com>", "Want to grab lunch on Friday?")),
		a.Analyze(inbox.FromText("Order 1182", "Pat <pat@example.com>", "I am furious, this is unacceptable")),
	}

	msg, err := e.RenderDigest(reports, analysis.DefaultPolicy())
	require.NoError(t, err)
	assert.Equal(t, "[InboxGuard] 1 of 2 messages need attention", msg.Subject)
	assert.Contains(t, msg.Body, "Order 1182")
	assert.NotContains(t, msg.Body, "Lunch?")
}
