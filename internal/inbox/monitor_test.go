package inbox

import (
	"bytes"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewestUIDs(t *testing.T) {
	uids := []uint32{4, 9, 1, 7}
	assert.Equal(t, []uint32{9}, newestUIDs(uids, 1))
	assert.Equal(t, []uint32{9, 7, 4, 1}, newestUIDs(uids, 10))
	assert.Equal(t, []uint32{4, 9, 1, 7}, uids, "input must not be reordered")
}

func TestParseMessage(t *testing.T) {
	raw := "From: Ops Team <ops@example.com>\r\n" +
		"Subject: Deploy failed\r\n" +
		"Message-ID: <abc@example.com>\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"The deploy   failed again.\r\n"

	date := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	section := &imap.BodySectionName{Peek: true}
	msg := &imap.Message{
		Uid:      42,
		Envelope: &imap.Envelope{Date: date, Subject: "ignored"},
		Body: map[*imap.BodySectionName]imap.Literal{
			{}: bytes.NewBufferString(raw),
		},
	}

	email, err := parseMessage(msg, section)
	require.NoError(t, err)
	require.NotNil(t, email)

	assert.Equal(t, uint32(42), email.UID)
	assert.Equal(t, "Deploy failed", email.Subject)
	assert.Equal(t, "Ops Team <ops@example.com>", email.Sender)
	assert.Equal(t, "ops@example.com", email.SenderEmail)
	assert.Equal(t, "The deploy failed again.", email.Body)
	assert.Equal(t, date, email.ReceivedAt)
	assert.Equal(t, SourceIMAP, email.Source)
}

func TestParseMessageEnvelopeFallback(t *testing.T) {
	msg := &imap.Message{
		Uid: 3,
		Envelope: &imap.Envelope{
			Subject:   "From envelope",
			MessageId: "<id@example.com>",
			From:      []*imap.Address{{PersonalName: "Kim", MailboxName: "kim", HostName: "example.com"}},
		},
	}

	email, err := parseMessage(msg, &imap.BodySectionName{Peek: true})
	require.NoError(t, err)
	assert.Equal(t, "From envelope", email.Subject)
	assert.Equal(t, "Kim <kim@example.com>", email.Sender)
	assert.Equal(t, "kim@example.com", email.SenderEmail)
	assert.Equal(t, "<id@example.com>", email.MessageID)
	assert.Empty(t, email.Body)
}

func TestParseMessageWithoutEnvelope(t *testing.T) {
	email, err := parseMessage(&imap.Message{}, &imap.BodySectionName{})
	assert.NoError(t, err)
	assert.Nil(t, email)
}

func TestMailboxChangesCoalesces(t *testing.T) {
	updates := make(chan client.Update)
	done := make(chan struct{})
	defer close(done)
	changed := mailboxChanges(updates, done)

	// Unbuffered sends only complete while the updates are being drained
	for i := 0; i < 5; i++ {
		updates <- &client.MailboxUpdate{Mailbox: &imap.MailboxStatus{Messages: uint32(i)}}
	}
	updates <- &client.StatusUpdate{Status: &imap.StatusResp{}}

	require.Len(t, changed, 1)
	<-changed
	assert.Len(t, changed, 0)

	updates <- &client.StatusUpdate{Status: &imap.StatusResp{}}
	assert.Len(t, changed, 0)
}
