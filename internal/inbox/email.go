package inbox

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/inboxguard/inboxguard/internal/body"
)

// ErrNoMessage is returned when no email could be obtained for analysis.
var ErrNoMessage = errors.New("could not obtain email")

// Source records where an email came from
type Source string

const (
	SourceIMAP Source = "imap"
	SourcePage Source = "page"
	SourceFile Source = "file"
	SourceAPI  Source = "api"
)

// Email is a message reduced to the fields the analysis needs. Body is
// plain text, already decoded and length-bounded.
type Email struct {
	UID         uint32    `json:"uid,omitempty"` // IMAP UID for flag updates
	MessageID   string    `json:"message_id,omitempty"`
	Subject     string    `json:"subject"`
	Sender      string    `json:"sender"`       // Raw From header, e.g. "Jane <jane@example.com>"
	SenderEmail string    `json:"sender_email"` // Address part of Sender
	Body        string    `json:"body"`
	ReceivedAt  time.Time `json:"received_at"`
	Source      Source    `json:"source,omitempty"`
}

var (
	angleAddrPattern   = regexp.MustCompile(`<(.+?)>`)
	displayNamePattern = regexp.MustCompile(`^([^<]+)<`)
)

// HeaderValue returns the first header named name, case-insensitively, or "".
func HeaderValue(headers []body.Header, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// ExtractSenderEmail returns the address inside angle brackets, the whole
// value when it looks like a bare address, or "".
func ExtractSenderEmail(from string) string {
	if m := angleAddrPattern.FindStringSubmatch(from); m != nil {
		return m[1]
	}
	if strings.Contains(from, "@") {
		return from
	}
	return ""
}

// SenderName returns the display name of a From value, or the value itself
// when it has no display name.
func SenderName(from string) string {
	if m := displayNamePattern.FindStringSubmatch(from); m != nil {
		return strings.TrimSpace(m[1])
	}
	return from
}

// FromPayload builds an Email from a message part tree, decoding its body.
func FromPayload(p *body.Part) Email {
	if p == nil {
		return Email{}
	}
	from := HeaderValue(p.Headers, "From")
	return Email{
		MessageID:   HeaderValue(p.Headers, "Message-ID"),
		Subject:     HeaderValue(p.Headers, "Subject"),
		Sender:      from,
		SenderEmail: ExtractSenderEmail(from),
		Body:        body.Decode(p),
	}
}

// FromText builds an Email from already-plain fields. The body is
// normalized the same way a decoded payload would be.
func FromText(subject, from, text string) Email {
	return Email{
		Subject:     subject,
		Sender:      from,
		SenderEmail: ExtractSenderEmail(from),
		Body:        body.Normalize(text),
	}
}

// DisplaySender is the sender name shown to users.
func (e Email) DisplaySender() string {
	if name := SenderName(e.Sender); name != "" {
		return name
	}
	return "Unknown Sender"
}

// DisplayEmail is the sender address shown to users.
func (e Email) DisplayEmail() string {
	if e.SenderEmail != "" {
		return e.SenderEmail
	}
	return "Not available"
}

// DisplaySubject is the subject shown to users.
func (e Email) DisplaySubject() string {
	if e.Subject != "" {
		return e.Subject
	}
	return "No subject"
}
