package inbox

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/inboxguard/inboxguard/internal/body"
)

// Selectors for an open message in the Gmail web client
const (
	subjectSelector      = "h2.hP"
	senderSelector       = "span[email]"
	senderFallback       = ".gD"
	bodySelector         = "div.a3s.aiL"
	bodyFallbackSelector = `div[dir="ltr"] div`
)

// signaturePattern matches a trailing mobile signature on the last line.
var signaturePattern = regexp.MustCompile(`(?i)Sent from.*$`)

// ParsePage extracts the open message from a Gmail page. It returns
// ErrNoMessage when the page shows no message body.
func ParsePage(r io.Reader) (Email, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Email{}, fmt.Errorf("failed to parse page: %w", err)
	}

	subject := firstText(doc, subjectSelector)
	if subject == "" {
		subject = "No Subject"
	}

	var sender, senderEmail string
	if s := doc.Find(senderSelector).First(); s.Length() > 0 {
		sender = strings.TrimSpace(s.Text())
		senderEmail, _ = s.Attr("email")
	}
	if sender == "" {
		sender = firstText(doc, senderFallback)
	}
	if sender == "" {
		sender = "Unknown Sender"
	}

	text := firstText(doc, bodySelector)
	if text == "" {
		text = firstText(doc, bodyFallbackSelector)
	}
	text = CleanScrapedBody(text)
	if text == "" {
		return Email{}, ErrNoMessage
	}

	return Email{
		Subject:     subject,
		Sender:      sender,
		SenderEmail: senderEmail,
		Body:        text,
		Source:      SourcePage,
	}, nil
}

// CleanScrapedBody drops a trailing "Sent from" signature, collapses
// whitespace and caps the length.
func CleanScrapedBody(text string) string {
	return body.Normalize(signaturePattern.ReplaceAllString(text, ""))
}

func firstText(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().Text())
}
