package browser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// GateType names a page that stands between the browser and the message
type GateType string

const (
	GateNone    GateType = ""
	GateSignIn  GateType = "signin"
	GateCaptcha GateType = "captcha"
	GateConsent GateType = "consent"
)

// Gate describes what was found on a captured page
type Gate struct {
	Type     GateType
	Selector string // element that identified the gate
}

// Blocking reports whether the page hides the message.
func (g Gate) Blocking() bool { return g.Type != GateNone }

// Description returns a human-readable description
func (g Gate) Description() string {
	switch g.Type {
	case GateSignIn:
		return "sign-in required - log in to the mailbox in this browser first"
	case GateCaptcha:
		return "CAPTCHA shown - solve it in the browser window"
	case GateConsent:
		return "consent screen shown - accept it in the browser window"
	case GateNone:
		return "no gate detected"
	}
	return "unknown gate"
}

// openMessageSelector matches the body of an open message, the same element
// the page scraper reads.
const openMessageSelector = "div.a3s.aiL"

// gateRule matches a visible element, optionally requiring its text to
// contain a phrase.
type gateRule struct {
	gate     GateType
	selector string
	text     string
}

var gateRules = []gateRule{
	{gate: GateSignIn, selector: "input#identifierId"},
	{gate: GateSignIn, selector: `form[action*="ServiceLogin"]`},
	{gate: GateSignIn, selector: `form[action*="accounts.google.com"] input[type="password"]`},
	{gate: GateSignIn, selector: `form input[type="password"]`},
	{gate: GateCaptcha, selector: ".g-recaptcha"},
	{gate: GateCaptcha, selector: `iframe[src*="recaptcha"]`},
	{gate: GateCaptcha, selector: ".h-captcha"},
	{gate: GateCaptcha, selector: `iframe[src*="hcaptcha"]`},
	{gate: GateCaptcha, selector: ".cf-turnstile"},
	{gate: GateCaptcha, selector: `iframe[src*="challenges.cloudflare.com"]`},
	{gate: GateCaptcha, selector: "#challenge-form"},
	{gate: GateConsent, selector: `form[action*="consent.google.com"]`},
	{gate: GateConsent, selector: "h1", text: "before you continue to google"},
}

// DetectGate checks captured HTML for sign-in, CAPTCHA and consent pages.
// A page with an open message body is never gated, and hidden elements
// never count as a gate.
func DetectGate(html string) Gate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Gate{}
	}
	return detectGate(doc)
}

func detectGate(doc *goquery.Document) Gate {
	if doc.Find(openMessageSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.TrimSpace(s.Text()) != ""
	}).Length() > 0 {
		return Gate{}
	}

	for _, rule := range gateRules {
		found := doc.Find(rule.selector).FilterFunction(func(_ int, s *goquery.Selection) bool {
			if !visible(s) {
				return false
			}
			return rule.text == "" || strings.Contains(strings.ToLower(s.Text()), rule.text)
		})
		if found.Length() > 0 {
			return Gate{Type: rule.gate, Selector: rule.selector}
		}
	}
	return Gate{}
}

// visible reports whether neither the element nor an ancestor is hidden.
func visible(s *goquery.Selection) bool {
	for n := s; n.Length() > 0; n = n.Parent() {
		if hidden(n) {
			return false
		}
	}
	return true
}

func hidden(s *goquery.Selection) bool {
	if _, ok := s.Attr("hidden"); ok {
		return true
	}
	if v, _ := s.Attr("aria-hidden"); v == "true" {
		return true
	}
	if v, _ := s.Attr("type"); strings.EqualFold(v, "hidden") {
		return true
	}
	style, _ := s.Attr("style")
	style = strings.ReplaceAll(strings.ToLower(style), " ", "")
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}
