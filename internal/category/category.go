package category

import (
	"regexp"
	"strings"
)

// Category is the topical label assigned to a message
type Category string

const (
	Phishing Category = "phishing" // Account-compromise or urgency bait
	Spam     Category = "spam"     // Prizes, lotteries, get-rich offers
	Finance  Category = "finance"  // Banking, payments, transactions
	Work     Category = "work"     // Meetings, projects, deadlines
	Social   Category = "social"   // Social network notifications
	Promo    Category = "promo"    // Sales and marketing
	Personal Category = "personal" // Greetings and relational mail
	Unknown  Category = "unknown"  // Nothing matched
)

// Rule pairs a category with the patterns that select it.
type Rule struct {
	Category Category
	Patterns []*regexp.Regexp
}

// Matches reports whether any pattern of the rule matches text.
func (r Rule) Matches(text string) bool {
	return r.match(text) != ""
}

// match returns the first pattern matching text, without its flags.
func (r Rule) match(text string) string {
	for _, p := range r.Patterns {
		if p.MatchString(text) {
			return strings.TrimPrefix(p.String(), "(?i)")
		}
	}
	return ""
}

func patterns(exprs ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+expr))
	}
	return compiled
}

// rules are evaluated in order; the first matching rule wins. Higher-risk
// categories come first so that, for example, phishing beats finance.
var rules = []Rule{
	{Phishing, patterns(
		`verify.*account`,
		`account.*suspended`,
		`click here.*immediately`,
		`urgent.*action.*required`,
		`confirm.*identity`,
		`update.*payment.*method`,
		`suspicious.*activity`,
		`secure.*account`,
		`expires.*today`,
		`reset.*password.*now`,
		`unauthorized.*access`,
		`locked.*account`,
	)},
	{Spam, patterns(
		`you('ve| have) won`,
		`lottery`,
		`claim.*prize`,
		`free.*gift`,
		`congratulations.*selected`,
		`act now`,
		`limited.*offer.*ends`,
		`make money fast`,
		`work from home`,
		`no cost`,
	)},
	{Finance, patterns(
		`bank`,
		`transaction`,
		`payment`,
		`invoice`,
		`receipt`,
		`statement`,
		`balance`,
		`credit card`,
		`debit`,
		`transfer`,
		`paypal`,
		`venmo`,
		`wire`,
		`refund`,
		`charge`,
	)},
	{Work, patterns(
		`meeting`,
		`project`,
		`deadline`,
		`report`,
		`task`,
		`schedule`,
		`team`,
		`conference`,
		`presentation`,
		`review`,
		`proposal`,
		`client`,
		`budget`,
		`milestone`,
		`deliverable`,
	)},
	{Social, patterns(
		`facebook`,
		`twitter`,
		`instagram`,
		`linkedin`,
		`notification`,
		`someone.*commented`,
		`new.*follower`,
		`tagged you`,
		`mentioned you`,
		`friend request`,
		`connection request`,
		`message.*from`,
	)},
	{Promo, patterns(
		`sale`,
		`discount`,
		`\d+%\s*off`,
		`deal`,
		`promotion`,
		`special offer`,
		`limited time`,
		`save`,
		`clearance`,
		`new arrival`,
		`exclusive`,
		`shop now`,
	)},
	{Personal, patterns(
		`\bhi\b`,
		`\bhello\b`,
		`\bhey\b`,
		`dear`,
		`love`,
		`friend`,
		`family`,
		`how are you`,
		`hope you('re| are)`,
	)},
}

// Classify returns the category of a message from its subject and body.
func Classify(subject, body string) Category {
	c, _ := Explain(subject, body)
	return c
}

// Explain is Classify that also returns the pattern that decided the
// category. The pattern is "" for Unknown.
func Explain(subject, body string) (Category, string) {
	text := subject + " " + body
	for _, r := range rules {
		if m := r.match(text); m != "" {
			return r.Category, m
		}
	}
	return Unknown, ""
}

// All lists every category, in priority order, ending with Unknown.
func All() []Category {
	out := make([]Category, 0, len(rules)+1)
	for _, r := range rules {
		out = append(out, r.Category)
	}
	return append(out, Unknown)
}

// Label returns a display label for the category.
func (c Category) Label() string {
	switch c {
	case Phishing:
		return "Phishing"
	case Spam:
		return "Spam"
	case Finance:
		return "Finance"
	case Work:
		return "Work"
	case Social:
		return "Social"
	case Promo:
		return "Promotion"
	case Personal:
		return "Personal"
	default:
		return "Unknown"
	}
}
