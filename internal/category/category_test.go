package category

import (
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		body     string
		expected Category
	}{
		{
			name:     "Account suspended subject",
			subject:  "Your account has been suspended, verify immediately",
			body:     "",
			expected: Phishing,
		},
		{
			name:     "Phishing beats finance",
			subject:  "Payment problem",
			body:     "We noticed suspicious activity on your bank account. Update your payment method.",
			expected: Phishing,
		},
		{
			name:     "Lottery win",
			subject:  "Congratulations!",
			body:     "You've won the national lottery, claim your prize",
			expected: Spam,
		},
		{
			name:     "Spam beats promo",
			subject:  "Free gift inside",
			body:     "Act now, 50% off everything",
			expected: Spam,
		},
		{
			name:     "Invoice",
			subject:  "Invoice #4421",
			body:     "Please find the invoice for March attached.",
			expected: Finance,
		},
		{
			name:     "Finance beats work",
			subject:  "Project budget",
			body:     "The refund for the conference was processed.",
			expected: Finance,
		},
		{
			name:     "Meeting",
			subject:  "Weekly sync",
			body:     "The meeting is moved to Thursday.",
			expected: Work,
		},
		{
			name:     "Social notification",
			subject:  "Alex tagged you in a photo",
			body:     "",
			expected: Social,
		},
		{
			name:     "Percent off promo",
			subject:  "Weekend only",
			body:     "Get 30%  off shoes",
			expected: Promo,
		},
		{
			name:     "Greeting",
			subject:  "Hey",
			body:     "How are you doing these days?",
			expected: Personal,
		},
		{
			name:     "Word boundary for greeting",
			subject:  "Shipment",
			body:     "This thing is here",
			expected: Unknown,
		},
		{
			name:     "Case insensitive",
			subject:  "LOTTERY",
			body:     "",
			expected: Spam,
		},
		{
			name:     "Pattern does not span lines",
			subject:  "",
			body:     "verify\naccount",
			expected: Unknown,
		},
		{
			name:     "Empty input",
			subject:  "",
			body:     "",
			expected: Unknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.subject, tt.body)
			if got != tt.expected {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	subject := "Team meeting and invoice"
	body := "Hello, the bank transfer is done."
	first := Classify(subject, body)
	for i := 0; i < 10; i++ {
		if got := Classify(subject, body); got != first {
			t.Fatalf("got %s on run %d, want %s", got, i, first)
		}
	}
}

func TestRulesOrder(t *testing.T) {
	want := []Category{Phishing, Spam, Finance, Work, Social, Promo, Personal, Unknown}
	got := All()
	if len(got) != len(want) {
		t.Fatalf("got %d categories, want %d", len(got), len(want))
	}
	for i, c := range got {
		if c != want[i] {
			t.Errorf("category %d: got %s, want %s", i, c, want[i])
		}
	}
}

func TestExplain(t *testing.T) {
	tests := []struct {
		name        string
		subject     string
		body        string
		wantCat     Category
		wantPattern string
	}{
		{"phishing", "Notice", "Your account has been suspended", Phishing, "account.*suspended"},
		{"spam", "You won the lottery", "", Spam, "lottery"},
		{"unknown", "status", "ok", Unknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, pattern := Explain(tt.subject, tt.body)
			if c != tt.wantCat {
				t.Errorf("category = %s, want %s", c, tt.wantCat)
			}
			if pattern != tt.wantPattern {
				t.Errorf("pattern = %q, want %q", pattern, tt.wantPattern)
			}
			if got := Classify(tt.subject, tt.body); got != c {
				t.Errorf("Classify = %s, Explain = %s", got, c)
			}
		})
	}
}
