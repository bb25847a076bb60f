package tone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		wantSentiment Sentiment
		wantScore     float64
	}{
		{
			name:          "Threat of legal action",
			text:          "I am furious, this is unacceptable, I will sue",
			wantSentiment: Angry,
			wantScore:     12,
		},
		{
			name:          "Gratitude",
			text:          "Thank you so much, I really appreciate your help",
			wantSentiment: Appreciative,
			wantScore:     3.5,
		},
		{
			name:          "Confusion",
			text:          "I am still confused and stuck with this setup",
			wantSentiment: Frustrated,
			wantScore:     2,
		},
		{
			name:          "Praise",
			text:          "Great work, the launch was excellent",
			wantSentiment: Positive,
			wantScore:     2,
		},
		{
			name:          "Bad news",
			text:          "Unfortunately the build failed again",
			wantSentiment: Negative,
			wantScore:     2,
		},
		{
			name:          "Negated positive",
			text:          "The demo was not good",
			wantSentiment: Negative,
			wantScore:     2,
		},
		{
			name:          "Negated negative",
			text:          "No problem at all",
			wantSentiment: Positive,
			wantScore:     1,
		},
		{
			name:          "Single demand is angry when negative dominates",
			text:          "I demand a refund",
			wantSentiment: Angry,
			wantScore:     2,
		},
		{
			name:          "Single demand outweighed by praise",
			text:          "I demand this, thanks, great, wonderful job",
			wantSentiment: Positive,
			wantScore:     3,
		},
		{
			name:          "Substring match on assistance",
			text:          "assistance",
			wantSentiment: Appreciative,
			wantScore:     1.5,
		},
		{
			name:          "No signal",
			text:          "The package arrives on Monday.",
			wantSentiment: Neutral,
			wantScore:     0,
		},
		{
			name:          "Whitespace only",
			text:          "   \n\t ",
			wantSentiment: Neutral,
			wantScore:     0,
		},
		{
			name:          "Empty",
			text:          "",
			wantSentiment: Neutral,
			wantScore:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.text)
			assert.Equal(t, tt.wantSentiment, got.Sentiment)
			assert.InDelta(t, tt.wantScore, got.Score, 1e-9)
			assert.NotEmpty(t, got.Summary)
			assert.Equal(t, tt.wantSentiment.Icon(), got.Icon)
		})
	}
}

func TestScoreEmptyIsNeutral(t *testing.T) {
	got := Score("")
	assert.Equal(t, Neutral, got.Sentiment)
	assert.Zero(t, got.Score)
	assert.Equal(t, "😐", got.Icon)
	assert.Equal(t, "This email has a neutral, professional tone without strong emotional indicators.", got.Summary)
}

func TestScoreIsDeterministic(t *testing.T) {
	text := "Thanks for the help, but the error is still not working and I am frustrated."
	first := Score(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Score(text))
	}
}

func TestAccumulate(t *testing.T) {
	s := Accumulate("i am furious, this is unacceptable, i will sue")
	assert.Equal(t, Signals{Angry: 12}, s)

	s = Accumulate("thank you so much, i really appreciate your help")
	assert.Equal(t, Signals{Positive: 2, Appreciative: 3.5}, s)
	assert.Equal(t, 2.0, s.Get(BucketPositive))

	var sum float64
	for _, b := range Buckets() {
		sum += s.Get(b)
	}
	assert.Equal(t, s.Total(), sum)
}

func TestNegationFloorsAtZero(t *testing.T) {
	s := Accumulate("not happy")
	assert.Equal(t, 0.0, s.Positive)
	assert.Equal(t, 2.0, s.Negative)
}

func TestDecidePrecedence(t *testing.T) {
	tests := []struct {
		name     string
		signals  Signals
		expected Sentiment
	}{
		{"angry beats frustrated", Signals{Angry: 4, Frustrated: 5}, Angry},
		{"frustrated beats appreciative", Signals{Frustrated: 3, Appreciative: 2}, Frustrated},
		{"appreciative beats positive", Signals{Appreciative: 2, Positive: 10}, Appreciative},
		{"appreciative over smaller positive", Signals{Appreciative: 1.5, Positive: 1}, Appreciative},
		{"positive ratio", Signals{Positive: 7, Negative: 3}, Positive},
		{"negative ratio", Signals{Positive: 3, Negative: 7}, Negative},
		{"balanced is neutral", Signals{Positive: 1, Negative: 1}, Neutral},
		{"zero is neutral", Signals{}, Neutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.signals); got != tt.expected {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestUrgent(t *testing.T) {
	assert.True(t, Score("Please reply ASAP").Urgent)
	assert.False(t, Score("See you next week").Urgent)
}

func TestSentiments(t *testing.T) {
	assert.Equal(t, []Sentiment{Angry, Frustrated, Appreciative, Positive, Negative, Neutral}, Sentiments())
}
