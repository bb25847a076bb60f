package tone

import (
	"regexp"
	"strings"
)

// Sentiment is the emotional label assigned to a message
type Sentiment string

const (
	Angry        Sentiment = "angry"
	Frustrated   Sentiment = "frustrated"
	Appreciative Sentiment = "appreciative"
	Positive     Sentiment = "positive"
	Negative     Sentiment = "negative"
	Neutral      Sentiment = "neutral"
)

// Bucket names a signal accumulator.
type Bucket string

const (
	BucketPositive     Bucket = "positive"
	BucketNegative     Bucket = "negative"
	BucketAngry        Bucket = "angry"
	BucketFrustrated   Bucket = "frustrated"
	BucketAppreciative Bucket = "appreciative"
)

// Signals holds the accumulated bucket values for one text.
type Signals struct {
	Positive     float64 `json:"positive"`
	Negative     float64 `json:"negative"`
	Angry        float64 `json:"angry"`
	Frustrated   float64 `json:"frustrated"`
	Appreciative float64 `json:"appreciative"`
}

// Total is the sum of all buckets.
func (s Signals) Total() float64 {
	return s.Positive + s.Negative + s.Angry + s.Frustrated + s.Appreciative
}

// PosRatio is the share of positive and appreciative signal.
func (s Signals) PosRatio() float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return (s.Positive + s.Appreciative) / total
}

// NegRatio is the share of negative, angry and frustrated signal.
func (s Signals) NegRatio() float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return (s.Negative + s.Angry + s.Frustrated) / total
}

// Get returns the value of bucket b.
func (s Signals) Get(b Bucket) float64 {
	switch b {
	case BucketPositive:
		return s.Positive
	case BucketNegative:
		return s.Negative
	case BucketAngry:
		return s.Angry
	case BucketFrustrated:
		return s.Frustrated
	case BucketAppreciative:
		return s.Appreciative
	}
	return 0
}

func (s *Signals) ref(b Bucket) *float64 {
	switch b {
	case BucketPositive:
		return &s.Positive
	case BucketNegative:
		return &s.Negative
	case BucketAngry:
		return &s.Angry
	case BucketFrustrated:
		return &s.Frustrated
	case BucketAppreciative:
		return &s.Appreciative
	}
	return nil
}

func (s *Signals) add(b Bucket, delta float64) {
	if v := s.ref(b); v != nil {
		*v += delta
		if *v < 0 {
			*v = 0
		}
	}
}

// Result is the tone verdict for a text.
type Result struct {
	Sentiment Sentiment `json:"sentiment"`
	Score     float64   `json:"score"`
	Summary   string    `json:"summary"`
	Icon      string    `json:"icon"`
	Urgent    bool      `json:"urgent"`
	Signals   Signals   `json:"signals"`
}

// Lexicon is a bucket's term list. A token hits the lexicon when it
// contains any term as a substring; each hit adds Weight to the bucket.
type Lexicon struct {
	Bucket Bucket
	Weight float64
	Terms  []string
}

// lexicons drive the per-token pass.
var lexicons = []Lexicon{
	{BucketPositive, 1, []string{
		"great", "excellent", "amazing", "wonderful", "fantastic", "awesome",
		"happy", "pleased", "delighted", "satisfied", "appreciate", "thanks",
		"thank", "grateful", "love", "perfect", "best", "good", "nice",
		"beautiful", "brilliant", "terrific", "fabulous", "outstanding",
		"superb", "congratulations", "congrats", "well done", "impressive",
		"excited", "thrilled", "looking forward", "helpful", "kind",
	}},
	{BucketNegative, 1, []string{
		"bad", "terrible", "awful", "horrible", "poor", "worst", "hate",
		"disappointing", "disappointed", "unfortunate", "unfortunately",
		"problem", "issue", "error", "fail", "failed", "failure", "wrong",
		"incorrect", "concern", "worried", "sad", "upset", "unhappy",
		"annoyed", "irritated", "trouble", "difficult", "complaint",
		"unsatisfied", "dissatisfied", "regret", "sorry", "apologize",
	}},
	{BucketAngry, 2, []string{
		"angry", "furious", "outraged", "livid", "enraged", "mad", "infuriated",
		"frustrated", "frustrating", "ridiculous", "unacceptable", "disgrace",
		"disgusting", "pathetic", "incompetent", "useless", "stupid", "idiotic",
		"demand", "immediately", "lawyer", "legal action", "sue", "report",
		"escalate", "manager", "supervisor", "complaint", "warning",
	}},
	{BucketFrustrated, 1, []string{
		"frustrated", "frustrating", "confused", "confusing", "stuck",
		"difficulty", "struggling", "complicated", "unclear", "lost",
		"dont understand", "not working", "still waiting", "no response",
		"ignored", "repeatedly", "again and again", "multiple times",
	}},
	{BucketAppreciative, 1.5, []string{
		"appreciate", "appreciated", "appreciation", "grateful", "gratitude",
		"thank you", "thanks", "thanking", "acknowledge", "recognition",
		"valued", "helpful", "assist", "assistance", "support", "supportive",
	}},
}

// urgentTerms flag time pressure independently of the sentiment.
var urgentTerms = []string{
	"urgent", "immediately", "asap", "emergency", "critical", "important",
	"attention required", "action required", "deadline", "time sensitive",
}

// Adjustment is a whole-text phrase rule applied after the token pass.
type Adjustment struct {
	Name    string
	Pattern *regexp.Regexp
	Deltas  []Delta
}

// Delta changes one bucket; results are floored at zero.
type Delta struct {
	Bucket Bucket
	Amount float64
}

// Phrase boosts run first, then negations.
var adjustments = []Adjustment{
	{"gratitude phrase", regexp.MustCompile(`(?i)thank you|thanks so much|really appreciate`),
		[]Delta{{BucketAppreciative, 2}}},
	{"extreme emotion", regexp.MustCompile(`(?i)extremely (angry|frustrated|disappointed)`),
		[]Delta{{BucketAngry, 3}}},
	{"this is unacceptable", regexp.MustCompile(`(?i)this is (ridiculous|unacceptable|pathetic)`),
		[]Delta{{BucketAngry, 3}}},
	{"first person anger", regexp.MustCompile(`(?i)i('m| am) (angry|furious|outraged)`),
		[]Delta{{BucketAngry, 3}}},
	{"negated positive", regexp.MustCompile(`(?i)not (good|great|happy|satisfied|pleased)`),
		[]Delta{{BucketNegative, 2}, {BucketPositive, -2}}},
	{"negated negative", regexp.MustCompile(`(?i)no (problem|issue|concerns)`),
		[]Delta{{BucketPositive, 1}, {BucketNegative, -1}}},
}

type verdict struct {
	summary string
	icon    string
	score   func(Signals) float64
}

var verdicts = map[Sentiment]verdict{
	Angry: {
		"This email expresses strong anger or hostility toward you. The sender appears upset and may be making demands or threats.",
		"😠", func(s Signals) float64 { return s.Angry }},
	Frustrated: {
		"The sender seems frustrated or confused, possibly due to unresolved issues or communication difficulties.",
		"😤", func(s Signals) float64 { return s.Frustrated }},
	Appreciative: {
		"The sender is expressing genuine gratitude and appreciation toward you or your work.",
		"🙏", func(s Signals) float64 { return s.Appreciative }},
	Positive: {
		"This email has a positive and friendly tone. The sender appears satisfied or pleased.",
		"😊", func(s Signals) float64 { return s.Positive }},
	Negative: {
		"This email has a negative tone. The sender may be disappointed, concerned, or reporting issues.",
		"😟", func(s Signals) float64 { return s.Negative }},
	Neutral: {
		"This email has a neutral, professional tone without strong emotional indicators.",
		"😐", func(Signals) float64 { return 0 }},
}

// Decision is one step of the ordered decision list.
type Decision struct {
	Sentiment Sentiment
	Matches   func(Signals) bool
}

// decisions are evaluated in order; the first match wins. Neutral is the
// fallback when none match.
var decisions = []Decision{
	{Angry, func(s Signals) bool {
		return s.Angry >= 3 || (s.Angry >= 2 && s.NegRatio() > 0.6)
	}},
	{Frustrated, func(s Signals) bool {
		return s.Frustrated >= 2 && s.NegRatio() > 0.5
	}},
	{Appreciative, func(s Signals) bool {
		return s.Appreciative >= 2 || (s.Appreciative > s.Positive && s.PosRatio() > 0.5)
	}},
	{Positive, func(s Signals) bool {
		return s.PosRatio() > 0.6
	}},
	{Negative, func(s Signals) bool {
		return s.NegRatio() > 0.6
	}},
}

// Score rates the emotional tone of text.
func Score(text string) Result {
	if text == "" {
		return result(Neutral, Signals{}, false)
	}

	lower := strings.ToLower(text)
	signals := Accumulate(lower)
	urgent := containsAny(lower, urgentTerms)

	if signals.Total() == 0 {
		return result(Neutral, signals, urgent)
	}
	return result(Decide(signals), signals, urgent)
}

// Accumulate runs the token pass and then the phrase adjustments.
func Accumulate(text string) Signals {
	var s Signals
	for _, token := range strings.Fields(strings.ToLower(text)) {
		for _, lex := range lexicons {
			if containsAny(token, lex.Terms) {
				s.add(lex.Bucket, lex.Weight)
			}
		}
	}
	for _, adj := range adjustments {
		if !adj.Pattern.MatchString(text) {
			continue
		}
		for _, d := range adj.Deltas {
			s.add(d.Bucket, d.Amount)
		}
	}
	return s
}

// Decide picks the sentiment for accumulated signals.
func Decide(s Signals) Sentiment {
	if s.Total() == 0 {
		return Neutral
	}
	for _, d := range decisions {
		if d.Matches(s) {
			return d.Sentiment
		}
	}
	return Neutral
}

func result(sentiment Sentiment, s Signals, urgent bool) Result {
	v := verdicts[sentiment]
	return Result{
		Sentiment: sentiment,
		Score:     v.score(s),
		Summary:   v.summary,
		Icon:      v.icon,
		Urgent:    urgent,
		Signals:   s,
	}
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}

// Buckets lists every signal bucket.
func Buckets() []Bucket {
	return []Bucket{BucketPositive, BucketNegative, BucketAngry, BucketFrustrated, BucketAppreciative}
}

// Sentiments lists every sentiment in decision order, ending with Neutral.
func Sentiments() []Sentiment {
	out := make([]Sentiment, 0, len(decisions)+1)
	for _, d := range decisions {
		out = append(out, d.Sentiment)
	}
	return append(out, Neutral)
}

// Icon returns the glyph shown for a sentiment.
func (s Sentiment) Icon() string {
	if v, ok := verdicts[s]; ok {
		return v.icon
	}
	return verdicts[Neutral].icon
}
