package analysis

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inboxguard/inboxguard/internal/body"
	"github.com/inboxguard/inboxguard/internal/category"
	"github.com/inboxguard/inboxguard/internal/inbox"
	"github.com/inboxguard/inboxguard/internal/summary"
	"github.com/inboxguard/inboxguard/internal/tone"
)

const defaultWorkers = 4

// Report is the combined result for one email. Its parts are independent
// values computed from the same body text.
type Report struct {
	Email      inbox.Email       `json:"email"`
	Category   category.Category `json:"category"`
	Tone       tone.Result       `json:"tone"`
	Summary    string            `json:"summary"`
	AnalyzedAt time.Time         `json:"analyzed_at"`
}

// Analyzer runs the classification pipeline over emails
type Analyzer struct {
	workers int
	log     *zap.Logger
	now     func() time.Time
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithWorkers bounds the number of concurrent analyses in AnalyzeAll.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(a *Analyzer) {
		if log != nil {
			a.log = log
		}
	}
}

// New creates an Analyzer
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		workers: defaultWorkers,
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze classifies, scores and summarizes one email. The body is
// normalized first so every stage sees the same bounded text.
func (a *Analyzer) Analyze(e inbox.Email) Report {
	e.Body = body.Normalize(e.Body)

	report := Report{
		Email:      e,
		Category:   category.Classify(e.Subject, e.Body),
		Tone:       tone.Score(e.Body),
		Summary:    summary.Summarize(e.Body),
		AnalyzedAt: a.now(),
	}

	a.log.Debug("email analyzed",
		zap.String("subject", e.Subject),
		zap.String("category", string(report.Category)),
		zap.String("sentiment", string(report.Tone.Sentiment)),
		zap.Float64("score", report.Tone.Score),
	)
	return report
}

// AnalyzePayload decodes a raw part tree and analyzes the result.
func (a *Analyzer) AnalyzePayload(p *body.Part) Report {
	return a.Analyze(inbox.FromPayload(p))
}

// AnalyzeAll analyzes emails concurrently. Reports keep the input order.
func (a *Analyzer) AnalyzeAll(ctx context.Context, emails []inbox.Email) ([]Report, error) {
	reports := make([]Report, len(emails))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i := range emails {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reports[i] = a.Analyze(emails[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	a.log.Info("batch analyzed", zap.Int("count", len(reports)))
	return reports, nil
}

// Stats counts reports by category and sentiment
type Stats struct {
	Total       int                       `json:"total"`
	Categories  map[category.Category]int `json:"categories"`
	Sentiments  map[tone.Sentiment]int    `json:"sentiments"`
	Urgent      int                       `json:"urgent"`
	NeedsAction int                       `json:"needs_action"` // phishing, spam or angry
}

// Summarize returns counts for a set of reports
func Summarize(reports []Report) Stats {
	stats := Stats{
		Total:      len(reports),
		Categories: make(map[category.Category]int),
		Sentiments: make(map[tone.Sentiment]int),
	}

	for _, r := range reports {
		stats.Categories[r.Category]++
		stats.Sentiments[r.Tone.Sentiment]++
		if r.Tone.Urgent {
			stats.Urgent++
		}
		if DefaultPolicy().ShouldAlert(r) {
			stats.NeedsAction++
		}
	}

	return stats
}

// FilterByCategory returns reports with the given category
func FilterByCategory(reports []Report, c category.Category) []Report {
	var filtered []Report
	for _, r := range reports {
		if r.Category == c {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// SortByRisk orders reports with alert-worthy ones first, keeping the
// relative order otherwise.
func SortByRisk(reports []Report, p Policy) {
	sort.SliceStable(reports, func(i, j int) bool {
		return p.ShouldAlert(reports[i]) && !p.ShouldAlert(reports[j])
	})
}
