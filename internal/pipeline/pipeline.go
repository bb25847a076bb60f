// Package pipeline runs fetched emails through analysis, history and alerts.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/inboxguard/inboxguard/internal/analysis"
	"github.com/inboxguard/inboxguard/internal/config"
	"github.com/inboxguard/inboxguard/internal/email"
	"github.com/inboxguard/inboxguard/internal/history"
	"github.com/inboxguard/inboxguard/internal/inbox"
	"github.com/inboxguard/inboxguard/internal/template"
)

// Outcome is what happened to one email
type Outcome struct {
	Report    analysis.Report `json:"report"`
	EntryID   string          `json:"entry_id,omitempty"`
	Alerted   bool            `json:"alerted"`
	AlertErr  string          `json:"alert_error,omitempty"`
	Duplicate bool            `json:"duplicate,omitempty"` // already in history, not re-analysed
}

// Alerts holds everything needed to deliver alerts
type Alerts struct {
	Sender    email.Sender
	Engine    *template.Engine
	From      string
	To        string
	Policy    analysis.Policy
	ReviewURL string
	Digest    bool // send one digest per Process call
}

// AlertsFromConfig builds alert delivery from configuration. It returns
// nil when alerts are disabled.
func AlertsFromConfig(cfg config.AlertConfig, reviewURL string) (*Alerts, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	sender, err := email.NewSender(cfg)
	if err != nil {
		return nil, err
	}
	engine, err := template.NewEngine()
	if err != nil {
		return nil, err
	}
	return &Alerts{
		Sender:    sender,
		Engine:    engine,
		From:      cfg.From,
		To:        cfg.To,
		Policy:    analysis.PolicyFromConfig(cfg),
		ReviewURL: reviewURL,
		Digest:    cfg.Digest,
	}, nil
}

type Processor struct {
	analyzer *analysis.Analyzer
	store    *history.Store
	alerts   *Alerts
	skipSeen bool
	log      *zap.Logger
}

type Option func(*Processor)

// WithStore records every report in the history store.
func WithStore(store *history.Store) Option {
	return func(p *Processor) { p.store = store }
}

// WithAlerts sends an alert for each report matching the policy.
func WithAlerts(a *Alerts) Option {
	return func(p *Processor) { p.alerts = a }
}

// SkipSeen drops emails whose Message-ID is already in the store.
func SkipSeen(skip bool) Option {
	return func(p *Processor) { p.skipSeen = skip }
}

func WithLogger(log *zap.Logger) Option {
	return func(p *Processor) {
		if log != nil {
			p.log = log
		}
	}
}

func New(analyzer *analysis.Analyzer, opts ...Option) *Processor {
	p := &Processor{
		analyzer: analyzer,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.Named("pipeline")
	return p
}

// Process analyses emails and then stores and alerts on each report in
// input order. progress, if set, is called after each email. In digest
// mode the alert for all flagged reports is sent after the last progress
// call.
func (p *Processor) Process(ctx context.Context, emails []inbox.Email, progress func(done int, o Outcome)) ([]Outcome, error) {
	fresh, outcomes, err := p.partition(emails)
	if err != nil {
		return nil, err
	}

	reports, err := p.analyzer.AnalyzeAll(ctx, fresh)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	ri := 0
	for i := range outcomes {
		if outcomes[i].Duplicate {
			if progress != nil {
				progress(i+1, outcomes[i])
			}
			continue
		}
		if err := ctx.Err(); err != nil {
			return outcomes[:i], err
		}

		outcomes[i].Report = reports[ri]
		ri++
		p.handle(ctx, &outcomes[i])
		if progress != nil {
			progress(i+1, outcomes[i])
		}
	}

	if p.alerts != nil && p.alerts.Digest {
		p.sendDigest(ctx, outcomes)
	}
	return outcomes, nil
}

// partition splits emails into those needing analysis and placeholders
// for every input position.
func (p *Processor) partition(emails []inbox.Email) ([]inbox.Email, []Outcome, error) {
	outcomes := make([]Outcome, len(emails))
	fresh := make([]inbox.Email, 0, len(emails))
	for i, e := range emails {
		if p.skipSeen && p.store != nil {
			seen, err := p.store.HasMessage(e.MessageID)
			if err != nil {
				return nil, nil, err
			}
			if seen {
				p.log.Debug("skipping analysed message", zap.String("message_id", e.MessageID))
				outcomes[i] = Outcome{Report: analysis.Report{Email: e}, Duplicate: true}
				continue
			}
		}
		fresh = append(fresh, e)
	}
	return fresh, outcomes, nil
}

func (p *Processor) handle(ctx context.Context, o *Outcome) {
	if p.store != nil {
		entry, err := p.store.AddReport(o.Report)
		if err != nil {
			p.log.Error("failed to store analysis", zap.Error(err))
		} else {
			o.EntryID = entry.ID
		}
	}

	if p.alerts == nil || p.alerts.Digest || !p.alerts.Policy.ShouldAlert(o.Report) {
		return
	}

	p.recordAlert(o, p.sendAlert(ctx, o.Report))
}

// sendDigest sends one message covering every fresh report and records it
// against each flagged one.
func (p *Processor) sendDigest(ctx context.Context, outcomes []Outcome) {
	var reports []analysis.Report
	var flagged []*Outcome
	for i := range outcomes {
		if outcomes[i].Duplicate {
			continue
		}
		reports = append(reports, outcomes[i].Report)
		if p.alerts.Policy.ShouldAlert(outcomes[i].Report) {
			flagged = append(flagged, &outcomes[i])
		}
	}
	if len(flagged) == 0 {
		return
	}

	var result email.Result
	rendered, err := p.alerts.Engine.RenderDigest(reports, p.alerts.Policy)
	if err != nil {
		result = email.Result{Error: err}
	} else {
		result = p.alerts.Sender.Send(ctx, email.Message{
			From:    p.alerts.From,
			To:      p.alerts.To,
			Subject: rendered.Subject,
			Body:    rendered.Body,
		})
	}
	for _, o := range flagged {
		p.recordAlert(o, result)
	}
}

func (p *Processor) recordAlert(o *Outcome, result email.Result) {
	o.Alerted = result.Success
	if result.Error != nil {
		o.AlertErr = result.Error.Error()
		p.log.Warn("alert failed", zap.String("subject", o.Report.Email.Subject), zap.Error(result.Error))
	} else {
		p.log.Info("alert sent",
			zap.String("subject", o.Report.Email.Subject),
			zap.String("provider", p.alerts.Sender.Name()),
			zap.String("message_id", result.MessageID),
		)
	}

	if p.store != nil && o.EntryID != "" {
		status := history.AlertSent
		if !result.Success {
			status = history.AlertFailed
		}
		err := p.store.AddAlert(&history.Alert{
			AnalysisID: o.EntryID,
			Provider:   p.alerts.Sender.Name(),
			Recipient:  p.alerts.To,
			Status:     status,
			MessageID:  result.MessageID,
			Error:      o.AlertErr,
		})
		if err != nil {
			p.log.Error("failed to record alert", zap.Error(err))
		}
	}
}

func (p *Processor) sendAlert(ctx context.Context, r analysis.Report) email.Result {
	rendered, err := p.alerts.Engine.RenderAlert(r, p.alerts.Policy.Reasons(r), p.alerts.ReviewURL)
	if err != nil {
		return email.Result{Error: err}
	}
	return p.alerts.Sender.Send(ctx, email.Message{
		From:    p.alerts.From,
		To:      p.alerts.To,
		Subject: rendered.Subject,
		Body:    rendered.Body,
	})
}

// Flagged returns the outcomes whose report matches policy.
func Flagged(outcomes []Outcome, policy analysis.Policy) []Outcome {
	var flagged []Outcome
	for _, o := range outcomes {
		if !o.Duplicate && policy.ShouldAlert(o.Report) {
			flagged = append(flagged, o)
		}
	}
	return flagged
}
