package template

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/inboxguard/inboxguard/internal/analysis"
	"github.com/inboxguard/inboxguard/internal/body"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

const maxSubjectLength = 80

// AlertData contains all data available to the alert template
type AlertData struct {
	// Message
	Subject     string
	Sender      string
	SenderEmail string
	Summary     string

	// Analysis
	Category    string
	Sentiment   string
	Icon        string
	ToneSummary string
	Score       float64
	Urgent      bool
	Reasons     []string

	// Metadata
	Date      string
	ReviewURL string
}

// DigestData contains all data available to the digest template
type DigestData struct {
	Total       int
	NeedsAction int
	Date        string
	Items       []AlertData
}

// Email represents a rendered email ready to send
type Email struct {
	Subject string
	Body    string
}

// Engine handles alert rendering
type Engine struct {
	templates map[string]*template.Template
	now       func() time.Time
}

var funcs = template.FuncMap{"join": strings.Join}

// NewEngine creates a new template engine
func NewEngine() (*Engine, error) {
	e := &Engine{
		templates: make(map[string]*template.Template),
		now:       time.Now,
	}

	templateNames := []string{"alert", "digest"}
	for _, name := range templateNames {
		content, err := embeddedTemplates.ReadFile("templates/" + name + ".tmpl")
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded template %s: %w", name, err)
		}

		tmpl, err := template.New(name).Funcs(funcs).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}

		e.templates[name] = tmpl
	}

	return e, nil
}

func alertData(r analysis.Report, reasons []string, date string) AlertData {
	return AlertData{
		Subject:     r.Email.DisplaySubject(),
		Sender:      r.Email.DisplaySender(),
		SenderEmail: r.Email.DisplayEmail(),
		Summary:     r.Summary,
		Category:    r.Category.Label(),
		Sentiment:   string(r.Tone.Sentiment),
		Icon:        r.Tone.Icon,
		ToneSummary: r.Tone.Summary,
		Score:       r.Tone.Score,
		Urgent:      r.Tone.Urgent,
		Reasons:     reasons,
		Date:        date,
	}
}

// RenderAlert renders the alert for a report. reviewURL is optional.
func (e *Engine) RenderAlert(r analysis.Report, reasons []string, reviewURL string) (*Email, error) {
	data := alertData(r, reasons, e.now().Format("January 2, 2006 15:04"))
	data.ReviewURL = reviewURL

	var buf bytes.Buffer
	if err := e.templates["alert"].Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	return &Email{
		Subject: alertSubject(r),
		Body:    buf.String(),
	}, nil
}

// RenderDigest renders one message covering a batch of reports.
func (e *Engine) RenderDigest(reports []analysis.Report, p analysis.Policy) (*Email, error) {
	date := e.now().Format("January 2, 2006 15:04")
	stats := analysis.Summarize(reports)

	data := DigestData{Total: stats.Total, Date: date}
	for _, r := range reports {
		if !p.ShouldAlert(r) {
			continue
		}
		data.Items = append(data.Items, alertData(r, p.Reasons(r), date))
	}
	data.NeedsAction = len(data.Items)

	var buf bytes.Buffer
	if err := e.templates["digest"].Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	return &Email{
		Subject: fmt.Sprintf("[InboxGuard] %d of %d messages need attention", data.NeedsAction, data.Total),
		Body:    buf.String(),
	}, nil
}

// alertSubject is a single header-safe line.
func alertSubject(r analysis.Report) string {
	subject := body.CollapseSpace(r.Email.DisplaySubject())
	subject = body.Truncate(subject, maxSubjectLength)
	return fmt.Sprintf("[InboxGuard] %s / %s: %s", r.Category.Label(), r.Tone.Sentiment, subject)
}

// AvailableTemplates returns the list of available template names
func (e *Engine) AvailableTemplates() []string {
	templates := make([]string, 0, len(e.templates))
	for name := range e.templates {
		templates = append(templates, name)
	}
	return templates
}
