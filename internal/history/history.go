package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/inboxguard/inboxguard/internal/analysis"
)

type AlertStatus string

const (
	AlertSent   AlertStatus = "sent"
	AlertFailed AlertStatus = "failed"
)

// Entry is one stored analysis
type Entry struct {
	ID          string    `json:"id"`
	MessageID   string    `json:"message_id,omitempty"`
	Source      string    `json:"source,omitempty"`
	Subject     string    `json:"subject"`
	Sender      string    `json:"sender"`
	SenderEmail string    `json:"sender_email"`
	Body        string    `json:"body"`
	Summary     string    `json:"summary"`
	Category    string    `json:"category"`
	Sentiment   string    `json:"sentiment"`
	Score       float64   `json:"score"`
	Urgent      bool      `json:"urgent"`
	ReceivedAt  time.Time `json:"received_at"`
	AnalyzedAt  time.Time `json:"analyzed_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Alert records a delivered (or failed) alert for an analysis
type Alert struct {
	ID         int64
	AnalysisID string
	Provider   string
	Recipient  string
	Status     AlertStatus
	MessageID  string
	Error      string
	SentAt     time.Time
}

type Store struct {
	db *sql.DB
}

// FromReport converts an analysis report into a history entry.
func FromReport(r analysis.Report) *Entry {
	return &Entry{
		MessageID:   r.Email.MessageID,
		Source:      string(r.Email.Source),
		Subject:     r.Email.Subject,
		Sender:      r.Email.Sender,
		SenderEmail: r.Email.SenderEmail,
		Body:        r.Email.Body,
		Summary:     r.Summary,
		Category:    string(r.Category),
		Sentiment:   string(r.Tone.Sentiment),
		Score:       r.Tone.Score,
		Urgent:      r.Tone.Urgent,
		ReceivedAt:  r.Email.ReceivedAt,
		AnalyzedAt:  r.AnalyzedAt,
	}
}

const entryColumns = `id, message_id, source, subject, sender, sender_email, body, summary,
	category, sentiment, score, urgent, received_at, analyzed_at, created_at`

// scanEntry handles nullable columns when scanning a row
func scanEntry(scanner interface{ Scan(...any) error }) (*Entry, error) {
	var e Entry
	var messageID, source, senderEmail, body sql.NullString
	var receivedAt, analyzedAt, createdAt sql.NullTime
	var urgent int

	err := scanner.Scan(&e.ID, &messageID, &source, &e.Subject, &e.Sender, &senderEmail, &body, &e.Summary,
		&e.Category, &e.Sentiment, &e.Score, &urgent, &receivedAt, &analyzedAt, &createdAt)
	if err != nil {
		return nil, err
	}

	e.MessageID = messageID.String
	e.Source = source.String
	e.SenderEmail = senderEmail.String
	e.Body = body.String
	e.Urgent = urgent == 1
	e.ReceivedAt = receivedAt.Time
	e.AnalyzedAt = analyzedAt.Time
	e.CreatedAt = createdAt.Time
	return &e, nil
}

func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// The web server and scanner share one file; a single connection
	// serialises writers.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		message_id TEXT,
		source TEXT,
		subject TEXT NOT NULL,
		sender TEXT NOT NULL,
		sender_email TEXT,
		body TEXT,
		summary TEXT NOT NULL,
		category TEXT NOT NULL,
		sentiment TEXT NOT NULL,
		score REAL NOT NULL DEFAULT 0,
		urgent INTEGER NOT NULL DEFAULT 0,
		received_at DATETIME,
		analyzed_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_message_id ON analyses(message_id);
	CREATE INDEX IF NOT EXISTS idx_category ON analyses(category);
	CREATE INDEX IF NOT EXISTS idx_sentiment ON analyses(sentiment);
	CREATE INDEX IF NOT EXISTS idx_analyzed_at ON analyses(analyzed_at);

	-- Alerts sent for analyses
	CREATE TABLE IF NOT EXISTS alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		analysis_id TEXT NOT NULL,
		provider TEXT NOT NULL,
		recipient TEXT NOT NULL,
		status TEXT NOT NULL,
		message_id TEXT,
		error TEXT,
		sent_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_alert_analysis ON alerts(analysis_id);
	CREATE INDEX IF NOT EXISTS idx_alert_status ON alerts(status);
	`

	_, err := s.db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

// Add stores an entry, assigning an ID when it has none.
func (s *Store) Add(entry *Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.AnalyzedAt.IsZero() {
		entry.AnalyzedAt = time.Now()
	}
	entry.CreatedAt = time.Now().UTC()

	query := `
	INSERT INTO analyses (` + entryColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	urgent := 0
	if entry.Urgent {
		urgent = 1
	}

	var receivedAt any
	if !entry.ReceivedAt.IsZero() {
		receivedAt = entry.ReceivedAt.UTC()
	}

	_, err := s.db.Exec(query,
		entry.ID, entry.MessageID, entry.Source, entry.Subject, entry.Sender, entry.SenderEmail,
		entry.Body, entry.Summary, entry.Category, entry.Sentiment, entry.Score, urgent,
		receivedAt, entry.AnalyzedAt.UTC(), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}
	return nil
}

// AddReport stores a report and returns the new entry.
func (s *Store) AddReport(r analysis.Report) (*Entry, error) {
	entry := FromReport(r)
	if err := s.Add(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Get returns the entry with the given ID, or nil when absent.
func (s *Store) Get(id string) (*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM analyses WHERE id = ?`

	entry, err := scanEntry(s.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis: %w", err)
	}
	return entry, nil
}

// HasMessage reports whether a message ID was already analysed.
func (s *Store) HasMessage(messageID string) (bool, error) {
	if messageID == "" {
		return false, nil
	}
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM analyses WHERE message_id = ?`, messageID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query message: %w", err)
	}
	return count > 0, nil
}

// Recent returns the latest entries, newest first. An empty category
// matches all entries.
func (s *Store) Recent(category string, limit int) ([]Entry, error) {
	var query string
	var args []interface{}

	if category != "" {
		query = `SELECT ` + entryColumns + ` FROM analyses WHERE category = ?
			ORDER BY analyzed_at DESC, rowid DESC LIMIT ?`
		args = []interface{}{category, limit}
	} else {
		query = `SELECT ` + entryColumns + ` FROM analyses
			ORDER BY analyzed_at DESC, rowid DESC LIMIT ?`
		args = []interface{}{limit}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// CategoryStats returns the number of entries per category
func (s *Store) CategoryStats() (map[string]int, error) {
	return s.countBy("category")
}

// SentimentStats returns the number of entries per sentiment
func (s *Store) SentimentStats() (map[string]int, error) {
	return s.countBy("sentiment")
}

// countBy groups on a fixed, trusted column name.
func (s *Store) countBy(column string) (map[string]int, error) {
	rows, err := s.db.Query(`SELECT ` + column + `, COUNT(*) FROM analyses GROUP BY ` + column)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s stats: %w", column, err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("failed to scan %s stat: %w", column, err)
		}
		stats[key] = count
	}
	return stats, rows.Err()
}

// GetStats returns totals across all analyses and alerts
func (s *Store) GetStats() (total, urgent, alertsSent, alertsFailed int, err error) {
	var urgentNull sql.NullInt64
	err = s.db.QueryRow(`SELECT COUNT(*), SUM(urgent) FROM analyses`).Scan(&total, &urgentNull)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("failed to get stats: %w", err)
	}

	var sentNull, failedNull sql.NullInt64
	err = s.db.QueryRow(`SELECT SUM(CASE WHEN status='sent' THEN 1 ELSE 0 END),
		SUM(CASE WHEN status='failed' THEN 1 ELSE 0 END) FROM alerts`).Scan(&sentNull, &failedNull)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("failed to get alert stats: %w", err)
	}
	return total, int(urgentNull.Int64), int(sentNull.Int64), int(failedNull.Int64), nil
}

// AddAlert records an alert delivery attempt
func (s *Store) AddAlert(alert *Alert) error {
	if alert.SentAt.IsZero() {
		alert.SentAt = time.Now()
	}

	query := `
	INSERT INTO alerts (analysis_id, provider, recipient, status, message_id, error, sent_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(query,
		alert.AnalysisID, alert.Provider, alert.Recipient, alert.Status,
		alert.MessageID, alert.Error, alert.SentAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	alert.ID = id
	return nil
}

// AlertsFor returns the alerts recorded for an analysis, oldest first
func (s *Store) AlertsFor(analysisID string) ([]Alert, error) {
	rows, err := s.db.Query(`SELECT id, analysis_id, provider, recipient, status, message_id, error, sent_at
		FROM alerts WHERE analysis_id = ? ORDER BY id`, analysisID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		var a Alert
		var status string
		var messageID, errStr sql.NullString
		var sentAt sql.NullTime
		if err := rows.Scan(&a.ID, &a.AnalysisID, &a.Provider, &a.Recipient, &status, &messageID, &errStr, &sentAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Status = AlertStatus(status)
		a.MessageID = messageID.String
		a.Error = errStr.String
		a.SentAt = sentAt.Time
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// Prune deletes analyses (and their alerts) analysed before cutoff
func (s *Store) Prune(cutoff time.Time) (int64, error) {
	cutoff = cutoff.UTC()
	if _, err := s.db.Exec(`DELETE FROM alerts WHERE analysis_id IN
		(SELECT id FROM analyses WHERE analyzed_at < ?)`, cutoff); err != nil {
		return 0, fmt.Errorf("failed to delete alerts: %w", err)
	}
	result, err := s.db.Exec(`DELETE FROM analyses WHERE analyzed_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete analyses: %w", err)
	}
	return result.RowsAffected()
}

func (s *Store) Close() error { return s.db.Close() }

func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "inboxguard_history.db"
	}
	return filepath.Join(home, ".inboxguard", "history.db")
}
