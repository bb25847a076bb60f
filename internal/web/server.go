package web

import (
	"context"
	"crypto/rand"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"mime"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"github.com/inboxguard/inboxguard/internal/analysis"
	"github.com/inboxguard/inboxguard/internal/body"
	"github.com/inboxguard/inboxguard/internal/config"
	"github.com/inboxguard/inboxguard/internal/history"
	"github.com/inboxguard/inboxguard/internal/inbox"
	"github.com/inboxguard/inboxguard/internal/pipeline"
)

//go:embed static/*
var staticFS embed.FS

//go:embed templates/*
var templatesFS embed.FS

const (
	defaultRateLimit  = 30
	defaultRateWindow = time.Minute
	maxRequestBytes   = 1 << 20
	maxHistoryLimit   = 500
	scanTimeout       = 2 * time.Minute
	jobRetention      = time.Hour
)

type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	done     chan struct{}
	once     sync.Once
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		done:     make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) filterRecent(times []time.Time, windowStart time.Time) []time.Time {
	n := 0
	for _, t := range times {
		if t.After(windowStart) {
			times[n] = t
			n++
		}
	}
	return times[:n]
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	recent := rl.filterRecent(rl.requests[key], now.Add(-rl.window))

	if len(recent) >= rl.limit {
		rl.requests[key] = recent
		return false
	}
	rl.requests[key] = append(recent, now)
	return true
}

// Stop ends the cleanup loop
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
		}

		rl.mu.Lock()
		windowStart := time.Now().Add(-rl.window)
		for key, times := range rl.requests {
			recent := rl.filterRecent(times, windowStart)
			if len(recent) == 0 {
				delete(rl.requests, key)
			} else {
				rl.requests[key] = recent
			}
		}
		rl.mu.Unlock()
	}
}

// Fetcher retrieves unread mail; inbox.Monitor is the production one.
type Fetcher interface {
	Connect(ctx context.Context) error
	Disconnect() error
	FetchUnread(ctx context.Context, limit int) ([]inbox.Email, error)
}

type Server struct {
	config       *config.Config
	analyzer     *analysis.Analyzer
	processor    *pipeline.Processor
	historyStore *history.Store
	templates    map[string]*template.Template
	httpServer   *http.Server
	log          *zap.Logger
	csrfKey      []byte
	rateLimiter  *RateLimiter
	jobManager   *JobManager
	newFetcher   func() Fetcher
}

type Option func(*Server)

// WithHistory stores API and form analyses and serves the history routes.
func WithHistory(store *history.Store) Option {
	return func(s *Server) { s.historyStore = store }
}

// WithProcessor sets the pipeline used by inbox scan jobs.
func WithProcessor(p *pipeline.Processor) Option {
	return func(s *Server) { s.processor = p }
}

// WithFetcher overrides how scan jobs reach the mailbox.
func WithFetcher(newFetcher func() Fetcher) Option {
	return func(s *Server) { s.newFetcher = newFetcher }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

func WithRateLimit(limit int, window time.Duration) Option {
	return func(s *Server) { s.rateLimiter = NewRateLimiter(limit, window) }
}

func NewServer(cfg *config.Config, analyzer *analysis.Analyzer, opts ...Option) (*Server, error) {
	csrfKey := make([]byte, 32)
	if _, err := rand.Read(csrfKey); err != nil {
		return nil, fmt.Errorf("failed to generate CSRF key: %w", err)
	}
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Server{
		config:     cfg,
		analyzer:   analyzer,
		log:        zap.NewNop(),
		csrfKey:    csrfKey,
		jobManager: NewJobManager(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("web")

	if s.rateLimiter == nil {
		s.rateLimiter = NewRateLimiter(defaultRateLimit, defaultRateWindow)
	}
	if s.processor == nil {
		s.processor = pipeline.New(analyzer, pipeline.WithStore(s.historyStore), pipeline.WithLogger(s.log))
	}
	if s.newFetcher == nil {
		s.newFetcher = func() Fetcher { return inbox.NewMonitor(s.config.Inbox, s.log) }
	}

	tmpl, err := s.parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	s.templates = tmpl
	return s, nil
}

// parseTemplates loads and parses all HTML templates
// Each page gets its own template set to avoid "content" block conflicts
func (s *Server) parseTemplates() (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.Local().Format("Jan 2, 2006 3:04 PM")
		},
		"add": func(a, b int) int {
			return a + b
		},
		"score": func(f float64) string {
			return strconv.FormatFloat(f, 'f', 1, 64)
		},
	}

	layoutContent, err := templatesFS.ReadFile("templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("failed to read layout template: %w", err)
	}

	var partials []string
	err = fs.WalkDir(templatesFS, "templates/partials", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".html") {
			return err
		}
		content, err := templatesFS.ReadFile(path)
		if err != nil {
			return err
		}
		partials = append(partials, string(content))
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read partials: %w", err)
	}

	templates := make(map[string]*template.Template)

	err = fs.WalkDir(templatesFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		// Skip directories, partials, and layout
		if d.IsDir() || strings.Contains(path, "/partials/") || path == "templates/layout.html" {
			return nil
		}
		if !strings.HasSuffix(path, ".html") {
			return nil
		}

		content, err := templatesFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", path, err)
		}

		name := path[len("templates/"):]
		pageTmpl := template.New(name).Funcs(funcs)

		if _, err := pageTmpl.Parse(string(layoutContent)); err != nil {
			return fmt.Errorf("failed to parse layout for %s: %w", name, err)
		}
		for _, partial := range partials {
			if _, err := pageTmpl.Parse(partial); err != nil {
				return fmt.Errorf("failed to parse partial for %s: %w", name, err)
			}
		}
		if _, err := pageTmpl.Parse(string(content)); err != nil {
			return fmt.Errorf("failed to parse template %s: %w", name, err)
		}

		templates[name] = pageTmpl
		return nil
	})
	if err != nil {
		return nil, err
	}

	return templates, nil
}

// Start starts the web server and optionally opens the browser. It
// returns when ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context, open bool) error {
	addr := net.JoinHostPort(s.config.Server.Host, strconv.Itoa(s.config.Server.Port))
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	url := "http://" + addr
	if open {
		go func() {
			time.Sleep(500 * time.Millisecond)
			openBrowser(url)
		}()
	}

	fmt.Printf("Starting InboxGuard web UI at %s\n", url)
	fmt.Println("Press Ctrl+C to stop")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Stop()
	if active := s.jobManager.GetActive(); active != nil {
		active.Cancel()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the router with all routes mounted
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// setupRouter configures all routes
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(securityHeaders)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})

	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// HTML pages - CSRF protected
	r.Group(func(r chi.Router) {
		r.Use(plaintextHTTP)
		r.Use(csrf.Protect(
			s.csrfKey,
			csrf.Secure(false), // Allow HTTP for localhost
			csrf.Path("/"),
			csrf.HttpOnly(true),
			csrf.SameSite(csrf.SameSiteLaxMode),
			csrf.TrustedOrigins(s.trustedOrigins()),
			csrf.ErrorHandler(http.HandlerFunc(s.handleCSRFError)),
		))

		r.Get("/", s.handleIndex)
		r.Post("/analyze", s.handleAnalyzeForm)
		r.Get("/history", s.handleHistory)
	})

	// JSON API - rate limited
	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Use(requireJSON)

		r.Post("/analyze", s.handleAPIAnalyze)
		r.Get("/history", s.handleAPIHistory)
		r.Get("/stats", s.handleAPIStats)
		r.Post("/scan", s.handleAPIScan)
		r.Get("/job/active", s.handleAPIJobActive)
		r.Get("/job/{jobID}", s.handleAPIJobStatus)
		r.Post("/job/{jobID}/cancel", s.handleAPIJobCancel)
	})

	return r
}

func (s *Server) trustedOrigins() []string {
	port := strconv.Itoa(s.config.Server.Port)
	return []string{"localhost", "127.0.0.1", "localhost:" + port, "127.0.0.1:" + port}
}

// plaintextHTTP tells the CSRF middleware the request arrived over plain
// HTTP so that its Referer check does not demand HTTPS.
func plaintextHTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil {
			r = csrf.PlaintextHTTPRequest(r)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// rateLimit limits API requests per client IP
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.Allow(clientIP(r)) {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded, please wait a moment"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireJSON rejects POSTs that a cross-site HTML form could send.
func requireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mediaType != "application/json" {
				writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": "Content-Type must be application/json"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// securityHeaders adds security headers to all responses
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		csp := "default-src 'self'; " +
			"script-src 'self'; " +
			"style-src 'self'; " +
			"img-src 'self' data:; " +
			"connect-src 'self'; " +
			"frame-ancestors 'none'; " +
			"form-action 'self'; " +
			"base-uri 'self'"
		w.Header().Set("Content-Security-Policy", csp)

		// Message bodies are sensitive; never cache them
		if !strings.HasPrefix(r.URL.Path, "/static/") {
			w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
			w.Header().Set("Pragma", "no-cache")
			w.Header().Set("Expires", "0")
		}

		w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), payment=()")

		next.ServeHTTP(w, r)
	})
}

// openBrowser opens the default browser to the specified URL
func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		return
	}

	exec.Command(cmd, args...).Start()
}

// Handler implementations

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"Title":  "Analyze",
		"Recent": s.recentHistory("", 10),
		"Stats":  s.stats(),
	}
	s.renderWithCSRF(w, r, "index.html", data)
}

func (s *Server) handleAnalyzeForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	e := inbox.FromText(
		strings.TrimSpace(r.FormValue("subject")),
		strings.TrimSpace(r.FormValue("from")),
		r.FormValue("text"),
	)
	e.Source = inbox.SourceAPI
	report := s.analyzer.Analyze(e)
	entryID := s.store(report)

	policy := analysis.DefaultPolicy()
	if s.config.Alert.Enabled {
		policy = analysis.PolicyFromConfig(s.config.Alert)
	}

	s.renderWithCSRF(w, r, "report.html", map[string]interface{}{
		"Title":   "Report",
		"Report":  report,
		"EntryID": entryID,
		"Reasons": policy.Reasons(report),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	cat := r.URL.Query().Get("category")
	s.renderWithCSRF(w, r, "history.html", map[string]interface{}{
		"Title":    "History",
		"Category": cat,
		"Entries":  s.recentHistory(cat, 100),
		"Stats":    s.stats(),
	})
}

func (s *Server) handleCSRFError(w http.ResponseWriter, r *http.Request) {
	s.log.Warn("csrf check failed", zap.String("path", r.URL.Path), zap.Error(csrf.FailureReason(r)))
	http.Error(w, "Forbidden - invalid or missing CSRF token", http.StatusForbidden)
}

// API handlers

// analyzeRequest accepts either plain fields or a raw message part tree
type analyzeRequest struct {
	Subject string     `json:"subject"`
	From    string     `json:"from"`
	Text    string     `json:"text"`
	Payload *body.Part `json:"payload"`
}

type analyzeResponse struct {
	analysis.Report
	EntryID string `json:"entry_id,omitempty"`
}

func (s *Server) handleAPIAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	var e inbox.Email
	switch {
	case req.Payload != nil:
		e = inbox.FromPayload(req.Payload)
		if e.Subject == "" {
			e.Subject = req.Subject
		}
		if e.Sender == "" && req.From != "" {
			e.Sender = req.From
			e.SenderEmail = inbox.ExtractSenderEmail(req.From)
		}
	case req.Subject != "" || req.Text != "":
		e = inbox.FromText(req.Subject, req.From, req.Text)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": inbox.ErrNoMessage.Error() + ": text or payload is required"})
		return
	}
	e.Source = inbox.SourceAPI

	report := s.analyzer.Analyze(e)
	writeJSON(w, http.StatusOK, analyzeResponse{Report: report, EntryID: s.store(report)})
}

func (s *Server) handleAPIHistory(w http.ResponseWriter, r *http.Request) {
	if s.historyStore == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "history is disabled"})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	entries, err := s.historyStore.Recent(r.URL.Query().Get("category"), limit)
	if err != nil {
		s.log.Error("failed to read history", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read history"})
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	if s.historyStore == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "history is disabled"})
		return
	}
	writeJSON(w, http.StatusOK, s.stats())
}

func (s *Server) handleAPIScan(w http.ResponseWriter, r *http.Request) {
	if !s.config.Inbox.Enabled {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "inbox monitoring not configured"})
		return
	}
	if active := s.jobManager.GetActive(); active != nil {
		writeJSON(w, http.StatusConflict, map[string]interface{}{"error": "a scan is already running", "job": active.ToJSON()})
		return
	}

	s.jobManager.Cleanup(jobRetention)
	job := s.jobManager.Create()
	go s.runScan(job)

	writeJSON(w, http.StatusAccepted, job.ToJSON())
}

// runScan fetches unread mail and runs it through the pipeline
func (s *Server) runScan(job *Job) {
	ctx, cancel := context.WithTimeout(job.Context(), scanTimeout)
	defer cancel()

	fetcher := s.newFetcher()
	if err := fetcher.Connect(ctx); err != nil {
		job.StopWithError(fmt.Sprintf("failed to connect to inbox: %v", err))
		return
	}
	defer fetcher.Disconnect()

	emails, err := fetcher.FetchUnread(ctx, s.config.Inbox.Limit)
	if errors.Is(err, inbox.ErrNoMessage) {
		job.Complete()
		return
	}
	if err != nil {
		job.StopWithError(fmt.Sprintf("failed to fetch emails: %v", err))
		return
	}
	job.SetTotal(len(emails))

	policy := analysis.DefaultPolicy()
	if s.config.Alert.Enabled {
		policy = analysis.PolicyFromConfig(s.config.Alert)
	}

	outcomes, err := s.processor.Process(ctx, emails, func(done int, o pipeline.Outcome) {
		job.Update(done, !o.Duplicate && policy.ShouldAlert(o.Report), o.AlertErr != "", o.Report.Email.Subject)
	})
	if err != nil {
		if job.IsCancelled() {
			return
		}
		job.StopWithError(err.Error())
		return
	}
	failed := 0
	for _, o := range outcomes {
		if o.AlertErr != "" {
			failed++
		}
	}
	job.SetAlertFailed(failed)
	job.Complete()
	s.log.Info("scan finished", zap.String("job", job.ID), zap.Int("emails", len(emails)))
}

func (s *Server) handleAPIJobActive(w http.ResponseWriter, r *http.Request) {
	job := s.jobManager.GetActive()
	if job == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"job": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"job": job.ToJSON()})
}

// handleAPIJobStatus returns the status of a specific job
func (s *Server) handleAPIJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.jobManager.Get(chi.URLParam(r, "jobID"))
	if job == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	writeJSON(w, http.StatusOK, job.ToJSON())
}

// handleAPIJobCancel cancels a running job
func (s *Server) handleAPIJobCancel(w http.ResponseWriter, r *http.Request) {
	job := s.jobManager.Get(chi.URLParam(r, "jobID"))
	if job == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	job.Cancel()
	writeJSON(w, http.StatusOK, map[string]string{"status": string(JobStatusCancelled)})
}

// Helpers

// StatsView is the aggregate shown on pages and returned by /api/stats
type StatsView struct {
	Total        int            `json:"total"`
	Urgent       int            `json:"urgent"`
	AlertsSent   int            `json:"alerts_sent"`
	AlertsFailed int            `json:"alerts_failed"`
	Categories   map[string]int `json:"categories"`
	Sentiments   map[string]int `json:"sentiments"`
}

func (s *Server) stats() StatsView {
	view := StatsView{Categories: map[string]int{}, Sentiments: map[string]int{}}
	if s.historyStore == nil {
		return view
	}

	var err error
	view.Total, view.Urgent, view.AlertsSent, view.AlertsFailed, err = s.historyStore.GetStats()
	if err != nil {
		s.log.Error("failed to read stats", zap.Error(err))
	}
	if c, err := s.historyStore.CategoryStats(); err == nil {
		view.Categories = c
	}
	if st, err := s.historyStore.SentimentStats(); err == nil {
		view.Sentiments = st
	}
	return view
}

func (s *Server) recentHistory(category string, limit int) []history.Entry {
	if s.historyStore == nil {
		return nil
	}
	entries, err := s.historyStore.Recent(category, limit)
	if err != nil {
		s.log.Error("failed to read history", zap.Error(err))
		return nil
	}
	return entries
}

// store records a report and returns its entry ID, or "" without history.
func (s *Server) store(report analysis.Report) string {
	if s.historyStore == nil {
		return ""
	}
	entry, err := s.historyStore.AddReport(report)
	if err != nil {
		s.log.Error("failed to store analysis", zap.Error(err))
		return ""
	}
	return entry.ID
}

func (s *Server) renderWithCSRF(w http.ResponseWriter, r *http.Request, name string, data map[string]interface{}) {
	data["CSRFField"] = csrf.TemplateField(r)

	tmpl, ok := s.templates[name]
	if !ok {
		http.Error(w, "Template not found: "+name, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		s.log.Error("template error", zap.String("template", name), zap.Error(err))
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
