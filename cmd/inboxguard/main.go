package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inboxguard/inboxguard/internal/analysis"
	"github.com/inboxguard/inboxguard/internal/browser"
	"github.com/inboxguard/inboxguard/internal/category"
	"github.com/inboxguard/inboxguard/internal/config"
	"github.com/inboxguard/inboxguard/internal/history"
	"github.com/inboxguard/inboxguard/internal/inbox"
	"github.com/inboxguard/inboxguard/internal/logger"
	"github.com/inboxguard/inboxguard/internal/pipeline"
	"github.com/inboxguard/inboxguard/internal/tone"
	"github.com/inboxguard/inboxguard/internal/web"
)

var (
	cfgFile string
	verbose bool
)

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// loadConfig reads the config file, falling back to defaults when none
// exists so that offline analysis works without setup.
func loadConfig() (*config.Config, error) {
	path := resolveConfigPath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && cfgFile == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setup loads configuration and builds the logger shared by all commands
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}

func openHistory(cfg *config.Config) (*history.Store, error) {
	if cfg.History.Disabled {
		return nil, nil
	}
	path := cfg.History.Path
	if path == "" {
		path = history.DefaultDBPath()
	}
	store, err := history.NewStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return store, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "inboxguard",
		Short: "InboxGuard - Email category, tone and summary analysis",
		Long: `InboxGuard classifies emails (phishing, spam, finance, work, social,
promotions, personal), rates the sender's tone and produces a short summary.

Emails can come from .eml/.json files, an IMAP inbox, or the message page
open in Chrome. Risky or hostile mail can trigger an alert email.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.inboxguard/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(historyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long:  "Create a new configuration file with IMAP and alert settings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit()
		},
	}
}

func analyzeCmd() *cobra.Command {
	var subject, from, text, cat string
	var asJSON, store bool

	cmd := &cobra.Command{
		Use:   "analyze [file...]",
		Short: "Analyze emails from files, stdin or flags",
		Long: `Analyze emails and print their category, tone and summary.

A file may be an RFC 5322 message (.eml), a Gmail API message or payload
(.json), or a saved message page (.html). Use "-" to read a message from
stdin. Without a file, --subject/--from/--text describe the email.
Several files are analyzed concurrently and listed riskiest first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(args, subject, from, text, cat, asJSON, store)
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Subject line (overrides the file's with a single file)")
	cmd.Flags().StringVar(&from, "from", "", "From header, e.g. \"Jane <jane@example.com>\"")
	cmd.Flags().StringVar(&text, "text", "", "Plain-text body")
	cmd.Flags().StringVar(&cat, "category", "", "Only show emails in this category")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVar(&store, "store", false, "Save the reports to history")

	return cmd
}

func scanCmd() *cobra.Command {
	var limit int
	var watch, noAlert, markSeen, all bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Analyze the latest unread emails over IMAP",
		Long: `Connect to the configured IMAP inbox, fetch the newest unread emails,
analyze them, save them to history and send alerts per the alert policy.
Messages are read with PEEK and stay unread unless --mark-seen is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(limit, watch, !noAlert, markSeen, all)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Number of unread emails to analyze (default from config: 1)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep watching the inbox with IMAP IDLE")
	cmd.Flags().BoolVar(&noAlert, "no-alert", false, "Do not send alert emails")
	cmd.Flags().BoolVar(&markSeen, "mark-seen", false, "Flag analyzed emails as read")
	cmd.Flags().BoolVar(&all, "all", false, "Re-analyze emails already in history")

	return cmd
}

func scrapeCmd() *cobra.Command {
	var file, url, remote string
	var headless, asJSON bool

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Analyze the email open in a Gmail page",
		Long: `Read the open message from a Gmail page and analyze it. The page comes
from a saved HTML file (--file) or from Chrome (--url), either launched
locally or reached through --remote ws://127.0.0.1:9222/devtools/browser/...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" && url == "" && remote == "" {
				return fmt.Errorf("either --file, --url or --remote is required")
			}
			return runScrape(file, url, remote, cmd.Flags().Changed("headless"), headless, asJSON)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Saved message page (.html)")
	cmd.Flags().StringVar(&url, "url", "", "Message URL to open in Chrome")
	cmd.Flags().StringVar(&remote, "remote", "", "DevTools websocket URL of a running Chrome")
	cmd.Flags().BoolVar(&headless, "headless", true, "Run a launched browser in headless mode")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")

	return cmd
}

func serveCmd() *cobra.Command {
	var port int
	var open bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web interface",
		Long:  "Start a local web server with a form and JSON API for analyzing emails.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port, open)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default from config: 8080)")
	cmd.Flags().BoolVar(&open, "open", false, "Open the web UI in the default browser")

	return cmd
}

func historyCmd() *cobra.Command {
	var limit, pruneDays int
	var cat string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show analysis history and statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(limit, cat, pruneDays)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of recent analyses to show")
	cmd.Flags().StringVar(&cat, "category", "", "Only show this category")
	cmd.Flags().IntVar(&pruneDays, "prune", 0, "Delete analyses older than this many days")

	return cmd
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("🛡️  InboxGuard Configuration Setup")
	fmt.Println("==================================")
	fmt.Println()

	cfg := config.Default()

	fmt.Println("📬 Inbox (IMAP)")
	fmt.Println()
	if yes(prompt(reader, "Scan an IMAP inbox? (y/N): ")) {
		cfg.Inbox.Enabled = true
		provider := prompt(reader, "  Provider (gmail/outlook/imap) [gmail]: ")
		if provider == "" {
			provider = "gmail"
		}
		cfg.Inbox.Provider = provider
		if provider == "imap" {
			cfg.Inbox.Server = prompt(reader, "  IMAP server: ")
			port, err := strconv.Atoi(prompt(reader, "  IMAP port [993]: "))
			if err != nil || port == 0 {
				port = 993
			}
			cfg.Inbox.Port = port
		} else {
			cfg.Inbox.Server = ""
		}
		cfg.Inbox.Email = prompt(reader, "  Email address: ")
		cfg.Inbox.Password = prompt(reader, "  App password: ")
	}

	fmt.Println()
	fmt.Println("🚨 Alerts")
	fmt.Println()
	if yes(prompt(reader, "Send an alert email for phishing, spam or angry mail? (y/N): ")) {
		cfg.Alert.Enabled = true
		provider := prompt(reader, "  Provider (smtp/sendgrid/resend) [smtp]: ")
		if provider == "" {
			provider = "smtp"
		}
		cfg.Alert.Provider = provider
		cfg.Alert.From = prompt(reader, "  From address: ")
		cfg.Alert.To = prompt(reader, "  Send alerts to: ")

		if provider == "smtp" {
			fmt.Println()
			fmt.Println("  Gmail SMTP works with an app password:")
			fmt.Println("  (See https://support.google.com/accounts/answer/185833)")
			cfg.Alert.SMTP.Host = "smtp.gmail.com"
			cfg.Alert.SMTP.Port = 465
			cfg.Alert.SMTP.UseTLS = true
			cfg.Alert.SMTP.Username = prompt(reader, "  SMTP username: ")
			cfg.Alert.SMTP.Password = prompt(reader, "  SMTP password: ")
		} else {
			cfg.Alert.APIKey = prompt(reader, "  API key: ")
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	configPath := resolveConfigPath()
	if err := config.Save(configPath, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Printf("✅ Configuration saved to: %s\n", configPath)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review and edit the config file if needed")
	fmt.Println("  2. Run 'inboxguard analyze message.eml' to analyze a saved email")
	fmt.Println("  3. Run 'inboxguard scan' to analyze your latest unread email")
	fmt.Println("  4. Run 'inboxguard serve' for the web interface")

	return nil
}

func runAnalyze(paths []string, subject, from, text, cat string, asJSON, store bool) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	var emails []inbox.Email
	for _, path := range paths {
		e, err := loadEmail(path)
		if err != nil {
			return err
		}
		emails = append(emails, e)
	}
	if len(emails) == 1 && subject != "" {
		emails[0].Subject = subject
	}
	if len(emails) == 0 {
		if subject == "" && text == "" {
			return fmt.Errorf("%w: give a file or --subject/--text", inbox.ErrNoMessage)
		}
		e := inbox.FromText(subject, from, text)
		e.Source = inbox.SourceFile
		emails = append(emails, e)
	}

	a := analysis.New(analysis.WithWorkers(cfg.Analysis.Workers), analysis.WithLogger(log))
	reports, err := a.AnalyzeAll(context.Background(), emails)
	if err != nil {
		return err
	}

	policy := analysis.PolicyFromConfig(cfg.Alert)
	reports, err = selectReports(reports, cat, policy)
	if err != nil {
		return err
	}

	if store {
		hs, err := openHistory(cfg)
		if err != nil {
			return err
		}
		if hs != nil {
			defer hs.Close()
			for _, r := range reports {
				if _, err := hs.AddReport(r); err != nil {
					return err
				}
			}
		}
	}

	if asJSON {
		if len(emails) == 1 && len(reports) == 1 {
			return printJSON(reports[0])
		}
		return printJSON(reports)
	}

	if len(reports) == 0 {
		fmt.Printf("No %s emails among %d analyzed.\n", cat, len(emails))
		return nil
	}
	for i, r := range reports {
		if i > 0 {
			fmt.Println()
		}
		printReport(r, policy)
	}
	if len(emails) > 1 {
		stats := analysis.Summarize(reports)
		flagged := 0
		for _, r := range reports {
			if policy.ShouldAlert(r) {
				flagged++
			}
		}
		fmt.Println()
		fmt.Printf("Analyzed %d email(s): %d need attention, %d urgent\n", len(emails), flagged, stats.Urgent)
	}
	return nil
}

// selectReports keeps the reports in category cat, if given, and puts the
// ones matching policy first.
func selectReports(reports []analysis.Report, cat string, policy analysis.Policy) ([]analysis.Report, error) {
	if cat != "" {
		c := category.Category(strings.ToLower(cat))
		known := false
		for _, k := range category.All() {
			if k == c {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown category %q", cat)
		}
		reports = analysis.FilterByCategory(reports, c)
	}
	analysis.SortByRisk(reports, policy)
	return reports, nil
}

func runScan(limit int, watch, alerts, markSeen, all bool) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := cfg.ValidateInbox(); err != nil {
		fmt.Println("📧 Inbox scanning is not configured.")
		fmt.Println()
		fmt.Println("To enable it, add the following to your config.yaml:")
		fmt.Println()
		fmt.Println("inbox:")
		fmt.Println("  enabled: true")
		fmt.Println("  provider: gmail")
		fmt.Println("  email: your-email@gmail.com")
		fmt.Println("  password: your-app-password  # Use an App Password, not your main password")
		fmt.Println()
		fmt.Println("For Gmail, you'll need to:")
		fmt.Println("  1. Enable 2-Step Verification")
		fmt.Println("  2. Generate an App Password at https://myaccount.google.com/apppasswords")
		fmt.Println("  3. Enable IMAP in Gmail settings")
		return err
	}
	if limit <= 0 {
		limit = cfg.Inbox.Limit
	}
	markSeen = markSeen || cfg.Inbox.MarkSeen

	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	opts := []pipeline.Option{
		pipeline.WithStore(store),
		pipeline.SkipSeen(!all),
		pipeline.WithLogger(log),
	}
	policy := analysis.PolicyFromConfig(cfg.Alert)
	if alerts {
		a, err := pipeline.AlertsFromConfig(cfg.Alert, "")
		if err != nil {
			return fmt.Errorf("failed to set up alerts: %w", err)
		}
		if a != nil {
			opts = append(opts, pipeline.WithAlerts(a))
		}
	}
	processor := pipeline.New(analysis.New(analysis.WithWorkers(cfg.Analysis.Workers), analysis.WithLogger(log)), opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitor := inbox.NewMonitor(cfg.Inbox, log)
	if err := monitor.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to inbox: %w", err)
	}
	defer monitor.Disconnect()

	processed := newSeenSet()
	handle := func(emails []inbox.Email) {
		emails = processed.unseen(emails)
		if len(emails) == 0 {
			log.Debug("no new unread email since last check")
			return
		}
		outcomes, err := processor.Process(ctx, emails, nil)
		if err != nil {
			log.Error("failed to process emails", zap.Error(err))
			return
		}
		processed.add(emails)
		printOutcomes(outcomes, policy)

		if markSeen {
			var uids []uint32
			for _, o := range outcomes {
				uids = append(uids, o.Report.Email.UID)
			}
			if err := monitor.MarkSeen(uids...); err != nil {
				log.Warn("failed to mark emails as read", zap.Error(err))
			}
		}
	}

	fmt.Printf("📬 Checking %s for unread email...\n", cfg.Inbox.Folder)
	fmt.Println()

	emails, err := monitor.FetchUnread(ctx, limit)
	switch {
	case errors.Is(err, inbox.ErrNoMessage):
		fmt.Println("No unread email.")
	case err != nil:
		return fmt.Errorf("failed to fetch emails: %w", err)
	default:
		handle(emails)
	}

	if !watch {
		return nil
	}

	fmt.Println()
	fmt.Println("👀 Watching for new email (Ctrl+C to stop)...")
	err = monitor.WatchUnread(ctx, limit, handle)
	if errors.Is(err, context.Canceled) {
		fmt.Println("\nShutting down...")
		return nil
	}
	return err
}

func runScrape(file, url, remote string, headlessSet, headless, asJSON bool) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	var e inbox.Email
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", file, err)
		}
		defer f.Close()
		e, err = inbox.ParsePage(f)
		if err != nil {
			return err
		}
	} else {
		bcfg := browser.ConfigFrom(cfg.Browser)
		if remote != "" {
			bcfg.RemoteURL = remote
		}
		if headlessSet {
			bcfg.Headless = headless
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		b := browser.New(bcfg, log)
		defer b.Close()

		fmt.Println("🌐 Reading message page from Chrome...")
		e, err = b.CaptureMessage(ctx, url)
		if err != nil {
			return err
		}
	}

	report := analysis.New(analysis.WithLogger(log)).Analyze(e)
	if asJSON {
		return printJSON(report)
	}
	printReport(report, analysis.PolicyFromConfig(cfg.Alert))
	return nil
}

func runServe(port int, open bool) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()
	if port != 0 {
		cfg.Server.Port = port
	}

	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	analyzer := analysis.New(analysis.WithWorkers(cfg.Analysis.Workers), analysis.WithLogger(log))

	reviewURL := fmt.Sprintf("http://%s:%d/history", cfg.Server.Host, cfg.Server.Port)
	opts := []pipeline.Option{pipeline.WithStore(store), pipeline.SkipSeen(true), pipeline.WithLogger(log)}
	alerts, err := pipeline.AlertsFromConfig(cfg.Alert, reviewURL)
	if err != nil {
		return fmt.Errorf("failed to set up alerts: %w", err)
	}
	if alerts != nil {
		opts = append(opts, pipeline.WithAlerts(alerts))
	}

	server, err := web.NewServer(cfg, analyzer,
		web.WithHistory(store),
		web.WithProcessor(pipeline.New(analyzer, opts...)),
		web.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.Start(ctx, open)
}

func runHistory(limit int, cat string, pruneDays int) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("history is disabled in config")
	}
	defer store.Close()

	if pruneDays > 0 {
		n, err := store.Prune(time.Now().AddDate(0, 0, -pruneDays))
		if err != nil {
			return err
		}
		fmt.Printf("🧹 Deleted %d analyses older than %d days\n", n, pruneDays)
		fmt.Println()
	}

	total, urgent, sent, failed, err := store.GetStats()
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}
	categories, err := store.CategoryStats()
	if err != nil {
		return err
	}
	sentiments, err := store.SentimentStats()
	if err != nil {
		return err
	}

	fmt.Println("📊 InboxGuard Statistics")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()
	fmt.Printf("  Analyzed: %d\n", total)
	fmt.Printf("  Urgent: %d\n", urgent)
	fmt.Printf("  Alerts sent: %d\n", sent)
	if failed > 0 {
		fmt.Printf("  Alerts failed: %d\n", failed)
	}
	fmt.Println()
	fmt.Println("By category:")
	for _, c := range category.All() {
		if n := categories[string(c)]; n > 0 {
			fmt.Printf("  %-12s %d\n", c.Label(), n)
		}
	}
	fmt.Println()
	fmt.Println("By tone:")
	for _, s := range tone.Sentiments() {
		if n := sentiments[string(s)]; n > 0 {
			fmt.Printf("  %s %-12s %d\n", s.Icon(), s, n)
		}
	}

	entries, err := store.Recent(cat, limit)
	if err != nil {
		return fmt.Errorf("failed to get recent analyses: %w", err)
	}

	if len(entries) > 0 {
		fmt.Println()
		fmt.Printf("📜 Recent Analyses (last %d)\n", limit)
		fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

		for _, e := range entries {
			fmt.Printf("%s %s - [%s] %s\n",
				tone.Sentiment(e.Sentiment).Icon(),
				e.AnalyzedAt.Local().Format("2006-01-02 15:04"),
				e.Category,
				inbox.Email{Subject: e.Subject}.DisplaySubject(),
			)
			fmt.Printf("   From: %s\n", inbox.Email{Sender: e.Sender}.DisplaySender())
		}
	}

	return nil
}

// seenSet remembers the emails handled by this process, so a watch loop
// does not re-analyze or re-alert on mail that stays unread.
type seenSet map[string]struct{}

func newSeenSet() seenSet { return make(seenSet) }

func seenKey(e inbox.Email) string {
	if e.MessageID != "" {
		return "id:" + e.MessageID
	}
	if e.UID != 0 {
		return "uid:" + strconv.FormatUint(uint64(e.UID), 10)
	}
	return ""
}

// unseen returns the emails not handled yet. Emails with no Message-ID or
// UID are always returned.
func (s seenSet) unseen(emails []inbox.Email) []inbox.Email {
	var out []inbox.Email
	for _, e := range emails {
		if key := seenKey(e); key != "" {
			if _, ok := s[key]; ok {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

func (s seenSet) add(emails []inbox.Email) {
	for _, e := range emails {
		if key := seenKey(e); key != "" {
			s[key] = struct{}{}
		}
	}
}

func printReport(r analysis.Report, policy analysis.Policy) {
	e := r.Email
	fmt.Println("📧 Email Analysis")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("  Subject:  %s\n", e.DisplaySubject())
	fmt.Printf("  From:     %s\n", e.DisplaySender())
	fmt.Printf("  Email:    %s\n", e.DisplayEmail())
	fmt.Println()
	fmt.Printf("  Category: %s\n", r.Category.Label())
	fmt.Printf("  Tone:     %s %s (score %.1f)\n", r.Tone.Icon, r.Tone.Sentiment, r.Tone.Score)
	fmt.Printf("            %s\n", r.Tone.Summary)
	if r.Tone.Urgent {
		fmt.Println("  ⏰ Urgent wording detected")
	}
	fmt.Println()
	fmt.Println("📝 Summary")
	fmt.Printf("  %s\n", r.Summary)

	if verbose {
		fmt.Println()
		fmt.Println("🔍 Why")
		if _, pattern := category.Explain(e.Subject, e.Body); pattern != "" {
			fmt.Printf("  Category pattern: %s\n", pattern)
		}
		fmt.Printf("  Tone signals:     %s\n", formatSignals(r.Tone.Signals))
	}

	if reasons := policy.Reasons(r); len(reasons) > 0 {
		fmt.Println()
		fmt.Printf("⚠️  Needs attention: %s\n", strings.Join(reasons, ", "))
	}
}

func formatSignals(s tone.Signals) string {
	parts := make([]string, 0, len(tone.Buckets()))
	for _, b := range tone.Buckets() {
		parts = append(parts, fmt.Sprintf("%s %.1f", b, s.Get(b)))
	}
	return strings.Join(parts, ", ")
}

func printOutcomes(outcomes []pipeline.Outcome, policy analysis.Policy) {
	for i, o := range outcomes {
		if i > 0 {
			fmt.Println()
		}
		if o.Duplicate {
			fmt.Printf("⏭️  Already analyzed: %s\n", o.Report.Email.DisplaySubject())
			continue
		}
		printReport(o.Report, policy)
		switch {
		case o.Alerted:
			fmt.Println("📨 Alert sent")
		case o.AlertErr != "":
			fmt.Printf("❌ Alert failed: %s\n", o.AlertErr)
		}
	}

	stats := analysis.Summarize(reportsOf(outcomes))
	fmt.Println()
	fmt.Printf("Analyzed %d email(s): %d need attention, %d urgent\n", stats.Total, len(pipeline.Flagged(outcomes, policy)), stats.Urgent)
}

func reportsOf(outcomes []pipeline.Outcome) []analysis.Report {
	var reports []analysis.Report
	for _, o := range outcomes {
		if !o.Duplicate {
			reports = append(reports, o.Report)
		}
	}
	return reports
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func prompt(reader *bufio.Reader, message string) string {
	fmt.Print(message)
	input, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(input)
}

func yes(answer string) bool {
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}
