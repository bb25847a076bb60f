package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultWorkers    = 4
	defaultServerPort = 8080
	defaultFetchLimit = 1
)

func checkFilePermissions(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %04o; should be 0600", path, perm)
	}
	return nil
}

type Config struct {
	Inbox    InboxConfig    `yaml:"inbox,omitempty"`
	Alert    AlertConfig    `yaml:"alert,omitempty"`
	Analysis AnalysisConfig `yaml:"analysis,omitempty"`
	Browser  BrowserConfig  `yaml:"browser,omitempty"`
	Server   ServerConfig   `yaml:"server,omitempty"`
	Log      LogConfig      `yaml:"log,omitempty"`
	History  HistoryConfig  `yaml:"history,omitempty"`
}

// InboxConfig holds IMAP settings for fetching unread mail
type InboxConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider"`  // "gmail", "outlook", "imap"
	Server   string `yaml:"server"`    // e.g., "imap.gmail.com"
	Port     int    `yaml:"port"`      // e.g., 993
	Email    string `yaml:"email"`     // Mailbox address
	Password string `yaml:"password"`  // App password (not main password)
	Folder   string `yaml:"folder"`    // Folder to scan (default: "INBOX")
	Limit    int    `yaml:"limit"`     // Unread messages per scan (default: 1)
	MarkSeen bool   `yaml:"mark_seen"` // Flag analysed messages as read
}

// AlertConfig holds settings for notifying about risky or hostile mail
type AlertConfig struct {
	Enabled    bool       `yaml:"enabled"`
	Provider   string     `yaml:"provider"` // "smtp", "sendgrid", "resend"
	From       string     `yaml:"from"`
	To         string     `yaml:"to"`
	APIKey     string     `yaml:"api_key,omitempty"` // sendgrid/resend only
	SMTP       SMTPConfig `yaml:"smtp,omitempty"`
	Categories []string   `yaml:"categories"`       // Categories that trigger an alert
	Sentiments []string   `yaml:"sentiments"`       // Sentiments that trigger an alert
	Urgent     bool       `yaml:"urgent,omitempty"` // Also alert on urgent wording
	Digest     bool       `yaml:"digest,omitempty"` // One message per scan instead of one per email
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	UseTLS   bool   `yaml:"use_tls"`
}

// AnalysisConfig tunes batch analysis
type AnalysisConfig struct {
	Workers int `yaml:"workers"` // Concurrent analyses (default: 4)
}

// BrowserConfig holds settings for capturing an open message page
type BrowserConfig struct {
	RemoteURL  string `yaml:"remote_url,omitempty"` // DevTools websocket of a running Chrome
	Headless   bool   `yaml:"headless"`
	TimeoutSec int    `yaml:"timeout_sec"`
	UserAgent  string `yaml:"user_agent,omitempty"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LogConfig controls the structured logger
type LogConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // console or json
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty"`
	Compress   bool   `yaml:"compress,omitempty"`
}

type HistoryConfig struct {
	Disabled bool   `yaml:"disabled,omitempty"`
	Path     string `yaml:"path,omitempty"` // default: ~/.inboxguard/history.db
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".inboxguard", "config.yaml")
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{
		Browser: BrowserConfig{Headless: true},
		Alert: AlertConfig{
			Categories: []string{"phishing", "spam"},
			Sentiments: []string{"angry"},
		},
	}
	cfg.applyDefaults()
	return cfg
}

func Load(path string) (*Config, error) {
	if err := checkFilePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: %v\n", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()

	return cfg, nil
}

func (c *Config) applyDefaults() {
	// Inbox defaults
	if c.Inbox.Folder == "" {
		c.Inbox.Folder = "INBOX"
	}
	if c.Inbox.Limit <= 0 {
		c.Inbox.Limit = defaultFetchLimit
	}
	if c.Inbox.Provider == "gmail" && c.Inbox.Server == "" {
		c.Inbox.Server = "imap.gmail.com"
		c.Inbox.Port = 993
	}
	if c.Inbox.Provider == "outlook" && c.Inbox.Server == "" {
		c.Inbox.Server = "outlook.office365.com"
		c.Inbox.Port = 993
	}

	if c.Alert.Provider == "" {
		c.Alert.Provider = "smtp"
	}
	if c.Analysis.Workers <= 0 {
		c.Analysis.Workers = defaultWorkers
	}
	if c.Browser.TimeoutSec == 0 {
		c.Browser.TimeoutSec = 30
	}

	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultServerPort
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.File != "" {
		if c.Log.MaxSizeMB == 0 {
			c.Log.MaxSizeMB = 100
		}
		if c.Log.MaxBackups == 0 {
			c.Log.MaxBackups = 3
		}
		if c.Log.MaxAgeDays == 0 {
			c.Log.MaxAgeDays = 28
		}
	}
}

func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log: unknown level %q", c.Log.Level)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("log: format must be console or json")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server: port %d is out of range", c.Server.Port)
	}
	if c.Alert.Enabled {
		if err := c.ValidateAlert(); err != nil {
			return err
		}
	}
	return nil
}

// ValidateInbox validates inbox configuration (only called when scanning)
func (c *Config) ValidateInbox() error {
	if !c.Inbox.Enabled {
		return fmt.Errorf("inbox: scanning is not enabled in config")
	}
	if c.Inbox.Email == "" {
		return fmt.Errorf("inbox: email address is required")
	}
	if c.Inbox.Password == "" {
		return fmt.Errorf("inbox: password (app password) is required")
	}
	if c.Inbox.Server == "" {
		return fmt.Errorf("inbox: IMAP server is required")
	}
	if c.Inbox.Port == 0 {
		return fmt.Errorf("inbox: IMAP port is required")
	}
	return nil
}

// ValidateAlert validates alert delivery settings
func (c *Config) ValidateAlert() error {
	if c.Alert.From == "" {
		return fmt.Errorf("alert: from address is required")
	}
	if c.Alert.To == "" {
		return fmt.Errorf("alert: to address is required")
	}

	switch c.Alert.Provider {
	case "smtp":
		if c.Alert.SMTP.Host == "" {
			return fmt.Errorf("alert.smtp: host is required")
		}
		if c.Alert.SMTP.Port == 0 {
			return fmt.Errorf("alert.smtp: port is required")
		}
	case "sendgrid", "resend":
		if c.Alert.APIKey == "" {
			return fmt.Errorf("alert: api_key is required for %s", c.Alert.Provider)
		}
	default:
		return fmt.Errorf("alert: unknown provider %q (smtp, sendgrid or resend)", c.Alert.Provider)
	}
	return nil
}
