// Package browser reads the open message page from Chrome
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/inboxguard/inboxguard/internal/config"
	"github.com/inboxguard/inboxguard/internal/inbox"
)

// Browser wraps a chromedp context, either attached to a running Chrome
// over its DevTools websocket or launched locally.
type Browser struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	config      Config
	log         *zap.Logger
}

// Config holds browser capture settings
type Config struct {
	RemoteURL    string // ws://127.0.0.1:9222/devtools/browser/... ; empty launches Chrome
	Headless     bool
	Timeout      time.Duration
	UserAgent    string
	WindowWidth  int
	WindowHeight int
	Settle       time.Duration // Extra wait after the message body appears
}

// DefaultConfig returns sensible default browser settings
func DefaultConfig() Config {
	return Config{
		Headless:     true,
		Timeout:      30 * time.Second,
		UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		WindowWidth:  1920,
		WindowHeight: 1080,
		Settle:       500 * time.Millisecond,
	}
}

// ConfigFrom merges file configuration over the defaults
func ConfigFrom(cfg config.BrowserConfig) Config {
	c := DefaultConfig()
	c.RemoteURL = strings.TrimSpace(cfg.RemoteURL)
	c.Headless = cfg.Headless
	if cfg.TimeoutSec > 0 {
		c.Timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	return c
}

// New creates a new Browser instance. No connection is made until the
// first capture.
func New(cfg Config, log *zap.Logger) *Browser {
	if log == nil {
		log = zap.NewNop()
	}

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if cfg.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.NoFirstRun,
			chromedp.NoDefaultBrowserCheck,
			chromedp.DisableGPU,
			chromedp.UserAgent(cfg.UserAgent),
			chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
			chromedp.Flag("headless", cfg.Headless),
		)
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	ctx, cancel := chromedp.NewContext(allocCtx)

	return &Browser{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
		config:      cfg,
		log:         log.Named("browser"),
	}
}

// Close cleans up browser resources. A remote Chrome keeps running.
func (b *Browser) Close() {
	if b.cancel != nil {
		b.cancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
}

// run executes actions bounded by both the browser timeout and ctx.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	tctx, cancel := context.WithTimeout(b.ctx, b.config.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(tctx, actions...)
}

// CapturePage navigates to url, when given, and returns the page HTML once
// the body is ready.
func (b *Browser) CapturePage(ctx context.Context, url string) (string, error) {
	var actions []chromedp.Action
	if url != "" {
		b.log.Info("navigating", zap.String("url", url))
		actions = append(actions, chromedp.Navigate(url))
	}

	var html string
	actions = append(actions,
		chromedp.WaitReady("body"),
		chromedp.Sleep(b.config.Settle),
		chromedp.OuterHTML("html", &html),
	)

	if err := b.run(ctx, actions...); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("page capture failed: %w", err)
	}
	return html, nil
}

// CaptureMessage captures the page and scrapes the open message from it.
func (b *Browser) CaptureMessage(ctx context.Context, url string) (inbox.Email, error) {
	html, err := b.CapturePage(ctx, url)
	if err != nil {
		return inbox.Email{}, err
	}

	if gate := DetectGate(html); gate.Blocking() {
		b.log.Warn("message page is blocked", zap.String("gate", string(gate.Type)))
		return inbox.Email{}, fmt.Errorf("%s: %w", gate.Description(), inbox.ErrNoMessage)
	}

	email, err := inbox.ParsePage(strings.NewReader(html))
	if err != nil {
		return inbox.Email{}, err
	}
	b.log.Debug("message captured", zap.String("subject", email.Subject))
	return email, nil
}
