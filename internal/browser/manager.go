// File: internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/xkilldash9x/cadence/internal/config"
)

// Manager owns the headless browser process. All sessions derive from its
// allocator context; the semaphore bounds how many live at once.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	allocCtx    context.Context
	allocCancel context.CancelFunc
	sessions    *semaphore.Weighted
}

// NewManager prepares the browser allocator. The browser process itself
// starts lazily with the first session.
func NewManager(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) *Manager {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
	)
	if cfg.IgnoreTLSErrors {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}
	for _, arg := range cfg.Args {
		opts = append(opts, chromedp.Flag(arg, true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	return &Manager{
		logger:      logger.Named("browser_manager"),
		cfg:         cfg,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		sessions:    semaphore.NewWeighted(int64(cfg.Concurrency)),
	}
}

// NewSession creates an isolated browser tab. It blocks while the session
// limit is saturated.
func (m *Manager) NewSession(ctx context.Context) (*Session, error) {
	if err := m.sessions.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquiring browser session slot: %w", err)
	}

	sessionCtx, sessionCancel := chromedp.NewContext(m.allocCtx)
	timeout := m.cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	m.logger.Debug("Browser session created")
	return &Session{
		ctx:        sessionCtx,
		cancel:     sessionCancel,
		navTimeout: timeout,
		release:    func() { m.sessions.Release(1) },
		logger:     m.logger.Named("session"),
	}, nil
}

// Close tears down the browser process and every session derived from it.
func (m *Manager) Close() {
	m.allocCancel()
	m.logger.Debug("Browser manager closed")
}
