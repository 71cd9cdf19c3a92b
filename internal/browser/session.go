// File: internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Session is a single isolated browser tab. Its methods are the small action
// vocabulary the scripted collaborator executes; each call runs under the
// session's navigation timeout.
type Session struct {
	ctx        context.Context
	cancel     context.CancelFunc
	navTimeout time.Duration
	release    func()
	closeOnce  sync.Once
	logger     *zap.Logger
}

// Navigate loads a URL and waits for the page to settle.
func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

// Click clicks the first element matching the CSS selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

// Fill focuses the first element matching the CSS selector and types the
// value into it.
func (s *Session) Fill(ctx context.Context, selector, value string) error {
	return s.run(ctx,
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

// Sleep suspends for the duration within the browser context so navigation
// events keep flowing.
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	return s.run(ctx, chromedp.Sleep(d))
}

// Location returns the page's current URL and title.
func (s *Session) Location(ctx context.Context) (url, title string, err error) {
	err = s.run(ctx, chromedp.Location(&url), chromedp.Title(&title))
	return url, title, err
}

// Screenshot captures the viewport as PNG bytes.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var captureErr error
		buf, captureErr = page.CaptureScreenshot().WithFormat(page.CaptureScreenshotFormatPng).Do(ctx)
		return captureErr
	}))
	if err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	return buf, nil
}

// Close releases the tab and its session slot. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.release()
		s.logger.Debug("Browser session closed")
	})
}

// run executes chromedp actions under the caller's context and the session's
// navigation timeout, whichever ends first.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, s.navTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(runCtx, actions...) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}
