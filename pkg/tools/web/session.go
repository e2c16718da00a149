package web

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"
)

const (
	// DefaultTimeout is the navigation timeout in milliseconds.
	DefaultTimeout = 30000

	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// Fetcher returns the rendered HTML of a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Session is a lazily started headless browser shared by the web tools.
// It is safe for concurrent use; each Fetch opens its own page.
type Session struct {
	pw          *playwright.Playwright
	browser     playwright.Browser
	browserCtx  playwright.BrowserContext
	timeout     float64
	mu          sync.Mutex
	initialized bool
}

// NewSession creates a session. Nothing is started until the first Fetch.
func NewSession() *Session {
	return &Session{timeout: DefaultTimeout}
}

// start installs and launches Playwright and Chromium once.
func (s *Session) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	// Keep driver output off the terminal; the TUI owns stdout.
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	headless := true
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{Headless: &headless})
	if err != nil {
		_ = pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	userAgent := defaultUserAgent
	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{UserAgent: &userAgent})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return fmt.Errorf("failed to create context: %w", err)
	}

	s.pw = pw
	s.browser = browser
	s.browserCtx = browserCtx
	s.initialized = true
	webLog.Infof("Started headless browser")
	return nil
}

// Fetch navigates a fresh page to url and returns the page HTML.
func (s *Session) Fetch(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.start(); err != nil {
		return "", err
	}

	s.mu.Lock()
	browserCtx := s.browserCtx
	s.mu.Unlock()
	if browserCtx == nil {
		return "", fmt.Errorf("browser session is closed")
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	timeout := s.timeout
	waitUntil := playwright.WaitUntilState("domcontentloaded")
	if _, err := page.Goto(url, playwright.PageGotoOptions{WaitUntil: &waitUntil, Timeout: &timeout}); err != nil {
		return "", fmt.Errorf("navigation failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	content, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return content, nil
}

// Close shuts down the browser and Playwright. It is a no-op when the
// session was never started.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil
	}
	_ = s.browserCtx.Close()
	_ = s.browser.Close()
	err := s.pw.Stop()

	s.pw, s.browser, s.browserCtx = nil, nil, nil
	s.initialized = false
	if err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}
