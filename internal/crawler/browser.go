package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"sjsage522/dealerworker/logger"
	crawlerrors "sjsage522/dealerworker/pkg/errors"
)

// Browser is the untyped collaborator browser-driven vendors talk to
type Browser interface {
	Navigate(ctx context.Context, url string) error
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	Content(ctx context.Context) (string, error)
	Close() error
}

// PlaywrightBrowser drives a single Chromium page. The browser is started
// lazily on first use.
type PlaywrightBrowser struct {
	provider   string
	headless   bool
	navTimeout time.Duration

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
}

// NewPlaywrightBrowser creates a browser for provider
func NewPlaywrightBrowser(provider string, headless bool, navTimeout time.Duration) *PlaywrightBrowser {
	return &PlaywrightBrowser{provider: provider, headless: headless, navTimeout: navTimeout}
}

func (b *PlaywrightBrowser) ensure() (playwright.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.page != nil {
		return b.page, nil
	}

	var err error
	b.pw, err = playwright.Run()
	if err != nil {
		return nil, crawlerrors.NewBrowser(b.provider, "failed to start playwright", err)
	}

	b.browser, err = b.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(b.headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		b.pw.Stop()
		b.pw = nil
		return nil, crawlerrors.NewBrowser(b.provider, "failed to launch browser", err)
	}

	b.page, err = b.browser.NewPage()
	if err != nil {
		b.closeLocked()
		return nil, crawlerrors.NewBrowser(b.provider, "failed to create page", err)
	}

	logger.ForBrowser().Debug().Str("vendor", b.provider).Bool("headless", b.headless).Msg("Browser started")
	return b.page, nil
}

// Navigate loads url and waits for the DOM to be parsed
func (b *PlaywrightBrowser) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	page, err := b.ensure()
	if err != nil {
		return err
	}

	_, err = page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(b.navTimeout.Milliseconds())),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return crawlerrors.NewBrowser(b.provider, fmt.Sprintf("navigate %s", url), err)
	}
	return nil
}

// WaitFor blocks until selector is attached to the DOM or timeout passes
func (b *PlaywrightBrowser) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	page, err := b.ensure()
	if err != nil {
		return err
	}

	err = page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return crawlerrors.NewBrowser(b.provider, fmt.Sprintf("wait for %s", selector), err)
	}
	return nil
}

// Content returns the rendered HTML of the page
func (b *PlaywrightBrowser) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	page, err := b.ensure()
	if err != nil {
		return "", err
	}

	html, err := page.Content()
	if err != nil {
		return "", crawlerrors.NewBrowser(b.provider, "read page content", err)
	}
	return html, nil
}

// Close shuts the page, the browser and the driver down
func (b *PlaywrightBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeLocked()
}

func (b *PlaywrightBrowser) closeLocked() error {
	var first error
	if b.page != nil {
		if err := b.page.Close(); err != nil && first == nil {
			first = err
		}
		b.page = nil
	}
	if b.browser != nil {
		if err := b.browser.Close(); err != nil && first == nil {
			first = err
		}
		b.browser = nil
	}
	if b.pw != nil {
		if err := b.pw.Stop(); err != nil && first == nil {
			first = err
		}
		b.pw = nil
	}
	return first
}
