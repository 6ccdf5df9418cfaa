package scrape

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

// BrowserConfig controls the headless browser scraper.
type BrowserConfig struct {
	UserAgent         string
	Headless          bool
	NavigationTimeout time.Duration
}

// Browser renders pages with headless Chrome so JavaScript-built content is
// present before extraction.
type Browser struct {
	cfg         BrowserConfig
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewBrowser creates a browser scraper backed by chromedp.
func NewBrowser(cfg BrowserConfig) *Browser {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 25 * time.Second
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Browser{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}
}

// Close cancels the allocator context.
func (b *Browser) Close() {
	b.allocCancel()
}

// Render navigates to a URL and returns the fully rendered DOM.
func (b *Browser) Render(ctx context.Context, pageURL string) (string, error) {
	taskCtx, taskCancel := chromedp.NewContext(b.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, b.cfg.NavigationTimeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var html string
	actions := []chromedp.Action{
		b.userAgentAction(),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, nil
}

// SearchWikipedia drives the Wikipedia search box with a term, waits for the
// article to render, and returns its first paragraph.
func (b *Browser) SearchWikipedia(ctx context.Context, term string) (string, error) {
	taskCtx, taskCancel := chromedp.NewContext(b.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, b.cfg.NavigationTimeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var html string
	actions := []chromedp.Action{
		b.userAgentAction(),
		chromedp.Navigate("https://www.wikipedia.org/"),
		chromedp.WaitVisible(`input[name="search"]`, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="search"]`, term+"\n", chromedp.ByQuery),
		chromedp.WaitReady("p", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return "", fmt.Errorf("chromedp run: %w", err)
	}

	paragraph, err := FirstParagraph(html)
	if err != nil {
		return "", fmt.Errorf("extract paragraph for %q: %w", term, err)
	}
	return paragraph, nil
}

func (b *Browser) userAgentAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if b.cfg.UserAgent == "" {
			return nil
		}
		if err := emulation.SetUserAgentOverride(b.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
}
