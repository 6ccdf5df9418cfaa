package scrape

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
)

// StaticFetcher retrieves pages over plain HTTP for sites that render their
// content without JavaScript.
type StaticFetcher struct {
	userAgent string
	timeout   time.Duration
}

// NewStaticFetcher builds a StaticFetcher.
func NewStaticFetcher(userAgent string, timeout time.Duration) *StaticFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &StaticFetcher{userAgent: userAgent, timeout: timeout}
}

// Fetch executes a single HTTP GET and returns the raw document.
func (f *StaticFetcher) Fetch(ctx context.Context, url string) (string, error) {
	collector := colly.NewCollector(colly.Async(false))
	if f.userAgent != "" {
		collector.UserAgent = f.userAgent
	}
	collector.SetRequestTimeout(f.timeout)

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("visit %s: %w", url, err)
		}
		if fetchErr != nil {
			return "", fmt.Errorf("fetch %s: %w", url, fetchErr)
		}
		return string(body), nil
	}
}
