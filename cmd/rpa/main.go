// Package main implements the browser-automation client: it searches
// Wikipedia for a term (or fetches an article URL directly), extracts the
// first paragraph of the article, and posts it to the summarization
// endpoint.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/roberasa/legalario-transactional-api/internal/config"
	"github.com/roberasa/legalario-transactional-api/internal/logging"
	"github.com/roberasa/legalario-transactional-api/internal/scrape"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	term := flag.String("term", "", "Wikipedia search term")
	articleURL := flag.String("url", "", "Article URL to fetch directly, without the search flow")
	flag.Parse()

	if (*term == "") == (*articleURL == "") {
		fmt.Fprintln(os.Stderr, "usage: rpa (-term <search term> | -url <article url>) [-config <path>]")
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	paragraph, err := extractParagraph(ctx, cfg, logger, *term, *articleURL)
	if err != nil {
		logger.Fatal("scrape failed", zap.Error(err))
	}

	fmt.Println("\nExtracted text:")
	fmt.Println(paragraph)

	summary, err := requestSummary(ctx, cfg, paragraph)
	if err != nil {
		logger.Fatal("summarize request failed", zap.Error(err))
	}

	fmt.Println("\nSummary:")
	fmt.Println(summary)
}

// extractParagraph picks the scrape path: a direct URL is fetched statically
// with a headless-browser render as fallback for script-heavy pages, while a
// search term drives the interactive Wikipedia flow.
func extractParagraph(
	ctx context.Context,
	cfg config.Config,
	logger *zap.Logger,
	term, articleURL string,
) (string, error) {
	navTimeout := time.Duration(cfg.Scraper.NavTimeoutSec) * time.Second

	if articleURL != "" {
		logger.Info("fetching article", zap.String("url", articleURL))
		fetcher := scrape.NewStaticFetcher(cfg.Scraper.UserAgent, navTimeout)
		html, err := fetcher.Fetch(ctx, articleURL)
		if err != nil {
			return "", fmt.Errorf("static fetch: %w", err)
		}
		paragraph, err := scrape.FirstParagraph(html)
		if err == nil {
			return paragraph, nil
		}
		if !errors.Is(err, scrape.ErrNoParagraph) {
			return "", err
		}

		// No paragraph in the static document; the page likely renders
		// its content with JavaScript, so try a real browser.
		logger.Info("static document empty, rendering in browser",
			zap.String("url", articleURL))
		browser := newBrowser(cfg, navTimeout)
		defer browser.Close()
		html, err = browser.Render(ctx, articleURL)
		if err != nil {
			return "", fmt.Errorf("render article: %w", err)
		}
		return scrape.FirstParagraph(html)
	}

	logger.Info("searching wikipedia", zap.String("term", term))
	browser := newBrowser(cfg, navTimeout)
	defer browser.Close()
	return browser.SearchWikipedia(ctx, term)
}

func newBrowser(cfg config.Config, navTimeout time.Duration) *scrape.Browser {
	return scrape.NewBrowser(scrape.BrowserConfig{
		UserAgent:         cfg.Scraper.UserAgent,
		Headless:          cfg.Scraper.Headless,
		NavigationTimeout: navTimeout,
	})
}

type summaryResponse struct {
	Summary string `json:"output_summary"`
	Error   string `json:"error"`
}

// requestSummary posts the extracted text to the summarization endpoint and
// returns the generated summary.
func requestSummary(ctx context.Context, cfg config.Config, text string) (string, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		cfg.Scraper.TargetEndpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.Auth.Enabled {
		req.Header.Set("X-API-Key", cfg.Auth.APIKey)
	}

	client := &http.Client{Timeout: time.Duration(cfg.OpenAI.TimeoutSeconds+10) * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call summarize endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	var parsed summaryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("summarize endpoint returned %d: %s", resp.StatusCode, parsed.Error)
	}
	return parsed.Summary, nil
}
