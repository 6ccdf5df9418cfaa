package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStaticFetcherFetch(t *testing.T) {
	t.Parallel()

	const page = `<html><body>
		<div id="mw-content-text">
			<p>Idempotency keys prevent duplicate writes.</p>
		</div>
	</body></html>`

	var gotUserAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)

	fetcher := NewStaticFetcher("txapi-rpa/1.0", 5*time.Second)
	html, err := fetcher.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "txapi-rpa/1.0", gotUserAgent)

	paragraph, err := FirstParagraph(html)
	require.NoError(t, err)
	require.Equal(t, "Idempotency keys prevent duplicate writes.", paragraph)
}

func TestStaticFetcherFetchServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	fetcher := NewStaticFetcher("", 5*time.Second)
	_, err := fetcher.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestStaticFetcherFetchCanceled(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		_, _ = w.Write([]byte("<p>late</p>"))
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := NewStaticFetcher("", 5*time.Second)
	_, err := fetcher.Fetch(ctx, srv.URL)
	require.ErrorIs(t, err, context.Canceled)
}
