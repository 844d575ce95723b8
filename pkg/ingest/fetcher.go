// Package ingest fetches source documents, content-addresses and
// versions them, and splits them into snippets for the Extractor
// (spec §4.1).
package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const userAgent = "TruthLedger/1.0"

// DefaultTimeout is applied when ingest is called without an explicit
// per-URL timeout (spec §4.1 "timeout default 30 s").
const DefaultTimeout = 30 * time.Second

// fetcher performs the HTTP GET step of the fetch protocol (spec §4.1
// step 1), propagating cancellation from ctx.
type fetcher struct {
	client *http.Client
}

func newFetcher() *fetcher {
	return &fetcher{client: &http.Client{}}
}

func (f *fetcher) fetch(ctx context.Context, url string, timeout time.Duration) (body string, contentType string, err error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", fmt.Errorf("ingest: build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("ingest: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("ingest: %s returned HTTP %d", url, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("ingest: read body of %s: %w", url, err)
	}
	return string(raw), resp.Header.Get("Content-Type"), nil
}
