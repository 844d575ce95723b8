// Package feed fetches RSS/Atom/JSON feeds, extracts item URLs, and
// delegates ingestion of each item to the Ingestor (spec §4.2).
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/truthledger/truthledger/pkg/ingest"
	"github.com/truthledger/truthledger/pkg/models"
	"github.com/truthledger/truthledger/pkg/store"
)

// Item is a normalized feed entry — title plus the canonical link used
// to hand off to the Ingestor (spec §4.2).
type Item struct {
	Title string
	URL   string
}

// Fetcher parses RSS/Atom/JSON feeds and runs due feeds through the
// Ingestor (spec §4.2).
type Fetcher struct {
	store    store.Store
	ingestor *ingest.Ingestor
	parser   *gofeed.Parser
	client   *http.Client
	logger   *slog.Logger
	maxItems int
}

func New(st store.Store, ingestor *ingest.Ingestor, maxItems int, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if maxItems <= 0 {
		maxItems = 50
	}
	return &Fetcher{
		store:    st,
		ingestor: ingestor,
		parser:   gofeed.NewParser(),
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
		maxItems: maxItems,
	}
}

// RefreshResult summarizes one feed's refresh pass.
type RefreshResult struct {
	FeedID          string
	ItemsFound      int
	IngestResult    *ingest.Result
}

// RefreshDue fetches every feed whose DueForRefresh holds, parses it, and
// ingests up to maxItems of its items (spec §4.2).
func (f *Fetcher) RefreshDue(ctx context.Context, now time.Time) ([]*RefreshResult, error) {
	feeds, err := f.store.ListDueFeeds(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("feed: list due feeds: %w", err)
	}

	var results []*RefreshResult
	for _, sf := range feeds {
		res, err := f.refreshOne(ctx, sf, now)
		if err != nil {
			f.logger.Warn("feed: refresh failed", "feed_id", sf.ID, "url", sf.FeedURL, "error", err)
			if updErr := f.store.UpdateFeedFetchResult(ctx, sf.ID, now, err.Error()); updErr != nil {
				f.logger.Error("feed: record failure", "feed_id", sf.ID, "error", updErr)
			}
			continue
		}
		if err := f.store.UpdateFeedFetchResult(ctx, sf.ID, now, ""); err != nil {
			f.logger.Error("feed: record success", "feed_id", sf.ID, "error", err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (f *Fetcher) refreshOne(ctx context.Context, sf *models.SourceFeed, now time.Time) (*RefreshResult, error) {
	items, err := f.parse(ctx, sf)
	if err != nil {
		return nil, err
	}

	limit := sf.MaxItems
	if limit <= 0 || limit > f.maxItems {
		limit = f.maxItems
	}
	if len(items) > limit {
		items = items[:limit]
	}

	urls := make([]string, 0, len(items))
	for _, it := range items {
		if it.URL != "" {
			urls = append(urls, it.URL)
		}
	}

	ingestResult, err := f.ingestor.Ingest(ctx, sf.SourceID, urls, "", 0, sf.FeedURL)
	if err != nil {
		return nil, fmt.Errorf("ingest feed items: %w", err)
	}

	return &RefreshResult{FeedID: sf.ID, ItemsFound: len(items), IngestResult: ingestResult}, nil
}

// parse does not consult the configured FeedType; gofeed auto-detects
// RSS/Atom and the JSON Feed schema, and only the heuristic plain-array
// fallback (spec §4.2 "JSON Feed") needs bespoke handling.
func (f *Fetcher) parse(ctx context.Context, sf *models.SourceFeed) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sf.FeedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "TruthLedger/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", sf.FeedURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned HTTP %d", sf.FeedURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sf.FeedURL, err)
	}

	if parsed, err := f.parser.Parse(strings.NewReader(string(body))); err == nil {
		return itemsFromGofeed(parsed), nil
	}

	items, err := parseHeuristicJSONArray(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: unrecognized format", sf.FeedURL)
	}
	return items, nil
}

func itemsFromGofeed(feed *gofeed.Feed) []Item {
	out := make([]Item, 0, len(feed.Items))
	for _, it := range feed.Items {
		link := it.Link
		if link == "" && it.GUID != "" {
			link = it.GUID
		}
		out = append(out, Item{Title: it.Title, URL: link})
	}
	return out
}

// parseHeuristicJSONArray handles a plain JSON array with inconsistent
// field naming, the fallback path for feeds that aren't valid JSON Feed
// documents (spec §4.2 "a plain array with heuristic field mapping").
func parseHeuristicJSONArray(body []byte) ([]Item, error) {
	var raw []map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	out := make([]Item, 0, len(raw))
	for _, entry := range raw {
		title := firstString(entry, "title", "name")
		url := firstString(entry, "url", "link")
		if url == "" {
			continue
		}
		out = append(out, Item{Title: title, URL: url})
	}
	return out, nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
