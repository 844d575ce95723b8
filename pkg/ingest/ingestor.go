package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/truthledger/truthledger/pkg/models"
	"github.com/truthledger/truthledger/pkg/store"
)

// ErrSourceNotFound is returned when the requested source does not exist
// (spec §4.1 "Resolves source; fails with SourceNotFound if absent").
var ErrSourceNotFound = errors.New("ingest: source not found")

// Result is the ingest(...) contract's return value (spec §4.1).
type Result struct {
	DocumentsCreated int
	DocumentsUpdated int
	SnippetsCreated  int
	Errors           []string
}

// ProgressFunc reports incremental progress during a long-running ingest
// or snippetize pass (spec §4.3 "Progress reporting").
type ProgressFunc func(current, total int, message string)

// Ingestor fetches a set of URLs for a source and produces Document and
// Snippet rows (spec §4.1).
type Ingestor struct {
	store   store.Store
	fetcher *fetcher
	logger  *slog.Logger
}

func New(st store.Store, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{store: st, fetcher: newFetcher(), logger: logger}
}

// Ingest fetches each URL, content-addresses it, and splits it into
// snippets. Per-URL failures are collected, never fatal to the batch
// (spec §4.1).
func (ig *Ingestor) Ingest(ctx context.Context, sourceID string, urls []string, docType string, timeout time.Duration, feedURL string) (*Result, error) {
	src, err := ig.store.GetSource(ctx, sourceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSourceNotFound
		}
		return nil, fmt.Errorf("ingest: resolve source: %w", err)
	}

	if docType == "" {
		docType = src.DefaultDocType
	}

	result := &Result{}
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", u, err))
			break
		}
		if err := ig.ingestOne(ctx, src, u, docType, timeout, feedURL, result); err != nil {
			ig.logger.Warn("ingest: url failed", "url", u, "source_id", sourceID, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", u, err))
		}
	}
	return result, nil
}

func (ig *Ingestor) ingestOne(ctx context.Context, src *models.Source, url, docType string, timeout time.Duration, feedURL string, result *Result) error {
	body, _, err := ig.fetcher.fetch(ctx, url, timeout)
	if err != nil {
		return err
	}

	parsed, err := extractHTML(url, body)
	if err != nil {
		return fmt.Errorf("parse %s: %w", url, err)
	}

	contentHash := contentAddress(parsed.Content)
	now := time.Now()

	predecessor, err := ig.store.FindPredecessorDocument(ctx, src.ID, url)
	if err != nil {
		return fmt.Errorf("find predecessor for %s: %w", url, err)
	}

	doc := &models.Document{
		SourceID:    src.ID,
		URL:         url,
		Title:       parsed.Title,
		DocType:     docType,
		ContentHash: contentHash,
		RawContent:  parsed.Content,
		PublishedAt: parsed.PublishedAt,
		RetrievedAt: now,
		FeedURL:     feedURL,
	}
	if predecessor != nil && predecessor.ContentHash != contentHash {
		doc.SupersedesDocumentID = &predecessor.ID
	}

	docID, created, err := ig.store.UpsertDocument(ctx, doc)
	if err != nil {
		return fmt.Errorf("store document %s: %w", url, err)
	}
	if !created {
		// content unchanged since last ingest: no-op per spec §4.1.
		return nil
	}
	result.DocumentsCreated++
	if predecessor != nil {
		result.DocumentsUpdated++
	}

	paragraphs := Snippetize(url, parsed.Content)
	for _, p := range paragraphs {
		snip := &models.Snippet{
			DocumentID:  docID,
			Locator:     p.Locator,
			Text:        p.Text,
			SnippetHash: snippetHash(p.Locator, p.Text),
			SnippetType: p.Type,
		}
		_, snipCreated, err := ig.store.InsertSnippet(ctx, snip)
		if err != nil {
			return fmt.Errorf("store snippet for %s: %w", url, err)
		}
		if snipCreated {
			result.SnippetsCreated++
		}
	}
	return nil
}

func contentAddress(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func snippetHash(locator, text string) string {
	h := sha256.New()
	h.Write([]byte(locator))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
