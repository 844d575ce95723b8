package models

import "time"

// Document is a fetched, content-addressed page of text from a Source
// (spec §3, §4.1). Documents are never mutated in place: re-ingesting
// identical content is a no-op, and changed content inserts a new row
// linked to its predecessor via SupersedesDocumentID.
type Document struct {
	ID                    string
	SourceID              string
	URL                   string
	Title                 string
	DocType               string
	ContentHash           string // SHA-256 of normalized content; unique with SourceID
	RawContent            string
	PublishedAt           *time.Time
	RetrievedAt           time.Time
	SupersedesDocumentID  *string
	VersionLabel          string
	FeedURL               string // metadata: which feed (if any) surfaced this URL
	CreatedAt             time.Time
}

// Snippet is a located, typed unit of text extracted from a Document
// (spec §3, §4.1). Snippets are created with their document and never
// mutated.
type Snippet struct {
	ID          string
	DocumentID  string
	Locator     string // stable, deterministic from document + position
	Text        string
	SnippetHash string // SHA-256(locator || '\0' || text); unique with DocumentID
	SnippetType string // text|table|list|equation
	CreatedAt   time.Time
}

// SnippetType enumerates the recognized snippet shapes (spec §4.1).
const (
	SnippetTypeText     = "text"
	SnippetTypeTable    = "table"
	SnippetTypeList     = "list"
	SnippetTypeEquation = "equation"
)
