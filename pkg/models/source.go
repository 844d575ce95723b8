package models

import "time"

// Source is a publisher of documents about the domain (spec §3). Deleting
// a Source cascades to its SourceFeed, SourceUrl, and Document rows.
type Source struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"` // unique
	SourceType            string    `json:"source_type"`
	BaseTrust             float64   `json:"base_trust"` // ∈ [0,1]
	IndependenceClusterID string    `json:"independence_cluster_id,omitempty"`
	DefaultDocType        string    `json:"default_doc_type,omitempty"`
	IsActive              bool      `json:"is_active"`
	Tags                  []string  `json:"tags,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// SourceFeed is a syndication feed belonging to a Source (spec §4.2).
type SourceFeed struct {
	ID                     string     `json:"id"`
	SourceID               string     `json:"source_id"`
	FeedURL                string     `json:"feed_url"` // unique with SourceID
	FeedType               string     `json:"feed_type"` // rss|atom|json|html|api
	RefreshIntervalMinutes int        `json:"refresh_interval_minutes"`
	MaxItems               int        `json:"max_items,omitempty"`
	IsActive               bool       `json:"is_active"`
	LastFetchedAt          *time.Time `json:"last_fetched_at,omitempty"`
	LastError              string     `json:"last_error,omitempty"`
	ErrorCount             int        `json:"error_count"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// DueForRefresh reports whether the feed is due per spec §4.2: never
// fetched, or refreshIntervalMinutes have elapsed since the last fetch.
func (f *SourceFeed) DueForRefresh(now time.Time) bool {
	if f.LastFetchedAt == nil {
		return true
	}
	return now.Sub(*f.LastFetchedAt) > time.Duration(f.RefreshIntervalMinutes)*time.Minute
}

// SourceURL is a single fixed URL tracked for a Source, independent of
// any feed (spec §3).
type SourceURL struct {
	ID            string     `json:"id"`
	SourceID      string     `json:"source_id"`
	URL           string     `json:"url"` // unique with SourceID
	IsActive      bool       `json:"is_active"`
	LastFetchedAt *time.Time `json:"last_fetched_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
