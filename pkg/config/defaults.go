package config

import "time"

// DatabaseConfig describes the connection to the persistent store (spec §6:
// "database connection via an explicit URL or host/port/user/password/ssl
// fields; pool size configurable").
type DatabaseConfig struct {
	URL             string        `yaml:"url,omitempty"`
	Host            string        `yaml:"host,omitempty"`
	Port            int           `yaml:"port,omitempty"`
	User            string        `yaml:"user,omitempty"`
	Password        string        `yaml:"password,omitempty"`
	Database        string        `yaml:"database,omitempty"`
	SSLMode         string        `yaml:"ssl_mode,omitempty"`
	MaxOpenConns    int           `yaml:"max_open_conns,omitempty"`
	MaxIdleConns    int           `yaml:"max_idle_conns,omitempty"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime,omitempty"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time,omitempty"`
}

// DefaultDatabaseConfig returns baseline connection pool settings.
func DefaultDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

// JobConfig holds timeouts and batch limits for the pipeline stages and
// the job orchestrator (spec §4.8, §5).
type JobConfig struct {
	IngestTimeout    time.Duration `yaml:"ingest_timeout,omitempty"`
	URLIngestTimeout time.Duration `yaml:"url_ingest_timeout,omitempty"`

	ExtractLimit      int `yaml:"extract_limit,omitempty"`
	ConflictLimit     int `yaml:"conflict_limit,omitempty"`
	ScoreLimit        int `yaml:"score_limit,omitempty"`
	ExtractProgress   int `yaml:"extract_progress_every,omitempty"`
	DeriveProgress    int `yaml:"derive_progress_every,omitempty"`
	ExtractorSnippets int `yaml:"extractor_snippets_default,omitempty"`

	JobTimeoutHours      float64       `yaml:"job_timeout_hours,omitempty"`
	ReaperInterval       time.Duration `yaml:"reaper_interval,omitempty"`
	HandleGracePeriod    time.Duration `yaml:"handle_grace_period,omitempty"`
}

// DefaultJobConfig returns the spec-documented defaults for timeouts and
// batch sizes.
func DefaultJobConfig() *JobConfig {
	return &JobConfig{
		IngestTimeout:     30 * time.Second,
		URLIngestTimeout:  45 * time.Second,
		ExtractLimit:      1000,
		ConflictLimit:     500,
		ScoreLimit:        1000,
		ExtractProgress:   10,
		DeriveProgress:    5,
		ExtractorSnippets: 1000,
		JobTimeoutHours:   2,
		ReaperInterval:    30 * time.Minute,
		HandleGracePeriod: 60 * time.Second,
	}
}

// FeedConfig controls FeedFetcher batch behavior (spec §4.2).
type FeedConfig struct {
	MaxItems int `yaml:"max_items,omitempty"`
}

// DefaultFeedConfig returns the spec-documented default item cap.
func DefaultFeedConfig() *FeedConfig {
	return &FeedConfig{MaxItems: 50}
}

// HTTPConfig controls the gin HTTP adapter.
type HTTPConfig struct {
	Port    string `yaml:"port,omitempty"`
	GinMode string `yaml:"gin_mode,omitempty"`
}

// DefaultHTTPConfig returns baseline HTTP server settings.
func DefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{Port: "8080", GinMode: "release"}
}
