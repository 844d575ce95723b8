// Package store provides the PostgreSQL persistence layer for the truth
// ledger: schema migrations, connection pooling, and the Store interface
// used by every pipeline component (spec §3, §6 "Persisted state").
package store

import (
	"fmt"

	"github.com/truthledger/truthledger/pkg/config"
)

// dsn builds a libpq-style connection string from a DatabaseConfig,
// preferring an explicit URL when one is set (spec §6 "database
// connection via an explicit URL or host/port/user/password/ssl fields").
func dsn(cfg *config.DatabaseConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)
}
