// Package llmcache is an on-disk cache of LLM responses keyed by request
// ID, backing the enableCaching session option: the Façade evicts a
// request's cache entry whenever that request's loop terminates in
// failure, per the error handling policy. Concurrent act/extract/observe
// calls on one session share this cache (see the concurrency model in
// SPEC_FULL.md), so writes go through dbopen.Exec's SQLITE_BUSY retry
// instead of a bare db.Exec.
package llmcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hazyhaar/domloop/dbopen"
)

const schema = `
CREATE TABLE IF NOT EXISTS llm_cache (
	request_id TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
`

// Cache is a SQLite-backed request-id -> payload store.
type Cache struct {
	db *sql.DB
}

// Open opens (creating if necessary) a cache database at path.
func Open(path string) (*Cache, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(schema))
	if err != nil {
		return nil, fmt.Errorf("llmcache: open: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Put stores payload under requestID, overwriting any prior entry.
func (c *Cache) Put(ctx context.Context, requestID string, payload []byte, createdAtUnix int64) error {
	_, err := dbopen.Exec(ctx, c.db,
		`INSERT INTO llm_cache (request_id, payload, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(request_id) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at`,
		requestID, payload, createdAtUnix,
	)
	if err != nil {
		return fmt.Errorf("llmcache: put: %w", err)
	}
	return nil
}

// Get returns the payload stored under requestID, if any.
func (c *Cache) Get(requestID string) ([]byte, bool, error) {
	var payload []byte
	err := c.db.QueryRow(`SELECT payload FROM llm_cache WHERE request_id = ?`, requestID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("llmcache: get: %w", err)
	}
	return payload, true, nil
}

// Evict removes requestID's cache entry, if present. Called on the
// Façade's failure path. Evicting a missing key is not an error.
func (c *Cache) Evict(ctx context.Context, requestID string) error {
	if _, err := dbopen.Exec(ctx, c.db, `DELETE FROM llm_cache WHERE request_id = ?`, requestID); err != nil {
		return fmt.Errorf("llmcache: evict: %w", err)
	}
	return nil
}
