package scache

import (
	"database/sql"
	"github.com/ValentinKolb/dDoc/lib/cache"
	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
	"sync"
	"time"
)

const (
	schema = `CREATE TABLE IF NOT EXISTS response_cache (
		cache_key  TEXT PRIMARY KEY,
		validator  TEXT NOT NULL,
		payload    BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	)`
	selectEntry = `SELECT validator, payload FROM response_cache WHERE cache_key = ?`
	upsertEntry = `INSERT INTO response_cache (cache_key, validator, payload, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			validator = excluded.validator,
			payload = excluded.payload,
			updated_at = excluded.updated_at`
	countEntries = `SELECT COUNT(*) FROM response_cache`
)

type cacheImpl struct {
	db *sql.DB
	mu sync.Mutex // Serializes writers
}

// NewSQLiteCache creates a cache persisted in the sqlite database at path.
// Use ":memory:" for a private in-memory database.
func NewSQLiteCache(path string) (cache.ICache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sqlite cache %s", path)
	}

	// a single connection, ":memory:" databases are per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "failed to create sqlite cache schema in %s", path)
	}

	cache.Logger.Infof("using sqlite cache at %s", path)
	return &cacheImpl{db: db}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see cache/interface.go)
// --------------------------------------------------------------------------

func (c *cacheImpl) Get(key string) (cache.Entry, bool) {
	var entry cache.Entry
	err := c.db.QueryRow(selectEntry, key).Scan(&entry.Validator, &entry.Payload)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		cache.RecordGet(false)
		return cache.Entry{}, false
	case err != nil:
		// a broken cache degrades to a miss
		cache.Logger.Warningf("failed to read %s from sqlite cache: %v", key, err)
		cache.RecordGet(false)
		return cache.Entry{}, false
	}
	cache.RecordGet(true)
	return entry, true
}

func (c *cacheImpl) Set(key string, validator string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.Exec(upsertEntry, key, validator, payload, time.Now().UnixMilli()); err != nil {
		cache.Logger.Warningf("failed to write %s to sqlite cache: %v", key, err)
		return
	}
	cache.RecordSet()
	cache.Logger.Debugf("set %s (validator %s, %d bytes)", key, validator, len(payload))
}

func (c *cacheImpl) Size() int {
	var n int
	if err := c.db.QueryRow(countEntries).Scan(&n); err != nil {
		cache.Logger.Warningf("failed to count sqlite cache entries: %v", err)
		return 0
	}
	return n
}

func (c *cacheImpl) Close() error {
	return c.db.Close()
}
