package cache

import (
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("cache")

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Entry is a cached sub-response payload together with the validator token
// (change vector) the server returned for it.
type Entry struct {
	Validator string
	Payload   []byte
}

// ICache is the store for cached sub-responses consulted by the batch command.
// It is shared by every batch command issued against the same database connection,
// so all implementations must be safe for concurrent use.
type ICache interface {
	// Get returns the entry for a key. The boolean return value indicates whether an entry was found.
	Get(key string) (entry Entry, loaded bool)
	// Set inserts or replaces the entry for a key. The last writer wins, entries are never merged.
	Set(key string, validator string, payload []byte)
	// Size returns the number of cached entries.
	Size() int
	// Close releases all resources held by the cache.
	Close() error
}

// Factory is a function type that creates the cache used by a client.
type Factory func() (ICache, error)

// Key computes the cache key of a sub-request from its method and absolute url.
func Key(method, absoluteURL string) string {
	return method + "-" + absoluteURL
}

// --------------------------------------------------------------------------
// Metrics (shared by all implementations)
// --------------------------------------------------------------------------

var (
	hitsTotal   = metrics.NewCounter(`ddoc_cache_requests_total{result="hit"}`)
	missesTotal = metrics.NewCounter(`ddoc_cache_requests_total{result="miss"}`)
	setsTotal   = metrics.NewCounter(`ddoc_cache_sets_total`)
)

// RecordGet updates the hit/miss counters. Implementations call it on every Get.
func RecordGet(loaded bool) {
	if loaded {
		hitsTotal.Inc()
	} else {
		missesTotal.Inc()
	}
}

// RecordSet updates the set counter. Implementations call it on every Set.
func RecordSet() {
	setsTotal.Inc()
}
