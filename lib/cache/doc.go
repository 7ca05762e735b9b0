// Package cache defines the store for cached sub-responses used by the batch command
// to issue conditional requests.
//
// An entry pairs the payload of a sub-response with the validator token (change
// vector) the server sent for it. The batch command attaches the validator as an
// If-None-Match header to the next request for the same key; when the server answers
// with 304 Not Modified the cached payload is used instead of a transferred one.
//
// Key Components:
//
//   - ICache Interface: Get/Set by key, safe for concurrent use. Writers of the same
//     key are serialized and the last writer wins. No eviction or expiry policy is
//     defined, it is left to the implementation.
//
//   - Key: Builds a cache key as method + "-" + absolute url.
//
// Implementations:
//
//	- Memory Cache (mcache): entries in an xsync.MapOf, lost on process exit.
//	  Available in the "github.com/ValentinKolb/dDoc/lib/cache/mcache" package.
//
//	- SQLite Cache (scache): entries persisted in a sqlite database file, so that
//	  validators survive restarts of a command line client.
//	  Available in the "github.com/ValentinKolb/dDoc/lib/cache/scache" package.
//
// All implementations report hits, misses and sets to the process wide
// VictoriaMetrics registry (ddoc_cache_requests_total, ddoc_cache_sets_total).
package cache
