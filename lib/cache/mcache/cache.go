package mcache

import (
	"github.com/ValentinKolb/dDoc/lib/cache"
	"github.com/puzpuzpuz/xsync/v3"
)

type cacheImpl struct {
	data *xsync.MapOf[string, cache.Entry]
}

// NewMemoryCache creates a new in-memory cache.
// Entries are kept until the process exits, no eviction is performed.
func NewMemoryCache() cache.ICache {
	return &cacheImpl{
		data: xsync.NewMapOf[string, cache.Entry](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see cache/interface.go)
// --------------------------------------------------------------------------

func (c *cacheImpl) Get(key string) (cache.Entry, bool) {
	entry, ok := c.data.Load(key)
	cache.RecordGet(ok)
	return entry, ok
}

func (c *cacheImpl) Set(key string, validator string, payload []byte) {
	// copy the payload, the caller may reuse its buffer
	stored := make([]byte, len(payload))
	copy(stored, payload)

	// Compute serializes writers of the same key
	c.data.Compute(key, func(_ cache.Entry, _ bool) (cache.Entry, bool) {
		return cache.Entry{Validator: validator, Payload: stored}, false
	})
	cache.RecordSet()
	cache.Logger.Debugf("set %s (validator %s, %d bytes)", key, validator, len(stored))
}

func (c *cacheImpl) Size() int {
	return c.data.Size()
}

func (c *cacheImpl) Close() error {
	c.data.Clear()
	return nil
}
