package mcache

import (
	"github.com/ValentinKolb/dDoc/lib/cache"
	cachetesting "github.com/ValentinKolb/dDoc/lib/cache/testing"
	"testing"
)

func Test(t *testing.T) {
	cachetesting.RunCacheTests(t, "MemoryCache", func() (cache.ICache, error) {
		return NewMemoryCache(), nil
	})
}
