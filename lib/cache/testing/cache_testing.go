package testing

import (
	"bytes"
	"fmt"
	"github.com/ValentinKolb/dDoc/lib/cache"
	"sync"
	"testing"
)

// RunCacheTests runs the test suite every ICache implementation has to pass.
func RunCacheTests(t *testing.T, name string, factory cache.Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, newCache(t, factory))
		})

		t.Run("Miss", func(t *testing.T) {
			testMiss(t, newCache(t, factory))
		})

		t.Run("LastWriterWins", func(t *testing.T) {
			testLastWriterWins(t, newCache(t, factory))
		})

		t.Run("PayloadIsCopied", func(t *testing.T) {
			testPayloadIsCopied(t, newCache(t, factory))
		})

		t.Run("Concurrent", func(t *testing.T) {
			testConcurrent(t, newCache(t, factory))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// newCache creates a cache and closes it when the test ends
func newCache(t *testing.T, factory cache.Factory) cache.ICache {
	c, err := factory()
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Errorf("failed to close cache: %v", err)
		}
	})
	return c
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, c cache.ICache) {
	key := cache.Key("GET", "http://localhost:8080/databases/db/docs?&id=users/1")
	c.Set(key, "A:1-abc", []byte(`{"Results":[{"Name":"Oren"}]}`))

	entry, ok := c.Get(key)
	if !ok {
		t.Fatal("expected entry to be found")
	}
	if entry.Validator != "A:1-abc" {
		t.Errorf("expected validator A:1-abc, got %s", entry.Validator)
	}
	if string(entry.Payload) != `{"Results":[{"Name":"Oren"}]}` {
		t.Errorf("unexpected payload %s", entry.Payload)
	}
	if c.Size() != 1 {
		t.Errorf("expected size 1, got %d", c.Size())
	}
}

func testMiss(t *testing.T, c cache.ICache) {
	if _, ok := c.Get("GET-http://localhost/none"); ok {
		t.Error("expected no entry for unknown key")
	}
	if c.Size() != 0 {
		t.Errorf("expected empty cache, got size %d", c.Size())
	}
}

func testLastWriterWins(t *testing.T, c cache.ICache) {
	key := "GET-http://localhost/docs?id=a"
	c.Set(key, "v1", []byte("first"))
	c.Set(key, "v2", []byte("second"))

	entry, ok := c.Get(key)
	if !ok {
		t.Fatal("expected entry to be found")
	}
	if entry.Validator != "v2" || string(entry.Payload) != "second" {
		t.Errorf("expected second write to win, got %s/%s", entry.Validator, entry.Payload)
	}
	if c.Size() != 1 {
		t.Errorf("expected size 1, got %d", c.Size())
	}
}

func testPayloadIsCopied(t *testing.T, c cache.ICache) {
	buf := []byte("payload")
	c.Set("k", "v", buf)
	buf[0] = 'X'

	entry, _ := c.Get("k")
	if !bytes.Equal(entry.Payload, []byte("payload")) {
		t.Errorf("cache entry changed with the caller's buffer: %s", entry.Payload)
	}
}

func testConcurrent(t *testing.T, c cache.ICache) {
	const workers = 8
	const keys = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < keys; i++ {
				key := fmt.Sprintf("GET-/docs?id=%d", i)
				c.Set(key, fmt.Sprintf("v%d", w), []byte(key))
				if entry, ok := c.Get(key); !ok || string(entry.Payload) != key {
					t.Errorf("worker %d: unexpected entry for %s: %v %s", w, key, ok, entry.Payload)
				}
			}
		}(w)
	}
	wg.Wait()

	if c.Size() != keys {
		t.Errorf("expected %d entries, got %d", keys, c.Size())
	}
}
