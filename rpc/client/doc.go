// Package client implements the batch command of the document client.
//
// Key Components:
//
//   - MultiGetCommand: Packs a list of common.GetRequest into one outer POST to
//     "<node>/databases/<db>/multi_get" and decodes the outer response with the
//     pipeline package into a list of common.GetResponse aligned with the requests.
//
// Conditional Caching:
//
//	Every sub-request has a cache key (method + "-" + absolute url). When the cache
//	holds an entry for the key, its validator is sent as If-None-Match header. Caller
//	headers are merged afterwards and win on collisions.
//
//	Fresh sub-responses carrying an ETag and a payload are written to the cache. A
//	304 sub-response gets the cached payload substituted, a 304 without cache entry
//	fails the whole call with a CacheInconsistency error.
//
//	Cache writes are staged while the outer response is decoded and applied in
//	request order only after the decode finished, so an aborted or malformed call
//	leaves the cache untouched.
//
// Key Casing:
//
//	The outer envelope (StatusCode, Headers, Result, ...) is kept verbatim. The
//	documents below Result.Results and Result.Includes are re-cased to the configured
//	entity convention. Keys starting with @ and the @metadata subtree are never re-cased.
//
// Usage Example:
//
//	config := common.DefaultClientConfig()
//	cmd, err := client.NewMultiGetCommand(
//		mcache.NewMemoryCache(),
//		http.NewHttpClientTransport(),
//		serializer.NewJSONSerializer(),
//		config,
//	)
//	if err != nil {
//		// handle error
//	}
//	responses, err := cmd.Execute(ctx, []*common.GetRequest{
//		{URL: "/docs", Query: "?&id=users%2F1"},
//	})
package client
