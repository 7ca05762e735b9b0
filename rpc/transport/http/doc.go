// Package http implements the transport layer over HTTP using net/http.
//
// Key Components:
//
//   - httpClientTransport: Implements IRPCClientTransport. Endpoints are validated on
//     Connect and selected round-robin by SelectNode. Send posts the outer request to
//     the base url of the node and returns the body without reading it.
//
// Failures:
//
//	Network errors and 5xx responses are retried up to RetryCount attempts with an
//	exponential backoff (50ms, doubled per attempt, +-10% jitter). Other non 200
//	responses fail immediately with a Transport error that carries the first KB of
//	the response body. A cancelled context ends the retry loop with RequestAborted.
//
// Thread Safety:
//
//	The client transport is thread-safe after Connect. It uses an atomic counter for
//	the round-robin selection.
package http
