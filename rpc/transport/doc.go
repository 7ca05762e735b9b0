// Package transport defines the contract between the request layer and the wire.
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations. A
//     transport selects the server node of the next outer request and sends the
//     serialized request to it. The response body is handed back unread so that it can
//     be streamed through the response pipeline.
//
//   - Request: The outer request (method, path relative to the database url, body).
//
// The node is selected before the request is built, because the cache keys of the
// sub-requests contain the base url of the node the batch is sent to.
package transport
