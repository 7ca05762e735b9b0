// Package common provides the data structures and utilities shared by the client
// layers: the logical request/response types, the wire format of the multi get
// endpoint, the client configuration and the logger setup.
//
// Key Components:
//
//   - GetRequest / GetResponse: One logical sub-request of a batch and its result.
//     A GetResponse is produced strictly in the order of the GetRequests, there is
//     no correlation id. ForceRetry marks a result the operation has to request again.
//
//   - MultiGetRequest: The outer request body ({"Requests": [{Url, Query, Method,
//     Headers, Content}, ...]}). The outer response is {"Results": [{StatusCode,
//     Headers, Result}, ...]} and is decoded by the batch command with the pipeline
//     package, NewGetResponse converts one decoded element.
//
//   - ServerNode: The node and database a batch is sent to, the base of all cache keys.
//
//   - ClientConfig: Endpoints, database, timeouts and retries of the transport, the
//     retry bound of lazy flushes, the document field casing and the cache backend.
//
//   - Logger: Custom formatting for the dragonboat logger facade used by all packages.
package common
