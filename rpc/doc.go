// Package rpc is the network facing request layer of the document client. It turns
// many logical reads into one outer request and decodes the streamed answer.
//
// The package is organized into several subpackages:
//
//   - common: Configuration, logging and the wire types shared by all layers
//     (GetRequest, GetResponse, the multi get envelopes and ServerNode).
//
//   - serializer: Encoding of the outer multi get request body.
//
//   - transport: The IRPCClientTransport abstraction and its HTTP implementation
//     with round robin node selection and retries.
//
//   - client: The batch command (MultiGetCommand) packing sub-requests into one
//     outer request with conditional caching per sub-request.
//
//   - lazy: Deferred operations (loads, prefix scans, queries), their futures and the
//     scheduler flushing them through the batch command.
package rpc
