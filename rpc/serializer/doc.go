// Package serializer encodes the body of the outer multi get request.
//
// Key Components:
//
//   - IRPCSerializer: Interface of the codecs, Serialize/Deserialize a
//     common.MultiGetRequest and report the content type sent with it.
//
//   - jsonSerializerImpl: json-iterator in standard library compatible mode, so the
//     field names of the wire structs (Requests, Url, Query, Method, Headers, Content)
//     are written exactly as the server expects them.
//
// The response side is not handled here: the outer response is streamed through the
// pipeline package by the batch command instead of being deserialized in one piece.
package serializer
