package serializer

import "github.com/ValentinKolb/dDoc/rpc/common"

// IRPCSerializer is the interface for the codecs of the outer multi get request
type IRPCSerializer interface {
	// Serialize serializes a MultiGetRequest into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(req common.MultiGetRequest) ([]byte, error)
	// Deserialize deserializes a byte array into a MultiGetRequest
	// It takes a byte array and a pointer to a MultiGetRequest as parameters
	// It returns an error if any
	Deserialize(b []byte, req *common.MultiGetRequest) error
	// ContentType returns the media type of the serialized data
	ContentType() string
}
