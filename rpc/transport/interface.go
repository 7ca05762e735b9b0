package transport

import (
	"context"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"io"
)

// Request is one outer request sent to a server node
type Request struct {
	// Method of the http request (e.g. POST)
	Method string
	// Path relative to the base url of the node (e.g. "/multi_get")
	Path string
	// Body is the already serialized request body, may be nil
	Body []byte
	// ContentType of the body
	ContentType string
}

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// SelectNode returns the node the next outer request should be sent to
	SelectNode() (common.ServerNode, error)
	// Send sends a request to the given node and returns the (unread) response body.
	// The caller must close the returned body.
	Send(ctx context.Context, node common.ServerNode, req *Request) (io.ReadCloser, error)
	// Close closes the transport connection
	Close() error
}
