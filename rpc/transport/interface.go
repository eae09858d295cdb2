package transport

import (
	"context"

	"github.com/ValentinKolb/kvorm/rpc/common"
)

// ServerHandleFunc answers one serialized request addressed to shardId.
// Errors are encoded in the response, a handler never fails.
type ServerHandleFunc func(shardId uint64, req []byte) (resp []byte)

// IRPCServerTransport accepts requests from the network and passes them to a handler
type IRPCServerTransport interface {
	// RegisterHandler sets the handler called for every request, before Listen
	RegisterHandler(handler ServerHandleFunc)
	// Listen serves config.Endpoint and blocks until Shutdown is called
	Listen(config common.ServerConfig) error
	// Shutdown stops accepting requests and waits for running ones until ctx is done
	Shutdown(ctx context.Context) error
}

// IRPCClientTransport delivers serialized requests to one of the configured servers
type IRPCClientTransport interface {
	// Connect prepares the transport, it must be called before Send
	Connect(config common.ClientConfig) error
	// Send delivers req to shardId and returns the raw response.
	// Retries across endpoints are up to the transport.
	Send(shardId uint64, req []byte) (resp []byte, err error)
	// Close releases idle connections
	Close() error
}
