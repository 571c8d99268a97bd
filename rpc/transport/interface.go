package transport

import (
	"github.com/ferrokv/ferrokv/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc handles one request for the named device and returns its
// response. The transport layer has no notion of what a device is; it just
// routes opaque bytes keyed by deviceId to this function.
type ServerHandleFunc func(deviceId uint64, req []byte) (resp []byte)

// IRPCServerTransport is the interface rpc/server programs against. There is
// currently one implementation (rpc/transport/tcp); the interface stays in
// its own package so rpc/server and tests can depend on it without pulling
// in net.Listener machinery.
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	RegisterHandler(handler ServerHandleFunc)
	// Listen starts the transport layer and blocks serving connections
	Listen(config common.ServerConfig) error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request to the server and returns the response
	Send(deviceId uint64, req []byte) (resp []byte, err error)
	// Close closes the transport connection
	Close() error
}
