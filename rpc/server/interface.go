package server

import (
	"github.com/ferrokv/ferrokv/lib/ferrostore"
	"github.com/ferrokv/ferrokv/rpc/common"
)

// IRPCServerAdapter is the interface for the RPC server adapter. It is
// responsible for translating wire Messages into ferrostore.Store method
// calls and back.
type IRPCServerAdapter interface {
	// Handle handles a request against store and returns a response.
	// If an error occurs, it is set in the response rather than returned,
	// so the transport layer always has a Message to serialize back.
	Handle(req *common.Message, store ferrostore.Store) (resp *common.Message)
}
