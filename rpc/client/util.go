package client

import (
	"fmt"
	"github.com/ferrokv/ferrokv/lib/ferrostore"
	"github.com/ferrokv/ferrokv/rpc/common"
	"github.com/ferrokv/ferrokv/rpc/serializer"
	"github.com/ferrokv/ferrokv/rpc/transport"
)

var (
	Logger = common.Component("rpc")
)

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
// Used by the RPC store client with composition pattern
type rpcClientAdapter struct {
	deviceId   uint64
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invokeRPCRequest is a helper function used for all RPC clients to send requests.
// It takes a device ID, a request message, a transport layer and a serializer as
// parameters and returns a response message and an error if any occurs. It also
// reconstructs a *ferrostore.Error from the response's Code/Required fields so
// callers can use ferrostore.CodeOf on errors that crossed the wire.
func invokeRPCRequest(deviceId uint64, req *common.Message, transport transport.IRPCClientTransport, serializer serializer.IRPCSerializer) (*common.Message, error) {
	// Serialize the request
	reqBytes, err := serializer.Serialize(*req)
	if err != nil {
		return nil, err
	}

	// Send the handler
	respBytes, err := transport.Send(deviceId, reqBytes)
	if err != nil {
		return nil, err
	}

	// Deserialize the response
	resp := &common.Message{}
	err = serializer.Deserialize(respBytes, resp)
	if err != nil {
		return nil, fmt.Errorf("rpc client - deserialize error: %s", err)
	}

	// Check if the response is an error response
	if resp.MsgType == common.MsgTError || resp.Err != "" {
		return nil, &ferrostore.Error{
			Code:     ferrostore.ErrCode(resp.Code),
			Tag:      req.Tag,
			Msg:      resp.Err,
			Required: resp.Required,
		}
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != req.MsgType {
		return nil, fmt.Errorf("rpc client - unexpected message type: %s, expected %s", resp.MsgType, req.MsgType)
	}

	// Return the response
	return resp, nil
}
