package client

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ferrokv/ferrokv/lib/ferrostore"
	"github.com/ferrokv/ferrokv/rpc/common"
	"github.com/ferrokv/ferrokv/rpc/serializer"
	"github.com/ferrokv/ferrokv/rpc/transport"
)

// NewRPCStore creates a ferrostore.Store client that forwards every
// operation to a remote ferrokv daemon over the given transport.
// The function takes a device ID, a client config, a transport and a
// serializer as parameters and returns a ferrostore.Store and an error.
func NewRPCStore(
	deviceId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (ferrostore.Store, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	// Create a new RPC store
	s := rpcStore{
		rpcClientAdapter{
			deviceId:   deviceId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}

	// Return the RPC store
	return &s, nil
}

type rpcStore struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see ferrostore.Store)
// --------------------------------------------------------------------------

// Version reports the fixed string "rpc-client". The RPC layer has no
// op for the daemon-side engine version, so it is not fetched.
func (i *rpcStore) Version() string {
	return "rpc-client"
}

// Init/Deinit are lifecycle operations owned by the server process that
// opens the device; an RPC client connects to an already-initialized
// device and has no business re-running them remotely.
func (i *rpcStore) Init() (ferrostore.State, error) {
	return ferrostore.StateUninitialized, fmt.Errorf("rpc client - Init() is not supported remotely, the server owns device lifecycle")
}

func (i *rpcStore) Deinit() error {
	return nil
}

func (i *rpcStore) Format(magic uint32) error {
	req := common.NewFormatRequest(magic)
	_, err := invokeRPCRequest(i.deviceId, req, i.transport, i.serializer)
	return err
}

func (i *rpcStore) State() ferrostore.State {
	req := common.NewStateRequest()
	resp, err := invokeRPCRequest(i.deviceId, req, i.transport, i.serializer)
	if err != nil {
		return ferrostore.StateError
	}
	return ferrostore.State(resp.State)
}

func (i *rpcStore) Write(tag uint16, data []byte) error {
	req := common.NewWriteRequest(tag, data)
	_, err := invokeRPCRequest(i.deviceId, req, i.transport, i.serializer)
	return err
}

func (i *rpcStore) Read(tag uint16, buf []byte) (int, error) {
	req := common.NewReadRequest(tag, uint32(len(buf)))
	resp, err := invokeRPCRequest(i.deviceId, req, i.transport, i.serializer)
	if err != nil {
		return 0, err
	}
	n := copy(buf, resp.Data)
	return n, nil
}

func (i *rpcStore) Delete(tag uint16) error {
	req := common.NewDeleteRequest(tag)
	_, err := invokeRPCRequest(i.deviceId, req, i.transport, i.serializer)
	return err
}

func (i *rpcStore) Flush() error {
	req := common.NewFlushRequest()
	_, err := invokeRPCRequest(i.deviceId, req, i.transport, i.serializer)
	return err
}

func (i *rpcStore) Exists(tag uint16) bool {
	req := common.NewExistsRequest(tag)
	resp, err := invokeRPCRequest(i.deviceId, req, i.transport, i.serializer)
	if err != nil {
		return false
	}
	return resp.Exists
}

func (i *rpcStore) Length(tag uint16) (uint32, error) {
	req := common.NewLengthRequest(tag)
	resp, err := invokeRPCRequest(i.deviceId, req, i.transport, i.serializer)
	if err != nil {
		return 0, err
	}
	return resp.Length, nil
}

// ReadBatch and WriteBatch have no dedicated wire ops; each element is
// sent as its own Read/Write request, matching the engine's own
// no-cross-element-atomicity contract.
func (i *rpcStore) ReadBatch(tags []uint16, bufs [][]byte) (successes int, errs []error) {
	errs = make([]error, len(tags))
	for idx, tag := range tags {
		n, err := i.Read(tag, bufs[idx])
		if err != nil {
			errs[idx] = err
			continue
		}
		bufs[idx] = bufs[idx][:n]
		successes++
	}
	return successes, errs
}

func (i *rpcStore) WriteBatch(tags []uint16, datas [][]byte) (successes int, errs []error) {
	errs = make([]error, len(tags))
	for idx, tag := range tags {
		if err := i.Write(tag, datas[idx]); err != nil {
			errs[idx] = err
			continue
		}
		successes++
	}
	return successes, errs
}

func (i *rpcStore) WriteBegin(tag uint16, totalLen uint32) (ferrostore.Handle, error) {
	req := common.NewWriteBeginRequest(tag, totalLen)
	resp, err := invokeRPCRequest(i.deviceId, req, i.transport, i.serializer)
	if err != nil {
		return 0, err
	}
	return ferrostore.Handle(resp.Handle), nil
}

func (i *rpcStore) WriteChunk(h ferrostore.Handle, data []byte) error {
	req := common.NewWriteChunkRequest(uint32(h), data)
	_, err := invokeRPCRequest(i.deviceId, req, i.transport, i.serializer)
	return err
}

func (i *rpcStore) WriteEnd(h ferrostore.Handle) error {
	req := common.NewWriteEndRequest(uint32(h))
	_, err := invokeRPCRequest(i.deviceId, req, i.transport, i.serializer)
	return err
}

func (i *rpcStore) WriteAbort(h ferrostore.Handle) error {
	req := common.NewWriteAbortRequest(uint32(h))
	_, err := invokeRPCRequest(i.deviceId, req, i.transport, i.serializer)
	return err
}

func (i *rpcStore) ReadBegin(tag uint16) (ferrostore.Handle, uint32, error) {
	req := common.NewReadBeginRequest(tag)
	resp, err := invokeRPCRequest(i.deviceId, req, i.transport, i.serializer)
	if err != nil {
		return 0, 0, err
	}
	return ferrostore.Handle(resp.Handle), resp.Length, nil
}

func (i *rpcStore) ReadChunk(h ferrostore.Handle, buf []byte) (int, error) {
	req := common.NewReadChunkRequest(uint32(h), uint32(len(buf)))
	resp, err := invokeRPCRequest(i.deviceId, req, i.transport, i.serializer)
	if err != nil {
		return 0, err
	}
	return copy(buf, resp.Data), nil
}

func (i *rpcStore) ReadEnd(h ferrostore.Handle) error {
	req := common.NewReadEndRequest(uint32(h))
	_, err := invokeRPCRequest(i.deviceId, req, i.transport, i.serializer)
	return err
}

func (i *rpcStore) ReadAbort(h ferrostore.Handle) error {
	req := common.NewReadAbortRequest(uint32(h))
	_, err := invokeRPCRequest(i.deviceId, req, i.transport, i.serializer)
	return err
}

func (i *rpcStore) Defragment() error {
	req := common.NewDefragmentRequest()
	_, err := invokeRPCRequest(i.deviceId, req, i.transport, i.serializer)
	return err
}

func (i *rpcStore) VerifyAll() ([]uint16, error) {
	req := common.NewVerifyAllRequest()
	resp, err := invokeRPCRequest(i.deviceId, req, i.transport, i.serializer)
	if err != nil {
		return nil, err
	}
	return resp.Tags, nil
}

func (i *rpcStore) BackupAll() error {
	req := common.NewBackupAllRequest()
	_, err := invokeRPCRequest(i.deviceId, req, i.transport, i.serializer)
	return err
}

func (i *rpcStore) RestoreFromBackup() error {
	req := common.NewRestoreFromBackupRequest()
	_, err := invokeRPCRequest(i.deviceId, req, i.transport, i.serializer)
	return err
}

// FreeSpace, UsedSpace and FragmentationPercent all derive from the same
// Statistics() round trip; there is no per-field op on the wire.
func (i *rpcStore) FreeSpace() uint32 {
	return i.Statistics().FreeSpace
}

func (i *rpcStore) UsedSpace() uint32 {
	return i.Statistics().UsedSpace
}

func (i *rpcStore) FragmentationPercent() float64 {
	return i.Statistics().FragmentationPercent
}

func (i *rpcStore) Statistics() ferrostore.Stats {
	req := common.NewStatisticsRequest()
	resp, err := invokeRPCRequest(i.deviceId, req, i.transport, i.serializer)
	if err != nil {
		return ferrostore.Stats{}
	}
	var stats ferrostore.Stats
	if jsonErr := json.Unmarshal(resp.Stats, &stats); jsonErr != nil {
		Logger.Error().Msgf("failed to decode statistics response: %v", jsonErr)
		return ferrostore.Stats{}
	}
	return stats
}

// ForEach requires iterating live tags on the device side; there is no
// streaming wire op for it, so a remote client cannot implement it.
func (i *rpcStore) ForEach(fn ferrostore.ForEachFunc) error {
	return fmt.Errorf("rpc client - ForEach() is not supported remotely")
}

// WritePrometheus is server-side exposition (the daemon's own /metrics
// handler reads the engine directly); there is no wire op for it, so a
// remote client writes nothing.
func (i *rpcStore) WritePrometheus(w io.Writer) {}

// The error ledger lives in the server process's in-memory ring; it is
// not mirrored over the wire, so a remote client reports Ok rather than
// guessing at stale state.
func (i *rpcStore) LastError() ferrostore.ErrCode {
	return ferrostore.Ok
}

func (i *rpcStore) LastErrorEx() ferrostore.ErrorContext {
	return ferrostore.ErrorContext{}
}

func (i *rpcStore) ClearError() {}

func (i *rpcStore) ErrorString(code ferrostore.ErrCode) string {
	return code.String()
}

func (i *rpcStore) ErrorHistory() []ferrostore.ErrorContext {
	return nil
}
