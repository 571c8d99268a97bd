package server

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ferrokv/ferrokv/lib/ferrostore"
	"github.com/ferrokv/ferrokv/rpc/common"
)

// NewStoreServerAdapter creates the adapter that dispatches wire Messages
// against a ferrostore.Store.
func NewStoreServerAdapter() IRPCServerAdapter {
	return &storeServerAdapterImpl{}
}

// storeServerAdapterImpl serializes every request onto the device's single
// cooperating-caller contract (§5) with a mutex: the engine itself assumes
// one caller at a time, and the adapter is that one caller on behalf of
// however many concurrent connections the transport layer fans in from.
type storeServerAdapterImpl struct {
	mu sync.Mutex
}

func (adapter *storeServerAdapterImpl) Handle(req *common.Message, store ferrostore.Store) *common.Message {
	if store == nil {
		return common.NewErrorResponse("handler: device is nil")
	}

	adapter.mu.Lock()
	defer adapter.mu.Unlock()

	switch req.MsgType {
	case common.MsgTWrite:
		err := store.Write(req.Tag, req.Data)
		return common.NewWriteResponse(err)

	case common.MsgTRead:
		buf := make([]byte, req.ExpectedLen)
		n, err := store.Read(req.Tag, buf)
		if err != nil {
			return common.NewReadResponse(nil, err)
		}
		return common.NewReadResponse(buf[:n], nil)

	case common.MsgTDelete:
		err := store.Delete(req.Tag)
		return common.NewDeleteResponse(err)

	case common.MsgTExists:
		return common.NewExistsResponse(store.Exists(req.Tag))

	case common.MsgTLength:
		length, err := store.Length(req.Tag)
		return common.NewLengthResponse(length, err)

	case common.MsgTFlush:
		err := store.Flush()
		return common.NewFlushResponse(err)

	case common.MsgTWriteBegin:
		h, err := store.WriteBegin(req.Tag, req.ExpectedLen)
		return common.NewWriteBeginResponse(uint32(h), err)

	case common.MsgTWriteChunk:
		err := store.WriteChunk(ferrostore.Handle(req.Handle), req.Data)
		return common.NewWriteChunkResponse(err)

	case common.MsgTWriteEnd:
		err := store.WriteEnd(ferrostore.Handle(req.Handle))
		return common.NewWriteEndResponse(err)

	case common.MsgTWriteAbort:
		err := store.WriteAbort(ferrostore.Handle(req.Handle))
		return common.NewWriteAbortResponse(err)

	case common.MsgTReadBegin:
		h, totalLen, err := store.ReadBegin(req.Tag)
		return common.NewReadBeginResponse(uint32(h), totalLen, err)

	case common.MsgTReadChunk:
		buf := make([]byte, req.ExpectedLen)
		n, err := store.ReadChunk(ferrostore.Handle(req.Handle), buf)
		if err != nil {
			return common.NewReadChunkResponse(nil, err)
		}
		return common.NewReadChunkResponse(buf[:n], nil)

	case common.MsgTReadEnd:
		err := store.ReadEnd(ferrostore.Handle(req.Handle))
		return common.NewReadEndResponse(err)

	case common.MsgTReadAbort:
		err := store.ReadAbort(ferrostore.Handle(req.Handle))
		return common.NewReadAbortResponse(err)

	case common.MsgTDefragment:
		err := store.Defragment()
		return common.NewDefragmentResponse(err)

	case common.MsgTVerifyAll:
		corrupted, err := store.VerifyAll()
		return common.NewVerifyAllResponse(corrupted, err)

	case common.MsgTBackupAll:
		err := store.BackupAll()
		return common.NewBackupAllResponse(err)

	case common.MsgTRestoreFromBackup:
		err := store.RestoreFromBackup()
		return common.NewRestoreFromBackupResponse(err)

	case common.MsgTStatistics:
		statsJSON, err := json.Marshal(store.Statistics())
		if err != nil {
			return common.NewStatisticsResponse(nil, err)
		}
		return common.NewStatisticsResponse(statsJSON, nil)

	case common.MsgTFormat:
		err := store.Format(req.Magic)
		return common.NewFormatResponse(err)

	case common.MsgTState:
		return common.NewStateResponse(uint8(store.State()))

	default:
		return common.NewErrorResponse(
			fmt.Sprintf("rpc server adapter - unsupported message type: %s", req.MsgType),
		)
	}
}
