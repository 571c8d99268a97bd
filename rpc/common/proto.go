package common

import (
	"encoding/json"
	"fmt"

	"github.com/ferrokv/ferrokv/lib/ferrostore"
)

func asFerrostoreError(err error) (*ferrostore.Error, bool) {
	fe, ok := err.(*ferrostore.Error)
	return fe, ok
}

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and
// responses. Which fields are used depends on MsgType. It mirrors the
// shape of ferrostore.Store's operations directly: a tag instead of a
// string key, an optional Handle for stream operations, and a Code that
// lets a client reconstruct the exact ferrostore.ErrCode without parsing
// Err's free text.
type Message struct {
	MsgType MessageType `json:"msg_type"`

	// General fields
	Tag         uint16 `json:"tag,omitempty"`
	Data        []byte `json:"data,omitempty"`        // Write request payload / Read response payload
	ExpectedLen uint32 `json:"expectedLen,omitempty"` // WriteBegin's declared total length
	Handle      uint32 `json:"handle,omitempty"`      // Stream session handle
	Magic       uint32 `json:"magic,omitempty"`       // Format request magic

	// Response fields
	Ok       bool     `json:"ok,omitempty"`
	Length   uint32   `json:"length,omitempty"`
	Exists   bool     `json:"exists,omitempty"`
	Tags     []uint16 `json:"tags,omitempty"`
	Stats    []byte   `json:"stats,omitempty"` // JSON-encoded ferrostore.Stats
	State    uint8    `json:"state,omitempty"`

	// Error fields
	Err      string `json:"err,omitempty"`
	Code     uint8  `json:"code,omitempty"`
	Required uint32 `json:"required,omitempty"`

	// Meta information, unused by any built-in operation but left
	// available for an embedding application's own adapters.
	Meta []byte `json:"meta,omitempty"`
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

func NewWriteRequest(tag uint16, data []byte) *Message {
	return &Message{MsgType: MsgTWrite, Tag: tag, Data: data}
}

func NewWriteResponse(err error) *Message {
	return withErr(&Message{MsgType: MsgTWrite}, err)
}

func NewReadRequest(tag uint16, bufferSize uint32) *Message {
	return &Message{MsgType: MsgTRead, Tag: tag, ExpectedLen: bufferSize}
}

func NewReadResponse(data []byte, err error) *Message {
	return withErr(&Message{MsgType: MsgTRead, Data: data}, err)
}

func NewDeleteRequest(tag uint16) *Message {
	return &Message{MsgType: MsgTDelete, Tag: tag}
}

func NewDeleteResponse(err error) *Message {
	return withErr(&Message{MsgType: MsgTDelete}, err)
}

func NewExistsRequest(tag uint16) *Message {
	return &Message{MsgType: MsgTExists, Tag: tag}
}

func NewExistsResponse(exists bool) *Message {
	return &Message{MsgType: MsgTExists, Exists: exists}
}

func NewLengthRequest(tag uint16) *Message {
	return &Message{MsgType: MsgTLength, Tag: tag}
}

func NewLengthResponse(length uint32, err error) *Message {
	return withErr(&Message{MsgType: MsgTLength, Length: length}, err)
}

func NewFlushRequest() *Message {
	return &Message{MsgType: MsgTFlush}
}

func NewFlushResponse(err error) *Message {
	return withErr(&Message{MsgType: MsgTFlush}, err)
}

func NewWriteBeginRequest(tag uint16, totalLen uint32) *Message {
	return &Message{MsgType: MsgTWriteBegin, Tag: tag, ExpectedLen: totalLen}
}

func NewWriteBeginResponse(handle uint32, err error) *Message {
	return withErr(&Message{MsgType: MsgTWriteBegin, Handle: handle}, err)
}

func NewWriteChunkRequest(handle uint32, data []byte) *Message {
	return &Message{MsgType: MsgTWriteChunk, Handle: handle, Data: data}
}

func NewWriteChunkResponse(err error) *Message {
	return withErr(&Message{MsgType: MsgTWriteChunk}, err)
}

func NewWriteEndRequest(handle uint32) *Message {
	return &Message{MsgType: MsgTWriteEnd, Handle: handle}
}

func NewWriteEndResponse(err error) *Message {
	return withErr(&Message{MsgType: MsgTWriteEnd}, err)
}

func NewWriteAbortRequest(handle uint32) *Message {
	return &Message{MsgType: MsgTWriteAbort, Handle: handle}
}

func NewWriteAbortResponse(err error) *Message {
	return withErr(&Message{MsgType: MsgTWriteAbort}, err)
}

func NewReadBeginRequest(tag uint16) *Message {
	return &Message{MsgType: MsgTReadBegin, Tag: tag}
}

func NewReadBeginResponse(handle uint32, totalLen uint32, err error) *Message {
	return withErr(&Message{MsgType: MsgTReadBegin, Handle: handle, Length: totalLen}, err)
}

func NewReadChunkRequest(handle uint32, maxLen uint32) *Message {
	return &Message{MsgType: MsgTReadChunk, Handle: handle, ExpectedLen: maxLen}
}

func NewReadChunkResponse(data []byte, err error) *Message {
	return withErr(&Message{MsgType: MsgTReadChunk, Data: data}, err)
}

func NewReadEndRequest(handle uint32) *Message {
	return &Message{MsgType: MsgTReadEnd, Handle: handle}
}

func NewReadEndResponse(err error) *Message {
	return withErr(&Message{MsgType: MsgTReadEnd}, err)
}

func NewReadAbortRequest(handle uint32) *Message {
	return &Message{MsgType: MsgTReadAbort, Handle: handle}
}

func NewReadAbortResponse(err error) *Message {
	return withErr(&Message{MsgType: MsgTReadAbort}, err)
}

func NewDefragmentRequest() *Message {
	return &Message{MsgType: MsgTDefragment}
}

func NewDefragmentResponse(err error) *Message {
	return withErr(&Message{MsgType: MsgTDefragment}, err)
}

func NewVerifyAllRequest() *Message {
	return &Message{MsgType: MsgTVerifyAll}
}

func NewVerifyAllResponse(corrupted []uint16, err error) *Message {
	return withErr(&Message{MsgType: MsgTVerifyAll, Tags: corrupted}, err)
}

func NewBackupAllRequest() *Message {
	return &Message{MsgType: MsgTBackupAll}
}

func NewBackupAllResponse(err error) *Message {
	return withErr(&Message{MsgType: MsgTBackupAll}, err)
}

func NewRestoreFromBackupRequest() *Message {
	return &Message{MsgType: MsgTRestoreFromBackup}
}

func NewRestoreFromBackupResponse(err error) *Message {
	return withErr(&Message{MsgType: MsgTRestoreFromBackup}, err)
}

func NewStatisticsRequest() *Message {
	return &Message{MsgType: MsgTStatistics}
}

func NewStatisticsResponse(statsJSON []byte, err error) *Message {
	return withErr(&Message{MsgType: MsgTStatistics, Stats: statsJSON}, err)
}

func NewFormatRequest(magic uint32) *Message {
	return &Message{MsgType: MsgTFormat, Magic: magic}
}

func NewFormatResponse(err error) *Message {
	return withErr(&Message{MsgType: MsgTFormat}, err)
}

func NewStateRequest() *Message {
	return &Message{MsgType: MsgTState}
}

func NewStateResponse(state uint8) *Message {
	return &Message{MsgType: MsgTState, State: state}
}

func NewCustomRequest(meta []byte) *Message {
	return &Message{MsgType: MsgTCustom, Meta: meta}
}

func NewCustomResponse(meta []byte, err error) *Message {
	return withErr(&Message{MsgType: MsgTCustom, Meta: meta}, err)
}

func NewErrorResponse(err string) *Message {
	return &Message{MsgType: MsgTError, Err: err}
}

func withErr(msg *Message, err error) *Message {
	if err != nil {
		msg.Err = err.Error()
		if fe, ok := asFerrostoreError(err); ok {
			msg.Code = uint8(fe.Code)
			msg.Required = fe.Required
		}
	} else {
		msg.Ok = true
	}
	return msg
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

func (t MessageType) String() string {
	if s, ok := messageTypeNames[t]; ok {
		return s
	}
	return "unknown"
}

var messageTypeNames = map[MessageType]string{
	MsgTWrite:              "write",
	MsgTRead:               "read",
	MsgTDelete:             "delete",
	MsgTExists:             "exists",
	MsgTLength:             "length",
	MsgTFlush:              "flush",
	MsgTWriteBegin:         "writeBegin",
	MsgTWriteChunk:         "writeChunk",
	MsgTWriteEnd:           "writeEnd",
	MsgTWriteAbort:         "writeAbort",
	MsgTReadBegin:          "readBegin",
	MsgTReadChunk:          "readChunk",
	MsgTReadEnd:            "readEnd",
	MsgTReadAbort:          "readAbort",
	MsgTDefragment:         "defragment",
	MsgTVerifyAll:          "verifyAll",
	MsgTBackupAll:          "backupAll",
	MsgTRestoreFromBackup:  "restoreFromBackup",
	MsgTStatistics:         "statistics",
	MsgTFormat:             "format",
	MsgTState:              "state",
	MsgTCustom:             "custom",
	MsgTError:              "error",
	MsgTSuccess:            "success",
}

var messageTypesByName = func() map[string]MessageType {
	out := make(map[string]MessageType, len(messageTypeNames))
	for t, s := range messageTypeNames {
		out[s] = t
	}
	return out
}()

func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, ok := messageTypesByName[s]
	if !ok {
		return fmt.Errorf("unknown message type: %s", s)
	}
	*t = v
	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	MsgTUnknown MessageType = iota
	MsgTSuccess
	MsgTError

	// Core KV operations (ferrostore.Store, §4.5)
	MsgTWrite
	MsgTRead
	MsgTDelete
	MsgTExists
	MsgTLength
	MsgTFlush

	// Stream session operations (§4.6)
	MsgTWriteBegin
	MsgTWriteChunk
	MsgTWriteEnd
	MsgTWriteAbort
	MsgTReadBegin
	MsgTReadChunk
	MsgTReadEnd
	MsgTReadAbort

	// Maintenance operations (§4.7, §4.8)
	MsgTDefragment
	MsgTVerifyAll
	MsgTBackupAll
	MsgTRestoreFromBackup
	MsgTStatistics

	// Lifecycle operations (§4.1)
	MsgTFormat
	MsgTState

	// Custom operations
	MsgTCustom
)
