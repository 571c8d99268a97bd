package ferrostore

import "fmt"

// ErrCode enumerates the stable error taxonomy every engine operation
// reports through. Ok is always the zero value so a freshly zeroed
// ErrCode reads as success.
type ErrCode int

const (
	Ok ErrCode = iota
	Generic
	InvalidParam
	NotFound
	NoBufferMemory
	NoMemorySpace
	NoIndexSpace
	CrcFailed
	Corrupted
	Version
	InvalidHandle
	InvalidState
)

func (c ErrCode) String() string {
	switch c {
	case Ok:
		return "Ok"
	case Generic:
		return "Generic"
	case InvalidParam:
		return "InvalidParam"
	case NotFound:
		return "NotFound"
	case NoBufferMemory:
		return "NoBufferMemory"
	case NoMemorySpace:
		return "NoMemorySpace"
	case NoIndexSpace:
		return "NoIndexSpace"
	case CrcFailed:
		return "CrcFailed"
	case Corrupted:
		return "Corrupted"
	case Version:
		return "Version"
	case InvalidHandle:
		return "InvalidHandle"
	case InvalidState:
		return "InvalidState"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type every public operation returns on
// failure. It carries enough context for the error ledger (§4.10) to
// record a useful last-error entry without the caller having to re-derive
// it from a bare error string.
type Error struct {
	Code          ErrCode
	Tag           uint16
	Msg           string
	Cause         error
	CorrelationID string

	// Required carries the buffer size a caller must retry with when Code
	// is NoBufferMemory (§4.4, §4.9).
	Required uint32
}

func (e *Error) Error() string {
	if e.Tag != 0 {
		return fmt.Sprintf("ferrostore: %s (tag=0x%04X): %s", e.Code, e.Tag, e.Msg)
	}
	return fmt.Sprintf("ferrostore: %s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError builds an Error with no underlying cause.
func NewError(code ErrCode, tag uint16, msg string) *Error {
	return &Error{Code: code, Tag: tag, Msg: msg}
}

// NewBufferError builds a NoBufferMemory error carrying the size the
// caller must retry with.
func NewBufferError(tag uint16, required uint32) *Error {
	return &Error{Code: NoBufferMemory, Tag: tag, Msg: "buffer too small", Required: required}
}

// WrapError builds an Error that wraps a lower-level cause, used for
// transport and CRC failures surfaced from the port or codec layers.
func WrapError(code ErrCode, tag uint16, msg string, cause error) *Error {
	return &Error{Code: code, Tag: tag, Msg: msg, Cause: cause}
}

// CodeOf extracts the ErrCode from err, or Generic if err is not a
// *ferrostore.Error (for instance a bare transport error that was never
// wrapped).
func CodeOf(err error) ErrCode {
	if err == nil {
		return Ok
	}
	if fe, ok := err.(*Error); ok {
		return fe.Code
	}
	return Generic
}
