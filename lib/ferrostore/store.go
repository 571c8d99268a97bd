// Package ferrostore defines the stable, engine-agnostic API (§6.3) of the
// tag-addressed key/value persistence engine: system lifecycle, data
// operations, batch operations, streaming sessions, maintenance, space
// accounting, iteration, and error reporting. The concrete implementation
// lives in engines/nvm; this package stays free of any on-media layout
// detail so callers (the RPC layer, the CLI, tests) depend only on
// behavior, the way a layered storage-engine interface decouples callers
// from any one concrete backend.
package ferrostore

import "io"

// State reports where the engine is in its lifecycle, mirroring the
// init() return values of §6.3.
type State int

const (
	StateUninitialized State = iota
	StateFirstBoot
	StateOk
	StateRecovered
	StateError
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateFirstBoot:
		return "FirstBoot"
	case StateOk:
		return "Ok"
	case StateRecovered:
		return "Recovered"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Handle identifies an open stream session. It is the magic-tagged token
// described in §9: the high bits are a fixed magic constant, the low bits
// are the session's slot index, so a stale handle from a reused slot
// reliably fails validation once the magic/generation no longer matches.
type Handle uint32

// Stats is the snapshot returned by Statistics(), covering the space and
// fragmentation accounting invariants of §3 and §8, plus the operation
// latency percentiles of §4.12.
type Stats struct {
	TagCount             uint16
	TotalWrites          uint32
	FreeSpace            uint32
	UsedSpace            uint32
	FragmentCount        uint32
	FragmentSize         uint32
	FragmentationPercent float64
	DataRegionSize       uint32
	NextFreeAddr         uint32

	WriteP50Ms       float64
	WriteP99Ms       float64
	ReadP50Ms        float64
	ReadP99Ms        float64
	DefragmentMeanMs float64
	PayloadAvgBytes  int
	PayloadP99Bytes  int
}

// ErrorContext is one entry of the error ledger (§4.10): the last-error
// record, optionally retained in a bounded ring.
type ErrorContext struct {
	Code          ErrCode
	Tag           uint16
	TimestampSecs uint32
	Function      string
	Msg           string
	CorrelationID string
}

// ForEachFunc is invoked once per live tag during ForEach; returning false
// stops the iteration early.
type ForEachFunc func(tag uint16, version uint8) bool

// Store is the complete engine surface a caller programs against.
// Implementations assume a single cooperating caller: no method is safe to
// call concurrently with another call on the same Store (§5).
type Store interface {
	// -- System --------------------------------------------------------

	// Version reports the engine's own build/format version string.
	Version() string

	// Init loads the device's management area, running automatic
	// backup-restore if the primary header or index fails verification.
	// Blank media is reported as StateFirstBoot and left unwritten.
	Init() (State, error)

	// Deinit releases any in-RAM mirrors. The device itself is untouched.
	Deinit() error

	// Format re-initializes header and index to a fresh, empty state
	// stamped with the given magic and writes a fresh backup.
	Format(magic uint32) error

	// State reports the engine's current lifecycle state.
	State() State

	// -- Data ------------------------------------------------------------

	Write(tag uint16, data []byte) error
	Read(tag uint16, buf []byte) (n int, err error)
	Delete(tag uint16) error
	Flush() error
	Exists(tag uint16) bool
	Length(tag uint16) (uint32, error)

	// -- Batch -------------------------------------------------------------
	// Both report the count of successful elements; there is no
	// cross-element atomicity (§4.5).

	ReadBatch(tags []uint16, bufs [][]byte) (successes int, errs []error)
	WriteBatch(tags []uint16, datas [][]byte) (successes int, errs []error)

	// -- Stream ------------------------------------------------------------

	WriteBegin(tag uint16, totalLen uint32) (Handle, error)
	WriteChunk(h Handle, data []byte) error
	WriteEnd(h Handle) error
	WriteAbort(h Handle) error

	ReadBegin(tag uint16) (h Handle, totalLen uint32, err error)
	ReadChunk(h Handle, buf []byte) (n int, err error)
	ReadEnd(h Handle) error
	ReadAbort(h Handle) error

	// -- Maintenance ---------------------------------------------------

	Defragment() error
	VerifyAll() (corrupted []uint16, err error)
	BackupAll() error
	RestoreFromBackup() error

	// -- Space -----------------------------------------------------------

	FreeSpace() uint32
	UsedSpace() uint32
	FragmentationPercent() float64

	// -- Query -------------------------------------------------------------

	Statistics() Stats
	ForEach(fn ForEachFunc) error

	// WritePrometheus renders the engine's §4.12 gauge/counter set in
	// Prometheus text exposition format, for the RPC daemon's /metrics
	// handler.
	WritePrometheus(w io.Writer)

	// -- Errors ----------------------------------------------------------

	LastError() ErrCode
	LastErrorEx() ErrorContext
	ClearError()
	ErrorString(code ErrCode) string
	ErrorHistory() []ErrorContext
}
