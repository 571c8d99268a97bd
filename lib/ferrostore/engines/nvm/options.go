package nvm

import "github.com/ferrokv/ferrokv/lib/ferrostore/engines/nvm/internal"

// Options are the compile-time configuration knobs of §6.5, exposed here
// as a run-time struct (following a common engine-options pattern)
// rather than build tags, since a Go embedding host decides these at
// process start rather than at compile time.
type Options struct {
	// DeviceSize is the total addressable NVM byte size (>= 64 KiB
	// recommended, not enforced here so tests can use much smaller
	// devices).
	DeviceSize uint32

	// MaxTags is the index table capacity. Must be <= 256.
	MaxTags int

	// BufferSize is the in-RAM scratch buffer size, used by defragment and
	// streaming. Must be >= 256.
	BufferSize int

	// Region offsets. Must satisfy HeaderOff < IndexOff < DataOff <
	// BackupOff, and BackupOff + (DataOff-HeaderOff) <= DeviceSize.
	HeaderOff uint32
	IndexOff  uint32
	DataOff   uint32
	BackupOff uint32

	// EnableMigration compiles in the lazy migrator (§4.9).
	EnableMigration bool

	// LazyMigrateOnRead engages the migrator during Read when an entry's
	// version trails the schema's.
	LazyMigrateOnRead bool

	// AutoMigrateOnBoot runs a migrate-all sweep right after Init.
	AutoMigrateOnBoot bool

	// AutoCleanFragment triggers Defragment at the tail of Write once
	// fragmentation crosses FragmentThresholdPercent.
	AutoCleanFragment        bool
	FragmentThresholdPercent float64

	// MaxStreamHandles bounds the stream session pool (>= 1).
	MaxStreamHandles int

	// ErrorHistorySize is the error ledger ring depth (0 disables the
	// ring; the last-error record is always kept regardless).
	ErrorHistorySize int

	// MetricsLabel distinguishes this engine's exported metric series from
	// any other engine sharing a /metrics endpoint (the RPC daemon labels
	// this with the device ID). Empty is fine for a single-engine process;
	// the metric names are then unlabeled.
	MetricsLabel string
}

// DefaultOptions lays out a device of the given size with the header and
// index at the front, a backup region the same size as the management
// area mirrored at the tail, and the data region filling the remainder.
func DefaultOptions(deviceSize uint32) Options {
	const (
		maxTags    = 128
		bufferSize = 512
	)

	headerOff := uint32(0)
	indexOff := headerOff + uint32(internal.HeaderSize)
	dataOff := indexOff + uint32(maxTags*internal.IndexEntrySize) + 2 // +index_crc16
	backupSize := dataOff - headerOff
	backupOff := deviceSize - backupSize

	return Options{
		DeviceSize:               deviceSize,
		MaxTags:                  maxTags,
		BufferSize:               bufferSize,
		HeaderOff:                headerOff,
		IndexOff:                 indexOff,
		DataOff:                  dataOff,
		BackupOff:                backupOff,
		EnableMigration:          true,
		LazyMigrateOnRead:        true,
		AutoMigrateOnBoot:        false,
		AutoCleanFragment:        true,
		FragmentThresholdPercent: 25.0,
		MaxStreamHandles:         4,
		ErrorHistorySize:         16,
	}
}
