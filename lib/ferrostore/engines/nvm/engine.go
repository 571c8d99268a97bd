// Package nvm is the concrete ferrostore.Store implementation over a
// byte-addressable NVM device. Where a sharded in-memory map engine
// partitions a map into xsync-backed shards, Engine partitions a flat
// byte device into a system header, an index table, and a data region,
// all mediated through a port.Port transport instead of host RAM.
package nvm

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/ferrokv/ferrokv/lib/ferrostore"
	"github.com/ferrokv/ferrokv/lib/ferrostore/engines/nvm/internal"
	"github.com/ferrokv/ferrokv/lib/port"
	"github.com/ferrokv/ferrokv/lib/schema"
)

// EngineVersion is the engine's own build/format version string, reported
// by Version() and distinct from the on-media FormatVersion.
const EngineVersion = "ferrokv-nvm/1.0"

// snapshot is the six header bookkeeping scalars saved at the start of a
// mutating operation for rollback (§4.3, §9's "Snapshot" glossary entry).
type snapshot struct {
	nextFreeAddr  uint32
	usedSpace     uint32
	freeSpace     uint32
	fragmentCount uint32
	fragmentSize  uint32
	tagCount      uint16
}

// Engine is the runtime context singleton of §3: in-RAM mirrors of the
// header and index, the schema table, a scratch buffer, and the stream
// session pool, all addressed through a single port.Port.
type Engine struct {
	opts Options
	p    port.Port
	clk  port.Clock
	reg  schema.Registry

	header internal.Header
	index  []internal.IndexEntry

	// accel is the optional tag->slot accelerator of §4.2. It is a
	// best-effort cache: every lookup that finds a hit in it re-validates
	// against the actual slot contents and falls back to a linear scan on
	// disagreement, so a stale or missing accelerator entry never causes
	// an incorrect result, only a slower one.
	accel *xsync.MapOf[uint16, int]

	scratch []byte

	snap    *snapshot
	snapSet bool

	sessions []session

	state ferrostore.State

	lastErr    ferrostore.ErrorContext
	errHistory []ferrostore.ErrorContext

	metrics *engineMetrics

	// lastMigrated/lastMigrationFailed count the outcomes of the most
	// recent AUTO_MIGRATE_ON_BOOT sweep (§4.9).
	lastMigrated       int
	lastMigrationFailed int
}

// NewEngine builds an Engine over the given transport, clock, and schema
// table. It performs no I/O; call Init to load or detect the device state.
func NewEngine(opts Options, p port.Port, clk port.Clock, reg schema.Registry) (*Engine, error) {
	if opts.HeaderOff >= opts.IndexOff || opts.IndexOff >= opts.DataOff || opts.DataOff >= opts.BackupOff {
		return nil, fmt.Errorf("nvm: invalid region layout: header=%d index=%d data=%d backup=%d",
			opts.HeaderOff, opts.IndexOff, opts.DataOff, opts.BackupOff)
	}
	if opts.MaxTags <= 0 || opts.MaxTags > 256 {
		return nil, fmt.Errorf("nvm: MaxTags must be in (0,256], got %d", opts.MaxTags)
	}
	if opts.BufferSize < 256 {
		return nil, fmt.Errorf("nvm: BufferSize must be >= 256, got %d", opts.BufferSize)
	}
	if opts.MaxStreamHandles < 1 {
		return nil, fmt.Errorf("nvm: MaxStreamHandles must be >= 1, got %d", opts.MaxStreamHandles)
	}
	backupSize := opts.DataOff - opts.HeaderOff
	if uint64(opts.BackupOff)+uint64(backupSize) > uint64(opts.DeviceSize) {
		return nil, fmt.Errorf("nvm: backup region [%d,%d) exceeds device size %d",
			opts.BackupOff, uint64(opts.BackupOff)+uint64(backupSize), opts.DeviceSize)
	}

	e := &Engine{
		opts:     opts,
		p:        p,
		clk:      clk,
		reg:      reg,
		scratch:  make([]byte, opts.BufferSize),
		sessions: make([]session, opts.MaxStreamHandles),
		state:    ferrostore.StateUninitialized,
		metrics:  newEngineMetrics(opts.MetricsLabel),
	}
	return e, nil
}

func (e *Engine) Version() string {
	return EngineVersion
}

func (e *Engine) State() ferrostore.State {
	return e.state
}

// Init loads the management area, restoring from backup automatically if
// the primary index (or header) fails its CRC, per §4.8.
func (e *Engine) Init() (ferrostore.State, error) {
	if err := e.p.Init(); err != nil {
		e.recordError(ferrostore.WrapError(ferrostore.Generic, 0, "port init failed", err), "Init")
		e.state = ferrostore.StateError
		return e.state, e.lastErrorAsErr()
	}

	raw := make([]byte, internal.HeaderSize)
	if err := e.p.Read(e.opts.HeaderOff, raw, internal.HeaderSize); err != nil {
		e.recordError(ferrostore.WrapError(ferrostore.Generic, 0, "header read failed", err), "Init")
		e.state = ferrostore.StateError
		return e.state, e.lastErrorAsErr()
	}

	if isBlank(raw) {
		e.state = ferrostore.StateFirstBoot
		return e.state, nil
	}

	hdr, verifyErr := e.verifyHeaderBytes(raw)
	if verifyErr == nil {
		if err := e.loadIndexFromMedia(e.opts.IndexOff); err == nil {
			e.header = hdr
			e.rebuildAccelerator()
			e.state = ferrostore.StateOk
			if e.opts.AutoMigrateOnBoot {
				e.migrateAll()
			}
			return e.state, nil
		}
	}

	// Primary management area failed verification; attempt automatic
	// restore from the backup region before giving up.
	if err := e.restoreFromBackupLocked(); err != nil {
		e.recordError(ferrostore.WrapError(ferrostore.Corrupted, 0, "primary and backup both invalid", err), "Init")
		e.state = ferrostore.StateError
		return e.state, e.lastErrorAsErr()
	}

	e.rebuildAccelerator()
	e.state = ferrostore.StateRecovered
	if e.opts.AutoMigrateOnBoot {
		e.migrateAll()
	}
	return e.state, nil
}

// Deinit releases the in-RAM mirrors. The device itself is untouched.
func (e *Engine) Deinit() error {
	e.header = internal.Header{}
	e.index = nil
	if e.accel != nil {
		e.accel.Clear()
	}
	for i := range e.sessions {
		e.sessions[i] = session{}
	}
	e.state = ferrostore.StateUninitialized
	return nil
}

// Format re-initializes header and index to a fresh, empty state and
// writes a fresh backup, per the literal end-to-end scenario of §8.1.
func (e *Engine) Format(magic uint32) error {
	if magic == 0 {
		magic = internal.DefaultMagic
	}

	e.header = internal.Header{
		Magic:           magic,
		FormatVersion:   internal.FormatVersion,
		TagCount:        0,
		DataRegionStart: e.opts.DataOff,
		DataRegionSize:  e.opts.BackupOff - e.opts.DataOff,
		NextFreeAddr:    e.opts.DataOff,
		TotalWrites:     0,
		LastUpdateTime:  e.clk.TimeSeconds(),
		FreeSpace:       e.opts.BackupOff - e.opts.DataOff,
		UsedSpace:       0,
		FragmentCount:   0,
		FragmentSize:    0,
	}
	e.index = make([]internal.IndexEntry, e.opts.MaxTags)
	e.rebuildAccelerator()

	if err := e.saveHeader(); err != nil {
		return e.fail(err, "Format")
	}
	if err := e.saveIndex(); err != nil {
		return e.fail(err, "Format")
	}
	if err := e.backupAllLocked(); err != nil {
		return e.fail(err, "Format")
	}

	e.state = ferrostore.StateOk
	e.metrics.observeHeader(e.header)
	return nil
}

// isBlank reports whether raw looks like an untouched (all-zero) device
// region, the FirstBoot signal of §6.3.
func isBlank(raw []byte) bool {
	for _, b := range raw {
		if b != 0 {
			return false
		}
	}
	return true
}

// fail records err into the error ledger and returns it, the common tail
// of every mutating operation's failure path.
func (e *Engine) fail(err error, function string) error {
	fe, ok := err.(*ferrostore.Error)
	if !ok {
		fe = ferrostore.WrapError(ferrostore.Generic, 0, err.Error(), err)
	}
	e.recordError(fe, function)
	return fe
}
