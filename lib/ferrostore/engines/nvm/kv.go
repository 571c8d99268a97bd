package nvm

import (
	"io"
	"time"

	"github.com/ferrokv/ferrokv/lib/ferrostore"
	"github.com/ferrokv/ferrokv/lib/ferrostore/engines/nvm/internal"
)

// requireReady rejects any data operation before Init has reached Ok or
// Recovered.
func (e *Engine) requireReady() error {
	if e.state != ferrostore.StateOk && e.state != ferrostore.StateRecovered {
		return ferrostore.NewError(ferrostore.InvalidState, 0, "engine not initialized")
	}
	return nil
}

// Write implements §4.5's write(tag, data, len).
func (e *Engine) Write(tag uint16, data []byte) error {
	start := time.Now()
	err := e.writeLocked(tag, data)
	e.metrics.observeWrite(time.Since(start), len(data))
	return err
}

func (e *Engine) writeLocked(tag uint16, data []byte) error {
	if err := e.requireReady(); err != nil {
		return e.fail(err, "Write")
	}
	if tag == 0 || len(data) == 0 {
		return e.fail(ferrostore.NewError(ferrostore.InvalidParam, tag, "tag must be nonzero and data nonempty"), "Write")
	}

	se, ok := e.reg.Lookup(tag)
	if !ok {
		return e.fail(ferrostore.NewError(ferrostore.NotFound, tag, "tag not present in schema"), "Write")
	}
	if uint32(len(data)) > se.MaxLength {
		return e.fail(ferrostore.NewError(ferrostore.InvalidParam, tag, "payload exceeds schema max length"), "Write")
	}

	e.takeSnapshot()

	slot, existing, hasExisting := e.findIndex(tag)
	newBlockSize := internal.BlockSize(len(data))

	var oldBlockSize int
	if hasExisting {
		hdr, err := e.readBlockHeader(existing.DataAddr)
		if err == nil {
			oldBlockSize = internal.BlockSize(int(hdr.Length))
		}
	}

	var addr uint32
	var placementSlot int
	relocate := !hasExisting || newBlockSize > oldBlockSize

	if !relocate {
		// In-place update: reuse the existing block's address.
		addr = existing.DataAddr
		placementSlot = slot
		delta := newBlockSize - oldBlockSize
		if delta > 0 {
			e.increaseUsed(uint32(delta))
		} else if delta < 0 {
			e.reduceUsed(uint32(-delta))
		}
	} else {
		if hasExisting {
			placementSlot = slot
		} else {
			freeSlot, ok := e.findFreeSlot()
			if !ok {
				e.rollbackSnapshot()
				return e.fail(ferrostore.NewError(ferrostore.NoIndexSpace, tag, "index table full"), "Write")
			}
			placementSlot = freeSlot
		}

		a, ok := e.allocate(uint32(newBlockSize))
		if !ok {
			e.rollbackSnapshot()
			return e.fail(ferrostore.NewError(ferrostore.NoMemorySpace, tag, "data region full"), "Write")
		}
		addr = a

		if hasExisting {
			e.reduceUsed(uint32(oldBlockSize))
			e.header.FragmentSize += uint32(oldBlockSize)
			e.header.FragmentCount++
		}
		e.increaseUsed(uint32(newBlockSize))
	}

	if err := e.writeBlock(tag, data, addr, se.Version); err != nil {
		e.rollbackSnapshot()
		e.saveHeader()
		return e.fail(err, "Write")
	}

	if hasExisting {
		e.updateIndexEntry(placementSlot, addr, se.Version)
	} else {
		e.addIndexEntry(placementSlot, tag, addr, se.Version)
	}

	if err := e.saveIndex(); err != nil {
		// The index entry is already committed in memory (step 7's
		// visibility window has closed), so this is not a rollback point;
		// release the snapshot so a transport failure here doesn't leave
		// the next mutating op's takeSnapshot panicking on "nested
		// mutating operation".
		e.commitSnapshot()
		return e.fail(err, "Write")
	}

	e.commitSnapshot()
	e.header.TotalWrites++
	e.header.LastUpdateTime = e.clk.TimeSeconds()
	if err := e.saveHeader(); err != nil {
		return e.fail(err, "Write")
	}

	if e.opts.AutoCleanFragment && e.FragmentationPercent() >= e.opts.FragmentThresholdPercent {
		_ = e.Defragment()
	}

	return nil
}

// Read implements §4.5's read(tag, buf, &len), including the lazy
// migration hook of §4.9.
func (e *Engine) Read(tag uint16, buf []byte) (int, error) {
	start := time.Now()
	n, err := e.readLocked(tag, buf)
	e.metrics.observeRead(time.Since(start))
	return n, err
}

func (e *Engine) readLocked(tag uint16, buf []byte) (int, error) {
	if err := e.requireReady(); err != nil {
		return 0, e.fail(err, "Read")
	}
	if len(buf) == 0 {
		return 0, e.fail(ferrostore.NewError(ferrostore.InvalidParam, tag, "buffer is empty"), "Read")
	}

	_, entry, ok := e.findIndex(tag)
	if !ok {
		return 0, e.fail(ferrostore.NewError(ferrostore.NotFound, tag, "tag not found"), "Read")
	}

	n, err := e.readBlock(entry.DataAddr, buf)
	if err != nil {
		return 0, e.fail(err, "Read")
	}

	if !e.opts.EnableMigration || !e.opts.LazyMigrateOnRead {
		return n, nil
	}

	se, ok := e.reg.Lookup(tag)
	if !ok || entry.Version >= se.Version {
		return n, nil
	}

	orig := make([]byte, n)
	copy(orig, buf[:n])

	newLen, migErr := e.migrateEntry(tag, buf, n, se, entry.Version)
	if migErr != nil {
		fe := migErr.(*ferrostore.Error)
		if fe.Code == ferrostore.NoBufferMemory {
			return 0, fe
		}
		// Non-buffer migration failure: never surface silent data loss.
		// Restore the original bytes, log the failure, and return the
		// stale-but-valid data to the caller.
		copy(buf[:n], orig)
		e.recordError(fe, "Read:migrate")
		return n, nil
	}

	if writeErr := e.writeLocked(tag, buf[:newLen]); writeErr != nil {
		e.recordError(writeErr.(*ferrostore.Error), "Read:migrate-writeback")
	}

	return newLen, nil
}

// Delete implements §4.5's delete(tag).
func (e *Engine) Delete(tag uint16) error {
	if err := e.requireReady(); err != nil {
		return e.fail(err, "Delete")
	}

	slot, entry, ok := e.findIndex(tag)
	if !ok {
		return e.fail(ferrostore.NewError(ferrostore.NotFound, tag, "tag not found"), "Delete")
	}

	hdr, err := e.readBlockHeader(entry.DataAddr)
	if err != nil {
		return e.fail(err, "Delete")
	}
	size := uint32(internal.BlockSize(int(hdr.Length)))

	e.reduceUsed(size)
	e.header.FragmentSize += size
	e.header.FragmentCount++

	e.removeIndexEntry(slot)

	if err := e.saveIndex(); err != nil {
		return e.fail(err, "Delete")
	}
	if err := e.saveHeader(); err != nil {
		return e.fail(err, "Delete")
	}
	return nil
}

// Flush implements §4.5's flush(): persists index and header.
func (e *Engine) Flush() error {
	if err := e.requireReady(); err != nil {
		return e.fail(err, "Flush")
	}
	if err := e.saveIndex(); err != nil {
		return e.fail(err, "Flush")
	}
	if err := e.saveHeader(); err != nil {
		return e.fail(err, "Flush")
	}
	return nil
}

// Exists implements §4.5's exists(tag): a bounded lookup.
func (e *Engine) Exists(tag uint16) bool {
	if e.requireReady() != nil {
		return false
	}
	_, _, ok := e.findIndex(tag)
	return ok
}

// Length implements §4.5's get_length(tag, &len): reads only the block
// header.
func (e *Engine) Length(tag uint16) (uint32, error) {
	if err := e.requireReady(); err != nil {
		return 0, e.fail(err, "Length")
	}
	_, entry, ok := e.findIndex(tag)
	if !ok {
		return 0, e.fail(ferrostore.NewError(ferrostore.NotFound, tag, "tag not found"), "Length")
	}
	hdr, err := e.readBlockHeader(entry.DataAddr)
	if err != nil {
		return 0, e.fail(err, "Length")
	}
	return uint32(hdr.Length), nil
}

// ReadBatch and WriteBatch iterate per element with no cross-element
// atomicity, returning the count of successes (§4.5).

func (e *Engine) ReadBatch(tags []uint16, bufs [][]byte) (int, []error) {
	errs := make([]error, len(tags))
	successes := 0
	for i, tag := range tags {
		var buf []byte
		if i < len(bufs) {
			buf = bufs[i]
		}
		if _, err := e.Read(tag, buf); err != nil {
			errs[i] = err
			continue
		}
		successes++
	}
	return successes, errs
}

func (e *Engine) WriteBatch(tags []uint16, datas [][]byte) (int, []error) {
	errs := make([]error, len(tags))
	successes := 0
	for i, tag := range tags {
		var data []byte
		if i < len(datas) {
			data = datas[i]
		}
		if err := e.Write(tag, data); err != nil {
			errs[i] = err
			continue
		}
		successes++
	}
	return successes, errs
}

// FreeSpace, UsedSpace, and FragmentationPercent implement §6.3's space
// accounting surface.

func (e *Engine) FreeSpace() uint32 {
	return e.header.FreeSpace
}

func (e *Engine) UsedSpace() uint32 {
	return e.header.UsedSpace
}

func (e *Engine) FragmentationPercent() float64 {
	if e.header.DataRegionSize == 0 {
		return 0
	}
	return float64(e.header.FragmentSize) * 100.0 / float64(e.header.DataRegionSize)
}

// Statistics implements §6.3's statistics(&stats), surfacing the
// go-metrics latency percentiles of §4.12 alongside the space/fragmentation
// accounting.
func (e *Engine) Statistics() ferrostore.Stats {
	lat := e.metrics.latencySnapshot()
	return ferrostore.Stats{
		TagCount:             e.header.TagCount,
		TotalWrites:          e.header.TotalWrites,
		FreeSpace:            e.header.FreeSpace,
		UsedSpace:            e.header.UsedSpace,
		FragmentCount:        e.header.FragmentCount,
		FragmentSize:         e.header.FragmentSize,
		FragmentationPercent: e.FragmentationPercent(),
		DataRegionSize:       e.header.DataRegionSize,
		NextFreeAddr:         e.header.NextFreeAddr,

		WriteP50Ms:       lat.WriteP50Ms,
		WriteP99Ms:       lat.WriteP99Ms,
		ReadP50Ms:        lat.ReadP50Ms,
		ReadP99Ms:        lat.ReadP99Ms,
		DefragmentMeanMs: lat.DefragmentMeanMs,
		PayloadAvgBytes:  lat.PayloadAvgBytes,
		PayloadP99Bytes:  lat.PayloadP99Bytes,
	}
}

// WritePrometheus renders this engine's VictoriaMetrics gauge/counter set
// (§4.12) in Prometheus text exposition format, for the RPC daemon's
// /metrics handler.
func (e *Engine) WritePrometheus(w io.Writer) {
	e.metrics.WritePrometheus(w)
}

// ForEach implements §6.3's foreach(callback, user), iterating live tags
// in index-slot order.
func (e *Engine) ForEach(fn ferrostore.ForEachFunc) error {
	if err := e.requireReady(); err != nil {
		return e.fail(err, "ForEach")
	}
	for _, entry := range e.index {
		if entry.Empty() || !entry.Valid() {
			continue
		}
		if !fn(entry.Tag, entry.Version) {
			break
		}
	}
	return nil
}
