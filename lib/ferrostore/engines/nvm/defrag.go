package nvm

import (
	"time"

	"github.com/ferrokv/ferrokv/lib/ferrostore"
	"github.com/ferrokv/ferrokv/lib/ferrostore/engines/nvm/internal"
)

// Defragment implements §4.7's idempotent compaction.
func (e *Engine) Defragment() error {
	start := time.Now()
	err := e.defragmentLocked()
	e.metrics.observeDefragment(time.Since(start))
	return err
}

func (e *Engine) defragmentLocked() error {
	if err := e.requireReady(); err != nil {
		return e.fail(err, "Defragment")
	}

	live := make([]internal.IndexEntry, 0, len(e.index))
	for _, entry := range e.index {
		if !entry.Empty() && entry.Valid() {
			live = append(live, entry)
		}
	}

	if len(live) == 0 {
		// Step 1: nothing to compact; re-initialize to a fresh empty state.
		return e.failIfErr(e.Format(e.header.Magic), "Defragment")
	}

	// Step 2: back up the management area before touching data, so a
	// failure mid-compaction still leaves a valid checkpoint to restore.
	if err := e.backupAllLocked(); err != nil {
		return e.fail(err, "Defragment")
	}

	// Step 3: sort live entries by data_addr ascending, insertion sort
	// (near-sorted is the common case after incremental writes), then
	// compact them to the front of the index array.
	insertionSortByAddr(live)

	newIndex := make([]internal.IndexEntry, len(e.index))
	copy(newIndex, live)
	e.index = newIndex

	// Step 4: walk live entries in order, relocating any whose block is
	// not already at the current write position.
	writePos := e.opts.DataOff
	var totalMoved uint32

	for i := 0; i < len(live); i++ {
		entry := &e.index[i]
		hdr, err := e.readBlockHeader(entry.DataAddr)
		if err != nil {
			return e.fail(err, "Defragment")
		}
		blockSize := uint32(internal.BlockSize(int(hdr.Length)))

		if entry.DataAddr != writePos {
			if err := e.copyRegionChunked(entry.DataAddr, writePos, blockSize); err != nil {
				return e.fail(err, "Defragment")
			}
			entry.DataAddr = writePos
		}
		entry.Flags &^= internal.FlagDirty

		writePos += blockSize
		totalMoved += blockSize
	}

	e.rebuildAccelerator()

	// Step 5: reset bookkeeping to reflect the now-contiguous data region.
	e.header.NextFreeAddr = writePos
	e.header.UsedSpace = totalMoved
	if e.header.DataRegionSize >= totalMoved {
		e.header.FreeSpace = e.header.DataRegionSize - totalMoved
	} else {
		e.header.FreeSpace = 0
	}
	e.header.FragmentCount = 0
	e.header.FragmentSize = 0
	e.header.TagCount = uint16(len(live))

	// Step 6: persist and refresh the backup; the post-compaction backup
	// refresh is best-effort, matching §5's ordering guarantee.
	if err := e.saveIndex(); err != nil {
		return e.fail(err, "Defragment")
	}
	if err := e.saveHeader(); err != nil {
		return e.fail(err, "Defragment")
	}
	_ = e.backupAllLocked()

	return nil
}

// insertionSortByAddr sorts entries ascending by DataAddr in place,
// preferred per §4.7 for the near-sorted common case.
func insertionSortByAddr(entries []internal.IndexEntry) {
	for i := 1; i < len(entries); i++ {
		key := entries[i]
		j := i - 1
		for j >= 0 && entries[j].DataAddr > key.DataAddr {
			entries[j+1] = entries[j]
			j--
		}
		entries[j+1] = key
	}
}

// VerifyAll implements §6.3's verify_all(&corrupted): walks every live
// entry and reports which tags fail CRC verification, without mutating
// anything.
func (e *Engine) VerifyAll() ([]uint16, error) {
	if err := e.requireReady(); err != nil {
		return nil, e.fail(err, "VerifyAll")
	}

	var corrupted []uint16
	scratch := make([]byte, e.opts.BufferSize)

	for _, entry := range e.index {
		if entry.Empty() || !entry.Valid() {
			continue
		}
		hdr, err := e.readBlockHeader(entry.DataAddr)
		if err != nil {
			corrupted = append(corrupted, entry.Tag)
			continue
		}
		buf := scratch
		if int(hdr.Length) > len(buf) {
			buf = make([]byte, hdr.Length)
		}
		if _, err := e.readBlock(entry.DataAddr, buf); err != nil {
			if ferrostore.CodeOf(err) == ferrostore.CrcFailed || ferrostore.CodeOf(err) == ferrostore.Generic {
				corrupted = append(corrupted, entry.Tag)
			}
		}
	}

	if len(corrupted) > 0 {
		return corrupted, ferrostore.NewError(ferrostore.CrcFailed, 0, "one or more blocks failed verification")
	}
	return nil, nil
}
