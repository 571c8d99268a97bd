package nvm

import (
	"github.com/ferrokv/ferrokv/lib/checksum"
	"github.com/ferrokv/ferrokv/lib/ferrostore"
	"github.com/ferrokv/ferrokv/lib/ferrostore/engines/nvm/internal"
)

// streamState tracks a session slot's lifecycle.
type streamState int

const (
	streamIdle streamState = iota
	streamWriting
	streamReading
)

// Handle magic bytes: the high byte of a Handle distinguishes a write
// session from a read session, so a handle from one pool can never be
// mistaken for a slot in the other even if the numeric slot collides.
const (
	magicWrite uint32 = 0xA5
	magicRead  uint32 = 0x5A
)

// session is one slot of the stream session pool (§4.6). The pool has a
// fixed capacity; slots are reused, with a generation counter folded into
// the handle so a stale handle from a completed or aborted session
// reliably fails validation (§9's "Magic-tagged handles" note) instead of
// silently addressing whatever session now occupies the slot.
type session struct {
	state    streamState
	gen      uint16
	tag      uint16
	dataAddr uint32
	totalLen uint32
	processed uint32
	crc      *checksum.CRC16

	// bookkeeping needed to finalize or abort the underlying write, mirrors
	// the accounting write() performs inline.
	slot         int
	hasExisting  bool
	existingSlot int
	oldBlockSize int
	newBlockSize int
	version      uint8
}

func makeHandle(magic uint32, slot int, gen uint16) ferrostore.Handle {
	return ferrostore.Handle((magic << 24) | (uint32(gen) << 8) | uint32(slot))
}

func parseHandle(h ferrostore.Handle) (magic uint32, slot int, gen uint16) {
	v := uint32(h)
	magic = v >> 24
	gen = uint16((v >> 8) & 0xFFFF)
	slot = int(v & 0xFF)
	return
}

// lookupSession resolves a handle to its session, validating both the
// magic and the expected state; a mismatch of either returns
// InvalidHandle per §4.6.
func (e *Engine) lookupSession(h ferrostore.Handle, wantMagic uint32, wantState streamState) (*session, error) {
	magic, slot, gen := parseHandle(h)
	if magic != wantMagic || slot < 0 || slot >= len(e.sessions) {
		return nil, ferrostore.NewError(ferrostore.InvalidHandle, 0, "handle magic or slot out of range")
	}
	s := &e.sessions[slot]
	if s.gen != gen || s.state != wantState {
		return nil, ferrostore.NewError(ferrostore.InvalidHandle, 0, "stale or mismatched-state handle")
	}
	return s, nil
}

func (e *Engine) findIdleSlot() (int, bool) {
	for i := range e.sessions {
		if e.sessions[i].state == streamIdle {
			return i, true
		}
	}
	return -1, false
}

// WriteBegin implements §4.6's write_begin: validates against the schema,
// allocates space using the same placement logic as Write, writes the
// 14-byte header, and opens a CRC accumulator over it.
func (e *Engine) WriteBegin(tag uint16, totalLen uint32) (ferrostore.Handle, error) {
	if err := e.requireReady(); err != nil {
		return 0, e.fail(err, "WriteBegin")
	}
	if tag == 0 || totalLen == 0 {
		return 0, e.fail(ferrostore.NewError(ferrostore.InvalidParam, tag, "tag must be nonzero and totalLen > 0"), "WriteBegin")
	}

	se, ok := e.reg.Lookup(tag)
	if !ok {
		return 0, e.fail(ferrostore.NewError(ferrostore.NotFound, tag, "tag not present in schema"), "WriteBegin")
	}
	if totalLen > se.MaxLength {
		return 0, e.fail(ferrostore.NewError(ferrostore.InvalidParam, tag, "totalLen exceeds schema max length"), "WriteBegin")
	}

	slotIdx, ok := e.findIdleSlot()
	if !ok {
		return 0, e.fail(ferrostore.NewError(ferrostore.InvalidState, tag, "no free stream session"), "WriteBegin")
	}

	e.takeSnapshot()

	existingSlot, existing, hasExisting := e.findIndex(tag)
	newBlockSize := internal.BlockSize(int(totalLen))

	var oldBlockSize int
	if hasExisting {
		hdr, err := e.readBlockHeader(existing.DataAddr)
		if err == nil {
			oldBlockSize = internal.BlockSize(int(hdr.Length))
		}
	}

	relocate := !hasExisting || newBlockSize > oldBlockSize
	var addr uint32
	var placementSlot int

	if !relocate {
		addr = existing.DataAddr
		placementSlot = existingSlot
		delta := newBlockSize - oldBlockSize
		if delta > 0 {
			e.increaseUsed(uint32(delta))
		} else if delta < 0 {
			e.reduceUsed(uint32(-delta))
		}
	} else {
		if hasExisting {
			placementSlot = existingSlot
		} else {
			freeSlot, ok := e.findFreeSlot()
			if !ok {
				e.rollbackSnapshot()
				return 0, e.fail(ferrostore.NewError(ferrostore.NoIndexSpace, tag, "index table full"), "WriteBegin")
			}
			placementSlot = freeSlot
		}
		a, ok := e.allocate(uint32(newBlockSize))
		if !ok {
			e.rollbackSnapshot()
			return 0, e.fail(ferrostore.NewError(ferrostore.NoMemorySpace, tag, "data region full"), "WriteBegin")
		}
		addr = a
		if hasExisting {
			e.reduceUsed(uint32(oldBlockSize))
			e.header.FragmentSize += uint32(oldBlockSize)
			e.header.FragmentCount++
		}
		e.increaseUsed(uint32(newBlockSize))
	}

	hdr := internal.BlockHeader{
		Tag:        tag,
		Length:     uint16(totalLen),
		Version:    se.Version,
		Flags:      0,
		Timestamp:  e.clk.TimeSeconds(),
		WriteCount: e.priorWriteCount(tag, addr) + 1,
	}
	hdrBuf := internal.EncodeBlockHeader(hdr)
	if err := e.p.Write(addr, hdrBuf, internal.BlockHeaderSize); err != nil {
		e.rollbackSnapshot()
		e.saveHeader()
		return 0, e.fail(ferrostore.WrapError(ferrostore.Generic, tag, "stream header write failed", err), "WriteBegin")
	}

	crc := checksum.New()
	crc.Update(hdrBuf)

	s := &e.sessions[slotIdx]
	s.state = streamWriting
	s.gen++
	s.tag = tag
	s.dataAddr = addr
	s.totalLen = totalLen
	s.processed = 0
	s.crc = crc
	s.slot = placementSlot
	s.hasExisting = hasExisting
	s.existingSlot = existingSlot
	s.oldBlockSize = oldBlockSize
	s.newBlockSize = newBlockSize
	s.version = se.Version

	return makeHandle(magicWrite, slotIdx, s.gen), nil
}

// WriteChunk implements §4.6's write_chunk.
func (e *Engine) WriteChunk(h ferrostore.Handle, data []byte) error {
	s, err := e.lookupSession(h, magicWrite, streamWriting)
	if err != nil {
		return e.fail(err, "WriteChunk")
	}
	if s.processed+uint32(len(data)) > s.totalLen {
		return e.fail(ferrostore.NewError(ferrostore.InvalidParam, s.tag, "chunk would exceed declared total length"), "WriteChunk")
	}

	offset := s.dataAddr + internal.BlockHeaderSize + s.processed
	if len(data) > 0 {
		if err := e.p.Write(offset, data, uint32(len(data))); err != nil {
			return e.fail(ferrostore.WrapError(ferrostore.Generic, s.tag, "stream chunk write failed", err), "WriteChunk")
		}
	}
	s.crc.Update(data)
	s.processed += uint32(len(data))
	return nil
}

// WriteEnd implements §4.6's write_end: writes the trailing CRC,
// finalizes the index, commits the header, and releases the handle.
func (e *Engine) WriteEnd(h ferrostore.Handle) error {
	s, err := e.lookupSession(h, magicWrite, streamWriting)
	if err != nil {
		return e.fail(err, "WriteEnd")
	}
	if s.processed != s.totalLen {
		return e.fail(ferrostore.NewError(ferrostore.InvalidState, s.tag, "stream not fully written"), "WriteEnd")
	}

	trailer := make([]byte, internal.BlockTrailerSize)
	internal.PutUint16(trailer, s.crc.Final())
	trailerOffset := s.dataAddr + internal.BlockHeaderSize + s.totalLen
	if err := e.p.Write(trailerOffset, trailer, internal.BlockTrailerSize); err != nil {
		return e.fail(ferrostore.WrapError(ferrostore.Generic, s.tag, "stream trailer write failed", err), "WriteEnd")
	}

	if s.hasExisting {
		e.updateIndexEntry(s.slot, s.dataAddr, s.version)
	} else {
		e.addIndexEntry(s.slot, s.tag, s.dataAddr, s.version)
	}

	if err := e.saveIndex(); err != nil {
		// The index entry is already committed in memory, same as Write's
		// equivalent path: release rather than leave the snapshot
		// outstanding, or the next mutating op's takeSnapshot panics on
		// "nested mutating operation".
		e.commitSnapshot()
		return e.fail(err, "WriteEnd")
	}

	e.commitSnapshot()
	e.header.TotalWrites++
	e.header.LastUpdateTime = e.clk.TimeSeconds()
	saveErr := e.saveHeader()

	e.releaseSession(s)
	if saveErr != nil {
		return e.fail(saveErr, "WriteEnd")
	}
	return nil
}

// WriteAbort implements §4.6's write_abort: rolls back the allocator
// snapshot, persists the rolled-back header, accounts the
// partially-written region as fragment, and releases the handle.
func (e *Engine) WriteAbort(h ferrostore.Handle) error {
	s, err := e.lookupSession(h, magicWrite, streamWriting)
	if err != nil {
		return e.fail(err, "WriteAbort")
	}

	e.rollbackSnapshot()
	if s.newBlockSize > 0 {
		e.header.FragmentSize += uint32(s.newBlockSize)
		e.header.FragmentCount++
	}
	saveErr := e.saveHeader()
	e.releaseSession(s)
	if saveErr != nil {
		return e.fail(saveErr, "WriteAbort")
	}
	return nil
}

func (e *Engine) releaseSession(s *session) {
	s.state = streamIdle
	s.crc = nil
}

// ReadBegin implements §4.6's read_begin: locates the live entry and
// opens a read session over its block.
func (e *Engine) ReadBegin(tag uint16) (ferrostore.Handle, uint32, error) {
	if err := e.requireReady(); err != nil {
		return 0, 0, e.fail(err, "ReadBegin")
	}

	_, entry, ok := e.findIndex(tag)
	if !ok {
		return 0, 0, e.fail(ferrostore.NewError(ferrostore.NotFound, tag, "tag not found"), "ReadBegin")
	}

	hdr, err := e.readBlockHeader(entry.DataAddr)
	if err != nil {
		return 0, 0, e.fail(err, "ReadBegin")
	}

	slotIdx, ok := e.findIdleSlot()
	if !ok {
		return 0, 0, e.fail(ferrostore.NewError(ferrostore.InvalidState, tag, "no free stream session"), "ReadBegin")
	}

	crc := checksum.New()
	hdrBuf := internal.EncodeBlockHeader(hdr)
	crc.Update(hdrBuf)

	s := &e.sessions[slotIdx]
	s.state = streamReading
	s.gen++
	s.tag = tag
	s.dataAddr = entry.DataAddr
	s.totalLen = uint32(hdr.Length)
	s.processed = 0
	s.crc = crc

	return makeHandle(magicRead, slotIdx, s.gen), uint32(hdr.Length), nil
}

// ReadChunk implements §4.6's read_chunk.
func (e *Engine) ReadChunk(h ferrostore.Handle, buf []byte) (int, error) {
	s, err := e.lookupSession(h, magicRead, streamReading)
	if err != nil {
		return 0, e.fail(err, "ReadChunk")
	}

	remaining := s.totalLen - s.processed
	n := uint32(len(buf))
	if n > remaining {
		n = remaining
	}
	if n == 0 {
		return 0, nil
	}

	offset := s.dataAddr + internal.BlockHeaderSize + s.processed
	if err := e.p.Read(offset, buf[:n], n); err != nil {
		return 0, e.fail(ferrostore.WrapError(ferrostore.Generic, s.tag, "stream chunk read failed", err), "ReadChunk")
	}
	s.crc.Update(buf[:n])
	s.processed += n
	return int(n), nil
}

// ReadEnd implements §4.6's read_end: verifies the trailing CRC and
// releases the handle.
func (e *Engine) ReadEnd(h ferrostore.Handle) error {
	s, err := e.lookupSession(h, magicRead, streamReading)
	if err != nil {
		return e.fail(err, "ReadEnd")
	}

	trailer := make([]byte, internal.BlockTrailerSize)
	if err := e.p.Read(s.dataAddr+internal.BlockHeaderSize+s.totalLen, trailer, internal.BlockTrailerSize); err != nil {
		e.releaseSession(s)
		return e.fail(ferrostore.WrapError(ferrostore.Generic, s.tag, "stream trailer read failed", err), "ReadEnd")
	}

	if internal.GetUint16(trailer) != s.crc.Final() {
		e.releaseSession(s)
		return e.fail(ferrostore.NewError(ferrostore.CrcFailed, s.tag, "stream trailing CRC mismatch"), "ReadEnd")
	}

	e.releaseSession(s)
	return nil
}

// ReadAbort implements §4.6's read_abort: releases the handle with no
// further accounting, since a read session never mutates the media.
func (e *Engine) ReadAbort(h ferrostore.Handle) error {
	s, err := e.lookupSession(h, magicRead, streamReading)
	if err != nil {
		return e.fail(err, "ReadAbort")
	}
	e.releaseSession(s)
	return nil
}
