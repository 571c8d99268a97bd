package nvm

import (
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/ferrokv/ferrokv/lib/checksum"
	"github.com/ferrokv/ferrokv/lib/ferrostore"
	"github.com/ferrokv/ferrokv/lib/ferrostore/engines/nvm/internal"
)

// rebuildAccelerator recomputes the tag->slot accelerator from scratch.
// Called after Init, Format, and Defragment, whenever slot positions may
// have shifted wholesale rather than one at a time.
func (e *Engine) rebuildAccelerator() {
	m := xsync.NewMapOf[uint16, int]()
	for slot, entry := range e.index {
		if !entry.Empty() && entry.Valid() {
			m.Store(entry.Tag, slot)
		}
	}
	e.accel = m
}

// findIndex implements §4.2's find(tag): the accelerator is consulted
// first but only trusted if the slot it names still actually holds a
// valid entry for that tag; any disagreement (e.g. after a firmware
// update reordered the schema) falls back to a full linear scan, which
// also repairs the accelerator entry for next time.
func (e *Engine) findIndex(tag uint16) (slot int, entry internal.IndexEntry, ok bool) {
	if e.accel != nil {
		if s, found := e.accel.Load(tag); found && s >= 0 && s < len(e.index) {
			cand := e.index[s]
			if cand.Valid() && cand.Tag == tag {
				return s, cand, true
			}
		}
	}

	for s, cand := range e.index {
		if cand.Valid() && cand.Tag == tag {
			if e.accel != nil {
				e.accel.Store(tag, s)
			}
			return s, cand, true
		}
	}
	return -1, internal.IndexEntry{}, false
}

// findFreeSlot implements §4.2's find_free_slot(): the first slot whose
// tag is zero.
func (e *Engine) findFreeSlot() (int, bool) {
	for s, cand := range e.index {
		if cand.Empty() {
			return s, true
		}
	}
	return -1, false
}

// addIndexEntry writes a brand new entry into a free slot.
func (e *Engine) addIndexEntry(slot int, tag uint16, addr uint32, version uint8) {
	e.index[slot] = internal.IndexEntry{
		Tag:      tag,
		Flags:    internal.FlagValid,
		Version:  version,
		DataAddr: addr,
	}
	if e.accel != nil {
		e.accel.Store(tag, slot)
	}
	e.header.TagCount++
}

// updateIndexEntry repoints an existing slot at a new address/version,
// e.g. after a resize relocation or a migrator write-back.
func (e *Engine) updateIndexEntry(slot int, addr uint32, version uint8) {
	e.index[slot].DataAddr = addr
	e.index[slot].Version = version
	e.index[slot].Flags = internal.FlagValid
}

// removeIndexEntry clears a slot entirely, per §4.5's delete().
func (e *Engine) removeIndexEntry(slot int) {
	tag := e.index[slot].Tag
	e.index[slot] = internal.IndexEntry{}
	if e.accel != nil {
		e.accel.Delete(tag)
	}
	if e.header.TagCount > 0 {
		e.header.TagCount--
	}
}

// saveIndex recomputes index_crc16 before writing the table to IndexOff.
func (e *Engine) saveIndex() error {
	buf := make([]byte, len(e.index)*internal.IndexEntrySize+2)
	for i, entry := range e.index {
		copy(buf[i*internal.IndexEntrySize:], internal.EncodeIndexEntry(entry))
	}
	crc := checksum.Sum(buf[:len(e.index)*internal.IndexEntrySize])
	internal.PutUint16(buf[len(buf)-2:], crc)

	if err := e.p.Write(e.opts.IndexOff, buf, uint32(len(buf))); err != nil {
		return ferrostore.WrapError(ferrostore.Generic, 0, "index write failed", err)
	}
	return nil
}

// loadIndexFromMedia reads and verifies the index table at offset,
// populating e.index on success.
func (e *Engine) loadIndexFromMedia(offset uint32) error {
	size := e.opts.MaxTags*internal.IndexEntrySize + 2
	buf := make([]byte, size)
	if err := e.p.Read(offset, buf, uint32(size)); err != nil {
		return ferrostore.WrapError(ferrostore.Generic, 0, "index read failed", err)
	}

	entriesLen := e.opts.MaxTags * internal.IndexEntrySize
	want := internal.GetUint16(buf[entriesLen:])
	got := checksum.Sum(buf[:entriesLen])
	if want != got {
		return ferrostore.NewError(ferrostore.CrcFailed, 0, "index CRC mismatch")
	}

	index := make([]internal.IndexEntry, e.opts.MaxTags)
	for i := 0; i < e.opts.MaxTags; i++ {
		index[i] = internal.DecodeIndexEntry(buf[i*internal.IndexEntrySize:])
	}
	e.index = index
	return nil
}
