package nvm

// allocate implements §4.3's bump allocator: returns the current
// next_free_addr and advances it by n, failing with the sentinel 0 if the
// data region would overflow into the backup region.
func (e *Engine) allocate(n uint32) (uint32, bool) {
	addr := e.header.NextFreeAddr
	if uint64(addr)+uint64(n) > uint64(e.opts.BackupOff) {
		return 0, false
	}
	e.header.NextFreeAddr = addr + n
	return addr, true
}

// takeSnapshot saves the six header bookkeeping scalars for rollback.
// Exactly one snapshot may be outstanding at a time (§4.3): nested
// mutating operations are disallowed, enforced here as a panic since it
// indicates a caller bug rather than a recoverable runtime condition.
func (e *Engine) takeSnapshot() {
	if e.snapSet {
		panic("nvm: nested mutating operation: snapshot already outstanding")
	}
	e.snap = &snapshot{
		nextFreeAddr:  e.header.NextFreeAddr,
		usedSpace:     e.header.UsedSpace,
		freeSpace:     e.header.FreeSpace,
		fragmentCount: e.header.FragmentCount,
		fragmentSize:  e.header.FragmentSize,
		tagCount:      e.header.TagCount,
	}
	e.snapSet = true
}

// rollbackSnapshot restores the header scalars to the last snapshot.
func (e *Engine) rollbackSnapshot() {
	if !e.snapSet {
		return
	}
	e.header.NextFreeAddr = e.snap.nextFreeAddr
	e.header.UsedSpace = e.snap.usedSpace
	e.header.FreeSpace = e.snap.freeSpace
	e.header.FragmentCount = e.snap.fragmentCount
	e.header.FragmentSize = e.snap.fragmentSize
	e.header.TagCount = e.snap.tagCount
	e.releaseSnapshot()
}

// commitSnapshot discards the outstanding snapshot without restoring it,
// the success path of a mutating operation.
func (e *Engine) commitSnapshot() {
	e.releaseSnapshot()
}

func (e *Engine) releaseSnapshot() {
	e.snap = nil
	e.snapSet = false
}

// increaseUsed and reduceUsed keep used_space/free_space in lockstep.
// reduceUsed clamps at zero rather than underflowing, per §4.3.
func (e *Engine) increaseUsed(n uint32) {
	e.header.UsedSpace += n
	if e.header.FreeSpace >= n {
		e.header.FreeSpace -= n
	} else {
		e.header.FreeSpace = 0
	}
}

func (e *Engine) reduceUsed(n uint32) {
	if e.header.UsedSpace >= n {
		e.header.UsedSpace -= n
	} else {
		e.header.UsedSpace = 0
	}
	e.header.FreeSpace += n
}
