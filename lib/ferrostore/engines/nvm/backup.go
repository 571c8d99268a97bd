package nvm

import "github.com/ferrokv/ferrokv/lib/ferrostore"

// copyRegionChunked copies size bytes from src to dst in BufferSize
// chunks through the engine's scratch buffer, used by both backup/restore
// and defragmentation's block relocation.
func (e *Engine) copyRegionChunked(src, dst uint32, size uint32) error {
	remaining := size
	srcOff, dstOff := src, dst
	for remaining > 0 {
		n := uint32(len(e.scratch))
		if n > remaining {
			n = remaining
		}
		chunk := e.scratch[:n]
		if err := e.p.Read(srcOff, chunk, n); err != nil {
			return ferrostore.WrapError(ferrostore.Generic, 0, "region copy read failed", err)
		}
		if err := e.p.Write(dstOff, chunk, n); err != nil {
			return ferrostore.WrapError(ferrostore.Generic, 0, "region copy write failed", err)
		}
		srcOff += n
		dstOff += n
		remaining -= n
	}
	return nil
}

// BackupAll implements §4.8's backup_all: a raw mirror of the management
// area (header + index table, per §6.4's exact backup_size = DATA_OFF -
// HEADER_OFF) copied forward to the backup region in BufferSize chunks.
func (e *Engine) BackupAll() error {
	if err := e.requireReady(); err != nil {
		return e.fail(err, "BackupAll")
	}
	return e.failIfErr(e.backupAllLocked(), "BackupAll")
}

func (e *Engine) backupAllLocked() error {
	size := e.opts.DataOff - e.opts.HeaderOff
	return e.copyRegionChunked(e.opts.HeaderOff, e.opts.BackupOff, size)
}

// RestoreFromBackup implements §4.8's restore_from_backup: validates the
// backup copy's header (magic, CRC, data_region_size consistency) before
// copying it back and reloading the in-RAM mirrors.
func (e *Engine) RestoreFromBackup() error {
	if err := e.failIfErr(e.restoreFromBackupLocked(), "RestoreFromBackup"); err != nil {
		return err
	}
	e.state = ferrostore.StateRecovered
	return nil
}

func (e *Engine) restoreFromBackupLocked() error {
	backupHdr, err := e.loadHeaderFrom(e.opts.BackupOff)
	if err != nil {
		return err
	}
	if backupHdr.DataRegionSize != e.opts.BackupOff-e.opts.DataOff {
		return ferrostore.NewError(ferrostore.Corrupted, 0, "backup data_region_size disagrees with device layout")
	}

	size := e.opts.DataOff - e.opts.HeaderOff
	if err := e.copyRegionChunked(e.opts.BackupOff, e.opts.HeaderOff, size); err != nil {
		return err
	}

	hdr, err := e.loadHeaderFrom(e.opts.HeaderOff)
	if err != nil {
		return err
	}
	if err := e.loadIndexFromMedia(e.opts.IndexOff); err != nil {
		return err
	}
	e.header = hdr
	e.rebuildAccelerator()
	return nil
}

// failIfErr records and returns err through fail only when non-nil,
// avoiding a nil-check at every caller.
func (e *Engine) failIfErr(err error, function string) error {
	if err == nil {
		return nil
	}
	return e.fail(err, function)
}
