package nvm

import (
	"github.com/ferrokv/ferrokv/lib/checksum"
	"github.com/ferrokv/ferrokv/lib/ferrostore"
	"github.com/ferrokv/ferrokv/lib/ferrostore/engines/nvm/internal"
)

// verifyHeaderBytes implements §4.1's load_and_verify: CORRUPTED on a zero
// magic (any nonzero magic is accepted, see below), VERSION on a differing
// format major, CRC_FAILED otherwise on checksum mismatch.
func (e *Engine) verifyHeaderBytes(raw []byte) (internal.Header, error) {
	hdr := internal.DecodeHeader(raw)

	// Magic is caller-chosen via Format(magic), and isBlank already gates the
	// FirstBoot path, so only a zero magic (an unformatted or zeroed region)
	// is rejected here; a nonzero value that simply differs from
	// internal.DefaultMagic is a caller's own magic, not corruption.
	if hdr.Magic == 0 {
		return internal.Header{}, ferrostore.NewError(ferrostore.Corrupted, 0, "header magic is zero")
	}

	gotMajor := hdr.FormatVersion >> 8
	wantMajor := internal.FormatVersion >> 8
	if gotMajor != wantMajor {
		return internal.Header{}, ferrostore.NewError(ferrostore.Version, 0, "header format major mismatch")
	}

	want := internal.HeaderCRC(raw)
	got := checksum.Sum(internal.HeaderCRCRegion(raw))
	if want != got {
		return internal.Header{}, ferrostore.NewError(ferrostore.CrcFailed, 0, "header CRC mismatch")
	}

	return hdr, nil
}

// saveHeader recomputes header_crc16 over the header minus its last 2
// bytes, then writes the full 256-byte header to HeaderOff. No atomicity
// is assumed for a single header write (§4.1); recovery from a partial
// write relies on the backup region, not on split writes.
func (e *Engine) saveHeader() error {
	encoded := e.header.Encode()
	crc := checksum.Sum(internal.HeaderCRCRegion(encoded))
	internal.PutHeaderCRC(encoded, crc)

	if err := e.p.Write(e.opts.HeaderOff, encoded, internal.HeaderSize); err != nil {
		return ferrostore.WrapError(ferrostore.Generic, 0, "header write failed", err)
	}
	e.metrics.observeHeader(e.header)
	return nil
}

// loadHeaderFrom reads and verifies a header at an arbitrary offset,
// used both for the primary header and for validating the backup copy
// before a restore.
func (e *Engine) loadHeaderFrom(offset uint32) (internal.Header, error) {
	raw := make([]byte, internal.HeaderSize)
	if err := e.p.Read(offset, raw, internal.HeaderSize); err != nil {
		return internal.Header{}, ferrostore.WrapError(ferrostore.Generic, 0, "header read failed", err)
	}
	return e.verifyHeaderBytes(raw)
}
