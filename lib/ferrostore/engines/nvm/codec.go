package nvm

import (
	"github.com/ferrokv/ferrokv/lib/checksum"
	"github.com/ferrokv/ferrokv/lib/ferrostore"
	"github.com/ferrokv/ferrokv/lib/ferrostore/engines/nvm/internal"
)

// priorWriteCount reads whatever header currently occupies addr (there
// may be none, e.g. for a fresh allocation past the live frontier) so the
// new block's write_count can continue the existing sequence rather than
// always restarting at 1, per §4.4 step 1.
func (e *Engine) priorWriteCount(tag uint16, addr uint32) uint32 {
	hdrBuf := make([]byte, internal.BlockHeaderSize)
	if err := e.p.Read(addr, hdrBuf, internal.BlockHeaderSize); err != nil {
		return 0
	}
	old := internal.DecodeBlockHeader(hdrBuf)
	if old.Tag == tag {
		return old.WriteCount
	}
	return 0
}

// writeBlock implements §4.4's write_block: composes the 14-byte header,
// streams a CRC over header+payload, and issues three sequential region
// writes. The sequence is not atomic; the trailing CRC is the commit
// marker for the block itself, while the index save remains the
// visibility boundary for the engine as a whole.
func (e *Engine) writeBlock(tag uint16, payload []byte, addr uint32, version uint8) error {
	writeCount := e.priorWriteCount(tag, addr) + 1

	hdr := internal.BlockHeader{
		Tag:        tag,
		Length:     uint16(len(payload)),
		Version:    version,
		Flags:      0,
		Timestamp:  e.clk.TimeSeconds(),
		WriteCount: writeCount,
	}
	hdrBuf := internal.EncodeBlockHeader(hdr)

	crc := checksum.New()
	crc.Update(hdrBuf)
	crc.Update(payload)
	trailer := make([]byte, internal.BlockTrailerSize)
	internal.PutUint16(trailer, crc.Final())

	if err := e.p.Write(addr, hdrBuf, internal.BlockHeaderSize); err != nil {
		return ferrostore.WrapError(ferrostore.Generic, tag, "block header write failed", err)
	}
	if len(payload) > 0 {
		if err := e.p.Write(addr+internal.BlockHeaderSize, payload, uint32(len(payload))); err != nil {
			return ferrostore.WrapError(ferrostore.Generic, tag, "block payload write failed", err)
		}
	}
	if err := e.p.Write(addr+internal.BlockHeaderSize+uint32(len(payload)), trailer, internal.BlockTrailerSize); err != nil {
		return ferrostore.WrapError(ferrostore.Generic, tag, "block trailer write failed", err)
	}
	return nil
}

// readBlockHeader reads just the 14-byte header at addr, used by
// get_length and by the stream/defrag paths that need the size without
// the payload.
func (e *Engine) readBlockHeader(addr uint32) (internal.BlockHeader, error) {
	buf := make([]byte, internal.BlockHeaderSize)
	if err := e.p.Read(addr, buf, internal.BlockHeaderSize); err != nil {
		return internal.BlockHeader{}, ferrostore.WrapError(ferrostore.Generic, 0, "block header read failed", err)
	}
	return internal.DecodeBlockHeader(buf), nil
}

// readBlock implements §4.4's read_block: rejects into NoBufferMemory if
// the caller's buffer is smaller than the stored length, then verifies
// the trailing CRC over header+payload before returning the payload
// length actually read.
func (e *Engine) readBlock(addr uint32, buf []byte) (int, error) {
	hdr, err := e.readBlockHeader(addr)
	if err != nil {
		return 0, err
	}

	if int(hdr.Length) > len(buf) {
		return 0, ferrostore.NewBufferError(hdr.Tag, uint32(hdr.Length))
	}

	hdrBuf := internal.EncodeBlockHeader(hdr)
	payload := buf[:hdr.Length]
	if hdr.Length > 0 {
		if err := e.p.Read(addr+internal.BlockHeaderSize, payload, uint32(hdr.Length)); err != nil {
			return 0, ferrostore.WrapError(ferrostore.Generic, hdr.Tag, "block payload read failed", err)
		}
	}
	trailer := make([]byte, internal.BlockTrailerSize)
	if err := e.p.Read(addr+internal.BlockHeaderSize+uint32(hdr.Length), trailer, internal.BlockTrailerSize); err != nil {
		return 0, ferrostore.WrapError(ferrostore.Generic, hdr.Tag, "block trailer read failed", err)
	}

	crc := checksum.New()
	crc.Update(hdrBuf)
	crc.Update(payload)
	if crc.Final() != internal.GetUint16(trailer) {
		return 0, ferrostore.NewError(ferrostore.CrcFailed, hdr.Tag, "block CRC mismatch")
	}

	return int(hdr.Length), nil
}
