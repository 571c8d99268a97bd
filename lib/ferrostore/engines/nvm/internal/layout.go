// Package internal defines the bit-exact, little-endian, packed on-media
// layout of the system header, index entries, and data block headers
// (§3, §6.4). Every persisted structure is modeled as a transparent
// byte-addressed view with an explicit encode/decode pair rather than a Go
// struct read directly off the wire, so host struct padding can never
// silently diverge from the persisted shape.
package internal

import "encoding/binary"

const (
	// HeaderSize is the fixed, total on-media size of the system header.
	HeaderSize = 256

	// headerFieldsSize is the size of the fields preceding the reserved
	// padding block.
	headerFieldsSize = 44

	// headerCRCOffset is the byte offset of the trailing header_crc16
	// within the 256-byte header.
	headerCRCOffset = HeaderSize - 2

	// headerPaddingSize is the size of the reserved, always-zero region
	// between the last encoded field and the trailing header_crc16.
	headerPaddingSize = headerCRCOffset - headerFieldsSize

	// IndexEntrySize is the fixed size of one index slot.
	IndexEntrySize = 8

	// BlockHeaderSize is the fixed size of a data block header.
	BlockHeaderSize = 14

	// BlockTrailerSize is the size of a block's trailing CRC.
	BlockTrailerSize = 2

	// DefaultMagic is the system identifier stamped into a freshly
	// formatted header.
	DefaultMagic uint32 = 0x544C5646

	// FormatVersion is the engine's own format_version: major in the high
	// byte, minor in the low byte.
	FormatVersion uint16 = 0x0100
)

// compile-time size assertions: a mismatch here fails to compile with a
// negative array length, rather than surfacing as a subtle wire bug.
var (
	_ [HeaderSize - 256]byte
	_ [256 - HeaderSize]byte
	_ [IndexEntrySize - 8]byte
	_ [8 - IndexEntrySize]byte
	_ [BlockHeaderSize - 14]byte
	_ [14 - BlockHeaderSize]byte
	_ [headerPaddingSize]byte // negative if the fields block overruns the CRC
)

// Index entry flag bits (§3). Only Valid and Dirty are consumed by the
// engine; Backup, Encrypted, and Critical are advisory and passed through
// unexamined.
const (
	FlagValid     uint8 = 1 << 0
	FlagDirty     uint8 = 1 << 1
	FlagBackup    uint8 = 1 << 2
	FlagEncrypted uint8 = 1 << 3
	FlagCritical  uint8 = 1 << 4
)

// Header is the in-RAM mirror of the 256-byte system header.
type Header struct {
	Magic           uint32
	FormatVersion   uint16
	TagCount        uint16
	DataRegionStart uint32
	DataRegionSize  uint32
	NextFreeAddr    uint32
	TotalWrites     uint32
	LastUpdateTime  uint32
	FreeSpace       uint32
	UsedSpace       uint32
	FragmentCount   uint32
	FragmentSize    uint32
}

// Encode serializes h into a fresh HeaderSize-byte buffer. The trailing
// header_crc16 bytes are left zero; callers fill them with PutHeaderCRC.
func (h *Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.FormatVersion)
	binary.LittleEndian.PutUint16(buf[6:8], h.TagCount)
	binary.LittleEndian.PutUint32(buf[8:12], h.DataRegionStart)
	binary.LittleEndian.PutUint32(buf[12:16], h.DataRegionSize)
	binary.LittleEndian.PutUint32(buf[16:20], h.NextFreeAddr)
	binary.LittleEndian.PutUint32(buf[20:24], h.TotalWrites)
	binary.LittleEndian.PutUint32(buf[24:28], h.LastUpdateTime)
	binary.LittleEndian.PutUint32(buf[28:32], h.FreeSpace)
	binary.LittleEndian.PutUint32(buf[32:36], h.UsedSpace)
	binary.LittleEndian.PutUint32(buf[36:40], h.FragmentCount)
	binary.LittleEndian.PutUint32(buf[40:44], h.FragmentSize)
	// buf[headerFieldsSize:headerCRCOffset] stays zeroed reserved padding.
	return buf
}

// DecodeHeader parses a HeaderSize-byte buffer into a Header, ignoring the
// trailing CRC (callers verify it separately).
func DecodeHeader(buf []byte) Header {
	return Header{
		Magic:           binary.LittleEndian.Uint32(buf[0:4]),
		FormatVersion:   binary.LittleEndian.Uint16(buf[4:6]),
		TagCount:        binary.LittleEndian.Uint16(buf[6:8]),
		DataRegionStart: binary.LittleEndian.Uint32(buf[8:12]),
		DataRegionSize:  binary.LittleEndian.Uint32(buf[12:16]),
		NextFreeAddr:    binary.LittleEndian.Uint32(buf[16:20]),
		TotalWrites:     binary.LittleEndian.Uint32(buf[20:24]),
		LastUpdateTime:  binary.LittleEndian.Uint32(buf[24:28]),
		FreeSpace:       binary.LittleEndian.Uint32(buf[28:32]),
		UsedSpace:       binary.LittleEndian.Uint32(buf[32:36]),
		FragmentCount:   binary.LittleEndian.Uint32(buf[36:40]),
		FragmentSize:    binary.LittleEndian.Uint32(buf[40:44]),
	}
}

// HeaderCRCRegion returns the slice of an encoded header over which the
// header_crc16 is computed: everything but the trailing 2 CRC bytes.
func HeaderCRCRegion(encoded []byte) []byte {
	return encoded[:headerCRCOffset]
}

// PutHeaderCRC writes crc into the trailing 2 bytes of an encoded header.
func PutHeaderCRC(encoded []byte, crc uint16) {
	binary.LittleEndian.PutUint16(encoded[headerCRCOffset:], crc)
}

// HeaderCRC reads the trailing header_crc16 out of an encoded header.
func HeaderCRC(encoded []byte) uint16 {
	return binary.LittleEndian.Uint16(encoded[headerCRCOffset:])
}

// IndexEntry is one 8-byte slot of the index table.
type IndexEntry struct {
	Tag      uint16
	Flags    uint8
	Version  uint8
	DataAddr uint32
}

// Empty reports whether the slot is unused (tag == 0).
func (e IndexEntry) Empty() bool {
	return e.Tag == 0
}

// Valid reports whether the slot's Valid flag is set.
func (e IndexEntry) Valid() bool {
	return e.Flags&FlagValid != 0
}

// EncodeIndexEntry writes e into an 8-byte slice.
func EncodeIndexEntry(e IndexEntry) []byte {
	buf := make([]byte, IndexEntrySize)
	binary.LittleEndian.PutUint16(buf[0:2], e.Tag)
	buf[2] = e.Flags
	buf[3] = e.Version
	binary.LittleEndian.PutUint32(buf[4:8], e.DataAddr)
	return buf
}

// DecodeIndexEntry parses an 8-byte slice into an IndexEntry.
func DecodeIndexEntry(buf []byte) IndexEntry {
	return IndexEntry{
		Tag:      binary.LittleEndian.Uint16(buf[0:2]),
		Flags:    buf[2],
		Version:  buf[3],
		DataAddr: binary.LittleEndian.Uint32(buf[4:8]),
	}
}

// BlockHeader is the 14-byte header preceding a data block's payload.
type BlockHeader struct {
	Tag        uint16
	Length     uint16
	Version    uint8
	Flags      uint8
	Timestamp  uint32
	WriteCount uint32
}

// EncodeBlockHeader writes h into a 14-byte slice.
func EncodeBlockHeader(h BlockHeader) []byte {
	buf := make([]byte, BlockHeaderSize)
	binary.LittleEndian.PutUint16(buf[0:2], h.Tag)
	binary.LittleEndian.PutUint16(buf[2:4], h.Length)
	buf[4] = h.Version
	buf[5] = h.Flags
	binary.LittleEndian.PutUint32(buf[6:10], h.Timestamp)
	binary.LittleEndian.PutUint32(buf[10:14], h.WriteCount)
	return buf
}

// DecodeBlockHeader parses a 14-byte slice into a BlockHeader.
func DecodeBlockHeader(buf []byte) BlockHeader {
	return BlockHeader{
		Tag:        binary.LittleEndian.Uint16(buf[0:2]),
		Length:     binary.LittleEndian.Uint16(buf[2:4]),
		Version:    buf[4],
		Flags:      buf[5],
		Timestamp:  binary.LittleEndian.Uint32(buf[6:10]),
		WriteCount: binary.LittleEndian.Uint32(buf[10:14]),
	}
}

// BlockSize returns the total on-media size of a block with the given
// payload length: header + payload + trailing CRC.
func BlockSize(payloadLen int) int {
	return BlockHeaderSize + payloadLen + BlockTrailerSize
}

// PutUint16 and PutUint32 are small helpers used by callers (stream
// sessions, CRC trailers) that build up a block incrementally instead of
// through EncodeBlockHeader.
func PutUint16(buf []byte, v uint16) {
	binary.LittleEndian.PutUint16(buf, v)
}

func PutUint32(buf []byte, v uint32) {
	binary.LittleEndian.PutUint32(buf, v)
}

func GetUint16(buf []byte) uint16 {
	return binary.LittleEndian.Uint16(buf)
}

func GetUint32(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf)
}
