// Package port defines the external collaborators the persistence engine
// consumes but never owns: byte-granular synchronous NVM access and a
// monotonic clock. The engine maps any non-zero error from either into its
// own generic transport error code; port implementations are otherwise
// free to do whatever they like (memory-backed, file-backed, register-bus
// backed) as long as reads observe the most recent completed write.
package port

// Port is the byte-granular, synchronous storage transport the engine
// performs all of its reads and writes through. Offsets are absolute
// within the device; implementations are not required to support
// concurrent calls (the engine never issues two in flight at once).
type Port interface {
	// Init prepares the underlying medium for use. Called once before any
	// Read or Write.
	Init() error

	// Read copies size bytes starting at offset into dst. dst must have at
	// least size bytes of capacity.
	Read(offset uint32, dst []byte, size uint32) error

	// Write copies size bytes from src to offset. src must have at least
	// size bytes available.
	Write(offset uint32, src []byte, size uint32) error

	// Size reports the total addressable byte size of the device.
	Size() uint32
}

// Clock supplies the monotonic wall/boot time the engine stamps into
// headers and data blocks. It never needs to be wall-clock accurate; it
// only needs to be non-decreasing across the process lifetime.
type Clock interface {
	// TimeSeconds returns seconds since boot or epoch.
	TimeSeconds() uint32

	// TimeMillis returns milliseconds since boot or epoch.
	TimeMillis() uint32
}
