package port

import (
	"fmt"
	"os"
)

// filePort is a Port backed by an os.File, for the CLI and daemon operating
// against a real file (or a block/character device node standing in for
// one on a host system).
type filePort struct {
	f    *os.File
	size uint32
}

// NewFilePort opens (creating if necessary) the file at path and ensures it
// is at least size bytes long, padding with zeros if it was shorter.
func NewFilePort(path string, size int) (Port, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("port: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("port: stat %s: %w", path, err)
	}

	if info.Size() < int64(size) {
		if err := f.Truncate(int64(size)); err != nil {
			f.Close()
			return nil, fmt.Errorf("port: truncate %s: %w", path, err)
		}
	}

	return &filePort{f: f, size: uint32(size)}, nil
}

func (p *filePort) Init() error {
	return nil
}

func (p *filePort) Read(offset uint32, dst []byte, size uint32) error {
	if offset+size > p.size {
		return fmt.Errorf("port: read [%d,%d) out of bounds (device size %d)", offset, offset+size, p.size)
	}
	n, err := p.f.ReadAt(dst[:size], int64(offset))
	if err != nil {
		return fmt.Errorf("port: read at %d: %w", offset, err)
	}
	if uint32(n) != size {
		return fmt.Errorf("port: short read at %d: got %d want %d", offset, n, size)
	}
	return nil
}

func (p *filePort) Write(offset uint32, src []byte, size uint32) error {
	if offset+size > p.size {
		return fmt.Errorf("port: write [%d,%d) out of bounds (device size %d)", offset, offset+size, p.size)
	}
	n, err := p.f.WriteAt(src[:size], int64(offset))
	if err != nil {
		return fmt.Errorf("port: write at %d: %w", offset, err)
	}
	if uint32(n) != size {
		return fmt.Errorf("port: short write at %d: wrote %d want %d", offset, n, size)
	}
	return nil
}

func (p *filePort) Size() uint32 {
	return p.size
}

// Close releases the underlying file handle. Not part of the Port
// interface (the engine never closes its own transport), but available to
// callers that opened the file and want to release it deterministically.
func (p *filePort) Close() error {
	return p.f.Close()
}
