package tcp

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// maxFrameSize bounds the payload a frame may declare. A handful of kilobytes
// covers every Message the binary serializer produces for a schema-bounded
// tag payload plus its envelope; this cap exists only to stop a
// misbehaving peer from making the daemon allocate an unbounded buffer for a
// single request, not to model any real device limit.
const maxFrameSize = 16 * 1024 * 1024

// writeFrame writes a frame to the connection with the format:
//   - 8 bytes: deviceId (uint64, big endian)
//   - 8 bytes: requestID (uint64, big endian)
//   - 4 bytes: data length (uint32, big endian)
//   - N bytes: data payload
func writeFrame(conn net.Conn, deviceID uint64, requestID uint64, data []byte) error {
	header := make([]byte, 20)
	binary.BigEndian.PutUint64(header[:8], deviceID)
	binary.BigEndian.PutUint64(header[8:16], requestID)
	binary.BigEndian.PutUint32(header[16:20], uint32(len(data)))

	b := net.Buffers{header, data}
	_, err := b.WriteTo(conn)
	return err
}

// readFrame reads a frame from the connection, reusing buf for the header
// and, when it is large enough, the payload too.
func readFrame(conn net.Conn, buf []byte) (uint64, uint64, []byte, error) {
	if buf == nil || len(buf) < 20 {
		buf = make([]byte, 20)
	}

	if _, err := io.ReadFull(conn, buf[:20]); err != nil {
		return 0, 0, nil, err
	}

	deviceID := binary.BigEndian.Uint64(buf[:8])
	requestID := binary.BigEndian.Uint64(buf[8:16])
	contentLength := binary.BigEndian.Uint32(buf[16:20])

	if contentLength > maxFrameSize {
		return 0, 0, nil, fmt.Errorf("frame payload of %d bytes exceeds %d byte limit", contentLength, maxFrameSize)
	}

	if contentLength == 0 {
		return deviceID, requestID, []byte{}, nil
	}

	if len(buf) < int(contentLength) {
		buf = make([]byte, contentLength)
	}

	if _, err := io.ReadFull(conn, buf[:contentLength]); err != nil {
		return 0, 0, nil, err
	}

	return deviceID, requestID, buf[:contentLength], nil
}
