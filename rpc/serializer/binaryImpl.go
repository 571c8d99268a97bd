package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ferrokv/ferrokv/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency.
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

type binarySerializerImpl struct{}

// Bit flags indicating which optional fields are present.
const (
	hasData        uint16 = 1 << 0
	hasExpectedLen uint16 = 1 << 1
	hasHandle      uint16 = 1 << 2
	hasMagic       uint16 = 1 << 3
	hasOk          uint16 = 1 << 4
	hasLength      uint16 = 1 << 5
	hasExists      uint16 = 1 << 6
	hasTags        uint16 = 1 << 7
	hasStats       uint16 = 1 << 8
	hasState       uint16 = 1 << 9
	hasErr         uint16 = 1 << 10
	hasCode        uint16 = 1 << 11
	hasRequired    uint16 = 1 << 12
	hasMeta        uint16 = 1 << 13
	hasTag         uint16 = 1 << 14
)

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	var flags uint16
	if msg.Tag != 0 {
		flags |= hasTag
	}
	if msg.Data != nil {
		flags |= hasData
	}
	if msg.ExpectedLen != 0 {
		flags |= hasExpectedLen
	}
	if msg.Handle != 0 {
		flags |= hasHandle
	}
	if msg.Magic != 0 {
		flags |= hasMagic
	}
	if msg.Ok {
		flags |= hasOk
	}
	if msg.Length != 0 {
		flags |= hasLength
	}
	if msg.Exists {
		flags |= hasExists
	}
	if msg.Tags != nil {
		flags |= hasTags
	}
	if msg.Stats != nil {
		flags |= hasStats
	}
	if msg.State != 0 {
		flags |= hasState
	}
	if msg.Err != "" {
		flags |= hasErr
	}
	if msg.Code != 0 {
		flags |= hasCode
	}
	if msg.Required != 0 {
		flags |= hasRequired
	}
	if msg.Meta != nil {
		flags |= hasMeta
	}

	result := make([]byte, 0, 64+len(msg.Data)+len(msg.Meta))
	result = append(result, byte(msg.MsgType))
	result = appendUint16(result, flags)

	if flags&hasTag != 0 {
		result = appendUint16(result, msg.Tag)
	}
	if flags&hasData != 0 {
		result = appendBytes(result, msg.Data)
	}
	if flags&hasExpectedLen != 0 {
		result = appendUint32(result, msg.ExpectedLen)
	}
	if flags&hasHandle != 0 {
		result = appendUint32(result, msg.Handle)
	}
	if flags&hasMagic != 0 {
		result = appendUint32(result, msg.Magic)
	}
	if flags&hasOk != 0 {
		result = append(result, 1)
	}
	if flags&hasLength != 0 {
		result = appendUint32(result, msg.Length)
	}
	if flags&hasExists != 0 {
		result = append(result, 1)
	}
	if flags&hasTags != 0 {
		result = appendUint32(result, uint32(len(msg.Tags)))
		for _, t := range msg.Tags {
			result = appendUint16(result, t)
		}
	}
	if flags&hasStats != 0 {
		result = appendBytes(result, msg.Stats)
	}
	if flags&hasState != 0 {
		result = append(result, msg.State)
	}
	if flags&hasErr != 0 {
		result = appendBytes(result, []byte(msg.Err))
	}
	if flags&hasCode != 0 {
		result = append(result, msg.Code)
	}
	if flags&hasRequired != 0 {
		result = appendUint32(result, msg.Required)
	}
	if flags&hasMeta != 0 {
		result = appendBytes(result, msg.Meta)
	}

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	*msg = common.Message{}
	if len(data) < 3 {
		return fmt.Errorf("data too short for message header")
	}

	msg.MsgType = common.MessageType(data[0])
	flags := binary.BigEndian.Uint16(data[1:3])
	pos := 3

	readUint16 := func() (uint16, error) {
		if pos+2 > len(data) {
			return 0, fmt.Errorf("data too short for uint16 field")
		}
		v := binary.BigEndian.Uint16(data[pos : pos+2])
		pos += 2
		return v, nil
	}
	readUint32 := func() (uint32, error) {
		if pos+4 > len(data) {
			return 0, fmt.Errorf("data too short for uint32 field")
		}
		v := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4
		return v, nil
	}
	readBytes := func() ([]byte, error) {
		n, err := readUint32()
		if err != nil {
			return nil, err
		}
		if pos+int(n) > len(data) {
			return nil, fmt.Errorf("data too short for byte field")
		}
		out := make([]byte, n)
		copy(out, data[pos:pos+int(n)])
		pos += int(n)
		return out, nil
	}

	var err error
	if flags&hasTag != 0 {
		if msg.Tag, err = readUint16(); err != nil {
			return err
		}
	}
	if flags&hasData != 0 {
		if msg.Data, err = readBytes(); err != nil {
			return err
		}
	}
	if flags&hasExpectedLen != 0 {
		if msg.ExpectedLen, err = readUint32(); err != nil {
			return err
		}
	}
	if flags&hasHandle != 0 {
		if msg.Handle, err = readUint32(); err != nil {
			return err
		}
	}
	if flags&hasMagic != 0 {
		if msg.Magic, err = readUint32(); err != nil {
			return err
		}
	}
	if flags&hasOk != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for Ok flag")
		}
		msg.Ok = data[pos] != 0
		pos++
	}
	if flags&hasLength != 0 {
		if msg.Length, err = readUint32(); err != nil {
			return err
		}
	}
	if flags&hasExists != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for Exists flag")
		}
		msg.Exists = data[pos] != 0
		pos++
	}
	if flags&hasTags != 0 {
		n, err := readUint32()
		if err != nil {
			return err
		}
		msg.Tags = make([]uint16, n)
		for i := range msg.Tags {
			if msg.Tags[i], err = readUint16(); err != nil {
				return err
			}
		}
	}
	if flags&hasStats != 0 {
		if msg.Stats, err = readBytes(); err != nil {
			return err
		}
	}
	if flags&hasState != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for State field")
		}
		msg.State = data[pos]
		pos++
	}
	if flags&hasErr != 0 {
		b, err := readBytes()
		if err != nil {
			return err
		}
		msg.Err = string(b)
	}
	if flags&hasCode != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for Code field")
		}
		msg.Code = data[pos]
		pos++
	}
	if flags&hasRequired != 0 {
		if msg.Required, err = readUint32(); err != nil {
			return err
		}
	}
	if flags&hasMeta != 0 {
		if msg.Meta, err = readBytes(); err != nil {
			return err
		}
	}

	return nil
}

func appendUint16(dst []byte, v uint16) []byte {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	return append(dst, buf[:]...)
}

func appendUint32(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

func appendBytes(dst []byte, b []byte) []byte {
	dst = appendUint32(dst, uint32(len(b)))
	return append(dst, b...)
}
