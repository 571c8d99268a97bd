package serializer

import (
	"reflect"
	"testing"

	"github.com/ferrokv/ferrokv/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	return []common.Message{
		{MsgType: common.MsgTSuccess},

		{
			MsgType: common.MsgTWrite,
			Tag:     0x1001,
			Data:    []byte("test-value"),
		},

		{
			MsgType: common.MsgTRead,
			Data:    []byte("test-value"),
			Ok:      true,
		},

		{
			MsgType: common.MsgTError,
			Err:     "test error message",
			Code:    5,
		},

		{
			MsgType:     common.MsgTWriteBegin,
			Tag:         0x2002,
			ExpectedLen: 512,
			Handle:      0xA5000003,
			Ok:          true,
			Err:         "",
			Meta:        []byte("test-meta-data"),
		},

		{
			MsgType: common.MsgTVerifyAll,
			Tags:    []uint16{1, 2, 3},
		},

		{
			MsgType: common.MsgTState,
			State:   2,
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for msgType := common.MsgTSuccess; msgType <= common.MsgTCustom; msgType++ {
				msg := common.Message{MsgType: msgType}

				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType.String(), err)
					continue
				}

				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType.String(), err)
					continue
				}

				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s",
						msgType.String(), result.MsgType.String())
				}
			}
		})
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name string
		msg  common.Message
	}{
		{name: "Empty message", msg: common.Message{}},
		{
			name: "Message with empty strings and zero values",
			msg: common.Message{
				MsgType: common.MsgTWrite,
				Data:    []byte{},
				Ok:      false,
				Err:     "",
				Meta:    []byte{},
			},
		},
		{
			name: "Message with empty data but Ok=true",
			msg:  common.Message{MsgType: common.MsgTRead, Ok: true, Data: nil},
		},
		{
			name: "Message with empty data slice but not nil",
			msg:  common.Message{MsgType: common.MsgTWrite, Tag: 1, Data: []byte{}},
		},
		{
			name: "Message with empty meta slice but not nil",
			msg:  common.Message{MsgType: common.MsgTCustom, Meta: []byte{}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := serializer.Serialize(tc.msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			var result common.Message
			err = serializer.Deserialize(data, &result)
			if err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			if tc.msg.Tag != result.Tag {
				t.Errorf("Tag mismatch: expected %d, got %d", tc.msg.Tag, result.Tag)
			}
			if tc.msg.Ok != result.Ok {
				t.Errorf("Ok mismatch: expected %v, got %v", tc.msg.Ok, result.Ok)
			}
			if tc.msg.Err != result.Err {
				t.Errorf("Err mismatch: expected '%s', got '%s'", tc.msg.Err, result.Err)
			}
			if tc.msg.MsgType != result.MsgType {
				t.Errorf("MsgType mismatch: expected %v, got %v", tc.msg.MsgType, result.MsgType)
			}

			if (tc.msg.Data == nil) != (result.Data == nil) {
				t.Errorf("Data nil/non-nil mismatch: expected %v, got %v", tc.msg.Data, result.Data)
			} else if len(tc.msg.Data) != len(result.Data) {
				t.Errorf("Data length mismatch: expected %d, got %d", len(tc.msg.Data), len(result.Data))
			}

			if (tc.msg.Meta == nil) != (result.Meta == nil) {
				t.Errorf("Meta nil/non-nil mismatch: expected %v, got %v", tc.msg.Meta, result.Meta)
			} else if len(tc.msg.Meta) != len(result.Meta) {
				t.Errorf("Meta length mismatch: expected %d, got %d", len(tc.msg.Meta), len(result.Meta))
			}
		})
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{name: "Empty data", data: []byte{}, expectError: true},
		{name: "Too short header", data: []byte{1, 0}, expectError: true},
		{name: "Valid header only", data: []byte{1, 0, 0}, expectError: false},
		{
			name:        "Invalid length for data",
			data:        []byte{1, 0, 1, 0, 0, 0, 5, 'a', 'b', 'c'},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}
