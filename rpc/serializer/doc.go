// Package serializer encodes and decodes the wire Message. The sole
// implementation, binarySerializerImpl, uses a flag-based format that
// writes only the fields a given MessageType actually sets — appropriate
// for an embedded daemon exchanging small, schema-bounded tag payloads,
// where JSON's or gob's self-describing overhead buys nothing.
//
// Thread Safety:
//
//	The serializer is stateless and safe for concurrent use across
//	multiple goroutines without additional synchronization.
//
// Usage:
//
//	serializer := serializer.NewBinarySerializer()
//	data, err := serializer.Serialize(message)
//	// ... send data ...
//	var receivedMsg common.Message
//	err = serializer.Deserialize(receivedData, &receivedMsg)
package serializer
