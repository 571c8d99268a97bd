// Package client implements an RPC client for the ferrokv persistence engine.
// It provides an implementation of the ferrostore.Store interface that
// communicates with a remote ferrokv daemon via RPC.
//
// The package focuses on:
//   - Transparent RPC access to a remote device's ferrostore.Store
//   - Integration with the transport and serialization layers
//   - Error handling and conversion between RPC and domain errors
//
// Key Components:
//
//   - NewRPCStore: Factory function that creates a client implementing the
//     ferrostore.Store interface. This client forwards every operation to a
//     remote ferrokv daemon via the configured transport layer. Operations
//     that only make sense in-process (Init/Deinit, ForEach, the error
//     ledger accessors) either no-op or return a clear "not supported
//     remotely" error.
//
// Usage Example:
//
//		// Configure the client
//		cfg := common.ClientConfig{
//		  Endpoints:              []string{"localhost:5000"},
//		  TimeoutSecond:          5,
//		  RetryCount:             3,
//		  ConnectionsPerEndpoint: 1,
//		}
//
//	 // Create a serializer
//		serializer := serializer.NewBinarySerializer()
//
//		// Create the store client
//		store, _ := client.NewRPCStore(1, cfg, tcp.NewTCPClientTransport(), serializer)
//
//		// Use the store
//		store.Write(0x1001, []byte("myvalue"))
//		buf := make([]byte, 64)
//		n, _ := store.Read(0x1001, buf)
//
// Performance Considerations:
//
//   - For applications that frequently send large payloads, increasing ConnectionsPerEndpoint
//     can improve throughput by allowing parallel requests.
//
//   - For small messages, a single connection per endpoint is often more efficient due to
//     reduced connection overhead.
//
//   - The choice of serializer significantly affects performance. The binary serializer
//     provides the best performance and smallest payload size.
//
// Thread Safety:
//
//	All client implementations are thread-safe and can be used concurrently from
//	multiple goroutines without additional synchronization.
package client
