// Package server implements the RPC server for the ferrokv persistence
// engine. It opens one NVM device per configured DeviceConfig and routes
// incoming RPC requests to the matching device's ferrostore.Store.
//
// The package focuses on:
//   - Server-side RPC request handling for the full ferrostore.Store surface
//   - Adapter pattern to decouple wire Messages from ferrostore.Store calls
//   - Opening, first-boot formatting, and schema loading for each device
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for the server
//     adapter, with the Handle method that processes incoming requests
//     against a ferrostore.Store.
//
//   - NewStoreServerAdapter: Factory function creating the adapter that
//     translates wire Messages into ferrostore.Store method calls.
//
//   - NewRPCServer: Factory function creating a configured server with the
//     specified transport and serializer mechanisms.
//
// Usage Example:
//
//	// Create server configuration
//	config := common.ServerConfig{
//	  Devices: []common.DeviceConfig{
//	    {DeviceID: 100, DevicePath: "/dev/nvm0", DeviceSize: 1 << 20, SchemaPath: "schema.yaml"},
//	  },
//	  Endpoint:      "0.0.0.0:8080",
//	  TimeoutSecond: 5,
//	  LogLevel:      "info",
//	}
//
//	// Create and start the server
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPServerTransport(64*1024),
//	  serializer.NewBinarySerializer(),
//	)
//
//	// Start the server
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Thread Safety:
//
//	The server implementation is thread-safe and can handle concurrent requests
//	across multiple connections. Each request is processed independently against
//	its device's ferrostore.Store, which itself assumes a single cooperating
//	caller per device (§5) — concurrent requests to the same device are
//	serialized by the per-device adapter's mutex, not by any locking in the
//	store. The Serve method is not thread-safe and should be called only once.
package server
