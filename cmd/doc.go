// Package cmd implements the command-line interface for ferrokv, a
// tag-addressed key/value persistence engine for byte-addressable NVM. It
// provides a hierarchical command structure with operations for running
// the RPC daemon and interacting with a device as a client.
//
// The package is organized into several subpackages:
//
//   - device: Commands for device lifecycle operations (format, init, stats, verify)
//   - kv: Commands for data operations (write, read, delete, exists, length, flush)
//   - stream: Commands for chunked stream operations (write, read)
//   - maintenance: Commands for maintenance operations (defragment, backup, restore)
//   - serve: Commands for starting and configuring the ferrokv RPC daemon
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See ferrokv -help for a list of all commands.
package cmd
