// Package transport defines the client/server transport interfaces rpc/client
// and rpc/server program against, keeping them independent of the concrete
// wire implementation in rpc/transport/tcp.
package transport
