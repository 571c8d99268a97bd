// Package tcp is the sole RPC transport: a length-prefixed frame over a
// plain TCP connection, carrying a deviceId, a requestID, and an opaque
// serialized Message payload.
//
// A connection pool with round-robin selection and retry/backoff exists on
// the client side, and a per-connection worker pool (one worker per
// connection) on the server side, so requests against distinct devices on
// one daemon overlap when they travel on different connections.
// Neither does anything for two requests against the *same* device: the
// server adapter's per-device mutex already serializes those per §5's
// single-cooperating-caller contract, so this package never needs to know
// which device IDs happen to collide.
package tcp
