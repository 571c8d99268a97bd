// Package nvm implements ferrostore.Store over a byte-addressable NVM
// device reached through a lib/port.Port. It owns the on-media system
// header, index table, and data region, and is the only package that
// knows their exact packed byte layout (lib/ferrostore/engines/nvm/internal).
//
// Every mutating operation follows the same shape: take an allocator
// snapshot, mutate the in-RAM mirrors, attempt the underlying media
// writes, and either commit the snapshot and persist the header, or roll
// the snapshot back and persist the pre-operation header. The index save
// is always the single visibility boundary: a crash after the block write
// but before the index save leaves the previous index authoritative and
// the new block simply unreferenced.
package nvm
