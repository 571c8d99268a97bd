// Package ferrostore defines the engine-agnostic surface of the
// tag-addressed key/value persistence engine. It has no knowledge of any
// particular storage medium or on-media layout; those live in a concrete
// implementation package such as engines/nvm.
package ferrostore
