// Package wire holds the byte-level primitives shared by the bitset and codec
// packages: LEB128 varints, fixed-width little-endian numerics and
// length-prefixed strings.
//
// Reader works over an in-memory slice. Running out of input is reported as a
// truncated_stream error from the errors package, never as a bare io.EOF, so
// callers can propagate it unchanged.
//
// This package is internal to the module.
package wire
