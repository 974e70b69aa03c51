// Package bitset implements the growable bit vector used to select nodes of a
// value tree by offset.
//
// A BitSet maps every non-negative integer to a boolean, false by default.
// Storage is a run of 64-bit words that grows on Set and is trimmed after any
// operation that may clear the highest word, so two sets holding the same bits
// always have identical word runs. Logical operations treat positions beyond an
// operand's extent as false.
//
// # Wire Form
//
//	varint wordCount | wordCount × uint64 (little-endian)
//
// The form is independent of any tree the set is applied to.
//
// # Thread Safety
//
// A BitSet is not safe for concurrent mutation.
package bitset
