// Package value holds mutable value trees shaped by pvtype descriptors.
//
// Bind creates a zero valued Tree for a descriptor. Nodes are addressed by
// dotted member path or by offset, mutated through typed setters that
// reject values whose Go type does not fit the scalar kind, and stamped
// with a per-tree clock on every change. TouchedSince turns those stamps
// into the BitSet of offsets changed after a watermark, ready for partial
// encoding.
//
// Aggregates never carry their own stamp. Scalars, arrays and unions do;
// a change inside a union's active value or inside an array element stamps
// the union or array itself, since those occupy a single offset in the
// enclosing tree.
package value
