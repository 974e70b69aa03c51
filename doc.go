// Package pvdata implements structural data types, value trees over them and
// a differential wire codec that sends type definitions once per stream and
// then only the fields that changed.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	pvdata/
//	├── bitset/          Growable bit sets naming changed field offsets
//	├── pvtype/          Descriptor registry, standard descriptors, fingerprints
//	├── value/           Value trees with offsets and modification counters
//	├── codec/           Encoder/Decoder pair with a per-stream introspection cache
//	├── pvcopy/          Projections of a record onto a selected subset of fields
//	├── schema/          Descriptor definitions in YAML
//	├── pvjson/          JSON printing and assignment of value trees
//	├── capture/         Recorded message streams and their replay
//	├── message/         Diagnostic messages reported by the core
//	├── errors/          Structured error types for debugging
//	└── cmd/pvtool/      Command line tool over all of the above
//
// # Quick Start
//
// Describe a record, bind a tree, send it in full and then send changes:
//
//	reg := pvtype.NewRegistry()
//	rec, _ := reg.ScalarRecord(pvtype.Float64, "alarm,timeStamp")
//	tree, _ := value.Bind(rec)
//
//	enc := codec.NewEncoder()
//	msg, _ := enc.EncodeMessage(tree, nil)
//
//	mark := tree.Clock()
//	_ = tree.SetScalar("alarm.severity", int32(2))
//	msg, _ = enc.EncodeMessage(tree, tree.TouchedSince(mark))
//
// On the receiving side a Decoder paired with the stream rebuilds the record:
//
//	dec := codec.NewDecoder()
//	dst, _, _ := dec.DecodeMessage(first)
//	changed, _ := dec.DecodeMessageInto(dst, next)
//
// # Offsets
//
// Every field of a record has an offset in depth-first order, the record
// itself being 0. Aggregates expand into their members; scalars, arrays,
// unions and arrays of aggregates or unions take one offset each. A bit set
// over these offsets names what changed, what to encode and what a partial
// message carried. A set aggregate bit stands for its whole subtree.
//
// # Thread Safety
//
// A Registry is safe for concurrent use and descriptors are immutable. Trees,
// Encoders and Decoders are NOT thread-safe; each stream needs its own
// Encoder/Decoder pair.
package pvdata
