// Package codec encodes descriptors and value trees to bytes and back.
//
// Encoder and Decoder are the two ends of one stream. Each side keeps an
// introspection cache: the first time an aggregate or union descriptor is
// written it is sent in full with a fresh cache ID, and every later
// occurrence on the same stream is sent as that ID alone.
//
// Type entry, first byte:
//
//	0xFF             null
//	0xFE id          cached descriptor (LEB128 id)
//	0xFD id body     define id; body is an aggregate or union
//	0x01 code        scalar
//	0x02 bound       bounded string
//	0x03 type        array of a scalar or bounded string type entry
//	0x04 ...         aggregate: id string, count, (name, type)*
//	0x05 ...         union: id string, discriminated byte, count, (name, type)*
//	0x06 type        aggregate array
//	0x07 type        union array
//
// Value sections use little-endian fixed-width numbers and LEB128 lengths.
// A full section writes every node in offset order. A partial section
// writes a count followed by one entry per selected offset: the gap from
// the previous offset, then that node's value. An offset inside an
// aggregate already written by the same section carries no value, so the
// decoder can report exactly the offsets that were selected.
//
// A message is a type entry, a mode byte (0 full, 1 partial) and a value
// section.
package codec
