// Package capture records an encoded value stream to a file and replays it.
//
// A capture starts with a six byte magic followed by frames. Each frame is a
// little-endian uint32 header length, a deterministic CBOR header and the
// payload: one message from a codec.Encoder, optionally compressed with zstd
// or lz4. The header carries a sequence number, the frame kind, the
// compression, both payload sizes, a timestamp and a keyed blake3 digest of
// the uncompressed payload.
//
// All frames of a capture share one encoder, so descriptors are sent once
// and later frames refer to them through the introspection cache. A Reader
// pairs them with one codec.Decoder and applies partial frames to the
// record rebuilt from earlier ones.
package capture
