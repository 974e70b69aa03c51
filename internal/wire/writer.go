package wire

import (
	"bytes"
	"encoding/binary"
	"math"
)

// ByteOrder is the numeric byte order used by every stream.
var ByteOrder = binary.LittleEndian

// Writer provides buffered writing utilities for the value encoding.
type Writer struct {
	buf *bytes.Buffer
}

// NewWriter creates a new Writer.
func NewWriter() *Writer {
	return &Writer{buf: &bytes.Buffer{}}
}

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Reset discards everything written so far.
func (w *Writer) Reset() {
	w.buf.Reset()
}

// Byte writes a single byte.
func (w *Writer) Byte(b byte) {
	w.buf.WriteByte(b)
}

// WriteBytes writes a byte slice.
func (w *Writer) WriteBytes(data []byte) {
	w.buf.Write(data)
}

// WriteU32 writes an unsigned LEB128 encoded uint32.
func (w *Writer) WriteU32(v uint32) {
	w.WriteU64(uint64(v))
}

// WriteU64 writes an unsigned LEB128 encoded uint64.
func (w *Writer) WriteU64(v uint64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.buf.WriteByte(b)
		if v == 0 {
			break
		}
	}
}

// WriteSize writes a non-negative length or count.
func (w *Writer) WriteSize(n int) {
	w.WriteU64(uint64(n))
}

// WriteString writes a length-prefixed UTF-8 string.
func (w *Writer) WriteString(s string) {
	w.WriteSize(len(s))
	w.buf.WriteString(s)
}

// Bool writes 1 for true and 0 for false.
func (w *Writer) Bool(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

// Uint16 writes a fixed-width uint16.
func (w *Writer) Uint16(v uint16) {
	var buf [2]byte
	ByteOrder.PutUint16(buf[:], v)
	w.buf.Write(buf[:])
}

// Uint32 writes a fixed-width uint32.
func (w *Writer) Uint32(v uint32) {
	var buf [4]byte
	ByteOrder.PutUint32(buf[:], v)
	w.buf.Write(buf[:])
}

// Uint64 writes a fixed-width uint64.
func (w *Writer) Uint64(v uint64) {
	var buf [8]byte
	ByteOrder.PutUint64(buf[:], v)
	w.buf.Write(buf[:])
}

// Float32 writes a fixed-width float32.
func (w *Writer) Float32(v float32) {
	w.Uint32(math.Float32bits(v))
}

// Float64 writes a fixed-width float64.
func (w *Writer) Float64(v float64) {
	w.Uint64(math.Float64bits(v))
}
