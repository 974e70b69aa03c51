package wire

import (
	"errors"
	"math"
	"unicode/utf8"

	pverrors "github.com/wippyai/pvdata/errors"
)

// ErrOverflow is returned when a LEB128 value exceeds the maximum bit width.
var ErrOverflow = errors.New("leb128: overflow")

// MaxSize bounds any decoded length or count.
const MaxSize = 1 << 28

// Reader reads wire primitives from an in-memory buffer with position tracking.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a Reader over data. The slice is not copied.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Position returns the current byte position.
func (r *Reader) Position() int {
	return r.pos
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Reset replaces the input and rewinds to its start.
func (r *Reader) Reset(data []byte) {
	r.data = data
	r.pos = 0
}

// Seek moves to an absolute position inside the current input.
func (r *Reader) Seek(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(r.data) {
		pos = len(r.data)
	}
	r.pos = pos
}

// ReadByte reads a single byte and advances the position.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, pverrors.Truncated("byte", nil)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadBytes reads exactly n bytes. The returned slice aliases the input.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || n > r.Remaining() {
		return nil, pverrors.Truncated("bytes", nil)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadU32 reads an unsigned LEB128 encoded uint32.
func (r *Reader) ReadU32() (uint32, error) {
	v, err := r.ReadU64()
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, r.overflow()
	}
	return uint32(v), nil
}

// ReadU64 reads an unsigned LEB128 encoded uint64.
func (r *Reader) ReadU64() (uint64, error) {
	var result uint64
	var shift uint
	for {
		if r.pos >= len(r.data) {
			return 0, pverrors.Truncated("varint", nil)
		}
		b := r.data[r.pos]
		r.pos++
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 70 {
			return 0, r.overflow()
		}
	}
}

// ReadSize reads a length or count and rejects values above MaxSize.
func (r *Reader) ReadSize() (int, error) {
	v, err := r.ReadU64()
	if err != nil {
		return 0, err
	}
	if v > MaxSize {
		return 0, pverrors.New(pverrors.PhaseDecode, pverrors.KindInvalidData).
			Detail("size %d at position %d exceeds limit %d", v, r.pos, MaxSize).
			Build()
	}
	return int(v), nil
}

// ReadString reads a length-prefixed UTF-8 string.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadSize()
	if err != nil {
		return "", err
	}
	data, err := r.ReadBytes(n)
	if err != nil {
		return "", pverrors.Truncated("string", nil)
	}
	if !utf8.Valid(data) {
		return "", pverrors.InvalidData(pverrors.PhaseDecode, nil, "invalid UTF-8 in string")
	}
	return string(data), nil
}

// Bool reads a single byte as a boolean.
func (r *Reader) Bool() (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// Uint16 reads a fixed-width uint16.
func (r *Reader) Uint16() (uint16, error) {
	buf, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return ByteOrder.Uint16(buf), nil
}

// Uint32 reads a fixed-width uint32.
func (r *Reader) Uint32() (uint32, error) {
	buf, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return ByteOrder.Uint32(buf), nil
}

// Uint64 reads a fixed-width uint64.
func (r *Reader) Uint64() (uint64, error) {
	buf, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return ByteOrder.Uint64(buf), nil
}

// Float32 reads a fixed-width float32.
func (r *Reader) Float32() (float32, error) {
	v, err := r.Uint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// Float64 reads a fixed-width float64.
func (r *Reader) Float64() (float64, error) {
	v, err := r.Uint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

func (r *Reader) overflow() error {
	return pverrors.New(pverrors.PhaseDecode, pverrors.KindInvalidData).
		Detail("varint at position %d", r.pos).
		Cause(ErrOverflow).
		Build()
}
