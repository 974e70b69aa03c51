package capture

import (
	"bytes"
	"encoding/binary"
	stderrors "errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/wippyai/pvdata/bitset"
	"github.com/wippyai/pvdata/codec"
	"github.com/wippyai/pvdata/errors"
	"github.com/wippyai/pvdata/value"
)

// Frame is one replayed frame.
type Frame struct {
	Header

	// Tree is the record after applying this frame. The Reader keeps
	// applying later frames to the same tree while the descriptor stays
	// the same.
	Tree *value.Tree

	// Changed holds the offsets the frame carried, {0} for a full frame.
	Changed *bitset.BitSet
}

// Reader replays a capture.
type Reader struct {
	r    io.Reader
	dec  *codec.Decoder
	tree *value.Tree
	seq  uint64
}

// NewReader checks the capture magic and returns a Reader decoding frames
// with a fresh codec.Decoder configured by opts.
func NewReader(r io.Reader, opts ...codec.Option) (*Reader, error) {
	var magic [len(Magic)]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, errors.Truncated("capture magic", err)
	}
	if magic != Magic {
		return nil, errors.InvalidData(errors.PhaseDecode, nil, "not a capture file")
	}
	return &Reader{r: r, dec: codec.NewDecoder(opts...)}, nil
}

// Next reads and applies the next frame. It returns io.EOF after the last
// frame.
func (r *Reader) Next() (*Frame, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r.r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Truncated("capture frame length", err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n == 0 || n > maxHeaderSize {
		return nil, r.frameError(fmt.Sprintf("header length %d", n))
	}
	hdr := make([]byte, n)
	if _, err := io.ReadFull(r.r, hdr); err != nil {
		return nil, errors.Truncated("capture frame header", err)
	}
	var h Header
	if err := decMode.Unmarshal(hdr, &h); err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "decode capture frame header")
	}
	if h.Seq != r.seq {
		return nil, r.frameError(fmt.Sprintf("sequence %d, expected %d", h.Seq, r.seq))
	}
	if h.Size < 0 || h.Size > codec.DefaultMaxSize || h.Stored < 0 || h.Stored > codec.DefaultMaxSize {
		return nil, r.frameError(fmt.Sprintf("payload sizes %d/%d out of range", h.Stored, h.Size))
	}

	stored := make([]byte, h.Stored)
	if _, err := io.ReadFull(r.r, stored); err != nil {
		return nil, errors.Truncated("capture frame payload", err)
	}
	payload, err := decompress(stored, h.Compression, h.Size)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "decompress capture frame")
	}
	if !bytes.Equal(digest(payload), h.Digest) {
		return nil, r.frameError("payload digest mismatch")
	}

	msg, changed, err := r.dec.DecodeMessage(payload)
	if err != nil {
		return nil, err
	}
	if err := r.apply(msg, changed); err != nil {
		return nil, err
	}

	Logger().Debug("capture frame replayed",
		zap.Uint64("seq", h.Seq),
		zap.Stringer("kind", h.Kind),
		zap.Int("changed", changed.Cardinality()))
	r.seq++
	return &Frame{Header: h, Tree: r.tree, Changed: changed}, nil
}

// Replay calls fn for every remaining frame.
func (r *Reader) Replay(fn func(*Frame) error) error {
	for {
		f, err := r.Next()
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			return err
		}
	}
}

func (r *Reader) frameError(detail string) error {
	return errors.InvalidData(errors.PhaseDecode, nil, fmt.Sprintf("capture frame %d: %s", r.seq, detail))
}

// apply folds a decoded message into the replayed record. A new descriptor
// starts a new record.
func (r *Reader) apply(msg *value.Tree, changed *bitset.BitSet) error {
	if r.tree == nil || !r.tree.Descriptor().Equal(msg.Descriptor()) {
		r.tree = msg
		return nil
	}
	if changed.Get(0) {
		return r.tree.CopyFrom(msg)
	}
	for off := changed.NextSetBit(0); off >= 0; off = changed.NextSetBit(off + 1) {
		dst, err := r.tree.NodeAt(off)
		if err != nil {
			return err
		}
		src, err := msg.NodeAt(off)
		if err != nil {
			return err
		}
		if err := dst.CopyFrom(src); err != nil {
			return err
		}
	}
	return nil
}
