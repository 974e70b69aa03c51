package capture

import (
	"encoding/binary"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/pvdata/bitset"
	"github.com/wippyai/pvdata/codec"
	"github.com/wippyai/pvdata/errors"
	"github.com/wippyai/pvdata/value"
)

type writerOptions struct {
	compression Compression
	now         func() time.Time
	codec       []codec.Option
}

// WriterOption configures a Writer.
type WriterOption func(*writerOptions)

// WithCompression selects the payload compression. Payloads that do not
// shrink are stored uncompressed regardless.
func WithCompression(c Compression) WriterOption {
	return func(o *writerOptions) { o.compression = c }
}

// WithClock sets the time source for frame timestamps.
func WithClock(now func() time.Time) WriterOption {
	return func(o *writerOptions) { o.now = now }
}

// WithCodecOptions passes options to the underlying encoder.
func WithCodecOptions(opts ...codec.Option) WriterOption {
	return func(o *writerOptions) { o.codec = append(o.codec, opts...) }
}

// Writer appends frames to a capture.
type Writer struct {
	w    io.Writer
	enc  *codec.Encoder
	opts writerOptions
	seq  uint64
}

// NewWriter writes the capture magic to w and returns a Writer for it.
func NewWriter(w io.Writer, opts ...WriterOption) (*Writer, error) {
	o := writerOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if _, err := w.Write(Magic[:]); err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindInvalidData, err, "write capture magic")
	}
	return &Writer{w: w, enc: codec.NewEncoder(o.codec...), opts: o}, nil
}

// Frames returns the number of frames written.
func (w *Writer) Frames() uint64 {
	return w.seq
}

// WriteFull appends a frame carrying every value of t.
func (w *Writer) WriteFull(t *value.Tree) error {
	payload, err := w.enc.EncodeMessage(t, nil)
	if err != nil {
		return err
	}
	return w.writeFrame(FrameFull, payload, 0)
}

// WritePartial appends a frame carrying the offsets of t set in bits.
func (w *Writer) WritePartial(t *value.Tree, bits *bitset.BitSet) error {
	if bits == nil {
		bits = bitset.New(0)
	}
	payload, err := w.enc.EncodeMessage(t, bits)
	if err != nil {
		return err
	}
	return w.writeFrame(FramePartial, payload, bits.Cardinality())
}

func (w *Writer) writeFrame(kind FrameKind, payload []byte, offsets int) error {
	stored, used, err := compress(payload, w.opts.compression)
	if err != nil {
		return errors.Wrap(errors.PhaseEncode, errors.KindInvalidData, err, "compress capture frame")
	}
	h := Header{
		Seq:         w.seq,
		Kind:        kind,
		Compression: used,
		Size:        len(payload),
		Stored:      len(stored),
		UnixNano:    w.opts.now().UnixNano(),
		Digest:      digest(payload),
		Offsets:     offsets,
	}
	hdr, err := encMode.Marshal(&h)
	if err != nil {
		return errors.Wrap(errors.PhaseEncode, errors.KindInvalidData, err, "encode capture frame header")
	}

	frame := make([]byte, 4, 4+len(hdr)+len(stored))
	binary.LittleEndian.PutUint32(frame, uint32(len(hdr)))
	frame = append(frame, hdr...)
	frame = append(frame, stored...)
	if _, err := w.w.Write(frame); err != nil {
		return errors.Wrap(errors.PhaseEncode, errors.KindInvalidData, err, "write capture frame")
	}

	Logger().Debug("capture frame written",
		zap.Uint64("seq", h.Seq),
		zap.Stringer("kind", kind),
		zap.Stringer("compression", used),
		zap.Int("size", h.Size),
		zap.Int("stored", h.Stored))
	w.seq++
	return nil
}
