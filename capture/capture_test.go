package capture

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pverrors "github.com/wippyai/pvdata/errors"
	"github.com/wippyai/pvdata/pvtype"
	"github.com/wippyai/pvdata/value"
)

// offsets: 0 root, 1 value, 2 alarm, 3 severity, 4 status, 5 message,
// 6 labels
func newRecord(t *testing.T, reg *pvtype.Registry) *value.Tree {
	t.Helper()
	dbl, err := reg.Scalar(pvtype.Float64)
	require.NoError(t, err)
	labels, err := reg.Array(pvtype.String)
	require.NoError(t, err)
	d, err := reg.AggregateWithID("sensor_t",
		pvtype.M("value", dbl),
		pvtype.M("alarm", reg.Alarm()),
		pvtype.M("labels", labels),
	)
	require.NoError(t, err)
	tree, err := value.Bind(d)
	require.NoError(t, err)
	return tree
}

func TestWriterReader_RoundTrip(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			tree := newRecord(t, pvtype.NewRegistry())
			labels := make([]string, 200)
			for i := range labels {
				labels[i] = "channel"
			}
			require.NoError(t, tree.SetArray("labels", labels))
			require.NoError(t, tree.SetScalar("value", 1.5))

			var buf bytes.Buffer
			w, err := NewWriter(&buf, WithCompression(c))
			require.NoError(t, err)
			require.NoError(t, w.WriteFull(tree))

			mark := tree.Clock()
			require.NoError(t, tree.SetScalar("value", 2.5))
			require.NoError(t, tree.SetScalar("alarm.message", "drift"))
			require.NoError(t, w.WritePartial(tree, tree.TouchedSince(mark)))
			require.NoError(t, w.WriteFull(tree))
			require.Equal(t, uint64(3), w.Frames())

			r, err := NewReader(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)

			f0, err := r.Next()
			require.NoError(t, err)
			require.Equal(t, FrameFull, f0.Kind)
			require.Equal(t, c, f0.Compression, "a repetitive payload shrinks")
			if c != CompressionNone {
				require.Less(t, f0.Stored, f0.Size)
			}
			require.Equal(t, "{0}", f0.Changed.String())
			v, err := f0.Tree.Scalar("value")
			require.NoError(t, err)
			require.Equal(t, 1.5, v)

			f1, err := r.Next()
			require.NoError(t, err)
			require.Equal(t, FramePartial, f1.Kind)
			require.Equal(t, 2, f1.Offsets)
			require.Equal(t, "{1, 5}", f1.Changed.String())
			require.Same(t, f0.Tree, f1.Tree, "partial frames apply to the replayed record")
			require.True(t, tree.Equal(f1.Tree))

			f2, err := r.Next()
			require.NoError(t, err)
			require.Less(t, f2.Size, f0.Size, "the descriptor is sent once per capture")
			require.True(t, tree.Equal(f2.Tree))

			_, err = r.Next()
			require.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestWriter_IncompressibleStoredPlain(t *testing.T) {
	tree := newRecord(t, pvtype.NewRegistry())
	var buf bytes.Buffer
	w, err := NewWriter(&buf, WithCompression(CompressionZstd))
	require.NoError(t, err)
	require.NoError(t, w.WriteFull(tree))

	r, err := NewReader(&buf)
	require.NoError(t, err)
	f, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, CompressionNone, f.Compression)
	require.Equal(t, f.Size, f.Stored)
}

func TestReader_Replay(t *testing.T) {
	reg := pvtype.NewRegistry()
	tree := newRecord(t, reg)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	w, err := NewWriter(&buf, WithClock(func() time.Time { return at }))
	require.NoError(t, err)
	require.NoError(t, w.WriteFull(tree))
	for i := 0; i < 4; i++ {
		mark := tree.Clock()
		require.NoError(t, tree.SetScalar("alarm.severity", int32(i)))
		require.NoError(t, w.WritePartial(tree, tree.TouchedSince(mark)))
	}
	require.NoError(t, w.WritePartial(tree, nil))

	r, err := NewReader(&buf)
	require.NoError(t, err)
	var seqs []uint64
	var last *value.Tree
	require.NoError(t, r.Replay(func(f *Frame) error {
		seqs = append(seqs, f.Seq)
		require.True(t, f.Time().Equal(at))
		last = f.Tree
		return nil
	}))
	require.Equal(t, []uint64{0, 1, 2, 3, 4, 5}, seqs)
	require.True(t, tree.Equal(last))
}

func TestReader_DescriptorChange(t *testing.T) {
	reg := pvtype.NewRegistry()
	first := newRecord(t, reg)
	second, err := value.Bind(reg.TimeStamp())
	require.NoError(t, err)
	require.NoError(t, second.SetScalar("userTag", int32(7)))

	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, w.WriteFull(first))
	require.NoError(t, w.WriteFull(second))

	r, err := NewReader(&buf)
	require.NoError(t, err)
	f0, err := r.Next()
	require.NoError(t, err)
	f1, err := r.Next()
	require.NoError(t, err)
	require.NotSame(t, f0.Tree, f1.Tree)
	require.Equal(t, pvtype.TimeStampID, f1.Tree.Descriptor().ID())
	require.True(t, second.Equal(f1.Tree))
}

func capture(t *testing.T, frames int) ([]byte, []int) {
	t.Helper()
	tree := newRecord(t, pvtype.NewRegistry())
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	var ends []int
	for i := 0; i < frames; i++ {
		require.NoError(t, tree.SetScalar("value", float64(i)))
		require.NoError(t, w.WriteFull(tree))
		ends = append(ends, buf.Len())
	}
	return buf.Bytes(), ends
}

func TestReader_Errors(t *testing.T) {
	data, ends := capture(t, 2)

	corrupt := bytes.Clone(data)
	corrupt[ends[0]-1] ^= 0xFF

	gap := append(bytes.Clone(Magic[:]), data[ends[0]:]...)

	tests := []struct {
		name string
		data []byte
		kind pverrors.Kind
	}{
		{"truncated payload", data[:ends[0]-1], pverrors.KindTruncatedStream},
		{"truncated length", data[:len(Magic)+2], pverrors.KindTruncatedStream},
		{"digest mismatch", corrupt, pverrors.KindInvalidData},
		{"sequence gap", gap, pverrors.KindInvalidData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReader(bytes.NewReader(tt.data))
			require.NoError(t, err)
			err = r.Replay(func(*Frame) error { return nil })
			require.Error(t, err)
			var pe *pverrors.Error
			require.ErrorAs(t, err, &pe)
			require.Equal(t, tt.kind, pe.Kind, "error: %v", err)
		})
	}
}

func TestNewReader_BadMagic(t *testing.T) {
	_, err := NewReader(strings.NewReader("PVCAP\x02"))
	require.ErrorIs(t, err, &pverrors.Error{Kind: pverrors.KindInvalidData})

	_, err = NewReader(strings.NewReader("PV"))
	require.ErrorIs(t, err, pverrors.ErrTruncatedStream)
}

func TestParseCompression(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		got, err := ParseCompression(c.String())
		require.NoError(t, err)
		require.Equal(t, c, got)
	}
	_, err := ParseCompression("brotli")
	require.Error(t, err)
}

func TestCompress_RoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("pvdata "), 512)
	for _, c := range []Compression{CompressionLZ4, CompressionZstd} {
		stored, used, err := compress(data, c)
		require.NoError(t, err)
		require.Equal(t, c, used)
		back, err := decompress(stored, used, len(data))
		require.NoError(t, err)
		require.Equal(t, data, back)

		_, err = decompress(stored, used, len(data)+1)
		require.Error(t, err)
	}
}
