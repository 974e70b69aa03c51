package codec

import (
	"bytes"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/pvdata/bitset"
	"github.com/wippyai/pvdata/errors"
	"github.com/wippyai/pvdata/internal/wire"
	"github.com/wippyai/pvdata/message"
	"github.com/wippyai/pvdata/pvtype"
	"github.com/wippyai/pvdata/value"
)

// Encoder writes descriptors and values for one stream. It remembers every
// aggregate and union descriptor it has sent and refers to repeats by a
// short cache ID. Each independent stream needs its own Encoder, paired
// with one Decoder on the receiving side.
//
// An Encoder is not safe for concurrent use.
type Encoder struct {
	w    *wire.Writer
	ids  map[*pvtype.Descriptor]uint32
	opts options
	next uint32
}

// NewEncoder creates an encoder with an empty introspection cache.
func NewEncoder(opts ...Option) *Encoder {
	return &Encoder{
		w:    wire.NewWriter(),
		ids:  make(map[*pvtype.Descriptor]uint32),
		opts: buildOptions(opts),
		next: 1,
	}
}

// Reset forgets every cached descriptor. The peer decoder must be reset at
// the same point in the stream.
func (e *Encoder) Reset() {
	clear(e.ids)
	e.next = 1
}

// CacheLen returns the number of descriptors registered on this stream.
func (e *Encoder) CacheLen() int {
	return len(e.ids)
}

// EncodeDescriptor writes d as a type entry, or the null marker when d is nil.
func (e *Encoder) EncodeDescriptor(d *pvtype.Descriptor) ([]byte, error) {
	e.begin()
	e.writeType(d)
	return e.finish(), nil
}

// EncodeValue writes every value of t in offset order.
func (e *Encoder) EncodeValue(t *value.Tree) ([]byte, error) {
	if t == nil {
		return nil, errors.NilPointer(errors.PhaseEncode, "tree")
	}
	e.begin()
	e.writeValue(t.Root())
	return e.finish(), nil
}

// EncodePartial writes only the offsets set in bits. Offsets outside t's
// descriptor are dropped and reported to the requester.
func (e *Encoder) EncodePartial(t *value.Tree, bits *bitset.BitSet) ([]byte, error) {
	if t == nil {
		return nil, errors.NilPointer(errors.PhaseEncode, "tree")
	}
	e.begin()
	e.writePartial(t, bits)
	return e.finish(), nil
}

// EncodeMessage writes t's descriptor followed by a value section: full
// when bits is nil, partial otherwise.
func (e *Encoder) EncodeMessage(t *value.Tree, bits *bitset.BitSet) ([]byte, error) {
	if t == nil {
		return nil, errors.NilPointer(errors.PhaseEncode, "tree")
	}
	e.begin()
	e.writeType(t.Descriptor())
	if bits == nil {
		e.w.Byte(modeFull)
		e.writeValue(t.Root())
	} else {
		e.w.Byte(modePartial)
		e.writePartial(t, bits)
	}
	return e.finish(), nil
}

func (e *Encoder) begin() {
	e.w.Reset()
}

// finish returns a copy of the output.
func (e *Encoder) finish() []byte {
	return bytes.Clone(e.w.Bytes())
}

func (e *Encoder) writeType(d *pvtype.Descriptor) {
	if d == nil {
		e.w.Byte(markerNull)
		return
	}
	switch d.Kind() {
	case pvtype.KindAggregate, pvtype.KindUnion:
		if id, ok := e.ids[d]; ok {
			e.w.Byte(markerCached)
			e.w.WriteU32(id)
			return
		}
		id := e.next
		e.next++
		e.ids[d] = id
		Logger().Debug("descriptor cached",
			zap.Uint32("id", id),
			zap.String("type", d.TypeName()))
		e.w.Byte(markerDefine)
		e.w.WriteU32(id)
	}
	e.writeBody(d)
}

func (e *Encoder) writeBody(d *pvtype.Descriptor) {
	switch d.Kind() {
	case pvtype.KindScalar:
		e.w.Byte(tagScalar)
		e.w.Byte(byte(d.ScalarKind()))
	case pvtype.KindBoundedString:
		e.w.Byte(tagBoundedString)
		e.w.WriteSize(d.MaxLength())
	case pvtype.KindArray:
		e.w.Byte(tagArray)
		e.writeType(d.Element())
	case pvtype.KindAggregate:
		e.w.Byte(tagAggregate)
		e.w.WriteString(d.ID())
		e.writeMembers(d)
	case pvtype.KindUnion:
		e.w.Byte(tagUnion)
		e.w.WriteString(d.ID())
		e.w.Bool(d.Discriminated())
		e.writeMembers(d)
	case pvtype.KindAggregateArray:
		e.w.Byte(tagAggregateArray)
		e.writeType(d.Element())
	case pvtype.KindUnionArray:
		e.w.Byte(tagUnionArray)
		e.writeType(d.Element())
	}
}

func (e *Encoder) writeMembers(d *pvtype.Descriptor) {
	e.w.WriteSize(d.NumMembers())
	for i := 0; i < d.NumMembers(); i++ {
		e.w.WriteString(d.MemberName(i))
		e.writeType(d.Member(i))
	}
}

func (e *Encoder) writeValue(n *value.Node) {
	switch n.Kind() {
	case pvtype.KindScalar, pvtype.KindBoundedString:
		writeScalar(e.w, n.Scalar())
	case pvtype.KindArray:
		writeArray(e.w, n.ArrayRef())
	case pvtype.KindAggregate:
		for i := 0; i < n.NumMembers(); i++ {
			e.writeValue(n.MemberAt(i))
		}
	case pvtype.KindUnion:
		e.writeUnion(n)
	case pvtype.KindAggregateArray, pvtype.KindUnionArray:
		e.w.WriteSize(n.Len())
		for i := 0; i < n.Len(); i++ {
			el := n.Element(i)
			e.w.Bool(el != nil)
			if el != nil {
				e.writeValue(el)
			}
		}
	}
}

// writeUnion writes the active variant selector followed by its value.
// A discriminated union sends index+1, a named union a presence flag and
// the variant name, and a variant union the value's type entry; zero or
// the null marker mean no active variant.
func (e *Encoder) writeUnion(n *value.Node) {
	d := n.Descriptor()
	name, active := n.Variant()
	switch {
	case d.IsVariant():
		if active == nil {
			e.w.Byte(markerNull)
			return
		}
		e.writeType(active.Descriptor())
	case d.Discriminated():
		if active == nil {
			e.w.WriteSize(0)
			return
		}
		e.w.WriteSize(n.VariantIndex() + 1)
	default:
		e.w.Bool(active != nil)
		if active == nil {
			return
		}
		e.w.WriteString(name)
	}
	e.writeValue(active)
}

// writePartial writes the count of selected offsets followed by one entry
// per offset: the gap from the previous entry, then the node's value unless
// an aggregate written earlier in the section already carried it.
func (e *Encoder) writePartial(t *value.Tree, bits *bitset.BitSet) {
	if bits == nil {
		bits = bitset.New(0)
	}
	total := t.Descriptor().NumberFields()
	selected := bits.Clone().Restrict(total)
	if dropped := bits.Cardinality() - selected.Cardinality(); dropped > 0 {
		e.opts.requester.ReportMessage(
			fmt.Sprintf("partial encode dropped %d offsets outside %s (%d fields)", dropped, t.Descriptor().TypeName(), total),
			message.Warning)
	}

	e.w.WriteSize(selected.Cardinality())
	prev, coverEnd := -1, 0
	for off := selected.NextSetBit(0); off >= 0; off = selected.NextSetBit(off + 1) {
		e.w.WriteSize(off - prev - 1)
		prev = off
		if off < coverEnd {
			continue
		}
		n, _ := t.NodeAt(off)
		e.writeValue(n)
		if n.Kind() == pvtype.KindAggregate {
			coverEnd = off + n.Descriptor().NumberFields()
		}
	}
}

func writeScalar(w *wire.Writer, v any) {
	switch x := v.(type) {
	case bool:
		w.Bool(x)
	case int8:
		w.Byte(byte(x))
	case int16:
		w.Uint16(uint16(x))
	case int32:
		w.Uint32(uint32(x))
	case int64:
		w.Uint64(uint64(x))
	case uint8:
		w.Byte(x)
	case uint16:
		w.Uint16(x)
	case uint32:
		w.Uint32(x)
	case uint64:
		w.Uint64(x)
	case float32:
		w.Float32(x)
	case float64:
		w.Float64(x)
	case string:
		w.WriteString(x)
	}
}

func writeArray(w *wire.Writer, arr any) {
	n := value.ArrayLen(arr)
	w.WriteSize(n)
	switch a := arr.(type) {
	case []uint8:
		w.WriteBytes(a)
	case []int8:
		for _, v := range a {
			w.Byte(byte(v))
		}
	default:
		for i := 0; i < n; i++ {
			writeScalar(w, value.ArrayIndex(arr, i))
		}
	}
}
