package codec

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/pvdata/bitset"
	"github.com/wippyai/pvdata/errors"
	"github.com/wippyai/pvdata/internal/wire"
	"github.com/wippyai/pvdata/message"
	"github.com/wippyai/pvdata/pvtype"
	"github.com/wippyai/pvdata/value"
)

// Decoder reads what the paired Encoder of one stream wrote. It mirrors the
// encoder's introspection cache, mapping IDs back to descriptors.
//
// Decoding never modifies a target tree unless the whole input parsed: values
// are staged in detached trees and copied in at the end.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	r    *wire.Reader
	ids  map[uint32]*pvtype.Descriptor
	opts options
}

// NewDecoder creates a decoder with an empty introspection cache.
func NewDecoder(opts ...Option) *Decoder {
	return &Decoder{
		r:    wire.NewReader(nil),
		ids:  make(map[uint32]*pvtype.Descriptor),
		opts: buildOptions(opts),
	}
}

// Reset forgets every cached descriptor.
func (d *Decoder) Reset() {
	clear(d.ids)
}

// CacheLen returns the number of descriptors registered on this stream.
func (d *Decoder) CacheLen() int {
	return len(d.ids)
}

// Registry returns the registry decoded descriptors are built in.
func (d *Decoder) Registry() *pvtype.Registry {
	return d.opts.registry
}

// DecodeDescriptor reads one type entry. A null entry yields nil.
func (d *Decoder) DecodeDescriptor(data []byte) (*pvtype.Descriptor, error) {
	d.r.Reset(data)
	desc, err := d.readType(0)
	if err != nil {
		return nil, err
	}
	return desc, d.end()
}

// DecodeValue reads a full value section shaped by desc into a new tree.
func (d *Decoder) DecodeValue(desc *pvtype.Descriptor, data []byte) (*value.Tree, error) {
	t, err := value.Bind(desc)
	if err != nil {
		return nil, err
	}
	d.r.Reset(data)
	if err := d.readValue(t.Root(), 0); err != nil {
		return nil, err
	}
	if err := d.end(); err != nil {
		return nil, err
	}
	return t, nil
}

// DecodeValueInto reads a full value section and copies it into t.
// On error t is unchanged.
func (d *Decoder) DecodeValueInto(t *value.Tree, data []byte) error {
	if t == nil {
		return errors.NilPointer(errors.PhaseDecode, "tree")
	}
	staged, err := d.DecodeValue(t.Descriptor(), data)
	if err != nil {
		return err
	}
	return t.CopyFrom(staged)
}

// DecodePartialInto reads a partial value section into t and returns the
// offsets it wrote. On error t is unchanged.
func (d *Decoder) DecodePartialInto(t *value.Tree, data []byte) (*bitset.BitSet, error) {
	if t == nil {
		return nil, errors.NilPointer(errors.PhaseDecode, "tree")
	}
	d.r.Reset(data)
	p, err := d.readPartial(t.Descriptor())
	if err != nil {
		return nil, err
	}
	if err := d.end(); err != nil {
		return nil, err
	}
	if err := p.apply(t); err != nil {
		return nil, err
	}
	return p.written, nil
}

// DecodeMessage reads a message into a new tree. The returned set holds
// the offsets the message carried: offset 0 for a full section. Values at
// offsets a partial message did not carry are zero.
func (d *Decoder) DecodeMessage(data []byte) (*value.Tree, *bitset.BitSet, error) {
	d.r.Reset(data)
	desc, err := d.readType(0)
	if err != nil {
		return nil, nil, err
	}
	if desc == nil {
		return nil, nil, errors.InvalidData(errors.PhaseDecode, nil, "message has a null descriptor")
	}
	t, err := value.Bind(desc)
	if err != nil {
		return nil, nil, err
	}
	written, err := d.readMessageBody(t)
	if err != nil {
		return nil, nil, err
	}
	return t, written, nil
}

// DecodeMessageInto reads a message whose descriptor must equal t's and
// applies its values to t. On error t is unchanged.
func (d *Decoder) DecodeMessageInto(t *value.Tree, data []byte) (*bitset.BitSet, error) {
	if t == nil {
		return nil, errors.NilPointer(errors.PhaseDecode, "tree")
	}
	d.r.Reset(data)
	desc, err := d.readType(0)
	if err != nil {
		return nil, err
	}
	if !t.Descriptor().Equal(desc) {
		got := "null"
		if desc != nil {
			got = desc.TypeName()
		}
		return nil, errors.ShapeMismatch(errors.PhaseDecode, nil, t.Descriptor().TypeName(), got)
	}
	return d.readMessageBody(t)
}

func (d *Decoder) readMessageBody(t *value.Tree) (*bitset.BitSet, error) {
	mode, err := d.r.ReadByte()
	if err != nil {
		return nil, errors.Truncated("message mode", err)
	}
	switch mode {
	case modeFull:
		staged, err := value.Bind(t.Descriptor())
		if err != nil {
			return nil, err
		}
		if err := d.readValue(staged.Root(), 0); err != nil {
			return nil, err
		}
		if err := d.end(); err != nil {
			return nil, err
		}
		if err := t.CopyFrom(staged); err != nil {
			return nil, err
		}
		return bitset.Of(0), nil
	case modePartial:
		p, err := d.readPartial(t.Descriptor())
		if err != nil {
			return nil, err
		}
		if err := d.end(); err != nil {
			return nil, err
		}
		if err := p.apply(t); err != nil {
			return nil, err
		}
		return p.written, nil
	default:
		return nil, errors.InvalidData(errors.PhaseDecode, nil, fmt.Sprintf("unknown value section mode 0x%02x", mode))
	}
}

func (d *Decoder) end() error {
	if n := d.r.Remaining(); n > 0 {
		return errors.InvalidData(errors.PhaseDecode, nil, fmt.Sprintf("%d trailing bytes", n))
	}
	return nil
}

// readSize reads a count or length that must fit both the configured limit
// and the remaining input, given a minimum encoded size per item.
func (d *Decoder) readSize(what string, minItem int) (int, error) {
	n, err := d.r.ReadSize()
	if err != nil {
		return 0, err
	}
	if n > d.opts.maxSize {
		return 0, errors.InvalidData(errors.PhaseDecode, nil,
			fmt.Sprintf("%s %d exceeds limit %d", what, n, d.opts.maxSize))
	}
	if n*minItem > d.r.Remaining() {
		return 0, errors.Truncated(what, nil)
	}
	return n, nil
}

func depthError() error {
	return errors.InvalidData(errors.PhaseDecode, nil, fmt.Sprintf("nesting deeper than %d", maxDepth))
}

// readType reads one type entry through the introspection cache.
func (d *Decoder) readType(depth int) (*pvtype.Descriptor, error) {
	if depth > maxDepth {
		return nil, depthError()
	}
	b, err := d.r.ReadByte()
	if err != nil {
		return nil, errors.Truncated("type entry", err)
	}
	switch b {
	case markerNull:
		return nil, nil
	case markerCached:
		id, err := d.r.ReadU32()
		if err != nil {
			return nil, err
		}
		desc, ok := d.ids[id]
		if !ok {
			return nil, errors.UnknownCacheID(id)
		}
		return desc, nil
	case markerDefine:
		id, err := d.r.ReadU32()
		if err != nil {
			return nil, err
		}
		tag, err := d.r.ReadByte()
		if err != nil {
			return nil, errors.Truncated("type entry", err)
		}
		if tag != tagAggregate && tag != tagUnion {
			return nil, errors.InvalidData(errors.PhaseDecode, nil,
				fmt.Sprintf("cache id %d defines non-composite tag 0x%02x", id, tag))
		}
		desc, err := d.readBody(tag, depth)
		if err != nil {
			return nil, err
		}
		if old, ok := d.ids[id]; ok && old != desc {
			d.opts.requester.ReportMessage(
				fmt.Sprintf("introspection cache id %d redefined from %s to %s", id, old.TypeName(), desc.TypeName()),
				message.Warning)
		}
		d.ids[id] = desc
		Logger().Debug("descriptor registered",
			zap.Uint32("id", id),
			zap.String("type", desc.TypeName()))
		return desc, nil
	case tagAggregate, tagUnion:
		return nil, errors.InvalidData(errors.PhaseDecode, nil,
			fmt.Sprintf("composite tag 0x%02x outside a cache entry", b))
	default:
		return d.readBody(b, depth)
	}
}

func (d *Decoder) readBody(tag byte, depth int) (*pvtype.Descriptor, error) {
	reg := d.opts.registry
	var (
		desc *pvtype.Descriptor
		err  error
	)
	switch tag {
	case tagScalar:
		code, rerr := d.r.ReadByte()
		if rerr != nil {
			return nil, errors.Truncated("scalar kind", rerr)
		}
		desc, err = reg.Scalar(pvtype.ScalarKind(code))
	case tagBoundedString:
		bound, rerr := d.r.ReadSize()
		if rerr != nil {
			return nil, rerr
		}
		desc, err = reg.BoundedString(bound)
	case tagArray:
		elem, rerr := d.readType(depth + 1)
		if rerr != nil {
			return nil, rerr
		}
		desc, err = reg.ArrayOf(elem)
	case tagAggregate:
		id, rerr := d.r.ReadString()
		if rerr != nil {
			return nil, rerr
		}
		members, rerr := d.readMembers(depth)
		if rerr != nil {
			return nil, rerr
		}
		desc, err = reg.AggregateWithID(id, members...)
	case tagUnion:
		id, rerr := d.r.ReadString()
		if rerr != nil {
			return nil, rerr
		}
		discriminated, rerr := d.r.Bool()
		if rerr != nil {
			return nil, rerr
		}
		members, rerr := d.readMembers(depth)
		if rerr != nil {
			return nil, rerr
		}
		if len(members) == 0 {
			desc = reg.VariantUnion()
		} else {
			desc, err = reg.UnionWithID(id, discriminated, members...)
		}
	case tagAggregateArray, tagUnionArray:
		elem, rerr := d.readType(depth + 1)
		if rerr != nil {
			return nil, rerr
		}
		if tag == tagAggregateArray {
			desc, err = reg.AggregateArray(elem)
		} else {
			desc, err = reg.UnionArray(elem)
		}
	default:
		return nil, errors.InvalidData(errors.PhaseDecode, nil, fmt.Sprintf("unknown type tag 0x%02x", tag))
	}
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "descriptor")
	}
	return desc, nil
}

func (d *Decoder) readMembers(depth int) ([]pvtype.Member, error) {
	// every member needs at least a name length and a type byte
	n, err := d.readSize("member count", 2)
	if err != nil {
		return nil, err
	}
	members := make([]pvtype.Member, n)
	for i := range members {
		name, err := d.r.ReadString()
		if err != nil {
			return nil, err
		}
		t, err := d.readType(depth + 1)
		if err != nil {
			return nil, err
		}
		members[i] = pvtype.M(name, t)
	}
	return members, nil
}

// readValue fills a detached node from a full value encoding.
func (d *Decoder) readValue(n *value.Node, depth int) error {
	if depth > maxDepth {
		return depthError()
	}
	desc := n.Descriptor()
	switch desc.Kind() {
	case pvtype.KindScalar, pvtype.KindBoundedString:
		v, err := readScalar(d.r, desc.ScalarKind())
		if err != nil {
			return err
		}
		return decodeErr(n.SetScalar(v))
	case pvtype.KindArray:
		arr, err := d.readArray(desc.ScalarKind())
		if err != nil {
			return err
		}
		return decodeErr(n.SetArray(arr))
	case pvtype.KindAggregate:
		for i := 0; i < n.NumMembers(); i++ {
			if err := d.readValue(n.MemberAt(i), depth+1); err != nil {
				return err
			}
		}
		return nil
	case pvtype.KindUnion:
		return d.readUnion(n, depth)
	case pvtype.KindAggregateArray, pvtype.KindUnionArray:
		length, err := d.readSize("element count", 1)
		if err != nil {
			return err
		}
		if err := n.SetLength(length); err != nil {
			return decodeErr(err)
		}
		for i := 0; i < length; i++ {
			present, err := d.r.Bool()
			if err != nil {
				return err
			}
			if !present {
				if err := n.SetElement(i, nil); err != nil {
					return decodeErr(err)
				}
				continue
			}
			if err := d.readValue(n.Element(i), depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return errors.Unsupported(errors.PhaseDecode, desc.Kind().String())
}

func (d *Decoder) readUnion(n *value.Node, depth int) error {
	desc := n.Descriptor()
	var (
		active *value.Node
		err    error
	)
	switch {
	case desc.IsVariant():
		vd, terr := d.readType(depth + 1)
		if terr != nil {
			return terr
		}
		if vd == nil {
			return decodeErr(n.ClearVariant())
		}
		active, err = n.SelectAny(vd, nil)
	case desc.Discriminated():
		sel, serr := d.r.ReadSize()
		if serr != nil {
			return serr
		}
		if sel == 0 {
			return decodeErr(n.ClearVariant())
		}
		if sel > desc.NumMembers() {
			return errors.InvalidData(errors.PhaseDecode, n.Path(),
				fmt.Sprintf("variant index %d out of range for %d variants", sel-1, desc.NumMembers()))
		}
		active, err = n.SelectVariantIndex(sel - 1)
	default:
		present, perr := d.r.Bool()
		if perr != nil {
			return perr
		}
		if !present {
			return decodeErr(n.ClearVariant())
		}
		name, serr := d.r.ReadString()
		if serr != nil {
			return serr
		}
		i := desc.MemberIndex(name)
		if i < 0 {
			return errors.InvalidData(errors.PhaseDecode, n.Path(), fmt.Sprintf("unknown variant %q", name))
		}
		active, err = n.SelectVariantIndex(i)
	}
	if err != nil {
		return decodeErr(err)
	}
	return d.readValue(active, depth+1)
}

// decodeErr reattributes a setter failure caused by stream content to the
// decode phase.
func decodeErr(err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "value rejected")
}

func readScalar(r *wire.Reader, kind pvtype.ScalarKind) (any, error) {
	switch kind {
	case pvtype.Bool:
		return r.Bool()
	case pvtype.Int8:
		b, err := r.ReadByte()
		return int8(b), err
	case pvtype.Int16:
		v, err := r.Uint16()
		return int16(v), err
	case pvtype.Int32:
		v, err := r.Uint32()
		return int32(v), err
	case pvtype.Int64:
		v, err := r.Uint64()
		return int64(v), err
	case pvtype.Uint8:
		return r.ReadByte()
	case pvtype.Uint16:
		return r.Uint16()
	case pvtype.Uint32:
		return r.Uint32()
	case pvtype.Uint64:
		return r.Uint64()
	case pvtype.Float32:
		return r.Float32()
	case pvtype.Float64:
		return r.Float64()
	default:
		return r.ReadString()
	}
}

func (d *Decoder) readArray(kind pvtype.ScalarKind) (any, error) {
	size := kind.Size()
	if size == 0 {
		size = 1
	}
	n, err := d.readSize("array length", size)
	if err != nil {
		return nil, err
	}
	switch kind {
	case pvtype.Bool:
		return readSlice(n, d.r.Bool)
	case pvtype.Int8:
		return readSlice(n, func() (int8, error) { b, err := d.r.ReadByte(); return int8(b), err })
	case pvtype.Int16:
		return readSlice(n, func() (int16, error) { v, err := d.r.Uint16(); return int16(v), err })
	case pvtype.Int32:
		return readSlice(n, func() (int32, error) { v, err := d.r.Uint32(); return int32(v), err })
	case pvtype.Int64:
		return readSlice(n, func() (int64, error) { v, err := d.r.Uint64(); return int64(v), err })
	case pvtype.Uint8:
		b, err := d.r.ReadBytes(n)
		if err != nil {
			return nil, err
		}
		return append([]uint8(nil), b...), nil
	case pvtype.Uint16:
		return readSlice(n, d.r.Uint16)
	case pvtype.Uint32:
		return readSlice(n, d.r.Uint32)
	case pvtype.Uint64:
		return readSlice(n, d.r.Uint64)
	case pvtype.Float32:
		return readSlice(n, d.r.Float32)
	case pvtype.Float64:
		return readSlice(n, d.r.Float64)
	default:
		return readSlice(n, d.r.ReadString)
	}
}

func readSlice[T any](n int, read func() (T, error)) ([]T, error) {
	out := make([]T, n)
	for i := range out {
		v, err := read()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
