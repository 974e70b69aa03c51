package pvjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/wippyai/pvdata/bitset"
	"github.com/wippyai/pvdata/errors"
	"github.com/wippyai/pvdata/pvtype"
	"github.com/wippyai/pvdata/value"
)

type options struct {
	indent string
	mask   *bitset.BitSet
}

// Option configures printing.
type Option func(*options)

// WithIndent prints one member or element per line, indented by indent.
func WithIndent(indent string) Option {
	return func(o *options) { o.indent = indent }
}

// WithMask prints only the members of the root aggregate whose subtree
// intersects bits. A set aggregate offset selects its whole subtree.
func WithMask(bits *bitset.BitSet) Option {
	return func(o *options) { o.mask = bits }
}

// Marshal returns the JSON form of t.
func Marshal(t *value.Tree, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	if err := Print(&buf, t, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Print writes the JSON form of t to w.
func Print(w io.Writer, t *value.Tree, opts ...Option) error {
	if t == nil {
		return errors.NilPointer(errors.PhaseEncode, "tree")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	p := &printer{}
	if o.mask != nil {
		p.mask = o.mask.Clone()
		value.Expand(t.Descriptor(), p.mask)
	}
	p.node(t.Root(), p.mask != nil)

	out := p.buf.Bytes()
	if o.indent != "" {
		var ind bytes.Buffer
		if err := json.Indent(&ind, out, "", o.indent); err != nil {
			return errors.Wrap(errors.PhaseEncode, errors.KindInvalidData, err, "indent json")
		}
		out = ind.Bytes()
	}
	if _, err := w.Write(out); err != nil {
		return errors.Wrap(errors.PhaseEncode, errors.KindInvalidData, err, "write json")
	}
	return nil
}

// MarshalNode returns the JSON form of n and everything below it.
func MarshalNode(n *value.Node) ([]byte, error) {
	if n == nil {
		return nil, errors.NilPointer(errors.PhaseEncode, "node")
	}
	p := &printer{}
	p.node(n, false)
	return p.buf.Bytes(), nil
}

type printer struct {
	buf  bytes.Buffer
	mask *bitset.BitSet
}

// selected reports whether the mask covers any offset of n's subtree.
func (p *printer) selected(n *value.Node) bool {
	next := p.mask.NextSetBit(n.Offset())
	return next >= 0 && next < n.Offset()+n.Descriptor().NumberFields()
}

func (p *printer) node(n *value.Node, masked bool) {
	switch n.Kind() {
	case pvtype.KindScalar, pvtype.KindBoundedString:
		p.scalar(n.Scalar())
	case pvtype.KindArray:
		arr := n.ArrayRef()
		p.buf.WriteByte('[')
		for i := 0; i < value.ArrayLen(arr); i++ {
			if i > 0 {
				p.buf.WriteByte(',')
			}
			p.scalar(value.ArrayIndex(arr, i))
		}
		p.buf.WriteByte(']')
	case pvtype.KindAggregate:
		p.buf.WriteByte('{')
		first := true
		for i := 0; i < n.NumMembers(); i++ {
			m := n.MemberAt(i)
			if masked && !p.selected(m) {
				continue
			}
			if !first {
				p.buf.WriteByte(',')
			}
			first = false
			p.key(n.Descriptor().MemberName(i))
			p.node(m, masked)
		}
		p.buf.WriteByte('}')
	case pvtype.KindUnion:
		name, active := n.Variant()
		switch {
		case active == nil:
			p.buf.WriteString("null")
		case n.Descriptor().IsVariant():
			p.node(active, false)
		default:
			p.buf.WriteByte('{')
			p.key(name)
			p.node(active, false)
			p.buf.WriteByte('}')
		}
	case pvtype.KindAggregateArray, pvtype.KindUnionArray:
		p.buf.WriteByte('[')
		for i := 0; i < n.Len(); i++ {
			if i > 0 {
				p.buf.WriteByte(',')
			}
			if e := n.Element(i); e != nil {
				p.node(e, false)
			} else {
				p.buf.WriteString("null")
			}
		}
		p.buf.WriteByte(']')
	}
}

func (p *printer) key(name string) {
	p.str(name)
	p.buf.WriteByte(':')
}

func (p *printer) str(s string) {
	b, _ := json.Marshal(s)
	p.buf.Write(b)
}

func (p *printer) scalar(v any) {
	switch x := v.(type) {
	case string:
		p.str(x)
	case float32:
		p.float(float64(x), 32)
	case float64:
		p.float(x, 64)
	default:
		fmt.Fprint(&p.buf, x)
	}
}

func (p *printer) float(f float64, size int) {
	switch {
	case math.IsNaN(f):
		p.buf.WriteString(`"NaN"`)
	case math.IsInf(f, 1):
		p.buf.WriteString(`"Infinity"`)
	case math.IsInf(f, -1):
		p.buf.WriteString(`"-Infinity"`)
	default:
		p.buf.Write(strconv.AppendFloat(nil, f, 'g', -1, size))
	}
}
