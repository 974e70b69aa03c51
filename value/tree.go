package value

import (
	"github.com/wippyai/pvdata/bitset"
	"github.com/wippyai/pvdata/errors"
	"github.com/wippyai/pvdata/pvtype"
)

// Tree is a value tree bound to a descriptor together with the clock
// that stamps its modification counters.
//
// A Tree is not safe for concurrent use.
type Tree struct {
	root  *Node
	clock uint64
}

// Bind creates a zero valued tree shaped by d: aggregates get one member per
// descriptor member, arrays start empty and unions start with no active
// variant.
func Bind(d *pvtype.Descriptor) (*Tree, error) {
	if d == nil {
		return nil, errors.NilPointer(errors.PhaseBind, "descriptor")
	}
	if d.Fingerprint() == (pvtype.Fingerprint{}) {
		return nil, errors.InvalidDescriptor(nil, "descriptor was not created by a registry")
	}
	t := &Tree{}
	t.root = newNode(t, d, nil, nil, 0, 0)
	return t, nil
}

func (t *Tree) tick() uint64 {
	t.clock++
	return t.clock
}

// Root returns the node at offset 0.
func (t *Tree) Root() *Node {
	return t.root
}

// Descriptor returns the descriptor the tree was bound to.
func (t *Tree) Descriptor() *pvtype.Descriptor {
	return t.root.desc
}

// Clock returns the current watermark. Every later mutation stamps the
// nodes it changes with a larger value.
func (t *Tree) Clock() uint64 {
	return t.clock
}

// Lookup resolves a dotted member path.
func (t *Tree) Lookup(path string) (*Node, error) {
	return t.root.Lookup(path)
}

// OffsetOf returns the offset of the node at path.
func (t *Tree) OffsetOf(path string) (int, error) {
	n, err := t.root.Lookup(path)
	if err != nil {
		return 0, err
	}
	return n.offset, nil
}

// NodeAt returns the node at offset.
func (t *Tree) NodeAt(offset int) (*Node, error) {
	return t.root.At(offset)
}

// SetScalar resolves path and calls Node.SetScalar.
func (t *Tree) SetScalar(path string, v any) error {
	n, err := t.root.Lookup(path)
	if err != nil {
		return err
	}
	return n.SetScalar(v)
}

// SetArray resolves path and calls Node.SetArray.
func (t *Tree) SetArray(path string, seq any) error {
	n, err := t.root.Lookup(path)
	if err != nil {
		return err
	}
	return n.SetArray(seq)
}

// SelectVariant resolves path and calls Node.SelectVariant.
func (t *Tree) SelectVariant(path, name string, v any) (*Node, error) {
	n, err := t.root.Lookup(path)
	if err != nil {
		return nil, err
	}
	return n.SelectVariant(name, v)
}

// ClearVariant resolves path and calls Node.ClearVariant.
func (t *Tree) ClearVariant(path string) error {
	n, err := t.root.Lookup(path)
	if err != nil {
		return err
	}
	return n.ClearVariant()
}

// Scalar returns the scalar at path.
func (t *Tree) Scalar(path string) (any, error) {
	n, err := t.root.Lookup(path)
	if err != nil {
		return nil, err
	}
	if !n.isScalar() {
		return nil, errors.ShapeMismatch(errors.PhaseBind, n.Path(), "scalar", n.desc.Kind().String())
	}
	return n.scalar, nil
}

// Array returns a copy of the scalar array at path.
func (t *Tree) Array(path string) (any, error) {
	n, err := t.root.Lookup(path)
	if err != nil {
		return nil, err
	}
	if n.desc.Kind() != pvtype.KindArray {
		return nil, errors.ShapeMismatch(errors.PhaseBind, n.Path(), "array", n.desc.Kind().String())
	}
	return n.Array(), nil
}

// Variant returns the active variant of the union at path.
func (t *Tree) Variant(path string) (string, *Node, error) {
	n, err := t.root.Lookup(path)
	if err != nil {
		return "", nil, err
	}
	if n.desc.Kind() != pvtype.KindUnion {
		return "", nil, errors.ShapeMismatch(errors.PhaseBind, n.Path(), "union", n.desc.Kind().String())
	}
	name, active := n.Variant()
	return name, active, nil
}

// TouchedSince returns the offsets whose own modification counter exceeds
// watermark. Aggregates never appear; their members do.
func (t *Tree) TouchedSince(watermark uint64) *bitset.BitSet {
	bits := bitset.New(t.root.desc.NumberFields())
	t.root.collect(watermark, bits)
	return bits
}

func (n *Node) collect(watermark uint64, bits *bitset.BitSet) {
	if n.subtree <= watermark {
		return
	}
	if n.desc.Kind() == pvtype.KindAggregate {
		for _, m := range n.members {
			m.collect(watermark, bits)
		}
		return
	}
	if n.stamp > watermark {
		bits.Set(n.offset)
	}
}

// Clone returns an independent tree with the same descriptor and values and
// a fresh modification history.
func (t *Tree) Clone() *Tree {
	c := &Tree{}
	c.root = newNode(c, t.root.desc, nil, nil, 0, 0)
	copyValues(c.root, t.root)
	return c
}

// CopyFrom replaces every value with the values of src.
func (t *Tree) CopyFrom(src *Tree) error {
	if src == nil {
		return errors.NilPointer(errors.PhaseMutate, "source tree")
	}
	return t.root.CopyFrom(src.root)
}

// Equal reports deep value equality.
func (t *Tree) Equal(other *Tree) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.root.Equal(other.root)
}

func (t *Tree) String() string {
	return t.root.String()
}
