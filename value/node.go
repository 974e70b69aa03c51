package value

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wippyai/pvdata/errors"
	"github.com/wippyai/pvdata/pvtype"
)

// Node is one value in a tree. Its shape always matches its descriptor.
//
// Aggregate members share their parent's offset space. The active value of
// a union and every element of an aggregate or union array are roots of
// their own nested offset space; such a root has no parent and keeps a
// link to the node that holds it instead.
type Node struct {
	desc    *pvtype.Descriptor
	tree    *Tree
	parent  *Node
	owner   *Node
	scalar  any
	array   any
	members []*Node
	active  *Node
	elems   []*Node
	offset  int
	index   int
	variant int
	stamp   uint64
	subtree uint64
}

func newNode(t *Tree, d *pvtype.Descriptor, parent, owner *Node, offset, index int) *Node {
	n := &Node{
		desc:    d,
		tree:    t,
		parent:  parent,
		owner:   owner,
		offset:  offset,
		index:   index,
		variant: -1,
	}
	switch d.Kind() {
	case pvtype.KindScalar, pvtype.KindBoundedString:
		n.scalar = zeroScalar(d.ScalarKind())
	case pvtype.KindArray:
		n.array = zeroArray(d.ScalarKind())
	case pvtype.KindAggregate:
		n.members = make([]*Node, d.NumMembers())
		for i := range n.members {
			n.members[i] = newNode(t, d.Member(i), n, nil, offset+d.MemberOffset(i), i)
		}
	}
	return n
}

// Descriptor returns the descriptor the node was bound to.
func (n *Node) Descriptor() *pvtype.Descriptor {
	return n.desc
}

// Kind returns the structural kind of the node's descriptor.
func (n *Node) Kind() pvtype.Kind {
	return n.desc.Kind()
}

// Offset returns the node's offset within its offset space.
func (n *Node) Offset() int {
	return n.offset
}

// Parent returns the enclosing aggregate, or nil at the root of an offset space.
func (n *Node) Parent() *Node {
	return n.parent
}

// Owner returns the union or array holding a nested root, or nil.
func (n *Node) Owner() *Node {
	return n.owner
}

// Modified returns the node's own modification counter.
func (n *Node) Modified() uint64 {
	return n.stamp
}

// SubtreeModified returns the highest counter of any node at or below n.
func (n *Node) SubtreeModified() uint64 {
	return n.subtree
}

// Path returns the member names from the root of the node's offset space.
func (n *Node) Path() []string {
	var path []string
	for p := n; p.parent != nil; p = p.parent {
		path = append(path, p.parent.desc.MemberName(p.index))
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// NumMembers returns the member count of an aggregate, 0 otherwise.
func (n *Node) NumMembers() int {
	return len(n.members)
}

// MemberAt returns aggregate member i.
func (n *Node) MemberAt(i int) *Node {
	return n.members[i]
}

// Member returns the named aggregate member, or nil.
func (n *Node) Member(name string) *Node {
	if n.desc.Kind() != pvtype.KindAggregate {
		return nil
	}
	i := n.desc.MemberIndex(name)
	if i < 0 {
		return nil
	}
	return n.members[i]
}

// Lookup resolves a dotted member path relative to n.
func (n *Node) Lookup(path string) (*Node, error) {
	if path == "" {
		return n, nil
	}
	cur := n
	for _, name := range strings.Split(path, ".") {
		if cur.desc.Kind() != pvtype.KindAggregate {
			return nil, errors.ShapeMismatch(errors.PhaseBind, cur.Path(), "aggregate", cur.desc.Kind().String())
		}
		next := cur.Member(name)
		if next == nil {
			return nil, errors.NotFound(errors.PhaseBind, cur.Path(), "member", name)
		}
		cur = next
	}
	return cur, nil
}

// At returns the node at offset relative to n.
func (n *Node) At(offset int) (*Node, error) {
	if offset < 0 || offset >= n.desc.NumberFields() {
		return nil, errors.OffsetOutOfRange(errors.PhaseBind, offset, n.desc.NumberFields())
	}
	cur := n
	for offset > 0 {
		d := cur.desc
		i := sort.Search(d.NumMembers(), func(i int) bool { return d.MemberOffset(i) > offset }) - 1
		offset -= d.MemberOffset(i)
		cur = cur.members[i]
	}
	return cur, nil
}

func (n *Node) mark(tick uint64) {
	if n.desc.Kind() != pvtype.KindAggregate {
		n.stamp = tick
	}
	n.subtree = tick
}

// propagate records a change at n: n and, through every enclosing union
// or array, its holder get own counters; aggregates above only get the
// subtree counter.
func (n *Node) propagate(tick uint64) {
	n.mark(tick)
	p := n
	for {
		for p.parent != nil {
			p = p.parent
			p.subtree = tick
		}
		if p.owner == nil {
			return
		}
		p = p.owner
		p.mark(tick)
	}
}

func (n *Node) touch() {
	n.propagate(n.tree.tick())
}

func (n *Node) stampAll(tick uint64) {
	n.mark(tick)
	for _, m := range n.members {
		m.stampAll(tick)
	}
	if n.active != nil {
		n.active.stampAll(tick)
	}
	for _, e := range n.elems {
		if e != nil {
			e.stampAll(tick)
		}
	}
}

func (n *Node) shapeError(want string) error {
	return errors.ShapeMismatch(errors.PhaseMutate, n.Path(), want, n.desc.Kind().String())
}

func (n *Node) isScalar() bool {
	k := n.desc.Kind()
	return k == pvtype.KindScalar || k == pvtype.KindBoundedString
}

// SetScalar assigns a scalar or bounded string value.
func (n *Node) SetScalar(v any) error {
	if !n.isScalar() {
		return n.shapeError("scalar")
	}
	cv, err := checkScalar(n.desc, n.Path(), v)
	if err != nil {
		return err
	}
	n.scalar = cv
	n.touch()
	return nil
}

// Scalar returns the stored scalar, typed as the exact Go type for the
// descriptor's scalar kind, or nil for other kinds.
func (n *Node) Scalar() any {
	return n.scalar
}

// SetArray replaces the contents of a scalar array. seq may be the exact
// typed slice or any slice whose elements coerce to the element kind.
func (n *Node) SetArray(seq any) error {
	if n.desc.Kind() != pvtype.KindArray {
		return n.shapeError("array")
	}
	arr, err := checkArray(n.desc, n.Path(), seq)
	if err != nil {
		return err
	}
	n.array = arr
	n.touch()
	return nil
}

// Array returns a copy of a scalar array as its typed slice.
func (n *Node) Array() any {
	if n.array == nil {
		return nil
	}
	return cloneArray(n.array)
}

// ArrayRef returns the stored slice without copying. Callers must not
// modify it.
func (n *Node) ArrayRef() any {
	return n.array
}

// Variant returns the active variant name and value of a union. The name
// is empty for a variant union and the value is nil when none is active.
func (n *Node) Variant() (string, *Node) {
	if n.active == nil || n.variant < 0 {
		return "", n.active
	}
	return n.desc.MemberName(n.variant), n.active
}

// VariantIndex returns the index of the active variant or -1.
func (n *Node) VariantIndex() int {
	return n.variant
}

// SelectVariant makes the named variant active with a fresh value, which is
// then assigned from v when v is non-nil. v may be a scalar, a slice for an
// array variant, or a *Node of the variant's shape. For a variant union the
// name is ignored and v must be a *Node.
func (n *Node) SelectVariant(name string, v any) (*Node, error) {
	if n.desc.Kind() != pvtype.KindUnion {
		return nil, n.shapeError("union")
	}
	if n.desc.IsVariant() {
		src, ok := v.(*Node)
		if !ok || src == nil {
			return nil, errors.TypeMismatch(errors.PhaseMutate, n.Path(), fmt.Sprintf("%T", v), "any")
		}
		return n.SelectAny(src.desc, src)
	}
	i := n.desc.MemberIndex(name)
	if i < 0 {
		return nil, errors.NotFound(errors.PhaseMutate, n.Path(), "variant", name)
	}
	return n.selectIndex(i, n.desc.Member(i), v)
}

// SelectVariantIndex makes variant i active with a fresh zero value.
func (n *Node) SelectVariantIndex(i int) (*Node, error) {
	if n.desc.Kind() != pvtype.KindUnion || n.desc.IsVariant() {
		return nil, n.shapeError("union")
	}
	if i < 0 || i >= n.desc.NumMembers() {
		return nil, errors.OutOfBounds(errors.PhaseMutate, n.Path(), i, n.desc.NumMembers())
	}
	return n.selectIndex(i, n.desc.Member(i), nil)
}

// SelectAny stores a fresh value of descriptor d in a variant union,
// assigned from v when v is non-nil.
func (n *Node) SelectAny(d *pvtype.Descriptor, v any) (*Node, error) {
	if n.desc.Kind() != pvtype.KindUnion || !n.desc.IsVariant() {
		return nil, n.shapeError("variant union")
	}
	if d == nil {
		return nil, errors.NilPointer(errors.PhaseMutate, "variant descriptor")
	}
	return n.selectIndex(-1, d, v)
}

func (n *Node) selectIndex(i int, d *pvtype.Descriptor, v any) (*Node, error) {
	fresh := newNode(n.tree, d, nil, n, 0, 0)
	if v != nil {
		if err := fresh.assign(v); err != nil {
			return nil, err
		}
	}
	tick := n.tree.tick()
	fresh.stampAll(tick)
	n.active = fresh
	n.variant = i
	n.propagate(tick)
	return fresh, nil
}

// assign fills a detached node without recording changes.
func (n *Node) assign(v any) error {
	if src, ok := v.(*Node); ok {
		if !src.desc.Equal(n.desc) {
			return errors.ShapeMismatch(errors.PhaseMutate, n.Path(), n.desc.TypeName(), src.desc.TypeName())
		}
		copyValues(n, src)
		return nil
	}
	switch n.desc.Kind() {
	case pvtype.KindScalar, pvtype.KindBoundedString:
		cv, err := checkScalar(n.desc, n.Path(), v)
		if err != nil {
			return err
		}
		n.scalar = cv
	case pvtype.KindArray:
		arr, err := checkArray(n.desc, n.Path(), v)
		if err != nil {
			return err
		}
		n.array = arr
	default:
		return errors.TypeMismatch(errors.PhaseMutate, n.Path(), fmt.Sprintf("%T", v), n.desc.TypeName())
	}
	return nil
}

// ClearVariant leaves a union with no active variant.
func (n *Node) ClearVariant() error {
	if n.desc.Kind() != pvtype.KindUnion {
		return n.shapeError("union")
	}
	n.active = nil
	n.variant = -1
	n.touch()
	return nil
}

func (n *Node) isCompositeArray() bool {
	k := n.desc.Kind()
	return k == pvtype.KindAggregateArray || k == pvtype.KindUnionArray
}

// Len returns the length of a scalar, aggregate or union array.
func (n *Node) Len() int {
	if n.array != nil {
		return ArrayLen(n.array)
	}
	return len(n.elems)
}

// Element returns element i of an aggregate or union array; nil for a
// null element.
func (n *Node) Element(i int) *Node {
	if i < 0 || i >= len(n.elems) {
		return nil
	}
	return n.elems[i]
}

// SetLength resizes an aggregate or union array. New elements are fresh
// zero values.
func (n *Node) SetLength(length int) error {
	if !n.isCompositeArray() {
		return n.shapeError("aggregate or union array")
	}
	if length < 0 {
		return errors.OutOfBounds(errors.PhaseMutate, n.Path(), length, len(n.elems))
	}
	tick := n.tree.tick()
	elems := make([]*Node, length)
	copy(elems, n.elems)
	for i := len(n.elems); i < length; i++ {
		elems[i] = newNode(n.tree, n.desc.Element(), nil, n, 0, i)
		elems[i].stampAll(tick)
	}
	n.elems = elems
	n.propagate(tick)
	return nil
}

// SetElement replaces element i with a copy of src, or with a null element
// when src is nil.
func (n *Node) SetElement(i int, src *Node) error {
	if !n.isCompositeArray() {
		return n.shapeError("aggregate or union array")
	}
	if i < 0 || i >= len(n.elems) {
		return errors.OutOfBounds(errors.PhaseMutate, n.Path(), i, len(n.elems))
	}
	if src == nil {
		n.elems[i] = nil
		n.touch()
		return nil
	}
	fresh := newNode(n.tree, n.desc.Element(), nil, n, 0, i)
	if err := fresh.assign(src); err != nil {
		return err
	}
	tick := n.tree.tick()
	fresh.stampAll(tick)
	n.elems[i] = fresh
	n.propagate(tick)
	return nil
}

// CopyFrom deep-copies the values of src, which must have an equal
// descriptor, into n.
func (n *Node) CopyFrom(src *Node) error {
	if src == nil {
		return errors.NilPointer(errors.PhaseMutate, "source node")
	}
	if !src.desc.Equal(n.desc) {
		return errors.ShapeMismatch(errors.PhaseMutate, n.Path(), n.desc.TypeName(), src.desc.TypeName())
	}
	if src == n {
		return nil
	}
	copyValues(n, src)
	tick := n.tree.tick()
	n.stampAll(tick)
	n.propagate(tick)
	return nil
}

// copyValues deep-copies src into dst, which have equal descriptors.
// Counters are left to the caller.
func copyValues(dst, src *Node) {
	switch dst.desc.Kind() {
	case pvtype.KindScalar, pvtype.KindBoundedString:
		dst.scalar = src.scalar
	case pvtype.KindArray:
		dst.array = cloneArray(src.array)
	case pvtype.KindAggregate:
		for i, m := range dst.members {
			copyValues(m, src.members[i])
		}
	case pvtype.KindUnion:
		dst.variant = src.variant
		dst.active = nil
		if src.active != nil {
			a := newNode(dst.tree, src.active.desc, nil, dst, 0, 0)
			copyValues(a, src.active)
			dst.active = a
		}
	case pvtype.KindAggregateArray, pvtype.KindUnionArray:
		dst.elems = make([]*Node, len(src.elems))
		for i, e := range src.elems {
			if e == nil {
				continue
			}
			c := newNode(dst.tree, e.desc, nil, dst, 0, i)
			copyValues(c, e)
			dst.elems[i] = c
		}
	}
}

// Equal reports deep value equality with an equally shaped node.
// Modification counters are ignored.
func (n *Node) Equal(other *Node) bool {
	if n == other {
		return true
	}
	if n == nil || other == nil || !n.desc.Equal(other.desc) {
		return false
	}
	switch n.desc.Kind() {
	case pvtype.KindScalar, pvtype.KindBoundedString:
		return equalScalar(n.scalar, other.scalar)
	case pvtype.KindArray:
		return equalArray(n.array, other.array)
	case pvtype.KindAggregate:
		for i, m := range n.members {
			if !m.Equal(other.members[i]) {
				return false
			}
		}
		return true
	case pvtype.KindUnion:
		if n.variant != other.variant {
			return false
		}
		if n.active == nil || other.active == nil {
			return n.active == nil && other.active == nil
		}
		return n.active.Equal(other.active)
	case pvtype.KindAggregateArray, pvtype.KindUnionArray:
		if len(n.elems) != len(other.elems) {
			return false
		}
		for i, e := range n.elems {
			if e == nil || other.elems[i] == nil {
				if e != other.elems[i] {
					return false
				}
				continue
			}
			if !e.Equal(other.elems[i]) {
				return false
			}
		}
		return true
	}
	return false
}
