package pvtype

import (
	"strconv"
	"strings"

	"github.com/wippyai/pvdata/errors"
)

// Default IDs used when an aggregate or union is created without one.
const (
	DefaultAggregateID = "structure"
	DefaultUnionID     = "union"
)

// Member is a named child passed to the aggregate and union constructors.
type Member struct {
	Type *Descriptor
	Name string
}

// M is shorthand for Member{Name: name, Type: t}.
func M(name string, t *Descriptor) Member {
	return Member{Name: name, Type: t}
}

// Descriptor is an immutable structural type description.
//
// Descriptors are created only by a Registry, which returns one canonical
// instance per structural shape; pointer equality therefore implies
// structural equality for descriptors from the same registry.
type Descriptor struct {
	id            string
	names         []string
	fields        []*Descriptor
	offsets       []int
	index         map[string]int
	numberFields  int
	bound         int
	fingerprint   Fingerprint
	kind          Kind
	scalar        ScalarKind
	discriminated bool
}

// Kind returns the structural kind of the descriptor.
func (d *Descriptor) Kind() Kind {
	return d.kind
}

// ScalarKind returns the primitive kind of a scalar or bounded string,
// or of the element of an array.
func (d *Descriptor) ScalarKind() ScalarKind {
	return d.scalar
}

// MaxLength returns the bound of a bounded string, 0 otherwise.
func (d *Descriptor) MaxLength() int {
	return d.bound
}

// ID returns the type ID of an aggregate or union.
func (d *Descriptor) ID() string {
	return d.id
}

// Discriminated reports whether a union assigns stable indexes to its variants.
func (d *Descriptor) Discriminated() bool {
	return d.discriminated
}

// IsVariant reports whether d is a union without declared variants,
// able to hold a value of any type.
func (d *Descriptor) IsVariant() bool {
	return d.kind == KindUnion && len(d.fields) == 0
}

// NumMembers returns the number of members or variants.
func (d *Descriptor) NumMembers() int {
	if d.kind != KindAggregate && d.kind != KindUnion {
		return 0
	}
	return len(d.fields)
}

// MemberName returns the name of member i.
func (d *Descriptor) MemberName(i int) string {
	return d.names[i]
}

// Member returns the descriptor of member i.
func (d *Descriptor) Member(i int) *Descriptor {
	return d.fields[i]
}

// MemberIndex returns the position of the named member or variant, or -1.
func (d *Descriptor) MemberIndex(name string) int {
	if i, ok := d.index[name]; ok {
		return i
	}
	return -1
}

// MemberByName returns the named member or variant.
func (d *Descriptor) MemberByName(name string) (*Descriptor, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.fields[i], true
}

// Names returns a copy of the member or variant names in order.
func (d *Descriptor) Names() []string {
	if d.kind != KindAggregate && d.kind != KindUnion {
		return nil
	}
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// Element returns the element descriptor of an array, aggregate array or
// union array, and nil for every other kind.
func (d *Descriptor) Element() *Descriptor {
	switch d.kind {
	case KindArray, KindAggregateArray, KindUnionArray:
		return d.fields[0]
	default:
		return nil
	}
}

// NumberFields returns the number of offsets the descriptor occupies.
func (d *Descriptor) NumberFields() int {
	return d.numberFields
}

// MemberOffset returns the offset of member i relative to d.
func (d *Descriptor) MemberOffset(i int) int {
	return d.offsets[i]
}

// Fingerprint returns the structural digest of d.
func (d *Descriptor) Fingerprint() Fingerprint {
	return d.fingerprint
}

// Equal reports structural equality.
func (d *Descriptor) Equal(other *Descriptor) bool {
	if d == other {
		return true
	}
	if d == nil || other == nil {
		return false
	}
	return d.fingerprint == other.fingerprint && structurallyEqual(d, other)
}

// TypeName returns a short name for d: the scalar name, "double[]",
// "string(16)", or the ID of an aggregate or union.
func (d *Descriptor) TypeName() string {
	switch d.kind {
	case KindScalar:
		return d.scalar.String()
	case KindBoundedString:
		return "string(" + strconv.Itoa(d.bound) + ")"
	case KindArray:
		return d.fields[0].TypeName() + "[]"
	case KindAggregate:
		return d.id
	case KindUnion:
		if d.IsVariant() {
			return "any"
		}
		return d.id
	case KindAggregateArray, KindUnionArray:
		return d.fields[0].TypeName() + "[]"
	default:
		return "unknown"
	}
}

// Lookup resolves a dotted member path to its offset relative to d.
// The empty path resolves to d itself at offset 0.
func (d *Descriptor) Lookup(path string) (int, *Descriptor, error) {
	if path == "" {
		return 0, d, nil
	}
	parts := strings.Split(path, ".")
	offset := 0
	cur := d
	for i, name := range parts {
		if cur.kind != KindAggregate {
			return 0, nil, errors.ShapeMismatch(errors.PhaseBind, parts[:i], "aggregate", cur.kind.String())
		}
		idx, ok := cur.index[name]
		if !ok {
			return 0, nil, errors.NotFound(errors.PhaseBind, parts[:i], "member", name)
		}
		offset += cur.offsets[idx]
		cur = cur.fields[idx]
	}
	return offset, cur, nil
}

// AtOffset returns the descriptor at offset relative to d together with its
// member path.
func (d *Descriptor) AtOffset(offset int) (*Descriptor, []string, bool) {
	if offset < 0 || offset >= d.numberFields {
		return nil, nil, false
	}
	var path []string
	cur := d
	for offset > 0 {
		// offset > 0 implies cur is an aggregate
		i := cur.memberAt(offset)
		path = append(path, cur.names[i])
		offset -= cur.offsets[i]
		cur = cur.fields[i]
	}
	return cur, path, true
}

// memberAt returns the index of the member whose offset range contains the
// relative offset off (off >= 1).
func (d *Descriptor) memberAt(off int) int {
	lo, hi := 0, len(d.offsets)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if d.offsets[mid] <= off {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// String renders the descriptor as an indented tree.
func (d *Descriptor) String() string {
	var b strings.Builder
	d.dump(&b, "", 0)
	return strings.TrimSuffix(b.String(), "\n")
}

func (d *Descriptor) dump(b *strings.Builder, name string, depth int) {
	b.WriteString(strings.Repeat("    ", depth))
	b.WriteString(d.TypeName())
	if name != "" {
		b.WriteByte(' ')
		b.WriteString(name)
	}
	b.WriteByte('\n')
	switch d.kind {
	case KindAggregate, KindUnion:
		for i, f := range d.fields {
			f.dump(b, d.names[i], depth+1)
		}
	case KindAggregateArray, KindUnionArray:
		elem := d.fields[0]
		for i, f := range elem.fields {
			f.dump(b, elem.names[i], depth+1)
		}
	}
}

func structurallyEqual(a, b *Descriptor) bool {
	if a.kind != b.kind || a.scalar != b.scalar || a.bound != b.bound ||
		a.id != b.id || a.discriminated != b.discriminated ||
		len(a.fields) != len(b.fields) {
		return false
	}
	for i := range a.names {
		if a.names[i] != b.names[i] {
			return false
		}
	}
	for i := range a.fields {
		if a.fields[i] != b.fields[i] && !structurallyEqual(a.fields[i], b.fields[i]) {
			return false
		}
	}
	return true
}
