package pvtype

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/pvdata/errors"
)

// Registry constructs descriptors and interns them so that every
// structurally distinct shape has exactly one instance.
// A Registry is safe for concurrent use.
type Registry struct {
	interned map[Fingerprint]*Descriptor
	mu       sync.Mutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{interned: make(map[Fingerprint]*Descriptor)}
}

// Len returns the number of distinct descriptors interned so far.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.interned)
}

// Scalar returns the scalar descriptor of the given kind.
func (r *Registry) Scalar(kind ScalarKind) (*Descriptor, error) {
	if !kind.Valid() {
		return nil, errors.InvalidDescriptor(nil, "unknown scalar kind %d", kind)
	}
	return r.intern(&Descriptor{kind: KindScalar, scalar: kind, numberFields: 1}), nil
}

// BoundedString returns a string descriptor limited to maxLength bytes.
func (r *Registry) BoundedString(maxLength int) (*Descriptor, error) {
	if maxLength <= 0 {
		return nil, errors.InvalidDescriptor(nil, "bounded string length must be positive, got %d", maxLength)
	}
	return r.intern(&Descriptor{kind: KindBoundedString, scalar: String, bound: maxLength, numberFields: 1}), nil
}

// Array returns a variable-length array descriptor of scalar elements.
func (r *Registry) Array(elem ScalarKind) (*Descriptor, error) {
	s, err := r.Scalar(elem)
	if err != nil {
		return nil, err
	}
	return r.ArrayOf(s)
}

// ArrayOf returns an array descriptor whose element is a scalar or a
// bounded string descriptor.
func (r *Registry) ArrayOf(elem *Descriptor) (*Descriptor, error) {
	elem, err := r.adopt(elem, nil)
	if err != nil {
		return nil, err
	}
	if elem.kind != KindScalar && elem.kind != KindBoundedString {
		return nil, errors.InvalidDescriptor(nil, "array element must be a scalar, got %s", elem.kind)
	}
	return r.intern(&Descriptor{
		kind:         KindArray,
		scalar:       elem.scalar,
		fields:       []*Descriptor{elem},
		numberFields: 1,
	}), nil
}

// Aggregate returns an aggregate with the default ID.
func (r *Registry) Aggregate(members ...Member) (*Descriptor, error) {
	return r.AggregateWithID(DefaultAggregateID, members...)
}

// AggregateWithID returns an aggregate with the given type ID and ordered
// members. Member names must be non-empty and unique.
func (r *Registry) AggregateWithID(id string, members ...Member) (*Descriptor, error) {
	if id == "" {
		id = DefaultAggregateID
	}
	d, err := r.composite(KindAggregate, id, members)
	if err != nil {
		return nil, err
	}
	d.offsets = make([]int, len(d.fields))
	total := 1
	for i, f := range d.fields {
		d.offsets[i] = total
		total += f.numberFields
	}
	d.numberFields = total
	return r.intern(d), nil
}

// Union returns a union with the default ID.
func (r *Registry) Union(discriminated bool, variants ...Member) (*Descriptor, error) {
	return r.UnionWithID(DefaultUnionID, discriminated, variants...)
}

// UnionWithID returns a union with the given type ID over the ordered
// variants. A union needs at least one variant; use VariantUnion for a
// union that may hold any type.
func (r *Registry) UnionWithID(id string, discriminated bool, variants ...Member) (*Descriptor, error) {
	if len(variants) == 0 {
		return nil, errors.InvalidDescriptor(nil, "union %q declares no variants", id)
	}
	if id == "" {
		id = DefaultUnionID
	}
	d, err := r.composite(KindUnion, id, variants)
	if err != nil {
		return nil, err
	}
	d.discriminated = discriminated
	d.numberFields = 1
	return r.intern(d), nil
}

// VariantUnion returns the union that may hold a value of any descriptor.
func (r *Registry) VariantUnion() *Descriptor {
	return r.intern(&Descriptor{kind: KindUnion, id: "any", numberFields: 1})
}

// AggregateArray returns an array of aggregate elements.
func (r *Registry) AggregateArray(elem *Descriptor) (*Descriptor, error) {
	return r.arrayOfComposite(KindAggregateArray, KindAggregate, elem)
}

// UnionArray returns an array of union elements.
func (r *Registry) UnionArray(elem *Descriptor) (*Descriptor, error) {
	return r.arrayOfComposite(KindUnionArray, KindUnion, elem)
}

func (r *Registry) arrayOfComposite(kind, want Kind, elem *Descriptor) (*Descriptor, error) {
	elem, err := r.adopt(elem, nil)
	if err != nil {
		return nil, err
	}
	if elem.kind != want {
		return nil, errors.InvalidDescriptor(nil, "%s element must be %s, got %s", kind, want, elem.kind)
	}
	return r.intern(&Descriptor{
		kind:         kind,
		id:           elem.id,
		fields:       []*Descriptor{elem},
		numberFields: 1,
	}), nil
}

func (r *Registry) composite(kind Kind, id string, members []Member) (*Descriptor, error) {
	d := &Descriptor{
		kind:   kind,
		id:     id,
		names:  make([]string, len(members)),
		fields: make([]*Descriptor, len(members)),
		index:  make(map[string]int, len(members)),
	}
	for i, m := range members {
		if m.Name == "" {
			return nil, errors.InvalidDescriptor(nil, "%s %q: member %d has an empty name", kind, id, i)
		}
		if _, dup := d.index[m.Name]; dup {
			return nil, errors.InvalidDescriptor([]string{m.Name}, "%s %q: duplicate member name", kind, id)
		}
		t, err := r.adopt(m.Type, []string{m.Name})
		if err != nil {
			return nil, err
		}
		d.names[i] = m.Name
		d.fields[i] = t
		d.index[m.Name] = i
	}
	return d, nil
}

// adopt validates a nested descriptor and returns this registry's
// canonical instance of it.
func (r *Registry) adopt(d *Descriptor, path []string) (*Descriptor, error) {
	if d == nil {
		return nil, errors.InvalidDescriptor(path, "nested descriptor is nil")
	}
	if d.fingerprint == (Fingerprint{}) {
		return nil, errors.InvalidDescriptor(path, "nested descriptor was not created by a registry")
	}
	r.mu.Lock()
	c, ok := r.interned[d.fingerprint]
	r.mu.Unlock()
	if ok {
		return c, nil
	}
	// Foreign registry: rebuild bottom-up so children are canonical here too.
	cp := *d
	if len(d.fields) > 0 {
		cp.fields = make([]*Descriptor, len(d.fields))
		for i, f := range d.fields {
			nf, err := r.adopt(f, path)
			if err != nil {
				return nil, err
			}
			cp.fields[i] = nf
		}
	}
	return r.intern(&cp), nil
}

func (r *Registry) intern(d *Descriptor) *Descriptor {
	d.fingerprint = fingerprintOf(d)
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.interned[d.fingerprint]; ok && structurallyEqual(c, d) {
		return c
	}
	r.interned[d.fingerprint] = d
	Logger().Debug("descriptor interned",
		zap.String("type", d.TypeName()),
		zap.Stringer("kind", d.kind),
		zap.Stringer("fingerprint", d.fingerprint),
		zap.Int("fields", d.numberFields))
	return d
}
