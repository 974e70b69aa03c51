package pvtype

import (
	"errors"
	"strings"
	"sync"
	"testing"

	pverrors "github.com/wippyai/pvdata/errors"
)

func mustScalar(t *testing.T, r *Registry, k ScalarKind) *Descriptor {
	t.Helper()
	d, err := r.Scalar(k)
	if err != nil {
		t.Fatalf("Scalar(%s): %v", k, err)
	}
	return d
}

func mustAggregate(t *testing.T, r *Registry, members ...Member) *Descriptor {
	t.Helper()
	d, err := r.Aggregate(members...)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	return d
}

func TestRegistry_Canonical(t *testing.T) {
	r := NewRegistry()

	a := mustAggregate(t, r, M("x", mustScalar(t, r, Int32)), M("y", mustScalar(t, r, Float64)))
	b := mustAggregate(t, r, M("x", mustScalar(t, r, Int32)), M("y", mustScalar(t, r, Float64)))
	if a != b {
		t.Error("structurally equal aggregates should be the same instance")
	}

	c := mustAggregate(t, r, M("y", mustScalar(t, r, Float64)), M("x", mustScalar(t, r, Int32)))
	if a == c || a.Equal(c) {
		t.Error("member order is part of the structure")
	}

	d, err := r.AggregateWithID("point_t", M("x", mustScalar(t, r, Int32)), M("y", mustScalar(t, r, Float64)))
	if err != nil {
		t.Fatal(err)
	}
	if a == d {
		t.Error("type ID is part of the structure")
	}

	if r.Alarm() != r.Alarm() {
		t.Error("standard descriptors should be interned")
	}
}

func TestRegistry_CrossRegistry(t *testing.T) {
	r1, r2 := NewRegistry(), NewRegistry()
	a1 := r1.Alarm()
	a2 := r2.Alarm()
	if a1 == a2 {
		t.Fatal("different registries should own different instances")
	}
	if !a1.Equal(a2) || a1.Fingerprint() != a2.Fingerprint() {
		t.Error("same shape from different registries should be equal")
	}

	// adopting a foreign descriptor yields the local canonical instance
	rec, err := r2.Aggregate(M("alarm", a1))
	if err != nil {
		t.Fatal(err)
	}
	if rec.Member(0) != a2 {
		t.Error("foreign member should be replaced by the canonical instance")
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	out := make([]*Descriptor, 16)
	for i := range out {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _ := r.ScalarRecord(Float64, "alarm,timeStamp")
			out[i] = v
		}(i)
	}
	wg.Wait()
	for i := 1; i < len(out); i++ {
		if out[i] != out[0] {
			t.Fatalf("goroutine %d got a different instance", i)
		}
	}
}

func TestRegistry_Invalid(t *testing.T) {
	r := NewRegistry()
	i32 := mustScalar(t, r, Int32)

	tests := []struct {
		name string
		fn   func() (*Descriptor, error)
	}{
		{"unknown scalar", func() (*Descriptor, error) { return r.Scalar(ScalarKind(99)) }},
		{"zero bound", func() (*Descriptor, error) { return r.BoundedString(0) }},
		{"negative bound", func() (*Descriptor, error) { return r.BoundedString(-4) }},
		{"empty name", func() (*Descriptor, error) { return r.Aggregate(M("", i32)) }},
		{"duplicate name", func() (*Descriptor, error) { return r.Aggregate(M("a", i32), M("a", i32)) }},
		{"nil member", func() (*Descriptor, error) { return r.Aggregate(M("a", nil)) }},
		{"zero descriptor", func() (*Descriptor, error) { return r.Aggregate(M("a", &Descriptor{})) }},
		{"empty union", func() (*Descriptor, error) { return r.Union(true) }},
		{"array of aggregate", func() (*Descriptor, error) { return r.ArrayOf(r.Alarm()) }},
		{"aggregate array of scalar", func() (*Descriptor, error) { return r.AggregateArray(i32) }},
		{"union array of aggregate", func() (*Descriptor, error) { return r.UnionArray(r.Alarm()) }},
		{"value alarm of string", func() (*Descriptor, error) { return r.ValueAlarm(String) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := tt.fn()
			if err == nil {
				t.Fatalf("expected error, got %v", d)
			}
			if !errors.Is(err, pverrors.ErrInvalidDescriptor) {
				t.Errorf("expected invalid descriptor, got %v", err)
			}
		})
	}
}

func TestDescriptor_NumberFields(t *testing.T) {
	r := NewRegistry()
	i32 := mustScalar(t, r, Int32)
	bs, _ := r.BoundedString(8)
	arr, _ := r.Array(Float64)
	u, _ := r.Union(true, M("i", i32), M("s", bs))
	aa, _ := r.AggregateArray(r.Alarm())
	ua, _ := r.UnionArray(u)

	tests := []struct {
		name string
		d    *Descriptor
		want int
	}{
		{"scalar", i32, 1},
		{"bounded string", bs, 1},
		{"array", arr, 1},
		{"union", u, 1},
		{"variant union", r.VariantUnion(), 1},
		{"aggregate array", aa, 1},
		{"union array", ua, 1},
		{"alarm", r.Alarm(), 4},
		{"empty aggregate", mustAggregate(t, r), 1},
		{"nested", mustAggregate(t, r, M("value", i32), M("alarm", r.Alarm()), M("u", u)), 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.NumberFields(); got != tt.want {
				t.Errorf("NumberFields() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDescriptor_LookupAndAtOffset(t *testing.T) {
	r := NewRegistry()
	rec, err := r.ScalarRecord(Float64, "alarm,timeStamp")
	if err != nil {
		t.Fatal(err)
	}
	if rec.NumberFields() != 10 {
		t.Fatalf("NumberFields() = %d, want 10", rec.NumberFields())
	}

	paths := map[string]int{
		"":                           0,
		"value":                      1,
		"alarm":                      2,
		"alarm.severity":             3,
		"alarm.status":               4,
		"alarm.message":              5,
		"timeStamp":                  6,
		"timeStamp.secondsPastEpoch": 7,
		"timeStamp.userTag":          9,
	}
	for path, want := range paths {
		off, d, err := rec.Lookup(path)
		if err != nil {
			t.Errorf("Lookup(%q): %v", path, err)
			continue
		}
		if off != want {
			t.Errorf("Lookup(%q) = %d, want %d", path, off, want)
		}
		back, p, ok := rec.AtOffset(off)
		if !ok || back != d {
			t.Errorf("AtOffset(%d) did not return the looked up descriptor", off)
		}
		if got := strings.Join(p, "."); got != path {
			t.Errorf("AtOffset(%d) path = %q, want %q", off, got, path)
		}
	}

	if _, _, ok := rec.AtOffset(10); ok {
		t.Error("AtOffset past the end should fail")
	}
	if _, _, ok := rec.AtOffset(-1); ok {
		t.Error("AtOffset(-1) should fail")
	}

	_, _, err = rec.Lookup("alarm.nope")
	if err == nil || !errors.Is(err, &pverrors.Error{Kind: pverrors.KindNotFound}) {
		t.Errorf("missing member: %v", err)
	}
	_, _, err = rec.Lookup("value.x")
	if !errors.Is(err, pverrors.ErrShapeMismatch) {
		t.Errorf("path through scalar: %v", err)
	}
}

func TestDescriptor_Accessors(t *testing.T) {
	r := NewRegistry()
	bs, _ := r.BoundedString(16)
	arr, _ := r.ArrayOf(bs)
	if arr.Kind() != KindArray || arr.Element() != bs || arr.ScalarKind() != String {
		t.Error("bounded string array accessors")
	}
	if bs.MaxLength() != 16 {
		t.Errorf("MaxLength() = %d", bs.MaxLength())
	}
	if arr.TypeName() != "string(16)[]" {
		t.Errorf("TypeName() = %q", arr.TypeName())
	}

	i32 := mustScalar(t, r, Int32)
	u, _ := r.UnionWithID("choice_t", false, M("a", i32), M("b", bs))
	if u.Discriminated() || u.IsVariant() || u.ID() != "choice_t" {
		t.Error("union accessors")
	}
	if u.MemberIndex("b") != 1 || u.MemberIndex("z") != -1 {
		t.Error("MemberIndex")
	}
	if m, ok := u.MemberByName("a"); !ok || m != i32 {
		t.Error("MemberByName")
	}
	names := u.Names()
	names[0] = "mutated"
	if u.MemberName(0) != "a" {
		t.Error("Names should return a copy")
	}
	if !r.VariantUnion().IsVariant() || r.VariantUnion().TypeName() != "any" {
		t.Error("variant union")
	}
}

func TestDescriptor_String(t *testing.T) {
	r := NewRegistry()
	rec, _ := r.ScalarRecord(Int32, "alarm")
	want := strings.Join([]string{
		"epics:nt/NTScalar:1.0",
		"    int value",
		"    alarm_t alarm",
		"        int severity",
		"        int status",
		"        string message",
	}, "\n")
	if got := rec.String(); got != want {
		t.Errorf("String() =\n%s\nwant\n%s", got, want)
	}
}

func TestScalarKind(t *testing.T) {
	for k := Bool; k <= String; k++ {
		back, ok := ParseScalarKind(k.String())
		if !ok || back != k {
			t.Errorf("ParseScalarKind(%q) = %v, %v", k.String(), back, ok)
		}
	}
	if _, ok := ParseScalarKind("complex"); ok {
		t.Error("unknown name should not parse")
	}
	if Int16.Size() != 2 || Float64.Size() != 8 || String.Size() != 0 {
		t.Error("Size")
	}
	if !Uint8.IsInteger() || Uint8.IsSigned() || !Int64.IsSigned() || !Float32.IsFloat() {
		t.Error("classification")
	}
	if KindUnionArray.String() != "unionArray" || Kind(42).String() != "unknown" {
		t.Error("Kind.String")
	}
	if KindAggregate.IsLeaf() || !KindUnion.IsLeaf() {
		t.Error("IsLeaf")
	}
}
