package pvjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"strconv"

	"github.com/tidwall/jsonc"

	"github.com/wippyai/pvdata/bitset"
	"github.com/wippyai/pvdata/errors"
	"github.com/wippyai/pvdata/pvtype"
	"github.com/wippyai/pvdata/value"
)

// ParseInto assigns the JSON document data to t and returns the offsets it
// assigned, the same set TouchedSince reports for the change.
//
// Members missing from an object keep their values. A union object selects
// its variant; assigning into the variant that is already active keeps its
// other members. Arrays are replaced whole. On error t is left unchanged.
func ParseInto(t *value.Tree, data []byte) (*bitset.BitSet, error) {
	if t == nil {
		return nil, errors.NilPointer(errors.PhaseParse, "tree")
	}
	doc, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := assign(t.Clone().Root(), doc, nil); err != nil {
		return nil, err
	}
	bits := bitset.New(t.Descriptor().NumberFields())
	if err := assign(t.Root(), doc, bits); err != nil {
		return nil, err
	}
	return bits, nil
}

func decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.ParseFailed("json", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.InvalidData(errors.PhaseParse, nil, "trailing data after json document")
	}
	return doc, nil
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

func mismatch(n *value.Node, v any) error {
	return errors.New(errors.PhaseParse, errors.KindTypeMismatch).
		Path(n.Path()...).
		GoType("json " + jsonType(v)).
		TypeName(n.Descriptor().TypeName()).
		Build()
}

// assign writes v into n. Offsets are recorded in bits only for nodes in the
// root's offset space; nested values pass nil.
func assign(n *value.Node, v any, bits *bitset.BitSet) error {
	d := n.Descriptor()
	var err error
	switch d.Kind() {
	case pvtype.KindAggregate:
		obj, ok := v.(map[string]any)
		if !ok {
			return mismatch(n, v)
		}
		for _, k := range slices.Sorted(maps.Keys(obj)) {
			m := n.Member(k)
			if m == nil {
				return errors.NotFound(errors.PhaseParse, n.Path(), "member", k)
			}
			if err := assign(m, obj[k], bits); err != nil {
				return err
			}
		}
		return nil
	case pvtype.KindScalar, pvtype.KindBoundedString:
		sv, ok := scalarOf(d.ScalarKind(), v)
		if !ok {
			return mismatch(n, v)
		}
		err = n.SetScalar(sv)
	case pvtype.KindArray:
		list, ok := v.([]any)
		if !ok {
			return mismatch(n, v)
		}
		seq := make([]any, len(list))
		for i, e := range list {
			if seq[i], ok = scalarOf(d.ScalarKind(), e); !ok {
				return errors.New(errors.PhaseParse, errors.KindTypeMismatch).
					Path(n.Path()...).
					GoType("json " + jsonType(e)).
					TypeName(d.Element().TypeName()).
					Detail("element %d", i).
					Build()
			}
		}
		err = n.SetArray(seq)
	case pvtype.KindUnion:
		err = assignUnion(n, v)
	case pvtype.KindAggregateArray, pvtype.KindUnionArray:
		err = assignElements(n, v)
	}
	if err != nil {
		return err
	}
	if bits != nil {
		bits.Set(n.Offset())
	}
	return nil
}

func assignUnion(n *value.Node, v any) error {
	if v == nil {
		return n.ClearVariant()
	}
	if n.Descriptor().IsVariant() {
		_, active := n.Variant()
		if active == nil {
			return errors.New(errors.PhaseParse, errors.KindUnsupported).
				Path(n.Path()...).
				Detail("variant union has no active value to assign into").
				Build()
		}
		return assign(active, v, nil)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return mismatch(n, v)
	}
	if len(obj) != 1 {
		return errors.InvalidData(errors.PhaseParse, n.Path(),
			fmt.Sprintf("union value must name exactly one variant, got %d", len(obj)))
	}
	for name, inner := range obj {
		cur, active := n.Variant()
		if active == nil || cur != name {
			var err error
			if active, err = n.SelectVariant(name, nil); err != nil {
				return err
			}
		}
		return assign(active, inner, nil)
	}
	return nil
}

func assignElements(n *value.Node, v any) error {
	list, ok := v.([]any)
	if !ok {
		return mismatch(n, v)
	}
	if err := n.SetLength(len(list)); err != nil {
		return err
	}
	elem := n.Descriptor().Element()
	for i, e := range list {
		if e == nil {
			if err := n.SetElement(i, nil); err != nil {
				return err
			}
			continue
		}
		tmp, err := value.Bind(elem)
		if err != nil {
			return err
		}
		if err := assign(tmp.Root(), e, nil); err != nil {
			return err
		}
		if err := n.SetElement(i, tmp.Root()); err != nil {
			return err
		}
	}
	return nil
}

// scalarOf converts a decoded JSON value to a Go value SetScalar accepts for
// kind. Range checks are left to the setter.
func scalarOf(kind pvtype.ScalarKind, v any) (any, bool) {
	switch kind {
	case pvtype.Bool:
		b, ok := v.(bool)
		return b, ok
	case pvtype.String:
		s, ok := v.(string)
		return s, ok
	case pvtype.Float32, pvtype.Float64:
		switch x := v.(type) {
		case json.Number:
			if kind == pvtype.Float32 {
				f, err := strconv.ParseFloat(x.String(), 32)
				return float32(f), err == nil
			}
			f, err := x.Float64()
			return f, err == nil
		case string:
			switch x {
			case "NaN":
				return math.NaN(), true
			case "Infinity":
				return math.Inf(1), true
			case "-Infinity":
				return math.Inf(-1), true
			}
		}
		return nil, false
	}
	num, ok := v.(json.Number)
	if !ok {
		return nil, false
	}
	if kind.IsSigned() {
		i, err := strconv.ParseInt(num.String(), 10, 64)
		return i, err == nil
	}
	u, err := strconv.ParseUint(num.String(), 10, 64)
	return u, err == nil
}
