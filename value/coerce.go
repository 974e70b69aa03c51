package value

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/wippyai/pvdata/errors"
	"github.com/wippyai/pvdata/pvtype"
)

// toInt64 accepts any Go integer type. Floats are never truncated.
func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint:
		if v <= math.MaxInt64 {
			return int64(v), true
		}
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v), true
		}
	}
	return 0, false
}

func toUint64(value any) (uint64, bool) {
	switch v := value.(type) {
	case uint64:
		return v, true
	case uint8:
		return uint64(v), true
	case uint16:
		return uint64(v), true
	case uint32:
		return uint64(v), true
	case uint:
		return uint64(v), true
	case int8:
		if v >= 0 {
			return uint64(v), true
		}
	case int16:
		if v >= 0 {
			return uint64(v), true
		}
	case int32:
		if v >= 0 {
			return uint64(v), true
		}
	case int:
		if v >= 0 {
			return uint64(v), true
		}
	case int64:
		if v >= 0 {
			return uint64(v), true
		}
	}
	return 0, false
}

// coerceScalar converts value to the exact Go type stored for kind.
// Integers are range checked. Floats only accept float32 and float64, and
// a float64 narrows to float32 only when no precision is lost.
func coerceScalar(kind pvtype.ScalarKind, value any) (any, bool) {
	switch kind {
	case pvtype.Bool:
		v, ok := value.(bool)
		return v, ok
	case pvtype.String:
		v, ok := value.(string)
		return v, ok
	case pvtype.Float32:
		switch v := value.(type) {
		case float32:
			return v, true
		case float64:
			f := float32(v)
			if float64(f) == v || math.IsNaN(v) {
				return f, true
			}
		}
		return nil, false
	case pvtype.Float64:
		switch v := value.(type) {
		case float64:
			return v, true
		case float32:
			return float64(v), true
		}
		return nil, false
	}

	if kind.IsSigned() {
		v, ok := toInt64(value)
		if !ok {
			return nil, false
		}
		switch kind {
		case pvtype.Int8:
			if v >= math.MinInt8 && v <= math.MaxInt8 {
				return int8(v), true
			}
		case pvtype.Int16:
			if v >= math.MinInt16 && v <= math.MaxInt16 {
				return int16(v), true
			}
		case pvtype.Int32:
			if v >= math.MinInt32 && v <= math.MaxInt32 {
				return int32(v), true
			}
		case pvtype.Int64:
			return v, true
		}
		return nil, false
	}

	v, ok := toUint64(value)
	if !ok {
		return nil, false
	}
	switch kind {
	case pvtype.Uint8:
		if v <= math.MaxUint8 {
			return uint8(v), true
		}
	case pvtype.Uint16:
		if v <= math.MaxUint16 {
			return uint16(v), true
		}
	case pvtype.Uint32:
		if v <= math.MaxUint32 {
			return uint32(v), true
		}
	case pvtype.Uint64:
		return v, true
	}
	return nil, false
}

func zeroScalar(kind pvtype.ScalarKind) any {
	switch kind {
	case pvtype.Bool:
		return false
	case pvtype.Int8:
		return int8(0)
	case pvtype.Int16:
		return int16(0)
	case pvtype.Int32:
		return int32(0)
	case pvtype.Int64:
		return int64(0)
	case pvtype.Uint8:
		return uint8(0)
	case pvtype.Uint16:
		return uint16(0)
	case pvtype.Uint32:
		return uint32(0)
	case pvtype.Uint64:
		return uint64(0)
	case pvtype.Float32:
		return float32(0)
	case pvtype.Float64:
		return float64(0)
	default:
		return ""
	}
}

// checkScalar coerces value for the scalar or bounded string descriptor d.
func checkScalar(d *pvtype.Descriptor, path []string, value any) (any, error) {
	v, ok := coerceScalar(d.ScalarKind(), value)
	if !ok {
		return nil, errors.New(errors.PhaseMutate, errors.KindTypeMismatch).
			Path(path...).
			GoType(fmt.Sprintf("%T", value)).
			TypeName(d.TypeName()).
			Value(value).
			Build()
	}
	if s, ok := v.(string); ok && !utf8.ValidString(s) {
		return nil, invalidUTF8(d, path, value)
	}
	if d.Kind() == pvtype.KindBoundedString {
		if s := v.(string); len(s) > d.MaxLength() {
			return nil, errors.OutOfBounds(errors.PhaseMutate, path, len(s), d.MaxLength())
		}
	}
	return v, nil
}

// Strings must be valid UTF-8 to survive the wire.
func invalidUTF8(d *pvtype.Descriptor, path []string, value any) *errors.Error {
	return errors.New(errors.PhaseMutate, errors.KindTypeMismatch).
		Path(path...).
		GoType(fmt.Sprintf("%T", value)).
		TypeName(d.TypeName()).
		Value(value).
		Detail("invalid UTF-8").
		Build()
}

// checkArray converts seq into the typed slice stored for the array
// descriptor d. The result never aliases seq.
func checkArray(d *pvtype.Descriptor, path []string, seq any) (any, error) {
	elem := d.Element()
	if seq == nil {
		return zeroArray(elem.ScalarKind()), nil
	}
	if elem.Kind() == pvtype.KindScalar && sameArrayType(elem.ScalarKind(), seq) {
		if ss, ok := seq.([]string); ok {
			for i, s := range ss {
				if !utf8.ValidString(s) {
					err := invalidUTF8(elem, path, s)
					err.Detail = fmt.Sprintf("element %d: %s", i, err.Detail)
					return nil, err
				}
			}
		}
		return cloneArray(seq), nil
	}

	rv := reflect.ValueOf(seq)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, errors.New(errors.PhaseMutate, errors.KindTypeMismatch).
			Path(path...).
			GoType(fmt.Sprintf("%T", seq)).
			TypeName(d.TypeName()).
			Detail("expected a slice").
			Build()
	}
	out := makeArray(elem.ScalarKind(), rv.Len())
	for i := 0; i < rv.Len(); i++ {
		v, err := checkScalar(elem, path, rv.Index(i).Interface())
		if err != nil {
			if e, ok := err.(*errors.Error); ok {
				e.Detail = strings.TrimSuffix(fmt.Sprintf("element %d: %s", i, e.Detail), ": ")
			}
			return nil, err
		}
		setIndex(out, i, v)
	}
	return out, nil
}

func sameArrayType(kind pvtype.ScalarKind, seq any) bool {
	switch seq.(type) {
	case []bool:
		return kind == pvtype.Bool
	case []int8:
		return kind == pvtype.Int8
	case []int16:
		return kind == pvtype.Int16
	case []int32:
		return kind == pvtype.Int32
	case []int64:
		return kind == pvtype.Int64
	case []uint8:
		return kind == pvtype.Uint8
	case []uint16:
		return kind == pvtype.Uint16
	case []uint32:
		return kind == pvtype.Uint32
	case []uint64:
		return kind == pvtype.Uint64
	case []float32:
		return kind == pvtype.Float32
	case []float64:
		return kind == pvtype.Float64
	case []string:
		return kind == pvtype.String
	}
	return false
}
