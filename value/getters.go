package value

import (
	"fmt"
	"math"

	"github.com/wippyai/pvdata/errors"
)

func (n *Node) getterError(want string) error {
	return errors.New(errors.PhaseMutate, errors.KindTypeMismatch).
		Path(n.Path()...).
		GoType(want).
		TypeName(n.desc.TypeName()).
		Build()
}

// AsBool returns a boolean scalar.
func (n *Node) AsBool() (bool, error) {
	if v, ok := n.scalar.(bool); ok {
		return v, nil
	}
	return false, n.getterError("bool")
}

// AsInt64 returns an integer scalar widened to int64. An unsigned value
// above math.MaxInt64 is rejected.
func (n *Node) AsInt64() (int64, error) {
	if n.scalar != nil {
		if v, ok := toInt64(n.scalar); ok {
			return v, nil
		}
	}
	return 0, n.getterError("int64")
}

// AsUint64 returns a non-negative integer scalar widened to uint64.
func (n *Node) AsUint64() (uint64, error) {
	if n.scalar != nil {
		if v, ok := toUint64(n.scalar); ok {
			return v, nil
		}
	}
	return 0, n.getterError("uint64")
}

// AsFloat64 returns any numeric scalar as float64.
func (n *Node) AsFloat64() (float64, error) {
	switch v := n.scalar.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	}
	if v, ok := toInt64(n.scalar); ok {
		return float64(v), nil
	}
	if v, ok := toUint64(n.scalar); ok && v > math.MaxInt64 {
		return float64(v), nil
	}
	return 0, n.getterError("float64")
}

// AsString returns a string or bounded string scalar.
func (n *Node) AsString() (string, error) {
	if v, ok := n.scalar.(string); ok {
		return v, nil
	}
	return "", n.getterError("string")
}

// FormatScalar renders a scalar value the way String prints it.
func FormatScalar(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprint(v)
}
