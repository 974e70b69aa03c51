package value

import (
	"math"
	"slices"

	"github.com/wippyai/pvdata/pvtype"
)

func makeArray(kind pvtype.ScalarKind, n int) any {
	switch kind {
	case pvtype.Bool:
		return make([]bool, n)
	case pvtype.Int8:
		return make([]int8, n)
	case pvtype.Int16:
		return make([]int16, n)
	case pvtype.Int32:
		return make([]int32, n)
	case pvtype.Int64:
		return make([]int64, n)
	case pvtype.Uint8:
		return make([]uint8, n)
	case pvtype.Uint16:
		return make([]uint16, n)
	case pvtype.Uint32:
		return make([]uint32, n)
	case pvtype.Uint64:
		return make([]uint64, n)
	case pvtype.Float32:
		return make([]float32, n)
	case pvtype.Float64:
		return make([]float64, n)
	default:
		return make([]string, n)
	}
}

func zeroArray(kind pvtype.ScalarKind) any {
	return makeArray(kind, 0)
}

// setIndex stores an already coerced element.
func setIndex(arr any, i int, v any) {
	switch a := arr.(type) {
	case []bool:
		a[i] = v.(bool)
	case []int8:
		a[i] = v.(int8)
	case []int16:
		a[i] = v.(int16)
	case []int32:
		a[i] = v.(int32)
	case []int64:
		a[i] = v.(int64)
	case []uint8:
		a[i] = v.(uint8)
	case []uint16:
		a[i] = v.(uint16)
	case []uint32:
		a[i] = v.(uint32)
	case []uint64:
		a[i] = v.(uint64)
	case []float32:
		a[i] = v.(float32)
	case []float64:
		a[i] = v.(float64)
	case []string:
		a[i] = v.(string)
	}
}

// ArrayLen returns the length of a typed scalar slice.
func ArrayLen(arr any) int {
	switch a := arr.(type) {
	case []bool:
		return len(a)
	case []int8:
		return len(a)
	case []int16:
		return len(a)
	case []int32:
		return len(a)
	case []int64:
		return len(a)
	case []uint8:
		return len(a)
	case []uint16:
		return len(a)
	case []uint32:
		return len(a)
	case []uint64:
		return len(a)
	case []float32:
		return len(a)
	case []float64:
		return len(a)
	case []string:
		return len(a)
	}
	return 0
}

// ArrayIndex returns element i of a typed scalar slice.
func ArrayIndex(arr any, i int) any {
	switch a := arr.(type) {
	case []bool:
		return a[i]
	case []int8:
		return a[i]
	case []int16:
		return a[i]
	case []int32:
		return a[i]
	case []int64:
		return a[i]
	case []uint8:
		return a[i]
	case []uint16:
		return a[i]
	case []uint32:
		return a[i]
	case []uint64:
		return a[i]
	case []float32:
		return a[i]
	case []float64:
		return a[i]
	case []string:
		return a[i]
	}
	return nil
}

func cloneArray(arr any) any {
	switch a := arr.(type) {
	case []bool:
		return slices.Clone(a)
	case []int8:
		return slices.Clone(a)
	case []int16:
		return slices.Clone(a)
	case []int32:
		return slices.Clone(a)
	case []int64:
		return slices.Clone(a)
	case []uint8:
		return slices.Clone(a)
	case []uint16:
		return slices.Clone(a)
	case []uint32:
		return slices.Clone(a)
	case []uint64:
		return slices.Clone(a)
	case []float32:
		return slices.Clone(a)
	case []float64:
		return slices.Clone(a)
	case []string:
		return slices.Clone(a)
	}
	return arr
}

// equalArray compares element-wise; floats compare by bit pattern so NaN
// payloads survive a round trip as equal.
func equalArray(x, y any) bool {
	switch a := x.(type) {
	case []bool:
		return slices.Equal(a, y.([]bool))
	case []int8:
		return slices.Equal(a, y.([]int8))
	case []int16:
		return slices.Equal(a, y.([]int16))
	case []int32:
		return slices.Equal(a, y.([]int32))
	case []int64:
		return slices.Equal(a, y.([]int64))
	case []uint8:
		return slices.Equal(a, y.([]uint8))
	case []uint16:
		return slices.Equal(a, y.([]uint16))
	case []uint32:
		return slices.Equal(a, y.([]uint32))
	case []uint64:
		return slices.Equal(a, y.([]uint64))
	case []float32:
		return slices.EqualFunc(a, y.([]float32), func(p, q float32) bool {
			return math.Float32bits(p) == math.Float32bits(q)
		})
	case []float64:
		return slices.EqualFunc(a, y.([]float64), func(p, q float64) bool {
			return math.Float64bits(p) == math.Float64bits(q)
		})
	case []string:
		return slices.Equal(a, y.([]string))
	}
	return false
}

func equalScalar(x, y any) bool {
	switch a := x.(type) {
	case float32:
		b, ok := y.(float32)
		return ok && math.Float32bits(a) == math.Float32bits(b)
	case float64:
		b, ok := y.(float64)
		return ok && math.Float64bits(a) == math.Float64bits(b)
	}
	return x == y
}
