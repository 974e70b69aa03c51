package pvtype

// Kind is the node kind of a Descriptor.
type Kind uint8

const (
	KindScalar Kind = iota
	KindBoundedString
	KindArray
	KindAggregate
	KindUnion
	KindAggregateArray
	KindUnionArray
)

var kindNames = [...]string{
	KindScalar:         "scalar",
	KindBoundedString:  "boundedString",
	KindArray:          "array",
	KindAggregate:      "aggregate",
	KindUnion:          "union",
	KindAggregateArray: "aggregateArray",
	KindUnionArray:     "unionArray",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsLeaf reports whether a node of this kind occupies a single offset.
// Only aggregates expand into their members.
func (k Kind) IsLeaf() bool {
	return k != KindAggregate
}

// ScalarKind is the primitive kind of a scalar, bounded string or array element.
type ScalarKind uint8

const (
	Bool ScalarKind = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	String
)

var scalarNames = [...]string{
	Bool:    "boolean",
	Int8:    "byte",
	Int16:   "short",
	Int32:   "int",
	Int64:   "long",
	Uint8:   "ubyte",
	Uint16:  "ushort",
	Uint32:  "uint",
	Uint64:  "ulong",
	Float32: "float",
	Float64: "double",
	String:  "string",
}

func (k ScalarKind) String() string {
	if int(k) < len(scalarNames) {
		return scalarNames[k]
	}
	return "unknown"
}

// ParseScalarKind returns the scalar kind with the given name.
func ParseScalarKind(name string) (ScalarKind, bool) {
	for i, n := range scalarNames {
		if n == name {
			return ScalarKind(i), true
		}
	}
	return 0, false
}

// Valid reports whether k names a known scalar kind.
func (k ScalarKind) Valid() bool {
	return int(k) < len(scalarNames)
}

// IsInteger reports whether k is a signed or unsigned integer kind.
func (k ScalarKind) IsInteger() bool {
	return k >= Int8 && k <= Uint64
}

// IsSigned reports whether k is a signed integer kind.
func (k ScalarKind) IsSigned() bool {
	return k >= Int8 && k <= Int64
}

// IsFloat reports whether k is float or double.
func (k ScalarKind) IsFloat() bool {
	return k == Float32 || k == Float64
}

// Size returns the fixed wire width in bytes, or 0 for strings.
func (k ScalarKind) Size() int {
	switch k {
	case Bool, Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		return 0
	}
}
