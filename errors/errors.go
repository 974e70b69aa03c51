package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseRegistry Phase = "registry" // descriptor construction
	PhaseBind     Phase = "bind"     // value tree construction
	PhaseMutate   Phase = "mutate"   // typed setters
	PhaseEncode   Phase = "encode"   // tree to bytes
	PhaseDecode   Phase = "decode"   // bytes to tree
	PhaseProject  Phase = "project"  // view construction and copy
	PhaseParse    Phase = "parse"    // request strings, schema and JSON input
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidDescriptor Kind = "invalid_descriptor"
	KindShapeMismatch     Kind = "shape_mismatch"
	KindTypeMismatch      Kind = "type_mismatch"
	KindOffsetOutOfRange  Kind = "offset_out_of_range"
	KindUnknownCacheID    Kind = "unknown_cache_id"
	KindTruncatedStream   Kind = "truncated_stream"
	KindInvalidData       Kind = "invalid_data"
	KindOutOfBounds       Kind = "out_of_bounds"
	KindUnsupported       Kind = "unsupported"
	KindNotFound          Kind = "not_found"
	KindNilPointer        Kind = "nil_pointer"
)

// Sentinels for errors.Is. A sentinel has no Phase and matches its Kind in any phase.
var (
	ErrInvalidDescriptor = &Error{Kind: KindInvalidDescriptor}
	ErrShapeMismatch     = &Error{Kind: KindShapeMismatch}
	ErrTypeMismatch      = &Error{Kind: KindTypeMismatch}
	ErrOffsetOutOfRange  = &Error{Kind: KindOffsetOutOfRange}
	ErrUnknownCacheID    = &Error{Kind: KindUnknownCacheID}
	ErrTruncatedStream   = &Error{Kind: KindTruncatedStream}
)

// Error is the structured error type used throughout the module
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	GoType   string
	TypeName string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.TypeName != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.TypeName != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", field type ")
			b.WriteString(e.TypeName)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("field type ")
			b.WriteString(e.TypeName)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.TypeName != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target without a Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// TypeName sets the descriptor type name
func (b *Builder) TypeName(t string) *Builder {
	b.err.TypeName = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InvalidDescriptor creates a descriptor construction error
func InvalidDescriptor(path []string, detail string, args ...any) *Error {
	return New(PhaseRegistry, KindInvalidDescriptor).Path(path...).Detail(detail, args...).Build()
}

// ShapeMismatch creates an error for a path resolving to the wrong node kind
func ShapeMismatch(phase Phase, path []string, want, got string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindShapeMismatch,
		Path:   path,
		Detail: fmt.Sprintf("expected %s, found %s", want, got),
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, typeName string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindTypeMismatch,
		Path:     path,
		GoType:   goType,
		TypeName: typeName,
	}
}

// OffsetOutOfRange creates an error for an offset outside the bound descriptor
func OffsetOutOfRange(phase Phase, offset, total int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOffsetOutOfRange,
		Detail: fmt.Sprintf("offset %d out of range [0, %d)", offset, total),
		Value:  offset,
	}
}

// UnknownCacheID creates an error for a cache marker naming an unregistered ID
func UnknownCacheID(id uint32) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindUnknownCacheID,
		Detail: fmt.Sprintf("introspection cache id %d was never registered on this stream", id),
		Value:  id,
	}
}

// Truncated creates an error for a stream that ended mid-structure
func Truncated(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindTruncatedStream,
		Detail: fmt.Sprintf("stream ended while reading %s", what),
		Cause:  cause,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, path []string, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Path:   path,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Detail: what + " is nil",
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}
