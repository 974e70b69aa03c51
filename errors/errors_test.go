package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:    PhaseMutate,
				Kind:     KindTypeMismatch,
				Path:     []string{"alarm", "severity"},
				GoType:   "float64",
				TypeName: "int",
				Detail:   "cannot convert",
			},
			contains: []string{"[mutate]", "type_mismatch", "alarm.severity", "float64", "int", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindTruncatedStream,
			},
			contains: []string{"[decode]", "truncated_stream"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseDecode,
				Kind:   KindInvalidData,
				Detail: "bad tag",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[decode]", "invalid_data", "bad tag", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseEncode,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseEncode,
		Kind:  KindTypeMismatch,
		Path:  []string{"foo"},
	}

	if !err.Is(&Error{Phase: PhaseEncode, Kind: KindTypeMismatch}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseDecode, Kind: KindTypeMismatch}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseEncode, Kind: KindOutOfBounds}) {
		t.Error("Is should not match different kind")
	}
	if !errors.Is(err, ErrTypeMismatch) {
		t.Error("errors.Is should match the phase-less sentinel")
	}
	if errors.Is(err, ErrShapeMismatch) {
		t.Error("errors.Is should not match another sentinel")
	}
}

func TestSentinelsThroughWrapping(t *testing.T) {
	inner := UnknownCacheID(7)
	outer := Wrap(PhaseDecode, KindInvalidData, inner, "decode message")

	if !errors.Is(outer, ErrUnknownCacheID) {
		t.Error("sentinel should be found through the cause chain")
	}
	var pe *Error
	if !errors.As(outer, &pe) || pe.Kind != KindInvalidData {
		t.Errorf("errors.As = %v", pe)
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseEncode, KindTypeMismatch).
		Path("value", "x").
		GoType("string").
		TypeName("double").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "double", "string").
		Build()

	if err.Phase != PhaseEncode {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseEncode)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if len(err.Path) != 2 || err.Path[0] != "value" || err.Path[1] != "x" {
		t.Errorf("Path = %v, want [value x]", err.Path)
	}
	if err.GoType != "string" {
		t.Errorf("GoType = %v, want 'string'", err.GoType)
	}
	if err.TypeName != "double" {
		t.Errorf("TypeName = %v, want 'double'", err.TypeName)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected double, got string" {
		t.Errorf("Detail = %v", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		err  *Error
		name string
		kind Kind
	}{
		{InvalidDescriptor([]string{"alarm"}, "duplicate member %q", "severity"), "InvalidDescriptor", KindInvalidDescriptor},
		{ShapeMismatch(PhaseMutate, []string{"value"}, "scalar", "aggregate"), "ShapeMismatch", KindShapeMismatch},
		{TypeMismatch(PhaseMutate, []string{"value"}, "float64", "int"), "TypeMismatch", KindTypeMismatch},
		{OffsetOutOfRange(PhaseDecode, 9, 4), "OffsetOutOfRange", KindOffsetOutOfRange},
		{UnknownCacheID(3), "UnknownCacheID", KindUnknownCacheID},
		{Truncated("size", nil), "Truncated", KindTruncatedStream},
		{OutOfBounds(PhaseMutate, nil, 10, 5), "OutOfBounds", KindOutOfBounds},
		{NotFound(PhaseMutate, nil, "member", "x"), "NotFound", KindNotFound},
		{NilPointer(PhaseEncode, "tree"), "NilPointer", KindNilPointer},
		{Unsupported(PhaseEncode, "x"), "Unsupported", KindUnsupported},
		{ParseFailed("request", nil), "ParseFailed", KindInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", tt.err.Kind, tt.kind)
			}
			if tt.err.Error() == "" {
				t.Error("empty message")
			}
		})
	}

	if v := OffsetOutOfRange(PhaseDecode, 9, 4).Value; v != 9 {
		t.Errorf("OffsetOutOfRange Value = %v, want 9", v)
	}
	if d := InvalidDescriptor(nil, "duplicate member %q", "a").Detail; d != `duplicate member "a"` {
		t.Errorf("InvalidDescriptor Detail = %q", d)
	}
}
