// Package errors provides structured error types for the pvdata module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: field path, Go/field type names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseMutate, errors.KindTypeMismatch).
//		Path("alarm", "severity").
//		GoType("float64").
//		TypeName("int").
//		Detail("floating value rejected for integer field").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhaseMutate, path, "float64", "int")
//	err := errors.OffsetOutOfRange(errors.PhaseDecode, 12, 5)
//
// Every Kind that callers branch on has a sentinel, so matching does not
// depend on the phase that produced the error:
//
//	if errors.Is(err, pverrors.ErrUnknownCacheID) { ... }
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
