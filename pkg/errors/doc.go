// Package errors provides structured error types for better observability
// and programmatic error handling across the application.
//
// Planning failures carry the domain codes ErrCodeUnknownItem and
// ErrCodeUnknownMachine so callers never see undefined lookups.
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeInvalidRequest,
//	    "tier out of range",
//	    cause,
//	    map[string]any{
//	        "machine": "assembler",
//	        "tier":    4,
//	    },
//	)
//
//	if errors.IsCode(err, errors.ErrCodeUnknownItem) {
//	    // ...
//	}
package errors
