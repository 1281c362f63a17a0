// Package errors provides structured error types for better observability
// and programmatic error handling across gpudbg.
//
// The introspection surface resolves most conditions locally (a vanished work
// unit renders nothing, a disabled feature reads as zero, an out-of-range write
// is clamped). Only two conditions surface to callers, and both carry a code:
//
//   - ErrCodeNotFound when a context report is requested for a context whose
//     reference count already reached zero
//   - ErrCodeUnavailable when the device power cycle fails during a
//     restart-applied tunable write
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeUnavailable,
//	    "power cycle failed",
//	    cause,
//	    map[string]any{
//	        "tunable": "lm_limit",
//	        "value":   6000,
//	    },
//	)
//
// The HTTP layer converts codes with HTTPStatus.
package errors
