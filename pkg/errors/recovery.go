// Package errors provides the catch-all boundary used by the experiment runner.
//
// This file converts unexpected panics into structured errors and renders the
// diagnostic trace of any failure, so that a run can log what went wrong and
// still terminate normally.

package errors

import (
	"fmt"
	"io"
	"runtime/debug"

	"github.com/cockroachdb/errors"
)

// PanicError represents an error that was created from a recovered panic.
type PanicError struct {
	// PanicValue is the original value passed to panic()
	PanicValue interface{}

	// StackTrace contains the stack trace at the time of panic
	StackTrace string

	// Operation identifies where the panic was recovered
	Operation string
}

// Error implements the error interface for PanicError.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// Unwrap returns the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.PanicValue.(error); ok {
		return err
	}
	return nil
}

// String provides detailed information including stack trace.
func (e *PanicError) String() string {
	return fmt.Sprintf("panic in %s: %v\nStack trace:\n%s",
		e.Operation, e.PanicValue, e.StackTrace)
}

// NewPanicError creates a new PanicError with the given operation context and panic value.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover is used with defer to convert a panic into an error.
//
// Usage:
//
//	func (p *Pipeline) Run(ctx context.Context) (res *Result, err error) {
//	    defer Recover(&err, "Pipeline.Run")
//	    ...
//	}
//
// If the function already returned an error, the panic is recorded on top of it.
func Recover(err *error, operation string) {
	if r := recover(); r != nil {
		panicErr := NewPanicError(operation, r)

		if *err != nil {
			*err = errors.WithSecondaryError(
				errors.Wrapf(*err, "panic in %s: %v", operation, r),
				panicErr,
			)
		} else {
			*err = panicErr
		}
	}
}

// SafeExecute executes fn and recovers from any panic, converting it to an error.
//
// Example:
//
//	err := SafeExecute("pipeline", func() error {
//	    _, err := p.Run(ctx)
//	    return err
//	})
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}

// PrintTrace writes the full diagnostic trace of err to w.
// Errors built with cockroachdb/errors carry their own stack; a PanicError
// contributes the goroutine stack captured at recovery time.
func PrintTrace(w io.Writer, err error) {
	if err == nil {
		return
	}
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		fmt.Fprintln(w, panicErr.String())
		return
	}
	fmt.Fprintf(w, "%+v\n", err)
}
