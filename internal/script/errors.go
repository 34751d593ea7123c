package script

import (
	"errors"
	"fmt"
)

// Errors for predicate evaluation.
var (
	// ErrClosed is returned when evaluating a closed predicate.
	ErrClosed = errors.New("lua predicate is closed")

	// ErrTimeout is returned when an evaluation exceeds its deadline.
	ErrTimeout = errors.New("lua execution timeout")

	// ErrCompile is matched by every CompileError.
	ErrCompile = errors.New("lua compile failed")

	// ErrNoFunction is returned when a chunk does not yield the wrapper function.
	ErrNoFunction = errors.New("script did not compile to a function")

	// ErrNilNode is returned when evaluating against a nil node.
	ErrNilNode = errors.New("nil node")
)

// CompileError reports a script that could not be loaded.
type CompileError struct {
	Source string
	Err    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %q: %v", e.Source, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrCompile.
func (e *CompileError) Is(target error) bool {
	return target == ErrCompile
}
