package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrShutdown is returned when using an application after Shutdown.
	ErrShutdown = errors.New("application shut down")

	// ErrNodeNotFound is returned when a node path resolves to nothing.
	ErrNodeNotFound = errors.New("node not found")

	// ErrInvalidExpression is returned for a malformed lookup expression.
	ErrInvalidExpression = errors.New("invalid expression")
)

// InitError reports a component that failed to start.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("init %s: %v", e.Component, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}
