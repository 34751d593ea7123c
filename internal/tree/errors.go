package tree

import (
	"errors"
	"fmt"
)

// ErrInvalidSeed is returned when a seed document describes an impossible tree.
var ErrInvalidSeed = errors.New("invalid tree seed")

// ParseError reports a seed document that is not valid TOML.
type ParseError struct {
	// Path is the file or "<reader>".
	Path string
	// Line is the 1-based line, if known.
	Line int
	// Column is the 1-based column, if known.
	Column int
	// Err is the underlying decode error.
	Err error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %v", e.Path, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("parse error in %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SeedError locates a rule violation inside a seed document.
type SeedError struct {
	// Path is the slash-joined chain of seed names leading to the problem.
	Path    string
	Message string
}

func (e *SeedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Is reports whether target is ErrInvalidSeed.
func (e *SeedError) Is(target error) bool {
	return target == ErrInvalidSeed
}
