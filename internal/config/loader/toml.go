package loader

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// File is a TOML layer read from a file system.
type File struct {
	fsys  fs.FS
	name  string
	label string
}

// NewFile reads path from the OS file system. An empty path is a layer
// that never exists.
func NewFile(path string) *File {
	if path == "" {
		return &File{}
	}
	return &File{fsys: os.DirFS(filepath.Dir(path)), name: filepath.Base(path), label: path}
}

// NewFileFS reads name from fsys.
func NewFileFS(fsys fs.FS, name string) *File {
	return &File{fsys: fsys, name: name, label: name}
}

// Path is the name used in errors.
func (f *File) Path() string {
	return f.label
}

func (f *File) Load() (map[string]any, error) {
	if f.fsys == nil {
		return nil, nil
	}
	data, err := fs.ReadFile(f.fsys, f.name)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", f.label, err)
	}
	return Decode(f.label, data)
}

// Read decodes one TOML layer from r.
func Read(r io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Decode("<reader>", data)
}

// Decode parses data as TOML. source labels any ParseError.
func Decode(source string, data []byte) (map[string]any, error) {
	var m map[string]any
	err := toml.Unmarshal(data, &m)
	if err == nil {
		return m, nil
	}
	perr := &ParseError{Path: source, Err: err}
	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		perr.Line, perr.Column = derr.Position()
	}
	return nil, perr
}

// ParseError locates malformed TOML.
type ParseError struct {
	Path         string
	Line, Column int
	Err          error
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s:%d:%d: %v", e.Path, e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
