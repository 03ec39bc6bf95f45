// Package export delivers rendered documents (CV and cover-letter exports) to
// their destination: a local directory or an S3-compatible bucket.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/cv-builder/internal/types"
)

// Sink stores an exported document and returns where it ended up.
type Sink interface {
	Put(ctx context.Context, name, contentType string, data []byte) (location string, err error)
}

// CVFileName is the name an exported CV is stored under.
func CVFileName(format types.ExportFormat) string {
	return "cv." + string(format)
}

// LetterFileName is the name an exported cover letter is stored under.
func LetterFileName(format types.ExportFormat) string {
	return "cover-letter." + string(format)
}

// Error wraps a failed export write.
type Error struct {
	Sink  string
	Name  string
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("export %s to %s: %v", e.Name, e.Sink, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Dir writes documents into a local directory.
type Dir struct {
	Path string
}

// NewDir returns a sink writing to path. An empty path means the working directory.
func NewDir(path string) *Dir {
	if path == "" {
		path = "."
	}
	return &Dir{Path: path}
}

// Put implements Sink. An existing file with the same name is replaced.
func (d *Dir) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", &Error{Sink: d.Path, Name: name, Cause: errors.New("invalid file name")}
	}
	if err := os.MkdirAll(d.Path, 0o755); err != nil {
		return "", &Error{Sink: d.Path, Name: name, Cause: err}
	}
	target := filepath.Join(d.Path, name)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", &Error{Sink: d.Path, Name: name, Cause: err}
	}
	return target, nil
}
