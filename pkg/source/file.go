// Package source provides the read-only log inputs the pipeline scans.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
)

// File is a log file on disk. Every Open returns an independent reader, so
// concurrent workers never share a read cursor.
type File struct {
	path string
}

// NewFile returns a source for the file at path.
func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Name() string { return f.path }

// Open opens the file from the start.
func (f *File) Open(_ context.Context) (io.ReadCloser, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.path, err)
	}
	return fh, nil
}
