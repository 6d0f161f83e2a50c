package core

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

const defaultBufSize = 64 * 1024

// LineWriter writes newline-terminated lines to an artifact it exclusively owns.
// Not safe for concurrent use; each work unit holds its own.
type LineWriter struct {
	f     *os.File
	w     *bufio.Writer
	path  string
	lines int
}

// CreateLineWriter creates or truncates the artifact at path.
func CreateLineWriter(path string) (*LineWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &LineWriter{
		f:    f,
		w:    bufio.NewWriterSize(f, defaultBufSize),
		path: path,
	}, nil
}

// WriteLine appends line followed by '\n'.
func (lw *LineWriter) WriteLine(line []byte) error {
	if _, err := lw.w.Write(line); err != nil {
		return fmt.Errorf("write %s: %w", lw.path, err)
	}
	if err := lw.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write %s: %w", lw.path, err)
	}
	lw.lines++
	return nil
}

// Lines returns the number of lines written so far.
func (lw *LineWriter) Lines() int { return lw.lines }

// Path returns the artifact path.
func (lw *LineWriter) Path() string { return lw.path }

// Close flushes buffered lines and closes the file. The file is closed even
// when the flush fails.
func (lw *LineWriter) Close() error {
	if err := lw.w.Flush(); err != nil {
		lw.f.Close()
		return fmt.Errorf("flush %s: %w", lw.path, err)
	}
	if err := lw.f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", lw.path, err)
	}
	return nil
}

// ArtifactPath joins an artifact name onto dir unless the name is already absolute.
func ArtifactPath(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}
