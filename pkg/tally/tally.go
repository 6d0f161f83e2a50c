// Package tally counts the lines of the source and of every artifact a run
// produces.
package tally

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/modoterra/bootsift/pkg/core"
)

// Entry is the line count of one file. Missing is set when the file does not exist.
type Entry struct {
	Path    string
	Lines   int
	Missing bool
	Err     error
}

// Count returns the number of lines in path. A final line without a newline counts.
func Count(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return core.ScanLines(ctx, f, core.DefaultMaxLineBytes, func([]byte) error { return nil })
}

// Paths lists source followed by every route artifact and then every issues
// artifact of table, resolved under dir. An empty source is left out.
func Paths(table *core.Table, dir, source string) []string {
	var paths []string
	if source != "" {
		paths = append(paths, source)
	}
	for _, e := range table.Entries() {
		paths = append(paths, core.ArtifactPath(dir, e.Category.Output))
	}
	for _, e := range table.Entries() {
		paths = append(paths, core.ArtifactPath(dir, e.Category.Issues))
	}
	return paths
}

// CountAll counts every path. Missing files are reported, not failed.
func CountAll(ctx context.Context, paths []string) []Entry {
	entries := make([]Entry, 0, len(paths))
	for _, p := range paths {
		n, err := Count(ctx, p)
		e := Entry{Path: p, Lines: n}
		switch {
		case errors.Is(err, fs.ErrNotExist):
			e.Missing = true
		case err != nil:
			e.Err = fmt.Errorf("count %s: %w", p, err)
		}
		entries = append(entries, e)
	}
	return entries
}

// String renders the entry as one report line.
func (e Entry) String() string {
	switch {
	case e.Missing:
		return "No such file: " + e.Path
	case e.Err != nil:
		return e.Err.Error()
	default:
		return fmt.Sprintf("Total number of lines in %s : %d", e.Path, e.Lines)
	}
}
