package core

import (
	"context"
	"fmt"
	"io"
)

// Source is a read-only log that any number of consumers may open
// independently. Each Open returns a fresh reader positioned at the start.
type Source interface {
	// Name identifies the source in diagnostics (a path, "journal", ...).
	Name() string

	// Open returns a new reader over the whole log.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Preflight opens and closes src once so an inaccessible log aborts the run
// before any artifact is created.
func Preflight(ctx context.Context, src Source) error {
	rc, err := src.Open(ctx)
	if err != nil {
		return Fatal("open source", "", src.Name(), fmt.Errorf("%w: %w", ErrSourceUnavailable, err))
	}
	return rc.Close()
}
