package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
)

// defaultJournalArgs dumps the current boot in the classic syslog layout.
var defaultJournalArgs = []string{"journalctl", "-b", "--no-pager", "-o", "short-precise"}

// Journal reads the current boot's journal. journalctl output can only be
// consumed once, so the first Open spools it into a file and every Open
// (including the first) reads that file.
type Journal struct {
	spool  string
	argv   []string
	logger *slog.Logger

	once sync.Once
	err  error
}

// JournalOption configures a Journal.
type JournalOption func(*Journal)

// WithCommand replaces the journalctl invocation.
func WithCommand(argv ...string) JournalOption {
	return func(j *Journal) { j.argv = argv }
}

// NewJournal returns a journal source that spools into spoolPath.
func NewJournal(spoolPath string, logger *slog.Logger, opts ...JournalOption) *Journal {
	j := &Journal{
		spool:  spoolPath,
		argv:   defaultJournalArgs,
		logger: logger,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func (j *Journal) Name() string { return "journal:" + j.spool }

// Open spools the journal on first use and returns a reader over the spool.
func (j *Journal) Open(ctx context.Context) (io.ReadCloser, error) {
	j.once.Do(func() { j.err = j.dump(ctx) })
	if j.err != nil {
		return nil, j.err
	}
	return NewFile(j.spool).Open(ctx)
}

func (j *Journal) dump(ctx context.Context) error {
	if len(j.argv) == 0 {
		return fmt.Errorf("journal: empty command")
	}

	f, err := os.OpenFile(j.spool, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("journal spool: %w", err)
	}

	cmd := exec.CommandContext(ctx, j.argv[0], j.argv[1:]...)
	cmd.Stdout = f
	cmd.Stderr = io.Discard
	runErr := cmd.Run()
	closeErr := f.Close()
	if runErr != nil {
		return fmt.Errorf("%s: %w", j.argv[0], runErr)
	}
	if closeErr != nil {
		return fmt.Errorf("journal spool: %w", closeErr)
	}

	if info, err := os.Stat(j.spool); err == nil {
		j.logger.Info("spooled journal", "path", j.spool, "bytes", info.Size())
	}
	return nil
}
