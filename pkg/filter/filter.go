// Package filter implements the issue pass: each category rescans its own
// route artifact and keeps the lines that match any of its filter rules.
package filter

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/modoterra/bootsift/pkg/core"
	"github.com/modoterra/bootsift/pkg/executor"
	"github.com/modoterra/bootsift/pkg/rules"
)

// Filter runs the issue pass for a compiled table.
type Filter struct {
	table   *core.Table
	maxLine int
	workers int
	exec    *executor.Executor
	logger  *slog.Logger
}

// Option configures a Filter.
type Option func(*Filter)

func WithMaxLineBytes(n int) Option {
	return func(f *Filter) { f.maxLine = n }
}

func WithExecutor(e *executor.Executor) Option {
	return func(f *Filter) { f.exec = e }
}

// WithWorkers bounds how many units run at once. Ignored with WithExecutor.
func WithWorkers(n int) Option {
	return func(f *Filter) { f.workers = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Filter) { f.logger = l }
}

// New creates a filter with one worker per category unless an executor is given.
func New(table *core.Table, opts ...Option) *Filter {
	f := &Filter{
		table:   table,
		maxLine: core.DefaultMaxLineBytes,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.exec == nil {
		f.exec = executor.New(f.workers, f.logger)
	}
	return f
}

// Filter reads every category's route artifact from inDir and writes its
// issues artifact into outDir. A category whose route artifact is missing
// fails alone.
func (f *Filter) Filter(ctx context.Context, inDir, outDir string) executor.Report {
	f.logger.Info("filter pass", "in", inDir, "out", outDir, "categories", f.table.Len())

	entries := f.table.Entries()
	units := make([]executor.Unit, 0, len(entries))
	for _, e := range entries {
		units = append(units, f.unit(e, inDir, outDir))
	}
	return f.exec.Run(ctx, units)
}

func (f *Filter) unit(e core.Entry, inDir, outDir string) executor.Unit {
	name := e.Category.Name
	return executor.Unit{
		Category: name,
		Stage:    rules.StageFilter,
		Run: func(ctx context.Context) (executor.Stats, error) {
			inPath := core.ArtifactPath(inDir, e.Category.Output)
			in, err := os.Open(inPath)
			if err != nil {
				return executor.Stats{}, core.Degraded("open route artifact", name, inPath, err)
			}
			defer in.Close()

			outPath := core.ArtifactPath(outDir, e.Category.Issues)
			out, err := core.CreateLineWriter(outPath)
			if err != nil {
				return executor.Stats{}, core.Degraded("create issues", name, outPath, err)
			}

			var folder rules.Folder
			fold := e.Filter.NeedsFold()
			n, err := core.ScanLines(ctx, in, f.maxLine, func(line []byte) error {
				// First matching rule wins; a line is written at most once.
				if _, ok := e.Filter.Match(folder.Line(line, fold)); ok {
					return out.WriteLine(line)
				}
				return nil
			})
			stats := executor.Stats{LinesIn: n, LinesOut: out.Lines()}
			if cerr := out.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return stats, core.Degraded("filter", name, outPath, err)
			}
			return stats, nil
		},
	}
}
