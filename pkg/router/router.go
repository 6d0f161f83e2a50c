// Package router implements the route pass: it copies every source line into
// the artifact of each category whose route rules match it.
//
// Two strategies produce byte-identical artifacts. Sequential reads the source
// once and fans each line out to all categories. Parallel runs one unit per
// category; each reopens the source and applies only its own rules.
package router

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/modoterra/bootsift/pkg/core"
	"github.com/modoterra/bootsift/pkg/executor"
	"github.com/modoterra/bootsift/pkg/rules"
)

// Strategy selects how the route pass is scheduled.
type Strategy string

const (
	Sequential Strategy = "sequential"
	Parallel   Strategy = "parallel"
)

// ParseStrategy converts a flag or env value to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case Sequential, Parallel:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q: must be %q or %q", s, Sequential, Parallel)
	}
}

// Router runs the route pass for a compiled table.
type Router struct {
	table    *core.Table
	strategy Strategy
	maxLine  int
	workers  int
	exec     *executor.Executor
	logger   *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

func WithStrategy(s Strategy) Option {
	return func(r *Router) { r.strategy = s }
}

// WithMaxLineBytes sets the truncation limit for input lines.
func WithMaxLineBytes(n int) Option {
	return func(r *Router) { r.maxLine = n }
}

// WithExecutor sets the executor for the parallel strategy and for outcome reporting.
func WithExecutor(e *executor.Executor) Option {
	return func(r *Router) { r.exec = e }
}

// WithWorkers bounds how many units run at once. Ignored with WithExecutor.
func WithWorkers(n int) Option {
	return func(r *Router) { r.workers = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// New creates a router. Defaults: parallel strategy, 8192-byte lines, one worker per category.
func New(table *core.Table, opts ...Option) *Router {
	r := &Router{
		table:    table,
		strategy: Parallel,
		maxLine:  core.DefaultMaxLineBytes,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.exec == nil {
		r.exec = executor.New(r.workers, r.logger)
	}
	return r
}

// Strategy returns the configured strategy.
func (r *Router) Strategy() Strategy { return r.strategy }

// Route writes one artifact per category into outDir. Per-category failures
// are reported in the returned Report and never stop the other categories.
func (r *Router) Route(ctx context.Context, src core.Source, outDir string) executor.Report {
	r.logger.Info("route pass", "strategy", r.strategy, "source", src.Name(), "categories", r.table.Len())
	if r.strategy == Sequential {
		return r.routeSequential(ctx, src, outDir)
	}
	return r.routeParallel(ctx, src, outDir)
}

func (r *Router) routeParallel(ctx context.Context, src core.Source, outDir string) executor.Report {
	entries := r.table.Entries()
	units := make([]executor.Unit, 0, len(entries))
	for _, e := range entries {
		units = append(units, r.unit(e, src, outDir))
	}
	return r.exec.Run(ctx, units)
}

// unit scans the whole source with a single category's rules.
func (r *Router) unit(e core.Entry, src core.Source, outDir string) executor.Unit {
	name := e.Category.Name
	return executor.Unit{
		Category: name,
		Stage:    rules.StageRoute,
		Run: func(ctx context.Context) (executor.Stats, error) {
			in, err := src.Open(ctx)
			if err != nil {
				return executor.Stats{}, core.Degraded("open source", name, src.Name(), err)
			}
			defer in.Close()

			path := core.ArtifactPath(outDir, e.Category.Output)
			out, err := core.CreateLineWriter(path)
			if err != nil {
				return executor.Stats{}, core.Degraded("create output", name, path, err)
			}

			var f rules.Folder
			fold := e.Route.NeedsFold()
			n, err := core.ScanLines(ctx, in, r.maxLine, func(line []byte) error {
				if _, ok := e.Route.Match(f.Line(line, fold)); ok {
					return out.WriteLine(line)
				}
				return nil
			})
			stats := executor.Stats{LinesIn: n, LinesOut: out.Lines()}
			if cerr := out.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return stats, core.Degraded("route", name, path, err)
			}
			return stats, nil
		},
	}
}

func (r *Router) routeSequential(ctx context.Context, src core.Source, outDir string) executor.Report {
	start := time.Now()
	entries := r.table.Entries()
	outcomes := make([]executor.Outcome, len(entries))
	writers := make([]*core.LineWriter, len(entries))

	fold := false
	live := 0
	for i, e := range entries {
		outcomes[i] = executor.Outcome{Category: e.Category.Name, Stage: rules.StageRoute}
		path := core.ArtifactPath(outDir, e.Category.Output)
		w, err := core.CreateLineWriter(path)
		if err != nil {
			outcomes[i].Err = core.Degraded("create output", e.Category.Name, path, err)
			continue
		}
		writers[i] = w
		fold = fold || e.Route.NeedsFold()
		live++
	}

	var (
		n       int
		scanErr error
	)
	if live > 0 {
		n, scanErr = r.scanOnce(ctx, src, fold, func(l rules.Line) {
			for i, e := range entries {
				w := writers[i]
				if w == nil || outcomes[i].Err != nil {
					continue
				}
				if _, ok := e.Route.Match(l); !ok {
					continue
				}
				if err := w.WriteLine(l.Raw); err != nil {
					outcomes[i].Err = core.Degraded("write output", e.Category.Name, w.Path(), err)
				}
			}
		})
	}

	elapsed := time.Since(start)
	for i, w := range writers {
		if w == nil {
			continue
		}
		name := entries[i].Category.Name
		outcomes[i].Stats = executor.Stats{LinesIn: n, LinesOut: w.Lines()}
		outcomes[i].Duration = elapsed
		if err := w.Close(); err != nil && outcomes[i].Err == nil {
			outcomes[i].Err = core.Degraded("close output", name, w.Path(), err)
		}
		if scanErr != nil && outcomes[i].Err == nil {
			outcomes[i].Err = core.Degraded("route", name, src.Name(), scanErr)
		}
	}

	for _, o := range outcomes {
		r.exec.Record(o)
	}
	return executor.Report{Outcomes: outcomes}
}

// scanOnce reads src a single time, folding each line at most once.
func (r *Router) scanOnce(ctx context.Context, src core.Source, fold bool, fn func(rules.Line)) (int, error) {
	in, err := src.Open(ctx)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	var f rules.Folder
	return core.ScanLines(ctx, in, r.maxLine, func(line []byte) error {
		fn(f.Line(line, fold))
		return nil
	})
}
