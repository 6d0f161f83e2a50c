// Package pipeline wires the two passes together: preflight, route pass,
// stage barrier, filter pass, then the timing artifact and optional metrics.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/modoterra/bootsift/pkg/core"
	"github.com/modoterra/bootsift/pkg/executor"
	"github.com/modoterra/bootsift/pkg/filter"
	"github.com/modoterra/bootsift/pkg/logging"
	"github.com/modoterra/bootsift/pkg/metrics"
	"github.com/modoterra/bootsift/pkg/router"
	"github.com/modoterra/bootsift/pkg/timer"
)

// Options configures a Pipeline.
type Options struct {
	Categories   []core.Category // defaults to the built-in tables
	OutDir       string
	Strategy     router.Strategy
	Workers      int
	MaxLineBytes int
	MetricsFile  string // Prometheus textfile, skipped when empty
	RunID        string
	Logger       *slog.Logger
	Clock        timer.Clock
}

// Result summarises one invocation. Route or Filter is empty when that pass
// did not run.
type Result struct {
	RunID      string
	Route      executor.Report
	Filter     executor.Report
	Elapsed    time.Duration
	TimingFile string
}

// Degraded reports whether any category failed in either pass.
func (r Result) Degraded() bool {
	return r.Route.Degraded() || r.Filter.Degraded()
}

// Pipeline runs the passes over a compiled category table.
type Pipeline struct {
	opts    Options
	table   *core.Table
	logger  *slog.Logger
	metrics *metrics.Metrics
	exec    *executor.Executor
}

// New compiles the category table. Any invalid rule is a fatal error.
func New(opts Options) (*Pipeline, error) {
	if opts.Categories == nil {
		opts.Categories = core.DefaultCategories()
	}
	if opts.OutDir == "" {
		opts.OutDir = "."
	}
	if opts.Strategy == "" {
		opts.Strategy = router.Parallel
	}
	if opts.MaxLineBytes <= 0 {
		opts.MaxLineBytes = core.DefaultMaxLineBytes
	}
	if opts.RunID == "" {
		opts.RunID = logging.NewRunID()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	table, err := core.Compile(opts.Categories)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{opts: opts, table: table, logger: opts.Logger}
	var execOpts []executor.Option
	if opts.MetricsFile != "" {
		p.metrics = metrics.New()
		execOpts = append(execOpts, executor.WithObserver(p.metrics))
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = table.Len()
	}
	p.exec = executor.New(workers, opts.Logger, execOpts...)
	return p, nil
}

// Table returns the compiled category table.
func (p *Pipeline) Table() *core.Table { return p.table }

// Run executes the route pass over src and then the filter pass over its
// artifacts. Only fatal errors are returned; category failures are in Result.
func (p *Pipeline) Run(ctx context.Context, src core.Source) (Result, error) {
	res := Result{RunID: p.opts.RunID}
	if err := p.prepare(ctx, src); err != nil {
		return res, err
	}

	t := timer.Start(p.opts.Clock)
	res.Route = p.router().Route(ctx, src, p.opts.OutDir)
	// Stage barrier: the filter pass reads artifacts the route pass has closed.
	res.Filter = p.filter().Filter(ctx, p.opts.OutDir, p.opts.OutDir)
	res.Elapsed = t.Stop()

	return p.finish(res, p.opts.Strategy == router.Parallel)
}

// Route executes only the route pass.
func (p *Pipeline) Route(ctx context.Context, src core.Source) (Result, error) {
	res := Result{RunID: p.opts.RunID}
	if err := p.prepare(ctx, src); err != nil {
		return res, err
	}

	t := timer.Start(p.opts.Clock)
	res.Route = p.router().Route(ctx, src, p.opts.OutDir)
	res.Elapsed = t.Stop()

	return p.finish(res, p.opts.Strategy == router.Parallel)
}

// Filter executes only the filter pass, reading route artifacts from inDir.
func (p *Pipeline) Filter(ctx context.Context, inDir string) (Result, error) {
	res := Result{RunID: p.opts.RunID}
	if err := p.mkdirOut(); err != nil {
		return res, err
	}

	t := timer.Start(p.opts.Clock)
	res.Filter = p.filter().Filter(ctx, inDir, p.opts.OutDir)
	res.Elapsed = t.Stop()

	return p.finish(res, true)
}

func (p *Pipeline) router() *router.Router {
	return router.New(p.table,
		router.WithStrategy(p.opts.Strategy),
		router.WithMaxLineBytes(p.opts.MaxLineBytes),
		router.WithExecutor(p.exec),
		router.WithLogger(p.logger),
	)
}

func (p *Pipeline) filter() *filter.Filter {
	return filter.New(p.table,
		filter.WithMaxLineBytes(p.opts.MaxLineBytes),
		filter.WithExecutor(p.exec),
		filter.WithLogger(p.logger),
	)
}

// prepare creates the output directory and checks the source before any
// artifact is touched.
func (p *Pipeline) prepare(ctx context.Context, src core.Source) error {
	if err := p.mkdirOut(); err != nil {
		return err
	}
	if err := core.Preflight(ctx, src); err != nil {
		p.logger.Error("source unavailable", "source", src.Name(), "err", err)
		return err
	}
	return nil
}

func (p *Pipeline) mkdirOut() error {
	if err := os.MkdirAll(p.opts.OutDir, 0o755); err != nil {
		return core.Fatal("create output dir", "", p.opts.OutDir, err)
	}
	return nil
}

// finish writes the metrics textfile and then the timing artifact, which is
// always the last output of a run.
func (p *Pipeline) finish(res Result, parallel bool) (Result, error) {
	failed := len(res.Route.Failed()) + len(res.Filter.Failed())
	p.logger.Info("run finished",
		"elapsed", res.Elapsed,
		"categories", p.table.Len(),
		"failed_units", failed,
	)

	if p.metrics != nil {
		p.metrics.RecordRun(res.RunID, string(p.opts.Strategy), linesRead(res.Route), res.Elapsed)
		if err := p.metrics.WriteTextfile(p.opts.MetricsFile); err != nil {
			p.logger.Warn("metrics not written", "err", err)
		}
	}

	res.TimingFile = filepath.Join(p.opts.OutDir, timer.FileName)
	if err := timer.Persist(res.TimingFile, timer.Label(parallel), res.Elapsed); err != nil {
		p.logger.Error("timing artifact not written", "path", res.TimingFile, "err", err)
		return res, err
	}
	return res, nil
}

// linesRead is the source line count seen by the route pass. Every healthy
// route unit reads the whole source, so the largest count is the answer.
func linesRead(r executor.Report) int {
	n := 0
	for _, o := range r.Outcomes {
		n = max(n, o.Stats.LinesIn)
	}
	return n
}
