// Package executor runs independent per-category work units on a bounded pool.
//
// A unit's failure is captured at the unit boundary: it is logged, recorded in
// the Report and never cancels or blocks sibling units.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/modoterra/bootsift/pkg/core"
	"github.com/modoterra/bootsift/pkg/rules"
)

// Stats are the line counts a unit reports.
type Stats struct {
	LinesIn  int
	LinesOut int
}

// Unit is one category's work in one stage. Units must not share mutable state.
type Unit struct {
	Category string
	Stage    rules.Stage
	Run      func(ctx context.Context) (Stats, error)
}

// Outcome is the result of one unit.
type Outcome struct {
	Category string
	Stage    rules.Stage
	Stats    Stats
	Duration time.Duration
	Err      error
}

// Observer is notified once per finished unit, possibly from several goroutines.
type Observer interface {
	Observe(o Outcome)
}

// Executor runs units with at most a fixed number in flight.
type Executor struct {
	workers   int
	logger    *slog.Logger
	observers []Observer
}

// Option configures an Executor.
type Option func(*Executor)

// WithObserver registers an observer for unit outcomes.
func WithObserver(o Observer) Option {
	return func(e *Executor) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// New creates an executor. workers <= 0 means one worker per unit.
func New(workers int, logger *slog.Logger, opts ...Option) *Executor {
	e := &Executor{workers: workers, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes every unit and waits for all of them. It never returns early
// because of a failing unit.
func (e *Executor) Run(ctx context.Context, units []Unit) Report {
	outcomes := make([]Outcome, len(units))

	limit := e.workers
	if limit <= 0 || limit > len(units) {
		limit = len(units)
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, u := range units {
		g.Go(func() error {
			outcomes[i] = e.runUnit(ctx, u)
			e.Record(outcomes[i])
			return nil
		})
	}
	_ = g.Wait()

	return Report{Outcomes: outcomes}
}

func (e *Executor) runUnit(ctx context.Context, u Unit) (out Outcome) {
	out = Outcome{Category: u.Category, Stage: u.Stage}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			buf = buf[:runtime.Stack(buf, false)]
			out.Err = core.Degraded(string(u.Stage), u.Category, "", fmt.Errorf("%w: %v", ErrUnitPanic, r))
			e.logger.Error("unit panic", "category", u.Category, "stage", u.Stage, "panic", fmt.Sprint(r), "stacktrace", string(buf))
		}
		out.Duration = time.Since(start)
	}()

	if err := ctx.Err(); err != nil {
		out.Err = core.Degraded(string(u.Stage), u.Category, "", err)
		return out
	}
	if u.Run == nil {
		out.Err = core.Degraded(string(u.Stage), u.Category, "", ErrNilUnit)
		return out
	}

	stats, err := u.Run(ctx)
	out.Stats = stats
	if err != nil {
		var ce *core.ClassifiedError
		if !errors.As(err, &ce) {
			err = core.Degraded(string(u.Stage), u.Category, "", err)
		}
		out.Err = err
	}
	return out
}

// Record logs o and hands it to the observers. Run calls it for every unit;
// callers that process categories without Run use it to report the same way.
func (e *Executor) Record(o Outcome) {
	if o.Err != nil {
		e.logger.Error("unit failed, category skipped", "category", o.Category, "stage", o.Stage, "err", o.Err)
	} else {
		e.logger.Debug("unit finished", "category", o.Category, "stage", o.Stage,
			"lines_in", o.Stats.LinesIn, "lines_out", o.Stats.LinesOut, "duration", o.Duration)
	}
	for _, obs := range e.observers {
		obs.Observe(o)
	}
}
