// Package timer measures a run's wall-clock time and persists it as the
// timing artifact.
package timer

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/modoterra/bootsift/pkg/core"
)

// FileName is the timing artifact written next to the category artifacts.
const FileName = "time_taken.txt"

// ErrTimingArtifact marks a failure to write the timing artifact.
var ErrTimingArtifact = errors.New("timing artifact")

// Clock returns the current time. Tests substitute a fake.
type Clock func() time.Time

// Timer is started once and stopped once.
type Timer struct {
	now   Clock
	start time.Time
}

// Start begins timing. A nil clock means time.Now.
func Start(clock Clock) *Timer {
	if clock == nil {
		clock = time.Now
	}
	return &Timer{now: clock, start: clock()}
}

// Stop returns the time elapsed since Start.
func (t *Timer) Stop() time.Duration {
	return t.now().Sub(t.start)
}

// Label returns the artifact prefix for a run, marking parallel runs.
func Label(parallel bool) string {
	if parallel {
		return "Elapsed time (parallel)"
	}
	return "Elapsed time"
}

// Format renders d with microsecond precision.
func Format(label string, d time.Duration) string {
	return fmt.Sprintf("%s: %.6f seconds\n", label, d.Seconds())
}

// Persist writes the timing artifact, replacing any previous one. Failure is fatal.
func Persist(path, label string, d time.Duration) error {
	if err := os.WriteFile(path, []byte(Format(label, d)), 0o644); err != nil {
		return core.Fatal("write timing", "", path, fmt.Errorf("%w: %w", ErrTimingArtifact, err))
	}
	return nil
}
