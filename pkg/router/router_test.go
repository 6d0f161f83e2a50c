package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modoterra/bootsift/pkg/core"
	"github.com/modoterra/bootsift/pkg/executor"
	"github.com/modoterra/bootsift/pkg/rules"
)

const bootLog = `systemd[1]: Startup finished in 4.2s (kernel) + 9.1s (userspace) = 13.3s.
systemd[1]: Failed to start nginx.service - A high performance web server.
kernel: usb 1-1: device descriptor read/64, error -71
sudo: authentication failure for user root
kernel panic - not syncing: Fatal exception
EXT4-fs (sda1): mounted filesystem with ordered data mode
NetworkManager[700]: <WARN> dhcp4 (eth0): request timed out
kernel: usb 1-2: new high-speed USB device number 3`

type memSource struct {
	data  string
	err   error
	opens atomic.Int32
}

func (m *memSource) Name() string { return "mem" }

func (m *memSource) Open(context.Context) (io.ReadCloser, error) {
	m.opens.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return io.NopCloser(strings.NewReader(m.data)), nil
}

func defaultTable(t *testing.T) *core.Table {
	t.Helper()
	table, err := core.Compile(core.DefaultCategories())
	require.NoError(t, err)
	return table
}

func readArtifact(t *testing.T, dir, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(b)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("sequential")
	require.NoError(t, err)
	assert.Equal(t, Sequential, s)

	s, err = ParseStrategy("parallel")
	require.NoError(t, err)
	assert.Equal(t, Parallel, s)

	_, err = ParseStrategy("fast")
	assert.Error(t, err)
}

func TestStrategiesProduceIdenticalArtifacts(t *testing.T) {
	table := defaultTable(t)
	seqDir, parDir := t.TempDir(), t.TempDir()

	seq := New(table, WithStrategy(Sequential)).Route(context.Background(), &memSource{data: bootLog}, seqDir)
	par := New(table, WithStrategy(Parallel)).Route(context.Background(), &memSource{data: bootLog}, parDir)
	require.False(t, seq.Degraded())
	require.False(t, par.Degraded())

	for _, e := range table.Entries() {
		assert.Equal(t,
			readArtifact(t, seqDir, e.Category.Output),
			readArtifact(t, parDir, e.Category.Output),
			e.Category.Name)

		so, _ := seq.Lookup(e.Category.Name)
		po, _ := par.Lookup(e.Category.Name)
		assert.Equal(t, so.Stats, po.Stats, e.Category.Name)
	}
}

func TestRouteFansOutInSourceOrder(t *testing.T) {
	for _, s := range []Strategy{Sequential, Parallel} {
		t.Run(string(s), func(t *testing.T) {
			dir := t.TempDir()
			report := New(defaultTable(t), WithStrategy(s)).Route(context.Background(), &memSource{data: bootLog}, dir)
			require.NoError(t, report.Err())

			assert.Equal(t,
				"kernel: usb 1-1: device descriptor read/64, error -71\n"+
					"EXT4-fs (sda1): mounted filesystem with ordered data mode\n"+
					"kernel: usb 1-2: new high-speed USB device number 3\n",
				readArtifact(t, dir, "hardware_driver.log"))
			assert.Equal(t,
				"kernel: usb 1-1: device descriptor read/64, error -71\n",
				readArtifact(t, dir, "critical_errors.log"))
			assert.Equal(t,
				"sudo: authentication failure for user root\n",
				readArtifact(t, dir, "authentication.log"))
			assert.Equal(t,
				"NetworkManager[700]: <WARN> dhcp4 (eth0): request timed out\n",
				readArtifact(t, dir, "warnings.log"), "route rules ignore ASCII case")

			o, ok := report.Lookup(rules.HardwareDriver)
			require.True(t, ok)
			assert.Equal(t, executor.Stats{LinesIn: 8, LinesOut: 3}, o.Stats)
		})
	}
}

func TestRouteSkipsUnmatchedLines(t *testing.T) {
	dir := t.TempDir()
	report := New(defaultTable(t)).Route(context.Background(), &memSource{data: bootLog}, dir)
	require.NoError(t, report.Err())

	for _, e := range defaultTable(t).Entries() {
		assert.NotContains(t, readArtifact(t, dir, e.Category.Output), "kernel panic", e.Category.Name)
	}
}

func TestParallelOpensSourceOncePerCategory(t *testing.T) {
	table := defaultTable(t)

	src := &memSource{data: bootLog}
	New(table, WithStrategy(Parallel)).Route(context.Background(), src, t.TempDir())
	assert.EqualValues(t, table.Len(), src.opens.Load())

	src = &memSource{data: bootLog}
	New(table, WithStrategy(Sequential)).Route(context.Background(), src, t.TempDir())
	assert.EqualValues(t, 1, src.opens.Load())
}

func TestRouteTerminatesEveryLine(t *testing.T) {
	table := core.MustCompile([]core.Category{{
		Name:   "errors",
		Route:  []rules.Rule{rules.Substring("error")},
		Filter: []rules.Rule{rules.Regex("x")},
		Output: "errors.log",
		Issues: "errors_issues.log",
	}})

	for _, s := range []Strategy{Sequential, Parallel} {
		dir := t.TempDir()
		report := New(table, WithStrategy(s)).Route(context.Background(), &memSource{data: "ok\r\nan ERROR\r\nlast error"}, dir)
		require.NoError(t, report.Err())
		assert.Equal(t, "an ERROR\r\nlast error\n", readArtifact(t, dir, "errors.log"), s)
	}
}

func TestRouteTruncatesLongLines(t *testing.T) {
	table := core.MustCompile([]core.Category{{
		Name:   "errors",
		Route:  []rules.Rule{rules.Substring("error")},
		Filter: []rules.Rule{rules.Regex("x")},
		Output: "errors.log",
		Issues: "errors_issues.log",
	}})
	data := "error " + strings.Repeat("x", 40) + "\nerror short\n"

	for _, s := range []Strategy{Sequential, Parallel} {
		dir := t.TempDir()
		report := New(table, WithStrategy(s), WithMaxLineBytes(16)).Route(context.Background(), &memSource{data: data}, dir)
		require.NoError(t, report.Err())
		assert.Equal(t, "error xxxxxxxxxx\nerror short\n", readArtifact(t, dir, "errors.log"), s)
	}
}

func TestRouteDegradesOnlyFailingCategory(t *testing.T) {
	for _, s := range []Strategy{Sequential, Parallel} {
		t.Run(string(s), func(t *testing.T) {
			dir := t.TempDir()
			// A directory where the artifact should go makes its creation fail.
			require.NoError(t, os.Mkdir(filepath.Join(dir, "warnings.log"), 0o755))

			report := New(defaultTable(t), WithStrategy(s)).Route(context.Background(), &memSource{data: bootLog}, dir)

			require.Len(t, report.Failed(), 1)
			failed := report.Failed()[0]
			assert.Equal(t, rules.Warnings, failed.Category)
			assert.False(t, core.IsFatal(failed.Err))

			assert.Contains(t, readArtifact(t, dir, "authentication.log"), "sudo")
			assert.Contains(t, readArtifact(t, dir, "failed_services.log"), "Failed to start")
		})
	}
}

func TestRouteSourceFailureDegradesEveryCategory(t *testing.T) {
	boom := errors.New("boom")
	for _, s := range []Strategy{Sequential, Parallel} {
		report := New(defaultTable(t), WithStrategy(s)).Route(context.Background(), &memSource{err: boom}, t.TempDir())

		assert.Len(t, report.Failed(), 8, s)
		assert.ErrorIs(t, report.Err(), boom)
		assert.False(t, core.IsFatal(report.Outcomes[0].Err))
	}
}

type counter struct{ n atomic.Int32 }

func (c *counter) Observe(executor.Outcome) { c.n.Add(1) }

func TestSequentialReportsThroughObservers(t *testing.T) {
	c := &counter{}
	ex := executor.New(0, slog.New(slog.NewTextHandler(io.Discard, nil)), executor.WithObserver(c))

	New(defaultTable(t), WithStrategy(Sequential), WithExecutor(ex)).
		Route(context.Background(), &memSource{data: bootLog}, t.TempDir())
	assert.EqualValues(t, 8, c.n.Load())
}
