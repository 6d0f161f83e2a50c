package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/modoterra/bootsift/internal/buildinfo"
	"github.com/modoterra/bootsift/pkg/config"
	"github.com/modoterra/bootsift/pkg/core"
	"github.com/modoterra/bootsift/pkg/logging"
	"github.com/modoterra/bootsift/pkg/manifest"
	"github.com/modoterra/bootsift/pkg/manifest/presets"
	"github.com/modoterra/bootsift/pkg/pipeline"
	"github.com/modoterra/bootsift/pkg/router"
	"github.com/modoterra/bootsift/pkg/service"
	"github.com/modoterra/bootsift/pkg/source"
	"github.com/modoterra/bootsift/pkg/tally"
)

const (
	exitOK       = 0
	exitFatal    = 1
	exitDegraded = 3
)

// errDegraded is returned under --strict when any category was skipped.
var errDegraded = errors.New("run degraded")

// errInvalidManifest is returned by manifest validate.
var errInvalidManifest = errors.New("invalid manifest")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errDegraded):
		return exitDegraded
	default:
		return exitFatal
	}
}

// app carries the resolved settings shared by the subcommands.
type app struct {
	cfg        config.Config
	flags      config.Config
	envFile    string
	journal    bool
	journalLog bool
	inDir      string

	logger *slog.Logger
	runID  string
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "bootsift",
		Short:         "Classify boot logs into per-category files and extract issues",
		Long:          "bootsift routes every boot log line into category files by keyword, then filters each category file for known failure patterns.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file read before the environment")
	pf.StringVar(&a.flags.OutDir, "out-dir", ".", "directory for artifacts")
	pf.StringVar(&a.flags.Manifest, "manifest", "", "path to bootsift.yaml (default: built-in categories)")
	pf.IntVar(&a.flags.Workers, "workers", 0, "units run at once (0 = one per category)")
	pf.IntVar(&a.flags.MaxLineBytes, "max-line-bytes", core.DefaultMaxLineBytes, "longer lines are truncated")
	pf.StringVar(&a.flags.LogLevel, "log-level", "info", "debug, info, warn or error")
	pf.StringVar(&a.flags.LogFormat, "log-format", "text", "text or json")
	pf.StringVar(&a.flags.MetricsFile, "metrics-file", "", "write Prometheus textfile metrics here")
	pf.BoolVar(&a.flags.Strict, "strict", false, "exit 3 when any category was skipped")
	pf.BoolVar(&a.journalLog, "journal-log", false, "mirror diagnostics to the systemd journal")

	root.AddCommand(
		newRunCmd(a),
		newRouteCmd(a),
		newFilterCmd(a),
		newCountCmd(a),
		newManifestCmd(a),
		newServiceCmd(a),
		newVersionCmd(a),
	)
	return root
}

// setup loads the environment, lets changed flags override it and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}

	f := cmd.Flags()
	if f.Changed("input") {
		cfg.Input = a.flags.Input
	}
	if f.Changed("out-dir") {
		cfg.OutDir = a.flags.OutDir
	}
	if f.Changed("manifest") {
		cfg.Manifest = a.flags.Manifest
	}
	if f.Changed("mode") {
		cfg.Mode = a.flags.Mode
	}
	if f.Changed("workers") {
		cfg.Workers = a.flags.Workers
	}
	if f.Changed("max-line-bytes") {
		cfg.MaxLineBytes = a.flags.MaxLineBytes
	}
	if f.Changed("log-level") {
		cfg.LogLevel = a.flags.LogLevel
	}
	if f.Changed("log-format") {
		cfg.LogFormat = a.flags.LogFormat
	}
	if f.Changed("metrics-file") {
		cfg.MetricsFile = a.flags.MetricsFile
	}
	if f.Changed("strict") {
		cfg.Strict = a.flags.Strict
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.runID = logging.NewRunID()
	a.logger = logging.New(logging.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Writer:  a.stderr,
		RunID:   a.runID,
		Journal: a.journalLog,
	})
	return nil
}

// outDirExplicit reports whether the output directory came from a flag or the environment.
func (a *app) outDirExplicit(cmd *cobra.Command) bool {
	if cmd.Flags().Changed("out-dir") {
		return true
	}
	_, ok := os.LookupEnv("BOOTSIFT_OUT_DIR")
	return ok
}

// categories returns the manifest's categories, or the built-in ones.
func (a *app) categories(cmd *cobra.Command) ([]core.Category, error) {
	path := a.cfg.Manifest
	if path == "" {
		return core.DefaultCategories(), nil
	}

	m, err := manifest.Load(path)
	if err != nil {
		return nil, core.Fatal("load manifest", "", path, err)
	}
	if m.OutDir != "" && !a.outDirExplicit(cmd) {
		a.cfg.OutDir = m.OutDir
	}
	if errs := manifest.Validate(m, a.cfg.OutDir); len(errs) > 0 {
		for _, e := range errs {
			a.logger.Error("manifest validation", "path", path, "err", e)
		}
		return nil, core.Fatal("validate manifest", "", path, fmt.Errorf("%w: %w", errInvalidManifest, errors.Join(errs...)))
	}
	a.logger.Info("manifest loaded", "path", path, "categories", len(m.Categories))
	return m.ToCategories(a.cfg.OutDir), nil
}

func (a *app) pipeline(cmd *cobra.Command) (*pipeline.Pipeline, error) {
	cats, err := a.categories(cmd)
	if err != nil {
		return nil, err
	}
	strategy, err := router.ParseStrategy(a.cfg.Mode)
	if err != nil {
		return nil, err
	}
	return pipeline.New(pipeline.Options{
		Categories:   cats,
		OutDir:       a.cfg.OutDir,
		Strategy:     strategy,
		Workers:      a.cfg.Workers,
		MaxLineBytes: a.cfg.MaxLineBytes,
		MetricsFile:  a.cfg.MetricsFile,
		RunID:        a.runID,
		Logger:       a.logger,
	})
}

func (a *app) source() core.Source {
	if a.journal {
		return source.NewJournal(filepath.Join(a.cfg.OutDir, core.JournalSpool), a.logger)
	}
	return source.NewFile(a.cfg.Input)
}

// finish prints the summary and applies the strict policy.
func (a *app) finish(p *pipeline.Pipeline, res pipeline.Result) error {
	renderSummary(a.stdout, p.Table(), res)
	if res.Degraded() && a.cfg.Strict {
		n := len(res.Route.Failed()) + len(res.Filter.Failed())
		return fmt.Errorf("%w: %d unit(s) skipped", errDegraded, n)
	}
	return nil
}

func addSourceFlags(cmd *cobra.Command, a *app) {
	cmd.Flags().StringVarP(&a.flags.Input, "input", "i", "boot.log", "boot log to analyse")
	cmd.Flags().StringVar(&a.flags.Mode, "mode", "parallel", "route strategy: parallel or sequential")
	cmd.Flags().BoolVar(&a.journal, "journal", false, "read the current boot from journalctl instead of --input")
}

// --- Run ---

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Route the boot log into categories, then extract issues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.pipeline(cmd)
			if err != nil {
				return err
			}
			res, err := p.Run(cmd.Context(), a.source())
			if err != nil {
				return err
			}
			return a.finish(p, res)
		},
	}
	addSourceFlags(cmd, a)
	return cmd
}

// --- Route ---

func newRouteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Only route the boot log into category files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.pipeline(cmd)
			if err != nil {
				return err
			}
			res, err := p.Route(cmd.Context(), a.source())
			if err != nil {
				return err
			}
			return a.finish(p, res)
		},
	}
	addSourceFlags(cmd, a)
	return cmd
}

// --- Filter ---

func newFilterCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Only extract issues from existing category files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.pipeline(cmd)
			if err != nil {
				return err
			}
			in := a.inDir
			if in == "" {
				in = a.cfg.OutDir
			}
			res, err := p.Filter(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.finish(p, res)
		},
	}
	cmd.Flags().StringVar(&a.inDir, "in", "", "directory holding the category files (default: --out-dir)")
	return cmd
}

// --- Count ---

func newCountCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count [dir]",
		Short: "Count lines of the boot log and of every artifact",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := a.categories(cmd)
			if err != nil {
				return err
			}
			table, err := core.Compile(cats)
			if err != nil {
				return err
			}
			dir := a.cfg.OutDir
			if len(args) > 0 {
				dir = args[0]
			}
			entries := tally.CountAll(cmd.Context(), tally.Paths(table, dir, a.cfg.Input))
			renderCounts(a.stdout, entries)
			for _, e := range entries {
				if e.Err != nil {
					return e.Err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&a.flags.Input, "input", "i", "boot.log", "boot log to count")
	return cmd
}

// --- Manifest ---

func newManifestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Manage bootsift.yaml manifest",
	}

	var output string
	initCmd := &cobra.Command{
		Use:   "init [preset]",
		Short: "Generate a bootsift.yaml manifest",
		Long:  fmt.Sprintf("Available presets: %v (default %s)", presets.Names(), presets.Boot),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			name := presets.Boot
			if len(args) > 0 {
				name = args[0]
			}
			m, err := presets.Generate(name)
			if err != nil {
				return err
			}
			if err := manifest.Save(output, m); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Generated %s with %d categories\n", output, len(m.Categories))
			for _, c := range m.Categories {
				fmt.Fprintf(a.stdout, "  %s (%d route, %d filter rules)\n", c.Name, len(c.Stage1), len(c.Stage2))
			}
			return nil
		},
	}
	initCmd.Flags().StringVar(&output, "output", manifest.DefaultFile, "output file path")

	validateCmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a bootsift.yaml manifest",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := manifest.DefaultFile
			if len(args) > 0 {
				path = args[0]
			}

			m, err := manifest.Load(path)
			if err != nil {
				return err
			}

			outDir := a.cfg.OutDir
			if m.OutDir != "" {
				outDir = m.OutDir
			}
			errs := manifest.Validate(m, outDir)
			if len(errs) == 0 {
				fmt.Fprintf(a.stdout, "%s: valid (%d categories)\n", path, len(m.Categories))
				return nil
			}

			fmt.Fprintf(a.stderr, "%s: %d error(s)\n", path, len(errs))
			for _, e := range errs {
				fmt.Fprintf(a.stderr, "  • %s\n", e)
			}
			return fmt.Errorf("%s: %w", path, errInvalidManifest)
		},
	}

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}

// --- Service ---

func newServiceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the systemd user service that analyses each boot",
	}

	installCmd := &cobra.Command{
		Use:   "install",
		Short: "Install and enable the bootsift user service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bin, err := os.Executable()
			if err != nil {
				return fmt.Errorf("cannot resolve bootsift path: %w", err)
			}
			outDir := a.cfg.OutDir
			if !a.outDirExplicit(cmd) {
				if outDir, err = service.DefaultOutDir(); err != nil {
					return err
				}
			}
			if err := service.Install(bin, outDir); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "installed bootsift.service (artifacts in %s)\n", outDir)
			return nil
		},
	}

	uninstallCmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Disable and remove the bootsift user service",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := service.Uninstall(); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "removed bootsift.service")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the user service state",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(a.stdout, service.Status(cmd.Context()))
		},
	}

	cmd.AddCommand(installCmd, uninstallCmd, statusCmd)
	return cmd
}

// --- Version ---

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(a.stdout, "bootsift %s (%s) built %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.Date)
		},
	}
}
