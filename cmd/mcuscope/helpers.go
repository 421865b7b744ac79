package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/mcuscope/internal/output"
	"github.com/panbanda/mcuscope/internal/progress"
	"github.com/panbanda/mcuscope/internal/service/analysis"
	"github.com/panbanda/mcuscope/pkg/config"
	"github.com/panbanda/mcuscope/pkg/models"
)

// getPaths returns paths from positional args, defaulting to ["."]
func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{"."}
}

// analysisFlags are shared by every command that runs an analysis.
func analysisFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "entry",
			Usage: "Entry point function (default from config, usually main)",
		},
		&cli.IntFlag{
			Name:  "depth",
			Usage: "Call tree depth including the entry point (default from config)",
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Extraction backend: regex or treesitter",
		},
		&cli.StringFlag{
			Name:  "rev",
			Usage: "Analyze a git revision instead of the working copy",
		},
		&cli.StringFlag{
			Name:  "device",
			Usage: "Target device, e.g. STM32F407VG",
		},
		&cli.StringFlag{
			Name:  "vendor",
			Usage: "Chip vendor, e.g. STMicroelectronics",
		},
		&cli.StringFlag{
			Name:  "core",
			Usage: "CPU core, e.g. Cortex-M4",
		},
	}
}

// loadConfig loads --config when given, otherwise the first config file in
// the standard locations, otherwise the defaults.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.LoadOrDefault()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		cfg = loaded
	}
	if c.Bool("verbose") {
		cfg.Output.Verbose = true
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelWarn
	if cfg.Output.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newService wires the analysis service with the on-disk cache unless
// caching is disabled by flag or config.
func newService(c *cli.Context, cfg *config.Config, logger *slog.Logger) *analysis.Service {
	opts := []analysis.Option{
		analysis.WithConfig(cfg),
		analysis.WithLogger(logger),
	}
	if !c.Bool("no-cache") && cfg.Cache.Enabled {
		cc, err := openCache(cfg)
		if err != nil {
			logger.Warn("cache disabled", "dir", cfg.Cache.Dir, "error", err)
		} else {
			opts = append(opts, analysis.WithCache(cc))
		}
	}
	return analysis.New(opts...)
}

func chipFromFlags(c *cli.Context) *models.ChipInfo {
	chip := &models.ChipInfo{
		Device: c.String("device"),
		Vendor: c.String("vendor"),
		Core:   c.String("core"),
	}
	if chip.IsZero() {
		return nil
	}
	return chip
}

// signalContext is canceled on Ctrl+C or SIGTERM.
func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	parent := c.Context
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// runAnalysis runs one analysis for the command's paths and flags with a
// progress bar on stderr. A nil result means no source files were found,
// which has already been reported.
func runAnalysis(c *cli.Context, cfg *config.Config) (*analysis.Result, error) {
	logger := newLogger(cfg)
	svc := newService(c, cfg, logger)

	ctx, cancel := signalContext(c)
	defer cancel()

	bar := progress.NewBar("Analyzing", 0)
	res, err := svc.Analyze(ctx, analysis.Options{
		Paths:      getPaths(c),
		EntryPoint: c.String("entry"),
		CallDepth:  c.Int("depth"),
		Backend:    c.String("backend"),
		Chip:       chipFromFlags(c),
		Revision:   c.String("rev"),
		NoCache:    c.Bool("no-cache"),
		OnProgress: bar.Update,
	})
	if err != nil {
		bar.FinishSuccess()
		return nil, fmt.Errorf("analysis failed: %w", err)
	}
	if len(res.Files) == 0 {
		bar.FinishSkipped("no C/C++ source files")
		return nil, nil
	}
	bar.FinishSuccess()
	if res.FromCache {
		logger.Debug("using cached result", "root", res.Root)
	}
	return res, nil
}

// newFormatter builds the output formatter from --format and --output,
// falling back to the configured format.
func newFormatter(c *cli.Context, cfg *config.Config) (*output.Formatter, error) {
	format := c.String("format")
	if format == "" {
		format = cfg.Output.Format
	}
	return output.NewFormatter(output.ParseFormat(format), c.String("output"), cfg.Output.Color)
}

// projectName names a result for reports and prompts.
func projectName(res *analysis.Result) string {
	if res.Root != "" {
		return filepath.Base(res.Root)
	}
	if abs, err := filepath.Abs("."); err == nil {
		return filepath.Base(abs)
	}
	return ""
}

// Status lines go to stderr so they never mix with structured output.

func warn(format string, args ...any) {
	fmt.Fprintln(os.Stderr, color.YellowString(format, args...))
}

func success(format string, args ...any) {
	fmt.Fprintln(os.Stderr, color.GreenString(format, args...))
}
