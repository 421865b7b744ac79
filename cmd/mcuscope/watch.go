package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/mcuscope/internal/service/analysis"
	"github.com/panbanda/mcuscope/pkg/watch"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Watch for source changes and re-analyze",
		ArgsUsage: "[path]",
		Flags: append(analysisFlags(),
			&cli.DurationFlag{
				Name:  "debounce",
				Value: 500 * time.Millisecond,
				Usage: "Quiet period before a change is analyzed",
			},
		),
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	absPath, err := filepath.Abs(getPaths(c)[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	logger := newLogger(cfg)
	svc := newService(c, cfg, logger)

	watcher, err := watch.NewWatcher(absPath, cfg, c.Duration("debounce"))
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Stop()
	watcher.SetLogger(logger)

	ctx, cancel := signalContext(c)
	defer cancel()

	opts := analysis.Options{
		Paths:      []string{absPath},
		EntryPoint: c.String("entry"),
		CallDepth:  c.Int("depth"),
		Backend:    c.String("backend"),
		Chip:       chipFromFlags(c),
	}
	rerun := func(reason string) {
		res, err := svc.Analyze(ctx, opts)
		if err != nil {
			color.Red("Analysis error: %v", err)
			return
		}
		fmt.Println(watchSummary(reason, res))
	}

	rerun("initial")
	// Reruns bypass the cache; every save would otherwise add an entry.
	opts.NoCache = true
	watcher.SetCallback(func(changed []string) {
		reason := fmt.Sprintf("%d file(s) changed", len(changed))
		if len(changed) == 1 {
			if rel, err := filepath.Rel(absPath, changed[0]); err == nil {
				reason = rel + " changed"
			}
		}
		rerun(reason)
	})

	color.Cyan("Watching %s (Ctrl+C to stop)", absPath)
	err = watcher.Start(ctx)
	if errors.Is(err, context.Canceled) {
		fmt.Println("\nStopping watch...")
		return nil
	}
	return err
}

// watchSummary is the one-line report printed after each run.
func watchSummary(reason string, res *analysis.Result) string {
	stamp := time.Now().Format("15:04:05")
	if len(res.Files) == 0 {
		return fmt.Sprintf("[%s] %s: no C/C++ source files", stamp, reason)
	}
	r := res.AnalysisResult
	entry := r.EntryPoint
	if !r.EntryFound {
		entry += " (not found)"
	}
	return fmt.Sprintf("[%s] %s: %d functions, %d reachable from %s, interfaces: %s",
		stamp, reason, r.FunctionStats.Defined, r.FunctionStats.Reachable, entry, joinOrNone(r.EnabledInterfaces()))
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	out := items[0]
	for _, s := range items[1:] {
		out += ", " + s
	}
	return out
}
