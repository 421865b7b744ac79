package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/mcuscope/internal/output"
	"github.com/panbanda/mcuscope/internal/report"
	"github.com/panbanda/mcuscope/pkg/models"
)

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Analyze functions, call graph and interface usage",
		ArgsUsage: "[path...]",
		Flags: append(analysisFlags(),
			&cli.StringFlag{
				Name:  "html",
				Usage: "Also write a standalone HTML report to this file",
			},
		),
		Action: runAnalyzeCmd,
	}
}

func runAnalyzeCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	res, err := runAnalysis(c, cfg)
	if err != nil || res == nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if err := formatter.Output(report.Analysis(res.AnalysisResult, formatter.Colored())); err != nil {
		return err
	}

	if htmlPath := c.String("html"); htmlPath != "" {
		renderer, err := report.NewRenderer()
		if err != nil {
			return fmt.Errorf("load report template: %w", err)
		}
		meta := report.Metadata{
			Project:     projectName(res),
			GeneratedAt: time.Now().UTC(),
			Version:     version,
			Revision:    res.Revision,
			Paths:       getPaths(c),
		}
		if err := renderer.RenderToFile(meta, res.AnalysisResult, htmlPath); err != nil {
			return fmt.Errorf("write HTML report: %w", err)
		}
		success("HTML report written to %s", htmlPath)
	}
	return nil
}

func functionsCmd() *cli.Command {
	return &cli.Command{
		Name:      "functions",
		Aliases:   []string{"fn"},
		Usage:     "List extracted functions with call counts",
		ArgsUsage: "[path...]",
		Flags: append(analysisFlags(),
			&cli.BoolFlag{
				Name:  "reachable",
				Usage: "Only list functions reachable from the entry point",
			},
		),
		Action: runFunctionsCmd,
	}
}

func runFunctionsCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	res, err := runAnalysis(c, cfg)
	if err != nil || res == nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(report.Functions(res.AnalysisResult, c.Bool("reachable")))
}

func callTreeCmd() *cli.Command {
	return &cli.Command{
		Name:      "calltree",
		Aliases:   []string{"tree"},
		Usage:     "Print the call tree from the entry point",
		ArgsUsage: "[path...]",
		Flags:     analysisFlags(),
		Action:    runCallTreeCmd,
	}
}

func runCallTreeCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	res, err := runAnalysis(c, cfg)
	if err != nil || res == nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	r := res.AnalysisResult
	if !r.EntryFound {
		warn("Entry point %q not found", r.EntryPoint)
	}
	return formatter.Output(&output.Report{
		Sections: []output.Renderable{report.CallTree(r), report.Recursion(r)},
		Data: struct {
			EntryPoint string `json:"entry_point"`
			EntryFound bool   `json:"entry_found"`
			Tree       any    `json:"call_tree"`
			Recursion  any    `json:"recursion"`
		}{r.EntryPoint, r.EntryFound, r.CallTree, r.Recursion},
	})
}

func interfacesCmd() *cli.Command {
	return &cli.Command{
		Name:      "interfaces",
		Aliases:   []string{"if"},
		Usage:     "Show which hardware interfaces the firmware uses",
		ArgsUsage: "[path...]",
		Flags: append(analysisFlags(),
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Include interfaces that are not used",
			},
		),
		Action: runInterfacesCmd,
	}
}

func runInterfacesCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	res, err := runAnalysis(c, cfg)
	if err != nil || res == nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	r := res.AnalysisResult
	all := c.Bool("all")
	view := report.InterfaceView{
		Evidence:   r.InterfaceEvidence,
		Interfaces: r.Interfaces,
		Libraries:  r.Libraries,
		Summary:    r.InterfaceSummary(),
	}
	if !all {
		view.Interfaces = make(map[string]*models.InterfaceUsage)
		for name, u := range r.Interfaces {
			if u.Enabled {
				view.Interfaces[name] = u
			}
		}
	}
	return formatter.Output(&output.Report{
		Title: "Interfaces",
		Sections: []output.Renderable{
			report.Interfaces(r, all, formatter.Colored()),
			report.Libraries(r),
		},
		Data: view,
	})
}
