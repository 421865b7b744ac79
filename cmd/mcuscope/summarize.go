package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/mcuscope/internal/llm"
	"github.com/panbanda/mcuscope/internal/output"
)

func summarizeCmd() *cli.Command {
	return &cli.Command{
		Name:      "summarize",
		Aliases:   []string{"sum"},
		Usage:     "Explain the firmware in plain language using a language model",
		ArgsUsage: "[path...]",
		Flags: append(analysisFlags(),
			&cli.BoolFlag{
				Name:  "prompt-only",
				Usage: "Print the prompt without calling the model",
			},
			&cli.StringFlag{
				Name:  "provider",
				Usage: "Override the configured provider (gemini, none)",
			},
		),
		Action: runSummarizeCmd,
	}
}

func runSummarizeCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if p := c.String("provider"); p != "" {
		cfg.LLM.Provider = p
	}
	res, err := runAnalysis(c, cfg)
	if err != nil || res == nil {
		return err
	}

	project := projectName(res)
	prompt, err := llm.BuildPrompt(project, res.AnalysisResult)
	if err != nil {
		return fmt.Errorf("build prompt: %w", err)
	}
	size := output.MeasurePrompt(prompt, output.DefaultWindow)
	fmt.Fprintf(os.Stderr, "Prompt: %s\n", size)
	if !size.Fits() {
		warn("Prompt exceeds the model context window; lower --depth to shrink the call tree.")
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	promptOnly := func() error {
		return formatter.Output(&output.Block{
			Title: "Prompt",
			Text:  prompt,
			Data:  map[string]string{"project": project, "prompt": prompt},
		})
	}
	if c.Bool("prompt-only") {
		return promptOnly()
	}

	ctx, cancel := signalContext(c)
	defer cancel()

	logger := newLogger(cfg)
	client, err := llm.NewClient(ctx, cfg.LLM, logger)
	if errors.Is(err, llm.ErrNoProvider) {
		warn("No LLM provider configured; set llm.provider in the config or pass --provider. Printing the prompt instead.")
		return promptOnly()
	}
	if err != nil {
		return err
	}
	defer client.Close()

	summary, err := llm.Summarize(ctx, client, project, res.AnalysisResult)
	if err != nil {
		return fmt.Errorf("summarize with %s: %w", client.Name(), err)
	}
	return formatter.Output(&output.Block{
		Title: "Summary",
		Text:  summary,
		Data:  map[string]string{"project": project, "model": client.Name(), "summary": summary},
	})
}
