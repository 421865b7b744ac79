package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/mcuscope/pkg/config"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Create, show and validate configuration",
		Subcommands: []*cli.Command{
			{
				Name:      "init",
				Usage:     "Write a config file with the default settings",
				ArgsUsage: "[file]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Value: "toml",
						Usage: "Config format: toml, yaml or json",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: runConfigInitCmd,
			},
			{
				Name:  "show",
				Usage: "Print the effective configuration",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Value: "toml",
						Usage: "Config format: toml, yaml or json",
					},
				},
				Action: runConfigShowCmd,
			},
			{
				Name:      "validate",
				Usage:     "Check a config file against the schema",
				ArgsUsage: "[file]",
				Action:    runConfigValidateCmd,
			},
		},
	}
}

func defaultConfigName(format string) string {
	switch format {
	case "yaml", "yml":
		return "mcuscope.yaml"
	case "json":
		return "mcuscope.json"
	default:
		return "mcuscope.toml"
	}
}

func runConfigInitCmd(c *cli.Context) error {
	format := c.String("format")
	path := c.Args().First()
	if path == "" {
		path = defaultConfigName(format)
	}

	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := config.DefaultConfig().Write(f, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	success("Created %s", path)
	return nil
}

func runConfigShowCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return cfg.Write(c.App.Writer, c.String("format"))
}

func runConfigValidateCmd(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		path = c.String("config")
	}
	if path == "" {
		path = config.Find()
	}
	if path == "" {
		return errors.New("no config file found; pass a path or run 'mcuscope config init'")
	}

	if _, err := config.Validate(path); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	success("%s is valid", path)
	return nil
}
