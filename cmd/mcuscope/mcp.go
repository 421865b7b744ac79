package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/mcuscope/internal/mcpserver"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes mcuscope's
analysis as tools that LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "mcuscope": {
        "command": "mcuscope",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - analyze_mcu_project   Statistics, libraries and interface usage
  - mcu_call_tree         Call tree from the entry point
  - mcu_interfaces        Per-interface functions, files and call counts
  - mcu_functions         Function listing or callers/callees of one function`,
		Action: runMCPCmd,
		Subcommands: []*cli.Command{
			{
				Name:   "manifest",
				Usage:  "Print the MCP registry server.json manifest",
				Action: runMCPManifestCmd,
			},
		},
	}
}

func runMCPCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc := newService(c, cfg, newLogger(cfg))

	ctx, cancel := signalContext(c)
	defer cancel()
	return mcpserver.NewServer(version, svc).Run(ctx)
}

func runMCPManifestCmd(c *cli.Context) error {
	data, err := mcpserver.GenerateManifest(version)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(data))
	return nil
}
