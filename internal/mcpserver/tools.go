package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/mcuscope/internal/output"
	"github.com/panbanda/mcuscope/internal/report"
	"github.com/panbanda/mcuscope/internal/service/analysis"
	"github.com/panbanda/mcuscope/pkg/analyzer/callgraph"
	"github.com/panbanda/mcuscope/pkg/models"
)

// AnalyzeInput is the base input for all tools.
type AnalyzeInput struct {
	Paths      []string `json:"paths,omitempty" jsonschema:"Paths to analyze. Defaults to current directory if empty."`
	Format     string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
	EntryPoint string   `json:"entry_point,omitempty" jsonschema:"Function the call graph starts from. Default main."`
	Backend    string   `json:"backend,omitempty" jsonschema:"Extraction backend: regex (default) or treesitter."`
	Revision   string   `json:"revision,omitempty" jsonschema:"Git revision to analyze instead of the working copy."`
}

// CallTreeInput adds call tree options.
type CallTreeInput struct {
	AnalyzeInput
	Depth int `json:"depth,omitempty" jsonschema:"Maximum tree depth including the entry point. Default 5."`
}

// InterfacesInput adds interface listing options.
type InterfacesInput struct {
	AnalyzeInput
	All bool `json:"all,omitempty" jsonschema:"Include interfaces with no matching calls."`
}

// FunctionsInput adds function listing options.
type FunctionsInput struct {
	AnalyzeInput
	Name          string `json:"name,omitempty" jsonschema:"Show one function with its callers and callees."`
	ReachableOnly bool   `json:"reachable_only,omitempty" jsonschema:"List only functions reachable from the entry point."`
}

// ProjectOutput is the compact overview returned by analyze_mcu_project.
type ProjectOutput struct {
	Root        string                  `json:"root,omitempty"`
	Revision    string                  `json:"revision,omitempty"`
	FromCache   bool                    `json:"from_cache"`
	EntryPoint  string                  `json:"entry_point"`
	EntryFound  bool                    `json:"entry_found"`
	Backend     string                  `json:"backend"`
	Chip        *models.ChipInfo        `json:"chip,omitempty"`
	Stats       report.StatsView        `json:"stats"`
	Libraries   []models.LibraryInfo    `json:"libraries"`
	Evidence    models.EvidenceMode     `json:"interface_evidence"`
	Interfaces  models.InterfaceSummary `json:"interfaces"`
	TopLevel    []string                `json:"top_level"`
	Recursion   models.Recursion        `json:"recursion"`
	Diagnostics []models.Diagnostic     `json:"diagnostics,omitempty"`
}

// CallTreeOutput is returned by mcu_call_tree.
type CallTreeOutput struct {
	EntryPoint string           `json:"entry_point"`
	EntryFound bool             `json:"entry_found"`
	MaxDepth   int              `json:"max_depth"`
	Tree       string           `json:"tree"`
	Recursion  models.Recursion `json:"recursion"`
}

// FunctionDetail is returned by mcu_functions when a name is given.
type FunctionDetail struct {
	report.FunctionRow
	Callers []string `json:"callers"`
	Callees []string `json:"callees"`
}

func getPaths(input AnalyzeInput) []string {
	if len(input.Paths) == 0 {
		return []string{"."}
	}
	return input.Paths
}

func getFormat(input AnalyzeInput) output.Format {
	switch input.Format {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

func formatOutput(data any, format output.Format) (string, error) {
	switch format {
	case output.FormatJSON:
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", err
		}
		return string(out), nil
	case output.FormatMarkdown:
		out, err := output.MarshalTOON(data)
		if err != nil {
			return "", err
		}
		return "```\n" + out + "\n```", nil
	default:
		return output.MarshalTOON(data)
	}
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

func (s *Server) analyze(ctx context.Context, input AnalyzeInput, depth int) (*analysis.Result, error) {
	return s.svc.Analyze(ctx, analysis.Options{
		Paths:      getPaths(input),
		EntryPoint: input.EntryPoint,
		CallDepth:  depth,
		Backend:    input.Backend,
		Revision:   input.Revision,
	})
}

func (s *Server) handleAnalyzeProject(ctx context.Context, req *mcp.CallToolRequest, input AnalyzeInput) (*mcp.CallToolResult, any, error) {
	res, err := s.analyze(ctx, input, 0)
	if err != nil {
		return toolError(err.Error())
	}
	if len(res.Files) == 0 {
		return toolError("no C/C++ source files found")
	}

	out := ProjectOutput{
		Root:       res.Root,
		Revision:   res.Revision,
		FromCache:  res.FromCache,
		EntryPoint: res.EntryPoint,
		EntryFound: res.EntryFound,
		Backend:    res.Backend,
		Stats: report.StatsView{
			Functions: res.FunctionStats,
			Calls:     res.CallStats,
			Files:     res.FileStats,
		},
		Libraries:   res.Libraries,
		Evidence:    res.InterfaceEvidence,
		Interfaces:  res.InterfaceSummary(),
		TopLevel:    res.Callees(res.EntryPoint),
		Recursion:   res.Recursion,
		Diagnostics: res.Diagnostics,
	}
	if !res.Chip.IsZero() {
		out.Chip = res.Chip
	}
	if out.TopLevel == nil {
		out.TopLevel = []string{}
	}
	return toolResult(out, getFormat(input))
}

func (s *Server) handleCallTree(ctx context.Context, req *mcp.CallToolRequest, input CallTreeInput) (*mcp.CallToolResult, any, error) {
	res, err := s.analyze(ctx, input.AnalyzeInput, input.Depth)
	if err != nil {
		return toolError(err.Error())
	}
	if len(res.Files) == 0 {
		return toolError("no C/C++ source files found")
	}

	out := CallTreeOutput{
		EntryPoint: res.EntryPoint,
		EntryFound: res.EntryFound,
		Recursion:  res.Recursion,
	}
	if res.CallTree != nil {
		out.MaxDepth = res.CallTree.MaxDepth
		out.Tree = callgraph.Render(res.CallTree)
	}
	return toolResult(out, getFormat(input.AnalyzeInput))
}

func (s *Server) handleInterfaces(ctx context.Context, req *mcp.CallToolRequest, input InterfacesInput) (*mcp.CallToolResult, any, error) {
	res, err := s.analyze(ctx, input.AnalyzeInput, 0)
	if err != nil {
		return toolError(err.Error())
	}
	if len(res.Files) == 0 {
		return toolError("no C/C++ source files found")
	}

	usage := make(map[string]*models.InterfaceUsage, len(res.Interfaces))
	for name, u := range res.Interfaces {
		if input.All || u.Enabled {
			usage[name] = u
		}
	}
	return toolResult(report.InterfaceView{
		Evidence:   res.InterfaceEvidence,
		Interfaces: usage,
		Libraries:  res.Libraries,
		Summary:    res.InterfaceSummary(),
	}, getFormat(input.AnalyzeInput))
}

func (s *Server) handleFunctions(ctx context.Context, req *mcp.CallToolRequest, input FunctionsInput) (*mcp.CallToolResult, any, error) {
	res, err := s.analyze(ctx, input.AnalyzeInput, 0)
	if err != nil {
		return toolError(err.Error())
	}
	if len(res.Files) == 0 {
		return toolError("no C/C++ source files found")
	}

	rows := report.FunctionRows(res.AnalysisResult, input.ReachableOnly)
	if input.Name == "" {
		return toolResult(struct {
			Functions []report.FunctionRow `json:"functions"`
		}{rows}, getFormat(input.AnalyzeInput))
	}

	for _, row := range rows {
		if row.Name == input.Name {
			return toolResult(FunctionDetail{
				FunctionRow: row,
				Callers:     nonNil(res.Callers(row.Name)),
				Callees:     nonNil(res.Callees(row.Name)),
			}, getFormat(input.AnalyzeInput))
		}
	}
	return toolError("function " + input.Name + " not found")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
