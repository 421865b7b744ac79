package llm

import (
	"context"
	"strings"
	"text/template"

	"github.com/panbanda/mcuscope/pkg/analyzer/callgraph"
	"github.com/panbanda/mcuscope/pkg/models"
)

// PromptInput is the data behind a project summary prompt.
type PromptInput struct {
	Project    string
	Entry      string
	EntryFound bool
	Chip       *models.ChipInfo
	Functions  models.FunctionStats
	Calls      models.CallStats
	Files      models.FileStats
	Interfaces models.InterfaceSummary
	Libraries  []models.LibraryInfo
	TopLevel   []string
	CallTree   string
}

var promptTemplate = template.Must(template.New("prompt").Funcs(template.FuncMap{
	"join":    strings.Join,
	"orUnset": orUnset,
}).Parse(`You are an embedded firmware engineer. Explain what the following MCU project does.

## Project
- Name: {{orUnset .Project}}
{{- with .Chip}}
- Device: {{orUnset .Device}}
- Vendor: {{orUnset .Vendor}}
- Series: {{orUnset .Series}}
- Core: {{orUnset .Core}}
- Flash: {{orUnset .FlashSize}}
- RAM: {{orUnset .RAMSize}}
{{- else}}
- Chip: not specified
{{- end}}

## Statistics
- Files: {{.Files.Parsed}} parsed of {{.Files.Total}}
- Functions: {{.Functions.Total}} ({{.Functions.Defined}} defined, {{.Functions.Reachable}} reachable from {{.Entry}})
- Call relations: {{.Calls.TotalCalls}}

## Vendor libraries
{{- range .Libraries}}
- {{.Name}} ({{.Vendor}}, score {{.Score}})
{{- else}}
- none detected
{{- end}}

## Hardware interfaces in use
{{- range .Interfaces.Details}}
- {{.Name}}: {{.Description}}. {{.CallCount}} calls in {{.FileCount}} files. Functions: {{join .Functions ", "}}
{{- else}}
- none detected
{{- end}}

## Execution flow from {{.Entry}}
{{- if .EntryFound}}
` + "```" + `
{{.CallTree}}` + "```" + `

Functions called directly by {{.Entry}}: {{if .TopLevel}}{{join .TopLevel ", "}}{{else}}none{{end}}
{{- else}}
The entry point {{.Entry}} was not found, so no call tree is available.
{{- end}}

## Questions
1. What does this project do, and what is its main functionality?
2. How does control flow through the program, based on the call tree?
3. How does the firmware interact with the hardware peripherals listed above?
4. What applications is this project likely used for?
5. Is there anything notable about how it is implemented?
`))

func orUnset(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// NewPromptInput collects the prompt data from a result.
func NewPromptInput(project string, r *models.AnalysisResult) PromptInput {
	in := PromptInput{
		Project:    project,
		Entry:      r.EntryPoint,
		EntryFound: r.EntryFound,
		Functions:  r.FunctionStats,
		Calls:      r.CallStats,
		Files:      r.FileStats,
		Interfaces: r.InterfaceSummary(),
		Libraries:  r.Libraries,
		CallTree:   callgraph.Render(r.CallTree),
	}
	if !r.Chip.IsZero() {
		in.Chip = r.Chip
	}
	if r.EntryFound {
		in.TopLevel = r.Callees(r.EntryPoint)
	}
	return in
}

// BuildPrompt renders the summary prompt for a result.
func BuildPrompt(project string, r *models.AnalysisResult) (string, error) {
	var sb strings.Builder
	if err := promptTemplate.Execute(&sb, NewPromptInput(project, r)); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Summarize asks c to explain the analyzed project.
func Summarize(ctx context.Context, c Client, project string, r *models.AnalysisResult) (string, error) {
	prompt, err := BuildPrompt(project, r)
	if err != nil {
		return "", err
	}
	return c.Generate(ctx, prompt)
}
