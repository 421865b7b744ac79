// Package report turns analysis results into renderable tables, sections
// and a standalone HTML page.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/panbanda/mcuscope/internal/output"
	"github.com/panbanda/mcuscope/pkg/analyzer/callgraph"
	"github.com/panbanda/mcuscope/pkg/models"
)

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Overview describes the run: entry point, backend, evidence mode and chip.
func Overview(r *models.AnalysisResult) *output.Section {
	var sb strings.Builder
	entry := r.EntryPoint
	if !r.EntryFound {
		entry += " (not found)"
	}
	fmt.Fprintf(&sb, "Entry point:        %s\n", entry)
	fmt.Fprintf(&sb, "Backend:            %s\n", r.Backend)
	fmt.Fprintf(&sb, "Interface evidence: %s", r.InterfaceEvidence)
	if !r.Chip.IsZero() {
		c := r.Chip
		fields := []struct{ k, v string }{
			{"Device", c.Device}, {"Vendor", c.Vendor}, {"Series", c.Series},
			{"Core", c.Core}, {"Flash", c.FlashSize}, {"RAM", c.RAMSize},
		}
		for _, f := range fields {
			if f.v != "" {
				fmt.Fprintf(&sb, "\n%-20s%s", f.k+":", f.v)
			}
		}
	}
	return &output.Section{Title: "Overview", Content: sb.String()}
}

// Stats lists function, call and file statistics.
func Stats(r *models.AnalysisResult) *output.Table {
	fs, cs, files := r.FunctionStats, r.CallStats, r.FileStats
	rows := [][]string{
		{"Functions", strconv.Itoa(fs.Total)},
		{"Defined", strconv.Itoa(fs.Defined)},
		{"Declared only", strconv.Itoa(fs.Declared)},
		{"Static", strconv.Itoa(fs.Static)},
		{"Inline", strconv.Itoa(fs.Inline)},
		{"Reachable from " + r.EntryPoint, strconv.Itoa(fs.Reachable)},
		{"Call relations", strconv.Itoa(cs.TotalCalls)},
		{"Unique callers", strconv.Itoa(cs.UniqueCallers)},
		{"Unique callees", strconv.Itoa(cs.UniqueCallees)},
		{"Files", strconv.Itoa(files.Total)},
		{"Parsed", strconv.Itoa(files.Parsed)},
		{"Failed", strconv.Itoa(files.Failed)},
	}
	return output.NewTable("Statistics", []string{"Metric", "Value"}, rows, nil,
		StatsView{Functions: fs, Calls: cs, Files: files})
}

// Libraries lists detected vendor libraries by descending score.
func Libraries(r *models.AnalysisResult) *output.Table {
	rows := make([][]string, 0, len(r.Libraries))
	for _, lib := range r.Libraries {
		rows = append(rows, []string{
			lib.Name,
			lib.Vendor,
			strconv.Itoa(lib.Score),
			strings.Join(lib.HeaderFiles.Sorted(), ", "),
		})
	}
	return output.NewTable("Libraries", []string{"Library", "Vendor", "Score", "Headers"}, rows, nil, r.Libraries)
}

// Interfaces lists interface usage. Unused interfaces are shown only when all
// is set.
func Interfaces(r *models.AnalysisResult, all bool, colored bool) *output.Table {
	names := make([]string, 0, len(r.Interfaces))
	for name, u := range r.Interfaces {
		if all || u.Enabled {
			names = append(names, name)
		}
	}
	names = models.NewSet(names...).Sorted()

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		u := r.Interfaces[name]
		status := yesNo(u.Enabled)
		if colored {
			status = output.StatusColor(u.Enabled, status)
		}
		rows = append(rows, []string{
			name,
			u.Vendor,
			strconv.Itoa(u.CallCount),
			strconv.Itoa(u.Functions.Len()),
			strconv.Itoa(u.Files.Len()),
			status,
		})
	}
	view := InterfaceView{
		Evidence:   r.InterfaceEvidence,
		Interfaces: r.Interfaces,
		Libraries:  r.Libraries,
		Summary:    r.InterfaceSummary(),
	}
	title := fmt.Sprintf("Interfaces (%s)", r.InterfaceEvidence)
	return output.NewTable(title,
		[]string{"Interface", "Vendor", "Calls", "Functions", "Files", "Enabled"},
		rows, nil, view)
}

// FunctionRows flattens the function table in name order.
func FunctionRows(r *models.AnalysisResult, reachableOnly bool) []FunctionRow {
	rows := make([]FunctionRow, 0, len(r.Functions))
	for _, fn := range r.Functions.Sorted() {
		reachable := r.IsReachable(fn.Name)
		if reachableOnly && !reachable {
			continue
		}
		kind := "declaration"
		if fn.IsDefinition {
			kind = "definition"
		}
		rows = append(rows, FunctionRow{
			Name:      fn.Name,
			File:      fn.File,
			Line:      fn.Line,
			Kind:      kind,
			Static:    fn.IsStatic,
			Inline:    fn.IsInline,
			Reachable: reachable,
			Calls:     fn.Calls.Len(),
			CalledBy:  fn.CalledBy.Len(),
		})
	}
	return rows
}

// Functions lists the function table.
func Functions(r *models.AnalysisResult, reachableOnly bool) *output.Table {
	fns := FunctionRows(r, reachableOnly)
	rows := make([][]string, 0, len(fns))
	for _, fn := range fns {
		rows = append(rows, []string{
			fn.Name,
			fmt.Sprintf("%s:%d", fn.File, fn.Line),
			fn.Kind,
			yesNo(fn.Static),
			yesNo(fn.Reachable),
			strconv.Itoa(fn.Calls),
			strconv.Itoa(fn.CalledBy),
		})
	}
	title := "Functions"
	if reachableOnly {
		title = "Reachable Functions"
	}
	return output.NewTable(title,
		[]string{"Function", "Location", "Kind", "Static", "Reachable", "Calls", "Called By"},
		rows, []string{"Total", strconv.Itoa(len(fns)), "", "", "", "", ""}, fns)
}

// CallTree renders the bounded call tree from the entry point.
func CallTree(r *models.AnalysisResult) *output.Block {
	text := callgraph.Render(r.CallTree)
	if text == "" {
		text = fmt.Sprintf("entry point %q not found\n", r.EntryPoint)
	}
	title := "Call Tree"
	if r.CallTree != nil {
		title = fmt.Sprintf("Call Tree (depth %d)", r.CallTree.MaxDepth)
	}
	return &output.Block{Title: title, Text: text, Data: r.CallTree}
}

// Recursion lists self-recursive functions and mutual recursion groups.
func Recursion(r *models.AnalysisResult) *output.Section {
	var lines []string
	for _, name := range r.Recursion.SelfRecursive {
		lines = append(lines, name+" calls itself")
	}
	for _, cycle := range r.Recursion.Cycles {
		lines = append(lines, "cycle: "+strings.Join(cycle, " -> "))
	}
	if len(lines) == 0 {
		lines = []string{"none"}
	}
	return &output.Section{Title: "Recursion", Content: strings.Join(lines, "\n"), Data: r.Recursion}
}

// Diagnostics lists files that could not be fully analyzed.
func Diagnostics(r *models.AnalysisResult) *output.Table {
	rows := make([][]string, 0, len(r.Diagnostics))
	for _, d := range r.Diagnostics {
		rows = append(rows, []string{d.Path, d.Stage, d.Message})
	}
	return output.NewTable("Diagnostics", []string{"File", "Stage", "Message"}, rows, nil, r.Diagnostics)
}

// Analysis is the full report printed by the analyze command. Structured
// formats serialize the whole result.
func Analysis(r *models.AnalysisResult, colored bool) *output.Report {
	sections := []output.Renderable{
		Overview(r),
		Stats(r),
		Libraries(r),
		Interfaces(r, false, colored),
		Functions(r, true),
		Recursion(r),
	}
	if len(r.Diagnostics) > 0 {
		sections = append(sections, Diagnostics(r))
	}
	return &output.Report{Title: "MCU Analysis", Sections: sections, Data: r}
}
