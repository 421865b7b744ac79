package report

import (
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/panbanda/mcuscope/pkg/analyzer/callgraph"
	"github.com/panbanda/mcuscope/pkg/models"
)

//go:embed template.html
var templateFS embed.FS

// Renderer handles HTML report generation.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer creates a new renderer with the embedded template.
func NewRenderer() (*Renderer, error) {
	printer := message.NewPrinter(language.English)
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"title": cases.Title(language.English).String,
		"truncatePath": func(s string, n int) string {
			if len(s) <= n || n < 4 {
				return s
			}
			return "..." + s[len(s)-n+3:]
		},
		"percent": func(a, b int) float64 {
			if b == 0 {
				return 0
			}
			return float64(a) / float64(b) * 100
		},
		"json": func(v any) template.JS {
			b, _ := json.Marshal(v)
			return template.JS(b)
		},
		"num": func(n int) string {
			return printer.Sprintf("%d", n)
		},
		"sorted": func(s models.Set) []string {
			return s.Sorted()
		},
	}

	tmplContent, err := templateFS.ReadFile("template.html")
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New("report").Funcs(funcMap).Parse(string(tmplContent))
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl}, nil
}

// NewDocument assembles the template input for a result.
func NewDocument(meta Metadata, r *models.AnalysisResult) *Document {
	return &Document{
		Metadata:  meta,
		Result:    r,
		Functions: FunctionRows(r, false),
		Summary:   r.InterfaceSummary(),
		CallTree:  callgraph.Render(r.CallTree),
	}
}

// Render writes the HTML report for r.
func (r *Renderer) Render(meta Metadata, result *models.AnalysisResult, w io.Writer) error {
	return r.tmpl.Execute(w, NewDocument(meta, result))
}

// RenderToFile writes the HTML report to outputPath.
func (r *Renderer) RenderToFile(meta Metadata, result *models.AnalysisResult, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if err := r.Render(meta, result, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
