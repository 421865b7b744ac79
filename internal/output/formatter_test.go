package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"text", FormatText},
		{"TEXT", FormatText},
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"markdown", FormatMarkdown},
		{"md", FormatMarkdown},
		{"toon", FormatTOON},
		{" TOON ", FormatTOON},
		{"", FormatText},
		{"unknown", FormatText},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseFormat(tt.input); got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewFormatterWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")

	f, err := NewFormatter(FormatJSON, path, true)
	if err != nil {
		t.Fatalf("NewFormatter() error: %v", err)
	}
	if f.Colored() {
		t.Error("file output should never be colored")
	}
	if err := f.Output(map[string]int{"total_functions": 3}); err != nil {
		t.Fatalf("Output() error: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"total_functions": 3`) {
		t.Errorf("file content = %s", data)
	}
}

func TestNewFormatterInvalidPath(t *testing.T) {
	if _, err := NewFormatter(FormatText, "/nonexistent/dir/out.txt", false); err == nil {
		t.Error("NewFormatter() should fail for an invalid path")
	}
}

func TestWriterFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewWriterFormatter(FormatMarkdown, &buf, true)

	if !f.Colored() {
		t.Error("Colored() = false, want true")
	}
	if err := f.Close(); err != nil {
		t.Errorf("Close() on a writer formatter = %v", err)
	}
	if err := f.Output(&Block{Text: "x"}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "```") {
		t.Errorf("markdown block should be fenced, got %q", buf.String())
	}
}

func interfaceTable() *Table {
	return NewTable(
		"Interfaces",
		[]string{"Interface", "Vendor", "Calls"},
		[][]string{
			{"GPIO", "STM32", "2"},
			{"UART", "STM32", "1"},
		},
		[]string{"Total", "", "3"},
		nil,
	)
}

func TestTableRenderText(t *testing.T) {
	var buf bytes.Buffer
	if err := interfaceTable().RenderText(&buf, false); err != nil {
		t.Fatalf("RenderText() error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Interfaces\n==========", "GPIO", "UART", "STM32", "TOTAL"} {
		if !strings.Contains(strings.ToUpper(out), strings.ToUpper(want)) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTableRenderTextEmpty(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable("Libraries", []string{"Library"}, nil, nil, nil)
	if err := table.RenderText(&buf, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "(none)") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestTableRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := interfaceTable().RenderMarkdown(&buf); err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}
	want := "## Interfaces\n\n" +
		"| Interface | Vendor | Calls |\n" +
		"| --- | --- | --- |\n" +
		"| GPIO | STM32 | 2 |\n" +
		"| UART | STM32 | 1 |\n" +
		"| Total |  | 3 |\n\n"
	if buf.String() != want {
		t.Errorf("RenderMarkdown() =\n%s\nwant\n%s", buf.String(), want)
	}

	buf.Reset()
	if err := NewTable("", []string{"A"}, nil, nil, nil).RenderMarkdown(&buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "_None._\n\n" {
		t.Errorf("empty table markdown = %q", buf.String())
	}
}

func TestTableRenderData(t *testing.T) {
	rows, ok := interfaceTable().RenderData().([]map[string]string)
	if !ok {
		t.Fatalf("RenderData() type = %T", interfaceTable().RenderData())
	}
	if len(rows) != 2 || rows[0]["Interface"] != "GPIO" || rows[1]["Calls"] != "1" {
		t.Errorf("RenderData() = %v", rows)
	}

	data := map[string]int{"GPIO": 2}
	table := NewTable("", nil, nil, nil, data)
	if got, ok := table.RenderData().(map[string]int); !ok || got["GPIO"] != 2 {
		t.Errorf("RenderData() should return wrapped data, got %v", table.RenderData())
	}
}

func TestSectionRender(t *testing.T) {
	s := &Section{
		Title:   "Statistics",
		Content: "3 functions",
		Sections: []Section{
			{Title: "Calls", Content: "2 relations"},
		},
	}

	var buf bytes.Buffer
	if err := s.RenderText(&buf, false); err != nil {
		t.Fatal(err)
	}
	want := "Statistics\n==========\n3 functions\n\nCalls\n-----\n2 relations\n"
	if buf.String() != want {
		t.Errorf("RenderText() = %q, want %q", buf.String(), want)
	}

	buf.Reset()
	if err := s.RenderMarkdown(&buf); err != nil {
		t.Fatal(err)
	}
	want = "## Statistics\n\n3 functions\n\n### Calls\n\n2 relations\n\n"
	if buf.String() != want {
		t.Errorf("RenderMarkdown() = %q, want %q", buf.String(), want)
	}

	if s.RenderData() != s {
		t.Error("RenderData() without data should return the section")
	}
}

func TestBlockRender(t *testing.T) {
	b := &Block{Title: "Call Tree", Text: "main\n  init\n"}

	var buf bytes.Buffer
	if err := b.RenderText(&buf, false); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "Call Tree\n=========\n\nmain\n  init\n" {
		t.Errorf("RenderText() = %q", buf.String())
	}

	buf.Reset()
	if err := b.RenderMarkdown(&buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "## Call Tree\n\n```\nmain\n  init\n```\n\n" {
		t.Errorf("RenderMarkdown() = %q", buf.String())
	}

	data, ok := b.RenderData().(map[string]string)
	if !ok || data["text"] != "main\n  init\n" {
		t.Errorf("RenderData() = %v", b.RenderData())
	}
}

func TestReportRender(t *testing.T) {
	r := &Report{
		Title: "MCU Analysis",
		Sections: []Renderable{
			&Section{Title: "Entry", Content: "main"},
			interfaceTable(),
		},
	}

	var buf bytes.Buffer
	if err := r.RenderText(&buf, false); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "MCU Analysis\n============\n\nEntry\n") {
		t.Errorf("RenderText() = %q", out)
	}

	buf.Reset()
	if err := r.RenderMarkdown(&buf); err != nil {
		t.Fatal(err)
	}
	out = buf.String()
	if !strings.HasPrefix(out, "# MCU Analysis\n\n## Entry\n") || !strings.Contains(out, "| GPIO | STM32 | 2 |") {
		t.Errorf("RenderMarkdown() = %q", out)
	}

	data, ok := r.RenderData().(map[string]any)
	if !ok || data["title"] != "MCU Analysis" || len(data["sections"].([]any)) != 2 {
		t.Errorf("RenderData() = %v", r.RenderData())
	}
}

func TestFormatterOutputRenderable(t *testing.T) {
	table := NewTable("Functions", []string{"Name"}, [][]string{{"main"}}, nil,
		map[string][]string{"functions": {"main"}})

	tests := []struct {
		format Format
		want   string
	}{
		{FormatText, "main"},
		{FormatMarkdown, "| main |"},
		{FormatJSON, `"functions": [`},
		{FormatTOON, "functions"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewWriterFormatter(tt.format, &buf, false).Output(table); err != nil {
				t.Fatalf("Output() error: %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("Output() = %q, want substring %q", buf.String(), tt.want)
			}
		})
	}
}

func TestFormatterOutputRaw(t *testing.T) {
	data := map[string]any{"entry_point": "main", "entry_found": true}

	var buf bytes.Buffer
	if err := NewWriterFormatter(FormatText, &buf, false).Output(data); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("text output of raw data should be JSON: %v", err)
	}
	if decoded["entry_point"] != "main" {
		t.Errorf("decoded = %v", decoded)
	}

	buf.Reset()
	if err := NewWriterFormatter(FormatMarkdown, &buf, false).Output(data); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "```json\n") || !strings.HasSuffix(buf.String(), "```\n") {
		t.Errorf("markdown raw output = %q", buf.String())
	}
}

type sortedNames map[string]struct{}

func (s sortedNames) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string{"a", "b"})
}

func TestMarshalTOONUsesJSONShape(t *testing.T) {
	out, err := MarshalTOON(struct {
		Name  string      `json:"name"`
		Calls sortedNames `json:"calls"`
		Empty string      `json:"empty,omitempty"`
	}{Name: "main", Calls: sortedNames{"b": {}, "a": {}}})
	if err != nil {
		t.Fatalf("MarshalTOON() error: %v", err)
	}
	if !strings.Contains(out, "name: main") {
		t.Errorf("MarshalTOON() = %q", out)
	}
	if !strings.Contains(out, "a,b") {
		t.Errorf("custom marshaler should shape the TOON array, got %q", out)
	}
	if strings.Contains(out, "empty") {
		t.Errorf("omitempty fields should be dropped, got %q", out)
	}
}

func TestStatusColor(t *testing.T) {
	if !strings.Contains(StatusColor(true, "yes"), "yes") {
		t.Error("StatusColor should keep the text")
	}
	if !strings.Contains(StatusColor(false, "no"), "no") {
		t.Error("StatusColor should keep the text")
	}
}
