// Package output renders command results as text, markdown, JSON or TOON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	toon "github.com/toon-format/toon-go"
)

// Format is an output encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatTOON     Format = "toon"
)

var formatAliases = map[string]Format{
	"json":     FormatJSON,
	"markdown": FormatMarkdown,
	"md":       FormatMarkdown,
	"toon":     FormatTOON,
}

// ParseFormat maps a flag or config value to a Format. Unknown values are
// text.
func ParseFormat(s string) Format {
	if f, ok := formatAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return f
	}
	return FormatText
}

// Renderable is a result that knows its human-readable forms. JSON and TOON
// encode RenderData.
type Renderable interface {
	RenderText(w io.Writer, colored bool) error
	RenderMarkdown(w io.Writer) error
	RenderData() any
}

// Formatter writes results in one format to stdout or a file.
type Formatter struct {
	format  Format
	w       io.Writer
	closer  io.Closer
	colored bool
}

// NewFormatter writes to the file at path, or stdout when path is empty.
// Files never receive color codes.
func NewFormatter(format Format, path string, colored bool) (*Formatter, error) {
	if path == "" {
		return NewWriterFormatter(format, os.Stdout, colored), nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return &Formatter{format: format, w: f, closer: f}, nil
}

// NewWriterFormatter wraps w. The caller owns w.
func NewWriterFormatter(format Format, w io.Writer, colored bool) *Formatter {
	return &Formatter{format: format, w: w, colored: colored}
}

// Close closes the output file, if the formatter opened one.
func (f *Formatter) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

// Colored reports whether text output carries ANSI colors.
func (f *Formatter) Colored() bool {
	return f.colored
}

// Output writes v. Values that are not Renderable are encoded as JSON,
// fenced in markdown mode, or as TOON.
func (f *Formatter) Output(v any) error {
	r, ok := v.(Renderable)
	switch {
	case ok && f.format == FormatMarkdown:
		return r.RenderMarkdown(f.w)
	case ok && f.format == FormatText:
		return r.RenderText(f.w, f.colored)
	case ok:
		v = r.RenderData()
	case f.format == FormatMarkdown:
		io.WriteString(f.w, "```json\n")
		if err := writeJSON(f.w, v); err != nil {
			return err
		}
		_, err := io.WriteString(f.w, "```\n")
		return err
	}

	if f.format == FormatTOON {
		s, err := MarshalTOON(v)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(f.w, s)
		return err
	}
	return writeJSON(f.w, v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// MarshalTOON encodes v as TOON. The value goes through its JSON form first
// so custom marshalers (sorted sets, omitempty) shape the output the same
// way in both formats.
func MarshalTOON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}
	out, err := toon.Marshal(generic, toon.WithIndent(2))
	if err != nil {
		return "", err
	}
	return string(out), nil
}
