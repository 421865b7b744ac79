// Package parser wraps tree-sitter for the C family of languages found in
// MCU firmware trees.
package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
)

// Language is a tree-sitter grammar this package can load.
type Language string

const (
	LangC       Language = "c"
	LangCPP     Language = "cpp"
	LangUnknown Language = "unknown"
)

// DetectLanguage maps a file extension to a grammar. ".h" maps to C; use
// LanguageFor when the content is available.
func DetectLanguage(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".c", ".h":
		return LangC
	case ".cpp", ".cc", ".cxx", ".hpp", ".hxx", ".hh":
		return LangCPP
	default:
		return LangUnknown
	}
}

// cppMarkers are constructs the C grammar cannot parse. Vendor SDKs for
// C++ targets (mbed, Arduino cores) ship them in plain ".h" headers.
var cppMarkers = regexp.MustCompile(`(?m)^\s*(?:(?:class|namespace|using\s+namespace)\b|template\s*<)`)

// LanguageFor picks the grammar for a file: C++ for C++ extensions and for
// ".h" headers containing C++ declarations, C for everything else.
func LanguageFor(path string, src []byte) Language {
	switch lang := DetectLanguage(path); lang {
	case LangCPP:
		return lang
	case LangC:
		if strings.EqualFold(filepath.Ext(path), ".h") && cppMarkers.Match(src) {
			return LangCPP
		}
		return lang
	default:
		return LangC
	}
}

func grammar(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangC:
		return c.GetLanguage(), nil
	case LangCPP:
		return cpp.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("no grammar for language %q", lang)
	}
}

// Parser holds one tree-sitter parser. It is not safe for concurrent use;
// create one per worker.
type Parser struct {
	ts *sitter.Parser
}

// Tree is a parsed file. Close it when done.
type Tree struct {
	*sitter.Tree
	Language Language
	Source   []byte
	Path     string
}

// Root returns the translation unit node.
func (t *Tree) Root() *sitter.Node {
	return t.RootNode()
}

// HasErrors reports whether tree-sitter had to recover from syntax it could
// not parse, typically macro-heavy code the preprocessor would have expanded.
func (t *Tree) HasErrors() bool {
	return t.RootNode().HasError()
}

// New creates a parser.
func New() *Parser {
	return &Parser{ts: sitter.NewParser()}
}

// Parse parses src with the grammar chosen by LanguageFor.
func (p *Parser) Parse(ctx context.Context, src []byte, path string) (*Tree, error) {
	return p.ParseAs(ctx, src, LanguageFor(path, src), path)
}

// ParseAs parses src with an explicit grammar.
func (p *Parser) ParseAs(ctx context.Context, src []byte, lang Language, path string) (*Tree, error) {
	g, err := grammar(lang)
	if err != nil {
		return nil, err
	}
	p.ts.SetLanguage(g)
	tree, err := p.ts.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &Tree{Tree: tree, Language: lang, Source: src, Path: path}, nil
}

// Close releases the parser.
func (p *Parser) Close() {
	p.ts.Close()
}

// Visitor is called for each node in depth-first order. Returning false
// skips the node's children.
type Visitor func(node *sitter.Node, src []byte) bool

// Walk visits node and its descendants.
func Walk(node *sitter.Node, src []byte, visit Visitor) {
	if node == nil || !visit(node, src) {
		return
	}
	for i := range int(node.ChildCount()) {
		Walk(node.Child(i), src, visit)
	}
}

// FindAll returns every node of the given type under root, in source order.
func FindAll(root *sitter.Node, src []byte, nodeType string) []*sitter.Node {
	var found []*sitter.Node
	Walk(root, src, func(n *sitter.Node, _ []byte) bool {
		if n.Type() == nodeType {
			found = append(found, n)
		}
		return true
	})
	return found
}

// NodeText returns the source text of node, or "" for a nil node or one
// whose range lies outside src.
func NodeText(node *sitter.Node, src []byte) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if start > end || end > uint32(len(src)) {
		return ""
	}
	return string(src[start:end])
}
