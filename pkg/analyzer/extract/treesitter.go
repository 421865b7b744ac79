package extract

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/mcuscope/pkg/models"
	"github.com/panbanda/mcuscope/pkg/parser"
)

// TreeSitter extracts functions and calls from the C/C++ syntax tree. Each
// call parses with its own parser, so one TreeSitter may be shared across
// workers.
type TreeSitter struct{}

// NewTreeSitter returns the tree-sitter backend.
func NewTreeSitter() *TreeSitter {
	return &TreeSitter{}
}

// Name implements Backend.
func (t *TreeSitter) Name() string { return BackendTreeSitter }

// Functions implements Backend.
func (t *TreeSitter) Functions(path string, text []byte) []*models.FunctionInfo {
	var out []*models.FunctionInfo
	t.walk(path, text, func(root *sitter.Node) {
		parser.Walk(root, text, func(n *sitter.Node, src []byte) bool {
			switch n.Type() {
			case "function_definition":
				if fn := functionFromNode(path, n, src, true); fn != nil {
					out = append(out, fn)
				}
				return false
			case "declaration", "field_declaration":
				for i := range int(n.NamedChildCount()) {
					child := n.NamedChild(i)
					if !strings.HasSuffix(child.Type(), "declarator") {
						continue
					}
					if fn := declarationFromNode(path, n, child, src); fn != nil {
						out = append(out, fn)
					}
				}
				return false
			}
			return true
		})
	})
	return out
}

// CallSites implements Backend.
func (t *TreeSitter) CallSites(path string, text []byte) []models.CallSite {
	var sites []models.CallSite
	t.walk(path, text, func(root *sitter.Node) {
		for _, def := range parser.FindAll(root, text, "function_definition") {
			name := declaratorName(def.ChildByFieldName("declarator"), text)
			body := def.ChildByFieldName("body")
			if !IsFunctionName(name) || body == nil {
				continue
			}
			parser.Walk(body, text, func(n *sitter.Node, src []byte) bool {
				if n.Type() == "function_definition" {
					return false
				}
				if n.Type() != "call_expression" {
					return true
				}
				callee := calleeName(n.ChildByFieldName("function"), src)
				if callee != "" && IsCallCandidate(callee) {
					sites = append(sites, models.CallSite{
						Caller: name,
						Callee: callee,
						File:   path,
						Line:   int(n.StartPoint().Row) + 1,
					})
				}
				return true
			})
		}
	})
	return sites
}

// walk parses text and hands the root to fn. Parse failures yield nothing.
func (t *TreeSitter) walk(path string, text []byte, fn func(root *sitter.Node)) {
	p := parser.New()
	defer p.Close()

	res, err := p.Parse(context.Background(), text, path)
	if err != nil {
		return
	}
	defer res.Close()
	fn(res.Root())
}

func functionFromNode(path string, def *sitter.Node, src []byte, isDef bool) *models.FunctionInfo {
	decl := def.ChildByFieldName("declarator")
	fnDecl, stars := unwrapDeclarator(decl)
	if fnDecl == nil {
		return nil
	}
	name := declaratorName(fnDecl.ChildByFieldName("declarator"), src)
	if !IsFunctionName(name) {
		return nil
	}

	fn := models.NewFunctionInfo(name, path, int(def.StartPoint().Row)+1)
	fn.IsDefinition = isDef
	fn.ReturnType = returnType(def, src, stars)
	fn.Parameters = collapseSpace(strings.TrimSuffix(strings.TrimPrefix(
		parser.NodeText(fnDecl.ChildByFieldName("parameters"), src), "("), ")"))
	fn.IsStatic, fn.IsInline = storageFlags(def, src)

	if body := def.ChildByFieldName("body"); body != nil && isDef {
		fn.Signature = collapseSpace(string(src[def.StartByte():body.StartByte()]))
	} else {
		fn.Signature = collapseSpace(strings.TrimSuffix(strings.TrimSpace(parser.NodeText(def, src)), ";"))
	}
	return fn
}

// declarationFromNode handles a prototype such as "void f(int);". Variable
// declarations and function pointers return nil.
func declarationFromNode(path string, decl, declarator *sitter.Node, src []byte) *models.FunctionInfo {
	fnDecl, stars := unwrapDeclarator(declarator)
	if fnDecl == nil {
		return nil
	}
	name := declaratorName(fnDecl.ChildByFieldName("declarator"), src)
	if !IsFunctionName(name) {
		return nil
	}
	fn := models.NewFunctionInfo(name, path, int(decl.StartPoint().Row)+1)
	fn.ReturnType = returnType(decl, src, stars)
	fn.Parameters = collapseSpace(strings.TrimSuffix(strings.TrimPrefix(
		parser.NodeText(fnDecl.ChildByFieldName("parameters"), src), "("), ")"))
	fn.IsStatic, fn.IsInline = storageFlags(decl, src)
	fn.Signature = collapseSpace(strings.TrimSuffix(strings.TrimSpace(parser.NodeText(decl, src)), ";"))
	return fn
}

// unwrapDeclarator descends through pointer, reference and attributed
// declarators to the function_declarator, counting pointer levels.
func unwrapDeclarator(n *sitter.Node) (*sitter.Node, int) {
	stars := 0
	for n != nil {
		switch n.Type() {
		case "function_declarator":
			inner := n.ChildByFieldName("declarator")
			if inner != nil && inner.Type() == "parenthesized_declarator" {
				return nil, 0
			}
			return n, stars
		case "pointer_declarator":
			stars++
			n = n.ChildByFieldName("declarator")
		case "reference_declarator", "attributed_declarator":
			n = firstNamedDeclarator(n)
		default:
			return nil, 0
		}
	}
	return nil, 0
}

func firstNamedDeclarator(n *sitter.Node) *sitter.Node {
	for i := range int(n.NamedChildCount()) {
		c := n.NamedChild(i)
		if strings.HasSuffix(c.Type(), "declarator") {
			return c
		}
	}
	return nil
}

// declaratorName returns the bare function name of a declarator, dropping any
// C++ scope qualifier.
func declaratorName(n *sitter.Node, src []byte) string {
	for n != nil {
		switch n.Type() {
		case "identifier", "field_identifier":
			return parser.NodeText(n, src)
		case "qualified_identifier":
			n = n.ChildByFieldName("name")
		case "function_declarator", "pointer_declarator":
			n = n.ChildByFieldName("declarator")
		case "reference_declarator", "attributed_declarator":
			n = firstNamedDeclarator(n)
		default:
			return ""
		}
	}
	return ""
}

func calleeName(n *sitter.Node, src []byte) string {
	for n != nil {
		switch n.Type() {
		case "identifier", "field_identifier":
			return parser.NodeText(n, src)
		case "qualified_identifier", "template_function":
			n = n.ChildByFieldName("name")
		case "field_expression":
			n = n.ChildByFieldName("field")
		default:
			return ""
		}
	}
	return ""
}

func returnType(n *sitter.Node, src []byte, stars int) string {
	var parts []string
	for i := range int(n.NamedChildCount()) {
		c := n.NamedChild(i)
		if c.Type() == "type_qualifier" {
			parts = append(parts, parser.NodeText(c, src))
		}
	}
	if t := n.ChildByFieldName("type"); t != nil {
		parts = append(parts, parser.NodeText(t, src))
	}
	rt := strings.Join(parts, " ")
	if stars > 0 {
		rt += " " + strings.Repeat("*", stars)
	}
	return collapseSpace(rt)
}

func storageFlags(n *sitter.Node, src []byte) (isStatic, isInline bool) {
	for i := range int(n.NamedChildCount()) {
		c := n.NamedChild(i)
		if c.Type() != "storage_class_specifier" {
			continue
		}
		switch parser.NodeText(c, src) {
		case "static":
			isStatic = true
		case "inline", "__inline", "__inline__":
			isInline = true
		}
	}
	return isStatic, isInline
}
