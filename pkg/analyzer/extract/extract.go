// Package extract finds function definitions, declarations and call sites in
// normalized C/C++ source.
//
// Two backends are available. Regex is the default line-oriented scanner that
// tolerates unbuildable vendor trees. TreeSitter uses the C/C++ grammars for
// higher precision on well-formed code. Both produce the same models, so the
// rest of the pipeline does not depend on the choice.
package extract

import (
	"fmt"
	"strings"

	"github.com/panbanda/mcuscope/pkg/models"
)

// Backend extracts structure from one normalized file. Implementations must
// be safe for concurrent use by multiple goroutines.
type Backend interface {
	// Name identifies the backend in results and logs.
	Name() string
	// Functions returns the functions defined or declared in text.
	Functions(path string, text []byte) []*models.FunctionInfo
	// CallSites returns every call candidate inside a function body, in
	// source order, including calls to functions defined elsewhere.
	CallSites(path string, text []byte) []models.CallSite
}

// Backend names accepted by New.
const (
	BackendRegex      = "regex"
	BackendTreeSitter = "treesitter"
)

// New returns the backend with the given name.
func New(name string) (Backend, error) {
	switch strings.ToLower(name) {
	case "", BackendRegex:
		return NewRegex(), nil
	case BackendTreeSitter, "tree-sitter":
		return NewTreeSitter(), nil
	default:
		return nil, fmt.Errorf("unknown extraction backend %q", name)
	}
}

// callStoplist holds tokens that look like calls but never are.
var callStoplist = map[string]bool{
	"if": true, "while": true, "for": true, "switch": true, "sizeof": true,
	"return": true, "case": true, "default": true, "else": true, "do": true,
	"typedef": true, "__attribute__": true, "__declspec": true,
}

// reservedNames are never function names.
var reservedNames = map[string]bool{
	"if": true, "while": true, "for": true, "switch": true, "return": true,
	"sizeof": true, "case": true, "default": true, "else": true, "do": true,
	"goto": true, "break": true, "continue": true, "typedef": true,
	"void": true, "char": true, "short": true, "int": true, "long": true,
	"float": true, "double": true, "signed": true, "unsigned": true,
	"struct": true, "union": true, "enum": true, "const": true,
	"volatile": true, "static": true, "extern": true, "inline": true,
	"register": true, "auto": true, "_Bool": true, "bool": true,
	"__attribute__": true, "__declspec": true,
}

// IsCallCandidate reports whether token may name a called function.
func IsCallCandidate(token string) bool {
	return !callStoplist[token] && !isNumeric(token) && len(token) >= 2
}

// IsFunctionName reports whether name may name a function.
func IsFunctionName(name string) bool {
	return !reservedNames[name] && !isNumeric(name) && len(name) >= 2
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FileCalls holds the call extraction output for one file.
type FileCalls struct {
	Sites     []models.CallSite
	Relations []models.CallRelation
}

// ExtractCalls runs the backend's call-site scan on one file and resolves the
// sites against table. Sites whose caller or callee is not in the table do
// not become relations. table is only read.
func ExtractCalls(b Backend, path string, text []byte, table models.FunctionTable) FileCalls {
	sites := b.CallSites(path, text)
	out := FileCalls{Sites: sites}
	for _, s := range sites {
		if !table.Has(s.Caller) || !table.Has(s.Callee) {
			continue
		}
		out.Relations = append(out.Relations, models.CallRelation{
			Caller: s.Caller,
			Callee: s.Callee,
			File:   s.File,
			Line:   s.Line,
			Type:   models.CallDirect,
		})
	}
	return out
}

// Link records every relation on both endpoints so that callee is in
// caller.Calls exactly when caller is in callee.CalledBy. Relations naming
// unknown functions are ignored.
func Link(table models.FunctionTable, relations []models.CallRelation) {
	for _, r := range relations {
		caller, ok := table[r.Caller]
		if !ok {
			continue
		}
		callee, ok := table[r.Callee]
		if !ok {
			continue
		}
		caller.Calls.Add(r.Callee)
		callee.CalledBy.Add(r.Caller)
	}
}

// collapseSpace joins whitespace runs into single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
