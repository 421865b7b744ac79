package models

import "sort"

// FunctionInfo describes one function observed in the source tree.
// Names form a single global namespace; see FunctionTable.Add for the
// collision policy.
type FunctionInfo struct {
	Name         string `json:"name"`
	File         string `json:"file_path"`
	Line         int    `json:"line_number"` // 1-based, line of the signature
	ReturnType   string `json:"return_type"`
	Parameters   string `json:"parameters"`
	Signature    string `json:"signature"`
	IsDefinition bool   `json:"is_definition"`
	IsStatic     bool   `json:"is_static"`
	IsInline     bool   `json:"is_inline"`
	Calls        Set    `json:"calls"`
	CalledBy     Set    `json:"called_by"`
}

// NewFunctionInfo returns a FunctionInfo with empty edge sets.
func NewFunctionInfo(name, file string, line int) *FunctionInfo {
	return &FunctionInfo{
		Name:     name,
		File:     file,
		Line:     line,
		Calls:    make(Set),
		CalledBy: make(Set),
	}
}

// FunctionTable maps bare function names to their info.
type FunctionTable map[string]*FunctionInfo

// Add inserts fn using the collision policy: a definition replaces a
// declaration, otherwise the first entry seen is kept. It reports whether
// fn was stored.
func (t FunctionTable) Add(fn *FunctionInfo) bool {
	if fn.Calls == nil {
		fn.Calls = make(Set)
	}
	if fn.CalledBy == nil {
		fn.CalledBy = make(Set)
	}
	existing, ok := t[fn.Name]
	if !ok || (fn.IsDefinition && !existing.IsDefinition) {
		t[fn.Name] = fn
		return true
	}
	return false
}

// Has reports whether name is a known function.
func (t FunctionTable) Has(name string) bool {
	_, ok := t[name]
	return ok
}

// Names returns all function names in lexical order.
func (t FunctionTable) Names() []string {
	names := make([]string, 0, len(t))
	for n := range t {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Sorted returns the functions ordered by name.
func (t FunctionTable) Sorted() []*FunctionInfo {
	out := make([]*FunctionInfo, 0, len(t))
	for _, n := range t.Names() {
		out = append(out, t[n])
	}
	return out
}
