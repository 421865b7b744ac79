package extract

import (
	"bytes"
	"regexp"
	"sort"
	"strings"

	"github.com/panbanda/mcuscope/pkg/models"
)

const (
	// maxSignatureLines bounds how far a signature may continue past its
	// first line while parentheses are unbalanced.
	maxSignatureLines = 10
	// bodyLookaheadLines bounds the search for '{' or ';' after a signature.
	bodyLookaheadLines = 4
)

var (
	// prefix-words name ( parameters ); the prefix holds modifiers, attribute
	// macros and the return type.
	signatureRe = regexp.MustCompile(`^((?:[A-Za-z_]\w*(?:\s+|\s*\*+\s*))+)([A-Za-z_]\w*)\s*\(([^)]*)\)`)
	callRe      = regexp.MustCompile(`\b([A-Za-z_]\w*)\s*\(`)
	controlRe   = regexp.MustCompile(`\b(?:if|while|for|switch|return)\b`)
	attributeRe = regexp.MustCompile(`\b(?:__attribute__|__attribute|__declspec)\s*\(`)
)

// signatureModifiers are storage and inlining keywords, including the CMSIS
// and vendor spellings.
var signatureModifiers = map[string]bool{
	"static": true, "extern": true, "inline": true, "__inline": true,
	"__inline__": true, "__INLINE": true, "__STATIC_INLINE": true,
	"__STATIC_FORCEINLINE": true, "__forceinline": true, "__weak": true,
	"__WEAK": true,
}

// tagKeywords introduce a tag name that may be spelled like a macro.
var tagKeywords = map[string]bool{"struct": true, "enum": true, "union": true}

// typeQualifiers never name a return type on their own.
var typeQualifiers = map[string]bool{
	"const": true, "volatile": true, "struct": true, "enum": true,
	"union": true, "restrict": true,
}

// statementWords never appear in a signature prefix; a match containing one
// of them is a statement such as "else foo(x);".
var statementWords = map[string]bool{
	"else": true, "return": true, "case": true, "goto": true, "do": true,
	"typedef": true, "sizeof": true, "default": true, "new": true,
	"delete": true, "throw": true,
}

// Regex is the line-oriented extraction backend.
type Regex struct{}

// NewRegex returns the regex backend.
func NewRegex() *Regex {
	return &Regex{}
}

// Name implements Backend.
func (r *Regex) Name() string { return BackendRegex }

// Functions implements Backend.
func (r *Regex) Functions(path string, text []byte) []*models.FunctionInfo {
	sigs := scanSignatures(path, text)
	out := make([]*models.FunctionInfo, len(sigs))
	for i, s := range sigs {
		out[i] = s.fn
	}
	return out
}

// CallSites implements Backend. Bodies are delimited by brace depth starting
// at the '{' that follows a definition's signature.
func (r *Regex) CallSites(path string, text []byte) []models.CallSite {
	idx := newLineIndex(text)
	var sites []models.CallSite
	coveredUntil := -1

	for _, s := range scanSignatures(path, text) {
		if s.bodyStart < 0 || s.bodyStart <= coveredUntil {
			continue
		}
		end := matchBrace(text, s.bodyStart)
		coveredUntil = end

		body := text[s.bodyStart+1 : end]
		for _, m := range callRe.FindAllSubmatchIndex(body, -1) {
			callee := string(body[m[2]:m[3]])
			if !IsCallCandidate(callee) {
				continue
			}
			sites = append(sites, models.CallSite{
				Caller: s.fn.Name,
				Callee: callee,
				File:   path,
				Line:   idx.line(s.bodyStart + 1 + m[2]),
			})
		}
	}
	return sites
}

// signature is a recognized function header.
type signature struct {
	fn        *models.FunctionInfo
	bodyStart int // offset of the opening brace, -1 for declarations
}

func scanSignatures(path string, text []byte) []signature {
	text = blankAttributes(text)
	idx := newLineIndex(text)
	var sigs []signature

	for i := 0; i < idx.count(); i++ {
		raw := idx.bytes(text, i)
		line := bytes.TrimSpace(raw)
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		open := bytes.IndexByte(line, '(')
		if open < 0 || controlRe.Match(line[:open]) {
			continue
		}

		last := i
		depth := parenDelta(line)
		for depth > 0 && last+1 < idx.count() && last-i < maxSignatureLines {
			last++
			depth += parenDelta(idx.bytes(text, last))
		}

		parts := make([]string, 0, last-i+1)
		for j := i; j <= last; j++ {
			parts = append(parts, string(bytes.TrimSpace(idx.bytes(text, j))))
		}
		joined := strings.Join(parts, " ")

		m := signatureRe.FindStringSubmatch(joined)
		if m == nil {
			continue
		}
		name := m[2]
		modifiers, returnType, ok := splitPrefix(m[1])
		if !ok || !IsFunctionName(name) {
			continue
		}

		openOff := idx.start(i) + bytes.IndexByte(raw, '(')
		closeOff := matchParen(text, openOff, idx.end(last))
		if closeOff < 0 {
			continue
		}
		closeLine := idx.lineOf(closeOff)
		bodyStart, isDef := findBody(text, closeOff+1, idx.end(min(closeLine+bodyLookaheadLines, idx.count()-1)))

		fn := models.NewFunctionInfo(name, path, i+1)
		fn.ReturnType = returnType
		fn.Parameters = collapseSpace(m[3])
		fn.Signature = collapseSpace(m[0])
		fn.IsDefinition = isDef
		for _, mod := range modifiers {
			lower := strings.ToLower(mod)
			fn.IsStatic = fn.IsStatic || strings.Contains(lower, "static")
			fn.IsInline = fn.IsInline || strings.Contains(lower, "inline")
		}

		sigs = append(sigs, signature{fn: fn, bodyStart: bodyStart})
		i = closeLine
	}
	return sigs
}

// splitPrefix separates the words before a function name into modifiers and
// the return type. Attribute-style macros such as __NO_RETURN or IRAM_ATTR
// are dropped unless nothing else names the type. ok is false when the
// prefix contains a statement keyword or no type at all.
func splitPrefix(prefix string) (modifiers []string, returnType string, ok bool) {
	fields := strings.Fields(prefix)
	var kept, all []string
	named := false
	for i, f := range fields {
		word := strings.Trim(f, "*")
		if statementWords[word] {
			return nil, "", false
		}
		if signatureModifiers[word] {
			modifiers = append(modifiers, word)
			continue
		}
		all = append(all, f)
		tagged := i > 0 && tagKeywords[fields[i-1]]
		if word == f && isAttributeMacro(word) && !tagged {
			continue
		}
		if word != "" && !typeQualifiers[word] {
			named = true
		}
		kept = append(kept, f)
	}
	if !named {
		kept = all
	}
	if len(kept) == 0 {
		return nil, "", false
	}
	return modifiers, strings.Join(kept, " "), true
}

// isAttributeMacro reports whether word is spelled like a function attribute
// macro: reserved double-underscore names or upper-case names with an
// underscore.
func isAttributeMacro(word string) bool {
	if strings.HasPrefix(word, "__") {
		return true
	}
	if !strings.Contains(word, "_") {
		return false
	}
	for _, c := range word {
		if c != '_' && (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// blankAttributes replaces __attribute__((...)) and __declspec(...) spans
// with spaces, keeping offsets and newlines. text is copied only when it
// holds an attribute.
func blankAttributes(text []byte) []byte {
	locs := attributeRe.FindAllIndex(text, -1)
	if len(locs) == 0 {
		return text
	}
	out := bytes.Clone(text)
	for _, loc := range locs {
		if out[loc[1]-1] != '(' {
			continue // nested in a span already blanked
		}
		end := matchParen(out, loc[1]-1, len(out))
		if end < 0 {
			continue
		}
		for i := loc[0]; i <= end; i++ {
			if out[i] != '\n' {
				out[i] = ' '
			}
		}
	}
	return out
}

// findBody scans text[from:limit] for the first '{' or ';'. A brace marks a
// definition and its offset is returned.
func findBody(text []byte, from, limit int) (int, bool) {
	for i := from; i < limit && i < len(text); i++ {
		switch text[i] {
		case '{':
			return i, true
		case ';':
			return -1, false
		}
	}
	return -1, false
}

// matchParen returns the offset of the ')' closing the '(' at open, or -1 if
// the parentheses do not balance before limit.
func matchParen(text []byte, open, limit int) int {
	depth := 0
	for i := open; i < limit && i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// matchBrace returns the offset of the '}' closing the '{' at open. An
// unbalanced body extends to the end of text.
func matchBrace(text []byte, open int) int {
	depth := 0
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(text)
}

func parenDelta(line []byte) int {
	return bytes.Count(line, []byte("(")) - bytes.Count(line, []byte(")"))
}

// lineIndex maps byte offsets to lines.
type lineIndex struct {
	starts []int
	size   int
}

func newLineIndex(text []byte) *lineIndex {
	starts := []int{0}
	for i, c := range text {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{starts: starts, size: len(text)}
}

func (l *lineIndex) count() int { return len(l.starts) }

func (l *lineIndex) start(i int) int { return l.starts[i] }

// end returns the offset just past line i, excluding its newline.
func (l *lineIndex) end(i int) int {
	if i+1 < len(l.starts) {
		return l.starts[i+1] - 1
	}
	return l.size
}

func (l *lineIndex) bytes(text []byte, i int) []byte {
	return text[l.start(i):l.end(i)]
}

// lineOf returns the 0-based line containing offset.
func (l *lineIndex) lineOf(offset int) int {
	return sort.Search(len(l.starts), func(i int) bool { return l.starts[i] > offset }) - 1
}

// line returns the 1-based line containing offset.
func (l *lineIndex) line(offset int) int {
	return l.lineOf(offset) + 1
}
