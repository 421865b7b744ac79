package extract

import "regexp"

// includeRe locates directives in normalized text, where the target of a
// quoted include has already been blanked.
var includeRe = regexp.MustCompile(`(?m)^[ \t]*#[ \t]*include[ \t]*`)

// includeTargetRe reads the target from the raw text at the same offset.
var includeTargetRe = regexp.MustCompile(`^[ \t]*#[ \t]*include[ \t]*[<"]([^>"\n]+)[>"]`)

// Includes returns the header names included by a file, deduplicated in
// first-seen order. raw and normalized must be the same file before and
// after normalization.
func Includes(raw, normalized []byte) []string {
	var out []string
	seen := make(map[string]bool)
	for _, loc := range includeRe.FindAllIndex(normalized, -1) {
		if loc[0] >= len(raw) {
			break
		}
		m := includeTargetRe.FindSubmatch(raw[loc[0]:])
		if m == nil {
			continue
		}
		name := string(m[1])
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
