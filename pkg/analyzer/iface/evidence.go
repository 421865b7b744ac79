package iface

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/panbanda/mcuscope/pkg/models"
)

// Evidence is a partial observation of interface and library usage. Only
// interfaces with at least one observation have an entry.
type Evidence struct {
	Interfaces     map[string]*models.InterfaceUsage
	LibraryHeaders map[string]models.Set // library ID -> matched include names
}

// NewEvidence returns empty evidence.
func NewEvidence() *Evidence {
	return &Evidence{
		Interfaces:     make(map[string]*models.InterfaceUsage),
		LibraryHeaders: make(map[string]models.Set),
	}
}

func (e *Evidence) usage(c *Catalog, name string) *models.InterfaceUsage {
	u, ok := e.Interfaces[name]
	if !ok {
		u = c.NewUsage(name)
		e.Interfaces[name] = u
	}
	return u
}

func (e *Evidence) libraryHeaders(id string) models.Set {
	s, ok := e.LibraryHeaders[id]
	if !ok {
		s = make(models.Set)
		e.LibraryHeaders[id] = s
	}
	return s
}

// Merge combines evidence by set union and count addition. Merge is
// commutative and associative, and never modifies its arguments.
func Merge(parts ...*Evidence) *Evidence {
	out := NewEvidence()
	for _, p := range parts {
		if p == nil {
			continue
		}
		for name, u := range p.Interfaces {
			dst, ok := out.Interfaces[name]
			if !ok {
				dst = models.NewInterfaceUsage(u.Name, u.Description, u.Vendor)
				out.Interfaces[name] = dst
			}
			dst.Functions.Union(u.Functions)
			dst.Files.Union(u.Files)
			dst.CallCount += u.CallCount
		}
		for id, headers := range p.LibraryHeaders {
			out.libraryHeaders(id).Union(headers)
		}
	}
	return out
}

// HeaderEvidence matches include names against library header patterns and
// header-name hints. includes maps a file to the headers it includes. Header
// evidence only ever marks files; it never counts calls.
func HeaderEvidence(c *Catalog, includes map[string][]string) *Evidence {
	ev := NewEvidence()
	for _, incs := range includes {
		for _, inc := range incs {
			base := strings.ToLower(path.Base(strings.ReplaceAll(inc, `\`, "/")))

			for _, lib := range c.Libraries {
				if !lib.Header.MatchString(base) {
					continue
				}
				ev.libraryHeaders(lib.ID).Add(inc)
				for _, name := range lib.Interfaces {
					if _, ok := c.Interface(name); ok {
						ev.usage(c, name).Files.Add(inc)
					}
				}
			}

			for _, h := range c.Hints {
				if !strings.Contains(base, h.Substr) {
					continue
				}
				if _, ok := c.Interface(h.Interface); ok {
					ev.usage(c, h.Interface).Files.Add(inc)
				}
			}
		}
	}
	return ev
}

// CallEvidence matches the callee of every call site whose caller is in
// reachable against each interface's prefixes. A site counts once per
// interface but may count for several interfaces.
func CallEvidence(c *Catalog, sites []models.CallSite, reachable models.Set) *Evidence {
	ev := NewEvidence()
	for _, s := range sites {
		if !reachable.Has(s.Caller) {
			continue
		}
		for _, def := range c.Interfaces {
			if !hasAnyPrefix(s.Callee, def.Patterns) {
				continue
			}
			u := ev.usage(c, def.Name)
			u.Functions.Add(s.Callee)
			u.Files.Add(s.File)
			u.CallCount++
		}
	}
	return ev
}

// ScanEvidence is the fallback used when no call graph is available. It
// searches normalized source text for "<pattern>identifier(" and counts each
// match position once per interface.
func ScanEvidence(c *Catalog, texts map[string][]byte) *Evidence {
	ev := NewEvidence()

	files := make([]string, 0, len(texts))
	for f := range texts {
		files = append(files, f)
	}
	sort.Strings(files)

	for _, def := range c.Interfaces {
		res := make([]*regexp.Regexp, len(def.Patterns))
		for i, p := range def.Patterns {
			res[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(p) + `\w*\s*\(`)
		}
		for _, file := range files {
			text := texts[file]
			seen := make(map[int]bool)
			for _, re := range res {
				for _, loc := range re.FindAllIndex(text, -1) {
					if seen[loc[0]] {
						continue
					}
					seen[loc[0]] = true
					name := strings.TrimSpace(strings.TrimSuffix(string(text[loc[0]:loc[1]]), "("))
					u := ev.usage(c, def.Name)
					u.Functions.Add(name)
					u.Files.Add(file)
					u.CallCount++
				}
			}
		}
	}
	return ev
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
