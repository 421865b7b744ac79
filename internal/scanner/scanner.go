package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/panbanda/mcuscope/pkg/config"
	"github.com/panbanda/mcuscope/pkg/parser"
)

// Scanner finds C/C++ source files in a firmware tree.
type Scanner struct {
	config   *config.Config
	matchers []gitignore.Matcher
}

// NewScanner creates a new file scanner.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// findGitRoot finds the root of the git repository by looking for .git directory.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadExcludePatterns combines config patterns (gitignore syntax) with the
// .gitignore files of the enclosing repository.
func (s *Scanner) loadExcludePatterns(root string) {
	s.matchers = nil
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	var patterns []gitignore.Pattern

	for _, pattern := range s.config.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}

	if s.config.Exclude.Gitignore {
		gitRoot := findGitRoot(root)
		if gitRoot == "" {
			// Not a repository: still honour a .gitignore at the root.
			gitRoot = root
		}
		if gitPatterns, err := gitignore.ReadPatterns(osfs.New(gitRoot), nil); err == nil {
			patterns = append(patterns, rebase(gitPatterns, gitRoot, root)...)
		}
	}

	if len(patterns) > 0 {
		s.matchers = append(s.matchers, gitignore.NewMatcher(patterns))
	}
}

// rebase keeps .gitignore patterns usable for paths relative to root when
// root lies below the repository root.
func rebase(patterns []gitignore.Pattern, gitRoot, root string) []gitignore.Pattern {
	rel, err := filepath.Rel(gitRoot, root)
	if err != nil || rel == "." {
		return patterns
	}
	return append([]gitignore.Pattern(nil), &prefixed{prefix: strings.Split(filepath.ToSlash(rel), "/"), inner: gitignore.NewMatcher(patterns)})
}

// prefixed matches paths relative to a subdirectory against patterns
// relative to the repository root.
type prefixed struct {
	prefix []string
	inner  gitignore.Matcher
}

func (p *prefixed) Match(path []string, isDir bool) gitignore.MatchResult {
	full := append(slices.Clone(p.prefix), path...)
	if p.inner.Match(full, isDir) {
		return gitignore.Exclude
	}
	return gitignore.NoMatch
}

// isExcluded checks if a path matches any exclusion pattern.
func (s *Scanner) isExcluded(path string, isDir bool) bool {
	if isDir && s.isExcludedDir(filepath.Base(path)) {
		return true
	}
	if len(s.matchers) == 0 {
		return false
	}

	pathParts := strings.Split(filepath.ToSlash(path), "/")
	for _, m := range s.matchers {
		if m.Match(pathParts, isDir) {
			return true
		}
	}
	return false
}

func (s *Scanner) isExcludedDir(name string) bool {
	return slices.ContainsFunc(s.config.Exclude.Dirs, func(d string) bool {
		return strings.EqualFold(d, name)
	})
}

// hasSourceExtension reports whether path has one of the configured
// extensions, compared case-insensitively.
func (s *Scanner) hasSourceExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if len(s.config.Analysis.Extensions) == 0 {
		return parser.DetectLanguage(path) != parser.LangUnknown
	}
	return slices.ContainsFunc(s.config.Analysis.Extensions, func(e string) bool {
		return strings.ToLower(e) == ext
	})
}

// isIncluded applies the optional doublestar include globs to a path
// relative to the scan root.
func (s *Scanner) isIncluded(rel string) bool {
	if len(s.config.Analysis.Include) == 0 {
		return true
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range s.config.Analysis.Include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// ScanDir recursively scans a directory for source files. Results are in
// lexical walk order, so repeated scans of the same tree agree.
// Validates that all paths stay within the root directory to prevent traversal attacks.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	files := make([]string, 0, 256)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	s.loadExcludePatterns(root)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		relPath, _ := filepath.Rel(root, path)
		if relPath == "." {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() {
			if s.isExcluded(relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.isExcluded(relPath, false) || !s.hasSourceExtension(path) || !s.isIncluded(relPath) {
			return nil
		}
		files = append(files, path)
		return nil
	})

	return files, walkErr
}

// Filter returns a predicate over paths relative to the repository that
// contains root, accepting what ScanDir would accept on disk: excluded
// directories, exclude patterns, .gitignore, extensions and include globs all
// apply. It serves trees read from a git revision.
func (s *Scanner) Filter(root string) func(rel string) bool {
	base := root
	if abs, err := filepath.Abs(root); err == nil {
		base = abs
	}
	if gitRoot := findGitRoot(base); gitRoot != "" {
		base = gitRoot
	}
	s.loadExcludePatterns(base)

	return func(rel string) bool {
		rel = filepath.ToSlash(rel)
		parts := strings.Split(rel, "/")
		for i := 1; i < len(parts); i++ {
			if s.isExcluded(strings.Join(parts[:i], "/"), true) {
				return false
			}
		}
		return !s.isExcluded(rel, false) && s.hasSourceExtension(rel) && s.isIncluded(rel)
	}
}

// isWithinRoot checks if a path is contained within the root directory.
// Returns false if the path escapes via symlinks or relative paths.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)

	// Add separator to prevent "/root2" matching "/root"
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}

// ScanFile checks if a single file should be analyzed.
func (s *Scanner) ScanFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}

	if len(s.matchers) == 0 {
		s.loadExcludePatterns(filepath.Dir(path))
	}
	if s.isExcluded(filepath.Base(path), false) {
		return false, nil
	}
	return s.hasSourceExtension(path), nil
}
