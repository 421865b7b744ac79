// Package source abstracts where file content comes from: the working tree
// or a git revision.
package source

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ContentSource provides file content from a specific source.
type ContentSource interface {
	// Read returns the content of the file at path.
	Read(path string) ([]byte, error)
}

// FilesystemSource reads files from the local filesystem.
type FilesystemSource struct{}

// NewFilesystem creates a source that reads from the filesystem.
func NewFilesystem() *FilesystemSource {
	return &FilesystemSource{}
}

// Read implements ContentSource.
func (f *FilesystemSource) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// TreeSource reads files from a git tree. Paths are relative to the
// repository root and use forward slashes.
// It is safe for concurrent use by multiple goroutines.
type TreeSource struct {
	tree *object.Tree
	rev  string
	mu   sync.Mutex
}

// NewTree creates a source that reads from a git tree.
func NewTree(tree *object.Tree) *TreeSource {
	return &TreeSource{tree: tree}
}

// OpenRevision opens the repository containing dir and returns a source for
// the tree at rev (a branch, tag, hash or expression such as HEAD~1).
func OpenRevision(dir, rev string) (*TreeSource, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository at %s: %w", dir, err)
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("resolve revision %q: %w", rev, err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("load commit %s: %w", hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("load tree for %s: %w", hash, err)
	}
	return &TreeSource{tree: tree, rev: hash.String()}, nil
}

// Revision returns the resolved commit hash, or "" for a bare tree.
func (t *TreeSource) Revision() string {
	return t.rev
}

// Read implements ContentSource.
// It is safe for concurrent use.
func (t *TreeSource) Read(path string) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := t.tree.File(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	content, err := f.Contents()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return []byte(content), nil
}

// Files lists every regular file in the tree for which keep returns true,
// sorted. A nil keep accepts everything.
func (t *TreeSource) Files(keep func(path string) bool) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []string
	err := t.tree.Files().ForEach(func(f *object.File) error {
		if f.Mode.IsFile() && (keep == nil || keep(f.Name)) {
			out = append(out, f.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
