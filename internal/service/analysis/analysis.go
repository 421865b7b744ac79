// Package analysis is the service layer shared by the CLI, the MCP server
// and watch mode. It turns paths into a file list, consults the result
// cache and runs the MCU analyzer.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/panbanda/mcuscope/internal/cache"
	"github.com/panbanda/mcuscope/internal/scanner"
	"github.com/panbanda/mcuscope/pkg/analyzer"
	"github.com/panbanda/mcuscope/pkg/analyzer/extract"
	"github.com/panbanda/mcuscope/pkg/analyzer/iface"
	"github.com/panbanda/mcuscope/pkg/analyzer/mcu"
	"github.com/panbanda/mcuscope/pkg/config"
	"github.com/panbanda/mcuscope/pkg/models"
	"github.com/panbanda/mcuscope/pkg/source"
)

// Service orchestrates MCU analysis runs.
type Service struct {
	config *config.Config
	cache  *cache.Cache
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithCache sets the result cache. Without one every run analyzes.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithLogger sets the logger passed down to the analyzer.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// New creates a new analysis service.
func New(opts ...Option) *Service {
	s := &Service{
		config: config.LoadOrDefault(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective configuration.
func (s *Service) Config() *config.Config {
	return s.config
}

// Options configures one analysis run. Zero values fall back to the config.
type Options struct {
	Paths      []string
	EntryPoint string
	CallDepth  int
	Backend    string
	Chip       *models.ChipInfo
	// Revision analyzes the git tree at this revision instead of the
	// working copy. The first path locates the repository.
	Revision   string
	NoCache    bool
	OnProgress analyzer.ProgressFunc
}

// Result is the outcome of a run.
type Result struct {
	*models.AnalysisResult
	Root      string
	Files     []string
	Revision  string
	FromCache bool
}

// Analyze resolves paths to source files and analyzes them.
func (s *Service) Analyze(ctx context.Context, opts Options) (*Result, error) {
	cfg := s.config.Analysis
	if len(opts.Paths) == 0 {
		opts.Paths = []string{"."}
	}
	if opts.EntryPoint == "" {
		opts.EntryPoint = cfg.EntryPoint
	}
	if opts.CallDepth <= 0 {
		opts.CallDepth = cfg.CallDepth
	}
	if opts.Backend == "" {
		opts.Backend = cfg.Backend
	}

	backend, err := extract.New(opts.Backend)
	if err != nil {
		return nil, err
	}

	root, err := projectRoot(opts.Paths[0])
	if err != nil {
		return nil, err
	}

	var (
		files []string
		src   source.ContentSource = source.NewFilesystem()
		rev   string
	)
	if opts.Revision != "" {
		tree, err := source.OpenRevision(root, opts.Revision)
		if err != nil {
			return nil, &ScanError{Root: root, Err: err}
		}
		files, err = tree.Files(scanner.NewScanner(s.config).Filter(root))
		if err != nil {
			return nil, &ScanError{Root: root, Err: err}
		}
		src, rev, root = tree, tree.Revision(), ""
	} else {
		files, err = s.collect(opts.Paths)
		if err != nil {
			return nil, err
		}
	}

	res := &Result{Root: root, Files: files, Revision: rev}
	if len(files) == 0 {
		res.AnalysisResult = models.NewAnalysisResult(opts.EntryPoint)
		res.Backend = backend.Name()
		return res, nil
	}

	var key, fingerprint string
	if !opts.NoCache {
		key, fingerprint = s.cacheKey(opts, root, rev, files, src)
	}
	if fingerprint != "" {
		if data, ok := s.cache.Lookup(key, fingerprint); ok {
			var cached models.AnalysisResult
			if err := json.Unmarshal(data, &cached); err == nil {
				s.logger.Debug("cache hit", "root", root, "files", len(files))
				res.AnalysisResult = &cached
				res.FromCache = true
				return res, nil
			}
		}
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Timeout)*time.Second)
		defer cancel()
	}
	if opts.OnProgress != nil {
		ctx = analyzer.WithTracker(ctx, analyzer.NewTracker(opts.OnProgress))
	}

	a := mcu.New(
		mcu.WithBackend(backend),
		mcu.WithCatalog(s.catalog()),
		mcu.WithSource(src),
		mcu.WithEntryPoint(opts.EntryPoint),
		mcu.WithCallDepth(opts.CallDepth),
		mcu.WithWorkers(cfg.Workers),
		mcu.WithMaxFileSize(cfg.MaxFileSize),
		mcu.WithProjectRoot(root),
		mcu.WithChip(opts.Chip),
		mcu.WithLogger(s.logger),
	)
	defer a.Close()

	result, err := a.Analyze(ctx, files)
	if err != nil {
		return nil, err
	}
	res.AnalysisResult = result

	if fingerprint != "" {
		if data, err := json.Marshal(result); err == nil {
			if err := s.cache.Store(key, fingerprint, data); err != nil {
				s.logger.Warn("cache write failed", "error", err)
			}
		}
	}
	return res, nil
}

// collect expands paths into a deduplicated file list. Directories are
// scanned in lexical order; files are kept when the scanner accepts them.
func (s *Service) collect(paths []string) ([]string, error) {
	sc := scanner.NewScanner(s.config)
	seen := make(map[string]bool)
	var files []string
	add := func(f string) {
		if abs, err := filepath.Abs(f); err == nil {
			f = abs
		}
		if !seen[f] {
			seen[f] = true
			files = append(files, f)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, &PathError{Path: p, Err: err}
		}
		if !info.IsDir() {
			ok, err := sc.ScanFile(p)
			if err != nil {
				return nil, &PathError{Path: p, Err: err}
			}
			if ok {
				add(p)
			}
			continue
		}
		found, err := sc.ScanDir(p)
		if err != nil {
			return nil, &ScanError{Root: p, Err: err}
		}
		for _, f := range found {
			add(f)
		}
	}
	return files, nil
}

// projectRoot is the directory results are made relative to: the first
// path itself, or its parent for a file.
func projectRoot(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &PathError{Path: path, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", &PathError{Path: path, Err: err}
	}
	if !info.IsDir() {
		abs = filepath.Dir(abs)
	}
	return abs, nil
}

// catalog applies configured interface overrides to the default tables.
func (s *Service) catalog() *iface.Catalog {
	c := iface.DefaultCatalog()
	if len(s.config.Interfaces.Patterns) > 0 {
		c = c.WithPatterns(s.config.Interfaces.Patterns)
	}
	if len(s.config.Interfaces.Hints) > 0 {
		c = c.WithHints(s.config.Interfaces.Hints)
	}
	return c
}

// cacheKey returns the entry key and content fingerprint for a run. An empty
// fingerprint means the run is not cached.
func (s *Service) cacheKey(opts Options, root, rev string, files []string, src source.ContentSource) (string, string) {
	if !s.cache.Enabled() {
		return "", ""
	}
	cfg := s.config
	settings := []string{
		"entry=" + opts.EntryPoint,
		fmt.Sprintf("depth=%d", opts.CallDepth),
		"backend=" + opts.Backend,
		fmt.Sprintf("max=%d", cfg.Analysis.MaxFileSize),
		"rev=" + rev,
	}
	if overrides, err := json.Marshal(cfg.Interfaces); err == nil {
		settings = append(settings, "interfaces="+string(overrides))
	}
	if opts.Chip != nil {
		if chip, err := json.Marshal(opts.Chip); err == nil {
			settings = append(settings, "chip="+string(chip))
		}
	}
	fp, err := cache.Fingerprint(strings.Join(settings, "\n"), files, src.Read)
	if err != nil {
		s.logger.Debug("not caching run", "error", err)
		return "", ""
	}
	return "analysis:" + root + "@" + rev, fp
}
