// Package mcu runs the full static analysis of an MCU firmware tree:
// function extraction, call extraction, reachability from the entry point,
// interface classification and statistics.
//
// Analysis is split into fixed phases. Phase 1 extracts functions from every
// file and builds the function table. Phase 2 extracts calls and needs the
// complete table, which it only reads. Both phases run in parallel across
// files and reduce their results in input order, so the same input always
// yields the same result.
package mcu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/panbanda/mcuscope/internal/fileproc"
	"github.com/panbanda/mcuscope/pkg/analyzer"
	"github.com/panbanda/mcuscope/pkg/analyzer/callgraph"
	"github.com/panbanda/mcuscope/pkg/analyzer/extract"
	"github.com/panbanda/mcuscope/pkg/analyzer/iface"
	"github.com/panbanda/mcuscope/pkg/analyzer/normalize"
	"github.com/panbanda/mcuscope/pkg/models"
	"github.com/panbanda/mcuscope/pkg/source"
)

// Defaults used when no option overrides them.
const (
	DefaultEntryPoint    = "main"
	DefaultCallDepth     = 5
	DefaultMaxFileSize   = 10 * 1024 * 1024
	DefaultTextCacheSize = 512
)

// Diagnostic stages.
const (
	StageRead      = "read"
	StageFunctions = "functions"
	StageCalls     = "calls"
)

var (
	// ErrFileTooLarge is reported for files above the configured size limit.
	ErrFileTooLarge = errors.New("file exceeds maximum size")
	// ErrInvariant signals an internal consistency failure. It is the only
	// non-context error Analyze returns.
	ErrInvariant = errors.New("analysis invariant violated")
)

// Analyzer runs the analysis pipeline.
type Analyzer struct {
	backend       extract.Backend
	catalog       *iface.Catalog
	src           source.ContentSource
	entry         string
	callDepth     int
	workers       int
	maxFileSize   int64
	root          string
	chip          *models.ChipInfo
	logger        *slog.Logger
	textCacheSize int
}

// Compile-time check that Analyzer implements FileAnalyzer.
var _ analyzer.FileAnalyzer[*models.AnalysisResult] = (*Analyzer)(nil)

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithBackend sets the extraction backend.
func WithBackend(b extract.Backend) Option {
	return func(a *Analyzer) {
		if b != nil {
			a.backend = b
		}
	}
}

// WithCatalog sets the interface and library tables.
func WithCatalog(c *iface.Catalog) Option {
	return func(a *Analyzer) {
		if c != nil {
			a.catalog = c
		}
	}
}

// WithSource sets where file content is read from.
func WithSource(src source.ContentSource) Option {
	return func(a *Analyzer) {
		if src != nil {
			a.src = src
		}
	}
}

// WithEntryPoint sets the function reachability is computed from.
func WithEntryPoint(name string) Option {
	return func(a *Analyzer) {
		if name != "" {
			a.entry = name
		}
	}
}

// WithCallDepth sets the number of levels in the call tree, root included.
func WithCallDepth(depth int) Option {
	return func(a *Analyzer) {
		if depth > 0 {
			a.callDepth = depth
		}
	}
}

// WithWorkers sets the worker count. Zero or less uses the default.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.workers = n
	}
}

// WithMaxFileSize sets the maximum file size in bytes. Zero disables the limit.
func WithMaxFileSize(size int64) Option {
	return func(a *Analyzer) {
		a.maxFileSize = size
	}
}

// WithProjectRoot makes file paths in the result relative to root.
func WithProjectRoot(root string) Option {
	return func(a *Analyzer) {
		a.root = root
	}
}

// WithChip attaches chip information to results.
func WithChip(chip *models.ChipInfo) Option {
	return func(a *Analyzer) {
		a.chip = chip
	}
}

// WithLogger sets the logger for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithTextCacheSize bounds how many normalized files are kept between
// phases. Evicted files are read and normalized again when needed.
func WithTextCacheSize(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.textCacheSize = n
		}
	}
}

// New creates an analyzer with the regex backend and the default catalog.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		backend:       extract.NewRegex(),
		catalog:       iface.DefaultCatalog(),
		src:           source.NewFilesystem(),
		entry:         DefaultEntryPoint,
		callDepth:     DefaultCallDepth,
		maxFileSize:   DefaultMaxFileSize,
		logger:        slog.New(slog.DiscardHandler),
		textCacheSize: DefaultTextCacheSize,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Close releases analyzer resources.
func (a *Analyzer) Close() {}

// fileFunctions is the phase 1 output for one file.
type fileFunctions struct {
	display   string
	functions []*models.FunctionInfo
	includes  []string
}

// run holds the state of one Analyze call.
type run struct {
	*Analyzer
	texts *lru.Cache[string, []byte]
}

// Analyze analyzes files, given in the order they should be reduced.
// Per-file failures become diagnostics; only cancellation and invariant
// violations are returned as errors.
func (a *Analyzer) Analyze(ctx context.Context, files []string) (*models.AnalysisResult, error) {
	texts, err := lru.New[string, []byte](a.textCacheSize)
	if err != nil {
		return nil, err
	}
	r := &run{Analyzer: a, texts: texts}

	result := models.NewAnalysisResult(a.entry)
	result.Backend = a.backend.Name()
	result.FileStats.Total = len(files)
	if !a.chip.IsZero() {
		chip := *a.chip
		result.Chip = &chip
	}

	tracker := analyzer.TrackerFromContext(ctx)
	if tracker != nil {
		tracker.StartPhase(StageFunctions, len(files))
	}

	// Phase 1: functions and includes.
	phase1, err := fileproc.Map(ctx, files, a.workers, r.extractFunctions)
	if err != nil {
		return nil, err
	}
	a.diagnose(result, StageFunctions, fileproc.Errors(phase1))
	var parsed []string
	for _, o := range phase1 {
		if o.Err != nil {
			continue
		}
		parsed = append(parsed, o.Path)
		for _, fn := range o.Value.functions {
			result.Functions.Add(fn)
		}
		if len(o.Value.includes) > 0 {
			result.Includes[o.Value.display] = o.Value.includes
		}
	}
	result.FileStats.Parsed = len(parsed)

	// Phase 2: calls. The table is complete and only read from here on.
	if tracker != nil {
		tracker.StartPhase(StageCalls, len(parsed))
	}
	table := result.Functions
	phase2, err := fileproc.Map(ctx, parsed, a.workers, func(_ context.Context, path string) (extract.FileCalls, error) {
		text, err := r.text(path)
		if err != nil {
			return extract.FileCalls{}, err
		}
		return extract.ExtractCalls(a.backend, a.display(path), text, table), nil
	})
	if err != nil {
		return nil, err
	}
	a.diagnose(result, StageCalls, fileproc.Errors(phase2))
	var sites []models.CallSite
	for _, o := range phase2 {
		if o.Err != nil {
			continue
		}
		sites = append(sites, o.Value.Sites...)
		result.CallRelations = append(result.CallRelations, o.Value.Relations...)
	}
	extract.Link(table, result.CallRelations)
	if err := checkClosure(table, result.CallRelations); err != nil {
		return nil, err
	}
	result.FileStats.Failed = len(result.Diagnostics)

	// Phase 3: graph.
	adj := callgraph.BuildAdjacency(result.CallRelations)
	result.Adjacency = adj
	result.Reachable, result.EntryFound = callgraph.ReachableFrom(a.entry, table, adj)
	if !result.EntryFound {
		a.logger.Warn("entry point not found", "entry", a.entry, "functions", len(table))
	}
	result.CallGraph = adj.Restrict(result.Reachable)
	result.CallTree = callgraph.BuildTree(a.entry, table, adj, a.callDepth)
	result.Recursion = callgraph.FindRecursion(adj)

	// Phase 4: interfaces.
	var callEv *iface.Evidence
	if result.EntryFound {
		result.InterfaceEvidence = models.EvidenceCallGraph
		callEv = iface.CallEvidence(a.catalog, sites, result.Reachable)
	} else {
		result.InterfaceEvidence = models.EvidenceSourceScan
		callEv = iface.ScanEvidence(a.catalog, r.allTexts(ctx, parsed))
	}
	ev := iface.Merge(iface.HeaderEvidence(a.catalog, result.Includes), callEv)
	result.Interfaces = iface.Classify(a.catalog, ev)
	result.Libraries = iface.DetectLibraries(a.catalog, ev, result.Interfaces)

	// Phase 5: statistics.
	result.FunctionStats = functionStats(table, result.Reachable)
	result.CallStats = callStats(result.CallRelations)

	a.logger.Debug("analysis complete",
		"files", len(files),
		"functions", result.FunctionStats.Total,
		"calls", result.CallStats.TotalCalls,
		"reachable", result.FunctionStats.Reachable,
		"evidence", result.InterfaceEvidence,
	)
	return result, nil
}

func (r *run) extractFunctions(_ context.Context, path string) (fileFunctions, error) {
	raw, err := r.read(path)
	if err != nil {
		return fileFunctions{}, err
	}
	text := normalize.Normalize(raw)
	r.texts.Add(path, text)

	display := r.display(path)
	return fileFunctions{
		display:   display,
		functions: r.backend.Functions(display, text),
		includes:  extract.Includes(raw, text),
	}, nil
}

// text returns the normalized content of path, from the cache when possible.
func (r *run) text(path string) ([]byte, error) {
	if text, ok := r.texts.Get(path); ok {
		return text, nil
	}
	raw, err := r.read(path)
	if err != nil {
		return nil, err
	}
	text := normalize.Normalize(raw)
	r.texts.Add(path, text)
	return text, nil
}

// allTexts collects normalized text keyed by display path for the source
// scan fallback. Unreadable files are skipped; they already have a
// diagnostic from an earlier phase or vanished since.
func (r *run) allTexts(ctx context.Context, files []string) map[string][]byte {
	out := make(map[string][]byte, len(files))
	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		if text, err := r.text(path); err == nil {
			out[r.display(path)] = text
		}
	}
	return out
}

// ReadError reports a file that could not be read.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string { return e.Err.Error() }

func (e *ReadError) Unwrap() error { return e.Err }

func (a *Analyzer) read(path string) ([]byte, error) {
	content, err := a.src.Read(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	if a.maxFileSize > 0 && int64(len(content)) > a.maxFileSize {
		return nil, &ReadError{Path: path, Err: fmt.Errorf("%w (%d > %d bytes)", ErrFileTooLarge, len(content), a.maxFileSize)}
	}
	return content, nil
}

// display returns path relative to the project root with forward slashes.
// Paths outside the root are kept as given.
func (a *Analyzer) display(path string) string {
	if a.root == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(a.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// diagnose records one diagnostic per failed file, in input order, and logs
// a summary for the stage.
func (a *Analyzer) diagnose(result *models.AnalysisResult, stage string, errs *fileproc.ProcessingErrors) {
	if !errs.HasErrors() {
		return
	}
	for _, pe := range errs.Errors {
		d := models.Diagnostic{Path: a.display(pe.Path), Stage: stage, Message: pe.Err.Error()}
		var re *ReadError
		if errors.As(pe, &re) {
			d.Stage = StageRead
		}
		result.Diagnostics = append(result.Diagnostics, d)
		a.logger.Debug("skipping file", "path", d.Path, "stage", d.Stage, "error", pe.Err)
	}
	a.logger.Warn("files skipped", "stage", stage, "count", len(errs.Errors), "error", errs.Error())
}

// checkClosure verifies that every relation names known functions.
func checkClosure(table models.FunctionTable, relations []models.CallRelation) error {
	for _, r := range relations {
		if !table.Has(r.Caller) || !table.Has(r.Callee) {
			return fmt.Errorf("%w: relation %s -> %s references an unknown function", ErrInvariant, r.Caller, r.Callee)
		}
	}
	return nil
}

func functionStats(table models.FunctionTable, reachable models.Set) models.FunctionStats {
	s := models.FunctionStats{Total: len(table), Reachable: reachable.Len()}
	for _, fn := range table {
		if fn.IsDefinition {
			s.Defined++
		}
		if fn.IsStatic {
			s.Static++
		}
		if fn.IsInline {
			s.Inline++
		}
	}
	s.Declared = s.Total - s.Defined
	return s
}

func callStats(relations []models.CallRelation) models.CallStats {
	callers := make(models.Set)
	callees := make(models.Set)
	for _, r := range relations {
		callers.Add(r.Caller)
		callees.Add(r.Callee)
	}
	return models.CallStats{
		TotalCalls:    len(relations),
		UniqueCallers: callers.Len(),
		UniqueCallees: callees.Len(),
	}
}
