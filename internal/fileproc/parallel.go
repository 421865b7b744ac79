// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/panbanda/mcuscope/pkg/analyzer"
)

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e ProcessingError) Unwrap() error {
	return e.Err
}

// ProcessingErrors collects multiple file processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
// 2x suits the mix of file reads and regex scanning.
const DefaultWorkerMultiplier = 2

// DefaultWorkers returns the worker count used when none is configured.
func DefaultWorkers() int {
	return runtime.NumCPU() * DefaultWorkerMultiplier
}

// Outcome is the result of processing one file.
type Outcome[T any] struct {
	Path  string
	Value T
	Err   error
}

// Map runs fn over files with at most workers goroutines (<= 0 means
// DefaultWorkers) and returns one Outcome per file in input order, so the
// caller can reduce results deterministically.
//
// Cancellation is checked before each file; files not started when ctx is
// done are skipped and Map returns ctx.Err(). A failing file never stops the
// others. If ctx carries an analyzer.Tracker it is ticked once per file.
func Map[T any](ctx context.Context, files []string, workers int, fn func(ctx context.Context, path string) (T, error)) ([]Outcome[T], error) {
	if len(files) == 0 {
		return nil, ctx.Err()
	}
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	tracker := analyzer.TrackerFromContext(ctx)

	out := make([]Outcome[T], len(files))
	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx)
	for i, path := range files {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				out[i] = Outcome[T]{Path: path, Err: err}
				return err
			}
			v, err := fn(ctx, path)
			out[i] = Outcome[T]{Path: path, Value: v, Err: err}
			if tracker != nil {
				tracker.Tick(path)
			}
			return nil // a single file never stops the pool
		})
	}
	_ = p.Wait()

	return out, ctx.Err()
}

// Errors collects the failed outcomes, or returns nil when all succeeded.
func Errors[T any](outcomes []Outcome[T]) *ProcessingErrors {
	errs := &ProcessingErrors{}
	for _, o := range outcomes {
		if o.Err != nil {
			errs.Add(o.Path, o.Err)
		}
	}
	if !errs.HasErrors() {
		return nil
	}
	return errs
}
