// Package analyzer holds what the analysis pipelines share: the contract
// they implement and the progress plumbing that connects them to the CLI.
package analyzer

import "context"

// FileAnalyzer turns a set of source files into one result.
// Per-file problems belong in T; the error is for the run as a whole.
type FileAnalyzer[T any] interface {
	Analyze(ctx context.Context, files []string) (T, error)
	Close()
}
