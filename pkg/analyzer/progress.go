package analyzer

import (
	"context"
	"sync/atomic"
)

// ProgressFunc receives the number of files finished, the number announced
// so far across all phases and the file just finished.
type ProgressFunc func(done, expected int, file string)

// Tracker counts files across the phases of one run. A phase announces its
// files before processing them, so the expected count only grows while the
// run is in progress. Safe for concurrent use.
type Tracker struct {
	done     atomic.Int64
	expected atomic.Int64
	phase    atomic.Value // string
	report   ProgressFunc
}

// NewTracker returns a tracker that calls report after every file.
// report may be nil.
func NewTracker(report ProgressFunc) *Tracker {
	t := &Tracker{report: report}
	t.phase.Store("")
	return t
}

// StartPhase names the current phase and announces its file count.
func (t *Tracker) StartPhase(name string, files int) {
	t.phase.Store(name)
	t.Expect(files)
}

// Phase returns the name given to the last StartPhase.
func (t *Tracker) Phase() string {
	return t.phase.Load().(string)
}

// Expect announces n more files.
func (t *Tracker) Expect(n int) {
	t.expected.Add(int64(n))
}

// SetExpected replaces the expected count.
func (t *Tracker) SetExpected(n int) {
	t.expected.Store(int64(n))
}

// Tick records one finished file.
func (t *Tracker) Tick(file string) {
	done := t.done.Add(1)
	if t.report != nil {
		t.report(int(done), int(t.expected.Load()), file)
	}
}

// Done returns the number of files finished.
func (t *Tracker) Done() int {
	return int(t.done.Load())
}

// Expected returns the number of files announced.
func (t *Tracker) Expected() int {
	return int(t.expected.Load())
}

type trackerKey struct{}

// WithTracker attaches t to ctx so worker pools can tick it.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFromContext returns the tracker attached to ctx, or nil.
func TrackerFromContext(ctx context.Context) *Tracker {
	t, _ := ctx.Value(trackerKey{}).(*Tracker)
	return t
}
