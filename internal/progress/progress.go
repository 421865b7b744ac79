// Package progress draws terminal progress for long analyses.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Bar wraps a progress bar for file processing.
type Bar struct {
	bar   *progressbar.ProgressBar
	label string
	out   io.Writer

	mu   sync.Mutex
	last int
}

// NewBar creates a progress bar with the given label. The total grows as the
// analyzer announces work, so it may start at zero.
func NewBar(label string, total int) *Bar {
	return newBar(os.Stderr, label, total)
}

func newBar(w io.Writer, label string, total int) *Bar {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Bar{bar: bar, label: label, out: w}
}

// Update moves the bar to current out of total. It matches
// analyzer.ProgressFunc and is safe for concurrent use.
func (b *Bar) Update(current, total int, _ string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if int64(total) != b.bar.GetMax64() {
		b.bar.ChangeMax(total)
	}
	// Callbacks from concurrent workers may arrive out of order.
	if current > b.last {
		b.last = current
		_ = b.bar.Set(current)
	}
}

// FinishSuccess clears the bar completely (no output).
func (b *Bar) FinishSuccess() {
	_ = b.bar.Finish()
	_ = b.bar.Clear()
}

// FinishSkipped clears the bar and prints a skip message.
func (b *Bar) FinishSkipped(reason string) {
	b.FinishSuccess()
	fmt.Fprintf(b.out, "  %s skipped (%s)\n", b.label, reason)
}
