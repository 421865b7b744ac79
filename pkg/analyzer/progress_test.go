package analyzer

import (
	"context"
	"sync"
	"testing"
)

type tick struct {
	done, expected int
	file           string
}

func TestTracker_Phases(t *testing.T) {
	var (
		mu    sync.Mutex
		ticks []tick
	)
	tracker := NewTracker(func(done, expected int, file string) {
		mu.Lock()
		ticks = append(ticks, tick{done, expected, file})
		mu.Unlock()
	})

	tracker.StartPhase("functions", 2)
	tracker.Tick("main.c")
	tracker.Tick("gpio.c")
	if got := tracker.Phase(); got != "functions" {
		t.Errorf("Phase() = %q, want functions", got)
	}

	tracker.StartPhase("calls", 2)
	tracker.Tick("main.c")
	tracker.Tick("gpio.c")

	if got := tracker.Phase(); got != "calls" {
		t.Errorf("Phase() = %q, want calls", got)
	}
	if tracker.Done() != 4 || tracker.Expected() != 4 {
		t.Errorf("Done/Expected = %d/%d, want 4/4", tracker.Done(), tracker.Expected())
	}

	want := []tick{{1, 2, "main.c"}, {2, 2, "gpio.c"}, {3, 4, "main.c"}, {4, 4, "gpio.c"}}
	if len(ticks) != len(want) {
		t.Fatalf("got %d callbacks, want %d", len(ticks), len(want))
	}
	for i := range want {
		if ticks[i] != want[i] {
			t.Errorf("callback %d = %+v, want %+v", i, ticks[i], want[i])
		}
	}
}

func TestTracker_SetExpected(t *testing.T) {
	tracker := NewTracker(nil)
	if tracker.Phase() != "" {
		t.Errorf("new tracker phase = %q, want empty", tracker.Phase())
	}
	tracker.Expect(5)
	tracker.SetExpected(3)
	if got := tracker.Expected(); got != 3 {
		t.Errorf("Expected() = %d, want 3", got)
	}
}

func TestTracker_ConcurrentTicks(t *testing.T) {
	tracker := NewTracker(nil)
	tracker.Expect(100)

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Tick("uart.c")
		}()
	}
	wg.Wait()

	if got := tracker.Done(); got != 100 {
		t.Errorf("Done() = %d, want 100", got)
	}
}

func TestTrackerContext(t *testing.T) {
	if TrackerFromContext(context.Background()) != nil {
		t.Error("context without tracker should yield nil")
	}
	tracker := NewTracker(nil)
	ctx := WithTracker(context.Background(), tracker)
	if TrackerFromContext(ctx) != tracker {
		t.Error("TrackerFromContext should return the attached tracker")
	}
}
