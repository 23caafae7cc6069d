package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestIntervalSchedulerRunsImmediatelyAndRepeats(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	reached := make(chan struct{})
	s := NewIntervalScheduler(10*time.Millisecond, time.UTC)

	err := s.Start(context.Background(), func(time.Time) {
		if runs.Add(1) == 3 {
			close(reached)
		}
	})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	select {
	case <-reached:
	case <-time.After(2 * time.Second):
		t.Fatalf("job ran only %d times", runs.Load())
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	if runs.Load() != after {
		t.Fatalf("job kept running after Stop")
	}
}

func TestIntervalSchedulerStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	first := make(chan struct{}, 1)
	s := NewIntervalScheduler(5*time.Millisecond, time.UTC)
	err := s.Start(ctx, func(time.Time) {
		runs.Add(1)
		select {
		case first <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	<-first
	cancel()

	time.Sleep(20 * time.Millisecond)
	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	if runs.Load() != after {
		t.Fatalf("job kept running after cancel")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop after cancel returned error: %v", err)
	}
}

func TestIntervalSchedulerIgnoresInvalidSetup(t *testing.T) {
	t.Parallel()

	if err := NewIntervalScheduler(0, nil).Start(context.Background(), func(time.Time) {
		t.Errorf("job must not run without an interval")
	}); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if err := NewIntervalScheduler(time.Second, nil).Stop(context.Background()); err != nil {
		t.Fatalf("Stop on an idle scheduler returned error: %v", err)
	}
}
