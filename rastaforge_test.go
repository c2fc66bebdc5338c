package rastaforge

import (
	"testing"
	"time"

	"github.com/zaynotley/rastaforge/internal/accept"
	"github.com/zaynotley/rastaforge/internal/colordist"
	"github.com/zaynotley/rastaforge/internal/config"
	"github.com/zaynotley/rastaforge/internal/raster"
)

func testOptions(maxEvals uint64) Options {
	return Options{
		Target: raster.NewTargetImage(2),
		Metric: colordist.Euclidean,
		Config: config.Config{
			Threads:    1,
			MaxEvals:   maxEvals,
			SavePeriod: 0,
			CacheSize:  1 << 20,
			Optimizer:  accept.DLAS,
			Solutions:  1,
		},
	}
}

func TestNewRejectsNilTarget(t *testing.T) {
	opts := testOptions(1)
	opts.Target = nil
	if _, err := New(opts); err == nil {
		t.Fatalf("New should reject a nil target image")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	opts := testOptions(1)
	opts.Config.Threads = 0
	if _, err := New(opts); err == nil {
		t.Fatalf("New should propagate Config.Validate's error for an invalid config")
	}
}

func TestNewSucceedsWithValidOptions(t *testing.T) {
	opt, err := New(testOptions(1))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if opt == nil {
		t.Fatalf("New returned a nil Optimizer with a nil error")
	}
}

func TestStartRunsToMaxEvalsAndWaitReturns(t *testing.T) {
	opt, err := New(testOptions(3))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	opt.Start()

	done := make(chan error, 1)
	go func() { done <- opt.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("optimiser did not finish within max_evals")
	}

	_, _, _, evaluations, _, _ := opt.Best()
	if evaluations < 3 {
		t.Errorf("evaluations = %d, want >= 3", evaluations)
	}
}

func TestStopHaltsARunningOptimizer(t *testing.T) {
	opt, err := New(testOptions(0)) // unbounded
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	opt.Start()
	time.Sleep(20 * time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- opt.Stop() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Stop returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("Stop did not return in time")
	}
}
