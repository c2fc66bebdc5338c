// Package config is the pure-data configuration bag the optimiser core
// is constructed from (spec.md §6 "Configuration options"). The core
// never reads os.Args or the environment; cmd/rastaforge builds a
// Config from stdlib flag and hands it in. Grounded on the teacher's
// machine_config.go struct-plus-Validate shape.
package config

import (
	"github.com/zaynotley/rastaforge/internal/accept"
	"github.com/zaynotley/rastaforge/internal/colordist"
	"github.com/zaynotley/rastaforge/internal/rasterr"
)

// AfterDualSteps selects how the B frame is initialised at the start of
// BOOTSTRAP_B.
type AfterDualSteps int

const (
	AfterDualFresh AfterDualSteps = iota
	AfterDualCopy
)

// Config is every tunable the optimiser core reads at construction.
type Config struct {
	Threads  int
	MaxEvals uint64

	// SavePeriod <0 means time-based (every 30s); >0 means every N
	// evaluations; the zero value disables autosave.
	SavePeriod int64

	InitialSeed uint64
	CacheSize   int64 // byte budget per worker arena, >= 1 MiB

	Optimizer accept.Mode
	Solutions int // acceptance-history length L

	UnstuckAfter     int
	UnstuckDriftNorm float64

	Metric colordist.Metric

	DualMode          bool
	FirstDualSteps    uint64
	AlteringDualSteps uint64
	AfterDualSteps    AfterDualSteps
	FlickerLumaTol    float64
	FlickerChromaTol  float64
}

// Default returns a Config with every documented default (spec.md §6).
func Default() Config {
	return Config{
		Threads:     1,
		MaxEvals:    0, // 0 means unbounded
		SavePeriod:  -1,
		InitialSeed: 1,
		CacheSize:   1 << 20,
		Optimizer:   accept.DLAS,
		Solutions:   1,
	}
}

// Validate rejects configurations the core must refuse to start on
// (spec.md §7 "Configuration error").
func (c Config) Validate() error {
	if c.Threads < 1 {
		return rasterr.Config("threads must be >= 1, got %d", c.Threads)
	}
	if c.Solutions < 1 {
		return rasterr.Config("solutions (acceptance history length L) must be >= 1, got %d", c.Solutions)
	}
	if c.CacheSize < 1<<20 {
		return rasterr.Config("cache_size must be >= 1 MiB, got %d", c.CacheSize)
	}
	if c.UnstuckAfter < 0 {
		return rasterr.Config("unstuck_after must be >= 0, got %d", c.UnstuckAfter)
	}
	if c.UnstuckDriftNorm < 0 {
		return rasterr.Config("unstuck_drift_norm must be >= 0, got %f", c.UnstuckDriftNorm)
	}
	if c.DualMode {
		if c.FlickerLumaTol < 0 || c.FlickerLumaTol > 1 {
			return rasterr.Config("flicker_luma_tol must be in [0,1], got %f", c.FlickerLumaTol)
		}
		if c.FlickerChromaTol < 0 || c.FlickerChromaTol > 1 {
			return rasterr.Config("flicker_chroma_tol must be in [0,1], got %f", c.FlickerChromaTol)
		}
	}
	return nil
}
