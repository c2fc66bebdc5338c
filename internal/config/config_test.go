package config

import (
	"errors"
	"testing"

	"github.com/zaynotley/rastaforge/internal/rasterr"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default() should validate cleanly, got %v", err)
	}
}

func TestValidateRejectsSubOneThreads(t *testing.T) {
	c := Default()
	c.Threads = 0
	assertInvalid(t, c)
}

func TestValidateRejectsSubOneSolutions(t *testing.T) {
	c := Default()
	c.Solutions = 0
	assertInvalid(t, c)
}

func TestValidateRejectsUndersizedCache(t *testing.T) {
	c := Default()
	c.CacheSize = 1 << 10
	assertInvalid(t, c)
}

func TestValidateAcceptsCacheSizeAtFloor(t *testing.T) {
	c := Default()
	c.CacheSize = 1 << 20
	if err := c.Validate(); err != nil {
		t.Fatalf("CacheSize at the 1 MiB floor should validate, got %v", err)
	}
}

func TestValidateRejectsNegativeUnstuckAfter(t *testing.T) {
	c := Default()
	c.UnstuckAfter = -1
	assertInvalid(t, c)
}

func TestValidateRejectsNegativeUnstuckDriftNorm(t *testing.T) {
	c := Default()
	c.UnstuckDriftNorm = -0.1
	assertInvalid(t, c)
}

func TestValidateIgnoresFlickerTolsWhenDualModeOff(t *testing.T) {
	c := Default()
	c.DualMode = false
	c.FlickerLumaTol = 5
	c.FlickerChromaTol = -5
	if err := c.Validate(); err != nil {
		t.Fatalf("flicker tolerances out of range should be ignored when DualMode is off, got %v", err)
	}
}

func TestValidateRejectsOutOfRangeFlickerTolsWhenDualModeOn(t *testing.T) {
	c := Default()
	c.DualMode = true
	c.FlickerLumaTol = 1.5
	c.FlickerChromaTol = 0.5
	assertInvalid(t, c)

	c2 := Default()
	c2.DualMode = true
	c2.FlickerLumaTol = 0.5
	c2.FlickerChromaTol = -0.1
	assertInvalid(t, c2)
}

func TestValidateAcceptsFlickerTolBoundaries(t *testing.T) {
	c := Default()
	c.DualMode = true
	c.FlickerLumaTol = 0
	c.FlickerChromaTol = 1
	if err := c.Validate(); err != nil {
		t.Fatalf("flicker tolerances at the [0,1] boundary should validate, got %v", err)
	}
}

func assertInvalid(t *testing.T, c Config) {
	t.Helper()
	err := c.Validate()
	if !errors.Is(err, rasterr.ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
}
