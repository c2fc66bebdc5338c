// Command rastaforge drives the stochastic raster-program optimiser
// (spec.md §6 "Interface surface") against a target image: load the
// image, build a palette and optional on/off map, construct an
// Optimizer, and run it to completion or until interrupted. Grounded on
// the teacher's main.go sequential construct-wire-start shape, adapted
// away from its chip-bus wiring and its ASCII-art boilerplate banner
// (impractical for this domain; noted in DESIGN.md).
package main

import (
	"flag"
	"fmt"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zaynotley/rastaforge"
	"github.com/zaynotley/rastaforge/internal/accept"
	"github.com/zaynotley/rastaforge/internal/colordist"
	"github.com/zaynotley/rastaforge/internal/config"
	"github.com/zaynotley/rastaforge/internal/imgload"
	"github.com/zaynotley/rastaforge/internal/outfmt"
	"github.com/zaynotley/rastaforge/internal/raster"
	"github.com/zaynotley/rastaforge/internal/rlog"
)

var log = rlog.New("main")

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "rastaforge:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		targetPath = flag.String("target", "", "target image path (png/jpeg/gif); required")
		height     = flag.Int("height", 192, "raster picture height in scanlines")
		threads    = flag.Int("threads", 1, "worker goroutine count")
		maxEvals   = flag.Uint64("max-evals", 0, "stop after this many evaluations (0 = unbounded)")
		savePeriod = flag.Int64("save-period", -1, "autosave every N evaluations (<0 = every 30s, 0 = disabled)")
		seed       = flag.Uint64("seed", 1, "initial RNG seed (per-worker streams derive from this)")
		cacheSize  = flag.Int64("cache-size", 4<<20, "per-worker arena byte budget")
		optimizer  = flag.String("optimizer", "dlas", "acceptance core: dlas, lahc, or legacy-lahc")
		solutions  = flag.Int("solutions", 5000, "acceptance history length L")
		unstuck    = flag.Int("unstuck-after", 200000, "evaluations without improvement before widening mutation batches (0 disables)")
		driftNorm  = flag.Float64("unstuck-drift-norm", 1.0, "plateau-drift relaxation scale")
		metricName = flag.String("metric", "euclidean", "colour distance metric: euclidean, yuv, cie94, or ciede2000")
		dualMode   = flag.Bool("dual", false, "optimise an alternating two-frame flicker pair instead of a single frame")
		firstDual  = flag.Uint64("first-dual-steps", 500000, "evaluations spent in each bootstrap phase before alternating")
		alterDual  = flag.Uint64("altering-dual-steps", 50000, "evaluations per focus before flipping frame in ALTERNATING")
		lumaTol    = flag.Float64("flicker-luma-tol", 0.1, "luma flicker tolerance in [0,1]")
		chromaTol  = flag.Float64("flicker-chroma-tol", 0.2, "chroma flicker tolerance in [0,1]")
		autosave   = flag.String("autosave", "", "path to write the autosaved picture to (empty disables)")
		script     = flag.String("script", "", "path to a Lua script exposing on_improve/on_autosave hooks")
		quiet      = flag.Bool("quiet", false, "suppress informational logging")
		preview    = flag.Bool("preview", false, "open a live Ebiten preview window of the evolving best picture")
	)
	flag.Parse()

	if *quiet {
		log.SetQuiet(true)
	}
	if *targetPath == "" {
		return fmt.Errorf("-target is required")
	}

	metric, err := parseMetric(*metricName)
	if err != nil {
		return err
	}
	mode, err := parseMode(*optimizer)
	if err != nil {
		return err
	}

	f, err := os.Open(*targetPath)
	if err != nil {
		return fmt.Errorf("opening target image: %w", err)
	}
	target, err := imgload.Load(f, *height)
	f.Close()
	if err != nil {
		return fmt.Errorf("loading target image: %w", err)
	}

	pal := defaultPalette()

	var scriptSrc string
	if *script != "" {
		b, err := os.ReadFile(*script)
		if err != nil {
			return fmt.Errorf("reading script: %w", err)
		}
		scriptSrc = string(b)
	}

	cfg := config.Config{
		Threads:           *threads,
		MaxEvals:          *maxEvals,
		SavePeriod:        *savePeriod,
		InitialSeed:       *seed,
		CacheSize:         *cacheSize,
		Optimizer:         mode,
		Solutions:         *solutions,
		UnstuckAfter:      *unstuck,
		UnstuckDriftNorm:  *driftNorm,
		Metric:            metric,
		DualMode:          *dualMode,
		FirstDualSteps:    *firstDual,
		AlteringDualSteps: *alterDual,
		AfterDualSteps:    config.AfterDualFresh,
		FlickerLumaTol:    *lumaTol,
		FlickerChromaTol:  *chromaTol,
	}

	var autosaveFn func(*raster.Picture)
	if *autosave != "" {
		autosaveFn = func(pic *raster.Picture) {
			out, err := os.Create(*autosave)
			if err != nil {
				log.Warnf("autosave: %v", err)
				return
			}
			defer out.Close()
			if err := outfmt.Encode(out, pic); err != nil {
				log.Warnf("autosave: %v", err)
			}
		}
	}

	opt, err := rastaforge.New(rastaforge.Options{
		Target:   target,
		Palette:  pal,
		Metric:   metric,
		Config:   cfg,
		Script:   scriptSrc,
		Autosave: autosaveFn,
	})
	if err != nil {
		return fmt.Errorf("constructing optimiser: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ql, quitCh := newQuitListener()
	defer ql.Stop()
	if ql != nil {
		log.Infof("press 'q' to stop")
	}

	if *preview {
		go func() {
			if err := runPreview(opt, pal, *height); err != nil {
				log.Warnf("preview window: %v", err)
			}
		}()
	}

	log.Infof("starting %d worker(s) against %q (%dx%d)", *threads, *targetPath, raster.Width, *height)
	opt.Start()

	statTicker := time.NewTicker(10 * time.Second)
	defer statTicker.Stop()

	doneCh := make(chan struct{})
	go func() {
		_ = opt.Wait()
		close(doneCh)
	}()

runLoop:
	for {
		select {
		case <-doneCh:
			log.Infof("run finished")
			break runLoop
		case <-sigCh:
			log.Infof("interrupted, stopping")
			break runLoop
		case <-quitCh:
			log.Infof("quit key pressed, stopping")
			break runLoop
		case <-statTicker.C:
			reportStats(opt)
		}
	}

	if err := opt.Stop(); err != nil {
		return fmt.Errorf("optimiser run: %w", err)
	}
	reportStats(opt)
	return nil
}

func reportStats(opt *rastaforge.Optimizer) {
	_, _, _, evals, lastImprovement, cost := opt.Best()
	log.Infof("evaluations=%d last-improvement=%d cost=%.2f", evals, lastImprovement, cost)
}

func parseMetric(name string) (colordist.Metric, error) {
	switch name {
	case "euclidean":
		return colordist.Euclidean, nil
	case "yuv":
		return colordist.YUVWeighted, nil
	case "cie94":
		return colordist.CIE94, nil
	case "ciede2000":
		return colordist.CIEDE2000, nil
	default:
		return 0, fmt.Errorf("unknown -metric %q", name)
	}
}

func parseMode(name string) (accept.Mode, error) {
	switch name {
	case "dlas":
		return accept.DLAS, nil
	case "lahc":
		return accept.LAHC, nil
	case "legacy-lahc":
		return accept.LegacyLAHC, nil
	default:
		return 0, fmt.Errorf("unknown -optimizer %q", name)
	}
}

// defaultPalette returns the fixed 128-colour Atari-class palette every
// scored picture is painted from. A real deployment would load this
// from a hardware colour-chart file; a built-in grayscale-to-hue ramp
// keeps the CLI runnable standalone against any target image.
func defaultPalette() raster.Palette {
	var pal raster.Palette
	for i := range pal {
		hue := float64(i%16) / 16
		lum := float64(i/16) / 8
		r, g, b := hsvToRGB(hue, 0.85, 0.35+0.65*lum)
		pal[i] = colordist.RGB{R: r, G: g, B: b}
	}
	return pal
}

func hsvToRGB(h, s, v float64) (r, g, b uint8) {
	i := int(h * 6)
	f := h*6 - float64(i)
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	var rf, gf, bf float64
	switch i % 6 {
	case 0:
		rf, gf, bf = v, t, p
	case 1:
		rf, gf, bf = q, v, p
	case 2:
		rf, gf, bf = p, v, t
	case 3:
		rf, gf, bf = p, q, v
	case 4:
		rf, gf, bf = t, p, v
	default:
		rf, gf, bf = v, p, q
	}
	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}
