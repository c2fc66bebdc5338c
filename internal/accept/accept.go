// Package accept implements the acceptance core (spec.md §4.7,
// component C7): DLAS, LAHC, and legacy-LAHC share one circular cost
// history and a single apply(result) -> (accepted, improved) decision,
// with an optional plateau-drift relaxation. Grounded on the teacher's
// audio_chip.go envelope state machines (several named modes sharing one
// struct and one Step method), adapted from audio envelope state to
// optimisation acceptance state.
package accept

// Mode selects which of the three acceptance rules Core.Apply uses.
type Mode int

const (
	DLAS Mode = iota
	LAHC
	LegacyLAHC
)

// Core holds one acceptance walk's state: the circular cost history,
// the current baseline, and (DLAS only) the running maximum and its
// multiplicity.
type Core struct {
	mode Mode

	history []float64
	index   int

	current float64 // F
	phiMax  float64
	phiN    int

	lastImprovementGap int
	unstuckAfter       int
	unstuckDriftNorm   float64
	width, height      int
	colorMax           float64
}

// New returns a Core with an L-entry history seeded to seedCost,
// covering an (width x height) picture scored against a metric whose
// maximum possible per-pixel distance is colorMax (used to scale the
// plateau-drift term).
func New(mode Mode, l int, seedCost float64, width, height int, colorMax float64, unstuckAfter int, unstuckDriftNorm float64) *Core {
	if l < 1 {
		l = 1
	}
	h := make([]float64, l)
	for i := range h {
		h[i] = seedCost
	}
	return &Core{
		mode:             mode,
		history:          h,
		current:          seedCost,
		phiMax:           seedCost,
		phiN:             l,
		width:            width,
		height:           height,
		colorMax:         colorMax,
		unstuckAfter:     unstuckAfter,
		unstuckDriftNorm: unstuckDriftNorm,
	}
}

// Current returns the acceptance baseline F.
func (c *Core) Current() float64 { return c.current }

// NoteEvaluation records that one more evaluation happened without an
// improvement over the best-ever score, advancing the plateau gap
// tracked for drift relaxation. The caller resets this externally (via
// ResetImprovementGap) whenever the global best actually improves.
func (c *Core) NoteEvaluation() { c.lastImprovementGap++ }

// ResetImprovementGap zeroes the plateau counter, called by the worker
// driver whenever a candidate becomes the new global best.
func (c *Core) ResetImprovementGap() { c.lastImprovementGap = 0 }

// Stuck reports whether the plateau gap has crossed unstuck_after,
// which both the mutation engine (batch widening) and this core (drift
// relaxation) key off of.
func (c *Core) Stuck() bool { return c.unstuckAfter > 0 && c.lastImprovementGap >= c.unstuckAfter }

// drift computes the plateau-relaxation term added to the right-hand
// side of every acceptance comparison (spec.md §4.7 "Plateau drift").
func (c *Core) drift() float64 {
	if !c.Stuck() {
		return 0
	}
	gap := c.lastImprovementGap - c.unstuckAfter + 1
	return c.unstuckDriftNorm * float64(c.width) * float64(c.height) * (c.colorMax / 10000) * float64(gap)
}

// Apply runs one acceptance decision for a freshly computed result
// (spec.md §4.7). It always advances the circular index, regardless of
// accept, and returns whether the walk accepted the move and whether
// that move strictly improved on the previous baseline.
func (c *Core) Apply(result float64) (accepted, improved bool) {
	d := c.drift()
	prevF := c.current

	switch c.mode {
	case DLAS:
		accepted = result <= c.current+d || result < c.phiMax+d
		if accepted {
			c.current = result
			h := c.history[c.index]
			if c.current > h {
				c.history[c.index] = c.current
				if c.current > c.phiMax {
					c.phiMax = c.current
					c.phiN = 1
				} else if c.current == c.phiMax && h != c.phiMax {
					c.phiN++
				}
			} else if c.current < h && c.current < prevF {
				if h == c.phiMax {
					c.phiN--
				}
				c.history[c.index] = c.current
				if c.phiN <= 0 {
					c.phiMax, c.phiN = c.maxHistory()
				}
			}
		}

	case LAHC:
		accepted = result <= c.current+d || result <= c.history[c.index]+d
		if accepted {
			c.current = result
			c.history[c.index] = prevF
		}

	case LegacyLAHC:
		accepted = result < c.history[c.index]+d
		if accepted {
			c.current = result
			c.history[c.index] = result
		}
	}

	c.index = (c.index + 1) % len(c.history)
	improved = accepted && result < prevF
	return accepted, improved
}

func (c *Core) maxHistory() (max float64, count int) {
	max = c.history[0]
	for _, v := range c.history[1:] {
		if v > max {
			max = v
		}
	}
	for _, v := range c.history {
		if v == max {
			count++
		}
	}
	return max, count
}
