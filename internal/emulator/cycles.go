package emulator

// CyclesMax is the number of CPU-cycle slots in one scanline's timing
// table (spec.md §4.4).
const CyclesMax = 114

// ScreenCycle gives the horizontal pixel offset at which a CPU cycle
// completes, and how many pixels that cycle spans.
type ScreenCycle struct {
	Offset int // screen pixel column this cycle becomes observable at
	Length int // pixel span of this cycle
}

// CycleTable is the precomputed per-cycle timing map consumed by the
// line emulator (spec.md §6 "(v) Precomputed cycle-offset table").
type CycleTable [CyclesMax]ScreenCycle

// anticStolenCycleMap is the raw ANTIC DMA steal pattern for a standard
// 40-column Mode 2 (ANTIC text/graphics) display list entry with PMG and
// LMS DMA enabled on every line: I=instruction fetch, P=player DMA,
// A=address/LMS fetch, G=playfield data fetch, R=refresh, M=memory
// refresh at end of line. Everything else is a free CPU cycle.
// Grounded on original_source/src/core/Cycles.cpp's create_cycles_table.
const anticStolenCycleMap = "IPPPPAA             G G GRG GRG GRG GRG GRG GRG GRG GRG GRG G G G G G G G G G G G G G G G G G G G G              M"

// DefaultCycleTable builds the standard cycle-offset table by walking
// the ANTIC DMA steal pattern and assigning each free (non-stolen) CPU
// cycle the screen column it lands on, exactly as the original tool's
// create_cycles_table does.
func DefaultCycleTable() CycleTable {
	var t CycleTable
	lastAnticX := 0
	cpuX := 0
	for anticX := 0; anticX < len(anticStolenCycleMap) && cpuX < CyclesMax; anticX++ {
		c := anticStolenCycleMap[anticX]
		if c == 'G' || c == 'R' || c == 'P' || c == 'M' || c == 'I' || c == 'A' {
			continue
		}
		t[cpuX].Offset = (anticX - 24) * 2
		if cpuX > 0 {
			t[cpuX-1].Length = (anticX - lastAnticX) * 2
		}
		lastAnticX = anticX
		cpuX++
	}
	if cpuX > 0 {
		t[cpuX-1].Length = (len(anticStolenCycleMap) - 24) * 2
	}
	return t
}

// SafeOffset returns the screen-column offset of cycle, or a sentinel
// far outside the visible range if cycle falls outside the table --
// mirroring safe_screen_cycle_offset's "skip instruction scheduling"
// fallback for an over-budget program.
func (t *CycleTable) SafeOffset(cycle int) int {
	switch {
	case cycle < 0:
		return -100000
	case cycle >= CyclesMax:
		return 1000
	default:
		return t[cycle].Offset
	}
}
