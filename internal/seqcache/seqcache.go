// Package seqcache interns candidate raster-line instruction sequences
// so that two lines with byte-identical instructions and equal hashes
// share one stable arena.Handle, usable as an O(1) identity key by
// internal/linecache (spec.md §4.2, component C2). Grounded on the
// teacher's machine_bus.go address-folding hash style, adapted from
// memory addresses to instruction sequences.
package seqcache

import (
	"github.com/zaynotley/rastaforge/internal/arena"
	"github.com/zaynotley/rastaforge/internal/raster"
)

// sequence is the arena-resident payload: the instruction list plus its
// precomputed structural hash (the bucket key it was filed under).
type sequence struct {
	hash  uint32
	insns []raster.Instruction
}

// Cache interns instruction sequences into a shared arena.Handle space.
// Not safe for concurrent use; each worker owns one (spec.md §4.8: "the
// arena is per-worker").
type Cache struct {
	arena   *arena.Arena[sequence]
	buckets map[uint32][]arena.Handle
}

// New returns an empty sequence cache backed by a.
func New(a *arena.Arena[sequence]) *Cache {
	return &Cache{arena: a, buckets: make(map[uint32][]arena.Handle, 4096)}
}

// NewArena allocates a fresh backing arena sized for capacityHint entries.
func NewArena(capacityHint int) *arena.Arena[sequence] {
	return arena.New[sequence](capacityHint)
}

// Intern returns the stable identity for line's current instruction
// list, interning a new entry only if no equal sequence has been seen
// since the last Reset. line.CacheKey is populated as a side effect.
func (c *Cache) Intern(line *raster.RasterLine) arena.Handle {
	if line.CacheKey.Valid() {
		return line.CacheKey
	}
	for _, h := range c.buckets[line.Hash] {
		if c.equal(h, line.Instructions) {
			line.CacheKey = h
			return h
		}
	}
	h := c.arena.Allocate(sequence{
		hash:  line.Hash,
		insns: append([]raster.Instruction(nil), line.Instructions...),
	})
	c.buckets[line.Hash] = append(c.buckets[line.Hash], h)
	line.CacheKey = h
	return h
}

func (c *Cache) equal(h arena.Handle, insns []raster.Instruction) bool {
	seq := c.arena.Get(h)
	if len(seq.insns) != len(insns) {
		return false
	}
	for i := range insns {
		if seq.insns[i] != insns[i] {
			return false
		}
	}
	return true
}

// Reset drops every interned sequence. The caller must also Clear the
// same backing arena.Arena[sequence] (arena.Clear() is safe to call on
// the same pointer in place), matching the cooperative-invalidation
// contract in spec.md §4.1: every cached sequence.insns slice becomes
// unreachable garbage and every bucket entry referencing it is dropped
// together, so no stale Handle is ever looked up against live data from
// a different generation.
func (c *Cache) Reset() {
	c.buckets = make(map[uint32][]arena.Handle, 4096)
}

// HashOf folds a sequence's numeric identity (the raw Handle value)
// into a hash without dereferencing the arena (spec.md §4.2 invariant).
// internal/linecache does not call it; it folds handles with its own
// foldHandle.
func HashOf(h arena.Handle) uint32 {
	v := uint32(h)
	v ^= v >> 16
	v *= 0x7feb352d
	v ^= v >> 15
	return v
}
