// Package linecache implements the per-scanline memo table from
// spec.md §4.3 (component C3): key = (entry CPU state, sequence
// identity), value = (line error, exit state, painted rows, sprite
// masks). One instance per scanline, owned by one worker's evaluator.
//
// Grounded on the teacher's machine_bus.go hash-bucket address decoding
// style; adapted here into an arena-backed singly-linked hash table with
// no deletion, matching spec.md's "new insertions cons onto the head".
// The spec's micro-optimization of allocating buckets in blocks of 15
// nodes is dropped (documented in DESIGN.md): an arena-backed node list
// already gives O(1) allocation and O(1) mass clear without that extra
// layer, and it has no externally observable effect on the invariants
// in spec.md §8.
package linecache

import (
	"github.com/zaynotley/rastaforge/internal/arena"
	"github.com/zaynotley/rastaforge/internal/raster"
)

const numBuckets = 8192

// Key identifies a memoised line evaluation.
type Key struct {
	Entry raster.CPUState
	Seq   arena.Handle
}

// Result is the memoised outcome of running the line emulator once.
type Result struct {
	TotalError   float64
	Exit         raster.CPUState
	PaintedColor [raster.Width]uint8
	PaintedTarget [raster.Width]raster.Register
	Sprites      raster.SpriteLineMasks
}

type node struct {
	key   Key
	value Result
	next  arena.Handle
}

// Cache is one scanline's hash table. Not safe for concurrent use.
type Cache struct {
	arena   *arena.Arena[node]
	buckets [numBuckets]arena.Handle
	// lastTouch supports the worker's LRU eviction policy: it is bumped
	// by Evaluator on every hit/insert for this line's cache, recording
	// the global evaluation counter at which the line was last used.
	lastTouch uint64
}

// New returns an empty per-line cache backed by a.
func New(a *arena.Arena[node]) *Cache { return &Cache{arena: a} }

// NewArena allocates a fresh backing arena for numLines caches combined
// (callers share one arena across all per-line caches of a worker, since
// spec.md says "the arena is per-worker", not per-line).
func NewArena(capacityHint int) *arena.Arena[node] { return arena.New[node](capacityHint) }

func hashKey(k Key) uint32 {
	h := uint32(k.Entry.A)
	h = h*0x01000193 ^ uint32(k.Entry.X)
	h = h*0x01000193 ^ uint32(k.Entry.Y)
	for _, b := range k.Entry.Mem {
		h = h*0x01000193 ^ uint32(b)
	}
	h ^= foldHandle(k.Seq)
	h ^= h >> 16
	h *= 0x7feb352d
	h ^= h >> 15
	return h
}

// foldHandle folds a Handle's numeric value into the key hash WITHOUT
// dereferencing the arena it names, per spec.md §4.2: a stale identity
// from a cleared generation must never crash a lookup.
func foldHandle(h arena.Handle) uint32 {
	v := uint32(h)
	v ^= v << 13
	v ^= v >> 7
	v ^= v << 17
	return v
}

// Find probes the cache for key. The returned bool is false on a miss.
// Equality is full structural comparison of the key, which only
// dereferences the arena for entries that share key's hash bucket and
// are therefore known-live (inserted since the last Clear) --
// spec.md §4.2's "equality at lookup uses full structural comparison ...
// only when hash collides with a live entry".
func (c *Cache) Find(key Key, touch uint64) (Result, bool) {
	b := hashKey(key) % numBuckets
	for h := c.buckets[b]; h.Valid(); {
		n := c.arena.Get(h)
		if n.key == key {
			c.lastTouch = touch
			return n.value, true
		}
		h = n.next
	}
	return Result{}, false
}

// Insert conses a new entry onto the head of key's bucket.
func (c *Cache) Insert(key Key, value Result, touch uint64) {
	b := hashKey(key) % numBuckets
	h := c.arena.Allocate(node{key: key, value: value, next: c.buckets[b]})
	c.buckets[b] = h
	c.lastTouch = touch
}

// LastTouch returns the evaluation counter at which this cache was last
// hit or inserted into, used by the worker's LRU eviction policy.
func (c *Cache) LastTouch() uint64 { return c.lastTouch }

// Clear drops every entry in this line's cache. The backing arena is
// shared and must be cleared separately by the owner once every line's
// Clear has run (spec.md §4.1 cooperative-invalidation contract).
func (c *Cache) Clear() {
	for i := range c.buckets {
		c.buckets[i] = 0
	}
	c.lastTouch = 0
}
