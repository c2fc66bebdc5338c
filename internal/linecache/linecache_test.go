package linecache

import (
	"testing"

	"github.com/zaynotley/rastaforge/internal/raster"
)

func TestFindMissesOnEmptyCache(t *testing.T) {
	c := New(NewArena(64))
	_, ok := c.Find(Key{Entry: raster.CPUState{}, Seq: 1}, 1)
	if ok {
		t.Fatalf("Find on an empty cache should miss")
	}
}

func TestInsertThenFindHits(t *testing.T) {
	c := New(NewArena(64))
	key := Key{Entry: raster.CPUState{A: 1, X: 2, Y: 3}, Seq: 5}
	want := Result{TotalError: 42}

	c.Insert(key, want, 10)
	got, ok := c.Find(key, 11)
	if !ok {
		t.Fatalf("Find missed an entry that was just inserted")
	}
	if got.TotalError != want.TotalError {
		t.Errorf("Find returned TotalError=%v, want %v", got.TotalError, want.TotalError)
	}
}

func TestFindUpdatesLastTouch(t *testing.T) {
	c := New(NewArena(64))
	key := Key{Entry: raster.CPUState{}, Seq: 1}
	c.Insert(key, Result{}, 1)
	c.Find(key, 99)
	if c.LastTouch() != 99 {
		t.Errorf("LastTouch() = %d, want 99", c.LastTouch())
	}
}

func TestDifferentKeysDoNotCollideLogically(t *testing.T) {
	c := New(NewArena(64))
	keyA := Key{Entry: raster.CPUState{A: 1}, Seq: 1}
	keyB := Key{Entry: raster.CPUState{A: 2}, Seq: 1}

	c.Insert(keyA, Result{TotalError: 1}, 1)
	c.Insert(keyB, Result{TotalError: 2}, 1)

	gotA, okA := c.Find(keyA, 2)
	gotB, okB := c.Find(keyB, 2)
	if !okA || !okB {
		t.Fatalf("both distinct keys should be found: okA=%v okB=%v", okA, okB)
	}
	if gotA.TotalError == gotB.TotalError {
		t.Fatalf("distinct keys returned the same stored value")
	}
}

func TestClearDropsEntries(t *testing.T) {
	c := New(NewArena(64))
	key := Key{Entry: raster.CPUState{}, Seq: 1}
	c.Insert(key, Result{}, 1)
	c.Clear()

	if _, ok := c.Find(key, 2); ok {
		t.Fatalf("Find hit after Clear")
	}
	if c.LastTouch() != 0 {
		t.Errorf("LastTouch() after Clear = %d, want 0", c.LastTouch())
	}
}

func TestInsertConsesNewestOntoHeadOfBucket(t *testing.T) {
	c := New(NewArena(64))
	key := Key{Entry: raster.CPUState{A: 9}, Seq: 3}
	c.Insert(key, Result{TotalError: 1}, 1)
	c.Insert(key, Result{TotalError: 2}, 2)

	got, ok := c.Find(key, 3)
	if !ok {
		t.Fatalf("Find missed after two inserts under the same key")
	}
	if got.TotalError != 2 {
		t.Errorf("Find returned the older of two entries sharing a key: got %v, want 2", got.TotalError)
	}
}
