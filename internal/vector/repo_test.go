package vector

import (
	"testing"
	"time"
)

func TestRepositoryIsolation(t *testing.T) {
	r := NewRepository(0, 0)
	a := r.GetOrCreate("a")
	b := r.GetOrCreate("b")

	a.Add([]Chunk{{Text: "only in a", Vector: []float32{1, 0}, SourceID: "s"}})
	if a.Len() != 1 || b.Len() != 0 {
		t.Fatalf("indexes leaked across cases: a=%d b=%d", a.Len(), b.Len())
	}
	if r.GetOrCreate("a") != a {
		t.Fatal("GetOrCreate must return the same index for the same case")
	}
}

func TestRepositoryGetAndDelete(t *testing.T) {
	r := NewRepository(0, 0)
	if r.Get("missing") != nil {
		t.Fatal("Get on unknown case must return nil")
	}
	r.GetOrCreate("a")
	if r.Get("a") == nil {
		t.Fatal("Get after create returned nil")
	}
	r.Delete("a")
	r.Delete("a") // idempotent
	if r.Get("a") != nil || r.Len() != 0 {
		t.Fatalf("Delete did not remove the index: len=%d", r.Len())
	}
}

func TestRepositoryEvictsLeastRecentlyUsed(t *testing.T) {
	r := NewRepository(2, 0)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }

	r.GetOrCreate("old")
	clock = clock.Add(time.Minute)
	r.GetOrCreate("newer")
	clock = clock.Add(time.Minute)

	r.GetOrCreate("newest") // at capacity: evicts "old"

	if r.Get("old") != nil {
		t.Fatal("LRU entry should have been evicted")
	}
	if r.Get("newer") == nil || r.Get("newest") == nil {
		t.Fatal("recently used entries must survive eviction")
	}
}

func TestRepositoryTouchProtectsFromEviction(t *testing.T) {
	r := NewRepository(2, 0)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }

	r.GetOrCreate("a")
	clock = clock.Add(time.Minute)
	r.GetOrCreate("b")
	clock = clock.Add(time.Minute)

	r.Get("a") // refresh lastUsed
	clock = clock.Add(time.Minute)
	r.GetOrCreate("c")

	if r.Get("a") == nil {
		t.Fatal("touched entry should not be evicted")
	}
	if r.Get("b") != nil {
		t.Fatal("stale entry should have been evicted")
	}
}

func TestRepositoryEvictsAgedOut(t *testing.T) {
	r := NewRepository(0, time.Hour)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }

	r.GetOrCreate("stale")
	clock = clock.Add(2 * time.Hour)
	r.GetOrCreate("fresh") // creation sweeps aged-out entries

	if r.Get("stale") != nil {
		t.Fatal("aged-out entry should have been evicted")
	}
	if r.Get("fresh") == nil {
		t.Fatal("fresh entry must survive the age sweep")
	}
}
