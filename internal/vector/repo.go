package vector

import (
	"sort"
	"sync"
	"time"

	"sleuth/internal/logging"
)

// Repository owns all case indexes with an explicit create/get/delete
// lifecycle. It replaces any informal global registry: indexes are keyed by
// case id, never shared across cases, and bounded by a size/age eviction
// policy so the set cannot grow without limit.
type Repository struct {
	maxCases int
	maxAge   time.Duration
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*repoEntry
}

type repoEntry struct {
	index    *Index
	created  time.Time
	lastUsed time.Time
}

// NewRepository builds a repository. maxCases <= 0 disables the size bound,
// maxAge <= 0 disables the age bound.
func NewRepository(maxCases int, maxAge time.Duration) *Repository {
	return &Repository{
		maxCases: maxCases,
		maxAge:   maxAge,
		now:      time.Now,
		entries:  make(map[string]*repoEntry),
	}
}

// GetOrCreate returns the index for caseID, creating it on first ingestion.
// Creation may evict idle indexes beyond the configured bounds.
func (r *Repository) GetOrCreate(caseID string) *Index {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[caseID]; ok {
		e.lastUsed = r.now()
		return e.index
	}

	r.evictLocked()

	e := &repoEntry{
		index:    &Index{caseID: caseID},
		created:  r.now(),
		lastUsed: r.now(),
	}
	r.entries[caseID] = e
	return e.index
}

// Get returns the index for caseID, or nil if it was never created or has
// been evicted (callers re-ingest in that case).
func (r *Repository) Get(caseID string) *Index {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[caseID]
	if !ok {
		return nil
	}
	e.lastUsed = r.now()
	return e.index
}

// Delete drops the index for caseID. Deleting an unknown case is a no-op.
func (r *Repository) Delete(caseID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, caseID)
}

// Len returns the number of live indexes.
func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// evictLocked enforces the age bound, then the size bound (least recently
// used first). Caller holds r.mu.
func (r *Repository) evictLocked() {
	now := r.now()

	if r.maxAge > 0 {
		for id, e := range r.entries {
			if now.Sub(e.lastUsed) > r.maxAge {
				logging.New("vector").Debug("evicting aged-out index", "case_id", id)
				delete(r.entries, id)
			}
		}
	}

	if r.maxCases <= 0 || len(r.entries) < r.maxCases {
		return
	}

	type aged struct {
		id       string
		lastUsed time.Time
	}
	var all []aged
	for id, e := range r.entries {
		all = append(all, aged{id, e.lastUsed})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].lastUsed.Before(all[j].lastUsed) })

	for _, a := range all {
		if len(r.entries) < r.maxCases {
			break
		}
		logging.New("vector").Debug("evicting least recently used index", "case_id", a.id)
		delete(r.entries, a.id)
	}
}
