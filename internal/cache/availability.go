package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Chromeox/CourseScout-sub004/internal/domain"
)

// SlotFetcher is the store adapter view the cache needs on a miss.
type SlotFetcher interface {
	Slots(ctx context.Context, courseID, date string, from, to time.Time) ([]domain.AvailabilitySlot, error)
}

type Config struct {
	TTL time.Duration
	// Confidence coefficients. Heuristic placeholders, configurable on
	// purpose; see config.App.
	Base         float64
	Window       time.Duration
	UpdateTarget int
}

// Result of a cached availability read. Stale is only ever true for
// Peek; Get never serves an expired entry.
type Result struct {
	Slots       []domain.AvailabilitySlot
	LastUpdated time.Time
	Confidence  float64
	Stale       bool
}

type entry struct {
	slots     []domain.AvailabilitySlot
	fetchedAt time.Time
	dirty     bool
}

// provenance tracks change-event frequency per course/date so the
// confidence score can reward actively-maintained data. It survives
// entry eviction.
type provenance struct {
	windowStart time.Time
	updates     int
}

// Availability is an in-memory, TTL'd view of recent availability
// reads. It is never authoritative: business logic only invalidates
// it (via RecordUpdate), the durable store owns slot state.
type Availability struct {
	mu      sync.Mutex
	cfg     Config
	store   SlotFetcher
	entries map[string]*entry
	prov    map[string]*provenance
	now     func() time.Time
}

func New(cfg Config, store SlotFetcher) *Availability {
	if cfg.Base == 0 {
		cfg.Base = 0.8
	}
	if cfg.Window == 0 {
		cfg.Window = time.Hour
	}
	if cfg.UpdateTarget == 0 {
		cfg.UpdateTarget = 10
	}
	if cfg.TTL == 0 {
		cfg.TTL = 5 * time.Minute
	}
	return &Availability{
		cfg:     cfg,
		store:   store,
		entries: make(map[string]*entry),
		prov:    make(map[string]*provenance),
		now:     time.Now,
	}
}

func key(courseID, date string) string { return courseID + "_" + date }

// Get serves the course/date window from cache when fresh, otherwise
// fetches through the store adapter. Store errors propagate unchanged;
// an errored fetch never falls back to stale data (use Peek for that,
// explicitly).
func (a *Availability) Get(ctx context.Context, courseID, date string, from, to time.Time) (Result, error) {
	k := key(courseID, date)
	now := a.now()

	a.mu.Lock()
	e, ok := a.entries[k]
	if ok && !e.dirty && now.Sub(e.fetchedAt) < a.cfg.TTL {
		res := a.resultLocked(k, e, from, to, now)
		a.mu.Unlock()
		return res, nil
	}
	a.mu.Unlock()

	slots, err := a.store.Slots(ctx, courseID, date, time.Time{}, time.Time{})
	if err != nil {
		return Result{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	e = &entry{slots: slots, fetchedAt: now}
	a.entries[k] = e
	a.bumpLocked(k, now) // the fetch itself is one observation
	return a.resultLocked(k, e, from, to, now), nil
}

// Peek returns whatever is cached for course/date, however old,
// flagged Stale when expired or dirty. For use when the store is down
// and the caller opts into confidence-scored stale data.
func (a *Availability) Peek(courseID, date string, from, to time.Time) (Result, bool) {
	k := key(courseID, date)
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entries[k]
	if !ok {
		return Result{}, false
	}
	now := a.now()
	res := a.resultLocked(k, e, from, to, now)
	res.Stale = e.dirty || now.Sub(e.fetchedAt) >= a.cfg.TTL
	return res, true
}

// RecordUpdate marks the course/date entry dirty and bumps its update
// provenance. Called by the event router on availability changes; this
// is the only mutation path business events have into the cache.
func (a *Availability) RecordUpdate(courseID, date string) {
	k := key(courseID, date)
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.entries[k]; ok {
		e.dirty = true
	}
	a.bumpLocked(k, a.now())
}

// Invalidate drops the cached entry outright.
func (a *Availability) Invalidate(courseID, date string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.entries, key(courseID, date))
}

// Sweep evicts entries idle past twice the TTL and provenance windows
// that have lapsed. Run periodically by the janitor.
func (a *Availability) Sweep() {
	now := a.now()
	a.mu.Lock()
	defer a.mu.Unlock()
	for k, e := range a.entries {
		if now.Sub(e.fetchedAt) > 2*a.cfg.TTL {
			delete(a.entries, k)
		}
	}
	for k, p := range a.prov {
		if now.Sub(p.windowStart) > a.cfg.Window {
			delete(a.prov, k)
		}
	}
}

func (a *Availability) bumpLocked(k string, now time.Time) {
	p, ok := a.prov[k]
	if !ok || now.Sub(p.windowStart) > a.cfg.Window {
		p = &provenance{windowStart: now}
		a.prov[k] = p
	}
	p.updates++
}

func (a *Availability) resultLocked(k string, e *entry, from, to time.Time, now time.Time) Result {
	var updates int
	if p, ok := a.prov[k]; ok && now.Sub(p.windowStart) <= a.cfg.Window {
		updates = p.updates
	}
	return Result{
		Slots:       filterRange(e.slots, from, to),
		LastUpdated: e.fetchedAt,
		Confidence:  a.confidence(now.Sub(e.fetchedAt), updates),
	}
}

// confidence decreases monotonically with age and increases with
// observed update frequency: base * freshness * activity.
func (a *Availability) confidence(elapsed time.Duration, updates int) float64 {
	freshness := 1 - elapsed.Seconds()/a.cfg.Window.Seconds()
	if freshness < 0 {
		freshness = 0
	}
	activity := float64(updates) / float64(a.cfg.UpdateTarget)
	if activity > 1 {
		activity = 1
	}
	return a.cfg.Base * freshness * activity
}

func filterRange(slots []domain.AvailabilitySlot, from, to time.Time) []domain.AvailabilitySlot {
	if from.IsZero() && to.IsZero() {
		out := make([]domain.AvailabilitySlot, len(slots))
		copy(out, slots)
		return out
	}
	var out []domain.AvailabilitySlot
	for _, s := range slots {
		if !from.IsZero() && s.StartTime.Before(from) {
			continue
		}
		if !to.IsZero() && s.StartTime.After(to) {
			continue
		}
		out = append(out, s)
	}
	return out
}
