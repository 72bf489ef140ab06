package registry

import (
	"container/heap"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrRegistryFull = errors.New("subscription registry at capacity")

type Kind string

const (
	KindAvailability Kind = "availability"
	KindBooking      Kind = "booking"
	KindCourseStatus Kind = "course_status"
)

// Subject identifies the stream a subscriber listens on. Key carries
// the correlation scope: courseID_date for availability, bookingID for
// bookings, courseID for course status.
type Subject struct {
	Kind Kind
	Key  string
}

func AvailabilitySubject(courseID, date string) Subject {
	return Subject{Kind: KindAvailability, Key: courseID + "_" + date}
}

func BookingSubject(bookingID string) Subject {
	return Subject{Kind: KindBooking, Key: bookingID}
}

func CourseStatusSubject(courseID string) Subject {
	return Subject{Kind: KindCourseStatus, Key: courseID}
}

// Update is what the router writes into matching streams.
type Update struct {
	Kind  Kind
	Key   string
	Event any
	At    time.Time
}

// Subscription stream. Receive from C; it is closed exactly once, on
// unsubscribe, TTL expiry or registry shutdown.
type Subscription struct {
	ID      string
	Subject Subject
	C       <-chan Update

	ch       chan Update
	deadline time.Time
	closed   bool
}

// updateBuffer bounds how far a slow consumer may lag before updates
// are dropped for that consumer alone.
const updateBuffer = 16

// Registry keeps at most max live subscriptions across all subjects
// and force-closes each after ttl. All state lives behind one mutex;
// expiry order is a min-heap over deadlines.
type Registry struct {
	mu    sync.Mutex
	subs  map[string]*Subscription            // id -> sub
	byKey map[Subject]map[string]*Subscription // subject -> id -> sub
	exp   expiryHeap
	max   int
	ttl   time.Duration
	done  chan struct{}
	once  sync.Once
}

func New(max int, ttl time.Duration) *Registry {
	r := &Registry{
		subs:  make(map[string]*Subscription),
		byKey: make(map[Subject]map[string]*Subscription),
		max:   max,
		ttl:   ttl,
		done:  make(chan struct{}),
	}
	go r.sweep()
	return r
}

// Subscribe registers a new stream for subject. Fails with
// ErrRegistryFull at capacity; existing subscriptions are untouched.
func (r *Registry) Subscribe(subject Subject) (*Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expireLocked(time.Now())

	if len(r.subs) >= r.max {
		return nil, fmt.Errorf("%w (max %d)", ErrRegistryFull, r.max)
	}

	sub := &Subscription{
		ID:       string(subject.Kind) + ":" + subject.Key + ":" + uuid.NewString(),
		Subject:  subject,
		ch:       make(chan Update, updateBuffer),
		deadline: time.Now().Add(r.ttl),
	}
	sub.C = sub.ch
	r.subs[sub.ID] = sub
	if r.byKey[subject] == nil {
		r.byKey[subject] = make(map[string]*Subscription)
	}
	r.byKey[subject][sub.ID] = sub
	heap.Push(&r.exp, &expiry{id: sub.ID, at: sub.deadline})
	return sub, nil
}

// Unsubscribe closes the stream and frees its capacity slot.
// Idempotent: unknown or already-closed ids are a no-op.
func (r *Registry) Unsubscribe(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked(id)
}

// Publish delivers update to every live subscription on subject.
// A full consumer buffer drops the update for that consumer only.
func (r *Registry) Publish(subject Subject, update Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.byKey[subject] {
		select {
		case sub.ch <- update:
		default:
			log.Printf("[registry] dropping update for slow consumer %s", sub.ID)
		}
	}
}

// Len reports live subscriptions, expiring lazily first.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expireLocked(time.Now())
	return len(r.subs)
}

// Shutdown closes every stream and stops the sweeper.
func (r *Registry) Shutdown() {
	r.once.Do(func() { close(r.done) })
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.subs {
		r.closeLocked(id)
	}
}

func (r *Registry) sweep() {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-r.done:
			return
		case now := <-t.C:
			r.mu.Lock()
			r.expireLocked(now)
			r.mu.Unlock()
		}
	}
}

func (r *Registry) expireLocked(now time.Time) {
	for r.exp.Len() > 0 {
		next := r.exp[0]
		if next.at.After(now) {
			return
		}
		heap.Pop(&r.exp)
		// Heap entries for already-closed ids are stale; closeLocked
		// ignores them.
		r.closeLocked(next.id)
	}
}

func (r *Registry) closeLocked(id string) {
	sub, ok := r.subs[id]
	if !ok || sub.closed {
		return
	}
	sub.closed = true
	close(sub.ch)
	delete(r.subs, id)
	if m := r.byKey[sub.Subject]; m != nil {
		delete(m, id)
		if len(m) == 0 {
			delete(r.byKey, sub.Subject)
		}
	}
}

type expiry struct {
	id string
	at time.Time
}

type expiryHeap []*expiry

func (h expiryHeap) Len() int            { return len(h) }
func (h expiryHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h expiryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *expiryHeap) Push(x any)         { *h = append(*h, x.(*expiry)) }
func (h *expiryHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}
