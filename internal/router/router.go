package router

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Chromeox/CourseScout-sub004/internal/cache"
	"github.com/Chromeox/CourseScout-sub004/internal/events"
	"github.com/Chromeox/CourseScout-sub004/internal/registry"
	"github.com/Chromeox/CourseScout-sub004/pkg/mq"
)

// Router is the single transport subscriber: it drains one queue bound
// to the tee-time exchange, classifies each delivery by routing key and
// fans a typed Update out to every matching registry stream. Events
// with no interested subscriber are dropped; that is the normal case.
type Router struct {
	reg   *registry.Registry
	avail *cache.Availability
	cons  *mq.Consumer
	now   func() time.Time
}

func New(reg *registry.Registry, avail *cache.Availability, cons *mq.Consumer) *Router {
	return &Router{reg: reg, avail: avail, cons: cons, now: time.Now}
}

func (r *Router) Run(ctx context.Context) error {
	msgs, err := r.cons.Deliveries(ctx)
	if err != nil {
		return fmt.Errorf("consume failed: %w", err)
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					return
				}
				if err := r.Dispatch(d.RoutingKey, d.Body); err != nil {
					// Poison payloads are dropped, not requeued; a
					// malformed event will not parse on redelivery
					// either.
					log.Printf("[router] drop key=%s err=%v", d.RoutingKey, err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()
	return nil
}

// Dispatch classifies one raw notification and forwards it. Dispatch
// itself never blocks on a consumer: the registry write is
// fire-and-forget per subscriber, so one slow stream cannot stall the
// rest. Per-subject ordering is preserved because deliveries are
// dispatched sequentially off a single queue.
func (r *Router) Dispatch(key string, body []byte) error {
	switch key {
	case events.RKAvailabilityChanged:
		ev, err := events.MustUnmarshal[events.AvailabilityChanged](body)
		if err != nil {
			return err
		}
		// Cache invalidation rides the same notification; the cache is
		// never written with event data, only marked dirty.
		r.avail.RecordUpdate(ev.CourseID, ev.Date)
		subject := registry.AvailabilitySubject(ev.CourseID, ev.Date)
		r.reg.Publish(subject, registry.Update{
			Kind:  registry.KindAvailability,
			Key:   subject.Key,
			Event: ev,
			At:    r.now(),
		})

	case events.RKBookingUpdated:
		ev, err := events.MustUnmarshal[events.BookingUpdated](body)
		if err != nil {
			return err
		}
		subject := registry.BookingSubject(ev.BookingID)
		r.reg.Publish(subject, registry.Update{
			Kind:  registry.KindBooking,
			Key:   subject.Key,
			Event: ev,
			At:    r.now(),
		})

	case events.RKCourseStatus:
		ev, err := events.MustUnmarshal[events.CourseStatus](body)
		if err != nil {
			return err
		}
		subject := registry.CourseStatusSubject(ev.CourseID)
		r.reg.Publish(subject, registry.Update{
			Kind:  registry.KindCourseStatus,
			Key:   subject.Key,
			Event: ev,
			At:    r.now(),
		})

	case events.RKWaitListOffered:
		// Delivered out-of-band by the push-notification consumer; the
		// live streams have no subject for it.

	default:
		// Not ours. Most events are not interesting to most observers.
	}
	return nil
}
