package service

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/Chromeox/CourseScout-sub004/internal/cache"
)

// Janitor owns the periodic sweeps: unclaimed wait-list offers, past
// confirmed groups, and cache eviction.
type Janitor struct {
	waitlist *WaitlistSvc
	groups   *GroupSvc
	avail    *cache.Availability
	c        *cron.Cron
}

func NewJanitor(waitlist *WaitlistSvc, groups *GroupSvc, avail *cache.Availability) *Janitor {
	return &Janitor{waitlist: waitlist, groups: groups, avail: avail, c: cron.New()}
}

func (j *Janitor) Start() error {
	if _, err := j.c.AddFunc("@every 1m", func() {
		if err := j.waitlist.ResolveExpiredOffers(context.Background()); err != nil {
			log.Printf("[janitor] wait-list sweep: %v", err)
		}
		j.avail.Sweep()
	}); err != nil {
		return err
	}
	if _, err := j.c.AddFunc("@hourly", func() {
		if err := j.groups.CompletePast(context.Background()); err != nil {
			log.Printf("[janitor] group completion sweep: %v", err)
		}
	}); err != nil {
		return err
	}
	j.c.Start()
	return nil
}

func (j *Janitor) Stop() {
	<-j.c.Stop().Done()
}
