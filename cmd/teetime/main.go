package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Chromeox/CourseScout-sub004/internal/cache"
	"github.com/Chromeox/CourseScout-sub004/internal/events"
	"github.com/Chromeox/CourseScout-sub004/internal/registry"
	"github.com/Chromeox/CourseScout-sub004/internal/repository"
	"github.com/Chromeox/CourseScout-sub004/internal/router"
	"github.com/Chromeox/CourseScout-sub004/internal/service"
	transport "github.com/Chromeox/CourseScout-sub004/internal/transport/http"
	"github.com/Chromeox/CourseScout-sub004/pkg/config"
	"github.com/Chromeox/CourseScout-sub004/pkg/db"
	"github.com/Chromeox/CourseScout-sub004/pkg/mq"
	"github.com/Chromeox/CourseScout-sub004/pkg/obs"
)

func must[T any](v T, err error) T {
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func main() {
	_ = godotenv.Load()
	cfg := must(config.Load())

	shutdownTracer := obs.InitTracer("teetime")
	defer func() { _ = shutdownTracer(context.Background()) }()

	// DB
	gdb := db.Open(cfg.PGTeeTimeDSN)
	slotRepo := repository.NewSlotRepo(gdb)
	bookingRepo := repository.NewBookingRepo(gdb)
	waitlistRepo := repository.NewWaitlistRepo(gdb)
	groupRepo := repository.NewGroupRepo(gdb)
	courseRepo := repository.NewCourseRepo(gdb)
	must(0, slotRepo.Migrate())
	must(0, bookingRepo.Migrate())
	must(0, waitlistRepo.Migrate())
	must(0, groupRepo.Migrate())
	must(0, courseRepo.Migrate())

	// Transport collaborator: one publisher for all change events, one
	// consumer feeding the event router.
	pub := must(mq.NewPublisher(cfg.RabbitURL, cfg.TeeTimeExchange))
	defer pub.Close()
	cons := must(mq.NewConsumer(cfg.RabbitURL, cfg.TeeTimeExchange, cfg.RouterQueue, "teetime-router",
		[]string{events.RKAvailabilityChanged, events.RKBookingUpdated, events.RKCourseStatus}, 32))
	defer cons.Close()

	// Live state: cache + subscription registry + router.
	avail := cache.New(cache.Config{
		TTL:          cfg.AvailabilityCacheTTL,
		Base:         cfg.ConfidenceBase,
		Window:       cfg.ConfidenceWindow,
		UpdateTarget: cfg.ConfidenceUpdates,
	}, slotRepo)
	reg := registry.New(cfg.MaxSubscriptions, cfg.SubscriptionTTL)
	defer reg.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt := router.New(reg, avail, cons)
	must(0, rt.Run(ctx))
	log.Println("[teetime] event router started")

	// Services.
	bookingSvc := service.NewBookingSvc(slotRepo, bookingRepo, courseRepo, pub, service.BookingConfig{
		RetryBound: cfg.OptimisticRetryBound,
		Tolerance:  cfg.SlotMatchTolerance,
		Timeout:    cfg.BookingTimeout,
	})
	waitlistSvc := service.NewWaitlistSvc(waitlistRepo, slotRepo, bookingSvc, pub, service.WaitlistConfig{
		GracePeriod: cfg.WaitListGracePeriod,
		Turnover:    cfg.WaitListTurnover,
	})
	bookingSvc.AttachPromoter(waitlistSvc)
	groupSvc := service.NewGroupSvc(groupRepo, slotRepo, bookingSvc, bookingSvc, service.GroupConfig{
		MaxSize:   cfg.MaxGroupSize,
		Tolerance: cfg.SlotMatchTolerance,
	})
	statusSvc := service.NewStatusSvc(courseRepo, pub)

	janitor := service.NewJanitor(waitlistSvc, groupSvc, avail)
	must(0, janitor.Start())
	defer janitor.Stop()

	// HTTP
	srv := transport.NewServer(avail, reg, bookingSvc, waitlistSvc, groupSvc, statusSvc,
		courseRepo, slotRepo, []byte(cfg.JWTSecret))
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Routes()}
	go func() {
		log.Println("[teetime] HTTP listening on", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = httpSrv.Shutdown(shutdownCtx)
	reg.Shutdown()
	log.Println("[teetime] stopped")
}
