package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type App struct {
	// DB
	PGTeeTimeDSN string `envconfig:"PG_TEETIME_DSN" required:"true"`

	// RabbitMQ
	RabbitURL       string `envconfig:"RABBIT_URL" required:"true"`
	TeeTimeExchange string `envconfig:"TEETIME_EXCHANGE" default:"teetime.exchange"`
	RouterQueue     string `envconfig:"ROUTER_QUEUE" default:"teetime.router.q"`

	// JWT
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// Network
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// Subscription registry
	MaxSubscriptions int           `envconfig:"MAX_SUBSCRIPTIONS" default:"50"`
	SubscriptionTTL  time.Duration `envconfig:"SUBSCRIPTION_TTL" default:"3600s"`

	// Availability cache
	AvailabilityCacheTTL time.Duration `envconfig:"AVAILABILITY_CACHE_TTL" default:"300s"`
	ConfidenceBase       float64       `envconfig:"CONFIDENCE_BASE" default:"0.8"`
	ConfidenceWindow     time.Duration `envconfig:"CONFIDENCE_WINDOW" default:"3600s"`
	ConfidenceUpdates    int           `envconfig:"CONFIDENCE_UPDATE_TARGET" default:"10"`

	// Booking transaction processor
	OptimisticRetryBound int           `envconfig:"OPTIMISTIC_RETRY_BOUND" default:"3"`
	BookingTimeout       time.Duration `envconfig:"BOOKING_TIMEOUT" default:"10s"`
	SlotMatchTolerance   time.Duration `envconfig:"SLOT_MATCH_TOLERANCE" default:"5m"`

	// Wait list
	WaitListGracePeriod time.Duration `envconfig:"WAITLIST_GRACE_PERIOD" default:"600s"`
	// Average time for one wait-list position to clear. Heuristic
	// domain parameter, tune per deployment.
	WaitListTurnover time.Duration `envconfig:"WAITLIST_TURNOVER" default:"12m"`

	// Group bookings
	MaxGroupSize int `envconfig:"MAX_GROUP_SIZE" default:"16"`
}

func Load() (App, error) {
	var c App
	err := envconfig.Process("", &c)
	return c, err
}
