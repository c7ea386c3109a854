package config

import (
	"fmt"
	"os"
	"time"

	"github.com/notifyhub/realtime/internal/envconfig"
)

// Config holds all runtime configuration for the WS-Delivery service,
// loaded from environment variables. Only BUS_URL and WS_TICKET_SECRET
// are required; every other field has a sensible default, same
// contract as the teacher's config.Load.
type Config struct {
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	BusURL            string
	BusReconnectEvery time.Duration
	ConsumerPrefetch  int
	NotificationQueue string

	TicketSecret string

	AllowedOrigins []string

	ConnectionBufferSize int
	PingInterval         time.Duration
	RetryInterval        time.Duration
	RetryMaxCount        int

	DedupTTL           time.Duration
	DedupSweepInterval time.Duration
}

func Load() (*Config, error) {
	busURL := os.Getenv("BUS_URL")
	if busURL == "" {
		return nil, fmt.Errorf("BUS_URL is required")
	}
	ticketSecret := os.Getenv("WS_TICKET_SECRET")
	if ticketSecret == "" {
		return nil, fmt.Errorf("WS_TICKET_SECRET is required")
	}

	return &Config{
		HTTPPort:        envconfig.String("HTTP_PORT", "8081"),
		ReadTimeout:     envconfig.Duration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    envconfig.Duration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: envconfig.Duration("SHUTDOWN_TIMEOUT", 30*time.Second),

		BusURL:            busURL,
		BusReconnectEvery: envconfig.Duration("BUS_RECONNECT_INTERVAL", 10*time.Second),
		ConsumerPrefetch:  envconfig.Int("CONSUMER_PREFETCH", 50),
		NotificationQueue: envconfig.String("NOTIFICATION_QUEUE", "ws-delivery.notifications"),

		TicketSecret: ticketSecret,

		AllowedOrigins: envconfig.StringSlice("ALLOWED_ORIGINS"),

		ConnectionBufferSize: envconfig.Int("CONNECTION_BUFFER_SIZE", 16),
		PingInterval:         envconfig.Duration("PING_INTERVAL", 30*time.Second),
		RetryInterval:        envconfig.Duration("RETRY_INTERVAL", 10*time.Second),
		RetryMaxCount:        envconfig.Int("RETRY_MAX_COUNT", 5),

		DedupTTL:           envconfig.Duration("NOTIFICATION_LIFESPAN", 30*time.Second),
		DedupSweepInterval: envconfig.Duration("DEDUP_SWEEP_INTERVAL", 120*time.Second),
	}, nil
}
