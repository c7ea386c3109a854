package config

import (
	"fmt"
	"os"
	"time"

	"github.com/notifyhub/realtime/internal/envconfig"
)

// Config holds all runtime configuration for the core service, loaded
// from environment variables. Only DATABASE_URL, BUS_URL and
// WS_TICKET_SECRET are required; every other field has a sensible
// default, same contract as the teacher's config.Load.
type Config struct {
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxRequestBytes int64

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	BusURL               string
	BusReconnectEvery    time.Duration
	ConfirmationPrefetch int

	MaxContentBytes int

	JWTSecret      string
	JWTIssuer      string
	TicketSecret   string
	TicketLifespan time.Duration

	TicketRatePerSec int
	TicketBurst      int
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	busURL := os.Getenv("BUS_URL")
	if busURL == "" {
		return nil, fmt.Errorf("BUS_URL is required")
	}
	ticketSecret := os.Getenv("WS_TICKET_SECRET")
	if ticketSecret == "" {
		return nil, fmt.Errorf("WS_TICKET_SECRET is required")
	}

	return &Config{
		HTTPPort:        envconfig.String("HTTP_PORT", "8080"),
		ReadTimeout:     envconfig.Duration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    envconfig.Duration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: envconfig.Duration("SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxRequestBytes: int64(envconfig.Int("MAX_REQUEST_BYTES", 8*1024)),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(envconfig.Int("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(envconfig.Int("DB_MIN_CONNS", 5)),

		BusURL:               busURL,
		BusReconnectEvery:    envconfig.Duration("BUS_RECONNECT_INTERVAL", 10*time.Second),
		ConfirmationPrefetch: envconfig.Int("CONFIRMATION_PREFETCH", 10),

		MaxContentBytes: envconfig.Int("MAX_CONTENT_BYTES", 4096),

		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTIssuer:      envconfig.String("JWT_ISSUER", "notifyhub"),
		TicketSecret:   ticketSecret,
		TicketLifespan: envconfig.Duration("WS_TICKET_LIFESPAN", 30*time.Second),

		TicketRatePerSec: envconfig.Int("TICKET_RATE_PER_SEC", 2),
		TicketBurst:      envconfig.Int("TICKET_BURST", 5),
	}, nil
}
