// Package settings loads the booking-service environment shared by the
// server and the admin CLI.
package settings

import (
	"errors"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/config"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
)

type Settings struct {
	ServiceName string
	Port        string
	GRPCPort    string

	DatabaseURL   string
	DBMaxConns    int
	RunMigrations bool

	Location     *time.Location
	Availability availability.Config

	JWTSecret string
	JWKSURL   string
	TokenTTL  time.Duration

	KafkaBrokers []string

	RedisAddr     string
	RedisPassword string
	RateLimit     int
	RateWindow    time.Duration
}

// Load reads and validates the environment. Every problem found is reported,
// not just the first.
func Load() (Settings, error) {
	var (
		s    Settings
		errs []error
		err  error
	)
	collect := func(e error) {
		if e != nil {
			errs = append(errs, e)
		}
	}

	s.ServiceName = config.String("SERVICE_NAME", "booking-service")
	s.Port, err = config.Port("PORT", "8083")
	collect(err)
	s.GRPCPort, err = config.Port("GRPC_PORT", "9093")
	collect(err)

	s.DatabaseURL, err = config.RequiredString("DATABASE_URL")
	collect(err)
	s.DBMaxConns, err = config.PositiveInt("DB_MAX_CONNS", 10)
	collect(err)
	s.RunMigrations = config.Bool("RUN_MIGRATIONS", true)

	s.Location, err = config.Location("BUSINESS_TIMEZONE")
	collect(err)
	slotMinutes, err := config.PositiveInt("SLOT_MINUTES", 30)
	collect(err)
	stepMinutes, err := config.PositiveInt("SLOT_STEP_MINUTES", slotMinutes)
	collect(err)
	s.Availability.Slots = availability.SlotConfig{
		Duration: time.Duration(slotMinutes) * time.Minute,
		Step:     time.Duration(stepMinutes) * time.Minute,
	}
	s.Availability.DefaultWindowDays, err = config.PositiveInt("DEFAULT_WINDOW_DAYS", 30)
	collect(err)
	s.Availability.MaxWindowDays, err = config.PositiveInt("MAX_WINDOW_DAYS", 90)
	collect(err)
	if s.Availability.DefaultWindowDays > s.Availability.MaxWindowDays {
		collect(errors.New("DEFAULT_WINDOW_DAYS must not exceed MAX_WINDOW_DAYS"))
	}

	s.JWTSecret = config.String("JWT_SECRET", "")
	s.JWKSURL = config.String("AUTH_JWKS_URL", "")
	s.TokenTTL, err = config.Duration("ACCESS_TOKEN_TTL", 12*time.Hour)
	collect(err)
	if s.JWTSecret == "" && s.JWKSURL == "" {
		collect(errors.New("JWT_SECRET or AUTH_JWKS_URL is required"))
	}

	s.KafkaBrokers = config.List("KAFKA_BROKERS")

	s.RedisAddr = config.String("REDIS_ADDR", "")
	s.RedisPassword = config.String("REDIS_PASSWORD", "")
	s.RateLimit, err = config.PositiveInt("BOOKING_RATE_LIMIT", 10)
	collect(err)
	s.RateWindow, err = config.Duration("BOOKING_RATE_WINDOW", time.Minute)
	collect(err)

	if len(errs) > 0 {
		return Settings{}, errors.Join(errs...)
	}
	return s, nil
}
