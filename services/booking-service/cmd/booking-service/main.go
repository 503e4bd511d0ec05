package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/md-rashed-zaman/slotbook/libs/auth"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/libs/grpcx"
	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/slotbook/libs/otel"
	"github.com/md-rashed-zaman/slotbook/libs/runtime"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/settings"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/migrations"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxBodyBytes = 1 << 20

func main() {
	_ = godotenv.Load()

	cfg, err := settings.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := runtime.NewLogger(cfg.ServiceName)

	ctx, stop := runtime.SignalContext()
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("booking-service exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg settings.Settings, logger *slog.Logger) error {
	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.ServiceName))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	pool, err := db.Open(ctx, cfg.DatabaseURL, db.Options{MaxConns: int32(cfg.DBMaxConns)})
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(cfg.DatabaseURL, migrations.FS, ".", logger); err != nil {
			return err
		}
	}

	scheduleRepo := storage.NewScheduleRepository(pool)
	inserted, err := scheduleRepo.EnsureDefaultWeeklyHours(ctx)
	if err != nil {
		return err
	}
	if inserted > 0 {
		logger.Info("default weekly hours seeded", "days", inserted)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	clk := clock.System{Loc: cfg.Location}
	outboxRepo := outbox.NewRepository()

	availabilityService := availability.NewService(storage.NewSnapshotReader(pool, cfg.Location), clk, cfg.Location, cfg.Availability, m)
	committer := booking.NewCommitter(storage.NewBookingStore(pool, outboxRepo, cfg.Location), clk, cfg.Location, availabilityService.SlotConfig(), logger, m)
	appointments := storage.NewAppointmentRepository(pool, cfg.Location)
	accounts := storage.NewAccountRepository(pool)

	publisher := outbox.NewPublisher(pool, outboxRepo, logger, m, outbox.PublisherConfig{
		Brokers:   cfg.KafkaBrokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if len(cfg.KafkaBrokers) > 0 {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers), Optional: true})
	}

	var limiter httpx.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		limiter = httpx.NewRedisRateLimiter(rdb, cfg.RateLimit, cfg.RateWindow, "slotbook:ratelimit:")
		checks = append(checks, runtime.ReadyCheck{
			Name:     "redis",
			Check:    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			Optional: true,
		})
	} else {
		limiter = httpx.NewMemoryRateLimiter(cfg.RateLimit, cfg.RateWindow)
	}

	verifier := &auth.Verifier{Secret: cfg.JWTSecret}
	if cfg.JWKSURL != "" {
		verifier.JWKS = auth.NewJWKSClient(cfg.JWKSURL, 5*time.Minute, &http.Client{Timeout: 5 * time.Second})
	}
	authed := func(h http.Handler, roles ...model.Role) http.Handler {
		if len(roles) > 0 {
			h = handlers.RequireRole(h, roles...)
		}
		return handlers.RequireAuth(h, verifier, accounts, logger)
	}

	availabilityHandler := handlers.NewAvailabilityHandler(availabilityService, logger)
	bookingHandler := handlers.NewBookingHandler(committer, appointments, cfg.Location, logger)
	scheduleHandler := handlers.NewScheduleHandler(scheduleRepo, clk, cfg.Location, logger)
	adminHandler := handlers.NewAdminHandler(committer, appointments, cfg.Location, logger)
	sessionHandler := handlers.NewSessionHandler(accounts, cfg.JWTSecret, cfg.TokenTTL, clk, logger)
	bookLimit := httpx.RateLimit(limiter, handlers.PrincipalKey, logger, true)
	loginLimit := httpx.RateLimit(limiter, httpx.ClientIP, logger, true)

	mux := runtime.NewBaseMux(checks...)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/api/v1/auth/login", loginLimit(http.HandlerFunc(sessionHandler.Login)))
	mux.Handle("/api/v1/availability", authed(http.HandlerFunc(availabilityHandler.Get)))
	mux.Handle("/api/v1/bookings", authed(bookLimit(http.HandlerFunc(bookingHandler.Create)), model.RoleUser, model.RoleAdmin))
	mux.Handle("/api/v1/bookings/mine", authed(http.HandlerFunc(bookingHandler.Mine)))
	mux.Handle("/api/v1/business/weekly-hours", authed(http.HandlerFunc(scheduleHandler.WeeklyHours), model.RoleBusiness, model.RoleAdmin))
	mux.Handle("/api/v1/business/overrides", authed(http.HandlerFunc(scheduleHandler.Overrides), model.RoleBusiness, model.RoleAdmin))
	mux.Handle("/api/v1/admin/appointments", authed(http.HandlerFunc(adminHandler.Appointments), model.RoleAdmin))
	mux.Handle("/api/v1/admin/appointments/cancel", authed(http.HandlerFunc(adminHandler.Cancel), model.RoleAdmin))

	httpHandler := httpx.Chain(mux,
		httpx.WithRecover(logger),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(maxBodyBytes),
		httpx.WithTimeout(15*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcHealth := grpcx.NewHealthServer(logger)
	grpcHealth.SetServing(cfg.ServiceName, true)
	go func() {
		if err := grpcHealth.Serve(ctx, ":"+cfg.GRPCPort); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	grpcHealth.SetServing(cfg.ServiceName, false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
	return nil
}
