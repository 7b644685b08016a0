package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/dohanimedicare/medicare-platform/internal/api/router"
	"github.com/dohanimedicare/medicare-platform/internal/appointments"
	appconfig "github.com/dohanimedicare/medicare-platform/internal/config"
	"github.com/dohanimedicare/medicare-platform/internal/events"
	"github.com/dohanimedicare/medicare-platform/internal/http/handlers"
	"github.com/dohanimedicare/medicare-platform/internal/intake"
	"github.com/dohanimedicare/medicare-platform/internal/messages"
	"github.com/dohanimedicare/medicare-platform/internal/notify"
	"github.com/dohanimedicare/medicare-platform/internal/observability/metrics"
	"github.com/dohanimedicare/medicare-platform/pkg/logging"
)

// App is the fully wired HTTP surface shared by the API server and the Lambda entrypoint.
type App struct {
	Handler      http.Handler
	Appointments *appointments.Service
	Messages     *messages.Service
	Registry     *prometheus.Registry

	stores      *Stores
	redis       *redis.Client
	limiterLoop func(context.Context)
	deliverer   *events.Deliverer
}

// BuildApp wires stores, notifications, events and the router from cfg.
func BuildApp(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	stores, err := BuildStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	workflowMetrics := metrics.NewWorkflowMetrics(reg)

	dispatcher := notify.NewDispatcher(BuildEmailSender(cfg, awsCfg, logger), cfg.NotifyTimeout, logger, workflowMetrics)
	publisher := BuildPublisher(cfg, awsCfg, logger)
	var deliverer *events.Deliverer
	if stores.Pool != nil {
		outbox := events.NewOutboxStore(stores.Pool)
		deliverer = events.NewDeliverer(outbox, events.RelayTo(publisher), logger)
		publisher = events.NewOutboxPublisher(outbox)
		logger.Info("events: using postgres outbox")
	}
	runner := intake.NewRunner(dispatcher, publisher, workflowMetrics, logger)

	loc, err := cfg.ResolveLocation()
	if err != nil {
		logger.Warn("unknown TIMEZONE; booking dates are checked in UTC", "timezone", cfg.Timezone, "error", err)
	}
	apptSvc := appointments.NewService(stores.Appointments, runner, appointments.MailSettings{
		ClinicName:  cfg.SenderName,
		ClinicPhone: cfg.ClinicPhone,
		ClinicEmail: cfg.ClinicEmail,
		StaffEmail:  cfg.StaffEmail,
		Location:    loc,
	}, logger)
	msgSvc := messages.NewService(stores.Messages, runner, messages.MailSettings{
		ClinicName:  cfg.SenderName,
		ClinicPhone: cfg.ClinicPhone,
		ClinicEmail: cfg.ClinicEmail,
		StaffEmail:  cfg.StaffEmail,
		Location:    loc,
	}, logger)

	redisClient := BuildRedisClient(ctx, cfg, logger, true)
	limiter, loop := BuildRateLimiter(cfg, redisClient, logger)

	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET is empty; admin routes are disabled")
	}

	handler := router.New(&router.Config{
		Logger:              logger,
		AppointmentsHandler: appointments.NewHandler(apptSvc, logger),
		MessagesHandler:     messages.NewHandler(msgSvc, logger),
		HealthHandler:       handlers.NewHealthHandler(),
		StatsHandler:        handlers.NewStatsHandler(apptSvc, msgSvc, reg, logger),
		MetricsHandler:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		RateLimiter:         limiter,
		AdminAuthSecret:     cfg.AdminJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	})

	return &App{
		Handler:      handler,
		Appointments: apptSvc,
		Messages:     msgSvc,
		Registry:     reg,
		stores:       stores,
		redis:        redisClient,
		limiterLoop:  loop,
		deliverer:    deliverer,
	}, nil
}

// Run blocks running background maintenance until ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	if a == nil {
		return
	}
	var wg sync.WaitGroup
	if a.limiterLoop != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.limiterLoop(ctx)
		}()
	}
	if a.deliverer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.deliverer.Start(ctx)
		}()
	}
	wg.Wait()
}

// FlushEvents relays one pending outbox batch. It is a no-op without a
// postgres outbox.
func (a *App) FlushEvents(ctx context.Context) int {
	if a == nil {
		return 0
	}
	return a.deliverer.Flush(ctx)
}

// Close releases stores and the Redis connection.
func (a *App) Close() {
	if a == nil {
		return
	}
	a.stores.Close()
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
