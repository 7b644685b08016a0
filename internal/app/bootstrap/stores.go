package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dohanimedicare/medicare-platform/internal/appointments"
	"github.com/dohanimedicare/medicare-platform/internal/cms"
	appconfig "github.com/dohanimedicare/medicare-platform/internal/config"
	"github.com/dohanimedicare/medicare-platform/internal/messages"
	"github.com/dohanimedicare/medicare-platform/pkg/logging"
)

// Stores bundles the source-of-truth stores for one backend.
type Stores struct {
	Backend      string
	Appointments appointments.Store
	Messages     messages.Store
	// Pool is set for the postgres backend and backs the event outbox.
	Pool *pgxpool.Pool

	closers []func()
}

// Close releases any pools opened for the stores.
func (s *Stores) Close() {
	if s == nil {
		return
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// BuildStores opens the stores selected by STORE_BACKEND.
func BuildStores(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Stores, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.StoreBackend {
	case appconfig.StoreMemory, "":
		logger.Warn("using in-memory stores; data is lost on restart")
		return &Stores{
			Backend:      appconfig.StoreMemory,
			Appointments: appointments.NewMemoryStore(),
			Messages:     messages.NewMemoryStore(),
		}, nil

	case appconfig.StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("bootstrap: DATABASE_URL is required for the postgres backend")
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: connect postgres pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
		}
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("bootstrap: open postgres: %w", err)
		}
		logger.Info("using postgres stores")
		return &Stores{
			Backend:      appconfig.StorePostgres,
			Appointments: appointments.NewPostgresStore(pool),
			Messages:     messages.NewSQLStore(db),
			Pool:         pool,
			closers:      []func(){pool.Close, func() { _ = db.Close() }},
		}, nil

	case appconfig.StoreCMS:
		if cfg.CMSEndpoint == "" {
			return nil, fmt.Errorf("bootstrap: CMS_ENDPOINT is required for the cms backend")
		}
		client := cms.NewClient(cms.Config{
			Endpoint: cfg.CMSEndpoint,
			Token:    cfg.CMSToken,
			Timeout:  cfg.CMSTimeout,
		}, logger)
		logger.Info("using headless CMS stores", "endpoint", cfg.CMSEndpoint)
		return &Stores{
			Backend:      appconfig.StoreCMS,
			Appointments: appointments.NewCMSStore(client, logger),
			Messages:     messages.NewCMSStore(client, logger),
		}, nil

	default:
		return nil, fmt.Errorf("bootstrap: unknown store backend %q", cfg.StoreBackend)
	}
}
