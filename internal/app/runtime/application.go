package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/candyops/mint_layer/internal/app"
	"github.com/candyops/mint_layer/internal/app/httpapi"
	"github.com/candyops/mint_layer/internal/app/storage"
	"github.com/candyops/mint_layer/internal/app/storage/postgres"
	"github.com/candyops/mint_layer/internal/chain"
	"github.com/candyops/mint_layer/internal/config"
	"github.com/candyops/mint_layer/internal/platform/migrations"
	"github.com/candyops/mint_layer/pkg/logger"
)

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	app        *app.Application
	httpServer *http.Server
	db         *sql.DB
}

// NewApplication constructs a new application instance with default wiring.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.LoggingConfig{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Output:  cfg.Logging.Output,
		Service: "mintd",
	})

	client, err := chain.NewClient(chain.Config{
		RPCURL:            cfg.Chain.RPCEndpoint,
		Timeout:           cfg.Chain.RequestTimeout,
		RequestsPerSecond: cfg.Chain.RequestsPerSecond,
	})
	if err != nil {
		return nil, fmt.Errorf("configure chain client: %w", err)
	}

	reader, err := chain.NewReader(client, cfg.Chain.CandyMachineID)
	if err != nil {
		return nil, fmt.Errorf("configure chain reader: %w", err)
	}
	writer, err := chain.NewWriter(client, cfg.Chain.WalletKey)
	if err != nil {
		return nil, fmt.Errorf("configure chain writer: %w", err)
	}
	if !writer.WalletConnected() {
		log.Warn("MINT_WALLET_KEY not set; eligibility reads work, minting is blocked")
	}

	attempts, db, err := buildStores(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("configure stores: %w", err)
	}

	application, err := app.New(reader, writer, app.Stores{Attempts: attempts}, app.Settings{
		PollInterval:      cfg.Mint.PollInterval,
		ConfirmInterval:   cfg.Mint.ConfirmInterval,
		ConfirmTimeout:    cfg.Mint.ConfirmTimeout,
		AttemptsPerMinute: int(cfg.Mint.AttemptsPerMinute),
	}, log)
	if err != nil {
		return nil, err
	}

	handler := httpapi.NewHandler(application.Mint, splitOrigins(cfg.Server.AllowedOrigins), log)
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Application{
		cfg:        cfg,
		log:        log,
		app:        application,
		httpServer: httpSrv,
		db:         db,
	}, nil
}

// Run starts the background services and the HTTP server, then blocks until
// the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", a.httpServer.Addr).
			WithField("network", a.cfg.Chain.Network).
			WithField("distributor", a.cfg.Chain.CandyMachineID).
			Info("HTTP server listening")
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server and background services.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := a.app.Stop(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("error stopping services")
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}

	return nil
}

// buildStores opens the Postgres attempt store when a DSN is configured.
// Without one the application falls back to the in-memory store, losing
// attempt history across restarts.
func buildStores(cfg *config.Config, log *logger.Logger) (storage.AttemptStore, *sql.DB, error) {
	if cfg.Database.DSN == "" {
		log.Warn("DATABASE_URL not set; using in-memory attempt store")
		return nil, nil, nil
	}

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := migrations.Apply(migrateCtx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("apply migrations: %w", err)
	}

	return postgres.New(db), db, nil
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
