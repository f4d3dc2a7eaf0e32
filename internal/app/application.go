package app

import (
	"context"
	"fmt"
	"time"

	mintsvc "github.com/candyops/mint_layer/internal/app/services/mint"
	"github.com/candyops/mint_layer/internal/app/storage"
	"github.com/candyops/mint_layer/internal/app/storage/memory"
	"github.com/candyops/mint_layer/internal/app/system"
	"github.com/candyops/mint_layer/pkg/logger"
)

// Stores encapsulates persistence dependencies. A nil store defaults to the
// in-memory implementation.
type Stores struct {
	Attempts storage.AttemptStore
}

// Settings tunes the mint session components.
type Settings struct {
	PollInterval      time.Duration
	ConfirmInterval   time.Duration
	ConfirmTimeout    time.Duration
	AttemptsPerMinute int
}

// Application ties the mint session service together and manages its
// lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Mint *mintsvc.Service
}

// New builds a fully initialised application.
func New(reader mintsvc.ChainReader, writer mintsvc.ChainWriter, stores Stores, settings Settings, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if stores.Attempts == nil {
		stores.Attempts = memory.New()
	}

	manager := system.NewManager()

	mintService := mintsvc.New(reader, writer, stores.Attempts, mintsvc.Options{
		ConfirmInterval:   settings.ConfirmInterval,
		ConfirmTimeout:    settings.ConfirmTimeout,
		AttemptsPerMinute: settings.AttemptsPerMinute,
	}, log)

	refresher := mintsvc.NewRefresher(mintService, settings.PollInterval, log)
	if err := manager.Register(refresher); err != nil {
		return nil, fmt.Errorf("register %s: %w", refresher.Name(), err)
	}

	return &Application{
		manager: manager,
		log:     log,
		Mint:    mintService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services and the session controller's background work.
func (a *Application) Stop(ctx context.Context) error {
	err := a.manager.Stop(ctx)
	a.Mint.Close()
	return err
}
