package mint

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/candyops/mint_layer/internal/app/system"
	"github.com/candyops/mint_layer/pkg/logger"
)

var _ system.Service = (*Refresher)(nil)

// Refresher periodically reloads on-chain session state. While an attempt is
// in flight the service skips refreshes itself, so the ticker can keep
// running unconditionally.
type Refresher struct {
	service  *Service
	log      *logger.Logger
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewRefresher creates a lifecycle-managed session refresher.
func NewRefresher(service *Service, interval time.Duration, log *logger.Logger) *Refresher {
	if log == nil {
		log = logger.NewDefault("mint-refresher")
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Refresher{
		service:  service,
		log:      log,
		interval: interval,
	}
}

func (r *Refresher) Name() string { return "mint-refresher" }

func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		// Initial load so the session is populated before the first tick.
		r.tick(runCtx)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				r.tick(runCtx)
			}
		}
	}()

	r.log.WithField("interval", r.interval.String()).Info("mint session refresher started")
	return nil
}

func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.log.Info("mint session refresher stopped")
	return nil
}

func (r *Refresher) tick(ctx context.Context) {
	if r.service == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := r.service.Refresh(ctx); err != nil {
		var norm *NormalizationError
		if errors.As(err, &norm) {
			r.log.WithError(err).Error("distributor account failed normalization")
			return
		}
		r.log.WithError(err).Warn("session refresh failed")
	}
}
