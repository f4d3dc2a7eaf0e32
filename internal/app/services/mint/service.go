package mint

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	domain "github.com/candyops/mint_layer/internal/app/domain/mint"
	"github.com/candyops/mint_layer/internal/app/metrics"
	"github.com/candyops/mint_layer/internal/app/storage"
	"github.com/candyops/mint_layer/internal/chain"
	"github.com/candyops/mint_layer/pkg/logger"
)

// ChainReader is the read boundary the session controller depends on. The
// concrete implementation lives in the chain package.
type ChainReader interface {
	DistributorID() string
	Distributor(ctx context.Context) (*chain.DistributorAccount, string, error)
	Guards(ctx context.Context, programID string) (*chain.GuardAccount, error)
	Balance(ctx context.Context, wallet string) (uint64, error)
	TokenHolding(ctx context.Context, wallet, mint string) (uint64, error)
	SignatureStatus(ctx context.Context, signature string) (*chain.SignatureStatus, error)
	Asset(ctx context.Context, mint string) (*chain.MetadataAccount, error)
}

// ChainWriter is the write boundary. A writer without a configured payer
// wallet reports WalletConnected false and rejects submissions.
type ChainWriter interface {
	WalletConnected() bool
	WalletAddress() string
	SubmitMint(ctx context.Context, req chain.MintRequest) (*chain.MintReceipt, error)
}

// Snapshot is the full client-observable session state at one point in time.
type Snapshot struct {
	Distribution domain.DistributionState  `json:"distribution"`
	Guards       *domain.GuardSet          `json:"guards,omitempty"`
	Verdict      domain.EligibilityVerdict `json:"eligibility"`

	Wallet          string `json:"wallet,omitempty"`
	WalletConnected bool   `json:"wallet_connected"`
	WalletBalance   uint64 `json:"wallet_balance"`

	Attempt   *domain.Attempt     `json:"attempt,omitempty"`
	LastAsset *domain.MintedAsset `json:"last_asset,omitempty"`

	RefreshedAt time.Time `json:"refreshed_at"`
}

// Options tunes the session controller.
type Options struct {
	ConfirmInterval   time.Duration
	ConfirmTimeout    time.Duration
	AttemptsPerMinute int
}

// Service owns one mint session: it refreshes on-chain distribution state,
// evaluates eligibility, and drives mint attempts through their lifecycle.
// At most one attempt is in flight at any time.
type Service struct {
	reader   ChainReader
	writer   ChainWriter
	attempts storage.AttemptStore
	limiter  *AttemptLimiter
	log      *logger.Logger

	confirmInterval time.Duration
	confirmTimeout  time.Duration

	mu            sync.RWMutex
	snapshot      Snapshot
	current       *domain.Attempt
	confirmCancel context.CancelFunc
	subscribers   map[int]chan Snapshot
	nextSub       int

	rootCtx    context.Context
	rootCancel context.CancelFunc
	wg         sync.WaitGroup
}

// New constructs a mint session controller.
func New(reader ChainReader, writer ChainWriter, attempts storage.AttemptStore, opts Options, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("mint")
	}
	if opts.ConfirmInterval <= 0 {
		opts.ConfirmInterval = 2 * time.Second
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = 90 * time.Second
	}
	if opts.AttemptsPerMinute <= 0 {
		opts.AttemptsPerMinute = 6
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	return &Service{
		reader:          reader,
		writer:          writer,
		attempts:        attempts,
		limiter:         NewAttemptLimiter(opts.AttemptsPerMinute),
		log:             log,
		confirmInterval: opts.ConfirmInterval,
		confirmTimeout:  opts.ConfirmTimeout,
		subscribers:     make(map[int]chan Snapshot),
		rootCtx:         rootCtx,
		rootCancel:      rootCancel,
	}
}

// Close stops background confirmation watchers.
func (s *Service) Close() {
	s.rootCancel()
	s.wg.Wait()
}

// Snapshot returns the last observed session state.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Attempt = cloneAttempt(s.current)
	return snap
}

// Attempt returns the current attempt, or nil when the session is idle.
func (s *Service) Attempt() *domain.Attempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAttempt(s.current)
}

// Attempts returns the persisted attempt history, newest first.
func (s *Service) Attempts(ctx context.Context, wallet string, limit int) ([]domain.Attempt, error) {
	return s.attempts.ListAttempts(ctx, wallet, limit)
}

// Subscribe registers a session state listener. Slow listeners miss
// intermediate snapshots rather than blocking the controller. The returned
// function unregisters the listener.
func (s *Service) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Snapshot, 8)
	s.subscribers[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existing, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(existing)
		}
	}
}

// Refresh loads fresh on-chain state and re-evaluates eligibility. It is a
// no-op while an attempt is in flight, since the watcher owns the session
// until the attempt settles.
func (s *Service) Refresh(ctx context.Context) error {
	s.mu.RLock()
	inFlight := s.current != nil && s.current.State.InFlight()
	s.mu.RUnlock()
	if inFlight {
		return nil
	}

	input, _, err := s.loadSession(ctx)
	if err != nil {
		metrics.RecordRefresh(false)
		return err
	}
	metrics.RecordRefresh(true)

	verdict := Evaluate(*input)
	metrics.RecordEligibility(string(verdict.Reason))

	s.mu.Lock()
	s.snapshot.Distribution = input.State
	s.snapshot.Guards = input.Guards
	s.snapshot.Verdict = verdict
	s.snapshot.Wallet = s.writer.WalletAddress()
	s.snapshot.WalletConnected = input.WalletConnected
	s.snapshot.WalletBalance = input.WalletBalance
	s.snapshot.RefreshedAt = time.Now().UTC()
	snap := s.snapshot
	snap.Attempt = cloneAttempt(s.current)
	s.broadcastLocked(snap)
	s.mu.Unlock()

	return nil
}

// Mint triggers one mint attempt. Eligibility is re-checked against fresh
// chain state before submission. A second trigger while an attempt is in
// flight returns ErrAttemptInFlight without side effects.
func (s *Service) Mint(ctx context.Context) (*domain.Attempt, error) {
	s.mu.Lock()
	if s.current != nil && s.current.State.InFlight() {
		att := cloneAttempt(s.current)
		s.mu.Unlock()
		return att, ErrAttemptInFlight
	}
	if !s.limiter.Allow() {
		s.mu.Unlock()
		return nil, ErrRateLimited
	}

	att := &domain.Attempt{
		ID:        uuid.NewString(),
		Wallet:    s.writer.WalletAddress(),
		State:     domain.StateValidating,
		StartedAt: time.Now().UTC(),
	}
	s.current = att
	s.mu.Unlock()

	if _, err := s.attempts.CreateAttempt(ctx, *att); err != nil {
		s.log.WithError(err).Warn("persist mint attempt failed")
	}
	s.publish()

	input, programID, err := s.loadSession(ctx)
	if err != nil {
		category, detail := ClassifySubmitError(err)
		return s.finishAttempt(ctx, att, domain.StateFailed, category, detail), nil
	}

	verdict := Evaluate(*input)
	metrics.RecordEligibility(string(verdict.Reason))
	if !verdict.Allowed {
		return s.finishAttempt(ctx, att, domain.StateFailed,
			domain.ErrCategoryEligibility, string(verdict.Reason)), nil
	}

	s.transition(ctx, domain.StateSubmitting)

	req := chain.MintRequest{
		DistributorID:  s.reader.DistributorID(),
		ProgramID:      programID,
		MintAuthority:  input.State.MintAuthority,
		CollectionMint: input.State.CollectionMint,
	}
	if input.Guards != nil && input.Guards.Payment != nil {
		req.PaymentDestination = input.Guards.Payment.Destination
	}

	receipt, err := s.writer.SubmitMint(ctx, req)
	if err != nil {
		category, detail := ClassifySubmitError(err)
		s.log.WithError(err).WithField("category", string(category)).Warn("mint submission failed")
		return s.finishAttempt(ctx, att, domain.StateFailed, category, detail), nil
	}

	s.mu.Lock()
	if s.current == nil || s.current.ID != att.ID {
		// Reset cleared the session while the writer call was outstanding.
		// The transaction may still land, but the attempt is settled; drop
		// the receipt and hand back the reset attempt.
		settled := cloneAttempt(att)
		s.mu.Unlock()
		s.log.WithField("attempt_id", att.ID).
			WithField("signature", receipt.Signature).
			Warn("attempt reset during submission; dropping receipt")
		return settled, nil
	}
	s.current.State = domain.StateConfirming
	s.current.TransactionID = receipt.Signature
	s.current.MintAddress = receipt.MintAddress
	att = cloneAttempt(s.current)

	watchCtx, cancel := context.WithCancel(s.rootCtx)
	s.confirmCancel = cancel
	s.mu.Unlock()

	s.persist(ctx, att)
	s.publish()

	s.log.WithField("attempt_id", att.ID).
		WithField("signature", receipt.Signature).
		WithField("mint", receipt.MintAddress).
		Info("mint transaction submitted")

	s.wg.Add(1)
	go s.watchConfirmation(watchCtx, att.ID, receipt.Signature, receipt.MintAddress)

	return att, nil
}

// Reset clears the current attempt so a new one can start. An in-flight
// attempt, typically one stuck in confirming, is marked failed first. Reset
// on an idle or settled session is a no-op.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	cur := s.current
	cancel := s.confirmCancel
	s.confirmCancel = nil
	inFlight := cur != nil && cur.State.InFlight()
	var prevState domain.AttemptState
	if cur != nil {
		prevState = cur.State
	}
	if inFlight {
		now := time.Now().UTC()
		cur.State = domain.StateFailed
		cur.ErrorCategory = domain.ErrCategoryUnknown
		cur.ErrorDetail = "reset requested"
		cur.FinishedAt = &now
	}
	att := cloneAttempt(cur)
	s.current = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if inFlight {
		s.persist(ctx, att)
		metrics.RecordAttempt("reset", time.Since(att.StartedAt))
		s.log.WithField("attempt_id", att.ID).
			WithField("previous_state", string(prevState)).
			Info("mint attempt reset")
	}
	s.publish()
	return nil
}

// watchConfirmation polls the signature status until the transaction settles
// or the watcher is cancelled by reset or shutdown. Past the confirmation
// window the attempt is considered stuck and a warning is logged, but polling
// continues so a transaction that lands late is still recorded.
func (s *Service) watchConfirmation(ctx context.Context, attemptID, signature, mintAddress string) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.confirmInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(s.confirmTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			s.log.WithField("attempt_id", attemptID).
				WithField("signature", signature).
				Warn("confirmation window elapsed; attempt stays in confirming until reset")
		case <-ticker.C:
			status, err := s.reader.SignatureStatus(ctx, signature)
			if err != nil {
				s.log.WithError(err).WithField("signature", signature).Warn("signature status query failed")
				continue
			}
			if status == nil {
				continue
			}
			if status.Failed() {
				s.log.WithField("signature", signature).
					WithField("chain_error", string(status.Err)).
					Warn("mint transaction failed on chain")
				s.settleWatched(attemptID, domain.StateFailed,
					domain.ErrCategorySimulationFailed, categoryMessages[domain.ErrCategorySimulationFailed])
				return
			}
			if status.Confirmed() {
				s.settleWatched(attemptID, domain.StateSucceeded, domain.ErrCategoryNone, "")
				s.afterSuccess(ctx, mintAddress)
				return
			}
		}
	}
}

// settleWatched moves the watched attempt to a terminal state, guarding
// against the session having been reset while the watcher was running.
func (s *Service) settleWatched(attemptID string, state domain.AttemptState, category domain.ErrorCategory, detail string) {
	s.mu.Lock()
	if s.current == nil || s.current.ID != attemptID {
		s.mu.Unlock()
		return
	}
	now := time.Now().UTC()
	s.current.State = state
	s.current.ErrorCategory = category
	s.current.ErrorDetail = detail
	s.current.FinishedAt = &now
	s.confirmCancel = nil
	att := cloneAttempt(s.current)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.persist(ctx, att)
	metrics.RecordAttempt(string(state), time.Since(att.StartedAt))
	s.publish()

	s.log.WithField("attempt_id", att.ID).
		WithField("state", string(state)).
		Info("mint attempt settled")
}

// afterSuccess refreshes the distribution counters and looks up the minted
// asset's metadata. Both are best effort.
func (s *Service) afterSuccess(ctx context.Context, mintAddress string) {
	refreshCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.Refresh(refreshCtx); err != nil {
		s.log.WithError(err).Warn("post-mint refresh failed")
	}

	meta, err := s.reader.Asset(refreshCtx, mintAddress)
	if err != nil {
		s.log.WithError(err).WithField("mint", mintAddress).Warn("minted asset lookup failed")
		return
	}

	s.mu.Lock()
	s.snapshot.LastAsset = &domain.MintedAsset{
		Mint:   mintAddress,
		Name:   meta.Name,
		Symbol: meta.Symbol,
		URI:    meta.URI,
	}
	s.mu.Unlock()
	s.publish()
}

// loadSession reads everything the evaluator needs from chain in one pass.
func (s *Service) loadSession(ctx context.Context) (*EligibilityInput, string, error) {
	acct, programID, err := s.reader.Distributor(ctx)
	if err != nil {
		return nil, "", &QueryError{Op: "distributor", Err: err}
	}
	state, err := NormalizeDistribution(s.reader.DistributorID(), acct, time.Now().UTC())
	if err != nil {
		return nil, "", err
	}

	guardAcct, err := s.reader.Guards(ctx, programID)
	if err != nil {
		return nil, "", &QueryError{Op: "guards", Err: err}
	}
	guards := NormalizeGuards(guardAcct)

	input := &EligibilityInput{
		State:           state,
		Guards:          guards,
		WalletConnected: s.writer.WalletConnected(),
		Now:             time.Now().Unix(),
	}
	if !input.WalletConnected {
		return input, programID, nil
	}

	wallet := s.writer.WalletAddress()
	balance, err := s.reader.Balance(ctx, wallet)
	if err != nil {
		return nil, "", &QueryError{Op: "balance", Err: err}
	}
	input.WalletBalance = balance

	if guards != nil && guards.TokenGate != nil {
		held, err := s.reader.TokenHolding(ctx, wallet, guards.TokenGate.Mint)
		if err != nil {
			return nil, "", &QueryError{Op: "token holding", Err: err}
		}
		input.TokenHoldings = map[string]uint64{guards.TokenGate.Mint: held}
	}
	if guards != nil && guards.MintLimit != nil {
		minted, err := s.attempts.CountSucceededByWallet(ctx, wallet)
		if err != nil {
			return nil, "", &QueryError{Op: "mint count", Err: err}
		}
		input.MintedByWallet = uint64(minted)
	}

	return input, programID, nil
}

// transition moves the current attempt to a non-terminal state.
func (s *Service) transition(ctx context.Context, state domain.AttemptState) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	s.current.State = state
	att := cloneAttempt(s.current)
	s.mu.Unlock()

	s.persist(ctx, att)
	s.publish()
}

// finishAttempt moves the given attempt to a terminal state and returns it.
// When a concurrent reset already settled the attempt, the settled form is
// returned as-is so callers always get the attempt they started.
func (s *Service) finishAttempt(ctx context.Context, att *domain.Attempt, state domain.AttemptState, category domain.ErrorCategory, detail string) *domain.Attempt {
	s.mu.Lock()
	if s.current == nil || s.current.ID != att.ID {
		settled := cloneAttempt(att)
		s.mu.Unlock()
		return settled
	}
	now := time.Now().UTC()
	s.current.State = state
	s.current.ErrorCategory = category
	s.current.ErrorDetail = detail
	s.current.FinishedAt = &now
	att = cloneAttempt(s.current)
	s.mu.Unlock()

	s.persist(ctx, att)
	metrics.RecordAttempt(string(state), time.Since(att.StartedAt))
	s.publish()

	s.log.WithField("attempt_id", att.ID).
		WithField("state", string(state)).
		WithField("category", string(category)).
		Info("mint attempt finished")
	return att
}

func (s *Service) persist(ctx context.Context, att *domain.Attempt) {
	if att == nil {
		return
	}
	if _, err := s.attempts.UpdateAttempt(ctx, *att); err != nil {
		s.log.WithError(err).WithField("attempt_id", att.ID).Warn("persist attempt update failed")
	}
}

// publish pushes the current snapshot to all subscribers.
func (s *Service) publish() {
	s.mu.Lock()
	snap := s.snapshot
	snap.Attempt = cloneAttempt(s.current)
	s.broadcastLocked(snap)
	s.mu.Unlock()
}

func (s *Service) broadcastLocked(snap Snapshot) {
	for _, ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
		}
	}
}

func cloneAttempt(att *domain.Attempt) *domain.Attempt {
	if att == nil {
		return nil
	}
	cp := *att
	if att.FinishedAt != nil {
		t := *att.FinishedAt
		cp.FinishedAt = &t
	}
	return &cp
}
