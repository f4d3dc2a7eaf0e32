// Package mint defines the domain model for the candy-machine mint session:
// the distribution counters read from chain, the guard configuration gating a
// mint, the eligibility verdict derived from them, and the lifecycle of one
// mint attempt.
package mint

import "time"

// ReservedFeeBuffer is the lamport amount held back for network fees when
// checking wallet balance against the mint price (0.01 SOL).
const ReservedFeeBuffer uint64 = 10_000_000

// DistributionState mirrors the distributor (candy machine) account counters
// at one point in time.
type DistributionState struct {
	Address        string `json:"address"`
	ItemsRedeemed  uint64 `json:"items_redeemed"`
	ItemsAvailable uint64 `json:"items_available"`
	ItemsLoaded    uint64 `json:"items_loaded"`
	// IsFullyLoaded reports whether every configured item has been uploaded
	// into the distributor (ItemsLoaded >= ItemsAvailable).
	IsFullyLoaded bool `json:"is_fully_loaded"`

	Authority      string `json:"authority"`
	MintAuthority  string `json:"mint_authority"`
	CollectionMint string `json:"collection_mint"`

	Symbol               string `json:"symbol,omitempty"`
	SellerFeeBasisPoints uint16 `json:"seller_fee_basis_points,omitempty"`
	IsMutable            bool   `json:"is_mutable"`
	MaxEditionSupply     uint64 `json:"max_edition_supply"`

	FetchedAt time.Time `json:"fetched_at"`
}

// ItemsRemaining returns how many items can still be minted.
func (s DistributionState) ItemsRemaining() uint64 {
	if s.ItemsRedeemed >= s.ItemsAvailable {
		return 0
	}
	return s.ItemsAvailable - s.ItemsRedeemed
}

// RedeemedPercent returns the share of items already minted, in [0, 100].
// A distributor with zero items counts as fully redeemed.
func (s DistributionState) RedeemedPercent() float64 {
	if s.ItemsAvailable == 0 {
		return 100
	}
	pct := float64(s.ItemsRedeemed) / float64(s.ItemsAvailable) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// SaleWindow bounds the period during which minting is open. Either side may
// be absent. Bounds are inclusive.
type SaleWindow struct {
	StartTime *int64 `json:"start_time,omitempty"` // unix seconds
	EndTime   *int64 `json:"end_time,omitempty"`   // unix seconds
}

// TokenGate requires the minting wallet to hold a minimum amount of a
// specific token mint.
type TokenGate struct {
	Mint           string `json:"mint"`
	RequiredAmount uint64 `json:"required_amount"`
}

// Payment describes the payment guard: price in lamports and the account
// that receives it.
type Payment struct {
	Lamports    uint64 `json:"lamports"`
	Destination string `json:"destination"`
}

// GuardSet holds the configured guards for a distributor. A nil GuardSet
// means no restrictions beyond the distribution counters.
type GuardSet struct {
	Payment    *Payment    `json:"payment,omitempty"`
	SaleWindow *SaleWindow `json:"sale_window,omitempty"`
	TokenGate  *TokenGate  `json:"token_gate,omitempty"`
	// MintLimit caps successful mints per wallet when present.
	MintLimit *uint64 `json:"mint_limit,omitempty"`
}

// Price returns the configured mint price in lamports, zero when no payment
// guard is set.
func (g *GuardSet) Price() uint64 {
	if g == nil || g.Payment == nil {
		return 0
	}
	return g.Payment.Lamports
}

// BlockReason identifies the first check that blocked a mint.
type BlockReason string

const (
	ReasonNone                BlockReason = "none"
	ReasonWalletNotConnected  BlockReason = "wallet_not_connected"
	ReasonSoldOut             BlockReason = "sold_out"
	ReasonNotFullyLoaded      BlockReason = "not_fully_loaded"
	ReasonBeforeSaleStart     BlockReason = "before_sale_start"
	ReasonAfterSaleEnd        BlockReason = "after_sale_end"
	ReasonTokenGateNotMet     BlockReason = "token_gate_not_met"
	ReasonMintLimitReached    BlockReason = "mint_limit_reached"
	ReasonInsufficientBalance BlockReason = "insufficient_balance"
)

// EligibilityVerdict is the derived answer to "may this wallet mint now".
type EligibilityVerdict struct {
	Allowed bool        `json:"allowed"`
	Reason  BlockReason `json:"reason"`
	// Price is the resolved lamport price the mint would charge.
	Price uint64 `json:"price"`
}

// AttemptState is the lifecycle state of a mint attempt.
type AttemptState string

const (
	StateIdle       AttemptState = "idle"
	StateValidating AttemptState = "validating"
	StateSubmitting AttemptState = "submitting"
	StateConfirming AttemptState = "confirming"
	StateSucceeded  AttemptState = "succeeded"
	StateFailed     AttemptState = "failed"
)

// Terminal reports whether the state permits starting a new attempt.
func (s AttemptState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// InFlight reports whether a transaction may already be on its way to the
// chain, so the attempt must not be raced by a second one.
func (s AttemptState) InFlight() bool {
	return s == StateValidating || s == StateSubmitting || s == StateConfirming
}

// ErrorCategory classifies a failed attempt. User-facing text is derived
// from the category; raw provider messages are only logged.
type ErrorCategory string

const (
	ErrCategoryNone              ErrorCategory = ""
	ErrCategoryEligibility       ErrorCategory = "eligibility_blocked"
	ErrCategoryUserRejected      ErrorCategory = "user_rejected"
	ErrCategoryInsufficientFunds ErrorCategory = "insufficient_funds"
	ErrCategorySimulationFailed  ErrorCategory = "simulation_failed"
	ErrCategoryCongestion        ErrorCategory = "network_congestion"
	ErrCategoryUnknown           ErrorCategory = "unknown"
)

// Attempt records one user-initiated mint and its outcome.
type Attempt struct {
	ID            string        `json:"id"`
	Wallet        string        `json:"wallet"`
	State         AttemptState  `json:"state"`
	TransactionID string        `json:"transaction_id,omitempty"`
	MintAddress   string        `json:"mint_address,omitempty"`
	ErrorCategory ErrorCategory `json:"error_category,omitempty"`
	ErrorDetail   string        `json:"error_detail,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    *time.Time    `json:"finished_at,omitempty"`
}

// MintedAsset is the best-effort metadata lookup of a freshly minted token.
type MintedAsset struct {
	Mint   string `json:"mint"`
	Name   string `json:"name,omitempty"`
	Symbol string `json:"symbol,omitempty"`
	URI    string `json:"uri,omitempty"`
}
