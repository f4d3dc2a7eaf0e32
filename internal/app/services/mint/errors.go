package mint

import (
	"errors"
	"strings"

	domain "github.com/candyops/mint_layer/internal/app/domain/mint"
	"github.com/candyops/mint_layer/internal/chain"
)

// ErrAttemptInFlight reports a mint trigger while another attempt is still
// running. The controller treats this as an idempotent no-op.
var ErrAttemptInFlight = errors.New("mint: attempt already in flight")

// ErrRateLimited reports a wallet exceeding the mint-trigger rate limit.
var ErrRateLimited = errors.New("mint: rate limit exceeded")

// QueryError wraps a transient chain-reader failure. It is surfaced to the
// caller for manual retry and never transitions an in-flight attempt.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string { return "query " + e.Op + ": " + e.Err.Error() }

func (e *QueryError) Unwrap() error { return e.Err }

// categoryMessages is the fixed user-facing text per failure category. Raw
// provider strings are logged but never shown for recognized categories,
// since providers do not keep their message formats stable.
var categoryMessages = map[domain.ErrorCategory]string{
	domain.ErrCategoryUserRejected:      "the wallet declined to sign the transaction",
	domain.ErrCategoryInsufficientFunds: "the wallet does not hold enough funds for this mint",
	domain.ErrCategorySimulationFailed:  "the transaction was rejected during simulation",
	domain.ErrCategoryCongestion:        "the network is congested; the transaction was not accepted",
}

// ClassifySubmitError normalizes a raw writer/provider error into a fixed
// category plus stable user-facing detail. Unrecognized failures fall back
// to the unknown category with the raw message as a last resort.
func ClassifySubmitError(err error) (domain.ErrorCategory, string) {
	if err == nil {
		return domain.ErrCategoryNone, ""
	}
	if errors.Is(err, chain.ErrNoWallet) {
		return domain.ErrCategoryEligibility, string(domain.ReasonWalletNotConnected)
	}

	category := classifyMessage(err.Error())
	if msg, ok := categoryMessages[category]; ok {
		return category, msg
	}
	return domain.ErrCategoryUnknown, err.Error()
}

func classifyMessage(raw string) domain.ErrorCategory {
	msg := strings.ToLower(raw)

	switch {
	case containsAny(msg, "user rejected", "user declined", "rejected the request", "signature request denied"):
		return domain.ErrCategoryUserRejected
	case containsAny(msg, "insufficient funds", "insufficient lamports", "debit an account but found no record"):
		return domain.ErrCategoryInsufficientFunds
	case containsAny(msg, "simulation failed", "transaction simulation", "custom program error", "instructionerror"):
		return domain.ErrCategorySimulationFailed
	case containsAny(msg, "blockhash not found", "block height exceeded", "too many requests", "rate limit", "node is behind", "timed out", "timeout"):
		return domain.ErrCategoryCongestion
	default:
		return domain.ErrCategoryUnknown
	}
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
