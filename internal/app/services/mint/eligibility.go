package mint

import (
	domain "github.com/candyops/mint_layer/internal/app/domain/mint"
)

// EligibilityInput bundles everything the evaluator looks at. The evaluator
// never queries anything itself: callers load fresh state and pass it in,
// which keeps evaluation deterministic and trivially testable.
type EligibilityInput struct {
	State           domain.DistributionState
	Guards          *domain.GuardSet
	WalletConnected bool
	WalletBalance   uint64
	// TokenHoldings maps token mint address to the wallet's held amount.
	TokenHoldings map[string]uint64
	// MintedByWallet is the wallet's count of prior successful mints,
	// consulted only when a mint limit guard is configured.
	MintedByWallet uint64
	// Now is the evaluation time in unix seconds.
	Now int64
}

// Evaluate decides whether a mint is allowed right now.
//
// Check order is deliberate: structural blockers (sold out, not loaded)
// before temporal ones (sale window) before wallet-specific ones (token
// gate, mint limit, balance), so the most globally relevant reason surfaces
// first. The first failing check wins.
func Evaluate(in EligibilityInput) domain.EligibilityVerdict {
	price := in.Guards.Price()

	if !in.WalletConnected {
		return blocked(domain.ReasonWalletNotConnected, price)
	}
	if in.State.ItemsRedeemed >= in.State.ItemsAvailable {
		return blocked(domain.ReasonSoldOut, price)
	}
	if !in.State.IsFullyLoaded {
		return blocked(domain.ReasonNotFullyLoaded, price)
	}

	if in.Guards != nil && in.Guards.SaleWindow != nil {
		win := in.Guards.SaleWindow
		// Window bounds are inclusive: now == start and now == end both
		// count as inside the window.
		if win.StartTime != nil && in.Now < *win.StartTime {
			return blocked(domain.ReasonBeforeSaleStart, price)
		}
		if win.EndTime != nil && in.Now > *win.EndTime {
			return blocked(domain.ReasonAfterSaleEnd, price)
		}
	}

	if in.Guards != nil && in.Guards.TokenGate != nil {
		gate := in.Guards.TokenGate
		if in.TokenHoldings[gate.Mint] < gate.RequiredAmount {
			return blocked(domain.ReasonTokenGateNotMet, price)
		}
	}

	if in.Guards != nil && in.Guards.MintLimit != nil {
		if in.MintedByWallet >= *in.Guards.MintLimit {
			return blocked(domain.ReasonMintLimitReached, price)
		}
	}

	// Subtract the buffer from the balance instead of adding it to the
	// price, so an on-chain price near the uint64 ceiling cannot wrap the
	// comparison into a pass.
	if in.WalletBalance < domain.ReservedFeeBuffer ||
		in.WalletBalance-domain.ReservedFeeBuffer < price {
		return blocked(domain.ReasonInsufficientBalance, price)
	}

	return domain.EligibilityVerdict{
		Allowed: true,
		Reason:  domain.ReasonNone,
		Price:   price,
	}
}

func blocked(reason domain.BlockReason, price uint64) domain.EligibilityVerdict {
	return domain.EligibilityVerdict{
		Allowed: false,
		Reason:  reason,
		Price:   price,
	}
}
