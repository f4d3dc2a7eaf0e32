package mint

import (
	"fmt"
	"time"

	domain "github.com/candyops/mint_layer/internal/app/domain/mint"
	"github.com/candyops/mint_layer/internal/chain"
)

// zeroAddress is the base58 form of an all-zero pubkey, what an unset
// identifier field decodes to.
const zeroAddress = "11111111111111111111111111111111"

// NormalizationError reports distributor account data missing a required
// identifier. This is a misconfiguration (wrong address, wrong cluster),
// never something to paper over with defaults.
type NormalizationError struct {
	Field string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("distributor account missing required field %s", e.Field)
}

// NormalizeDistribution maps a wire-level distributor account into the
// domain DistributionState. Identifier fields are required; counters are
// taken as-is.
func NormalizeDistribution(address string, acct *chain.DistributorAccount, fetchedAt time.Time) (domain.DistributionState, error) {
	if acct == nil {
		return domain.DistributionState{}, fmt.Errorf("nil distributor account")
	}

	for _, f := range []struct {
		name  string
		value string
	}{
		{"authority", acct.Authority},
		{"mint_authority", acct.MintAuthority},
		{"collection_mint", acct.CollectionMint},
	} {
		if f.value == "" || f.value == zeroAddress {
			return domain.DistributionState{}, &NormalizationError{Field: f.name}
		}
	}

	return domain.DistributionState{
		Address:              address,
		ItemsRedeemed:        acct.ItemsRedeemed,
		ItemsAvailable:       acct.ItemsAvailable,
		ItemsLoaded:          acct.ItemsLoaded,
		IsFullyLoaded:        acct.ItemsLoaded >= acct.ItemsAvailable,
		Authority:            acct.Authority,
		MintAuthority:        acct.MintAuthority,
		CollectionMint:       acct.CollectionMint,
		Symbol:               acct.Symbol,
		SellerFeeBasisPoints: acct.SellerFeeBasisPoints,
		IsMutable:            acct.IsMutable,
		MaxEditionSupply:     acct.MaxEditionSupply,
		FetchedAt:            fetchedAt,
	}, nil
}

// NormalizeGuards maps a wire-level guard account into the domain GuardSet.
// A nil input means no guard account exists, which normalizes to a nil
// GuardSet (unrestricted). Absent individual guards normalize to absent
// fields, never zero-value stand-ins.
func NormalizeGuards(acct *chain.GuardAccount) *domain.GuardSet {
	if acct == nil {
		return nil
	}

	guards := &domain.GuardSet{}

	if acct.HasPayment() {
		guards.Payment = &domain.Payment{
			Lamports:    acct.PaymentLamports,
			Destination: acct.PaymentDestination,
		}
	}

	if acct.HasStartDate() || acct.HasEndDate() {
		win := &domain.SaleWindow{}
		if acct.HasStartDate() {
			start := acct.StartDate
			win.StartTime = &start
		}
		if acct.HasEndDate() {
			end := acct.EndDate
			win.EndTime = &end
		}
		guards.SaleWindow = win
	}

	if acct.HasTokenGate() {
		guards.TokenGate = &domain.TokenGate{
			Mint:           acct.TokenGateMint,
			RequiredAmount: acct.TokenGateAmount,
		}
	}

	if acct.HasMintLimit() {
		limit := acct.MintLimit
		guards.MintLimit = &limit
	}

	return guards
}
