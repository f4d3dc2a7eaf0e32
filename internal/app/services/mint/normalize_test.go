package mint

import (
	"errors"
	"testing"
	"time"

	"github.com/candyops/mint_layer/internal/chain"
)

const (
	featPayment   uint64 = 1 << 0
	featStartDate uint64 = 1 << 1
	featEndDate   uint64 = 1 << 2
	featTokenGate uint64 = 1 << 3
	featMintLimit uint64 = 1 << 4
)

func validDistributor() *chain.DistributorAccount {
	return &chain.DistributorAccount{
		Authority:      "auth",
		MintAuthority:  "mint-auth",
		CollectionMint: "coll",
		ItemsRedeemed:  4,
		ItemsAvailable: 10,
		ItemsLoaded:    10,
		Symbol:         "NFT",
	}
}

func TestNormalizeDistribution(t *testing.T) {
	now := time.Now().UTC()
	state, err := NormalizeDistribution("dist-addr", validDistributor(), now)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if state.Address != "dist-addr" {
		t.Fatalf("unexpected address %s", state.Address)
	}
	if !state.IsFullyLoaded {
		t.Fatal("expected fully loaded")
	}
	if state.ItemsRemaining() != 6 {
		t.Fatalf("expected 6 remaining, got %d", state.ItemsRemaining())
	}
	if !state.FetchedAt.Equal(now) {
		t.Fatalf("expected fetched_at %v, got %v", now, state.FetchedAt)
	}
}

func TestNormalizeDistributionPartiallyLoaded(t *testing.T) {
	acct := validDistributor()
	acct.ItemsLoaded = 7
	state, err := NormalizeDistribution("dist-addr", acct, time.Now())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if state.IsFullyLoaded {
		t.Fatal("expected not fully loaded")
	}
}

func TestNormalizeDistributionMissingIdentifiers(t *testing.T) {
	cases := []struct {
		field  string
		mutate func(*chain.DistributorAccount)
	}{
		{"authority", func(a *chain.DistributorAccount) { a.Authority = "" }},
		{"mint_authority", func(a *chain.DistributorAccount) { a.MintAuthority = "11111111111111111111111111111111" }},
		{"collection_mint", func(a *chain.DistributorAccount) { a.CollectionMint = "" }},
	}
	for _, tc := range cases {
		acct := validDistributor()
		tc.mutate(acct)
		_, err := NormalizeDistribution("dist-addr", acct, time.Now())
		var norm *NormalizationError
		if !errors.As(err, &norm) {
			t.Fatalf("%s: expected NormalizationError, got %v", tc.field, err)
		}
		if norm.Field != tc.field {
			t.Fatalf("expected field %s, got %s", tc.field, norm.Field)
		}
	}
}

func TestNormalizeGuardsNilAccount(t *testing.T) {
	if got := NormalizeGuards(nil); got != nil {
		t.Fatalf("expected nil guard set, got %+v", got)
	}
}

func TestNormalizeGuardsAbsentFieldsStayAbsent(t *testing.T) {
	acct := &chain.GuardAccount{
		Features:        featPayment,
		PaymentLamports: 500,
		// Zero values behind unset feature bits must not leak through.
		StartDate:       123,
		EndDate:         456,
		TokenGateMint:   "gate",
		TokenGateAmount: 9,
		MintLimit:       3,
	}

	guards := NormalizeGuards(acct)
	if guards == nil {
		t.Fatal("expected guard set")
	}
	if guards.Payment == nil || guards.Payment.Lamports != 500 {
		t.Fatalf("expected payment guard, got %+v", guards.Payment)
	}
	if guards.SaleWindow != nil {
		t.Fatalf("expected no sale window, got %+v", guards.SaleWindow)
	}
	if guards.TokenGate != nil {
		t.Fatalf("expected no token gate, got %+v", guards.TokenGate)
	}
	if guards.MintLimit != nil {
		t.Fatalf("expected no mint limit, got %v", *guards.MintLimit)
	}
}

func TestNormalizeGuardsAllFeatures(t *testing.T) {
	acct := &chain.GuardAccount{
		Features:           featPayment | featStartDate | featEndDate | featTokenGate | featMintLimit,
		PaymentLamports:    1_000_000_000,
		PaymentDestination: "dest",
		StartDate:          100,
		EndDate:            200,
		TokenGateMint:      "gate",
		TokenGateAmount:    2,
		MintLimit:          5,
	}

	guards := NormalizeGuards(acct)
	if guards.Payment == nil || guards.Payment.Destination != "dest" {
		t.Fatalf("payment guard wrong: %+v", guards.Payment)
	}
	if guards.SaleWindow == nil || guards.SaleWindow.StartTime == nil || guards.SaleWindow.EndTime == nil {
		t.Fatalf("sale window wrong: %+v", guards.SaleWindow)
	}
	if *guards.SaleWindow.StartTime != 100 || *guards.SaleWindow.EndTime != 200 {
		t.Fatalf("sale window bounds wrong: %+v", guards.SaleWindow)
	}
	if guards.TokenGate == nil || guards.TokenGate.RequiredAmount != 2 {
		t.Fatalf("token gate wrong: %+v", guards.TokenGate)
	}
	if guards.MintLimit == nil || *guards.MintLimit != 5 {
		t.Fatalf("mint limit wrong: %v", guards.MintLimit)
	}
	if guards.Price() != 1_000_000_000 {
		t.Fatalf("price wrong: %d", guards.Price())
	}
}

func TestNormalizeGuardsHalfOpenWindow(t *testing.T) {
	acct := &chain.GuardAccount{Features: featStartDate, StartDate: 42}
	guards := NormalizeGuards(acct)
	if guards.SaleWindow == nil || guards.SaleWindow.StartTime == nil {
		t.Fatalf("expected start time, got %+v", guards.SaleWindow)
	}
	if guards.SaleWindow.EndTime != nil {
		t.Fatalf("expected no end time, got %v", *guards.SaleWindow.EndTime)
	}
}
