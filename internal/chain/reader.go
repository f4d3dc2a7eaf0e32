package chain

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/tidwall/gjson"
)

// tokenMetadataProgramID is the Metaplex token metadata program.
const tokenMetadataProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

// guardSeed is the PDA seed prefix for a distributor's guard account.
const guardSeed = "candy_guard"

// Reader is the read-only chain collaborator: distribution counters, guard
// configuration, and wallet balances.
type Reader struct {
	client        *Client
	distributorID string
}

// NewReader creates a Reader bound to one distributor address.
func NewReader(client *Client, distributorID string) (*Reader, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client required")
	}
	if distributorID == "" {
		return nil, fmt.Errorf("distributor address required")
	}
	return &Reader{client: client, distributorID: distributorID}, nil
}

// DistributorID returns the bound distributor address.
func (r *Reader) DistributorID() string { return r.distributorID }

// Distributor fetches and decodes the distributor account. The returned
// program ID is the account owner, needed for mint instruction construction.
func (r *Reader) Distributor(ctx context.Context) (*DistributorAccount, string, error) {
	info, err := r.client.GetAccountInfo(ctx, r.distributorID)
	if err != nil {
		return nil, "", fmt.Errorf("fetch distributor %s: %w", r.distributorID, err)
	}
	acct, err := DecodeDistributorAccount(info)
	if err != nil {
		return nil, "", err
	}
	return acct, info.Owner, nil
}

// Guards fetches the guard account derived from the distributor address.
// Returns (nil, nil) when no guard account exists: an unguarded distributor
// is a valid configuration, not an error.
func (r *Reader) Guards(ctx context.Context, programID string) (*GuardAccount, error) {
	guardAddr, err := deriveGuardAddress(r.distributorID, programID)
	if err != nil {
		return nil, err
	}

	info, err := r.client.GetAccountInfo(ctx, guardAddr)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch guard account %s: %w", guardAddr, err)
	}
	return DecodeGuardAccount(info)
}

// Balance returns a wallet's lamport balance.
func (r *Reader) Balance(ctx context.Context, wallet string) (uint64, error) {
	return r.client.GetBalance(ctx, wallet)
}

// TokenHolding sums a wallet's balance of one token mint across its token
// accounts. The jsonParsed payload reports amounts as string integers.
func (r *Reader) TokenHolding(ctx context.Context, wallet, mint string) (uint64, error) {
	raw, err := r.client.GetTokenAccountsByOwner(ctx, wallet, mint)
	if err != nil {
		return 0, err
	}

	var total uint64
	for _, amount := range gjson.GetBytes(raw, "value.#.account.data.parsed.info.tokenAmount.amount").Array() {
		v, err := strconv.ParseUint(amount.String(), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse token amount %q: %w", amount.String(), err)
		}
		total += v
	}
	return total, nil
}

// SignatureStatus reports the confirmation status of a submitted
// transaction; nil when the cluster does not know the signature yet.
func (r *Reader) SignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error) {
	return r.client.GetSignatureStatus(ctx, signature)
}

// Asset resolves the metadata of a minted token, best effort.
func (r *Reader) Asset(ctx context.Context, mint string) (*MetadataAccount, error) {
	metaAddr, err := deriveMetadataAddress(mint)
	if err != nil {
		return nil, err
	}
	info, err := r.client.GetAccountInfo(ctx, metaAddr)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata %s: %w", metaAddr, err)
	}
	return DecodeMetadataAccount(info)
}

func deriveGuardAddress(distributorID, programID string) (string, error) {
	program := common.PublicKeyFromString(programID)
	distributor := common.PublicKeyFromString(distributorID)
	addr, _, err := common.FindProgramAddress(
		[][]byte{[]byte(guardSeed), distributor.Bytes()},
		program,
	)
	if err != nil {
		return "", fmt.Errorf("derive guard address: %w", err)
	}
	return addr.ToBase58(), nil
}

func deriveMetadataAddress(mint string) (string, error) {
	program := common.PublicKeyFromString(tokenMetadataProgramID)
	mintKey := common.PublicKeyFromString(mint)
	addr, _, err := common.FindProgramAddress(
		[][]byte{[]byte("metadata"), program.Bytes(), mintKey.Bytes()},
		program,
	)
	if err != nil {
		return "", fmt.Errorf("derive metadata address: %w", err)
	}
	return addr.ToBase58(), nil
}
