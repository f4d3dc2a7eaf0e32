package chain

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
)

// ErrNoWallet reports that no payer wallet key is configured, so no
// transaction can be signed.
var ErrNoWallet = errors.New("chain: no payer wallet configured")

// Writer is the write-side chain collaborator. It constructs, signs, and
// submits mint transactions with the configured payer wallet. Submission
// acceptance is provisional: callers must track the returned signature to
// confirmation.
type Writer struct {
	client *Client
	payer  *types.Account
}

// NewWriter creates a Writer. walletKey is the payer's base58-encoded
// secret key; empty means read-only mode where SubmitMint fails with
// ErrNoWallet.
func NewWriter(client *Client, walletKey string) (*Writer, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client required")
	}
	w := &Writer{client: client}
	if walletKey != "" {
		acct, err := types.AccountFromBase58(walletKey)
		if err != nil {
			return nil, fmt.Errorf("parse wallet key: %w", err)
		}
		w.payer = &acct
	}
	return w, nil
}

// WalletConnected reports whether a payer wallet is loaded.
func (w *Writer) WalletConnected() bool { return w.payer != nil }

// WalletAddress returns the payer's base58 address, empty without a wallet.
func (w *Writer) WalletAddress() string {
	if w.payer == nil {
		return ""
	}
	return w.payer.PublicKey.ToBase58()
}

// MintRequest carries everything needed to construct one mint instruction.
type MintRequest struct {
	DistributorID  string
	ProgramID      string
	MintAuthority  string
	CollectionMint string
	// PaymentDestination is the payment guard's receiving account, empty
	// when no payment guard is configured.
	PaymentDestination string
}

// MintReceipt is the writer's provisional acceptance of a mint.
type MintReceipt struct {
	// Signature is the pending transaction identifier.
	Signature string
	// MintAddress is the freshly generated mint account address.
	MintAddress string
}

// SubmitMint builds, signs, and submits a mint transaction. The returned
// receipt is provisional until the signature confirms on-chain.
func (w *Writer) SubmitMint(ctx context.Context, req MintRequest) (*MintReceipt, error) {
	if w.payer == nil {
		return nil, ErrNoWallet
	}
	if req.DistributorID == "" || req.ProgramID == "" {
		return nil, fmt.Errorf("distributor and program IDs required")
	}

	recent, err := w.client.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest blockhash: %w", err)
	}

	nftMint := types.NewAccount()

	instruction := buildMintInstruction(req, w.payer.PublicKey, nftMint.PublicKey)

	tx, err := types.NewTransaction(types.NewTransactionParam{
		Signers: []types.Account{*w.payer, nftMint},
		Message: types.NewMessage(types.NewMessageParam{
			FeePayer:        w.payer.PublicKey,
			RecentBlockhash: recent.Blockhash,
			Instructions:    []types.Instruction{instruction},
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}

	serialized, err := tx.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serialize transaction: %w", err)
	}

	signature, err := w.client.SendTransaction(ctx, base64.StdEncoding.EncodeToString(serialized))
	if err != nil {
		return nil, err
	}

	return &MintReceipt{
		Signature:   signature,
		MintAddress: nftMint.PublicKey.ToBase58(),
	}, nil
}

// buildMintInstruction assembles the distributor program's mint instruction.
// Data is the Anchor global:mint_v1 discriminator; guard inputs travel as
// accounts.
func buildMintInstruction(req MintRequest, payer, nftMint common.PublicKey) types.Instruction {
	disc := anchorDiscriminator("global", "mint_v1")

	accounts := []types.AccountMeta{
		{PubKey: common.PublicKeyFromString(req.DistributorID), IsSigner: false, IsWritable: true},
		{PubKey: common.PublicKeyFromString(req.MintAuthority), IsSigner: false, IsWritable: false},
		{PubKey: payer, IsSigner: true, IsWritable: true},
		{PubKey: nftMint, IsSigner: true, IsWritable: true},
		{PubKey: common.PublicKeyFromString(req.CollectionMint), IsSigner: false, IsWritable: false},
	}
	if req.PaymentDestination != "" {
		accounts = append(accounts, types.AccountMeta{
			PubKey:     common.PublicKeyFromString(req.PaymentDestination),
			IsSigner:   false,
			IsWritable: true,
		})
	}
	accounts = append(accounts, types.AccountMeta{
		PubKey: common.SystemProgramID, IsSigner: false, IsWritable: false,
	})

	return types.Instruction{
		ProgramID: common.PublicKeyFromString(req.ProgramID),
		Accounts:  accounts,
		Data:      disc[:],
	}
}
