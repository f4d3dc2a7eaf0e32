package chain

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// Account data is Anchor/borsh serialized: an 8-byte account discriminator
// followed by little-endian fields. Strings are a u32 length prefix plus
// UTF-8 bytes; optional fields are gated by the guard feature bitmask.

// Guard feature bits in the guard account's features word.
const (
	guardFeaturePayment uint64 = 1 << iota
	guardFeatureStartDate
	guardFeatureEndDate
	guardFeatureTokenGate
	guardFeatureMintLimit
)

// ErrBadDiscriminator reports account data whose discriminator does not
// match the expected account type, almost always a wrong address.
var ErrBadDiscriminator = errors.New("chain: account discriminator mismatch")

// DistributorAccount is the wire-level decoded candy machine account.
type DistributorAccount struct {
	Features             uint64
	Authority            string
	MintAuthority        string
	CollectionMint       string
	ItemsRedeemed        uint64
	ItemsLoaded          uint64
	ItemsAvailable       uint64
	Symbol               string
	SellerFeeBasisPoints uint16
	MaxEditionSupply     uint64
	IsMutable            bool
}

// GuardAccount is the wire-level decoded candy guard account.
type GuardAccount struct {
	Base      string
	Bump      uint8
	Authority string
	Features  uint64

	PaymentLamports    uint64
	PaymentDestination string
	StartDate          int64
	EndDate            int64
	TokenGateMint      string
	TokenGateAmount    uint64
	MintLimit          uint64
}

// HasPayment reports whether the payment guard is configured.
func (g *GuardAccount) HasPayment() bool { return g.Features&guardFeaturePayment != 0 }

// HasStartDate reports whether a sale start is configured.
func (g *GuardAccount) HasStartDate() bool { return g.Features&guardFeatureStartDate != 0 }

// HasEndDate reports whether a sale end is configured.
func (g *GuardAccount) HasEndDate() bool { return g.Features&guardFeatureEndDate != 0 }

// HasTokenGate reports whether the token gate guard is configured.
func (g *GuardAccount) HasTokenGate() bool { return g.Features&guardFeatureTokenGate != 0 }

// HasMintLimit reports whether a per-wallet mint limit is configured.
func (g *GuardAccount) HasMintLimit() bool { return g.Features&guardFeatureMintLimit != 0 }

// MetadataAccount is the decoded token metadata account of a minted asset.
type MetadataAccount struct {
	UpdateAuthority string
	Mint            string
	Name            string
	Symbol          string
	URI             string
}

// anchorDiscriminator derives the 8-byte discriminator for an Anchor
// namespace:name pair (sha256 prefix).
func anchorDiscriminator(namespace, name string) [8]byte {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var disc [8]byte
	copy(disc[:], sum[:8])
	return disc
}

var (
	distributorDiscriminator = anchorDiscriminator("account", "CandyMachine")
	guardDiscriminator       = anchorDiscriminator("account", "CandyGuard")
)

// DecodeDistributorAccount parses the base64 payload of a candy machine
// account.
func DecodeDistributorAccount(info *AccountInfo) (*DistributorAccount, error) {
	r, err := newAccountReader(info, distributorDiscriminator)
	if err != nil {
		return nil, fmt.Errorf("distributor account: %w", err)
	}

	var acct DistributorAccount
	if acct.Features, err = r.u64(); err == nil {
		if acct.Authority, err = r.pubkey(); err == nil {
			if acct.MintAuthority, err = r.pubkey(); err == nil {
				acct.CollectionMint, err = r.pubkey()
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("distributor account header: %w", err)
	}

	fields := []struct {
		name string
		read func() error
	}{
		{"items_redeemed", func() (e error) { acct.ItemsRedeemed, e = r.u64(); return }},
		{"items_loaded", func() (e error) { acct.ItemsLoaded, e = r.u64(); return }},
		{"items_available", func() (e error) { acct.ItemsAvailable, e = r.u64(); return }},
		{"symbol", func() (e error) { acct.Symbol, e = r.str(); return }},
		{"seller_fee_basis_points", func() (e error) { acct.SellerFeeBasisPoints, e = r.u16(); return }},
		{"max_edition_supply", func() (e error) { acct.MaxEditionSupply, e = r.u64(); return }},
		{"is_mutable", func() (e error) { acct.IsMutable, e = r.boolean(); return }},
	}
	for _, f := range fields {
		if err := f.read(); err != nil {
			return nil, fmt.Errorf("distributor account %s: %w", f.name, err)
		}
	}
	return &acct, nil
}

// DecodeGuardAccount parses the base64 payload of a candy guard account.
func DecodeGuardAccount(info *AccountInfo) (*GuardAccount, error) {
	r, err := newAccountReader(info, guardDiscriminator)
	if err != nil {
		return nil, fmt.Errorf("guard account: %w", err)
	}

	var acct GuardAccount
	if acct.Base, err = r.pubkey(); err != nil {
		return nil, fmt.Errorf("guard account base: %w", err)
	}
	if acct.Bump, err = r.u8(); err != nil {
		return nil, fmt.Errorf("guard account bump: %w", err)
	}
	if acct.Authority, err = r.pubkey(); err != nil {
		return nil, fmt.Errorf("guard account authority: %w", err)
	}
	if acct.Features, err = r.u64(); err != nil {
		return nil, fmt.Errorf("guard account features: %w", err)
	}

	if acct.HasPayment() {
		if acct.PaymentLamports, err = r.u64(); err != nil {
			return nil, fmt.Errorf("guard payment lamports: %w", err)
		}
		if acct.PaymentDestination, err = r.pubkey(); err != nil {
			return nil, fmt.Errorf("guard payment destination: %w", err)
		}
	}
	if acct.HasStartDate() {
		if acct.StartDate, err = r.i64(); err != nil {
			return nil, fmt.Errorf("guard start date: %w", err)
		}
	}
	if acct.HasEndDate() {
		if acct.EndDate, err = r.i64(); err != nil {
			return nil, fmt.Errorf("guard end date: %w", err)
		}
	}
	if acct.HasTokenGate() {
		if acct.TokenGateAmount, err = r.u64(); err != nil {
			return nil, fmt.Errorf("guard token gate amount: %w", err)
		}
		if acct.TokenGateMint, err = r.pubkey(); err != nil {
			return nil, fmt.Errorf("guard token gate mint: %w", err)
		}
	}
	if acct.HasMintLimit() {
		if acct.MintLimit, err = r.u64(); err != nil {
			return nil, fmt.Errorf("guard mint limit: %w", err)
		}
	}
	return &acct, nil
}

// DecodeMetadataAccount parses a token metadata account. Metadata accounts
// are not Anchor accounts: the layout is key u8, update authority, mint,
// then the name/symbol/uri strings.
func DecodeMetadataAccount(info *AccountInfo) (*MetadataAccount, error) {
	data, err := accountData(info)
	if err != nil {
		return nil, fmt.Errorf("metadata account: %w", err)
	}
	r := &byteReader{data: data}

	if _, err := r.u8(); err != nil { // key
		return nil, fmt.Errorf("metadata key: %w", err)
	}

	var acct MetadataAccount
	if acct.UpdateAuthority, err = r.pubkey(); err != nil {
		return nil, fmt.Errorf("metadata update authority: %w", err)
	}
	if acct.Mint, err = r.pubkey(); err != nil {
		return nil, fmt.Errorf("metadata mint: %w", err)
	}
	if acct.Name, err = r.str(); err != nil {
		return nil, fmt.Errorf("metadata name: %w", err)
	}
	if acct.Symbol, err = r.str(); err != nil {
		return nil, fmt.Errorf("metadata symbol: %w", err)
	}
	if acct.URI, err = r.str(); err != nil {
		return nil, fmt.Errorf("metadata uri: %w", err)
	}
	return &acct, nil
}

// EncodeDistributorAccount serializes a distributor account; the inverse of
// DecodeDistributorAccount, used by tests and local fixtures.
func EncodeDistributorAccount(acct *DistributorAccount) ([]byte, error) {
	w := &byteWriter{}
	w.raw(distributorDiscriminator[:])
	w.u64(acct.Features)
	if err := w.pubkey(acct.Authority); err != nil {
		return nil, err
	}
	if err := w.pubkey(acct.MintAuthority); err != nil {
		return nil, err
	}
	if err := w.pubkey(acct.CollectionMint); err != nil {
		return nil, err
	}
	w.u64(acct.ItemsRedeemed)
	w.u64(acct.ItemsLoaded)
	w.u64(acct.ItemsAvailable)
	w.str(acct.Symbol)
	w.u16(acct.SellerFeeBasisPoints)
	w.u64(acct.MaxEditionSupply)
	w.boolean(acct.IsMutable)
	return w.buf, nil
}

// EncodeGuardAccount serializes a guard account; the inverse of
// DecodeGuardAccount, used by tests and local fixtures.
func EncodeGuardAccount(acct *GuardAccount) ([]byte, error) {
	w := &byteWriter{}
	w.raw(guardDiscriminator[:])
	if err := w.pubkey(acct.Base); err != nil {
		return nil, err
	}
	w.u8(acct.Bump)
	if err := w.pubkey(acct.Authority); err != nil {
		return nil, err
	}
	w.u64(acct.Features)
	if acct.HasPayment() {
		w.u64(acct.PaymentLamports)
		if err := w.pubkey(acct.PaymentDestination); err != nil {
			return nil, err
		}
	}
	if acct.HasStartDate() {
		w.i64(acct.StartDate)
	}
	if acct.HasEndDate() {
		w.i64(acct.EndDate)
	}
	if acct.HasTokenGate() {
		w.u64(acct.TokenGateAmount)
		if err := w.pubkey(acct.TokenGateMint); err != nil {
			return nil, err
		}
	}
	if acct.HasMintLimit() {
		w.u64(acct.MintLimit)
	}
	return w.buf, nil
}

// =============================================================================
// Binary helpers
// =============================================================================

func accountData(info *AccountInfo) ([]byte, error) {
	if info == nil || len(info.Data) == 0 {
		return nil, fmt.Errorf("empty account data")
	}
	data, err := base64.StdEncoding.DecodeString(info.Data[0])
	if err != nil {
		return nil, fmt.Errorf("decode base64 data: %w", err)
	}
	return data, nil
}

func newAccountReader(info *AccountInfo, disc [8]byte) (*byteReader, error) {
	data, err := accountData(info)
	if err != nil {
		return nil, err
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("data too short for discriminator")
	}
	if string(data[:8]) != string(disc[:]) {
		return nil, ErrBadDiscriminator
	}
	return &byteReader{data: data, off: 8}, nil
}

type byteReader struct {
	data []byte
	off  int
}

func (r *byteReader) take(n int) ([]byte, error) {
	if r.off+n > len(r.data) {
		return nil, fmt.Errorf("unexpected end of data at offset %d (need %d bytes)", r.off, n)
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *byteReader) u8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *byteReader) boolean() (bool, error) {
	v, err := r.u8()
	return v != 0, err
}

func (r *byteReader) u16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *byteReader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *byteReader) i64() (int64, error) {
	v, err := r.u64()
	return int64(v), err
}

func (r *byteReader) pubkey() (string, error) {
	b, err := r.take(32)
	if err != nil {
		return "", err
	}
	return base58.Encode(b), nil
}

func (r *byteReader) str() (string, error) {
	n, err := r.take(4)
	if err != nil {
		return "", err
	}
	length := int(binary.LittleEndian.Uint32(n))
	b, err := r.take(length)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type byteWriter struct {
	buf []byte
}

func (w *byteWriter) raw(b []byte) { w.buf = append(w.buf, b...) }

func (w *byteWriter) u8(v uint8) { w.buf = append(w.buf, v) }

func (w *byteWriter) boolean(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *byteWriter) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.raw(b[:])
}

func (w *byteWriter) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.raw(b[:])
}

func (w *byteWriter) i64(v int64) { w.u64(uint64(v)) }

func (w *byteWriter) pubkey(addr string) error {
	if addr == "" {
		w.raw(make([]byte, 32))
		return nil
	}
	b, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("decode pubkey %q: %w", addr, err)
	}
	if len(b) != 32 {
		return fmt.Errorf("pubkey %q is %d bytes, want 32", addr, len(b))
	}
	w.raw(b)
	return nil
}

func (w *byteWriter) str(s string) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(s)))
	w.raw(n[:])
	w.raw([]byte(s))
}
