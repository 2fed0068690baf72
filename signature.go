// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package chainsig

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

const (
	bigRLen   = 33
	scalarLen = 32

	// compactSigMagicOffset and compactSigCompPubKey build the header byte of
	// a recoverable compact signature for a compressed public key.
	compactSigMagicOffset = 27
	compactSigCompPubKey  = 4
)

// CompactSignature is an ECDSA signature in raw r || s form, rebuilt from the
// components returned by a distributed signer.
type CompactSignature struct {
	raw    [64]byte
	parity byte
	sig    *ecdsa.Signature
}

// Assemble builds a compact signature from a hex encoded compressed R point
// (33 bytes) and a hex encoded s scalar (32 bytes). The parity prefix of R is
// not part of the compact encoding.
func Assemble(bigRHex, sHex string) (*CompactSignature, error) {
	bigR, err := hex.DecodeString(bigRHex)
	if err != nil {
		return nil, fmt.Errorf("%w: big_r: %w", ErrInvalidHex, err)
	}
	sBytes, err := hex.DecodeString(sHex)
	if err != nil {
		return nil, fmt.Errorf("%w: s: %w", ErrInvalidHex, err)
	}

	if len(bigR) != bigRLen {
		return nil, fmt.Errorf("%w: big_r is %d bytes, want %d", ErrInvalidComponentLength, len(bigR), bigRLen)
	}
	if len(sBytes) != scalarLen {
		return nil, fmt.Errorf("%w: s is %d bytes, want %d", ErrInvalidComponentLength, len(sBytes), scalarLen)
	}

	var r, s btcec.ModNScalar
	if overflow := r.SetByteSlice(bigR[1:]); overflow || r.IsZero() {
		return nil, fmt.Errorf("%w: r is not in [1, n-1]", ErrInvalidSignature)
	}
	if overflow := s.SetByteSlice(sBytes); overflow || s.IsZero() {
		return nil, fmt.Errorf("%w: s is not in [1, n-1]", ErrInvalidSignature)
	}

	cs := &CompactSignature{
		parity: bigR[0],
		sig:    ecdsa.NewSignature(&r, &s),
	}
	copy(cs.raw[:32], bigR[1:])
	copy(cs.raw[32:], sBytes)
	return cs, nil
}

// Bytes returns the 64 byte r || s encoding.
func (c *CompactSignature) Bytes() [64]byte { return c.raw }

// Hex returns the hex encoding of Bytes.
func (c *CompactSignature) Hex() string { return hex.EncodeToString(c.raw[:]) }

// Signature returns the signature as a btcec value, for DER serialization
// and verification.
func (c *CompactSignature) Signature() *ecdsa.Signature { return c.sig }

// Parity returns the prefix byte of the R point the signature was built from.
func (c *CompactSignature) Parity() byte { return c.parity }

// Verify reports whether the signature is valid for hash under pub.
func (c *CompactSignature) Verify(hash []byte, pub *btcec.PublicKey) bool {
	return c.sig.Verify(hash, pub)
}

// RecoverPubKey recovers the signing public key from hash using the parity
// of R. It fails when the R prefix is not a compressed point prefix.
func (c *CompactSignature) RecoverPubKey(hash []byte) (*btcec.PublicKey, error) {
	if c.parity != 0x02 && c.parity != 0x03 {
		return nil, fmt.Errorf("%w: big_r prefix 0x%02x is not a compressed point", ErrInvalidSignature, c.parity)
	}

	var recoverable [65]byte
	recoverable[0] = compactSigMagicOffset + compactSigCompPubKey + (c.parity - 0x02)
	copy(recoverable[1:], c.raw[:])

	pub, _, err := ecdsa.RecoverCompact(recoverable[:], hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return pub, nil
}
