// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package chainsig

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// ScriptType selects the output script lineage a master key belongs to.
type ScriptType int

const (
	// Legacy is pay-to-pubkey-hash (P2PKH).
	Legacy ScriptType = iota
	// Segwit is native pay-to-witness-pubkey-hash (P2WPKH).
	Segwit
)

// ParseScriptType accepts the common names of a script type, including the
// bitcoind address type names "legacy" and "bech32".
func ParseScriptType(s string) (ScriptType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "legacy", "p2pkh", "pkh":
		return Legacy, nil
	case "segwit", "bech32", "p2wpkh", "wpkh":
		return Segwit, nil
	default:
		return 0, fmt.Errorf("unknown script type %q (must be legacy or segwit)", s)
	}
}

func (t ScriptType) String() string {
	switch t {
	case Legacy:
		return "legacy"
	case Segwit:
		return "segwit"
	default:
		return fmt.Sprintf("ScriptType(%d)", int(t))
	}
}

// AddressType returns the address type name bitcoind uses for getnewaddress.
func (t ScriptType) AddressType() string {
	if t == Segwit {
		return "bech32"
	}
	return "legacy"
}

// marker is the substring that identifies descriptors of this type.
func (t ScriptType) marker() string {
	if t == Segwit {
		return "wpkh"
	}
	return "pkh"
}

// token is the opening function token wrapping the key expression.
func (t ScriptType) token() string {
	return t.marker() + "("
}

// Address encodes the address of a compressed public key for this script
// type on the given network.
func (t ScriptType) Address(pub *btcec.PublicKey, net *chaincfg.Params) (btcutil.Address, error) {
	hash := btcutil.Hash160(pub.SerializeCompressed())
	switch t {
	case Legacy:
		addr, err := btcutil.NewAddressPubKeyHash(hash, net)
		if err != nil {
			return nil, fmt.Errorf("could not create p2pkh address: %w", err)
		}
		return addr, nil
	case Segwit:
		addr, err := btcutil.NewAddressWitnessPubKeyHash(hash, net)
		if err != nil {
			return nil, fmt.Errorf("could not create p2wpkh address: %w", err)
		}
		return addr, nil
	default:
		return nil, fmt.Errorf("unsupported script type %s", t)
	}
}
