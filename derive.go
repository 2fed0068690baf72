// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package chainsig

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// PathStep is one level of a derivation path.
type PathStep struct {
	Index    uint32
	Hardened bool
}

// ChildIndex returns the BIP32 child number, with the hardened offset
// applied.
func (s PathStep) ChildIndex() uint32 {
	if s.Hardened {
		return s.Index + hdkeychain.HardenedKeyStart
	}
	return s.Index
}

// DerivationPath is an ordered list of derivation steps starting at the
// master key.
type DerivationPath []PathStep

// ParsePath parses paths such as m/44'/1'/0'/0/0. Hardened steps may be
// marked with ', h or H. The leading m is optional.
func ParsePath(s string) (DerivationPath, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	parts := strings.Split(s, "/")
	if parts[0] == "m" || parts[0] == "M" {
		parts = parts[1:]
	}

	path := make(DerivationPath, 0, len(parts))
	for _, part := range parts {
		step := PathStep{}
		if n := len(part); n > 0 && (part[n-1] == '\'' || part[n-1] == 'h' || part[n-1] == 'H') {
			step.Hardened = true
			part = part[:n-1]
		}
		if part == "" || part[0] == '+' || part[0] == '-' {
			return nil, fmt.Errorf("%w: bad component in %q", ErrInvalidPath, s)
		}
		idx, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: bad component %q: %w", ErrInvalidPath, part, err)
		}
		if uint32(idx) >= hdkeychain.HardenedKeyStart {
			return nil, fmt.Errorf("%w: index %d out of range", ErrInvalidPath, idx)
		}
		step.Index = uint32(idx)
		path = append(path, step)
	}
	return path, nil
}

func (p DerivationPath) String() string {
	var b strings.Builder
	b.WriteString("m")
	for _, step := range p {
		b.WriteByte('/')
		b.WriteString(strconv.FormatUint(uint64(step.Index), 10))
		if step.Hardened {
			b.WriteByte('\'')
		}
	}
	return b.String()
}

// DerivedKeyPair is the child key reached by applying a path to a master key.
type DerivedKeyPair struct {
	Path       DerivationPath
	ScriptType ScriptType
	Extended   *hdkeychain.ExtendedKey
	PrivateKey *btcec.PrivateKey
	PublicKey  *btcec.PublicKey
}

// Derive walks path from master using BIP32 private child derivation.
// The result only depends on its inputs.
func Derive(master *MasterKey, path DerivationPath) (*DerivedKeyPair, error) {
	key := master.key
	for i, step := range path {
		child, err := key.Derive(step.ChildIndex())
		if err != nil {
			return nil, fmt.Errorf("could not derive step %d of %s: %w", i, path, err)
		}
		key = child
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("could not get private key at %s: %w", path, err)
	}

	return &DerivedKeyPair{
		Path:       path,
		ScriptType: master.scriptType,
		Extended:   key,
		PrivateKey: priv,
		PublicKey:  priv.PubKey(),
	}, nil
}

// PubKeyHex returns the compressed public key as lowercase hex, the form
// getaddressinfo reports.
func (k *DerivedKeyPair) PubKeyHex() string {
	return hex.EncodeToString(k.PublicKey.SerializeCompressed())
}

// WitnessHash returns hash160 of the compressed public key.
func (k *DerivedKeyPair) WitnessHash() []byte {
	return btcutil.Hash160(k.PublicKey.SerializeCompressed())
}

// Address returns the address of the key for its script type.
func (k *DerivedKeyPair) Address(net *chaincfg.Params) (btcutil.Address, error) {
	return k.ScriptType.Address(k.PublicKey, net)
}

// PkScript returns the output script paying to the key.
func (k *DerivedKeyPair) PkScript(net *chaincfg.Params) ([]byte, error) {
	addr, err := k.Address(net)
	if err != nil {
		return nil, err
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, fmt.Errorf("could not build script for %s: %w", addr, err)
	}
	return script, nil
}

// VerifyAgainstNode checks that the derived key reproduces the public key
// and address reported by the node. A difference is returned as a
// *MismatchError.
func VerifyAgainstNode(derived *DerivedKeyPair, reportedPubKeyHex, reportedAddress string, net *chaincfg.Params) error {
	pubHex := derived.PubKeyHex()
	if !strings.EqualFold(pubHex, reportedPubKeyHex) {
		return &MismatchError{Field: "pubkey", Expected: pubHex, Observed: reportedPubKeyHex}
	}

	addr, err := derived.Address(net)
	if err != nil {
		return err
	}
	if addr.EncodeAddress() != reportedAddress {
		return &MismatchError{Field: "address", Expected: addr.EncodeAddress(), Observed: reportedAddress}
	}
	return nil
}

// AddressInfo holds the getaddressinfo fields the verification uses.
type AddressInfo struct {
	Address      string `json:"address"`
	ScriptPubKey string `json:"scriptPubKey"`
	PubKey       string `json:"pubkey"`
	HDKeyPath    string `json:"hdkeypath"`
	IsMine       bool   `json:"ismine"`
	IsWitness    bool   `json:"iswitness"`
}

// VerifyAddressInfo runs VerifyAgainstNode and also compares the reported
// scriptPubKey when the node supplied one.
func VerifyAddressInfo(derived *DerivedKeyPair, info *AddressInfo, net *chaincfg.Params) error {
	if err := VerifyAgainstNode(derived, info.PubKey, info.Address, net); err != nil {
		return err
	}
	if info.ScriptPubKey == "" {
		return nil
	}

	script, err := derived.PkScript(net)
	if err != nil {
		return err
	}
	if scriptHex := hex.EncodeToString(script); !strings.EqualFold(scriptHex, info.ScriptPubKey) {
		return &MismatchError{Field: "scriptPubKey", Expected: scriptHex, Observed: info.ScriptPubKey}
	}
	return nil
}
