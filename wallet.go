// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package chainsig

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"go.uber.org/zap"
)

const (
	unspentMinConf = 1
	unspentMaxConf = 9999999
)

// Node is the subset of a wallet node's RPC interface used to check
// derivations.
type Node interface {
	ListDescriptors(private bool) (*DescriptorList, error)
	GetAddressInfo(address string) (*AddressInfo, error)
	GetNewAddress(label, addressType string) (string, error)
	ListUnspent(minConf, maxConf int, addresses []btcutil.Address) ([]btcjson.ListUnspentResult, error)
}

// Account is a node address whose key was re-derived and checked.
type Account struct {
	Address      btcutil.Address
	ScriptPubKey []byte
	PrivateKey   *btcec.PrivateKey
	PublicKey    *btcec.PublicKey
	WitnessHash  []byte
	Path         DerivationPath
}

// WalletContext holds the master keys of a node wallet. It is safe for
// concurrent use once created.
type WalletContext struct {
	node   Node
	net    *chaincfg.Params
	log    *zap.Logger
	legacy *MasterKey
	segwit *MasterKey
}

// NewWalletContext loads the wallet descriptors of node and extracts both
// the legacy and the segwit master keys.
func NewWalletContext(node Node, net *chaincfg.Params, log *zap.Logger) (*WalletContext, error) {
	if log == nil {
		log = zap.NewNop()
	}

	list, err := node.ListDescriptors(true)
	if err != nil {
		return nil, fmt.Errorf("could not list descriptors: %w", err)
	}

	legacy, err := MasterKeyFromDescriptors(list.Descriptors, Legacy, net)
	if err != nil {
		return nil, fmt.Errorf("could not get legacy master key: %w", err)
	}
	segwit, err := MasterKeyFromDescriptors(list.Descriptors, Segwit, net)
	if err != nil {
		return nil, fmt.Errorf("could not get segwit master key: %w", err)
	}

	log.Debug("loaded wallet master keys",
		zap.String("wallet", list.WalletName),
		zap.Int("descriptors", len(list.Descriptors)))

	return &WalletContext{node: node, net: net, log: log, legacy: legacy, segwit: segwit}, nil
}

// MasterKey returns the master key of the script type.
func (w *WalletContext) MasterKey(t ScriptType) *MasterKey {
	if t == Segwit {
		return w.segwit
	}
	return w.legacy
}

// SetupAccount asks the node for a new address of the script type and
// checks it against the local derivation.
func (w *WalletContext) SetupAccount(t ScriptType) (*Account, error) {
	address, err := w.node.GetNewAddress("", t.AddressType())
	if err != nil {
		return nil, fmt.Errorf("could not get new %s address: %w", t, err)
	}
	return w.VerifyAddress(address, t)
}

// VerifyAddress re-derives the key of an existing wallet address from its
// hdkeypath and checks pubkey, address and script against the node.
func (w *WalletContext) VerifyAddress(address string, t ScriptType) (*Account, error) {
	decoded, err := btcutil.DecodeAddress(address, w.net)
	if err != nil {
		return nil, fmt.Errorf("could not decode address %s: %w", address, err)
	}
	if !decoded.IsForNet(w.net) {
		return nil, fmt.Errorf("address %s is not for network %s", address, w.net.Name)
	}

	info, err := w.node.GetAddressInfo(address)
	if err != nil {
		return nil, fmt.Errorf("could not get address info for %s: %w", address, err)
	}
	if info.PubKey == "" {
		return nil, fmt.Errorf("address info for %s has no pubkey", address)
	}
	if info.HDKeyPath == "" {
		return nil, fmt.Errorf("address info for %s has no hdkeypath", address)
	}

	path, err := ParsePath(info.HDKeyPath)
	if err != nil {
		return nil, err
	}

	derived, err := Derive(w.MasterKey(t), path)
	if err != nil {
		return nil, err
	}
	if err := VerifyAddressInfo(derived, info, w.net); err != nil {
		return nil, err
	}

	script, err := derived.PkScript(w.net)
	if err != nil {
		return nil, err
	}

	w.log.Debug("verified derived address",
		zap.String("address", address),
		zap.String("type", t.String()),
		zap.Stringer("path", path))

	return &Account{
		Address:      decoded,
		ScriptPubKey: script,
		PrivateKey:   derived.PrivateKey,
		PublicKey:    derived.PublicKey,
		WitnessHash:  derived.WitnessHash(),
		Path:         path,
	}, nil
}

// UnspentForAddress lists the confirmed outputs of address and fails if the
// node returns any output paying elsewhere.
func (w *WalletContext) UnspentForAddress(address btcutil.Address) ([]btcjson.ListUnspentResult, error) {
	utxos, err := w.node.ListUnspent(unspentMinConf, unspentMaxConf, []btcutil.Address{address})
	if err != nil {
		return nil, fmt.Errorf("could not list unspent outputs for %s: %w", address, err)
	}

	want := address.EncodeAddress()
	for _, utxo := range utxos {
		if utxo.Address != want {
			return nil, fmt.Errorf("%w: %s:%d pays %s, want %s", ErrForeignUTXO, utxo.TxID, utxo.Vout, utxo.Address, want)
		}
	}
	return utxos, nil
}
