// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package chainsig

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tyler-smith/go-bip39"
)

// NewMnemonic returns a random BIP39 mnemonic with the given entropy size in
// bits (128 to 256, a multiple of 32).
func NewMnemonic(bitSize int) (string, error) {
	entropy, err := bip39.NewEntropy(bitSize)
	if err != nil {
		return "", fmt.Errorf("could not create entropy: %w", err)
	}
	words, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("could not create a mnemonic set of words: %w", err)
	}
	return words, nil
}

// MasterKeyFromMnemonic derives the BIP32 root key of a BIP39 mnemonic. It is
// used to build wallet fixtures without a node.
func MasterKeyFromMnemonic(mnemonic, passphrase string, t ScriptType, net *chaincfg.Params) (*MasterKey, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}

	key, err := hdkeychain.NewMaster(seed, net)
	if err != nil {
		return nil, fmt.Errorf("could not create master key: %w", err)
	}
	return &MasterKey{key: key, scriptType: t}, nil
}

// AccountPath returns the BIP44 (legacy) or BIP84 (segwit) account path
// bitcoind uses for a new descriptor wallet, m/44'/1'/0' on test networks.
func AccountPath(t ScriptType, net *chaincfg.Params) DerivationPath {
	purpose := uint32(44)
	if t == Segwit {
		purpose = 84
	}
	coin := uint32(1)
	if net.Net == chaincfg.MainNetParams.Net {
		coin = 0
	}
	return DerivationPath{
		{Index: purpose, Hardened: true},
		{Index: coin, Hardened: true},
		{Index: 0, Hardened: true},
	}
}

// DescriptorsFor renders receive and change descriptors for each master key
// in the shape listdescriptors returns them, without checksums.
func DescriptorsFor(net *chaincfg.Params, masters ...*MasterKey) []Descriptor {
	descriptors := make([]Descriptor, 0, 2*len(masters))
	for _, m := range masters {
		account := AccountPath(m.scriptType, net).String()[1:]
		for _, internal := range []bool{false, true} {
			branch := 0
			if internal {
				branch = 1
			}
			descriptors = append(descriptors, Descriptor{
				Desc:     fmt.Sprintf("%s%s%s/%d/*)", m.scriptType.token(), m.key.String(), account, branch),
				Active:   true,
				Internal: internal,
				Range:    []int{0, 999},
			})
		}
	}
	return descriptors
}
