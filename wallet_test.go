// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package chainsig

import (
	"errors"
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/matryer/is"
)

// fakeNode serves a fixture wallet the way bitcoind would.
type fakeNode struct {
	t           *testing.T
	descriptors []Descriptor
	masters     map[ScriptType]*MasterKey
	next        map[ScriptType]uint32
	infos       map[string]*AddressInfo
	utxos       []btcjson.ListUnspentResult
}

func newFakeNode(t *testing.T) *fakeNode {
	legacy := testMaster(t, 0x51, Legacy, regtest)
	segwit := testMaster(t, 0x52, Segwit, regtest)
	return &fakeNode{
		t:           t,
		descriptors: DescriptorsFor(regtest, legacy, segwit),
		masters:     map[ScriptType]*MasterKey{Legacy: legacy, Segwit: segwit},
		next:        map[ScriptType]uint32{},
		infos:       map[string]*AddressInfo{},
	}
}

func (n *fakeNode) ListDescriptors(_ bool) (*DescriptorList, error) {
	return &DescriptorList{WalletName: "test", Descriptors: n.descriptors}, nil
}

func (n *fakeNode) GetAddressInfo(address string) (*AddressInfo, error) {
	info, ok := n.infos[address]
	if !ok {
		return nil, fmt.Errorf("address %s not in wallet", address)
	}
	return info, nil
}

func (n *fakeNode) GetNewAddress(_, addressType string) (string, error) {
	t, err := ParseScriptType(addressType)
	if err != nil {
		return "", err
	}

	purpose := uint32(44)
	if t == Segwit {
		purpose = 84
	}
	idx := n.next[t]
	n.next[t]++

	info := independentAddressInfo(n.t, n.masters[t],
		[]uint32{hardened(purpose), hardened(1), hardened(0), 0, idx},
		fmt.Sprintf("m/%d'/1'/0'/0/%d", purpose, idx), regtest)
	n.infos[info.Address] = info
	return info.Address, nil
}

func (n *fakeNode) ListUnspent(_, _ int, _ []btcutil.Address) ([]btcjson.ListUnspentResult, error) {
	return n.utxos, nil
}

// TestWalletContext_SetupAccount tests that new node addresses are
// reproduced from the wallet master keys
func TestWalletContext_SetupAccount(t *testing.T) {
	for _, scriptType := range []ScriptType{Legacy, Segwit} {
		t.Run(scriptType.String(), func(t *testing.T) {
			is := is.New(t)

			node := newFakeNode(t)
			w, err := NewWalletContext(node, regtest, nil)
			is.NoErr(err)
			is.Equal(w.MasterKey(scriptType).String(), node.masters[scriptType].String())

			for i := 0; i < 3; i++ {
				account, err := w.SetupAccount(scriptType)
				is.NoErr(err)

				info := node.infos[account.Address.EncodeAddress()]
				is.True(info != nil)
				is.Equal(btcutil.Hash160(account.PublicKey.SerializeCompressed()), account.WitnessHash)
				is.Equal(account.Path.String(), info.HDKeyPath)
				is.True(account.PrivateKey.PubKey().IsEqual(account.PublicKey))
			}
		})
	}
}

// TestWalletContext_VerifyAddress_Tampered tests that a node reporting a
// different key is caught
func TestWalletContext_VerifyAddress_Tampered(t *testing.T) {
	is := is.New(t)

	node := newFakeNode(t)
	w, err := NewWalletContext(node, regtest, nil)
	is.NoErr(err)

	first, err := node.GetNewAddress("", "bech32")
	is.NoErr(err)
	second, err := node.GetNewAddress("", "bech32")
	is.NoErr(err)

	// the node claims the first address has the key of the second
	node.infos[first].HDKeyPath = node.infos[second].HDKeyPath
	_, err = w.VerifyAddress(first, Segwit)
	is.True(errors.Is(err, ErrDerivationMismatch))

	// checking against the wrong master key also fails
	_, err = w.VerifyAddress(second, Legacy)
	is.True(errors.Is(err, ErrDerivationMismatch))

	node.infos[second].HDKeyPath = ""
	_, err = w.VerifyAddress(second, Segwit)
	is.True(err != nil)

	node.infos[second].HDKeyPath = "m/84'/x"
	_, err = w.VerifyAddress(second, Segwit)
	is.True(errors.Is(err, ErrInvalidPath))
}

// TestNewWalletContext_MissingDescriptor tests a wallet without segwit keys
func TestNewWalletContext_MissingDescriptor(t *testing.T) {
	is := is.New(t)

	node := newFakeNode(t)
	node.descriptors = DescriptorsFor(regtest, node.masters[Legacy])

	_, err := NewWalletContext(node, regtest, nil)
	is.True(errors.Is(err, ErrDescriptorNotFound))
}

// TestWalletContext_UnspentForAddress tests the UTXO ownership check
func TestWalletContext_UnspentForAddress(t *testing.T) {
	is := is.New(t)

	node := newFakeNode(t)
	w, err := NewWalletContext(node, regtest, nil)
	is.NoErr(err)

	account, err := w.SetupAccount(Segwit)
	is.NoErr(err)
	mine := account.Address.EncodeAddress()

	node.utxos = []btcjson.ListUnspentResult{
		{TxID: "aa", Vout: 0, Address: mine, Amount: 1},
		{TxID: "bb", Vout: 1, Address: mine, Amount: 2},
	}
	utxos, err := w.UnspentForAddress(account.Address)
	is.NoErr(err)
	is.Equal(len(utxos), 2)

	other, err := w.SetupAccount(Segwit)
	is.NoErr(err)
	node.utxos = append(node.utxos, btcjson.ListUnspentResult{TxID: "cc", Address: other.Address.EncodeAddress()})
	_, err = w.UnspentForAddress(account.Address)
	is.True(errors.Is(err, ErrForeignUTXO))
}
