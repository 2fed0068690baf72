// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package chainsig

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/matryer/is"
)

var regtest = &chaincfg.RegressionNetParams

const abandonMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// testMaster returns a root key for a one byte seed pattern.
func testMaster(t *testing.T, fill byte, scriptType ScriptType, net *chaincfg.Params) *MasterKey {
	t.Helper()
	is := is.New(t)

	key, err := hdkeychain.NewMaster(bytes.Repeat([]byte{fill}, 32), net)
	is.NoErr(err)

	return &MasterKey{key: key, scriptType: scriptType}
}

// independentAddressInfo derives the getaddressinfo fields for path using
// hdkeychain directly, the way a node would report them.
func independentAddressInfo(t *testing.T, master *MasterKey, path []uint32, hdkeypath string, net *chaincfg.Params) *AddressInfo {
	t.Helper()
	is := is.New(t)

	key := master.key
	for _, idx := range path {
		var err error
		key, err = key.Derive(idx)
		is.NoErr(err)
	}
	pub, err := key.ECPubKey()
	is.NoErr(err)

	hash := btcutil.Hash160(pub.SerializeCompressed())
	var addr btcutil.Address
	var script []byte
	if master.scriptType == Segwit {
		addr, err = btcutil.NewAddressWitnessPubKeyHash(hash, net)
		script = append([]byte{0x00, 0x14}, hash...)
	} else {
		addr, err = btcutil.NewAddressPubKeyHash(hash, net)
		script = append(append([]byte{0x76, 0xa9, 0x14}, hash...), 0x88, 0xac)
	}
	is.NoErr(err)

	return &AddressInfo{
		Address:      addr.EncodeAddress(),
		ScriptPubKey: hex.EncodeToString(script),
		PubKey:       hex.EncodeToString(pub.SerializeCompressed()),
		HDKeyPath:    hdkeypath,
		IsMine:       true,
		IsWitness:    master.scriptType == Segwit,
	}
}

func hardened(i uint32) uint32 { return i + hdkeychain.HardenedKeyStart }
