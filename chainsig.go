// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

// Package chainsig checks the key derivation of a bitcoind descriptor wallet
// and rebuilds ECDSA signatures produced by a distributed signer.
//
// The first half of the package extracts the master extended private key
// from a wallet's descriptors, derives child keys along the hdkeypath the
// node reports, and confirms that the derived public key and address equal
// the ones the node returned. The second half reads the big_r and s
// components of a signature from a transaction execution outcome and
// assembles them into a 64 byte compact signature.
//
// Nothing in this package performs I/O except RPCNode, which adapts a
// bitcoind JSON-RPC client to the Node interface.
package chainsig

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
)

// NetworkParams returns the chain parameters for a bitcoind network name:
// mainnet, testnet, signet or regtest.
func NetworkParams(name string) (*chaincfg.Params, error) {
	switch strings.ToLower(name) {
	case "mainnet", "main", "bitcoin":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3", "test":
		return &chaincfg.TestNet3Params, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	case "regtest", "":
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("unknown network %q", name)
	}
}
