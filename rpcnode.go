// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package chainsig

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/rpcclient"
	"go.uber.org/zap"
)

// RPCConfig holds the connection settings of a bitcoind node.
type RPCConfig struct {
	Host string
	User string
	Pass string
	// Network is the bitcoind network name, such as regtest.
	Network string
	// Wallet selects a loaded wallet; empty uses the default wallet.
	Wallet string
}

// RPCConfigFromEnv reads BITCOIN_RPC_URL, BITCOIN_RPC_USER,
// BITCOIN_RPC_PASSWORD and BITCOIN_RPC_WALLET, falling back to the regtest
// defaults.
func RPCConfigFromEnv() RPCConfig {
	return RPCConfig{
		Host:    getEnvOrDefault("BITCOIN_RPC_URL", "127.0.0.1:18443"),
		User:    getEnvOrDefault("BITCOIN_RPC_USER", "user"),
		Pass:    getEnvOrDefault("BITCOIN_RPC_PASSWORD", "pass"),
		Network: "regtest",
		Wallet:  os.Getenv("BITCOIN_RPC_WALLET"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// RPCNode implements Node over bitcoind JSON-RPC.
type RPCNode struct {
	client *rpcclient.Client
	log    *zap.Logger
}

// NewRPCNode creates an HTTP POST mode client; no connection is made until
// the first call.
func NewRPCNode(cfg RPCConfig, log *zap.Logger) (*RPCNode, error) {
	if log == nil {
		log = zap.NewNop()
	}

	host := cfg.Host
	if cfg.Wallet != "" {
		host = fmt.Sprintf("%s/wallet/%s", host, cfg.Wallet)
	}

	client, err := rpcclient.New(&rpcclient.ConnConfig{
		Host:         host,
		User:         cfg.User,
		Pass:         cfg.Pass,
		Params:       cfg.Network,
		DisableTLS:   true,
		HTTPPostMode: true,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create rpc client: %w", err)
	}
	return &RPCNode{client: client, log: log}, nil
}

// Shutdown releases the client.
func (n *RPCNode) Shutdown() {
	n.client.Shutdown()
}

func (n *RPCNode) call(method string, result any, params ...any) error {
	raw := make([]json.RawMessage, 0, len(params))
	for _, p := range params {
		b, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("could not encode %s params: %w", method, err)
		}
		raw = append(raw, b)
	}

	n.log.Debug("rpc call", zap.String("method", method))
	resp, err := n.client.RawRequest(method, raw)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if err := json.Unmarshal(resp, result); err != nil {
		return fmt.Errorf("could not decode %s response: %w", method, err)
	}
	return nil
}

// ListDescriptors calls listdescriptors.
func (n *RPCNode) ListDescriptors(private bool) (*DescriptorList, error) {
	var list DescriptorList
	if err := n.call("listdescriptors", &list, private); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetAddressInfo calls getaddressinfo.
func (n *RPCNode) GetAddressInfo(address string) (*AddressInfo, error) {
	var info AddressInfo
	if err := n.call("getaddressinfo", &info, address); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetNewAddress calls getnewaddress with an address type such as legacy or
// bech32.
func (n *RPCNode) GetNewAddress(label, addressType string) (string, error) {
	var address string
	if err := n.call("getnewaddress", &address, label, addressType); err != nil {
		return "", err
	}
	return address, nil
}

// ListUnspent calls listunspent restricted to addresses.
func (n *RPCNode) ListUnspent(minConf, maxConf int, addresses []btcutil.Address) ([]btcjson.ListUnspentResult, error) {
	utxos, err := n.client.ListUnspentMinMaxAddresses(minConf, maxConf, addresses)
	if err != nil {
		return nil, fmt.Errorf("listunspent: %w", err)
	}
	return utxos, nil
}
