// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package chainsig

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

// taprootPrefix marks descriptors for taproot outputs. Their script trees can
// contain pkh or wpkh and must never be taken as legacy or segwit.
const taprootPrefix = "tr("

// Descriptor is one record of a listdescriptors response.
type Descriptor struct {
	Desc      string `json:"desc"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Active    bool   `json:"active"`
	Internal  bool   `json:"internal,omitempty"`
	Range     []int  `json:"range,omitempty"`
	Next      int    `json:"next,omitempty"`
}

// DescriptorList is the full listdescriptors response.
type DescriptorList struct {
	WalletName  string       `json:"wallet_name"`
	Descriptors []Descriptor `json:"descriptors"`
}

// MasterKey is an extended private key scoped to one script type. It is
// immutable once parsed.
type MasterKey struct {
	key        *hdkeychain.ExtendedKey
	scriptType ScriptType
}

// ScriptType returns the lineage the key was extracted for.
func (m *MasterKey) ScriptType() ScriptType { return m.scriptType }

// Depth returns the BIP32 depth of the key, zero for a root key.
func (m *MasterKey) Depth() uint8 { return m.key.Depth() }

// ParentFingerprint returns the fingerprint of the parent key, zero for a
// root key.
func (m *MasterKey) ParentFingerprint() uint32 { return m.key.ParentFingerprint() }

// Fingerprint returns the first four bytes of hash160 of the public key, as
// shown in descriptor key origins.
func (m *MasterKey) Fingerprint() ([4]byte, error) {
	var fp [4]byte
	pub, err := m.key.ECPubKey()
	if err != nil {
		return fp, fmt.Errorf("could not get master public key: %w", err)
	}
	copy(fp[:], btcutil.Hash160(pub.SerializeCompressed())[:4])
	return fp, nil
}

// ExtendedPublicKey returns the serialized public counterpart (tpub/xpub).
func (m *MasterKey) ExtendedPublicKey() (string, error) {
	pub, err := m.key.Neuter()
	if err != nil {
		return "", fmt.Errorf("could not neuter master key: %w", err)
	}
	return pub.String(), nil
}

// String returns the serialized extended private key.
func (m *MasterKey) String() string { return m.key.String() }

// NewMasterKey parses a serialized extended private key for the network.
func NewMasterKey(s string, scriptType ScriptType, net *chaincfg.Params) (*MasterKey, error) {
	key, err := hdkeychain.NewKeyFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedKey, err)
	}
	if !key.IsPrivate() {
		return nil, fmt.Errorf("%w: key is public", ErrMalformedKey)
	}
	if !key.IsForNet(net) {
		return nil, fmt.Errorf("%w: key is not for network %s", ErrMalformedKey, net.Name)
	}
	return &MasterKey{key: key, scriptType: scriptType}, nil
}

// MasterKeyFromDescriptors returns the master key embedded in the first
// descriptor of the given script type.
//
// Taproot descriptors are never selected. Legacy selects descriptors
// containing pkh, ignoring occurrences that are part of wpkh. Segwit selects
// descriptors containing wpkh. The key is the first path segment of the expression
// wrapped by the script function; an unprefixed segwit key gets the network
// private key prefix prepended before parsing.
func MasterKeyFromDescriptors(descriptors []Descriptor, scriptType ScriptType, net *chaincfg.Params) (*MasterKey, error) {
	for _, d := range descriptors {
		start, ok := keyExpressionStart(d.Desc, scriptType)
		if !ok {
			continue
		}

		keyStr, err := extractKey(d.Desc[start:])
		if err != nil {
			return nil, err
		}

		if scriptType == Segwit {
			prefix, err := privateKeyPrefix(net)
			if err != nil {
				return nil, err
			}
			if !strings.HasPrefix(keyStr, prefix) {
				keyStr = prefix + keyStr
			}
		}

		return NewMasterKey(keyStr, scriptType, net)
	}

	return nil, fmt.Errorf("%w: no %s descriptor in %d descriptors", ErrDescriptorNotFound, scriptType, len(descriptors))
}

// keyExpressionStart returns the offset right after the opening token of the
// script type, if the descriptor matches it.
func keyExpressionStart(desc string, scriptType ScriptType) (int, bool) {
	if !strings.Contains(desc, scriptType.marker()) || strings.HasPrefix(desc, taprootPrefix) {
		return 0, false
	}

	token := scriptType.token()
	switch scriptType {
	case Segwit:
		idx := strings.Index(desc, token)
		if idx < 0 {
			return 0, false
		}
		return idx + len(token), true
	case Legacy:
		for off := 0; off < len(desc); {
			idx := strings.Index(desc[off:], token)
			if idx < 0 {
				return 0, false
			}
			idx += off
			if idx == 0 || desc[idx-1] != 'w' {
				return idx + len(token), true
			}
			off = idx + len(token)
		}
	}
	return 0, false
}

// extractKey cuts the key out of "[origin]key/path...)...".
func extractKey(expr string) (string, error) {
	end := strings.IndexByte(expr, ')')
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated key expression", ErrMalformedKey)
	}
	inner := expr[:end]

	if strings.HasPrefix(inner, "[") {
		closing := strings.IndexByte(inner, ']')
		if closing < 0 {
			return "", fmt.Errorf("%w: unterminated key origin", ErrMalformedKey)
		}
		inner = inner[closing+1:]
	}

	key, _, _ := strings.Cut(inner, "/")
	if key == "" {
		return "", fmt.Errorf("%w: empty key expression", ErrMalformedKey)
	}
	return key, nil
}

// privateKeyPrefix returns the four character base58 prefix of extended
// private keys on the network, such as tprv or xprv.
func privateKeyPrefix(net *chaincfg.Params) (string, error) {
	var zero [32]byte
	key := hdkeychain.NewExtendedKey(net.HDPrivateKeyID[:], zero[:], zero[:], []byte{0, 0, 0, 0}, 0, 0, true)
	s := key.String()
	if len(s) < 4 {
		return "", fmt.Errorf("could not determine extended key prefix for %s", net.Name)
	}
	return s[:4], nil
}
