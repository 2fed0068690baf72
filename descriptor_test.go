// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package chainsig

import (
	"errors"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/matryer/is"
)

// TestMasterKeyFromDescriptors_SelectsByType checks that legacy and segwit
// keys come from their own descriptors, whatever the listing order.
func TestMasterKeyFromDescriptors_SelectsByType(t *testing.T) {
	is := is.New(t)

	legacy := testMaster(t, 0x01, Legacy, regtest)
	segwit := testMaster(t, 0x02, Segwit, regtest)

	// segwit first, so a naive pkh search would hit wpkh
	descriptors := DescriptorsFor(regtest, segwit, legacy)

	gotLegacy, err := MasterKeyFromDescriptors(descriptors, Legacy, regtest)
	is.NoErr(err)
	is.Equal(gotLegacy.String(), legacy.String())
	is.Equal(gotLegacy.ScriptType(), Legacy)

	gotSegwit, err := MasterKeyFromDescriptors(descriptors, Segwit, regtest)
	is.NoErr(err)
	is.Equal(gotSegwit.String(), segwit.String())
	is.Equal(gotSegwit.ScriptType(), Segwit)
}

// TestMasterKeyFromDescriptors_TaprootExcluded checks that a taproot
// descriptor containing wpkh is never taken as the segwit one.
func TestMasterKeyFromDescriptors_TaprootExcluded(t *testing.T) {
	is := is.New(t)

	taproot := testMaster(t, 0x03, Segwit, regtest)
	segwit := testMaster(t, 0x04, Segwit, regtest)

	descriptors := []Descriptor{
		{Desc: "tr(" + taproot.String() + "/86h/1h/0h/0/*,wpkh(" + taproot.String() + "/0/*))#y0k3w0hx"},
		{Desc: "wpkh(" + segwit.String() + "/84h/1h/0h/0/*)#8zl2f6r0"},
	}

	got, err := MasterKeyFromDescriptors(descriptors, Segwit, regtest)
	is.NoErr(err)
	is.Equal(got.String(), segwit.String())
}

// TestMasterKeyFromDescriptors_TaprootExcludedLegacy checks that a taproot
// script tree containing pkh is never taken as the legacy one.
func TestMasterKeyFromDescriptors_TaprootExcludedLegacy(t *testing.T) {
	is := is.New(t)

	taproot := testMaster(t, 0x03, Legacy, regtest)
	legacy := testMaster(t, 0x04, Legacy, regtest)

	descriptors := []Descriptor{
		{Desc: "tr(" + taproot.String() + "/86h/1h/0h/0/*,pkh(" + taproot.String() + "/0/*))"},
		{Desc: "pkh(" + legacy.String() + "/44h/1h/0h/0/*)"},
	}

	got, err := MasterKeyFromDescriptors(descriptors, Legacy, regtest)
	is.NoErr(err)
	is.Equal(got.String(), legacy.String())

	_, err = MasterKeyFromDescriptors(descriptors[:1], Legacy, regtest)
	is.True(errors.Is(err, ErrDescriptorNotFound))
}

// TestMasterKeyFromDescriptors_Forms covers the key expression variants a
// node can report.
func TestMasterKeyFromDescriptors_Forms(t *testing.T) {
	master := testMaster(t, 0x05, Segwit, regtest)
	key := master.String()

	tests := []struct {
		name       string
		desc       string
		scriptType ScriptType
	}{
		{"legacy", "pkh(" + key + "/44h/1h/0h/0/*)#abcdefgh", Legacy},
		{"legacy origin", "pkh([d34db33f/44h/1h/0h]" + key + "/0/*)", Legacy},
		{"segwit", "wpkh(" + key + "/84h/1h/0h/0/*)", Segwit},
		{"segwit unprefixed", "wpkh(" + key[4:] + "/84h/1h/0h/1/*)", Segwit},
		{"segwit origin", "wpkh([d34db33f/84'/1'/0']" + key + "/0/*)", Segwit},
		{"nested segwit", "sh(wpkh(" + key + "/49h/1h/0h/0/*))", Segwit},
		{"no path", "wpkh(" + key + ")", Segwit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			got, err := MasterKeyFromDescriptors([]Descriptor{{Desc: tt.desc}}, tt.scriptType, regtest)
			is.NoErr(err)
			is.Equal(got.String(), key)
		})
	}
}

// TestMasterKeyFromDescriptors_NotFound checks the error when nothing
// matches.
func TestMasterKeyFromDescriptors_NotFound(t *testing.T) {
	is := is.New(t)

	master := testMaster(t, 0x06, Segwit, regtest)
	descriptors := []Descriptor{
		{Desc: "tr(" + master.String() + "/86h/1h/0h/0/*)"},
		{Desc: "wpkh(" + master.String() + "/84h/1h/0h/0/*)"},
	}

	_, err := MasterKeyFromDescriptors(descriptors, Legacy, regtest)
	is.True(errors.Is(err, ErrDescriptorNotFound))

	_, err = MasterKeyFromDescriptors(descriptors[:1], Segwit, regtest)
	is.True(errors.Is(err, ErrDescriptorNotFound))

	_, err = MasterKeyFromDescriptors(nil, Segwit, regtest)
	is.True(errors.Is(err, ErrDescriptorNotFound))
}

// TestMasterKeyFromDescriptors_Malformed checks that bad key material is
// reported as a malformed key.
func TestMasterKeyFromDescriptors_Malformed(t *testing.T) {
	regtestKey := testMaster(t, 0x07, Legacy, regtest)
	mainnetKey := testMaster(t, 0x07, Legacy, &chaincfg.MainNetParams)
	tpub, err := regtestKey.ExtendedPublicKey()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		desc       string
		scriptType ScriptType
	}{
		{"garbage", "pkh(notakey/44h/1h/0h/0/*)", Legacy},
		{"bad checksum", "pkh(" + corruptLast(regtestKey.String()) + "/0/*)", Legacy},
		{"public key", "pkh(" + tpub + "/0/*)", Legacy},
		{"wrong network", "pkh(" + mainnetKey.String() + "/0/*)", Legacy},
		{"unterminated", "wpkh(" + regtestKey.String() + "/0/*", Segwit},
		{"empty", "pkh()", Legacy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			_, err := MasterKeyFromDescriptors([]Descriptor{{Desc: tt.desc}}, tt.scriptType, regtest)
			is.True(errors.Is(err, ErrMalformedKey))
		})
	}
}

// TestPrivateKeyPrefix checks the prefix used to normalize segwit keys.
func TestPrivateKeyPrefix(t *testing.T) {
	is := is.New(t)

	prefix, err := privateKeyPrefix(regtest)
	is.NoErr(err)
	is.Equal(prefix, "tprv")

	prefix, err = privateKeyPrefix(&chaincfg.MainNetParams)
	is.NoErr(err)
	is.Equal(prefix, "xprv")
}

// TestMasterKey_Metadata checks the accessors of a root key.
func TestMasterKey_Metadata(t *testing.T) {
	is := is.New(t)

	master := testMaster(t, 0x08, Legacy, regtest)
	is.Equal(master.Depth(), uint8(0))
	is.Equal(master.ParentFingerprint(), uint32(0))

	tpub, err := master.ExtendedPublicKey()
	is.NoErr(err)
	is.Equal(tpub[:4], "tpub")

	fp, err := master.Fingerprint()
	is.NoErr(err)
	is.True(fp != [4]byte{})
}

// corruptLast replaces the last base58 character of s.
func corruptLast(s string) string {
	last := byte('1')
	if s[len(s)-1] == last {
		last = '2'
	}
	return s[:len(s)-1] + string(last)
}
