// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package chainsig

import (
	"errors"
	"fmt"
)

var (
	// ErrDescriptorNotFound is returned when no wallet descriptor matches the
	// requested script type.
	ErrDescriptorNotFound = errors.New("descriptor not found")

	// ErrMalformedKey is returned when the key material of a descriptor does
	// not parse as an extended private key for the expected network.
	ErrMalformedKey = errors.New("malformed extended key")

	// ErrInvalidPath is returned for derivation paths that are not a sequence
	// of non-negative indexes below 2^31, optionally hardened.
	ErrInvalidPath = errors.New("invalid derivation path")

	// ErrDerivationMismatch is matched by every *MismatchError.
	ErrDerivationMismatch = errors.New("derivation mismatch")

	// ErrInvalidHex is returned when a signature component is not hex.
	ErrInvalidHex = errors.New("invalid hex encoding")

	// ErrInvalidComponentLength is returned when big_r is not 33 bytes or s
	// is not 32 bytes.
	ErrInvalidComponentLength = errors.New("invalid signature component length")

	// ErrInvalidSignature is returned when r or s is zero or not below the
	// curve order.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrNotSuccess is returned when an outcome did not finish with a
	// success value.
	ErrNotSuccess = errors.New("outcome is not a success value")

	// ErrMalformedPayload is returned when a success value is not UTF-8 JSON.
	ErrMalformedPayload = errors.New("malformed success payload")

	// ErrMissingField is matched by every *MissingFieldError.
	ErrMissingField = errors.New("missing field")

	// ErrNoSignaturesFound is returned when no receipt of an outcome carried
	// a complete signature.
	ErrNoSignaturesFound = errors.New("no signatures found")

	// ErrForeignUTXO is returned when the node lists an unspent output that
	// does not belong to the queried address.
	ErrForeignUTXO = errors.New("utxo does not belong to address")
)

// MismatchError reports a value computed from the master key that differs
// from the value reported by the node.
type MismatchError struct {
	Field    string
	Expected string
	Observed string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("derived %s %s does not match node %s %s", e.Field, e.Expected, e.Field, e.Observed)
}

// Is makes errors.Is(err, ErrDerivationMismatch) hold.
func (e *MismatchError) Is(target error) bool {
	return target == ErrDerivationMismatch
}

// MissingFieldError names the JSON key absent from a signature payload.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %s", e.Field)
}

// Is makes errors.Is(err, ErrMissingField) hold.
func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}
