// Copyright 2024 The keyattestation Authors.
// SPDX-License-Identifier: Apache-2.0

package keyattestation

import (
	"crypto"

	"github.com/google/keyattestation/keymint"
	"github.com/google/keyattestation/provisioning"
)

// Kind discriminates the concrete type behind a VerificationResult,
// for callers that want a cheap switch without a type assertion chain.
type Kind int

const (
	KindSuccess Kind = iota
	KindChallengeMismatch
	KindPathValidationFailure
	KindChainParsingFailure
	KindExtensionParsingFailure
	KindExtensionConstraintViolation
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "SUCCESS"
	case KindChallengeMismatch:
		return "CHALLENGE_MISMATCH"
	case KindPathValidationFailure:
		return "PATH_VALIDATION_FAILURE"
	case KindChainParsingFailure:
		return "CHAIN_PARSING_FAILURE"
	case KindExtensionParsingFailure:
		return "EXTENSION_PARSING_FAILURE"
	case KindExtensionConstraintViolation:
		return "EXTENSION_CONSTRAINT_VIOLATION"
	default:
		return "UNKNOWN"
	}
}

// VerificationResult is the closed outcome of Verify or VerifyAsync:
// exactly one of the six concrete types below. Callers switch on the
// concrete type (or call Kind for a cheaper discriminator) rather than
// probing fields on a shared struct, since Go has no sealed class
// hierarchy to enforce exhaustiveness the way the source ecosystem's
// sum types do.
type VerificationResult interface {
	Kind() Kind
	// Ok reports whether this result represents a successful
	// verification; only true for Success.
	Ok() bool
}

// Success means the chain passed chain-shape validation, PKIX path
// validation, KeyDescription parsing, the challenge check, and every
// configured constraint.
type Success struct {
	PublicKey         crypto.PublicKey
	Challenge         []byte
	SecurityLevel     keymint.SecurityLevel
	VerifiedBootState keymint.VerifiedBootState
	DeviceInformation *provisioning.Info // nil unless the attestation cert carried a ProvisioningInfo extension
	AttestedDeviceIds DeviceIdentity
}

func (Success) Kind() Kind { return KindSuccess }
func (Success) Ok() bool   { return true }

// ChallengeMismatch means chain-shape validation, path validation, and
// KeyDescription parsing passed but the attestation challenge did not
// match what the caller (or configured challenge.Checker) expected, or the
// checker returned an error. Constraints are not evaluated in this case.
type ChallengeMismatch struct {
	Message string
}

func (ChallengeMismatch) Kind() Kind { return KindChallengeMismatch }
func (ChallengeMismatch) Ok() bool   { return false }

// PathValidationFailure means PKIX path validation or the revocation
// pre-pass rejected the chain (a software root in the trust anchor set
// fails New instead, before any chain is seen). Reason is
// one of the pathvalidation.Reason literal codes (NO_TRUST_ANCHOR,
// NAME_CHAINING, INVALID_SIGNATURE, NOT_YET_VALID, EXPIRED, REVOKED,
// UNSPECIFIED).
type PathValidationFailure struct {
	Reason  string
	Message string
}

func (PathValidationFailure) Kind() Kind { return KindPathValidationFailure }
func (PathValidationFailure) Ok() bool   { return false }

// ChainParsingFailure means the certificate chain itself was
// structurally invalid: wrong size, the attestation extension on the
// wrong certificate (or missing, or duplicated), or a root that isn't
// self-issued.
type ChainParsingFailure struct {
	Reason  string
	Message string
}

func (ChainParsingFailure) Kind() Kind { return KindChainParsingFailure }
func (ChainParsingFailure) Ok() bool   { return false }

// ExtensionParsingFailure means the KeyDescription extension's DER
// failed to decode: an unknown tag number, malformed DER, malformed
// UTF-8, wrong field arity, or an invalid enum discriminant.
type ExtensionParsingFailure struct {
	Reason  string
	Message string
}

func (ExtensionParsingFailure) Kind() Kind { return KindExtensionParsingFailure }
func (ExtensionParsingFailure) Ok() bool   { return false }

// ExtensionConstraintViolation means the KeyDescription decoded
// successfully but failed a configured field-level constraint.
type ExtensionConstraintViolation struct {
	Description string
	Reason      string
}

func (ExtensionConstraintViolation) Kind() Kind { return KindExtensionConstraintViolation }
func (ExtensionConstraintViolation) Ok() bool   { return false }
