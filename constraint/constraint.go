// Copyright 2024 The keyattestation Authors.
// SPDX-License-Identifier: Apache-2.0

// Package constraint evaluates a caller-configurable set of field-level
// constraints against a decoded KeyDescription extension: the key's
// origin, the security level it was generated under, whether a root of
// trust is present, and whether each AuthorizationList's tags arrived in
// canonical order.
package constraint

import (
	"fmt"

	"github.com/google/keyattestation/keymint"
)

// Level is a sum type describing how strictly a single field must be
// validated: IGNORE (any value passes), NOT_NULL (the field must be
// present), or STRICT (the field must be present and equal to an expected
// value).
type Level[T comparable] struct {
	kind     levelKind
	expected T
}

type levelKind int

const (
	levelIgnore levelKind = iota
	levelNotNull
	levelStrict
)

// Ignore returns a Level that performs no check on the field.
func Ignore[T comparable]() Level[T] { return Level[T]{kind: levelIgnore} }

// NotNull returns a Level that only requires the field to be present.
func NotNull[T comparable]() Level[T] { return Level[T]{kind: levelNotNull} }

// Strict returns a Level that requires the field to be present and equal
// to expected.
func Strict[T comparable](expected T) Level[T] { return Level[T]{kind: levelStrict, expected: expected} }

// EvaluateLevel checks a Level against an observed optional value
// (present, value). It reports ok=false and a human-readable reason on
// failure.
func EvaluateLevel[T comparable](level Level[T], present bool, value T) (ok bool, reason string) {
	switch level.kind {
	case levelIgnore:
		return true, ""
	case levelNotNull:
		if !present {
			return false, "field is required but absent"
		}
		return true, ""
	case levelStrict:
		if !present {
			return false, "field is required but absent"
		}
		if value != level.expected {
			return false, fmt.Sprintf("field is %v, want %v", value, level.expected)
		}
		return true, ""
	default:
		return false, "unknown validation level"
	}
}

// SecurityLevelKind extends Level's three-way STRICT/NOT_NULL/IGNORE
// lattice with two domain-specific checks that don't reduce to simple
// equality: NOT_SOFTWARE (reject SecurityLevelSoftware without pinning an
// exact expected level) and CONSISTENT (the attestation and KeyMint
// security levels must match each other, whatever they are). This is
// modeled as a second sum type rather than a subclass of Level: a
// variant with extra checks gets its own sum, not a subtype.
type SecurityLevelKind int

const (
	SecurityLevelIgnore SecurityLevelKind = iota
	SecurityLevelNotNull
	SecurityLevelStrict
	SecurityLevelNotSoftware
	SecurityLevelConsistent
)

// SecurityLevelValidation configures how KeyDescription's two security
// level fields are checked.
type SecurityLevelValidation struct {
	Kind     SecurityLevelKind
	Expected keymint.SecurityLevel
}

// EvaluateSecurityLevel checks attestation and keymint security levels
// against v.
func EvaluateSecurityLevel(v SecurityLevelValidation, attestation, keyMint keymint.SecurityLevel) (ok bool, reason string) {
	switch v.Kind {
	case SecurityLevelIgnore:
		return true, ""
	case SecurityLevelNotNull:
		return true, "" // security levels are always present once a KeyDescription decodes
	case SecurityLevelStrict:
		if attestation != keyMint {
			return false, fmt.Sprintf("attestation security level %s does not match keymint security level %s", attestation, keyMint)
		}
		if attestation != v.Expected {
			return false, fmt.Sprintf("security level is %s, want %s", attestation, v.Expected)
		}
		return true, ""
	case SecurityLevelNotSoftware:
		if attestation != keyMint {
			return false, fmt.Sprintf("attestation security level %s does not match keymint security level %s", attestation, keyMint)
		}
		if attestation == keymint.SecurityLevelSoftware {
			return false, "security level is SOFTWARE"
		}
		return true, ""
	case SecurityLevelConsistent:
		if attestation != keyMint {
			return false, fmt.Sprintf("attestation security level %s does not match keymint security level %s", attestation, keyMint)
		}
		return true, ""
	default:
		return false, "unknown security level validation kind"
	}
}

// Reason is a stable code identifying which configured constraint a
// KeyDescription failed.
type Reason string

const (
	ReasonKeyOrigin        Reason = "KEY_ORIGIN_CONSTRAINT_VIOLATION"
	ReasonSecurityLevel    Reason = "SECURITY_LEVEL_CONSTRAINT_VIOLATION"
	ReasonRootOfTrust      Reason = "ROOT_OF_TRUST_CONSTRAINT_VIOLATION"
	ReasonAuthListTagOrder Reason = "AUTHORIZATION_LIST_ORDERING_CONSTRAINT_VIOLATION"
)

// ExtensionConstraintConfig bundles every field-level constraint evaluated
// by Evaluate against a decoded keymint.KeyDescription. The zero value is
// NOT a safe default: use DefaultConfig for the recommended defaults
// (key origin GENERATED, security level TRUSTED_ENVIRONMENT, root of
// trust required, tag ordering ignored).
type ExtensionConstraintConfig struct {
	KeyOrigin                 Level[keymint.KeyOrigin]
	SecurityLevel             SecurityLevelValidation
	RootOfTrust               Level[bool]
	AuthorizationListTagOrder Level[bool]
}

// DefaultConfig returns the recommended default constraint set: the
// hardware-enforced key origin must be GENERATED, both security level
// fields must equal TRUSTED_ENVIRONMENT, a root of trust must be present,
// and AuthorizationList tag ordering is not checked.
func DefaultConfig() ExtensionConstraintConfig {
	return ExtensionConstraintConfig{
		KeyOrigin:                 Strict(keymint.KeyOriginGenerated),
		SecurityLevel:             SecurityLevelValidation{Kind: SecurityLevelStrict, Expected: keymint.SecurityLevelTrustedEnvironment},
		RootOfTrust:               NotNull[bool](),
		AuthorizationListTagOrder: Ignore[bool](),
	}
}

// Violation names the single configured constraint that a KeyDescription
// failed.
type Violation struct {
	Field  string
	Reason Reason
	Detail string
}

// Evaluate runs the configured constraints against kd in a fixed order
// (key origin, security level, root of trust, AuthorizationList tag
// ordering) and returns the first one that fails. A nil return means kd
// satisfies every configured constraint.
func Evaluate(cfg ExtensionConstraintConfig, kd keymint.KeyDescription) *Violation {
	origin := kd.HardwareEnforced.Origin
	var originValue keymint.KeyOrigin
	if origin != nil {
		originValue = *origin
	}
	if ok, reason := EvaluateLevel(cfg.KeyOrigin, origin != nil, originValue); !ok {
		return &Violation{Field: "hardwareEnforced.origin", Reason: ReasonKeyOrigin, Detail: reason}
	}

	if ok, reason := EvaluateSecurityLevel(cfg.SecurityLevel, kd.AttestationSecurityLevel, kd.KeyMintSecurityLevel); !ok {
		return &Violation{Field: "securityLevel", Reason: ReasonSecurityLevel, Detail: reason}
	}

	hasRoot := kd.HardwareEnforced.RootOfTrust != nil
	if ok, reason := EvaluateLevel(cfg.RootOfTrust, hasRoot, hasRoot); !ok {
		return &Violation{Field: "hardwareEnforced.rootOfTrust", Reason: ReasonRootOfTrust, Detail: reason}
	}

	if cfg.AuthorizationListTagOrder.kind == levelStrict {
		if !kd.SoftwareEnforced.AreTagsOrdered {
			return &Violation{Field: "softwareEnforced", Reason: ReasonAuthListTagOrder, Detail: "softwareEnforced tags are not in ascending order"}
		}
		if !kd.HardwareEnforced.AreTagsOrdered {
			return &Violation{Field: "hardwareEnforced", Reason: ReasonAuthListTagOrder, Detail: "hardwareEnforced tags are not in ascending order"}
		}
	}

	return nil
}
