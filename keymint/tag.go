// Copyright 2024 The keyattestation Authors.
// SPDX-License-Identifier: Apache-2.0

// Package keymint parses the KeyMint KeyDescription attestation extension
// (OID 1.3.6.1.4.1.11129.2.1.17) into strongly-typed Go values.
package keymint

import "fmt"

// Tag is a stable KeyMint tag number identifying one field of an
// AuthorizationList. Tag numbers are assigned by the KeyMint HAL and are
// never reused; an unrecognized tag number encountered while parsing an
// AuthorizationList is always a hard parse failure (see Tag.Known).
type Tag int32

// The authoritative KeyMint tag numbers this parser understands. Each one
// corresponds to a context-tagged, OPTIONAL field of the AuthorizationList
// ASN.1 SEQUENCE.
const (
	TagPurpose                     Tag = 1
	TagAlgorithm                   Tag = 2
	TagKeySize                     Tag = 3
	TagBlockMode                   Tag = 4
	TagDigest                      Tag = 5
	TagPadding                     Tag = 6
	TagCallerNonce                 Tag = 7
	TagMinMacLength                Tag = 8
	TagEcCurve                     Tag = 10
	TagRsaPublicExponent           Tag = 200
	TagMgfDigest                   Tag = 203
	TagRollbackResistance          Tag = 303
	TagEarlyBootOnly               Tag = 305
	TagActiveDateTime              Tag = 400
	TagOriginationExpireDateTime   Tag = 401
	TagUsageExpireDateTime         Tag = 402
	TagUsageCountLimit             Tag = 405
	TagNoAuthRequired               Tag = 503
	TagUserAuthType                Tag = 504
	TagAuthTimeout                 Tag = 505
	TagAllowWhileOnBody            Tag = 506
	TagTrustedUserPresenceRequired Tag = 507
	TagTrustedConfirmationRequired Tag = 508
	TagUnlockedDeviceRequired      Tag = 509
	TagCreationDateTime            Tag = 701
	TagOrigin                      Tag = 702
	TagRootOfTrust                 Tag = 704
	TagOSVersion                   Tag = 705
	TagOSPatchLevel                Tag = 706
	TagAttestationApplicationID    Tag = 709
	TagAttestationIDBrand          Tag = 710
	TagAttestationIDDevice         Tag = 711
	TagAttestationIDProduct        Tag = 712
	TagAttestationIDSerial         Tag = 713
	TagAttestationIDImei           Tag = 714
	TagAttestationIDMeid           Tag = 715
	TagAttestationIDManufacturer   Tag = 716
	TagAttestationIDModel          Tag = 717
	TagVendorPatchLevel            Tag = 718
	TagBootPatchLevel              Tag = 719
	TagDeviceUniqueAttestation     Tag = 720
	TagAttestationIDSecondImei     Tag = 723
	TagModuleHash                  Tag = 724
)

var tagNames = map[Tag]string{
	TagPurpose:                     "PURPOSE",
	TagAlgorithm:                   "ALGORITHM",
	TagKeySize:                     "KEY_SIZE",
	TagBlockMode:                   "BLOCK_MODE",
	TagDigest:                      "DIGEST",
	TagPadding:                     "PADDING",
	TagCallerNonce:                 "CALLER_NONCE",
	TagMinMacLength:                "MIN_MAC_LENGTH",
	TagEcCurve:                     "EC_CURVE",
	TagRsaPublicExponent:           "RSA_PUBLIC_EXPONENT",
	TagMgfDigest:                   "RSA_OAEP_MGF_DIGEST",
	TagRollbackResistance:          "ROLLBACK_RESISTANCE",
	TagEarlyBootOnly:               "EARLY_BOOT_ONLY",
	TagActiveDateTime:              "ACTIVE_DATETIME",
	TagOriginationExpireDateTime:   "ORIGINATION_EXPIRE_DATETIME",
	TagUsageExpireDateTime:         "USAGE_EXPIRE_DATETIME",
	TagUsageCountLimit:             "USAGE_COUNT_LIMIT",
	TagNoAuthRequired:              "NO_AUTH_REQUIRED",
	TagUserAuthType:                "USER_AUTH_TYPE",
	TagAuthTimeout:                 "AUTH_TIMEOUT",
	TagAllowWhileOnBody:            "ALLOW_WHILE_ON_BODY",
	TagTrustedUserPresenceRequired: "TRUSTED_USER_PRESENCE_REQUIRED",
	TagTrustedConfirmationRequired: "TRUSTED_CONFIRMATION_REQUIRED",
	TagUnlockedDeviceRequired:      "UNLOCKED_DEVICE_REQUIRED",
	TagCreationDateTime:            "CREATION_DATETIME",
	TagOrigin:                      "ORIGIN",
	TagRootOfTrust:                 "ROOT_OF_TRUST",
	TagOSVersion:                   "OS_VERSION",
	TagOSPatchLevel:                "OS_PATCH_LEVEL",
	TagAttestationApplicationID:    "ATTESTATION_APPLICATION_ID",
	TagAttestationIDBrand:          "ATTESTATION_ID_BRAND",
	TagAttestationIDDevice:         "ATTESTATION_ID_DEVICE",
	TagAttestationIDProduct:        "ATTESTATION_ID_PRODUCT",
	TagAttestationIDSerial:         "ATTESTATION_ID_SERIAL",
	TagAttestationIDImei:           "ATTESTATION_ID_IMEI",
	TagAttestationIDMeid:           "ATTESTATION_ID_MEID",
	TagAttestationIDManufacturer:   "ATTESTATION_ID_MANUFACTURER",
	TagAttestationIDModel:          "ATTESTATION_ID_MODEL",
	TagVendorPatchLevel:            "VENDOR_PATCH_LEVEL",
	TagBootPatchLevel:              "BOOT_PATCH_LEVEL",
	TagDeviceUniqueAttestation:     "DEVICE_UNIQUE_ATTESTATION",
	TagAttestationIDSecondImei:     "ATTESTATION_ID_SECOND_IMEI",
	TagModuleHash:                  "MODULE_HASH",
}

// String returns the KeyMint tag's symbolic name, or a numeric placeholder
// for a tag number this package does not recognize.
func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN_TAG(%d)", int32(t))
}

// Known reports whether t is one of the tag numbers this parser
// understands. An AuthorizationList containing any other tag number is a
// fatal parse error (UNKNOWN_TAG_NUMBER).
func (t Tag) Known() bool {
	_, ok := tagNames[t]
	return ok
}

// SecurityLevel is the KeyMint security level enumeration shared by
// KeyDescription.AttestationSecurityLevel and KeyDescription.KeyMintSecurityLevel.
type SecurityLevel int64

const (
	SecurityLevelSoftware           SecurityLevel = 0
	SecurityLevelTrustedEnvironment SecurityLevel = 1
	SecurityLevelStrongBox          SecurityLevel = 2
)

var securityLevelNames = map[SecurityLevel]string{
	SecurityLevelSoftware:           "SOFTWARE",
	SecurityLevelTrustedEnvironment: "TRUSTED_ENVIRONMENT",
	SecurityLevelStrongBox:          "STRONG_BOX",
}

func (s SecurityLevel) String() string {
	if name, ok := securityLevelNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN_SECURITY_LEVEL(%d)", int64(s))
}

// ParseSecurityLevel converts a raw ASN.1 ENUMERATED value into a
// SecurityLevel, failing with a ReasonUnknownEnumValue ParseError for any
// discriminant not in {0,1,2}.
func ParseSecurityLevel(v int64) (SecurityLevel, error) {
	if _, ok := securityLevelNames[SecurityLevel(v)]; !ok {
		return 0, &ParseError{Reason: ReasonUnknownEnumValue, Message: fmt.Sprintf("security level %d is not a known enum value", v)}
	}
	return SecurityLevel(v), nil
}

// VerifiedBootState is the boot-verification outcome recorded in a
// RootOfTrust.
type VerifiedBootState int64

const (
	VerifiedBootStateVerified    VerifiedBootState = 0
	VerifiedBootStateSelfSigned  VerifiedBootState = 1
	VerifiedBootStateUnverified  VerifiedBootState = 2
	VerifiedBootStateFailed      VerifiedBootState = 3
)

var verifiedBootStateNames = map[VerifiedBootState]string{
	VerifiedBootStateVerified:   "VERIFIED",
	VerifiedBootStateSelfSigned: "SELF_SIGNED",
	VerifiedBootStateUnverified: "UNVERIFIED",
	VerifiedBootStateFailed:     "FAILED",
}

func (s VerifiedBootState) String() string {
	if name, ok := verifiedBootStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN_BOOT_STATE(%d)", int64(s))
}

// ParseVerifiedBootState converts a raw ASN.1 ENUMERATED value into a
// VerifiedBootState, failing with a ReasonUnknownEnumValue ParseError for
// any discriminant not in {0,1,2,3}.
func ParseVerifiedBootState(v int64) (VerifiedBootState, error) {
	if _, ok := verifiedBootStateNames[VerifiedBootState(v)]; !ok {
		return 0, &ParseError{Reason: ReasonUnknownEnumValue, Message: fmt.Sprintf("verified boot state %d is not a known enum value", v)}
	}
	return VerifiedBootState(v), nil
}

// KeyOrigin describes where a key's private material was created.
type KeyOrigin int64

const (
	KeyOriginGenerated        KeyOrigin = 0
	KeyOriginDerived          KeyOrigin = 1
	KeyOriginImported         KeyOrigin = 2
	KeyOriginUnknown          KeyOrigin = 3
	KeyOriginSecurelyImported KeyOrigin = 4
)

var keyOriginNames = map[KeyOrigin]string{
	KeyOriginGenerated:        "GENERATED",
	KeyOriginDerived:          "DERIVED",
	KeyOriginImported:         "IMPORTED",
	KeyOriginUnknown:          "UNKNOWN",
	KeyOriginSecurelyImported: "SECURELY_IMPORTED",
}

func (o KeyOrigin) String() string {
	if name, ok := keyOriginNames[o]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN_ORIGIN(%d)", int64(o))
}
