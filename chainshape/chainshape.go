// Copyright 2024 The keyattestation Authors.
// SPDX-License-Identifier: Apache-2.0

// Package chainshape validates the structural shape of an attestation
// certificate chain before it is handed to path validation: it rejects
// chains that are too short to be genuine, and it defeats the
// "chain-extended" attack where an attacker appends an attacker-controlled
// key's certificate after the legitimate attestation, hoping a naive "does
// any cert carry the attestation extension" check still passes. The only
// chain shape this package accepts is one where exactly one certificate —
// the leaf, at index 0 — carries the attestation extension.
package chainshape

import (
	"bytes"
	"crypto/x509"
	"encoding/asn1"
)

// Reason is a stable code identifying why a chain failed shape
// validation.
type Reason string

const (
	ReasonTooShort                                  Reason = "CHAIN_TOO_SHORT"
	ReasonTargetMissingAttestationExtension         Reason = "TARGET_MISSING_ATTESTATION_EXTENSION"
	ReasonChainExtendedWithFakeAttestationExtension Reason = "CHAIN_EXTENDED_WITH_FAKE_ATTESTATION_EXTENSION"
	ReasonChainExtendedForKey                       Reason = "CHAIN_EXTENDED_FOR_KEY"
	ReasonRootNotFound                              Reason = "ROOT_NOT_FOUND"
)

// Error reports a chain shape violation.
type Error struct {
	Reason  Reason
	Message string
}

func (e *Error) Error() string {
	return "chainshape: " + string(e.Reason) + ": " + e.Message
}

// minChainLength is the floor below which a chain is rejected outright:
// leaf, attestation cert, and root, at minimum. A shorter chain is
// accepted only when the caller opts into AllowShortChains.
const minChainLength = 3

// Options configures chain shape validation.
type Options struct {
	// AllowShortChains disables the minimum-length-3 floor. Production
	// verification should leave this false: accepting shorter chains
	// must be an explicit opt-in, never inferred from the input.
	AllowShortChains bool

	// ExtensionOID is the OID of the attestation extension to locate.
	// Defaults to the KeyDescription OID if empty.
	ExtensionOID string
}

const defaultExtensionOID = "1.3.6.1.4.1.11129.2.1.17"

// Shape is the validated decomposition of an attestation chain.
type Shape struct {
	// Leaf is chain[0]: the certificate whose public key is attested and
	// which carries the KeyDescription extension.
	Leaf *x509.Certificate
	// AttestationCert is chain[1], by position: the certificate that
	// signs Leaf. In a 3-certificate chain it is the same certificate as
	// Intermediate; in longer chains it is distinct. This is where a
	// remotely-provisioned chain's ProvisioningInfo extension lives.
	AttestationCert *x509.Certificate
	// Intermediate is the certificate immediately below the trust
	// anchor: chain[len(chain)-2].
	Intermediate *x509.Certificate
	// CertificatesWithoutAnchor is chain[0 : len(chain)-1]: every
	// certificate except the trust anchor, in the order PKIX path
	// validation expects them.
	CertificatesWithoutAnchor []*x509.Certificate
	// TrustAnchorCandidate is the final, self-issued certificate in the
	// chain. It is not forwarded to PKIX path validation; it is matched
	// against the caller's configured trust anchors instead.
	TrustAnchorCandidate *x509.Certificate
	// ProvisioningMethod is inferred from Intermediate's Subject DN.
	ProvisioningMethod ProvisioningMethod
}

// Validate checks that chain is ordered leaf-first, is long enough to be
// plausible, carries the attestation extension exactly once (on the leaf),
// and terminates in a self-issued certificate. It does not perform
// cryptographic path validation; see package pathvalidation for that.
func Validate(chain []*x509.Certificate, opts Options) (Shape, error) {
	oid := opts.ExtensionOID
	if oid == "" {
		oid = defaultExtensionOID
	}

	if !opts.AllowShortChains && len(chain) < minChainLength {
		return Shape{}, &Error{Reason: ReasonTooShort, Message: "At least 3 certificates are required"}
	}
	// Locating AttestationCert and Intermediate by position requires at
	// least a leaf and a root, regardless of AllowShortChains.
	if len(chain) < 2 {
		return Shape{}, &Error{Reason: ReasonTooShort, Message: "At least 2 certificates are required"}
	}

	lastIdx := -1
	for i, cert := range chain {
		if hasExtension(cert, oid) {
			lastIdx = i
		}
	}

	switch {
	case lastIdx == -1:
		return Shape{}, &Error{Reason: ReasonTargetMissingAttestationExtension, Message: "Attestation extension not found"}
	case lastIdx > 0 && hasExtension(chain[0], oid):
		return Shape{}, &Error{Reason: ReasonChainExtendedWithFakeAttestationExtension, Message: "attestation extension present on both the leaf and a later certificate"}
	case lastIdx > 0:
		return Shape{}, &Error{Reason: ReasonChainExtendedForKey, Message: "Certificate after target certificate"}
	}

	root := chain[len(chain)-1]
	if !selfIssued(root) {
		return Shape{}, &Error{Reason: ReasonRootNotFound, Message: "Root certificate not found"}
	}

	shape := Shape{
		Leaf:                      chain[0],
		AttestationCert:           chain[1],
		Intermediate:              chain[len(chain)-2],
		CertificatesWithoutAnchor: chain[0 : len(chain)-1],
		TrustAnchorCandidate:      root,
	}
	shape.ProvisioningMethod = inferProvisioningMethod(shape.Intermediate)
	return shape, nil
}

func hasExtension(cert *x509.Certificate, oidStr string) bool {
	for _, ext := range cert.Extensions {
		if ext.Id.String() == oidStr {
			return true
		}
	}
	return false
}

// selfIssued reports whether cert's Subject and Issuer RawSubject /
// RawIssuer distinguished names are identical, which is the structural
// signal for "this is a root" independent of any signature check (PKIX
// path validation verifies the self-signature separately).
func selfIssued(cert *x509.Certificate) bool {
	return bytes.Equal(cert.RawSubject, cert.RawIssuer)
}

// ProvisioningMethod identifies which Android attestation key
// provisioning scheme issued a chain, inferred from the structure of the
// Intermediate certificate's Subject distinguished name.
type ProvisioningMethod int

const (
	ProvisioningMethodUnknown ProvisioningMethod = iota
	ProvisioningMethodFactory
	ProvisioningMethodRemote
)

func (m ProvisioningMethod) String() string {
	switch m {
	case ProvisioningMethodFactory:
		return "FACTORY_PROVISIONED"
	case ProvisioningMethodRemote:
		return "REMOTELY_PROVISIONED"
	default:
		return "UNKNOWN"
	}
}

var (
	oidSerialNumber = asn1.ObjectIdentifier{2, 5, 4, 5}
	oidTitle        = asn1.ObjectIdentifier{2, 5, 4, 12}
)

// inferProvisioningMethod walks the Subject RDNSequence structurally
// (matching attribute OIDs, not the display-string form of the DN,
// which is brittle against escaped commas in RDN values) to classify a
// chain as factory- or remotely-provisioned.
func inferProvisioningMethod(intermediate *x509.Certificate) ProvisioningMethod {
	if intermediate == nil {
		return ProvisioningMethodUnknown
	}
	subject := intermediate.Subject

	hasSerialNumber := subject.SerialNumber != ""
	title, hasTitle := "", false
	for _, atv := range subject.Names {
		if atv.Type.Equal(oidSerialNumber) {
			hasSerialNumber = true
		}
		if atv.Type.Equal(oidTitle) {
			if s, ok := atv.Value.(string); ok {
				title, hasTitle = s, true
			}
		}
	}
	if hasSerialNumber && hasTitle && (title == "TEE" || title == "StrongBox") {
		return ProvisioningMethodFactory
	}

	if subject.CommonName == "Droid CA2" && containsOrg(subject.Organization, "Google LLC") {
		return ProvisioningMethodRemote
	}

	return ProvisioningMethodUnknown
}

func containsOrg(orgs []string, want string) bool {
	for _, o := range orgs {
		if o == want {
			return true
		}
	}
	return false
}
