// Copyright 2024 The keyattestation Authors.
// SPDX-License-Identifier: Apache-2.0

// Package pathvalidation performs PKIX certificate path validation of an
// attestation chain against a caller-supplied trust anchor set, with a
// revocation pre-pass and a hard refusal to trust the well-known Android
// software attestation root (which signs for the software, not hardware,
// security level and must never be treated as a hardware trust anchor).
package pathvalidation

import (
	"context"
	"crypto/x509"
	"strings"
	"time"
)

// Reason is a stable code identifying why path validation failed,
// including REVOKED from the custom revocation pre-pass.
type Reason string

const (
	ReasonNoTrustAnchor    Reason = "NO_TRUST_ANCHOR"
	ReasonNameChaining     Reason = "NAME_CHAINING"
	ReasonInvalidSignature Reason = "INVALID_SIGNATURE"
	ReasonNotYetValid      Reason = "NOT_YET_VALID"
	ReasonExpired          Reason = "EXPIRED"
	ReasonRevoked          Reason = "REVOKED"
	ReasonUnspecified      Reason = "UNSPECIFIED"
)

// Error reports a path validation failure.
type Error struct {
	Reason  Reason
	Message string
}

func (e *Error) Error() string {
	return "pathvalidation: " + string(e.Reason) + ": " + e.Message
}

// softwareRootSerialHex is the serial number, in lowercase hex, of the
// publicly known Android software attestation root. A Verifier must
// refuse construction if this certificate ever appears in its trust
// anchor set: the software root attests only that a key exists in an
// unprotected software keystore, and trusting it defeats the purpose of
// hardware attestation.
const softwareRootSerialHex = "f92009e853b6b045"

// TrustAnchorSource supplies the set of certificates a chain's final
// certificate must match to be accepted as a trust anchor. Loading and
// refreshing this set is a caller concern; this package only consumes
// it. Certificates are returned individually, rather than pre-bundled
// into an x509.CertPool, so that CheckSoftwareRoot can inspect each
// anchor's serial number; x509.CertPool itself does not expose
// enumeration of the certificates it holds.
type TrustAnchorSource interface {
	TrustAnchors(ctx context.Context) ([]*x509.Certificate, error)
}

// RevokedSerialSource reports whether a certificate serial number appears
// on a revocation list. Go's crypto/x509 has no equivalent of Java's
// PKIXCertPathChecker plug-in point, so revocation is checked as an
// explicit pre-pass over the chain before Certificate.Verify runs; it
// never soft-fails.
type RevokedSerialSource interface {
	IsRevoked(ctx context.Context, serialHex string) (bool, error)
}

// Options configures path validation.
type Options struct {
	Roots         TrustAnchorSource
	Intermediates []*x509.Certificate
	Revoked       RevokedSerialSource
	CurrentTime   time.Time // zero means time.Now
}

// NewStaticTrustAnchorSource wraps a fixed certificate slice as a
// TrustAnchorSource, for callers whose root set does not change at
// runtime.
func NewStaticTrustAnchorSource(certs []*x509.Certificate) TrustAnchorSource {
	return staticAnchors{certs: certs}
}

type staticAnchors struct {
	certs []*x509.Certificate
}

func (s staticAnchors) TrustAnchors(context.Context) ([]*x509.Certificate, error) {
	return s.certs, nil
}

// CheckSoftwareRoot reports an error if src's trust anchor set contains
// the well-known Android software attestation root. Verifier
// construction calls this eagerly so a misconfiguration fails fast,
// rather than silently accepting software-level attestations as
// hardware-backed.
func CheckSoftwareRoot(ctx context.Context, src TrustAnchorSource) error {
	anchors, err := src.TrustAnchors(ctx)
	if err != nil {
		return err
	}
	for _, cert := range anchors {
		if serialHex(cert) == softwareRootSerialHex {
			return &Error{Reason: ReasonUnspecified, Message: "trust anchor set includes the Android software attestation root"}
		}
	}
	return nil
}

// Validate runs PKIX path validation of chain (leaf-first, WITHOUT the
// trust anchor — callers should pass chainshape.Shape.CertificatesWithoutAnchor)
// against the configured roots and intermediates, after first rejecting
// any certificate whose serial number appears on the revocation list.
func Validate(ctx context.Context, chain []*x509.Certificate, opts Options) error {
	if len(chain) == 0 {
		return &Error{Reason: ReasonUnspecified, Message: "empty chain"}
	}
	leaf := chain[0]

	if opts.Revoked != nil {
		for _, cert := range chain {
			hexSerial := serialHex(cert)
			revoked, err := opts.Revoked.IsRevoked(ctx, hexSerial)
			if err != nil {
				return err
			}
			if revoked {
				return &Error{Reason: ReasonRevoked, Message: "certificate with serial " + hexSerial + " is revoked"}
			}
		}
	}

	anchors, err := opts.Roots.TrustAnchors(ctx)
	if err != nil {
		return err
	}
	roots := x509.NewCertPool()
	for _, cert := range anchors {
		roots.AddCert(cert)
	}

	intermediates := x509.NewCertPool()
	for _, cert := range opts.Intermediates {
		intermediates.AddCert(cert)
	}
	for _, cert := range chain[1:] {
		intermediates.AddCert(cert)
	}

	verifyTime := opts.CurrentTime
	if verifyTime.IsZero() {
		verifyTime = time.Now()
	}

	vOpts := x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		CurrentTime:   verifyTime,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}
	if _, err := leaf.Verify(vOpts); err != nil {
		return classifyVerifyError(err)
	}
	return nil
}

// serialHex formats a certificate's serial number as lowercase hex with
// no leading zeros, matching the wire format the revocation list and
// diagnostic logs use.
func serialHex(cert *x509.Certificate) string {
	return cert.SerialNumber.Text(16)
}

func classifyVerifyError(err error) *Error {
	if cie, ok := err.(x509.CertificateInvalidError); ok {
		switch cie.Reason {
		case x509.Expired:
			if strings.Contains(cie.Detail, "is before") {
				return &Error{Reason: ReasonNotYetValid, Message: err.Error()}
			}
			return &Error{Reason: ReasonExpired, Message: err.Error()}
		case x509.NotAuthorizedToSign, x509.IncompatibleUsage:
			return &Error{Reason: ReasonInvalidSignature, Message: err.Error()}
		default:
			return &Error{Reason: ReasonUnspecified, Message: err.Error()}
		}
	}
	if _, ok := err.(x509.UnknownAuthorityError); ok {
		return &Error{Reason: ReasonNoTrustAnchor, Message: err.Error()}
	}
	if _, ok := err.(x509.HostnameError); ok {
		return &Error{Reason: ReasonNameChaining, Message: err.Error()}
	}
	if _, ok := err.(x509.ConstraintViolationError); ok {
		return &Error{Reason: ReasonNameChaining, Message: err.Error()}
	}
	return &Error{Reason: ReasonUnspecified, Message: err.Error()}
}
