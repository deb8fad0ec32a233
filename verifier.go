// Copyright 2024 The keyattestation Authors.
// SPDX-License-Identifier: Apache-2.0

// Package keyattestation verifies Android Key Attestation certificate
// chains: it validates the chain's shape and PKIX path, decodes the
// KeyMint attestation extension, checks the attestation challenge
// against a caller-supplied expectation, and evaluates any configured
// field-level constraints.
package keyattestation

import (
	"context"
	"crypto/x509"
	"time"

	"github.com/google/keyattestation/chainshape"
	"github.com/google/keyattestation/challenge"
	"github.com/google/keyattestation/constraint"
	"github.com/google/keyattestation/keymint"
	"github.com/google/keyattestation/pathvalidation"
	"github.com/google/keyattestation/provisioning"
)

// Verifier validates attestation certificate chains against a trust
// anchor set and a set of configured checks. A Verifier is safe for
// concurrent use by multiple goroutines once constructed.
type Verifier struct {
	roots            pathvalidation.TrustAnchorSource
	intermediates    []*x509.Certificate
	revoked          pathvalidation.RevokedSerialSource
	chainShapeOpts   chainshape.Options
	constraintCfg    constraint.ExtensionConstraintConfig
	challengeChecker challenge.Checker
	logHook          LogHook
	clock            func() time.Time
}

// New constructs a Verifier trusting roots. Construction fails if roots
// contains the well-known Android software attestation root: accepting
// it would let a software-only attestation masquerade as
// hardware-backed. Without WithConstraints, the Verifier applies
// constraint.DefaultConfig.
func New(ctx context.Context, roots pathvalidation.TrustAnchorSource, opts ...Option) (*Verifier, error) {
	if err := pathvalidation.CheckSoftwareRoot(ctx, roots); err != nil {
		return nil, err
	}
	v := &Verifier{
		roots:         roots,
		logHook:       noopLogHook{},
		constraintCfg: constraint.DefaultConfig(),
		clock:         time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify synchronously validates chain (leaf-first) and checks its
// attestation challenge against expectedChallenge. If a ChallengeChecker
// was configured via WithChallengeChecker, expectedChallenge is ignored
// in favor of that checker; pass nil in that case.
func (v *Verifier) Verify(ctx context.Context, chain []*x509.Certificate, expectedChallenge []byte) VerificationResult {
	checker := v.challengeChecker
	if checker == nil {
		checker = challenge.NewMatcher(expectedChallenge)
	}
	return v.verify(ctx, chain, checker)
}

// VerifyAsync runs Verify on a separate goroutine and returns a Future
// that resolves with its result. Go idiom substitutes a channel-backed
// Future for an explicit async/promise type; the only suspension point
// in the underlying sequence is the ChallengeChecker call, which may
// itself block (e.g. on a remote lookup).
func (v *Verifier) VerifyAsync(ctx context.Context, chain []*x509.Certificate, expectedChallenge []byte) *Future[VerificationResult] {
	future, resolve := newFuture[VerificationResult]()
	go func() {
		resolve(v.Verify(ctx, chain, expectedChallenge))
	}()
	return future
}

// verify runs the ten-step verification sequence: log the input chain,
// validate chain shape, log serial numbers, optionally decode
// provisioning info, run path validation, decode the leaf's
// KeyDescription, invoke the challenge checker, evaluate constraints,
// and assemble Success.
func (v *Verifier) verify(ctx context.Context, chain []*x509.Certificate, checker challenge.Checker) VerificationResult {
	rawChain := make([][]byte, len(chain))
	for i, cert := range chain {
		rawChain[i] = cert.Raw
	}
	v.logHook.LogInputChain(rawChain)

	shape, err := chainshape.Validate(chain, v.chainShapeOpts)
	if err != nil {
		reason, message := describeChainShapeError(err)
		result := ChainParsingFailure{Reason: reason, Message: message}
		v.logHook.LogResult(result)
		return result
	}

	serials := make([]string, len(shape.CertificatesWithoutAnchor))
	for i, cert := range shape.CertificatesWithoutAnchor {
		serials[i] = cert.SerialNumber.Text(16)
	}
	v.logHook.LogCertSerialNumbers(serials)

	var deviceInfo *provisioning.Info
	if shape.ProvisioningMethod == chainshape.ProvisioningMethodRemote {
		if provDER, ok := extensionBytes(shape.AttestationCert, provisioning.OID); ok {
			info, err := provisioning.Decode(provDER)
			if err != nil {
				v.logHook.LogInfoMessage("provisioning info decode failed: " + err.Error())
			} else {
				v.logHook.LogProvisioningInfoMap(info)
				deviceInfo = &info
			}
		}
	}

	pathOpts := pathvalidation.Options{
		Roots:         v.roots,
		Intermediates: v.intermediates,
		Revoked:       v.revoked,
		CurrentTime:   v.clock(),
	}
	if err := pathvalidation.Validate(ctx, shape.CertificatesWithoutAnchor, pathOpts); err != nil {
		reason, message := describePathError(err)
		result := PathValidationFailure{Reason: reason, Message: message}
		v.logHook.LogResult(result)
		return result
	}

	extDER, ok := extensionBytes(shape.Leaf, keymint.OID)
	if !ok {
		result := ExtensionParsingFailure{Reason: "MISSING_EXTENSION", Message: "leaf has no KeyDescription extension"}
		v.logHook.LogResult(result)
		return result
	}
	kd, err := keymint.Decode(extDER)
	if err != nil {
		reason, message := describeParseError(err)
		result := ExtensionParsingFailure{Reason: reason, Message: message}
		v.logHook.LogResult(result)
		return result
	}
	v.logHook.LogKeyDescription(kd)
	for _, notice := range kd.SoftwareEnforced.Notices {
		v.logHook.LogInfoMessage("softwareEnforced: " + notice)
	}
	for _, notice := range kd.HardwareEnforced.Notices {
		v.logHook.LogInfoMessage("hardwareEnforced: " + notice)
	}
	if !kd.SoftwareEnforced.AreTagsOrdered {
		v.logHook.LogInfoMessage("softwareEnforced tags are not in ascending order")
	}
	if !kd.HardwareEnforced.AreTagsOrdered {
		v.logHook.LogInfoMessage("hardwareEnforced tags are not in ascending order")
	}

	matched, err := checker.Check(ctx, kd.AttestationChallenge)
	if err != nil {
		result := ChallengeMismatch{Message: err.Error()}
		v.logHook.LogResult(result)
		return result
	}
	if !matched {
		result := ChallengeMismatch{Message: "attestation challenge did not match the expected value"}
		v.logHook.LogResult(result)
		return result
	}

	if violation := constraint.Evaluate(v.constraintCfg, kd); violation != nil {
		result := ExtensionConstraintViolation{
			Description: violation.Field + ": " + violation.Detail,
			Reason:      string(violation.Reason),
		}
		v.logHook.LogResult(result)
		return result
	}

	var verifiedBootState keymint.VerifiedBootState
	if kd.HardwareEnforced.RootOfTrust != nil {
		verifiedBootState = kd.HardwareEnforced.RootOfTrust.VerifiedBootState
	}
	result := Success{
		PublicKey:         shape.Leaf.PublicKey,
		Challenge:         kd.AttestationChallenge,
		SecurityLevel:     kd.AttestationSecurityLevel,
		VerifiedBootState: verifiedBootState,
		DeviceInformation: deviceInfo,
		AttestedDeviceIds: deviceIdentityFrom(kd.HardwareEnforced),
	}
	v.logHook.LogResult(result)
	return result
}

func extensionBytes(cert *x509.Certificate, oid string) ([]byte, bool) {
	for _, ext := range cert.Extensions {
		if ext.Id.String() == oid {
			return ext.Value, true
		}
	}
	return nil, false
}

func describeChainShapeError(err error) (reason, message string) {
	if shapeErr, ok := err.(*chainshape.Error); ok {
		return string(shapeErr.Reason), shapeErr.Message
	}
	return "CHAIN_SHAPE_ERROR", err.Error()
}

func describeParseError(err error) (reason, message string) {
	if parseErr, ok := err.(*keymint.ParseError); ok {
		return string(parseErr.Reason), parseErr.Message
	}
	return "EXTENSION_PARSE_ERROR", err.Error()
}

func describePathError(err error) (reason, message string) {
	if pathErr, ok := err.(*pathvalidation.Error); ok {
		return string(pathErr.Reason), pathErr.Message
	}
	return "UNSPECIFIED", err.Error()
}
