// Copyright 2024 The keyattestation Authors.
// SPDX-License-Identifier: Apache-2.0

package keyattestation

import (
	"crypto/x509"
	"time"

	"github.com/google/keyattestation/challenge"
	"github.com/google/keyattestation/constraint"
	"github.com/google/keyattestation/pathvalidation"
)

// Option configures a Verifier at construction time.
type Option func(*Verifier)

// WithIntermediates supplies additional intermediate certificates
// available for path building beyond those present in the chain passed
// to Verify.
func WithIntermediates(certs []*x509.Certificate) Option {
	return func(v *Verifier) { v.intermediates = certs }
}

// WithRevocationSource enables a revocation pre-pass using src.
func WithRevocationSource(src pathvalidation.RevokedSerialSource) Option {
	return func(v *Verifier) { v.revoked = src }
}

// WithAllowShortChains disables the minimum chain-length-3 floor; see
// chainshape.Options.AllowShortChains.
func WithAllowShortChains() Option {
	return func(v *Verifier) { v.chainShapeOpts.AllowShortChains = true }
}

// WithChallengeChecker configures how attestation challenges are
// verified. Without this option, Verify and VerifyAsync require callers
// to pass the expected challenge directly.
func WithChallengeChecker(checker challenge.Checker) Option {
	return func(v *Verifier) { v.challengeChecker = checker }
}

// WithConstraints configures field-level constraint evaluation on the
// decoded KeyDescription.
func WithConstraints(cfg constraint.ExtensionConstraintConfig) Option {
	return func(v *Verifier) { v.constraintCfg = cfg }
}

// WithLogHook installs a LogHook to observe verification lifecycle
// events. Without this option, Verifier logs nothing.
func WithLogHook(hook LogHook) Option {
	return func(v *Verifier) { v.logHook = hook }
}

// WithClock overrides the source of the current time used for path
// validation's NotBefore/NotAfter check, in place of time.Now. Tests use
// this to verify NOT_YET_VALID and EXPIRED handling deterministically.
func WithClock(clock func() time.Time) Option {
	return func(v *Verifier) { v.clock = clock }
}
