// Copyright 2024 The keyattestation Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package keyattestation verifies Android Key Attestation certificate
chains.

A chain produced by Android's Keystore is leaf-first: the leaf
certificate carries the KeyMint attestation extension describing its
own public key, how it was generated, and under what security posture,
followed by the attestation certificate that issued it, one or two
intermediates, and finally a self-issued root that serves as the trust
anchor.

# Construction

A Verifier is built from a trust anchor source and, optionally, a
revoked-serial source, a clock, a challenge checker, and an extension
constraint configuration:

	v, err := keyattestation.New(ctx, pathvalidation.NewStaticTrustAnchorSource(roots),
		keyattestation.WithRevocationSource(revokedSource),
	)
	if err != nil {
		// the root set contains the well-known software-only root
	}

# Verifying a chain

	result := v.Verify(ctx, chain, []byte("expected-challenge"))
	switch r := result.(type) {
	case keyattestation.Success:
		// r.PublicKey, r.Challenge, r.SecurityLevel, r.VerifiedBootState, ...
	case keyattestation.ChallengeMismatch:
	case keyattestation.ChainParsingFailure:
	case keyattestation.PathValidationFailure:
	case keyattestation.ExtensionParsingFailure:
	case keyattestation.ExtensionConstraintViolation:
	}

VerifyAsync runs the same sequence on a background goroutine and
returns a Future, suspending only on the challenge checker call.
*/
package keyattestation
