// Copyright 2024 The keyattestation Authors.
// SPDX-License-Identifier: Apache-2.0

package constraint

import (
	"testing"

	"github.com/google/keyattestation/keymint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateLevelStrictMismatch(t *testing.T) {
	ok, reason := EvaluateLevel(Strict(int64(5)), true, int64(6))
	assert.False(t, ok)
	assert.NotEmpty(t, reason)
}

func TestEvaluateLevelStrictMissing(t *testing.T) {
	ok, _ := EvaluateLevel(Strict(int64(5)), false, int64(0))
	assert.False(t, ok)
}

func TestEvaluateLevelNotNullPresent(t *testing.T) {
	ok, _ := EvaluateLevel(NotNull[int64](), true, int64(1))
	assert.True(t, ok)
}

func TestEvaluateLevelIgnoreAlwaysPasses(t *testing.T) {
	ok, _ := EvaluateLevel(Ignore[int64](), false, int64(0))
	assert.True(t, ok)
}

func TestEvaluateSecurityLevelNotSoftware(t *testing.T) {
	v := SecurityLevelValidation{Kind: SecurityLevelNotSoftware}
	ok, _ := EvaluateSecurityLevel(v, keymint.SecurityLevelSoftware, keymint.SecurityLevelSoftware)
	assert.False(t, ok)

	ok, _ = EvaluateSecurityLevel(v, keymint.SecurityLevelStrongBox, keymint.SecurityLevelStrongBox)
	assert.True(t, ok)
}

func TestEvaluateSecurityLevelConsistent(t *testing.T) {
	v := SecurityLevelValidation{Kind: SecurityLevelConsistent}
	ok, _ := EvaluateSecurityLevel(v, keymint.SecurityLevelStrongBox, keymint.SecurityLevelTrustedEnvironment)
	assert.False(t, ok)
}

func TestDefaultConfigRejectsMismatchedSecurityLevels(t *testing.T) {
	kd := keymint.KeyDescription{
		AttestationSecurityLevel: keymint.SecurityLevelStrongBox,
		KeyMintSecurityLevel:     keymint.SecurityLevelTrustedEnvironment,
		HardwareEnforced: keymint.AuthorizationList{
			Origin:      originPtr(keymint.KeyOriginGenerated),
			RootOfTrust: &keymint.RootOfTrust{},
		},
	}
	violation := Evaluate(DefaultConfig(), kd)
	require.NotNil(t, violation)
	assert.Equal(t, ReasonSecurityLevel, violation.Reason)
}

func TestDefaultConfigAcceptsConsistentHardwareBackedKey(t *testing.T) {
	kd := keymint.KeyDescription{
		AttestationSecurityLevel: keymint.SecurityLevelTrustedEnvironment,
		KeyMintSecurityLevel:     keymint.SecurityLevelTrustedEnvironment,
		HardwareEnforced: keymint.AuthorizationList{
			Origin:      originPtr(keymint.KeyOriginGenerated),
			RootOfTrust: &keymint.RootOfTrust{},
		},
	}
	assert.Nil(t, Evaluate(DefaultConfig(), kd))
}

func TestEvaluateShortCircuitsOnFirstViolation(t *testing.T) {
	cfg := DefaultConfig()
	kd := keymint.KeyDescription{
		// origin is absent (violates KeyOrigin first) AND security levels
		// mismatch (would also violate SecurityLevel); only the first
		// configured constraint's violation should be reported.
		AttestationSecurityLevel: keymint.SecurityLevelSoftware,
		KeyMintSecurityLevel:     keymint.SecurityLevelStrongBox,
	}
	violation := Evaluate(cfg, kd)
	require.NotNil(t, violation)
	assert.Equal(t, ReasonKeyOrigin, violation.Reason)
}

func TestEvaluateRootOfTrustViolation(t *testing.T) {
	cfg := DefaultConfig()
	kd := keymint.KeyDescription{
		AttestationSecurityLevel: keymint.SecurityLevelTrustedEnvironment,
		KeyMintSecurityLevel:     keymint.SecurityLevelTrustedEnvironment,
		HardwareEnforced: keymint.AuthorizationList{
			Origin: originPtr(keymint.KeyOriginGenerated),
		},
	}
	violation := Evaluate(cfg, kd)
	require.NotNil(t, violation)
	assert.Equal(t, ReasonRootOfTrust, violation.Reason)
}

func TestEvaluateAuthorizationListTagOrderOnlyWhenStrict(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AuthorizationListTagOrder = Strict(true)
	kd := keymint.KeyDescription{
		AttestationSecurityLevel: keymint.SecurityLevelTrustedEnvironment,
		KeyMintSecurityLevel:     keymint.SecurityLevelTrustedEnvironment,
		HardwareEnforced: keymint.AuthorizationList{
			Origin:         originPtr(keymint.KeyOriginGenerated),
			RootOfTrust:    &keymint.RootOfTrust{},
			AreTagsOrdered: false,
		},
		SoftwareEnforced: keymint.AuthorizationList{AreTagsOrdered: true},
	}
	violation := Evaluate(cfg, kd)
	require.NotNil(t, violation)
	assert.Equal(t, ReasonAuthListTagOrder, violation.Reason)

	assert.Nil(t, Evaluate(DefaultConfig(), kd), "tag order is not checked under the default IGNORE level")
}

func originPtr(o keymint.KeyOrigin) *keymint.KeyOrigin { return &o }
