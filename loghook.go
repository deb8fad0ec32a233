// Copyright 2024 The keyattestation Authors.
// SPDX-License-Identifier: Apache-2.0

package keyattestation

import (
	"github.com/google/keyattestation/keymint"
	"github.com/google/keyattestation/provisioning"
)

// LogHook receives a notification at each diagnostic point during
// verification. Implementations must not block: Verify calls these
// synchronously on its own goroutine. The diaglog package provides a
// zap-backed implementation; a Verifier built by New without WithLogHook
// uses a no-op hook, so callers who never configure one see no behavioral
// difference.
type LogHook interface {
	// LogInputChain is called once per Verify, before any validation,
	// with the raw DER of every certificate in the input chain.
	LogInputChain(chain [][]byte)
	// LogCertSerialNumbers is called once the chain shape validates,
	// before path validation, with the lowercase-hex serial number (no
	// leading zeros) of every certificate in the chain except the trust
	// anchor.
	LogCertSerialNumbers(serials []string)
	// LogKeyDescription is called after the leaf's KeyDescription
	// extension decodes successfully.
	LogKeyDescription(kd keymint.KeyDescription)
	// LogProvisioningInfoMap is called when the attestation certificate
	// carries a ProvisioningInfo extension that decoded successfully.
	LogProvisioningInfoMap(info provisioning.Info)
	// LogInfoMessage is called for any recoverable oddity encountered
	// along the way (a non-fatal field parse error, an out-of-order
	// AuthorizationList, a ProvisioningInfo decode failure) that does
	// not by itself fail verification.
	LogInfoMessage(message string)
	// LogResult is called exactly once per Verify, with the final
	// VerificationResult.
	LogResult(result VerificationResult)
}

type noopLogHook struct{}

func (noopLogHook) LogInputChain([][]byte)                  {}
func (noopLogHook) LogCertSerialNumbers([]string)           {}
func (noopLogHook) LogKeyDescription(keymint.KeyDescription) {}
func (noopLogHook) LogProvisioningInfoMap(provisioning.Info) {}
func (noopLogHook) LogInfoMessage(string)                   {}
func (noopLogHook) LogResult(VerificationResult)            {}
