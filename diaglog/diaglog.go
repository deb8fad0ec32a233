// Copyright 2024 The keyattestation Authors.
// SPDX-License-Identifier: Apache-2.0

// Package diaglog provides a structured-logging implementation of the
// keyattestation.LogHook interface backed by go.uber.org/zap, in the
// style of the Stackdriver-oriented logging wrapper used elsewhere in
// this codebase's lineage.
package diaglog

import (
	"encoding/base64"

	keyattestation "github.com/google/keyattestation"
	"github.com/google/keyattestation/keymint"
	"github.com/google/keyattestation/provisioning"
	"go.uber.org/zap"
)

// Hook logs each verification lifecycle event at a level appropriate to
// its severity: the input chain and serial numbers at Debug, decoded
// extension contents at Debug, recoverable oddities at Info, and the
// final result at Warn (failure) or Info (success).
type Hook struct {
	logger *zap.Logger
}

// New returns a Hook that logs through logger. Passing nil uses
// zap.NewNop(), which is useful in tests that don't want log output.
func New(logger *zap.Logger) *Hook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hook{logger: logger}
}

func (h *Hook) LogInputChain(chain [][]byte) {
	encoded := make([]string, len(chain))
	for i, der := range chain {
		encoded[i] = base64.StdEncoding.EncodeToString(der)
	}
	h.logger.Debug("received attestation chain", zap.Strings("certificates", encoded))
}

func (h *Hook) LogCertSerialNumbers(serials []string) {
	h.logger.Debug("attestation chain serial numbers", zap.Strings("serials", serials))
}

func (h *Hook) LogKeyDescription(kd keymint.KeyDescription) {
	h.logger.Debug("decoded KeyDescription",
		zap.Int64("attestationVersion", kd.AttestationVersion),
		zap.String("attestationSecurityLevel", kd.AttestationSecurityLevel.String()),
		zap.Int64("keymintVersion", kd.KeyMintVersion),
		zap.String("keymintSecurityLevel", kd.KeyMintSecurityLevel.String()),
	)
}

func (h *Hook) LogProvisioningInfoMap(info provisioning.Info) {
	h.logger.Debug("decoded ProvisioningInfoMap",
		zap.Uint64("certificatesIssued", info.CertificatesIssued),
	)
}

func (h *Hook) LogInfoMessage(message string) {
	h.logger.Info(message)
}

func (h *Hook) LogResult(result keyattestation.VerificationResult) {
	if result.Ok() {
		h.logger.Info("attestation verification succeeded", zap.String("kind", result.Kind().String()))
		return
	}
	h.logger.Warn("attestation verification failed", zap.String("kind", result.Kind().String()))
}
