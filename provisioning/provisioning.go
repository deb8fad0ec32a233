// Copyright 2024 The keyattestation Authors.
// SPDX-License-Identifier: Apache-2.0

// Package provisioning decodes the CBOR-encoded ProvisioningInfo
// attestation extension (OID 1.3.6.1.4.1.11129.2.1.30), which records
// how many attestation certificates have been issued under a device's
// attestation key.
package provisioning

import (
	"github.com/fxamacker/cbor/v2"
)

// OID is the dotted-decimal OID of the ProvisioningInfo extension.
const OID = "1.3.6.1.4.1.11129.2.1.30"

// Info is the decoded ProvisioningInfoMap. Only the certificatesIssued
// key (CBOR map key 1) is defined today; unknown keys are preserved in
// Extra so a caller auditing provisioning data doesn't silently lose
// fields this package hasn't been taught about yet.
type Info struct {
	CertificatesIssued uint64
	Extra              map[int64]cbor.RawMessage
}

type wireInfo struct {
	CertificatesIssued uint64 `cbor:"1,keyasint"`
}

// Decode parses the CBOR content of the ProvisioningInfo extension
// (the extnValue OCTET STRING's inner bytes).
func Decode(data []byte) (Info, error) {
	var raw map[int64]cbor.RawMessage
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return Info{}, &DecodeError{Message: err.Error()}
	}
	if _, ok := raw[1]; !ok {
		return Info{}, &DecodeError{Message: "certificatesIssued (key 1) is required but absent"}
	}

	var w wireInfo
	if err := cbor.Unmarshal(data, &w); err != nil {
		return Info{}, &DecodeError{Message: err.Error()}
	}

	info := Info{CertificatesIssued: w.CertificatesIssued}
	if len(raw) > 1 {
		info.Extra = make(map[int64]cbor.RawMessage, len(raw)-1)
		for k, v := range raw {
			if k == 1 {
				continue
			}
			info.Extra[k] = v
		}
	}
	return info, nil
}

// Encode re-serializes info back to CBOR. Extra keys are round-tripped
// alongside certificatesIssued so that Decode(Encode(x)) preserves
// fields this package does not itself interpret.
func (info Info) Encode() ([]byte, error) {
	m := make(map[int64]cbor.RawMessage, len(info.Extra)+1)
	for k, v := range info.Extra {
		m[k] = v
	}
	issued, err := cbor.Marshal(info.CertificatesIssued)
	if err != nil {
		return nil, &DecodeError{Message: err.Error()}
	}
	m[1] = issued
	return cbor.Marshal(m)
}

// DecodeError reports a failure to parse a ProvisioningInfo extension.
type DecodeError struct {
	Message string
}

func (e *DecodeError) Error() string {
	return "provisioning: " + e.Message
}
