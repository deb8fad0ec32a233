// Copyright 2024 The keyattestation Authors.
// SPDX-License-Identifier: Apache-2.0

package keymint

import "unicode/utf8"

// AttestationApplicationId is the decoded contents of the
// ATTESTATION_APPLICATION_ID (709) entry: the packages (each with the
// version it was installed at) and signer digests that were installed
// under the attested UID at the time the key was generated.
type AttestationApplicationId struct {
	PackageInfos  []AttestationPackageInfo
	SignatureDigests [][]byte
}

// AttestationPackageInfo names one package sharing the attested UID and
// the version it was installed at.
type AttestationPackageInfo struct {
	PackageName string
	Version     int64
}

// parseAttestationApplicationId decodes the nested
// AttestationApplicationId SEQUENCE. Unlike the outer AuthorizationList,
// this structure is not itself a KeyMint tag list: it is a positional
// ASN.1 blob (SET OF AttestationPackageInfo, SET OF OCTET STRING),
// untagged, whose encoding is defined by the Android attestation
// extension schema and is carried as a raw OCTET STRING within tag 709.
// Each AttestationPackageInfo is itself positional: packageName as an
// OCTET STRING (not UTF8String) holding UTF-8 bytes, then an INTEGER
// version.
func parseAttestationApplicationId(der []byte) (AttestationApplicationId, error) {
	r := newReader(der)
	seq, err := r.readSequence()
	if err != nil {
		return AttestationApplicationId{}, &ParseError{Reason: ReasonMalformedASN1, Tag: TagAttestationApplicationID, Message: err.Error()}
	}

	packagesSet, err := seq.readSet()
	if err != nil {
		return AttestationApplicationId{}, &ParseError{Reason: ReasonMalformedASN1, Tag: TagAttestationApplicationID, Message: "package infos: " + err.Error()}
	}

	var out AttestationApplicationId
	for !packagesSet.empty() {
		pkgSeq, err := packagesSet.readSequence()
		if err != nil {
			return AttestationApplicationId{}, &ParseError{Reason: ReasonMalformedASN1, Tag: TagAttestationApplicationID, Message: "package info: " + err.Error()}
		}
		nameBytes, err := pkgSeq.readOctetString()
		if err != nil {
			return AttestationApplicationId{}, &ParseError{Reason: ReasonMalformedASN1, Tag: TagAttestationApplicationID, Message: "package name: " + err.Error()}
		}
		if !utf8.Valid(nameBytes) {
			return AttestationApplicationId{}, &ParseError{Reason: ReasonInvalidUTF8, Tag: TagAttestationApplicationID, Message: "package name is not valid UTF-8"}
		}
		version, err := pkgSeq.readInt64()
		if err != nil {
			return AttestationApplicationId{}, &ParseError{Reason: ReasonMalformedASN1, Tag: TagAttestationApplicationID, Message: "package version: " + err.Error()}
		}
		out.PackageInfos = append(out.PackageInfos, AttestationPackageInfo{PackageName: string(nameBytes), Version: version})
	}

	digestSet, err := seq.readSet()
	if err != nil {
		return AttestationApplicationId{}, &ParseError{Reason: ReasonMalformedASN1, Tag: TagAttestationApplicationID, Message: "signature digests: " + err.Error()}
	}
	for !digestSet.empty() {
		digest, err := digestSet.readOctetString()
		if err != nil {
			return AttestationApplicationId{}, &ParseError{Reason: ReasonMalformedASN1, Tag: TagAttestationApplicationID, Message: "signature digest: " + err.Error()}
		}
		out.SignatureDigests = append(out.SignatureDigests, digest)
	}

	if !seq.empty() {
		return AttestationApplicationId{}, &ParseError{Reason: ReasonTrailingData, Tag: TagAttestationApplicationID, Message: "unexpected trailing fields in AttestationApplicationId"}
	}
	return out, nil
}
