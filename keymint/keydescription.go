// Copyright 2024 The keyattestation Authors.
// SPDX-License-Identifier: Apache-2.0

package keymint

// OID is the dotted-decimal OID of the Android KeyDescription attestation
// extension, as it appears in the certificate's Extensions list.
const OID = "1.3.6.1.4.1.11129.2.1.17"

// KeyDescription is the fully decoded contents of the attestation
// extension: the attestation scheme version, the security levels of the
// attestation and KeyMint implementations, the key's challenge and
// unique ID, and its two AuthorizationLists.
type KeyDescription struct {
	AttestationVersion      int64
	AttestationSecurityLevel SecurityLevel
	KeyMintVersion          int64
	KeyMintSecurityLevel    SecurityLevel
	AttestationChallenge    []byte
	UniqueID                []byte
	SoftwareEnforced        AuthorizationList
	HardwareEnforced        AuthorizationList
}

// Decode parses the DER-encoded content of the KeyDescription extension
// (the extnValue OCTET STRING's inner bytes, already unwrapped from the
// outer OCTET STRING the X.509 extension itself carries).
func Decode(der []byte) (KeyDescription, error) {
	r := newReader(der)
	seq, err := r.readSequence()
	if err != nil {
		return KeyDescription{}, err
	}

	var kd KeyDescription
	if kd.AttestationVersion, err = seq.readInt64(); err != nil {
		return KeyDescription{}, &ParseError{Reason: ReasonMalformedASN1, Message: "attestationVersion: " + err.Error()}
	}
	rawASL, err := seq.readEnumerated()
	if err != nil {
		return KeyDescription{}, &ParseError{Reason: ReasonMalformedASN1, Message: "attestationSecurityLevel: " + err.Error()}
	}
	if kd.AttestationSecurityLevel, err = ParseSecurityLevel(rawASL); err != nil {
		return KeyDescription{}, err
	}
	if kd.KeyMintVersion, err = seq.readInt64(); err != nil {
		return KeyDescription{}, &ParseError{Reason: ReasonMalformedASN1, Message: "keymintVersion: " + err.Error()}
	}
	rawKSL, err := seq.readEnumerated()
	if err != nil {
		return KeyDescription{}, &ParseError{Reason: ReasonMalformedASN1, Message: "keymintSecurityLevel: " + err.Error()}
	}
	if kd.KeyMintSecurityLevel, err = ParseSecurityLevel(rawKSL); err != nil {
		return KeyDescription{}, err
	}
	if kd.AttestationChallenge, err = seq.readOctetString(); err != nil {
		return KeyDescription{}, &ParseError{Reason: ReasonMalformedASN1, Message: "attestationChallenge: " + err.Error()}
	}
	if kd.UniqueID, err = seq.readOctetString(); err != nil {
		return KeyDescription{}, &ParseError{Reason: ReasonMalformedASN1, Message: "uniqueId: " + err.Error()}
	}

	swSeq, err := seq.readSequence()
	if err != nil {
		return KeyDescription{}, &ParseError{Reason: ReasonMalformedASN1, Message: "softwareEnforced: " + err.Error()}
	}
	if kd.SoftwareEnforced, err = parseAuthorizationList(swSeq); err != nil {
		return KeyDescription{}, err
	}

	hwSeq, err := seq.readSequence()
	if err != nil {
		return KeyDescription{}, &ParseError{Reason: ReasonMalformedASN1, Message: "hardwareEnforced: " + err.Error()}
	}
	if kd.HardwareEnforced, err = parseAuthorizationList(hwSeq); err != nil {
		return KeyDescription{}, err
	}

	if !seq.empty() {
		return KeyDescription{}, &ParseError{Reason: ReasonTrailingData, Message: "unexpected trailing bytes after hardwareEnforced"}
	}
	return kd, nil
}

// Encode re-serializes kd to DER. AuthorizationList fields round-trip via
// their preserved Raw bytes rather than being re-derived from the typed
// fields, and are always emitted in ascending tag order, so
// Encode(Decode(x)) == x whenever x's AuthorizationList tags were already
// in strictly ascending order. An out-of-order input comes back sorted, and
// of a repeated tag only the last occurrence is kept.
func (kd KeyDescription) Encode() ([]byte, error) {
	b := newCryptobyteBuilder()
	b.addASN1Sequence(func(b *cryptobyteBuilder) {
		b.addInt64(kd.AttestationVersion)
		b.addEnum(int64(kd.AttestationSecurityLevel))
		b.addInt64(kd.KeyMintVersion)
		b.addEnum(int64(kd.KeyMintSecurityLevel))
		b.addOctetString(kd.AttestationChallenge)
		b.addOctetString(kd.UniqueID)
		b.addASN1Sequence(func(b *cryptobyteBuilder) {
			encodeAuthorizationList(b, kd.SoftwareEnforced)
		})
		b.addASN1Sequence(func(b *cryptobyteBuilder) {
			encodeAuthorizationList(b, kd.HardwareEnforced)
		})
	})
	return b.bytesOrError()
}

func encodeAuthorizationList(b *cryptobyteBuilder, al AuthorizationList) {
	tags := make([]Tag, 0, len(al.Raw))
	for t := range al.Raw {
		tags = append(tags, t)
	}
	sortTags(tags)
	for _, t := range tags {
		b.addExplicitTag(int(t), al.Raw[t])
	}
}

func sortTags(tags []Tag) {
	for i := 1; i < len(tags); i++ {
		for j := i; j > 0 && tags[j-1] > tags[j]; j-- {
			tags[j-1], tags[j] = tags[j], tags[j-1]
		}
	}
}
