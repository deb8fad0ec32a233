// Copyright 2024 The keyattestation Authors.
// SPDX-License-Identifier: Apache-2.0

package keymint

import (
	"golang.org/x/crypto/cryptobyte"
	casn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// reader wraps a cryptobyte.String with the error-accumulation discipline
// used throughout this package: individual Read* helpers report failure
// via the returned bool, and callers fold that into a *ParseError with
// context the bare cryptobyte error lacks.
//
// KeyMint AuthorizationList tag numbers run well past 30 (RSA_PUBLIC_EXPONENT
// is 200, ATTESTATION_APPLICATION_ID is 709, and so on), which requires
// DER's multi-byte high-tag-number form. cryptobyte's own asn1.Tag is a
// single byte and cannot represent that form, so the explicit-tag layer
// is handled here directly; once a tag's content is isolated, the
// ordinary universal-type helpers (SEQUENCE, INTEGER, OCTET STRING, ...)
// delegate back to cryptobyte, whose low-tag-number encodings those are.
type reader struct {
	s cryptobyte.String
}

func newReader(der []byte) *reader {
	return &reader{s: cryptobyte.String(der)}
}

// readTagHeader decodes the class/constructed/number byte(s) at the
// front of s, returning the tag number, whether the constructed bit was
// set, and the offset where the length octet(s) begin.
func readTagHeader(s []byte) (tagNumber int, constructed bool, headerLen int, ok bool) {
	if len(s) == 0 {
		return 0, false, 0, false
	}
	b0 := s[0]
	constructed = b0&0x20 != 0
	low := int(b0 & 0x1f)
	if low != 0x1f {
		return low, constructed, 1, true
	}
	num := 0
	i := 1
	for i < len(s) {
		c := s[i]
		num = num<<7 | int(c&0x7f)
		i++
		if c&0x80 == 0 {
			return num, constructed, i, true
		}
	}
	return 0, false, 0, false
}

// readLength decodes a DER length field (short or long form, definite
// only) starting at s[offset], returning the decoded length and the
// offset where content begins.
func readLength(s []byte, offset int) (length int, contentStart int, ok bool) {
	if offset >= len(s) {
		return 0, 0, false
	}
	b0 := s[offset]
	if b0&0x80 == 0 {
		return int(b0), offset + 1, true
	}
	numBytes := int(b0 & 0x7f)
	if numBytes == 0 || offset+1+numBytes > len(s) {
		return 0, 0, false
	}
	length = 0
	for i := 0; i < numBytes; i++ {
		length = length<<8 | int(s[offset+1+i])
	}
	return length, offset + 1 + numBytes, true
}

// peekTagNumber reports the context tag number of the next element
// without consuming it, and whether any element remains.
func (r *reader) peekTagNumber() (int, bool) {
	num, _, _, ok := readTagHeader(r.s)
	return num, ok
}

// readExplicit reads a field explicitly tagged with the given context
// tag number, returning a reader scoped to the tagged field's content
// and true if the tag was present and well-formed. It is the caller's
// responsibility to have already confirmed via peekTagNumber that the
// next element's tag number equals tagNumber; a mismatch here is treated
// as malformed input rather than "absent", since the caller already
// committed to consuming this element.
func (r *reader) readExplicit(tagNumber int) (*reader, bool) {
	num, _, headerLen, ok := readTagHeader(r.s)
	if !ok || num != tagNumber {
		return nil, false
	}
	length, contentStart, ok := readLength(r.s, headerLen)
	if !ok || contentStart+length > len(r.s) {
		return nil, false
	}
	content := r.s[contentStart : contentStart+length]
	r.s = r.s[contentStart+length:]
	return &reader{s: content}, true
}

func (r *reader) empty() bool {
	return len(r.s) == 0
}

func (r *reader) readInt64() (int64, error) {
	var v int64
	if !r.s.ReadASN1Integer(&v) {
		return 0, &ParseError{Reason: ReasonMalformedASN1, Message: "expected INTEGER"}
	}
	return v, nil
}

func (r *reader) readBigIntBytes() ([]byte, error) {
	var inner cryptobyte.String
	if !r.s.ReadASN1(&inner, casn1.INTEGER) {
		return nil, &ParseError{Reason: ReasonMalformedASN1, Message: "expected INTEGER"}
	}
	return []byte(inner), nil
}

func (r *reader) readOctetString() ([]byte, error) {
	var inner cryptobyte.String
	if !r.s.ReadASN1(&inner, casn1.OCTET_STRING) {
		return nil, &ParseError{Reason: ReasonMalformedASN1, Message: "expected OCTET STRING"}
	}
	return []byte(inner), nil
}

func (r *reader) readBool() (bool, error) {
	var b bool
	if !r.s.ReadASN1Boolean(&b) {
		return false, &ParseError{Reason: ReasonMalformedASN1, Message: "expected BOOLEAN"}
	}
	return b, nil
}

func (r *reader) readEnumerated() (int64, error) {
	var v int64
	if !r.s.ReadASN1Enum(&v) {
		return 0, &ParseError{Reason: ReasonMalformedASN1, Message: "expected ENUMERATED"}
	}
	return v, nil
}

// readSequence reads the outer tag of an ASN.1 SEQUENCE and returns a
// reader scoped to its contents.
func (r *reader) readSequence() (*reader, error) {
	var inner cryptobyte.String
	if !r.s.ReadASN1(&inner, casn1.SEQUENCE) {
		return nil, &ParseError{Reason: ReasonMalformedASN1, Message: "expected SEQUENCE"}
	}
	return &reader{s: inner}, nil
}

// readSet reads the outer tag of an ASN.1 SET and returns a reader
// scoped to its contents, for SET OF fields whose elements aren't plain
// integers (e.g. AttestationApplicationId's SET OF AttestationPackageInfo).
func (r *reader) readSet() (*reader, error) {
	var inner cryptobyte.String
	if !r.s.ReadASN1(&inner, casn1.SET) {
		return nil, &ParseError{Reason: ReasonMalformedASN1, Message: "expected SET"}
	}
	return &reader{s: inner}, nil
}

// readSetOfInt64 reads a SET OF INTEGER into a slice, preserving encoded
// order (KeyMint repeated-integer fields such as PURPOSE and DIGEST are
// not required to be sorted by the HAL, only by this parser's tag-order
// invariant at the outer level).
func (r *reader) readSetOfInt64() ([]int64, error) {
	var set cryptobyte.String
	if !r.s.ReadASN1(&set, casn1.SET) {
		return nil, &ParseError{Reason: ReasonMalformedASN1, Message: "expected SET"}
	}
	var out []int64
	for !set.Empty() {
		var v int64
		if !set.ReadASN1Integer(&v) {
			return nil, &ParseError{Reason: ReasonMalformedASN1, Message: "expected INTEGER inside SET"}
		}
		out = append(out, v)
	}
	return out, nil
}
