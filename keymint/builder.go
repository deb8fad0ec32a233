// Copyright 2024 The keyattestation Authors.
// SPDX-License-Identifier: Apache-2.0

package keymint

import (
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// cryptobyteBuilder is a thin facade over *cryptobyte.Builder exposing
// only the operations KeyDescription.Encode needs. cryptobyte.Builder
// itself tracks nested, not-yet-length-prefixed content via its own
// internal continuation machinery, so every method here forwards
// directly to the embedded *cryptobyte.Builder rather than copying it.
type cryptobyteBuilder struct {
	b *cryptobyte.Builder
}

func newCryptobyteBuilder() *cryptobyteBuilder {
	return &cryptobyteBuilder{b: cryptobyte.NewBuilder(nil)}
}

func (cb *cryptobyteBuilder) addInt64(v int64) {
	cb.b.AddASN1Int64(v)
}

func (cb *cryptobyteBuilder) addEnum(v int64) {
	cb.b.AddASN1Enum(v)
}

func (cb *cryptobyteBuilder) addOctetString(v []byte) {
	cb.b.AddASN1OctetString(v)
}

// addExplicitTag appends a complete EXPLICIT, constructed,
// context-specific tag (tag header + DER length + content) for the given
// KeyMint tag number. Tag numbers above 30 require DER's multi-byte
// high-tag-number form, which cryptobyte's own Tag type (a single byte)
// cannot express, so the header is built by hand here.
func (cb *cryptobyteBuilder) addExplicitTag(tagNumber int, content []byte) {
	cb.b.AddBytes(appendTagHeader(nil, tagNumber))
	cb.b.AddBytes(appendLength(nil, len(content)))
	cb.b.AddBytes(content)
}

func appendTagHeader(out []byte, tagNumber int) []byte {
	const contextSpecificConstructed = 0xa0
	if tagNumber < 0x1f {
		return append(out, byte(contextSpecificConstructed)|byte(tagNumber))
	}
	out = append(out, byte(contextSpecificConstructed)|0x1f)
	var groups []byte
	n := tagNumber
	groups = append(groups, byte(n&0x7f))
	n >>= 7
	for n > 0 {
		groups = append(groups, byte(n&0x7f)|0x80)
		n >>= 7
	}
	for i, j := 0, len(groups)-1; i < j; i, j = i+1, j-1 {
		groups[i], groups[j] = groups[j], groups[i]
	}
	return append(out, groups...)
}

func appendLength(out []byte, n int) []byte {
	if n < 0x80 {
		return append(out, byte(n))
	}
	var lb []byte
	for v := n; v > 0; v >>= 8 {
		lb = append([]byte{byte(v & 0xff)}, lb...)
	}
	out = append(out, 0x80|byte(len(lb)))
	return append(out, lb...)
}

func (cb *cryptobyteBuilder) addASN1Sequence(fn func(b *cryptobyteBuilder)) {
	cb.b.AddASN1(asn1.SEQUENCE, func(child *cryptobyte.Builder) {
		fn(&cryptobyteBuilder{b: child})
	})
}

func (cb *cryptobyteBuilder) bytesOrError() ([]byte, error) {
	return cb.b.Bytes()
}
