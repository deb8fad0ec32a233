// Copyright 2024 The keyattestation Authors.
// SPDX-License-Identifier: Apache-2.0

package keymint

import (
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

func encodeInt64(v int64) []byte {
	var b cryptobyte.Builder
	b.AddASN1Int64(v)
	out, err := b.Bytes()
	if err != nil {
		panic(err)
	}
	return out
}

func encodeEnum(v int64) []byte {
	var b cryptobyte.Builder
	b.AddASN1Enum(v)
	out, err := b.Bytes()
	if err != nil {
		panic(err)
	}
	return out
}

func encodeBool(v bool) []byte {
	var b cryptobyte.Builder
	b.AddASN1Boolean(v)
	out, err := b.Bytes()
	if err != nil {
		panic(err)
	}
	return out
}

func encodeOctetString(v []byte) []byte {
	var b cryptobyte.Builder
	b.AddASN1OctetString(v)
	out, err := b.Bytes()
	if err != nil {
		panic(err)
	}
	return out
}

// encodeSequence concatenates already-encoded TLVs and wraps them in a
// single SEQUENCE TLV.
func encodeSequence(parts ...[]byte) []byte {
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(child *cryptobyte.Builder) {
		for _, p := range parts {
			child.AddBytes(p)
		}
	})
	out, err := b.Bytes()
	if err != nil {
		panic(err)
	}
	return out
}
