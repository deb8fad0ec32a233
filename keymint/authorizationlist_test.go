// Copyright 2024 The keyattestation Authors.
// SPDX-License-Identifier: Apache-2.0

package keymint

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildAuthorizationListWithBooleanTag(tag Tag, value bool) *reader {
	b := newCryptobyteBuilder()
	b.addASN1Sequence(func(b *cryptobyteBuilder) {
		b.addExplicitTag(int(tag), encodeBool(value))
	})
	der, err := b.bytesOrError()
	if err != nil {
		panic(err)
	}
	return newReader(der)
}

var booleanPresenceTags = []struct {
	name string
	tag  Tag
	get  func(AuthorizationList) bool
}{
	{"CallerNonce", TagCallerNonce, func(al AuthorizationList) bool { return al.CallerNonce }},
	{"RollbackResistance", TagRollbackResistance, func(al AuthorizationList) bool { return al.RollbackResistance }},
	{"EarlyBootOnly", TagEarlyBootOnly, func(al AuthorizationList) bool { return al.EarlyBootOnly }},
	{"NoAuthRequired", TagNoAuthRequired, func(al AuthorizationList) bool { return al.NoAuthRequired }},
	{"AllowWhileOnBody", TagAllowWhileOnBody, func(al AuthorizationList) bool { return al.AllowWhileOnBody }},
	{"TrustedUserPresenceRequired", TagTrustedUserPresenceRequired, func(al AuthorizationList) bool { return al.TrustedUserPresenceRequired }},
	{"TrustedConfirmationRequired", TagTrustedConfirmationRequired, func(al AuthorizationList) bool { return al.TrustedConfirmationRequired }},
	{"UnlockedDeviceRequired", TagUnlockedDeviceRequired, func(al AuthorizationList) bool { return al.UnlockedDeviceRequired }},
	{"DeviceUniqueAttestation", TagDeviceUniqueAttestation, func(al AuthorizationList) bool { return al.DeviceUniqueAttestation }},
}

func TestBooleanPresenceTagsAcceptExplicitTrue(t *testing.T) {
	for _, tc := range booleanPresenceTags {
		t.Run(tc.name, func(t *testing.T) {
			seq, err := buildAuthorizationListWithBooleanTag(tc.tag, true).readSequence()
			require.NoError(t, err)
			al, err := parseAuthorizationList(seq)
			require.NoError(t, err)
			assert.True(t, tc.get(al))
		})
	}
}

func TestBooleanPresenceTagsRejectExplicitFalse(t *testing.T) {
	for _, tc := range booleanPresenceTags {
		t.Run(tc.name, func(t *testing.T) {
			seq, err := buildAuthorizationListWithBooleanTag(tc.tag, false).readSequence()
			require.NoError(t, err)
			_, err = parseAuthorizationList(seq)
			require.Error(t, err)
			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, ReasonMalformedASN1, pe.Reason)
			assert.True(t, pe.Fatal)
			assert.Equal(t, tc.tag, pe.Tag)
		})
	}
}

func TestParseAuthorizationListUnknownTagIsFatal(t *testing.T) {
	b := newCryptobyteBuilder()
	b.addASN1Sequence(func(b *cryptobyteBuilder) {
		b.addExplicitTag(int(Tag(12345)), []byte{0x05, 0x00})
	})
	der, err := b.bytesOrError()
	require.NoError(t, err)
	seq, err := newReader(der).readSequence()
	require.NoError(t, err)

	_, err = parseAuthorizationList(seq)
	require.Error(t, err)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ReasonUnknownTagNumber, pe.Reason)
}
