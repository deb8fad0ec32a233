// Copyright 2024 The keyattestation Authors.
// SPDX-License-Identifier: Apache-2.0

package keyattestation

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/google/keyattestation/constraint"
	"github.com/google/keyattestation/keymint"
	"github.com/google/keyattestation/pathvalidation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/cryptobyte"
	asn1cb "golang.org/x/crypto/cryptobyte/asn1"
)

// --- minimal local DER builders for the KeyDescription extension ---
//
// These mirror keymint's own unexported encode-helpers (encodeInt64,
// addExplicitTag, ...) at the package boundary: this package only has
// access to keymint's public Decode/Encode API, and Encode re-derives
// its output from AuthorizationList.Raw rather than from typed fields,
// so building a fixture here means composing DER directly with
// cryptobyte, the same low-level tool keymint itself is built on.

func asn1Int(v int64) []byte {
	var b cryptobyte.Builder
	b.AddASN1Int64(v)
	out, err := b.Bytes()
	if err != nil {
		panic(err)
	}
	return out
}

func asn1Enum(v int64) []byte {
	var b cryptobyte.Builder
	b.AddASN1Enum(v)
	out, err := b.Bytes()
	if err != nil {
		panic(err)
	}
	return out
}

func asn1Bool(v bool) []byte {
	var b cryptobyte.Builder
	b.AddASN1Boolean(v)
	out, err := b.Bytes()
	if err != nil {
		panic(err)
	}
	return out
}

func asn1Octet(v []byte) []byte {
	var b cryptobyte.Builder
	b.AddASN1OctetString(v)
	out, err := b.Bytes()
	if err != nil {
		panic(err)
	}
	return out
}

func asn1Seq(parts ...[]byte) []byte {
	var b cryptobyte.Builder
	b.AddASN1(asn1cb.SEQUENCE, func(child *cryptobyte.Builder) {
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

// explicitTag wraps content in a constructed, context-specific, explicit
// tag header for tagNumber, encoding DER's multi-byte high-tag-number
// form when tagNumber exceeds the single-byte range.
func explicitTag(tagNumber int, content []byte) []byte {
	header := []byte{}
	const contextSpecificConstructed = 0xa0
	if tagNumber < 0x1f {
		header = append(header, byte(contextSpecificConstructed)|byte(tagNumber))
	} else {
		header = append(header, byte(contextSpecificConstructed)|0x1f)
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
		header = append(header, groups...)
	}
	if len(content) < 0x80 {
		header = append(header, byte(len(content)))
	} else {
		var lb []byte
		for v := len(content); v > 0; v >>= 8 {
			lb = append([]byte{byte(v & 0xff)}, lb...)
		}
		header = append(header, 0x80|byte(len(lb)))
		header = append(header, lb...)
	}
	return append(header, content...)
}

func buildAuthList(parts ...[]byte) []byte {
	return asn1Seq(parts...)
}

type kdOpts struct {
	attestationSecurityLevel int64
	keymintSecurityLevel     int64
	challenge                []byte
	brand, device, product   string
	manufacturer, model      string
	osVersion                int64
	osPatchLevel             int64
	verifiedBootState        int64
}

func buildKeyDescriptionDER(o kdOpts) []byte {
	hw := buildAuthList(
		explicitTag(int(keymint.TagOrigin), asn1Int(0)), // KM_ORIGIN_GENERATED
		explicitTag(int(keymint.TagRootOfTrust), asn1Seq(
			asn1Octet([]byte("bootkey")),
			asn1Bool(true),
			asn1Enum(o.verifiedBootState),
			asn1Octet([]byte("boothash")),
		)),
		explicitTag(int(keymint.TagOSVersion), asn1Int(o.osVersion)),
		explicitTag(int(keymint.TagOSPatchLevel), asn1Int(o.osPatchLevel)),
		explicitTag(int(keymint.TagAttestationIDBrand), asn1Octet([]byte(o.brand))),
		explicitTag(int(keymint.TagAttestationIDDevice), asn1Octet([]byte(o.device))),
		explicitTag(int(keymint.TagAttestationIDProduct), asn1Octet([]byte(o.product))),
		explicitTag(int(keymint.TagAttestationIDManufacturer), asn1Octet([]byte(o.manufacturer))),
		explicitTag(int(keymint.TagAttestationIDModel), asn1Octet([]byte(o.model))),
	)
	sw := buildAuthList()

	return asn1Seq(
		asn1Int(200),
		asn1Enum(o.attestationSecurityLevel),
		asn1Int(200),
		asn1Enum(o.keymintSecurityLevel),
		asn1Octet(o.challenge),
		asn1Octet([]byte("unique-id")),
		sw,
		hw,
	)
}

// --- certificate chain fixtures ---

type issuedCert struct {
	cert *x509.Certificate
	key  *ecdsa.PrivateKey
}

func issueCert(t *testing.T, subject pkix.Name, parent *issuedCert, serial int64, extensions []pkix.Extension) issuedCert {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(serial),
		Subject:               subject,
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		ExtraExtensions:       extensions,
	}
	parentTmpl, signingKey := tmpl, key
	if parent != nil {
		parentTmpl, signingKey = parent.cert, parent.key
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, parentTmpl, &key.PublicKey, signingKey)
	require.NoError(t, err)
	parsed, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return issuedCert{cert: parsed, key: key}
}

var keyDescriptionOID = []int{1, 3, 6, 1, 4, 1, 11129, 2, 1, 17}

func factoryChain(t *testing.T, challenge []byte, securityLevel int64) []*x509.Certificate {
	t.Helper()
	root := issueCert(t, pkix.Name{CommonName: "root"}, nil, 1, nil)
	intermediate := issueCert(t, pkix.Name{
		CommonName: "TEE Attestation CA",
		ExtraNames: []pkix.AttributeTypeAndValue{
			{Type: []int{2, 5, 4, 5}, Value: "1234"},
			{Type: []int{2, 5, 4, 12}, Value: "TEE"},
		},
	}, &root, 2, nil)

	kdDER := buildKeyDescriptionDER(kdOpts{
		attestationSecurityLevel: securityLevel,
		keymintSecurityLevel:     securityLevel,
		challenge:                challenge,
		brand:                    "google",
		device:                   "blueline",
		product:                  "blueline",
		manufacturer:             "Google",
		model:                    "Pixel 3",
		osVersion:                110000,
		osPatchLevel:             202307,
		verifiedBootState:        2, // UNVERIFIED
	})
	ext := pkix.Extension{Id: keyDescriptionOID, Value: kdDER}
	leaf := issueCert(t, pkix.Name{CommonName: "leaf"}, &intermediate, 3, []pkix.Extension{ext})

	return []*x509.Certificate{leaf.cert, intermediate.cert, root.cert}
}

func newTestVerifier(t *testing.T, trustedRoots []*x509.Certificate, opts ...Option) *Verifier {
	t.Helper()
	v, err := New(context.Background(), pathvalidation.NewStaticTrustAnchorSource(trustedRoots), opts...)
	require.NoError(t, err)
	return v
}

func TestVerifyAcceptsFactoryProvisionedChain(t *testing.T) {
	chain := factoryChain(t, []byte("challenge"), int64(keymint.SecurityLevelTrustedEnvironment))
	roots := []*x509.Certificate{chain[2]}
	v := newTestVerifier(t, roots)

	result := v.Verify(context.Background(), chain, []byte("challenge"))
	success, ok := result.(Success)
	require.True(t, ok, "expected Success, got %#v", result)
	assert.Equal(t, keymint.SecurityLevelTrustedEnvironment, success.SecurityLevel)
	assert.Equal(t, keymint.VerifiedBootStateUnverified, success.VerifiedBootState)
	assert.Equal(t, "google", success.AttestedDeviceIds.Brand)
	assert.Equal(t, "blueline", success.AttestedDeviceIds.Device)
	assert.Equal(t, "Pixel 3", success.AttestedDeviceIds.Model)
	assert.Equal(t, []byte("challenge"), success.Challenge)
}

func TestVerifyRejectsUntrustedRoot(t *testing.T) {
	chain := factoryChain(t, []byte("challenge"), int64(keymint.SecurityLevelTrustedEnvironment))
	other := issueCert(t, pkix.Name{CommonName: "someone-else-root"}, nil, 9, nil)
	v := newTestVerifier(t, []*x509.Certificate{other.cert})

	result := v.Verify(context.Background(), chain, []byte("challenge"))
	failure, ok := result.(PathValidationFailure)
	require.True(t, ok, "expected PathValidationFailure, got %#v", result)
	assert.Equal(t, string(pathvalidation.ReasonNoTrustAnchor), failure.Reason)
}

func TestVerifyRejectsRevokedCertificate(t *testing.T) {
	chain := factoryChain(t, []byte("challenge"), int64(keymint.SecurityLevelTrustedEnvironment))
	roots := []*x509.Certificate{chain[2]}
	leafSerialHex := chain[0].SerialNumber.Text(16)
	v := newTestVerifier(t, roots, WithRevocationSource(fakeRevocation{revoked: map[string]bool{leafSerialHex: true}}))

	result := v.Verify(context.Background(), chain, []byte("challenge"))
	failure, ok := result.(PathValidationFailure)
	require.True(t, ok, "expected PathValidationFailure, got %#v", result)
	assert.Equal(t, string(pathvalidation.ReasonRevoked), failure.Reason)
}

func TestVerifyReportsChallengeMismatch(t *testing.T) {
	chain := factoryChain(t, []byte("challenge"), int64(keymint.SecurityLevelTrustedEnvironment))
	roots := []*x509.Certificate{chain[2]}
	v := newTestVerifier(t, roots)

	result := v.Verify(context.Background(), chain, []byte("foo"))
	_, ok := result.(ChallengeMismatch)
	assert.True(t, ok, "expected ChallengeMismatch, got %#v", result)
}

func TestVerifyDefaultConfigRejectsStrongBoxSecurityLevel(t *testing.T) {
	chain := factoryChain(t, []byte("challenge"), int64(keymint.SecurityLevelStrongBox))
	roots := []*x509.Certificate{chain[2]}
	v := newTestVerifier(t, roots)

	result := v.Verify(context.Background(), chain, []byte("challenge"))
	violation, ok := result.(ExtensionConstraintViolation)
	require.True(t, ok, "expected ExtensionConstraintViolation, got %#v", result)
	assert.Equal(t, string(constraint.ReasonSecurityLevel), violation.Reason)
}

func TestVerifyAsyncResolvesThroughChallengeChecker(t *testing.T) {
	chain := factoryChain(t, []byte("challenge"), int64(keymint.SecurityLevelTrustedEnvironment))
	roots := []*x509.Certificate{chain[2]}
	v := newTestVerifier(t, roots)

	future := v.VerifyAsync(context.Background(), chain, []byte("challenge"))
	result, err := future.Await(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Ok())
}

func TestVerifyWithClockRejectsExpiredChain(t *testing.T) {
	chain := factoryChain(t, []byte("challenge"), int64(keymint.SecurityLevelTrustedEnvironment))
	roots := []*x509.Certificate{chain[2]}
	v := newTestVerifier(t, roots, WithClock(func() time.Time { return time.Now().Add(48 * time.Hour) }))

	result := v.Verify(context.Background(), chain, []byte("challenge"))
	failure, ok := result.(PathValidationFailure)
	require.True(t, ok, "expected PathValidationFailure, got %#v", result)
	assert.Equal(t, string(pathvalidation.ReasonExpired), failure.Reason)
}

func TestVerifyWithClockRejectsNotYetValidChain(t *testing.T) {
	chain := factoryChain(t, []byte("challenge"), int64(keymint.SecurityLevelTrustedEnvironment))
	roots := []*x509.Certificate{chain[2]}
	v := newTestVerifier(t, roots, WithClock(func() time.Time { return time.Now().Add(-48 * time.Hour) }))

	result := v.Verify(context.Background(), chain, []byte("challenge"))
	failure, ok := result.(PathValidationFailure)
	require.True(t, ok, "expected PathValidationFailure, got %#v", result)
	assert.Equal(t, string(pathvalidation.ReasonNotYetValid), failure.Reason)
}

type fakeRevocation struct {
	revoked map[string]bool
}

func (f fakeRevocation) IsRevoked(_ context.Context, serialHex string) (bool, error) {
	return f.revoked[serialHex], nil
}
