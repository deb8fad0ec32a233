// Copyright 2024 The keyattestation Authors.
// SPDX-License-Identifier: Apache-2.0

package keymint

// AuthorizationList is the decoded, strongly-typed form of one of the two
// AuthorizationList SEQUENCEs (softwareEnforced, hardwareEnforced) carried
// inside a KeyDescription. Every field is optional per the KeyMint
// schema; a nil/zero value means the tag was absent, not that it carried
// a zero value.
type AuthorizationList struct {
	Purpose                     []int64
	Algorithm                   *int64
	KeySize                     *int64
	BlockMode                   []int64
	Digest                      []int64
	Padding                     []int64
	CallerNonce                 bool
	MinMacLength                *int64
	EcCurve                     *int64
	RsaPublicExponent           []byte
	MgfDigest                   []int64
	RollbackResistance          bool
	EarlyBootOnly               bool
	ActiveDateTime              *int64
	OriginationExpireDateTime   *int64
	UsageExpireDateTime         *int64
	UsageCountLimit             *int64
	NoAuthRequired              bool
	UserAuthType                *int64
	AuthTimeout                 *int64
	AllowWhileOnBody            bool
	TrustedUserPresenceRequired bool
	TrustedConfirmationRequired bool
	UnlockedDeviceRequired      bool
	CreationDateTime            *int64
	Origin                      *KeyOrigin
	RootOfTrust                 *RootOfTrust
	OSVersion                   *int64
	OSPatchLevel                *PatchLevel
	AttestationApplicationID    *AttestationApplicationId
	AttestationIDBrand          []byte
	AttestationIDDevice         []byte
	AttestationIDProduct        []byte
	AttestationIDSerial         []byte
	AttestationIDImei           []byte
	AttestationIDMeid           []byte
	AttestationIDManufacturer   []byte
	AttestationIDModel          []byte
	VendorPatchLevel            *PatchLevel
	BootPatchLevel              *PatchLevel
	DeviceUniqueAttestation     bool
	AttestationIDSecondImei     []byte
	ModuleHash                  []byte

	// Raw preserves the exact encoded bytes of every tag's explicit-tag
	// content, keyed by tag number (the last occurrence of a repeated
	// tag), so that KeyDescription.Encode can re-emit each field's
	// original bytes without this package having to track ASN.1 encoding
	// quirks it didn't itself choose.
	Raw map[Tag][]byte

	// AreTagsOrdered records whether every tag in the encoded SEQUENCE
	// appeared in strictly ascending numeric order with no repeats. This
	// is an observation, not a parse failure: a KeyMint encoder that
	// violates it still produces a list this package can fully decode,
	// with the last occurrence of any repeated tag winning.
	AreTagsOrdered bool

	// Notices records non-fatal field-level problems encountered while
	// decoding optional, non-structural fields (e.g. an unparseable
	// ACTIVE_DATETIME): the field is left absent and the reason is
	// recorded here rather than failing the whole AuthorizationList.
	Notices []string
}

// structuralTags are the tags whose value is itself a nested structure
// with its own shape rules. A malformed value under one of these tags is a
// fatal parse error; every other tag's malformed value is recovered as
// absence and recorded as a Notice.
var structuralTags = map[Tag]bool{
	TagRootOfTrust:              true,
	TagAttestationApplicationID: true,
}

// parseAuthorizationList decodes a SEQUENCE of context-tagged, OPTIONAL
// fields into an AuthorizationList. The KeyMint encoder always emits tags
// in strictly ascending order, but a violation of that order — including a
// repeated tag, where the last occurrence wins — is a recoverable
// observation (AreTagsOrdered=false), not a parse failure. An unrecognized
// tag number is still a fatal UNKNOWN_TAG_NUMBER error.
func parseAuthorizationList(body *reader) (AuthorizationList, error) {
	var al AuthorizationList
	al.Raw = make(map[Tag][]byte)
	al.AreTagsOrdered = true

	var lastTag Tag
	first := true
	for !body.empty() {
		num, ok := body.peekTagNumber()
		if !ok {
			return AuthorizationList{}, &ParseError{Reason: ReasonMalformedASN1, Message: "expected context-tagged field"}
		}
		tag := Tag(num)
		if !tag.Known() {
			return AuthorizationList{}, &ParseError{Reason: ReasonUnknownTagNumber, Tag: tag, Message: "tag number is not a recognized KeyMint tag"}
		}
		if !first && tag <= lastTag {
			al.AreTagsOrdered = false
		}
		first = false
		lastTag = tag

		field, ok := body.readExplicit(num)
		if !ok {
			return AuthorizationList{}, &ParseError{Reason: ReasonMalformedASN1, Tag: tag, Message: "failed to read explicit tag content"}
		}
		al.Raw[tag] = []byte(field.s)

		if err := dispatchTag(&al, tag, field); err != nil {
			pe, _ := err.(*ParseError)
			if structuralTags[tag] || (pe != nil && pe.Fatal) {
				return AuthorizationList{}, err
			}
			al.Notices = append(al.Notices, tag.String()+": "+err.Error())
		}
	}
	return al, nil
}

// readPresenceBool reads a boolean-presence tag's explicit BOOLEAN
// content. KeyMint encodes these tags only when true, so the value
// itself is always expected to be BOOLEAN TRUE; an encoder that emits an
// explicit BOOLEAN FALSE has violated the schema, and that is a parse
// error rather than a silently-accepted false.
func readPresenceBool(tag Tag, r *reader) error {
	v, err := r.readBool()
	if err != nil {
		return wrapTagErr(tag, err)
	}
	if !v {
		return &ParseError{Reason: ReasonMalformedASN1, Tag: tag, Message: "boolean-presence tag carries explicit BOOLEAN FALSE", Fatal: true}
	}
	return nil
}

// dispatchTag decodes the content of a single recognized tag into its
// field on al. Boolean-presence tags (CallerNonce, RollbackResistance,
// EarlyBootOnly, NoAuthRequired, AllowWhileOnBody,
// TrustedUserPresenceRequired, TrustedConfirmationRequired,
// UnlockedDeviceRequired, DeviceUniqueAttestation) are encoded as an
// explicit BOOLEAN TRUE; their presence in the SEQUENCE is the signal, but
// the encoded value must still be read and must be true.
func dispatchTag(al *AuthorizationList, tag Tag, r *reader) error {
	switch tag {
	case TagPurpose:
		v, err := r.readSetOfInt64()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.Purpose = v
	case TagAlgorithm:
		v, err := r.readInt64()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.Algorithm = &v
	case TagKeySize:
		v, err := r.readInt64()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.KeySize = &v
	case TagBlockMode:
		v, err := r.readSetOfInt64()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.BlockMode = v
	case TagDigest:
		v, err := r.readSetOfInt64()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.Digest = v
	case TagPadding:
		v, err := r.readSetOfInt64()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.Padding = v
	case TagCallerNonce:
		if err := readPresenceBool(tag, r); err != nil {
			return err
		}
		al.CallerNonce = true
	case TagMinMacLength:
		v, err := r.readInt64()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.MinMacLength = &v
	case TagEcCurve:
		v, err := r.readInt64()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.EcCurve = &v
	case TagRsaPublicExponent:
		v, err := r.readBigIntBytes()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.RsaPublicExponent = v
	case TagMgfDigest:
		v, err := r.readSetOfInt64()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.MgfDigest = v
	case TagRollbackResistance:
		if err := readPresenceBool(tag, r); err != nil {
			return err
		}
		al.RollbackResistance = true
	case TagEarlyBootOnly:
		if err := readPresenceBool(tag, r); err != nil {
			return err
		}
		al.EarlyBootOnly = true
	case TagActiveDateTime:
		v, err := r.readInt64()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.ActiveDateTime = &v
	case TagOriginationExpireDateTime:
		v, err := r.readInt64()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.OriginationExpireDateTime = &v
	case TagUsageExpireDateTime:
		v, err := r.readInt64()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.UsageExpireDateTime = &v
	case TagUsageCountLimit:
		v, err := r.readInt64()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.UsageCountLimit = &v
	case TagNoAuthRequired:
		if err := readPresenceBool(tag, r); err != nil {
			return err
		}
		al.NoAuthRequired = true
	case TagUserAuthType:
		v, err := r.readInt64()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.UserAuthType = &v
	case TagAuthTimeout:
		v, err := r.readInt64()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.AuthTimeout = &v
	case TagAllowWhileOnBody:
		if err := readPresenceBool(tag, r); err != nil {
			return err
		}
		al.AllowWhileOnBody = true
	case TagTrustedUserPresenceRequired:
		if err := readPresenceBool(tag, r); err != nil {
			return err
		}
		al.TrustedUserPresenceRequired = true
	case TagTrustedConfirmationRequired:
		if err := readPresenceBool(tag, r); err != nil {
			return err
		}
		al.TrustedConfirmationRequired = true
	case TagUnlockedDeviceRequired:
		if err := readPresenceBool(tag, r); err != nil {
			return err
		}
		al.UnlockedDeviceRequired = true
	case TagCreationDateTime:
		v, err := r.readInt64()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.CreationDateTime = &v
	case TagOrigin:
		raw, err := r.readInt64()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		o := KeyOrigin(raw)
		al.Origin = &o
	case TagRootOfTrust:
		inner, err := r.readSequence()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		rot, err := parseRootOfTrust(inner)
		if err != nil {
			return err
		}
		al.RootOfTrust = &rot
	case TagOSVersion:
		v, err := r.readInt64()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.OSVersion = &v
	case TagOSPatchLevel:
		v, err := r.readInt64()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		pl, err := ParsePatchLevel(v)
		if err != nil {
			return err
		}
		al.OSPatchLevel = &pl
	case TagAttestationApplicationID:
		raw, err := r.readOctetString()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		appID, err := parseAttestationApplicationId(raw)
		if err != nil {
			return err
		}
		al.AttestationApplicationID = &appID
	case TagAttestationIDBrand:
		v, err := r.readOctetString()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.AttestationIDBrand = v
	case TagAttestationIDDevice:
		v, err := r.readOctetString()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.AttestationIDDevice = v
	case TagAttestationIDProduct:
		v, err := r.readOctetString()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.AttestationIDProduct = v
	case TagAttestationIDSerial:
		v, err := r.readOctetString()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.AttestationIDSerial = v
	case TagAttestationIDImei:
		v, err := r.readOctetString()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.AttestationIDImei = v
	case TagAttestationIDMeid:
		v, err := r.readOctetString()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.AttestationIDMeid = v
	case TagAttestationIDManufacturer:
		v, err := r.readOctetString()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.AttestationIDManufacturer = v
	case TagAttestationIDModel:
		v, err := r.readOctetString()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.AttestationIDModel = v
	case TagVendorPatchLevel:
		v, err := r.readInt64()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		pl, err := ParsePatchLevel(v)
		if err != nil {
			return err
		}
		al.VendorPatchLevel = &pl
	case TagBootPatchLevel:
		v, err := r.readInt64()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		pl, err := ParsePatchLevel(v)
		if err != nil {
			return err
		}
		al.BootPatchLevel = &pl
	case TagDeviceUniqueAttestation:
		if err := readPresenceBool(tag, r); err != nil {
			return err
		}
		al.DeviceUniqueAttestation = true
	case TagAttestationIDSecondImei:
		v, err := r.readOctetString()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.AttestationIDSecondImei = v
	case TagModuleHash:
		v, err := r.readOctetString()
		if err != nil {
			return wrapTagErr(tag, err)
		}
		al.ModuleHash = v
	}
	return nil
}

func wrapTagErr(tag Tag, err error) error {
	if pe, ok := err.(*ParseError); ok {
		if pe.Tag == 0 {
			pe.Tag = tag
		}
		return pe
	}
	return &ParseError{Reason: ReasonMalformedASN1, Tag: tag, Message: err.Error()}
}
