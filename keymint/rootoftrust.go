// Copyright 2024 The keyattestation Authors.
// SPDX-License-Identifier: Apache-2.0

package keymint

// RootOfTrust is the decoded contents of the ROOT_OF_TRUST (704)
// AuthorizationList entry: the verified boot key, whether the device is
// locked, the boot state, and the boot key's own hash.
type RootOfTrust struct {
	VerifiedBootKey   []byte
	DeviceLocked      bool
	VerifiedBootState VerifiedBootState
	VerifiedBootHash  []byte
}

func parseRootOfTrust(r *reader) (RootOfTrust, error) {
	var rot RootOfTrust
	var err error
	rot.VerifiedBootKey, err = r.readOctetString()
	if err != nil {
		return RootOfTrust{}, &ParseError{Reason: ReasonMalformedASN1, Tag: TagRootOfTrust, Message: "verifiedBootKey: " + err.Error()}
	}
	rot.DeviceLocked, err = r.readBool()
	if err != nil {
		return RootOfTrust{}, &ParseError{Reason: ReasonMalformedASN1, Tag: TagRootOfTrust, Message: "deviceLocked: " + err.Error()}
	}
	rawState, err := r.readEnumerated()
	if err != nil {
		return RootOfTrust{}, &ParseError{Reason: ReasonMalformedASN1, Tag: TagRootOfTrust, Message: "verifiedBootState: " + err.Error()}
	}
	rot.VerifiedBootState, err = ParseVerifiedBootState(rawState)
	if err != nil {
		return RootOfTrust{}, err
	}
	// verifiedBootHash is OPTIONAL: older attestations encode RootOfTrust
	// with arity 3 (no hash); newer ones with arity 4.
	if !r.empty() {
		rot.VerifiedBootHash, err = r.readOctetString()
		if err != nil {
			return RootOfTrust{}, &ParseError{Reason: ReasonMalformedASN1, Tag: TagRootOfTrust, Message: "verifiedBootHash: " + err.Error()}
		}
	}
	if !r.empty() {
		return RootOfTrust{}, &ParseError{Reason: ReasonTrailingData, Tag: TagRootOfTrust, Message: "unexpected trailing fields in RootOfTrust"}
	}
	return rot, nil
}
