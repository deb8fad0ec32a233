// Copyright 2024 The keyattestation Authors.
// SPDX-License-Identifier: Apache-2.0

package keyattestation

import "github.com/google/keyattestation/keymint"

// DeviceIdentity projects the subset of a successfully verified
// KeyDescription's hardware-enforced AuthorizationList that callers
// typically need after verification, without requiring them to import
// the keymint package themselves.
type DeviceIdentity struct {
	Brand        string
	Device       string
	Product      string
	Manufacturer string
	Model        string
	Serial       string
	// IMEIs holds every IMEI attested for the device: the primary
	// ATTESTATION_ID_IMEI tag and, on dual-SIM devices, the
	// ATTESTATION_ID_SECOND_IMEI tag.
	IMEIs []string
	MEID  string

	OSVersion    int64
	OSPatchLevel keymint.PatchLevel

	VerifiedBootState keymint.VerifiedBootState
	DeviceLocked      bool
}

func deviceIdentityFrom(al keymint.AuthorizationList) DeviceIdentity {
	id := DeviceIdentity{
		Brand:        string(al.AttestationIDBrand),
		Device:       string(al.AttestationIDDevice),
		Product:      string(al.AttestationIDProduct),
		Manufacturer: string(al.AttestationIDManufacturer),
		Model:        string(al.AttestationIDModel),
		Serial:       string(al.AttestationIDSerial),
		MEID:         string(al.AttestationIDMeid),
	}
	if len(al.AttestationIDImei) > 0 {
		id.IMEIs = append(id.IMEIs, string(al.AttestationIDImei))
	}
	if len(al.AttestationIDSecondImei) > 0 {
		id.IMEIs = append(id.IMEIs, string(al.AttestationIDSecondImei))
	}
	if al.OSVersion != nil {
		id.OSVersion = *al.OSVersion
	}
	if al.OSPatchLevel != nil {
		id.OSPatchLevel = *al.OSPatchLevel
	}
	if al.RootOfTrust != nil {
		id.VerifiedBootState = al.RootOfTrust.VerifiedBootState
		id.DeviceLocked = al.RootOfTrust.DeviceLocked
	}
	return id
}
