// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package security

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// PosixModeToSecurityDescriptor builds a self-relative security
// descriptor (composed as SDDL, returned as binary bytes) from a
// POSIX-style owner/group/mode triple,
// for file systems whose backing store only tracks POSIX permissions
// (e.g. an overlay onto a POSIX-shaped store) and need to synthesize a
// Windows-shaped descriptor on demand for QuerySecurity.
//
// This is new relative to the reference implementation's stubbed
// FspPosixMapPermissionsToSecurityDescriptor (see DESIGN.md): rather than
// mapping POSIX uid/gid to domain SIDs (which needs a running account
// domain to resolve), owner and group are the SIDs passed in (the
// well-known Everyone SID when nil) and the Everyone SID is used for
// "other", which is the common case for a single-user mount.
func PosixModeToSecurityDescriptor(ownerSID, groupSID *windows.SID, mode uint32) ([]byte, error) {
	owner := "S-1-1-0"
	if ownerSID != nil {
		owner = ownerSID.String()
	}
	group := "S-1-1-0"
	if groupSID != nil {
		group = groupSID.String()
	}

	dacl := fmt.Sprintf("D:%s%s%s",
		aceForMode("A", "OW", (mode>>6)&7),
		aceForMode("A", "GW", (mode>>3)&7),
		aceForMode("A", "WD", mode&7), // WD == Everyone
	)

	sddl := fmt.Sprintf("O:%sG:%s%s", owner, group, dacl)

	sd, err := windows.SecurityDescriptorFromString(sddl)
	if err != nil {
		return nil, fmt.Errorf("security: building descriptor from mode %#o: %w", mode, err)
	}

	length := windows.GetSecurityDescriptorLength(sd)
	out := make([]byte, length)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(sd)), length))
	return out, nil
}

// aceForMode encodes one rwx triad as an SDDL ACE string, e.g. mode=5
// (r-x) becomes "(A;;FRFX;;;OW)".
func aceForMode(aceType, trustee string, rwx uint32) string {
	var rights string
	if rwx&4 != 0 {
		rights += "FR"
	}
	if rwx&2 != 0 {
		rights += "FW"
	}
	if rwx&1 != 0 {
		rights += "FX"
	}
	if rights == "" {
		return ""
	}
	return fmt.Sprintf("(%s;;%s;;;%s)", aceType, rights, trustee)
}
