// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package security

import "testing"

func TestSelfRelativeSDRejectsEmptyDescriptor(t *testing.T) {
	if _, err := selfRelativeSD(nil); err == nil {
		t.Fatalf("expected error for an empty descriptor")
	}
}

func TestSelfRelativeSDReinterpretsBinaryBytesWithoutParsing(t *testing.T) {
	// CreateChildDescriptor, SetSecurity, and PosixModeToSecurityDescriptor
	// all hand back raw self-relative SECURITY_DESCRIPTOR bytes (via
	// GetSecurityDescriptorLength+copy); selfRelativeSD must treat those
	// bytes as already-binary rather than as SDDL text, or the round trip
	// described in spec.md §8 breaks. A byte slice that is not valid SDDL
	// text still must not error here, since no text parsing happens.
	raw := []byte("not valid SDDL text, but a stand-in for opaque binary bytes")
	sd, err := selfRelativeSD(raw)
	if err != nil {
		t.Fatalf("selfRelativeSD: %v", err)
	}
	if sd == nil {
		t.Fatalf("selfRelativeSD returned a nil descriptor for non-empty input")
	}
}
