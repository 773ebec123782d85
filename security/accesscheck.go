// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package security

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// selfRelativeSD reinterprets raw as an already-binary, self-relative
// SECURITY_DESCRIPTOR (the format LookupResult.SecurityDescriptor
// carries, and the format CreateChildDescriptor, SetSecurity, and
// PosixModeToSecurityDescriptor all produce via
// GetSecurityDescriptorLength+copy) rather than parsing it as SDDL text,
// so a descriptor built by this package round-trips back through
// AccessCheck without reinterpretation.
func selfRelativeSD(raw []byte) (*windows.SECURITY_DESCRIPTOR, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("security: empty security descriptor")
	}
	return (*windows.SECURITY_DESCRIPTOR)(unsafe.Pointer(&raw[0])), nil
}

// checkAccess reports whether an AccessCheck of token against sd grants
// every bit of desired. Used by the traverse walk, which only needs a
// boolean, not a granted mask.
func checkAccess(token windows.Token, sd []byte, desired uint32) bool {
	ok, granted := accessCheckMask(token, sd, desired)
	return ok && granted&desired == desired
}

// accessCheckMask runs AccessCheck against token (the caller's
// impersonation token, carried on Request) and returns the granted mask.
func accessCheckMask(token windows.Token, sd []byte, desired uint32) (ok bool, granted uint32) {
	descriptor, err := selfRelativeSD(sd)
	if err != nil {
		return false, 0
	}

	var privSet windows.PRIVILEGE_SET
	privSetLen := uint32(unsafe.Sizeof(privSet))
	var grantedMask uint32
	var accessStatus uint32

	err = windows.AccessCheck(
		descriptor,
		token,
		windows.ACCESS_MASK(desired),
		&fileGenericMapping,
		&privSet,
		&privSetLen,
		(*windows.ACCESS_MASK)(&grantedMask),
		&accessStatus)
	if err != nil {
		return false, 0
	}

	return accessStatus != 0, grantedMask
}
