// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package security

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modadvapi32                     = windows.NewLazySystemDLL("advapi32.dll")
	procCreatePrivateObjectSecurity = modadvapi32.NewProc("CreatePrivateObjectSecurity")
	procSetPrivateObjectSecurity    = modadvapi32.NewProc("SetPrivateObjectSecurityEx")
	procDestroyPrivateObjectSecurity = modadvapi32.NewProc("DestroyPrivateObjectSecurity")
)

// CreateChildDescriptor builds the security descriptor for a new file or
// directory created under parentSD, merging it with an optional
// caller-supplied descriptor via the Windows "create private object
// security" routine (spec.md §4.F, "Child SD construction").
//
// A nil or empty callerSD short-circuits to "no SD" (nil, nil). The
// function takes no stream argument and does not itself detect a
// named-stream creation. Unlike the C implementation, the
// returned bytes are ordinary garbage-collected memory — there is no
// process-heap hand-off for the Go caller to manage (see DESIGN.md for
// why the manual heap-copy dance in the original is dropped).
func CreateChildDescriptor(parentSD []byte, callerSD []byte, isDirectory bool, token windows.Token) ([]byte, error) {
	if len(callerSD) == 0 {
		return nil, nil
	}

	parentDescriptor, err := optionalSD(parentSD)
	if err != nil {
		return nil, err
	}
	callerDescriptor, err := selfRelativeSD(callerSD)
	if err != nil {
		return nil, err
	}

	var isContainer uint32
	if isDirectory {
		isContainer = 1
	}

	var resultPtr uintptr
	ret, _, callErr := procCreatePrivateObjectSecurity.Call(
		uintptr(unsafe.Pointer(parentDescriptor)),
		uintptr(unsafe.Pointer(callerDescriptor)),
		uintptr(unsafe.Pointer(&resultPtr)),
		uintptr(isContainer),
		uintptr(token),
		uintptr(unsafe.Pointer(&fileGenericMapping)))
	if ret == 0 {
		return nil, fmt.Errorf("security: CreatePrivateObjectSecurity: %w", callErr)
	}
	defer procDestroyPrivateObjectSecurity.Call(uintptr(unsafe.Pointer(resultPtr)))

	length := windows.GetSecurityDescriptorLength((*windows.SECURITY_DESCRIPTOR)(unsafe.Pointer(resultPtr)))
	out := make([]byte, length)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(resultPtr)), length))
	return out, nil
}

// SetSecurity implements the set-security pipeline: it merges
// modification into input according to securityInformation (via the
// "set private object security" routine) and returns the resulting
// descriptor's bytes. Unlike the C implementation's RtlProcessHeap dance,
// Go's garbage collector owns the copy this makes internally.
func SetSecurity(input []byte, securityInformation uint32, modification []byte) ([]byte, error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("security: no security on object")
	}

	inputDescriptor, err := selfRelativeSD(input)
	if err != nil {
		return nil, err
	}
	modDescriptor, err := selfRelativeSD(modification)
	if err != nil {
		return nil, err
	}

	descriptorPtr := uintptr(unsafe.Pointer(inputDescriptor))
	ret, _, callErr := procSetPrivateObjectSecurity.Call(
		uintptr(securityInformation),
		uintptr(unsafe.Pointer(modDescriptor)),
		uintptr(unsafe.Pointer(&descriptorPtr)),
		0,
		uintptr(unsafe.Pointer(&fileGenericMapping)),
		0)
	if ret == 0 {
		return nil, fmt.Errorf("security: SetPrivateObjectSecurity: %w", callErr)
	}
	defer procDestroyPrivateObjectSecurity.Call(descriptorPtr)

	length := windows.GetSecurityDescriptorLength((*windows.SECURITY_DESCRIPTOR)(unsafe.Pointer(descriptorPtr)))
	out := make([]byte, length)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(descriptorPtr)), length))
	return out, nil
}

func optionalSD(raw []byte) (*windows.SECURITY_DESCRIPTOR, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	return selfRelativeSD(raw)
}
