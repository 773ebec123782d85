// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

// Package reparse builds NTFS mount-point reparse records and issues the
// create-directory-then-FSCTL_SET_REPARSE_POINT sequence that turns a
// directory into a mount point for another volume.
package reparse

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"

	"golang.org/x/sys/windows"
)

// TagMountPoint is the reparse tag for an NTFS junction.
const TagMountPoint = 0xA0000003

const fsctlSetReparsePoint = 0x000900A4

// Record is the encoded REPARSE_DATA_BUFFER payload for a MOUNT_POINT
// reparse point, including the fixed 8-byte tag/length/reserved header.
type Record []byte

// Build constructs the REPARSE_DATA_BUFFER for a junction pointing at
// target (a drive-letter-colon path, e.g. `D:\data`). The substitute name
// is target prefixed with `\??\`; both names are recorded null-terminated
// but their Length fields exclude the terminator, per spec.md §4.H.
func Build(target string) (Record, error) {
	if len(target) < 2 || target[1] != ':' {
		return nil, fmt.Errorf("reparse: target %q must start with a drive letter and colon", target)
	}

	substitute := `\??\` + target
	subUTF16 := utf16.Encode([]rune(substitute))
	printUTF16 := utf16.Encode([]rune(target))

	subLen := len(subUTF16) * 2
	printLen := len(printUTF16) * 2

	// Layout (after the 8-byte generic header):
	//   u16 SubstituteNameOffset
	//   u16 SubstituteNameLength
	//   u16 PrintNameOffset
	//   u16 PrintNameLength
	//   (these four fields are the fixed 8 in ReparseDataLength below)
	//   wchar SubstituteName[...], null terminator
	//   wchar PrintName[...], null terminator
	const pathBufferHeader = 8
	reparseDataLength := pathBufferHeader + subLen + 2 + printLen + 2

	total := 8 + reparseDataLength
	rec := make(Record, total)

	binary.LittleEndian.PutUint32(rec[0:4], TagMountPoint)
	binary.LittleEndian.PutUint16(rec[4:6], uint16(reparseDataLength))
	// rec[6:8] Reserved == 0

	off := 8
	binary.LittleEndian.PutUint16(rec[off:off+2], 0)
	binary.LittleEndian.PutUint16(rec[off+2:off+4], uint16(subLen))
	binary.LittleEndian.PutUint16(rec[off+4:off+6], uint16(subLen+2))
	binary.LittleEndian.PutUint16(rec[off+6:off+8], uint16(printLen))
	off += pathBufferHeader

	for _, u := range subUTF16 {
		binary.LittleEndian.PutUint16(rec[off:off+2], u)
		off += 2
	}
	off += 2 // null terminator

	for _, u := range printUTF16 {
		binary.LittleEndian.PutUint16(rec[off:off+2], u)
		off += 2
	}
	off += 2 // null terminator

	return rec, nil
}

// CreateMountPoint creates junction as a directory and sets it as a mount
// point to target, per spec.md §4.H. On any failure after the directory
// was created, the directory is removed before the error is returned.
func CreateMountPoint(junction, target string) error {
	rec, err := Build(target)
	if err != nil {
		return err
	}

	junctionPtr, err := windows.UTF16PtrFromString(junction)
	if err != nil {
		return fmt.Errorf("reparse: encoding junction path: %w", err)
	}

	handle, err := windows.CreateFile(
		junctionPtr,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0,
		nil,
		windows.CREATE_NEW,
		windows.FILE_FLAG_BACKUP_SEMANTICS|windows.FILE_FLAG_POSIX_SEMANTICS|windows.FILE_ATTRIBUTE_DIRECTORY,
		0)
	if err != nil {
		return fmt.Errorf("reparse: CreateFile(%s): %w", junction, err)
	}
	defer windows.CloseHandle(handle)

	var bytesReturned uint32
	err = windows.DeviceIoControl(
		handle,
		fsctlSetReparsePoint,
		&rec[0],
		uint32(len(rec)),
		nil,
		0,
		&bytesReturned,
		nil)
	if err != nil {
		windows.CloseHandle(handle)
		windows.RemoveDirectory(junctionPtr)
		return fmt.Errorf("reparse: FSCTL_SET_REPARSE_POINT(%s -> %s): %w", junction, target, err)
	}

	return nil
}
