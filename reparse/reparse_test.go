// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package reparse

import (
	"encoding/binary"
	"testing"
)

func TestBuildLayout(t *testing.T) {
	target := `D:\data`
	rec, err := Build(target)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if tag := binary.LittleEndian.Uint32(rec[0:4]); tag != TagMountPoint {
		t.Fatalf("tag = %#x, want %#x", tag, TagMountPoint)
	}

	substitute := `\??\` + target
	subLen := len(substitute) * 2
	printLen := len(target) * 2

	wantDataLen := 8 + subLen + 2 + printLen + 2
	if dataLen := int(binary.LittleEndian.Uint16(rec[4:6])); dataLen != wantDataLen {
		t.Fatalf("ReparseDataLength = %d, want %d", dataLen, wantDataLen)
	}

	if len(rec) != 8+wantDataLen {
		t.Fatalf("record length = %d, want %d", len(rec), 8+wantDataLen)
	}

	subOffset := binary.LittleEndian.Uint16(rec[8:10])
	subLenField := binary.LittleEndian.Uint16(rec[10:12])
	printOffset := binary.LittleEndian.Uint16(rec[12:14])
	printLenField := binary.LittleEndian.Uint16(rec[14:16])

	if subOffset != 0 {
		t.Fatalf("substitute name offset = %d, want 0", subOffset)
	}
	if int(subLenField) != subLen {
		t.Fatalf("substitute name length = %d, want %d", subLenField, subLen)
	}
	if int(printOffset) != subLen+2 {
		t.Fatalf("print name offset = %d, want %d", printOffset, subLen+2)
	}
	if int(printLenField) != printLen {
		t.Fatalf("print name length = %d, want %d", printLenField, printLen)
	}
}

func TestBuildRejectsTargetWithoutDriveLetter(t *testing.T) {
	if _, err := Build(`\data`); err == nil {
		t.Fatalf("expected error for target without drive letter")
	}
}
