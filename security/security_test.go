// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package security

import (
	"testing"

	"golang.org/x/sys/windows"
)

type fakeLookup map[string]LookupResult

func (f fakeLookup) GetSecurityByName(path string) (LookupResult, error) {
	res, ok := f[path]
	if !ok {
		return LookupResult{}, nil
	}
	return res, nil
}

func TestKernelModeBypassesAccessChecks(t *testing.T) {
	lookup := fakeLookup{}
	req := Request{
		Path:          `\A`,
		DesiredAccess: maximumAllowed,
		Mode:          KernelMode,
	}

	d := Evaluate(lookup, req)
	if d.Status != windows.STATUS_SUCCESS {
		t.Fatalf("Status = %v, want success", d.Status)
	}
	if d.Granted != genericAll {
		t.Fatalf("Granted = %#x, want generic-all for MAXIMUM_ALLOWED", d.Granted)
	}
}

func TestOpenOfMissingFileReturnsNameNotFound(t *testing.T) {
	lookup := fakeLookup{
		`\Dir`: {Exists: true, IsDirectory: true},
	}
	req := Request{
		Path:            `\Dir\Missing`,
		DesiredAccess:   1,
		Disposition:     DispositionOpen,
		Mode:            UserMode,
		HasTraversePriv: true,
	}

	d := Evaluate(lookup, req)
	if d.Status != windows.STATUS_OBJECT_NAME_NOT_FOUND {
		t.Fatalf("Status = %v, want OBJECT_NAME_NOT_FOUND", d.Status)
	}
}

func TestCreateOfExistingFileReturnsNameCollision(t *testing.T) {
	lookup := fakeLookup{
		`\A`: {Exists: true},
	}
	req := Request{
		Path:            `\A`,
		Disposition:     DispositionCreate,
		Mode:            UserMode,
		HasTraversePriv: true,
	}

	d := Evaluate(lookup, req)
	if d.Status != windows.STATUS_OBJECT_NAME_COLLISION {
		t.Fatalf("Status = %v, want OBJECT_NAME_COLLISION", d.Status)
	}
}

func TestOpenIfCreatesWhenMissing(t *testing.T) {
	lookup := fakeLookup{
		`\`: {Exists: true, IsDirectory: true},
	}
	req := Request{
		Path:            `\New`,
		Disposition:     DispositionOpenIf,
		Mode:            UserMode,
		HasTraversePriv: true,
	}

	d := Evaluate(lookup, req)
	if d.Status != windows.STATUS_SUCCESS {
		t.Fatalf("Status = %v, want success", d.Status)
	}
	if !d.CreateLeaf {
		t.Fatalf("expected CreateLeaf=true when the leaf is missing under OPEN_IF")
	}
}

func TestReparseLeafRequiresOpenReparsePointFlag(t *testing.T) {
	lookup := fakeLookup{
		`\Link`: {Exists: true, IsReparsePoint: true},
	}
	req := Request{
		Path:            `\Link`,
		Disposition:     DispositionOpen,
		Mode:            UserMode,
		HasTraversePriv: true,
	}

	d := Evaluate(lookup, req)
	if d.Status != windows.STATUS_REPARSE {
		t.Fatalf("Status = %v, want STATUS_REPARSE", d.Status)
	}
	if d.ReparseIndex != uint32(len(`\Link`)) {
		t.Fatalf("ReparseIndex = %d, want %d", d.ReparseIndex, len(`\Link`))
	}
}

func TestReparseAncestorDuringTraverseReturnsSeparatorOffset(t *testing.T) {
	lookup := fakeLookup{
		`\Dir`: {Exists: true, IsReparsePoint: true},
	}
	req := Request{
		Path:            `\Dir\File`,
		Disposition:     DispositionOpen,
		Mode:            UserMode,
		HasTraversePriv: false,
	}

	d := Evaluate(lookup, req)
	if d.Status != windows.STATUS_REPARSE {
		t.Fatalf("Status = %v, want STATUS_REPARSE", d.Status)
	}
	if d.ReparseIndex != 5 {
		t.Fatalf("ReparseIndex = %d, want 5 (offset of the separator after \\Dir)", d.ReparseIndex)
	}
}

func TestReadOnlyLeafDeniesWriteAccess(t *testing.T) {
	lookup := fakeLookup{
		`\RO`: {Exists: true, ReadOnly: true},
	}
	req := Request{
		Path:            `\RO`,
		Disposition:     DispositionOpen,
		DesiredAccess:   fileWriteData,
		Mode:            UserMode,
		HasTraversePriv: true,
	}

	d := Evaluate(lookup, req)
	if d.Status != windows.STATUS_ACCESS_DENIED {
		t.Fatalf("Status = %v, want ACCESS_DENIED", d.Status)
	}
}
