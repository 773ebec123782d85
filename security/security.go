// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

// Package security implements the create/access-check pipeline: the
// traverse walk, the Windows AccessCheck against a looked-up security
// descriptor, the disposition state machine, and child/merged security
// descriptor construction.
package security

import (
	"strings"

	"golang.org/x/sys/windows"
)

// Disposition is the NT creation disposition (spec.md §4.F). Requests
// carry it as its own field (Request.Disposition, decoded from
// CreateRequest.Disposition); it is not read from CreateOptions.
type Disposition uint32

const (
	DispositionSupersede Disposition = iota
	DispositionOpen
	DispositionCreate
	DispositionOpenIf
	DispositionOverwrite
	DispositionOverwriteIf
)

// CreateOptions bits this package inspects. Names match the NT
// FILE_CREATE_OPTIONS values.
const (
	OptionDirectoryFile    uint32 = 0x00000001
	OptionNonDirectoryFile uint32 = 0x00000040
	OptionDeleteOnClose    uint32 = 0x00001000
	OptionOpenReparsePoint uint32 = 0x00200000
)

// CallerMode distinguishes a request originating from user mode (subject
// to access checks) from one originating from kernel mode (bypasses
// them), per spec.md §4.F step 8.
type CallerMode int

const (
	UserMode CallerMode = iota
	KernelMode
)

// LookupResult is what the user interface's GetSecurityByName-equivalent
// returns for one path component.
type LookupResult struct {
	Exists             bool
	IsDirectory        bool
	IsReparsePoint     bool
	ReadOnly           bool
	SecurityDescriptor []byte
}

// SecurityLookup is the subset of the FileSystem's user-interface vtable
// the pipeline needs: resolving a path to its attributes and security
// descriptor without opening it.
type SecurityLookup interface {
	GetSecurityByName(path string) (LookupResult, error)
}

// Request carries every input to the create/access-check pipeline
// (spec.md §4.F, "Inputs").
type Request struct {
	Path                string
	DesiredAccess       uint32
	Disposition         Disposition
	CreateOptions       uint32
	FileAttributes      uint32
	Token               windows.Token
	Mode                CallerMode
	HasTraversePriv     bool
	StreamColonOffset    int // > 0 if Path contains a colon
}

// Decision is the pipeline's verdict: either a terminal Status (the
// caller should stop) or a GrantedAccess mask plus enough classification
// to drive the disposition state machine.
type Decision struct {
	Status      windows.NTStatus
	Granted     uint32
	LeafExists  bool
	LeafIsDir   bool
	CreateLeaf  bool // true when the disposition's CREATE branch applies

	// ReparseIndex is the byte offset into the request path of the
	// separator following the path component that triggered a
	// STATUS_REPARSE verdict, meaningful only when Status is
	// STATUS_REPARSE; for a reparse-point leaf it is the length of the
	// path. handleCreate surfaces it in the response's Information field
	// (spec.md §4.F step 2, §7).
	ReparseIndex uint32
}

// fileGenericMapping mirrors IoFileObjectType's GENERIC_MAPPING, used by
// AccessCheck to resolve GENERIC_* bits into file-specific ones.
var fileGenericMapping = windows.GenericMapping{
	GenericRead:    windows.FILE_GENERIC_READ,
	GenericWrite:   windows.FILE_GENERIC_WRITE,
	GenericExecute: windows.FILE_GENERIC_EXECUTE,
	GenericAll:     windows.FILE_ALL_ACCESS,
}

const (
	fileTraverse        = 0x0020
	fileAddFile         = 0x0002
	fileAddSubdirectory = 0x0004
	fileDeleteChild     = 0x0040
	fileListDirectory   = 0x0001
	fileWriteData       = 0x0002
	fileAppendData      = 0x0004
	fileReadAttributes  = 0x0080
	maximumAllowed      = 0x02000000
	genericAll          = 0x10000000
	delete_             = 0x00010000
	fileAttributeReadonly = 0x00000001
)

// mainFilePath returns the path the traverse/leaf-probe steps should
// resolve against: for a named-stream create, that's everything before
// the colon (spec.md §4.F step 1).
func (r Request) mainFilePath() string {
	if r.StreamColonOffset > 0 && r.StreamColonOffset < len(r.Path) {
		return r.Path[:r.StreamColonOffset]
	}
	return r.Path
}

// splitParent splits path at its last `\`. The parent of a top-level
// component is the root (`\`), not the empty string, so that lookups
// against it use the same key a root directory would be registered
// under.
func splitParent(path string) (parent, leaf string) {
	idx := strings.LastIndexByte(path, '\\')
	if idx < 0 {
		return "", path
	}
	if idx == 0 {
		return `\`, path[idx+1:]
	}
	return path[:idx], path[idx+1:]
}

// Evaluate runs the full create/access-check pipeline against lookup and
// returns a Decision. It does not itself perform the CREATE/OPEN/
// OVERWRITE side effects (the FileSystem's Create/Open/Overwrite methods
// do that); it only decides whether the operation may proceed and with
// what granted access.
func Evaluate(lookup SecurityLookup, req Request) Decision {
	if req.Mode != UserMode {
		granted := req.DesiredAccess
		if granted&maximumAllowed != 0 {
			granted = genericAll
		}
		return Decision{Granted: granted}
	}

	if !req.HasTraversePriv {
		if status, reparseIndex := traverseWalk(lookup, req.Token, req.mainFilePath()); status != windows.STATUS_SUCCESS {
			return Decision{Status: status, ReparseIndex: reparseIndex}
		}
	}

	// Step 3: the leaf probe always targets the full path first, so that
	// CREATE can tell an existing leaf (-> NAME_COLLISION) from a missing
	// one; only once a disposition's CREATE branch is confirmed do later
	// steps (the access check) target the parent instead (step 1).
	leaf, err := lookup.GetSecurityByName(req.mainFilePath())
	if err != nil {
		return Decision{Status: windows.STATUS_OBJECT_NAME_NOT_FOUND}
	}

	createBranch := false
	switch {
	case leaf.Exists:
		if req.Disposition == DispositionCreate {
			return Decision{Status: windows.STATUS_OBJECT_NAME_COLLISION}
		}
	case !leaf.Exists:
		switch req.Disposition {
		case DispositionOpenIf, DispositionOverwriteIf, DispositionCreate:
			createBranch = true
			parent, _ := splitParent(req.mainFilePath())
			parentLeaf, perr := lookup.GetSecurityByName(parent)
			if perr != nil {
				return Decision{Status: windows.STATUS_OBJECT_PATH_NOT_FOUND}
			}
			leaf = parentLeaf
		default:
			return Decision{Status: windows.STATUS_OBJECT_NAME_NOT_FOUND}
		}
	}

	if leaf.IsReparsePoint && req.CreateOptions&OptionOpenReparsePoint == 0 {
		return Decision{Status: windows.STATUS_REPARSE, ReparseIndex: uint32(len(req.mainFilePath()))}
	}

	granted, status := accessCheck(lookup, req, leaf, createBranch)
	if status != windows.STATUS_SUCCESS {
		return Decision{Status: status}
	}

	if req.CreateOptions&OptionDirectoryFile != 0 && leaf.Exists && !leaf.IsDirectory {
		return Decision{Status: windows.STATUS_NOT_A_DIRECTORY}
	}
	if req.CreateOptions&OptionNonDirectoryFile != 0 && leaf.Exists && leaf.IsDirectory && !leaf.IsReparsePoint {
		return Decision{Status: windows.STATUS_FILE_IS_A_DIRECTORY}
	}

	if leaf.ReadOnly {
		if req.DesiredAccess&(fileWriteData|fileAppendData|fileAddSubdirectory|fileDeleteChild) != 0 {
			return Decision{Status: windows.STATUS_ACCESS_DENIED}
		}
		if req.CreateOptions&OptionDeleteOnClose != 0 {
			return Decision{Status: windows.STATUS_CANNOT_DELETE}
		}
		if req.DesiredAccess&maximumAllowed != 0 {
			granted &^= fileWriteData | fileAppendData | fileAddSubdirectory | fileDeleteChild
		}
	}

	return Decision{
		Granted:    granted,
		LeafExists: leaf.Exists,
		LeafIsDir:  leaf.IsDirectory,
		CreateLeaf: createBranch,
	}
}

// traverseWalk iterates the prefixes of path from the root, stopping at
// the first reparse point (STATUS_REPARSE, carrying the byte offset of
// the separator just past the reparse-point component) or the first
// non-directory ancestor (OBJECT_PATH_NOT_FOUND), and requires
// FILE_TRAVERSE at every step (spec.md §4.F step 2).
func traverseWalk(lookup SecurityLookup, token windows.Token, path string) (windows.NTStatus, uint32) {
	components := strings.Split(strings.Trim(path, `\`), `\`)
	if len(components) <= 1 {
		return windows.STATUS_SUCCESS, 0
	}

	prefix := ""
	for _, c := range components[:len(components)-1] {
		prefix += `\` + c

		res, err := lookup.GetSecurityByName(prefix)
		if err != nil || !res.Exists {
			return windows.STATUS_OBJECT_PATH_NOT_FOUND, 0
		}
		if res.IsReparsePoint {
			return windows.STATUS_REPARSE, uint32(len(prefix) + 1)
		}
		if !res.IsDirectory {
			return windows.STATUS_OBJECT_PATH_NOT_FOUND, 0
		}

		if len(res.SecurityDescriptor) > 0 {
			if !checkAccess(token, res.SecurityDescriptor, fileTraverse) {
				return windows.STATUS_ACCESS_DENIED, 0
			}
		}
	}

	return windows.STATUS_SUCCESS, 0
}

// accessCheck implements pipeline step 4: the leaf AccessCheck plus the
// parent re-check fallback for DELETE/FILE_READ_ATTRIBUTES.
func accessCheck(lookup SecurityLookup, req Request, leaf LookupResult, createBranch bool) (granted uint32, status windows.NTStatus) {
	desired := req.DesiredAccess
	if createBranch {
		if req.CreateOptions&OptionDirectoryFile != 0 {
			desired = fileAddSubdirectory
		} else {
			desired = fileAddFile
		}
	}

	if len(leaf.SecurityDescriptor) == 0 || desired == 0 {
		return req.DesiredAccess, windows.STATUS_SUCCESS
	}

	ok, grantedMask := accessCheckMask(req.Token, leaf.SecurityDescriptor, desired)
	if ok {
		return grantedMask, windows.STATUS_SUCCESS
	}

	if desired&(maximumAllowed|delete_|fileReadAttributes) == 0 {
		return 0, windows.STATUS_ACCESS_DENIED
	}

	parent, _ := splitParent(req.mainFilePath())
	parentRes, err := lookup.GetSecurityByName(parent)
	if err != nil || len(parentRes.SecurityDescriptor) == 0 {
		return 0, windows.STATUS_ACCESS_DENIED
	}

	if checkAccess(req.Token, parentRes.SecurityDescriptor, fileDeleteChild|fileListDirectory) {
		return desired & (delete_ | fileReadAttributes), windows.STATUS_SUCCESS
	}

	return 0, windows.STATUS_ACCESS_DENIED
}
