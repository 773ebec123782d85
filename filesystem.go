// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package fsprt

import (
	"context"
	"time"
)

// NodeID identifies an open instance of a file or directory within a
// FileSystem. A FileSystem is free to choose any stable representation
// (e.g. an inode number, or a pointer to its own bookkeeping struct boxed
// as a uintptr); the runtime treats it as opaque and echoes it back on
// every subsequent operation against the same handle (spec.md §3, "Node").
type NodeID uintptr

// FileInfo is the subset of NTFS file attributes the runtime needs in
// order to answer QueryInformation, to populate a DirectoryBuffer entry,
// and to decide CREATE-class dispositions. File systems populate as much
// of it as is meaningful to them; fields left zero read back as zero.
type FileInfo struct {
	FileAttributes   uint32
	ReparseTag       uint32
	AllocationSize    uint64
	FileSize          uint64
	CreationTime      time.Time
	LastAccessTime    time.Time
	LastWriteTime     time.Time
	ChangeTime        time.Time
	IndexNumber       uint64
	HardLinks         uint32
	EaSize            uint32
}

// CreateRequest carries the parameters of a CREATE-class operation
// (spec.md §4.F): desired access, share mode, the NT creation disposition,
// file attributes to apply on creation, and an optional security
// descriptor supplied by the caller.
type CreateRequest struct {
	DesiredAccess      uint32
	ShareAccess        uint32
	Disposition        uint32
	FileAttributes     uint32
	SecurityDescriptor []byte
	CreateOptions      uint32
}

// OpenRequest carries the parameters needed to re-open an already-existing
// node located by the create/access-check pipeline before Create is even
// reached (used for the Open phase of the pipeline, spec.md §4.F step 7).
type OpenRequest struct {
	DesiredAccess uint32
	ShareAccess   uint32
}

// OverwriteRequest carries the parameters of FILE_OVERWRITE /
// FILE_OVERWRITE_IF: the attributes to apply, and whether they replace
// the existing attributes outright or merely OR into them.
type OverwriteRequest struct {
	FileAttributes    uint32
	ReplaceAttributes bool
}

// ReadRequest and WriteRequest carry a byte range. Offset of ^uint64(0) (the
// FILE_USE_FILE_POINTER_POSITION sentinel) means "wherever the file's
// current position is", matching the kernel's own convention.
type ReadRequest struct {
	Offset uint64
	Length uint32
}

type WriteRequest struct {
	Offset        uint64
	Data          []byte
	ConstrainedIO bool
}

// SetInformationRequest carries one of the FILE_INFORMATION_CLASS payloads
// the runtime supports. The FileSystem inspects Class to know which of the
// *Info fields is populated.
type SetInformationRequest struct {
	Class          uint32
	BasicInfo      *FileInfo
	AllocationSize *uint64
	EndOfFile      *uint64
	DeleteFlag     *bool
	RenameTo       string
	ReplaceIfExist bool
}

// QueryDirectoryRequest carries the parameters of a single directory
// enumeration call: an optional name filter, the resume marker from a
// prior call (empty on the first call after the handle was opened or
// after a rewind), and whether the caller wants a single entry matching
// Pattern exactly (spec.md §4.G).
type QueryDirectoryRequest struct {
	Pattern    string
	Marker     string
	RestartScan bool
	Single     bool
}

// SetSecurityRequest carries the set-security pipeline's inputs: which
// parts of the security descriptor the caller wants changed, and the
// descriptor fragment itself (spec.md §4.F, set-security pipeline).
type SetSecurityRequest struct {
	SecurityInformation uint32
	SecurityDescriptor  []byte
}

// DirEntry is a single record collected from a FileSystem's
// QueryDirectory and encoded into the QueryDirectory response.
type DirEntry struct {
	Name string
	Info FileInfo
}

// FileSystem is the interface a user-mode file system implements. Every
// method receives the context associated with the originating Request (see
// OperationContext) so that it can observe cancellation and so that the
// runtime can attribute logging and fault injection to the right caller.
//
// A method that has no work to do for a particular file system (e.g. Ea
// handling for a file system with no extended-attribute support) may
// return StatusNotImplemented; embedding NotImplementedFileSystem supplies
// that behavior for every method not overridden.
type FileSystem interface {
	// Create implements the terminal step of the create/access-check
	// pipeline once traversal and access-checking (package security) have
	// determined the operation is permitted: either a brand-new node, or
	// (depending on Disposition) the superseding/overwriting of an
	// existing one. On success it returns the NodeID of the opened
	// instance and the resulting CreateResult.
	Create(ctx context.Context, parent NodeID, name string, req *CreateRequest) (NodeID, CreateResult, FileInfo, Status)

	// Open reopens a node that the access-check pipeline found to already
	// exist and which the disposition permits opening as-is.
	Open(ctx context.Context, parent NodeID, name string, req *OpenRequest) (NodeID, FileInfo, Status)

	// Overwrite truncates an existing node's data in place, used by the
	// FILE_OVERWRITE / FILE_OVERWRITE_IF dispositions.
	Overwrite(ctx context.Context, node NodeID, fileAttributes uint32, replaceAttributes bool) (FileInfo, Status)

	// Cleanup is called when the last handle-level reference from a given
	// process closes; Close is called once the kernel has no further use
	// for the NodeID at all. The split mirrors IRP_MJ_CLEANUP vs.
	// IRP_MJ_CLOSE (spec.md §3).
	Cleanup(ctx context.Context, node NodeID, name string, deleteOnClose bool)
	Close(ctx context.Context, node NodeID)

	Read(ctx context.Context, node NodeID, req *ReadRequest) ([]byte, Status)
	Write(ctx context.Context, node NodeID, req *WriteRequest) (uint32, Status)
	Flush(ctx context.Context, node NodeID) (FileInfo, Status)

	QueryInformation(ctx context.Context, node NodeID) (FileInfo, Status)
	SetInformation(ctx context.Context, node NodeID, req *SetInformationRequest) (FileInfo, Status)

	// QueryDirectory appends entries to buf through its Append method,
	// stopping once Append returns false.
	QueryDirectory(ctx context.Context, node NodeID, req *QueryDirectoryRequest, buf DirectoryFiller) Status

	QuerySecurity(ctx context.Context, node NodeID, securityInformation uint32) ([]byte, Status)
	SetSecurity(ctx context.Context, node NodeID, req *SetSecurityRequest) Status

	QueryVolumeInformation(ctx context.Context) (VolumeInfo, Status)

	GetEa(ctx context.Context, node NodeID) ([]byte, Status)
	SetEa(ctx context.Context, node NodeID, ea []byte) (FileInfo, Status)
}

// DirectoryFiller is the sink FileSystem implementations append entries
// to during QueryDirectory; Append returns false once the sink accepts no
// more. The handler passes an in-memory collector whose Append always
// returns true; package dirbuf's Buffer does not implement this interface.
type DirectoryFiller interface {
	Append(name string, info FileInfo) bool
}

// VolumeInfo answers QueryVolumeInformation (spec.md §4, VolumeParams-
// adjacent data returned per open volume).
type VolumeInfo struct {
	TotalAllocationUnits     uint64
	AvailableAllocationUnits uint64
	SectorsPerAllocationUnit uint32
	BytesPerSector           uint32
	VolumeLabel              string
}
