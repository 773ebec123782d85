// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package fsprt

import (
	"context"
	"encoding/binary"

	"golang.org/x/sys/windows"

	"github.com/gofsprt/gofsprt/security"
)

// SecurityAware is implemented by a FileSystem that backs its nodes with
// real security descriptors and wants the create/access-check pipeline
// (package security) to run before a CREATE-class request reaches
// Create/Open/Overwrite. A FileSystem that does not implement it (e.g.
// memfs, which has no ACL backing store) skips straight to Create,
// trusting the disposition as already resolved — see DESIGN.md.
type SecurityAware interface {
	SecurityLookup() security.SecurityLookup
}

// handlerFunc decodes the per-kind payload already present on req,
// invokes the matching FileSystem method, and encodes the result into a
// Response. Each handler is responsible only for its own kind; path
// validation (package-level ValidateFileName, used before a handler's
// FileSystem call) and child enumeration (package dirbuf, wired by the
// FileSystem implementation itself through the DirectoryFiller passed to
// QueryDirectory) live beside it rather than inside the dispatcher.
type handlerFunc func(ctx context.Context, fs FileSystem, req *Request) Response

// handlerTable is the sparse request→handler table spec.md §3 describes
// as part of the FileSystem entity ("an operation table (sparse array
// indexed by request kind)"). It is built once at init time and never
// mutated afterward, so dispatcher threads read it without locking.
var handlerTable = map[RequestKind]handlerFunc{
	KindCreate:                 handleCreate,
	KindOpen:                   handleOpen,
	KindOverwrite:              handleOverwrite,
	KindCleanup:                handleCleanup,
	KindClose:                  handleClose,
	KindRead:                   handleRead,
	KindWrite:                  handleWrite,
	KindFlush:                  handleFlush,
	KindQueryInformation:       handleQueryInformation,
	KindSetInformation:         handleSetInformation,
	KindQueryDirectory:         handleQueryDirectory,
	KindQuerySecurity:          handleQuerySecurity,
	KindSetSecurity:            handleSetSecurity,
	KindQueryVolumeInformation: handleQueryVolumeInformation,
}

// nodeIDFromRequest extracts the target NodeID a non-Create request
// carries, populated by decodeRequest for every kind (Create's copy goes
// unused, since Create addresses its target by parent path instead).
// Tests that build Requests directly should set this through the
// exported helper SetRequestNode.
func nodeIDFromRequest(req *Request) NodeID {
	return req.node
}

// SetRequestNode attaches the target NodeID to req, for tests and other
// callers constructing Requests directly; decodeRequest sets the field
// itself while decoding.
func SetRequestNode(req *Request, node NodeID) {
	req.node = node
}

func handleCreate(ctx context.Context, fs FileSystem, req *Request) Response {
	if _, _, ok := ValidateFileName(req.FileName); !ok {
		return Response{Status: StatusObjectNameInvalid}
	}
	if req.Create == nil {
		return Response{Status: StatusInvalidParameter}
	}

	if aware, ok := fs.(SecurityAware); ok {
		file, stream := splitStreamName(req.FileName)
		streamColonOffset := 0
		if stream != "" {
			streamColonOffset = len(file)
		}
		decision := security.Evaluate(aware.SecurityLookup(), security.Request{
			Path:              req.FileName,
			DesiredAccess:     req.Create.DesiredAccess,
			Disposition:       security.Disposition(req.Create.Disposition),
			CreateOptions:     req.Create.CreateOptions,
			FileAttributes:    req.Create.FileAttributes,
			Mode:              security.UserMode,
			StreamColonOffset: streamColonOffset,
		})
		if decision.Status != windows.STATUS_SUCCESS {
			return Response{Status: Status(decision.Status), Information: uint64(decision.ReparseIndex)}
		}
	}

	parent, name := splitPath(req.FileName)
	node, result, info, status := fs.Create(ctx, parentNodeFromPath(parent), name, req.Create)
	if status != StatusSuccess {
		return Response{Status: status}
	}

	return Response{
		Status:      StatusSuccess,
		Information: uint64(result),
		Payload:     encodeNodeAndInfo(node, info),
	}
}

func handleOpen(ctx context.Context, fs FileSystem, req *Request) Response {
	if req.Open == nil {
		return Response{Status: StatusInvalidParameter}
	}

	parent, name := splitPath(req.FileName)
	node, info, status := fs.Open(ctx, parentNodeFromPath(parent), name, req.Open)
	if status != StatusSuccess {
		return Response{Status: status}
	}
	return Response{
		Status:      StatusSuccess,
		Information: uint64(FileOpened),
		Payload:     encodeNodeAndInfo(node, info),
	}
}

func handleOverwrite(ctx context.Context, fs FileSystem, req *Request) Response {
	if req.Overwrite == nil {
		return Response{Status: StatusInvalidParameter}
	}
	info, status := fs.Overwrite(ctx, nodeIDFromRequest(req), req.Overwrite.FileAttributes, req.Overwrite.ReplaceAttributes)
	if status != StatusSuccess {
		return Response{Status: status}
	}
	return Response{Status: StatusSuccess, Information: uint64(FileOverwritten), Payload: encodeInfo(info)}
}

func handleCleanup(ctx context.Context, fs FileSystem, req *Request) Response {
	_, name := splitPath(req.FileName)
	fs.Cleanup(ctx, nodeIDFromRequest(req), name, req.DeleteOnClose)
	return Response{Status: StatusSuccess}
}

func handleClose(ctx context.Context, fs FileSystem, req *Request) Response {
	fs.Close(ctx, nodeIDFromRequest(req))
	return Response{Status: StatusSuccess}
}

func handleRead(ctx context.Context, fs FileSystem, req *Request) Response {
	if req.Read == nil {
		return Response{Status: StatusInvalidParameter}
	}
	data, status := fs.Read(ctx, nodeIDFromRequest(req), req.Read)
	if status != StatusSuccess {
		return Response{Status: status}
	}
	return Response{Status: StatusSuccess, Information: uint64(len(data)), Payload: data}
}

func handleWrite(ctx context.Context, fs FileSystem, req *Request) Response {
	if req.Write == nil {
		return Response{Status: StatusInvalidParameter}
	}
	n, status := fs.Write(ctx, nodeIDFromRequest(req), req.Write)
	if status != StatusSuccess {
		return Response{Status: status}
	}
	return Response{Status: StatusSuccess, Information: uint64(n)}
}

func handleFlush(ctx context.Context, fs FileSystem, req *Request) Response {
	info, status := fs.Flush(ctx, nodeIDFromRequest(req))
	if status != StatusSuccess {
		return Response{Status: status}
	}
	return Response{Status: StatusSuccess, Payload: encodeInfo(info)}
}

func handleQueryInformation(ctx context.Context, fs FileSystem, req *Request) Response {
	info, status := fs.QueryInformation(ctx, nodeIDFromRequest(req))
	if status != StatusSuccess {
		return Response{Status: status}
	}
	return Response{Status: StatusSuccess, Payload: encodeInfo(info)}
}

func handleSetInformation(ctx context.Context, fs FileSystem, req *Request) Response {
	if req.SetInfo == nil {
		return Response{Status: StatusInvalidParameter}
	}
	info, status := fs.SetInformation(ctx, nodeIDFromRequest(req), req.SetInfo)
	if status != StatusSuccess {
		return Response{Status: status}
	}
	return Response{Status: StatusSuccess, Payload: encodeInfo(info)}
}

func handleQueryDirectory(ctx context.Context, fs FileSystem, req *Request) Response {
	if req.QueryDir == nil {
		return Response{Status: StatusInvalidParameter}
	}
	if req.QueryDir.Pattern != "" && !ValidatePattern(req.QueryDir.Pattern) {
		return Response{Status: StatusObjectNameInvalid}
	}

	var collected collectingFiller
	status := fs.QueryDirectory(ctx, nodeIDFromRequest(req), req.QueryDir, &collected)
	if status != StatusSuccess {
		return Response{Status: status}
	}
	if len(collected.entries) == 0 {
		return Response{Status: StatusNoMoreFiles}
	}
	return Response{Status: StatusSuccess, Payload: encodeDirEntries(collected.entries)}
}

func handleQuerySecurity(ctx context.Context, fs FileSystem, req *Request) Response {
	sd, status := fs.QuerySecurity(ctx, nodeIDFromRequest(req), req.QuerySecurityInformation)
	if status != StatusSuccess {
		return Response{Status: status}
	}
	return Response{Status: StatusSuccess, Payload: sd}
}

func handleSetSecurity(ctx context.Context, fs FileSystem, req *Request) Response {
	if req.SetSec == nil {
		return Response{Status: StatusInvalidParameter}
	}
	status := fs.SetSecurity(ctx, nodeIDFromRequest(req), req.SetSec)
	return Response{Status: status}
}

func handleQueryVolumeInformation(ctx context.Context, fs FileSystem, req *Request) Response {
	info, status := fs.QueryVolumeInformation(ctx)
	if status != StatusSuccess {
		return Response{Status: status}
	}
	return Response{Status: StatusSuccess, Payload: encodeVolumeInfo(info)}
}

// parentNodeFromPath returns NodeID 0 for every path: it does not resolve
// the parent directory path, so handleCreate and handleOpen always pass
// parent 0 to FileSystem.Create and FileSystem.Open.
func parentNodeFromPath(path string) NodeID {
	return 0
}

// collectingFiller adapts the DirectoryFiller contract to an in-memory
// slice for handlers that don't need package dirbuf's persistence across
// calls (e.g. FileSystem implementations that regenerate a directory
// listing fresh on each QueryDirectory).
type collectingFiller struct {
	entries []DirEntry
}

func (c *collectingFiller) Append(name string, info FileInfo) bool {
	c.entries = append(c.entries, DirEntry{Name: name, Info: info})
	return true
}

func encodeNodeAndInfo(node NodeID, info FileInfo) []byte {
	buf := make([]byte, 8+fileInfoSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(node))
	encodeFileInfoInto(buf[8:], info)
	return buf
}

const fileInfoSize = 4 + 4 + 8 + 8 + 8*4 + 8 + 4 + 4

func encodeInfo(info FileInfo) []byte {
	buf := make([]byte, fileInfoSize)
	encodeFileInfoInto(buf, info)
	return buf
}

func encodeFileInfoInto(buf []byte, info FileInfo) {
	binary.LittleEndian.PutUint32(buf[0:4], info.FileAttributes)
	binary.LittleEndian.PutUint32(buf[4:8], info.ReparseTag)
	binary.LittleEndian.PutUint64(buf[8:16], info.AllocationSize)
	binary.LittleEndian.PutUint64(buf[16:24], info.FileSize)
	binary.LittleEndian.PutUint64(buf[24:32], uint64(info.CreationTime.UnixNano()))
	binary.LittleEndian.PutUint64(buf[32:40], uint64(info.LastAccessTime.UnixNano()))
	binary.LittleEndian.PutUint64(buf[40:48], uint64(info.LastWriteTime.UnixNano()))
	binary.LittleEndian.PutUint64(buf[48:56], uint64(info.ChangeTime.UnixNano()))
	binary.LittleEndian.PutUint64(buf[56:64], info.IndexNumber)
	binary.LittleEndian.PutUint32(buf[64:68], info.HardLinks)
	binary.LittleEndian.PutUint32(buf[68:72], info.EaSize)
}

func encodeDirEntries(entries []DirEntry) []byte {
	var buf []byte
	for _, e := range entries {
		nameBytes := encodeUTF16(e.Name)
		rec := make([]byte, 2+len(nameBytes)+fileInfoSize)
		binary.LittleEndian.PutUint16(rec[0:2], uint16(len(nameBytes)))
		copy(rec[2:], nameBytes)
		encodeFileInfoInto(rec[2+len(nameBytes):], e.Info)
		buf = append(buf, rec...)
	}
	return buf
}

func encodeVolumeInfo(v VolumeInfo) []byte {
	nameBytes := encodeUTF16(v.VolumeLabel)
	buf := make([]byte, 8+8+4+4+2+len(nameBytes))
	binary.LittleEndian.PutUint64(buf[0:8], v.TotalAllocationUnits)
	binary.LittleEndian.PutUint64(buf[8:16], v.AvailableAllocationUnits)
	binary.LittleEndian.PutUint32(buf[16:20], v.SectorsPerAllocationUnit)
	binary.LittleEndian.PutUint32(buf[20:24], v.BytesPerSector)
	binary.LittleEndian.PutUint16(buf[24:26], uint16(len(nameBytes)))
	copy(buf[26:], nameBytes)
	return buf
}
