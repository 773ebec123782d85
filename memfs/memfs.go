// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

// Package memfs is a demonstration FileSystem backed entirely by
// process memory: an inode table protected by per-inode invariant
// checking, in the same spirit as the reference in-memory sample but
// reshaped for the CREATE/OPEN/OVERWRITE disposition model and
// NodeID-addressed handles this runtime uses instead of FUSE's
// lookup-by-parent-and-name convention.
package memfs

import (
	"context"
	"fmt"
	"sync"

	"github.com/jacobsa/syncutil"
	"github.com/jacobsa/timeutil"

	fsprt "github.com/gofsprt/gofsprt"
)

const rootNode fsprt.NodeID = 1

// inode is one file or directory's state, guarded by its own invariant
// mutex so a concurrency bug in a handler panics immediately rather than
// silently corrupting the tree (grounded on the reference sample's
// inode.checkInvariants pattern).
type inode struct {
	mu syncutil.InvariantMutex

	id       fsprt.NodeID
	isDir    bool
	info     fsprt.FileInfo
	contents []byte
	children map[string]fsprt.NodeID // GUARDED_BY(mu); dir only
}

func (in *inode) checkInvariants() {
	if !in.isDir && in.children != nil {
		panic(fmt.Sprintf("node %d: non-directory has children", in.id))
	}
	if in.isDir && uint64(len(in.contents)) != 0 {
		panic(fmt.Sprintf("node %d: directory has contents", in.id))
	}
	if in.info.FileSize != uint64(len(in.contents)) {
		panic(fmt.Sprintf("node %d: FileSize %d != len(contents) %d", in.id, in.info.FileSize, len(in.contents)))
	}
}

// FS is a memfs.FileSystem instance. The zero value is not usable; use
// New.
type FS struct {
	clock timeutil.Clock

	mu     sync.Mutex // guards nextID and nodes
	nextID fsprt.NodeID
	nodes  map[fsprt.NodeID]*inode

	fsprt.NotImplementedFileSystem
}

// New returns a FileSystem with a single empty root directory.
func New(clock timeutil.Clock) *FS {
	fs := &FS{
		clock:  clock,
		nextID: rootNode + 1,
		nodes:  make(map[fsprt.NodeID]*inode),
	}

	root := &inode{
		id:       rootNode,
		isDir:    true,
		children: make(map[string]fsprt.NodeID),
	}
	root.mu = syncutil.NewInvariantMutex(root.checkInvariants)
	root.info.FileAttributes = fileAttributeDirectory
	root.info.CreationTime = clock.Now()
	root.info.LastWriteTime = root.info.CreationTime

	fs.nodes[rootNode] = root
	return fs
}

const (
	fileAttributeDirectory = 0x10
	fileAttributeNormal    = 0x80
)

func (fs *FS) alloc() fsprt.NodeID {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	id := fs.nextID
	fs.nextID++
	return id
}

func (fs *FS) node(id fsprt.NodeID) (*inode, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	in, ok := fs.nodes[id]
	return in, ok
}

func (fs *FS) Create(ctx context.Context, parent fsprt.NodeID, name string, req *fsprt.CreateRequest) (fsprt.NodeID, fsprt.CreateResult, fsprt.FileInfo, fsprt.Status) {
	parentIn, ok := fs.node(parent)
	if !ok {
		return 0, 0, fsprt.FileInfo{}, fsprt.StatusObjectPathNotFound
	}

	parentIn.mu.Lock()
	defer parentIn.mu.Unlock()

	if _, exists := parentIn.children[name]; exists {
		return 0, 0, fsprt.FileInfo{}, fsprt.StatusObjectNameCollision
	}

	id := fs.alloc()
	isDir := req.CreateOptions&0x1 != 0 // FILE_DIRECTORY_FILE
	in := &inode{id: id, isDir: isDir}
	in.mu = syncutil.NewInvariantMutex(in.checkInvariants)
	in.info.FileAttributes = req.FileAttributes
	if isDir {
		in.info.FileAttributes |= fileAttributeDirectory
		in.children = make(map[string]fsprt.NodeID)
	} else if in.info.FileAttributes == 0 {
		in.info.FileAttributes = fileAttributeNormal
	}
	in.info.CreationTime = fs.clock.Now()
	in.info.LastWriteTime = in.info.CreationTime
	in.info.LastAccessTime = in.info.CreationTime
	in.info.ChangeTime = in.info.CreationTime
	in.info.IndexNumber = uint64(id)

	fs.mu.Lock()
	fs.nodes[id] = in
	fs.mu.Unlock()

	parentIn.children[name] = id

	return id, fsprt.FileCreated, in.info, fsprt.StatusSuccess
}

func (fs *FS) Open(ctx context.Context, parent fsprt.NodeID, name string, req *fsprt.OpenRequest) (fsprt.NodeID, fsprt.FileInfo, fsprt.Status) {
	parentIn, ok := fs.node(parent)
	if !ok {
		return 0, fsprt.FileInfo{}, fsprt.StatusObjectPathNotFound
	}

	parentIn.mu.Lock()
	id, exists := parentIn.children[name]
	parentIn.mu.Unlock()
	if !exists {
		return 0, fsprt.FileInfo{}, fsprt.StatusObjectNameNotFound
	}

	in, _ := fs.node(id)
	in.mu.Lock()
	defer in.mu.Unlock()
	return id, in.info, fsprt.StatusSuccess
}

func (fs *FS) Overwrite(ctx context.Context, node fsprt.NodeID, attrs uint32, replace bool) (fsprt.FileInfo, fsprt.Status) {
	in, ok := fs.node(node)
	if !ok {
		return fsprt.FileInfo{}, fsprt.StatusObjectPathNotFound
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	in.contents = in.contents[:0]
	in.info.FileSize = 0
	if replace {
		in.info.FileAttributes = attrs
	} else {
		in.info.FileAttributes |= attrs
	}
	in.info.LastWriteTime = fs.clock.Now()
	return in.info, fsprt.StatusSuccess
}

func (fs *FS) Cleanup(ctx context.Context, node fsprt.NodeID, name string, deleteOnClose bool) {
	if !deleteOnClose {
		return
	}
	fs.mu.Lock()
	delete(fs.nodes, node)
	fs.mu.Unlock()
}

func (fs *FS) Close(ctx context.Context, node fsprt.NodeID) {}

func (fs *FS) Read(ctx context.Context, node fsprt.NodeID, req *fsprt.ReadRequest) ([]byte, fsprt.Status) {
	in, ok := fs.node(node)
	if !ok {
		return nil, fsprt.StatusObjectPathNotFound
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	if req.Offset >= uint64(len(in.contents)) {
		return nil, fsprt.StatusEndOfFile
	}
	end := req.Offset + uint64(req.Length)
	if end > uint64(len(in.contents)) {
		end = uint64(len(in.contents))
	}
	out := make([]byte, end-req.Offset)
	copy(out, in.contents[req.Offset:end])
	return out, fsprt.StatusSuccess
}

func (fs *FS) Write(ctx context.Context, node fsprt.NodeID, req *fsprt.WriteRequest) (uint32, fsprt.Status) {
	in, ok := fs.node(node)
	if !ok {
		return 0, fsprt.StatusObjectPathNotFound
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	end := req.Offset + uint64(len(req.Data))
	if end > uint64(len(in.contents)) {
		padded := make([]byte, end-uint64(len(in.contents)))
		in.contents = append(in.contents, padded...)
	}
	copy(in.contents[req.Offset:end], req.Data)
	in.info.FileSize = uint64(len(in.contents))
	in.info.LastWriteTime = fs.clock.Now()
	return uint32(len(req.Data)), fsprt.StatusSuccess
}

func (fs *FS) Flush(ctx context.Context, node fsprt.NodeID) (fsprt.FileInfo, fsprt.Status) {
	in, ok := fs.node(node)
	if !ok {
		return fsprt.FileInfo{}, fsprt.StatusObjectPathNotFound
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.info, fsprt.StatusSuccess
}

func (fs *FS) QueryInformation(ctx context.Context, node fsprt.NodeID) (fsprt.FileInfo, fsprt.Status) {
	return fs.Flush(ctx, node)
}

func (fs *FS) SetInformation(ctx context.Context, node fsprt.NodeID, req *fsprt.SetInformationRequest) (fsprt.FileInfo, fsprt.Status) {
	in, ok := fs.node(node)
	if !ok {
		return fsprt.FileInfo{}, fsprt.StatusObjectPathNotFound
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	if req.EndOfFile != nil {
		n := int(*req.EndOfFile)
		if n <= len(in.contents) {
			in.contents = in.contents[:n]
		} else {
			in.contents = append(in.contents, make([]byte, n-len(in.contents))...)
		}
		in.info.FileSize = uint64(n)
	}
	if req.BasicInfo != nil {
		if req.BasicInfo.FileAttributes != 0 {
			in.info.FileAttributes = req.BasicInfo.FileAttributes
		}
	}
	in.info.LastWriteTime = fs.clock.Now()
	return in.info, fsprt.StatusSuccess
}

func (fs *FS) QueryDirectory(ctx context.Context, node fsprt.NodeID, req *fsprt.QueryDirectoryRequest, buf fsprt.DirectoryFiller) fsprt.Status {
	in, ok := fs.node(node)
	if !ok {
		return fsprt.StatusObjectPathNotFound
	}
	if !in.isDir {
		return fsprt.StatusNotADirectory
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	for name, id := range in.children {
		child, ok := fs.node(id)
		if !ok {
			continue
		}
		child.mu.Lock()
		info := child.info
		child.mu.Unlock()
		if !buf.Append(name, info) {
			break
		}
	}
	return fsprt.StatusSuccess
}

func (fs *FS) QuerySecurity(ctx context.Context, node fsprt.NodeID, securityInformation uint32) ([]byte, fsprt.Status) {
	return nil, fsprt.StatusSuccess
}

func (fs *FS) SetSecurity(ctx context.Context, node fsprt.NodeID, req *fsprt.SetSecurityRequest) fsprt.Status {
	return fsprt.StatusSuccess
}

func (fs *FS) QueryVolumeInformation(ctx context.Context) (fsprt.VolumeInfo, fsprt.Status) {
	return fsprt.VolumeInfo{
		TotalAllocationUnits:     1 << 20,
		AvailableAllocationUnits: 1 << 19,
		SectorsPerAllocationUnit: 1,
		BytesPerSector:           512,
		VolumeLabel:              "memfs",
	}, fsprt.StatusSuccess
}

var _ fsprt.FileSystem = (*FS)(nil)
