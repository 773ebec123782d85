// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package fsprt

import "context"

// NotImplementedFileSystem may be embedded within a file system type to
// inherit default implementations of every FileSystem method, each
// returning StatusNotImplemented. A file system embeds it and overrides
// only the methods it cares about.
type NotImplementedFileSystem struct {
}

var _ FileSystem = &NotImplementedFileSystem{}

func (fs *NotImplementedFileSystem) Create(ctx context.Context, parent NodeID, name string, req *CreateRequest) (NodeID, CreateResult, FileInfo, Status) {
	return 0, FileDoesNotExist, FileInfo{}, StatusNotImplemented
}

func (fs *NotImplementedFileSystem) Open(ctx context.Context, parent NodeID, name string, req *OpenRequest) (NodeID, FileInfo, Status) {
	return 0, FileInfo{}, StatusNotImplemented
}

func (fs *NotImplementedFileSystem) Overwrite(ctx context.Context, node NodeID, fileAttributes uint32, replaceAttributes bool) (FileInfo, Status) {
	return FileInfo{}, StatusNotImplemented
}

func (fs *NotImplementedFileSystem) Cleanup(ctx context.Context, node NodeID, name string, deleteOnClose bool) {
}

func (fs *NotImplementedFileSystem) Close(ctx context.Context, node NodeID) {
}

func (fs *NotImplementedFileSystem) Read(ctx context.Context, node NodeID, req *ReadRequest) ([]byte, Status) {
	return nil, StatusNotImplemented
}

func (fs *NotImplementedFileSystem) Write(ctx context.Context, node NodeID, req *WriteRequest) (uint32, Status) {
	return 0, StatusNotImplemented
}

func (fs *NotImplementedFileSystem) Flush(ctx context.Context, node NodeID) (FileInfo, Status) {
	return FileInfo{}, StatusNotImplemented
}

func (fs *NotImplementedFileSystem) QueryInformation(ctx context.Context, node NodeID) (FileInfo, Status) {
	return FileInfo{}, StatusNotImplemented
}

func (fs *NotImplementedFileSystem) SetInformation(ctx context.Context, node NodeID, req *SetInformationRequest) (FileInfo, Status) {
	return FileInfo{}, StatusNotImplemented
}

func (fs *NotImplementedFileSystem) QueryDirectory(ctx context.Context, node NodeID, req *QueryDirectoryRequest, buf DirectoryFiller) Status {
	return StatusNotImplemented
}

func (fs *NotImplementedFileSystem) QuerySecurity(ctx context.Context, node NodeID, securityInformation uint32) ([]byte, Status) {
	return nil, StatusNotImplemented
}

func (fs *NotImplementedFileSystem) SetSecurity(ctx context.Context, node NodeID, req *SetSecurityRequest) Status {
	return StatusNotImplemented
}

func (fs *NotImplementedFileSystem) QueryVolumeInformation(ctx context.Context) (VolumeInfo, Status) {
	return VolumeInfo{}, StatusNotImplemented
}

func (fs *NotImplementedFileSystem) GetEa(ctx context.Context, node NodeID) ([]byte, Status) {
	return nil, StatusNotImplemented
}

func (fs *NotImplementedFileSystem) SetEa(ctx context.Context, node NodeID, ea []byte) (FileInfo, Status) {
	return FileInfo{}, StatusNotImplemented
}
