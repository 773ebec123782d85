// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fsprt is the core of a user-mode file-system runtime for Windows.
//
// A process that wants to implement a file system in user space links this
// package, implements the FileSystem interface, and calls Mount. From then
// on an in-kernel file-system driver forwards every I/O request (an IRP) to
// this package over a transact channel; the package decodes each request,
// dispatches it to the matching FileSystem method on a pool of worker
// threads, and writes back a correlated response.
//
// The primary elements of interest are:
//
//  *  The FileSystem interface, which defines the methods a file system must
//     implement.
//
//  *  NotImplementedFileSystem, which may be embedded to obtain default
//     implementations for all methods that are not of interest to a
//     particular file system.
//
//  *  Mount, a function that mounts a FileSystem and serves requests from
//     the kernel until it is unmounted.
//
// The hard parts live in this package (dispatch.go, transact.go,
// codec.go) and in package security (the create/access-check pipeline),
// package dirbuf (the directory enumeration buffer), and package reparse
// (the reparse-point builder). Package launcher and package uuid5 are
// standalone subsystems with no runtime coupling to the dispatcher.
//
// This package does not implement a file system; it is the runtime that
// file systems are written against. See package memfs for a minimal,
// fully in-memory example, and cmd/mountmemfs for how to wire it to Mount.
package fsprt
