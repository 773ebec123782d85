// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package fsprt

// RequestKind identifies the shape of a Request's per-kind union, and
// indexes the FileSystem's operation table (spec.md §3, "OperationTable").
type RequestKind uint32

const (
	KindCreate RequestKind = iota
	KindOpen
	KindOverwrite
	KindCleanup
	KindClose
	KindRead
	KindWrite
	KindFlush
	KindQueryInformation
	KindSetInformation
	KindQueryDirectory
	KindQuerySecurity
	KindSetSecurity
	KindQueryVolumeInformation
	KindSetVolumeLabel
	KindQueryEa
	KindSetEa
	KindGetReparsePoint
	KindSetReparsePoint
	KindCanDelete

	// kindCount is one past the last real kind.
	kindCount
)

// Hint is the opaque correlation token carried by a Request and echoed back
// on its Response. The runtime sets it to a value that is unique among
// in-flight requests; the reference implementation uses the request's own
// memory address, but any unique value works (spec.md §4.B).
type Hint uint64

// wireHeaderSize is the size in bytes of the fixed leading portion of every
// Request and Response record: {u16 Size, u32 Kind, u64 Hint}. Records are
// padded to an 8-byte boundary when concatenated (spec.md §6).
const wireHeaderSize = 2 + 4 + 8

const wireAlignment = 8

// Maximum sizes from spec.md §6.
const (
	MaxRequestSize      = 64 * 1024
	MaxResponseBatchSize = 1024 * 1024
)

// Request is a single framed record read from the kernel transact channel.
// Ownership: produced by a channel read, consumed by exactly one handler
// call, unless the handler extends its lifetime across an asynchronous
// post (spec.md §3, "Request").
type Request struct {
	Size     uint16
	Kind     RequestKind
	Hint     Hint
	FileName string

	// Per-kind payload. Exactly one of these is populated, selected by Kind.
	// Modeled as a struct of pointers rather than a C union per REDESIGN
	// FLAGS ("alignment tricks ... use a packed struct with explicit
	// padding").
	Create    *CreateRequest
	Open      *OpenRequest
	Overwrite *OverwriteRequest
	Read      *ReadRequest
	Write     *WriteRequest
	SetInfo   *SetInformationRequest
	QueryDir  *QueryDirectoryRequest
	SetSec    *SetSecurityRequest

	// DeleteOnClose carries Cleanup's delete-on-close flag, and
	// QuerySecurityInformation carries QuerySecurity's requested parts
	// mask; neither warrants its own per-kind struct since each is a
	// single scalar.
	DeleteOnClose            bool
	QuerySecurityInformation uint32

	// node is the target of every non-Create operation, attached by the
	// transact layer while decoding the record (or by tests, via
	// SetRequestNode) since the wire representation addresses it by a
	// kernel-side handle rather than by path.
	node NodeID
}

// Response mirrors Request: {Size, Kind, Hint (== Request.Hint), IoStatus}.
// A Status of StatusPending (an internal-only marker, see internalStatus in
// dispatch.go) is never written to the wire; the dispatcher recognizes it
// and withholds the send entirely.
type Response struct {
	Size        uint16
	Kind        RequestKind
	Hint        Hint
	Status      Status
	Information uint64

	Payload []byte
}

// padToAlignment returns n rounded up to the next multiple of wireAlignment.
func padToAlignment(n int) int {
	rem := n % wireAlignment
	if rem == 0 {
		return n
	}
	return n + (wireAlignment - rem)
}
