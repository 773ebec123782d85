// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package fsprt

import "golang.org/x/sys/windows"

// Status is the NTSTATUS-shaped result of a FileSystem operation. Zero
// (windows.STATUS_SUCCESS) means success; any other value is reported to
// the kernel as the IoStatus.Status of the response.
//
// File systems return a plain Status from every handler. The dispatcher is
// responsible for recognizing the internal-only bits layered on top of it
// (see internalStatus in dispatch.go) and stripping them before the
// response crosses the wire; a FileSystem implementation never needs to
// know about those bits.
type Status windows.NTStatus

func (s Status) Error() string {
	return windows.NTStatus(s).Error()
}

// Errors corresponding to kernel NTSTATUS codes, reproduced here so that
// FileSystem implementations do not need to import golang.org/x/sys/windows
// themselves for the common cases. Grouped per the taxonomy in spec.md §7.
const (
	StatusSuccess Status = Status(windows.STATUS_SUCCESS)

	// Access
	StatusAccessDenied    Status = Status(windows.STATUS_ACCESS_DENIED)
	StatusCannotDelete    Status = Status(windows.STATUS_CANNOT_DELETE)
	StatusSharingViolation Status = Status(windows.STATUS_SHARING_VIOLATION)

	// Name / path
	StatusObjectNameNotFound  Status = Status(windows.STATUS_OBJECT_NAME_NOT_FOUND)
	StatusObjectPathNotFound  Status = Status(windows.STATUS_OBJECT_PATH_NOT_FOUND)
	StatusObjectNameCollision Status = Status(windows.STATUS_OBJECT_NAME_COLLISION)
	StatusObjectNameInvalid   Status = Status(windows.STATUS_OBJECT_NAME_INVALID)
	StatusNameTooLong         Status = Status(windows.STATUS_NAME_TOO_LONG)

	// Classification
	StatusNotADirectory    Status = Status(windows.STATUS_NOT_A_DIRECTORY)
	StatusFileIsADirectory Status = Status(windows.STATUS_FILE_IS_A_DIRECTORY)

	// Reparse
	StatusReparse Status = Status(windows.STATUS_REPARSE)

	// Buffer
	StatusBufferOverflow      Status = Status(windows.STATUS_BUFFER_OVERFLOW)
	StatusInsufficientResources Status = Status(windows.STATUS_INSUFFICIENT_RESOURCES)

	// Device / channel
	StatusInvalidDeviceRequest Status = Status(windows.STATUS_INVALID_DEVICE_REQUEST)
	StatusInvalidParameter     Status = Status(windows.STATUS_INVALID_PARAMETER)

	// Misc used by the create pipeline and handlers.
	StatusNoSuchFile       Status = Status(windows.STATUS_NO_SUCH_FILE)
	StatusNoMoreFiles      Status = Status(windows.STATUS_NO_MORE_FILES)
	StatusEndOfFile        Status = Status(windows.STATUS_END_OF_FILE)
	StatusNotImplemented   Status = Status(windows.STATUS_NOT_IMPLEMENTED)
	StatusDirectoryNotEmpty Status = Status(windows.STATUS_DIRECTORY_NOT_EMPTY)
)

// Information values placed in the IoStatus.Information field of a
// successful CREATE-class response, mirroring the table in spec.md §4.F.
type CreateResult uint32

const (
	FileSuperseded CreateResult = 0
	FileOpened     CreateResult = 1
	FileCreated    CreateResult = 2
	FileOverwritten CreateResult = 3
	FileExists      CreateResult = 4
	FileDoesNotExist CreateResult = 5
)
