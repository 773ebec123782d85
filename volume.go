// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package fsprt

import "time"

// DeviceKind distinguishes the two kernel device classes a volume can be
// created under (spec.md §3, "device-kind {Disk, Net}").
type DeviceKind int

const (
	DeviceDisk DeviceKind = iota
	DeviceNet
)

// VolumeParams is the creation-time configuration of a volume (spec.md
// §3, "VolumeParams"). Mount uses FileSystemName to locate the control
// device and fills in sector and component-length defaults; it does not
// send the other fields to the kernel device.
type VolumeParams struct {
	SectorSize       uint16
	SectorsPerAllocationUnit uint16
	VolumeSerialNumber uint32
	VolumeCreationTime time.Time
	MaxComponentLength uint16

	CaseSensitive           bool
	PersistentACLs          bool
	ReparsePoints           bool
	NamedStreams            bool
	PostCleanupWhenModifiedOnly bool
	FileContextIsFullContext    bool

	DeviceKind DeviceKind

	FileSystemName string
	Prefix         string // UNC prefix, meaningful only when DeviceKind == DeviceNet
}

// defaultVolumeParams fills in the values the reference implementation
// treats as sane defaults (512-byte sectors, one sector per allocation
// unit, disk device), leaving everything domain-specific for the caller
// to override.
func defaultVolumeParams() VolumeParams {
	return VolumeParams{
		SectorSize:               512,
		SectorsPerAllocationUnit: 1,
		MaxComponentLength:       MaxComponentLength,
		PersistentACLs:           true,
		ReparsePoints:            true,
		NamedStreams:             true,
		DeviceKind:               DeviceDisk,
	}
}
