// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package fsprt

import (
	"context"
	"fmt"

	"golang.org/x/sys/windows"
)

// controlDeviceFormat is the device path the kernel driver exposes for a
// newly created volume, keyed by VolumeParams.FileSystemName. Modeled on the reference implementation's \\.\<VolumeName> convention;
// the exact name is assigned by the driver at volume-create time and
// returned through this path once the FSCTL_CREATE_FILE-equivalent call
// completes (represented here by Windows CreateFile against the control
// device registered for FileSystemName).
const controlDeviceFormat = `\\.\%s`

// MountedVolume is the running handle for one mounted volume: the
// goroutine pool servicing it, and the means to wait for or force its
// unmounting. It mirrors the teacher's MountedFileSystem, generalized
// from a single bazilfuse connection to this runtime's N-thread
// dispatcher pool (spec.md §4.C).
type MountedVolume struct {
	mountPoint string
	dispatcher *dispatcher

	joinStatus          error
	joinStatusAvailable chan struct{}
}

// Dir returns the directory or drive letter the volume is mounted on (or
// where mounting was attempted).
func (mv *MountedVolume) Dir() string {
	return mv.mountPoint
}

// Join blocks until the volume has been unmounted, returning the first
// terminal error observed by any dispatcher thread (nil on a clean
// unmount). May be called multiple times.
func (mv *MountedVolume) Join(ctx context.Context) error {
	select {
	case <-mv.joinStatusAvailable:
		return mv.joinStatus
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unmount requests that the volume be torn down by closing its channel,
// which unblocks every dispatcher thread's in-flight transact call.
func (mv *MountedVolume) Unmount() error {
	return mv.dispatcher.channel.Close()
}

// Stats returns a snapshot of the dispatcher's operation counters
// (spec.md §4.C).
func (mv *MountedVolume) Stats() Stats {
	return mv.dispatcher.Stats()
}

// MountOptions configures a Mount call beyond what VolumeParams itself
// carries: the guard strategy, the thread count override, and debug
// logging (spec.md §4.C).
type MountOptions struct {
	Guard       GuardStrategy
	ThreadCount int // 0 selects defaultThreadCount()
	DebugLog    uint64
}

// Mount opens the control device named by params.FileSystemName for fs,
// then spawns the dispatcher thread pool to service it. mountPoint is
// recorded for Dir and is not passed to the kernel. It blocks only long
// enough to open the control device; serving happens in the background,
// matching the teacher's Mount, which returns once its bazilfuse
// connection is ready rather than waiting for unmount.
func Mount(mountPoint string, fs FileSystem, params VolumeParams, opts MountOptions) (*MountedVolume, error) {
	if params.SectorSize == 0 {
		defaults := defaultVolumeParams()
		params.SectorSize = defaults.SectorSize
		params.SectorsPerAllocationUnit = defaults.SectorsPerAllocationUnit
		if params.MaxComponentLength == 0 {
			params.MaxComponentLength = defaults.MaxComponentLength
		}
	}

	devicePath := fmt.Sprintf(controlDeviceFormat, params.FileSystemName)
	pathPtr, err := windows.UTF16PtrFromString(devicePath)
	if err != nil {
		return nil, fmt.Errorf("fsprt: encoding device path: %w", err)
	}

	handle, err := windows.CreateFile(
		pathPtr,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_OVERLAPPED,
		0)
	if err != nil {
		return nil, fmt.Errorf("fsprt: opening control device %s: %w", devicePath, err)
	}

	channel := newWindowsChannel(handle)
	d := newDispatcher(fs, channel, opts.Guard, opts.ThreadCount, opts.DebugLog)

	mv := &MountedVolume{
		mountPoint:          mountPoint,
		dispatcher:          d,
		joinStatusAvailable: make(chan struct{}),
	}

	go func() {
		mv.joinStatus = d.run()
		close(mv.joinStatusAvailable)
	}()

	return mv, nil
}
