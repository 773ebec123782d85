// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package main

import (
	"context"
	"flag"
	"log"

	"github.com/jacobsa/timeutil"

	fsprt "github.com/gofsprt/gofsprt"
	"github.com/gofsprt/gofsprt/memfs"
)

var (
	fMountPoint     = flag.String("mount_point", "", "Drive letter or directory to mount on, e.g. Z:")
	fFileSystemName = flag.String("fs_name", "gofsprt-memfs", "Name registered with the kernel control device.")
)

func main() {
	flag.Parse()

	if *fMountPoint == "" {
		log.Fatalf("You must set -mount_point.")
	}

	server := memfs.New(timeutil.RealClock())

	params := fsprt.VolumeParams{
		FileSystemName: *fFileSystemName,
	}

	mv, err := fsprt.Mount(*fMountPoint, server, params, fsprt.MountOptions{Guard: fsprt.GuardFine})
	if err != nil {
		log.Fatalf("Mount: %v", err)
	}

	if err := mv.Join(context.Background()); err != nil {
		log.Fatalf("Join: %v", err)
	}
}
