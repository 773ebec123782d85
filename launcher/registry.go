// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package launcher

import (
	"fmt"
	"strings"

	"golang.org/x/sys/windows/registry"
)

// RegistryKeyPath is the well-known key under which one subkey per class
// holds a ServiceRecord.
const RegistryKeyPath = `SOFTWARE\gofsprt\Services`

// ServiceRecord is the fixed schema of a registered file-system service:
// eight optional string fields and four DWORDs, per spec.md §3.
type ServiceRecord struct {
	Agent         string
	Executable    string
	CommandLine   string
	WorkDirectory string
	RunAs         string
	Security      string
	AuthPackage   string
	Stderr        string

	JobControl   uint32
	Credentials  uint32
	AuthPackageID uint32
	Recovery     uint32
}

const defaultJobControl = 1

// jobControlUnset is the `~0` sentinel meaning "do not write this field",
// distinguishing "absent" from "explicitly zero" when persisting a
// record (spec.md §9 Open Questions).
const jobControlUnset = ^uint32(0)

// Load reads the ServiceRecord stored under class's subkey of
// RegistryKeyPath. A missing Executable value is reported as
// StatusObjectNameNotFound-equivalent: the caller cannot start a service
// it cannot find an executable for.
func Load(class string) (ServiceRecord, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, RegistryKeyPath+`\`+class, registry.QUERY_VALUE)
	if err != nil {
		return ServiceRecord{}, fmt.Errorf("launcher: opening service key %s: %w", class, err)
	}
	defer k.Close()

	return readRecord(k)
}

// LoadAll enumerates every registered class under RegistryKeyPath and
// returns its ServiceRecord, skipping (rather than failing on) any
// subkey whose Executable value is missing, matching launchctl's `list`
// command semantics of only reporting startable services.
func LoadAll() (map[string]ServiceRecord, error) {
	root, err := registry.OpenKey(registry.LOCAL_MACHINE, RegistryKeyPath, registry.READ)
	if err != nil {
		return nil, fmt.Errorf("launcher: opening %s: %w", RegistryKeyPath, err)
	}
	defer root.Close()

	names, err := root.ReadSubKeyNames(-1)
	if err != nil {
		return nil, fmt.Errorf("launcher: enumerating %s: %w", RegistryKeyPath, err)
	}

	out := make(map[string]ServiceRecord, len(names))
	for _, name := range names {
		rec, err := Load(name)
		if err != nil {
			continue
		}
		out[name] = rec
	}
	return out, nil
}

// MatchesAgent reports whether this record's comma-separated Agent filter
// accepts a reader identifying itself as agent (case-insensitive,
// per-entry match).
func (r ServiceRecord) MatchesAgent(agent string) bool {
	if r.Agent == "" {
		return true
	}
	for _, entry := range strings.Split(r.Agent, ",") {
		if strings.EqualFold(strings.TrimSpace(entry), agent) {
			return true
		}
	}
	return false
}

func readRecord(k registry.Key) (ServiceRecord, error) {
	var rec ServiceRecord

	rec.Agent, _, _ = k.GetStringValue("Agent")
	rec.Executable, _, _ = k.GetStringValue("Executable")
	rec.CommandLine, _, _ = k.GetStringValue("CommandLine")
	rec.WorkDirectory, _, _ = k.GetStringValue("WorkDirectory")
	rec.RunAs, _, _ = k.GetStringValue("RunAs")
	rec.Security, _, _ = k.GetStringValue("Security")
	rec.AuthPackage, _, _ = k.GetStringValue("AuthPackage")
	rec.Stderr, _, _ = k.GetStringValue("Stderr")

	if rec.Executable == "" {
		return rec, fmt.Errorf("launcher: service record missing Executable (OBJECT_NAME_NOT_FOUND)")
	}

	jobControl, _, err := k.GetIntegerValue("JobControl")
	if err != nil {
		rec.JobControl = defaultJobControl
	} else {
		rec.JobControl = uint32(jobControl)
	}

	rec.Credentials = getDWORDOrZero(k, "Credentials")
	rec.AuthPackageID = getDWORDOrZero(k, "AuthPackageId")
	rec.Recovery = getDWORDOrZero(k, "Recovery")

	return rec, nil
}

func getDWORDOrZero(k registry.Key, name string) uint32 {
	v, _, err := k.GetIntegerValue(name)
	if err != nil {
		return 0
	}
	return uint32(v)
}

// Save writes rec under class's subkey, creating it if necessary. A
// DWORD field equal to jobControlUnset (JobControl only) is left
// unwritten rather than stored, preserving the registry default-on-read
// behavior for callers that want to defer to it explicitly.
func Save(class string, rec ServiceRecord) error {
	k, _, err := registry.CreateKey(registry.LOCAL_MACHINE, RegistryKeyPath+`\`+class, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("launcher: creating service key %s: %w", class, err)
	}
	defer k.Close()

	setStringIfNonEmpty(k, "Agent", rec.Agent)
	if err := k.SetStringValue("Executable", rec.Executable); err != nil {
		return fmt.Errorf("launcher: writing Executable: %w", err)
	}
	setStringIfNonEmpty(k, "CommandLine", rec.CommandLine)
	setStringIfNonEmpty(k, "WorkDirectory", rec.WorkDirectory)
	setStringIfNonEmpty(k, "RunAs", rec.RunAs)
	setStringIfNonEmpty(k, "Security", rec.Security)
	setStringIfNonEmpty(k, "AuthPackage", rec.AuthPackage)
	setStringIfNonEmpty(k, "Stderr", rec.Stderr)

	if rec.JobControl != jobControlUnset {
		k.SetDWordValue("JobControl", rec.JobControl)
	}
	k.SetDWordValue("Credentials", rec.Credentials)
	k.SetDWordValue("AuthPackageId", rec.AuthPackageID)
	k.SetDWordValue("Recovery", rec.Recovery)

	return nil
}

func setStringIfNonEmpty(k registry.Key, name, value string) {
	if value != "" {
		k.SetStringValue(name, value)
	}
}
