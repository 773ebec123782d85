// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package fsprt

import "strings"

// splitPath splits a `\`-separated path into its last component and the
// remainder (without allocating a slice of components), the decomposition
// the create/access-check pipeline walks one element at a time (spec.md
// §4.D). An empty parent means path has a single component.
func splitPath(path string) (parent, name string) {
	idx := strings.LastIndexByte(path, '\\')
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

// splitFirst splits off the first path component, after dropping one
// leading separator, so a path can be descended one level at a time.
func splitFirst(path string) (first, rest string) {
	path = strings.TrimPrefix(path, `\`)
	idx := strings.IndexByte(path, '\\')
	if idx < 0 {
		return path, ""
	}
	return path[:idx], path[idx+1:]
}

// joinPath rejoins a parent and a name with a single separator, collapsing
// the case where parent is the root ("").
func joinPath(parent, name string) string {
	if parent == "" || parent == `\` {
		return `\` + name
	}
	return parent + `\` + name
}

// splitStreamName separates the file portion of a path from a trailing
// `:stream` or `:stream:type` qualifier, per spec.md §4.E's NTFS stream
// syntax.
func splitStreamName(name string) (file, stream string) {
	idx := strings.IndexByte(name, ':')
	if idx < 0 {
		return name, ""
	}
	return name[:idx], name[idx+1:]
}
