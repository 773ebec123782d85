// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package fsprt

import (
	"strings"
	"unicode/utf16"
)

// MaxComponentLength is the longest a single path component may be,
// matching NTFS's 255 Unicode code unit limit.
const MaxComponentLength = 255

// StreamType classifies the `:type` suffix of a stream-qualified name, per
// the original driver's name-validation routine (spec.md §4.E).
type StreamType int

const (
	StreamTypeNone StreamType = iota
	StreamTypeData
)

// illegalNameChars is the set of characters NTFS rejects in a path
// component outside of the (single, trailing) stream qualifier.
const illegalNameChars = "\"*<>?|"

// ValidateFileName reports whether path is a legal NTFS path: each
// `\`-separated component is non-empty, at most MaxComponentLength units,
// contains none of illegalNameChars or a control character, has no
// embedded `\0`, and carries no more than two colons (one separating the
// stream name, one separating its type). Multiple adjacent backslashes
// are rejected, mirroring FspFileNameIsValid.
func ValidateFileName(path string) (stream string, streamType StreamType, ok bool) {
	if path == "" {
		return "", StreamTypeNone, false
	}

	components := strings.Split(path, `\`)
	for i, c := range components {
		if c == "" {
			// A leading empty component (absolute path) is fine; any other
			// position means adjacent backslashes.
			if i == 0 {
				continue
			}
			return "", StreamTypeNone, false
		}

		// Only the last component may carry a stream qualifier.
		body := c
		if i == len(components)-1 {
			var ok2 bool
			body, stream, streamType, ok2 = validateStreamQualifier(c)
			if !ok2 {
				return "", StreamTypeNone, false
			}
		} else if strings.ContainsRune(c, ':') {
			return "", StreamTypeNone, false
		}

		if len(utf16.Encode([]rune(body))) > MaxComponentLength {
			return "", StreamTypeNone, false
		}
		if !validNameChars(body) {
			return "", StreamTypeNone, false
		}
	}

	return stream, streamType, true
}

func validateStreamQualifier(component string) (body, stream string, streamType StreamType, ok bool) {
	parts := strings.Split(component, ":")
	switch len(parts) {
	case 1:
		return parts[0], "", StreamTypeNone, validNameChars(parts[0])
	case 2:
		if parts[1] == "" {
			return "", "", StreamTypeNone, false
		}
		return parts[0], parts[1], StreamTypeNone, true
	case 3:
		if parts[1] == "" {
			return "", "", StreamTypeNone, false
		}
		if !strings.EqualFold(parts[2], "$DATA") {
			return "", "", StreamTypeNone, false
		}
		return parts[0], parts[1], StreamTypeData, true
	default:
		// Stream names themselves may not contain further colons.
		return "", "", StreamTypeNone, false
	}
}

func validNameChars(s string) bool {
	for _, r := range s {
		if r < 0x20 {
			return false
		}
		if strings.ContainsRune(illegalNameChars, r) {
			return false
		}
	}
	return true
}

// ValidatePattern is like ValidateFileName but permits the wildcard
// characters `*` and `?`, for use on QueryDirectory's Pattern field.
func ValidatePattern(pattern string) bool {
	if pattern == "" {
		return false
	}
	components := strings.Split(pattern, `\`)
	for i, c := range components {
		if c == "" && i != 0 {
			return false
		}
		if len(utf16.Encode([]rune(c))) > MaxComponentLength {
			return false
		}
		for _, r := range c {
			if r < 0x20 {
				return false
			}
			if strings.ContainsRune(`"<>|`, r) {
				return false
			}
		}
	}
	return true
}
