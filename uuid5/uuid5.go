// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

// Package uuid5 computes UUID version 5 identifiers: a namespace- and
// name-derived SHA-1 hash reduced to 16 bytes, per RFC 4122 §4.3.
package uuid5

import "crypto/sha1"

// Size is the length in bytes of a UUID.
const Size = 16

// Make computes the UUID v5 for the given namespace UUID (16 bytes, in
// the same little-endian field layout Windows uses for GUIDs) and name
// byte string.
//
// Windows UUIDs are little-endian, but RFC 4122 computes the hash over
// the big-endian (network byte order) encoding: fields 1-3 (the first 8
// bytes) are byte-swapped going in and coming back out; the remaining 8
// bytes (field 4, already an opaque byte array) are left untouched.
func Make(namespace [Size]byte, name []byte) ([Size]byte, error) {
	var out [Size]byte
	if len(namespace) != Size {
		return out, nil
	}

	netOrder := toNetworkOrder(namespace)

	h := sha1.New()
	h.Write(netOrder[:])
	h.Write(name)
	sum := h.Sum(nil)

	var hashed [Size]byte
	copy(hashed[:], sum[:Size])

	out = toHostOrder(hashed)

	// version = 5: top 4 bits of byte 7 (the high byte of the little-endian
	// Data3 field).
	out[7] = (5 << 4) | (out[7] & 0x0f)

	// variant = RFC 4122 (2): top 2 bits of byte 8 (Data4[0]).
	out[8] = (2 << 6) | (out[8] & 0x3f)

	return out, nil
}

// toNetworkOrder swaps the first three GUID fields (4+2+2 bytes) into
// big-endian order; the trailing 8 bytes are an opaque array and need no
// swapping.
func toNetworkOrder(u [Size]byte) [Size]byte {
	var out [Size]byte
	out[0], out[1], out[2], out[3] = u[3], u[2], u[1], u[0]
	out[4], out[5] = u[5], u[4]
	out[6], out[7] = u[7], u[6]
	copy(out[8:], u[8:])
	return out
}

// toHostOrder is the inverse of toNetworkOrder.
func toHostOrder(u [Size]byte) [Size]byte {
	return toNetworkOrder(u)
}
