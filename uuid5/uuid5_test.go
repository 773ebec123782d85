// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package uuid5

import "testing"

func TestMakeIsDeterministic(t *testing.T) {
	var ns [Size]byte
	for i := range ns {
		ns[i] = byte(i)
	}

	a, err := Make(ns, []byte("gofsprt"))
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	b, err := Make(ns, []byte("gofsprt"))
	if err != nil {
		t.Fatalf("Make: %v", err)
	}

	if a != b {
		t.Fatalf("Make is not deterministic: %x != %x", a, b)
	}
}

func TestMakeSetsVersionAndVariant(t *testing.T) {
	var ns [Size]byte
	u, err := Make(ns, []byte("some-name"))
	if err != nil {
		t.Fatalf("Make: %v", err)
	}

	if version := u[7] >> 4; version != 5 {
		t.Fatalf("version = %d, want 5", version)
	}
	if variant := u[8] >> 6; variant != 2 {
		t.Fatalf("variant = %d, want 2 (0b10)", variant)
	}
}

func TestMakeDiffersByName(t *testing.T) {
	var ns [Size]byte
	a, _ := Make(ns, []byte("a"))
	b, _ := Make(ns, []byte("b"))
	if a == b {
		t.Fatalf("different names produced the same UUID")
	}
}
