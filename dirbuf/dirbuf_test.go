// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package dirbuf

import (
	"fmt"
	"strings"
	"testing"
)

func TestReleaseOrdersDotEntriesFirst(t *testing.T) {
	var b Buffer
	b.Acquire(true)

	for _, name := range []string{".", "..", "Z", "A", ".git"} {
		if !b.Fill(Entry{Name: name}) {
			t.Fatalf("Fill(%q) returned false", name)
		}
	}
	b.Release()

	entries := b.Read("", 100)
	var got []string
	for _, e := range entries {
		got = append(got, e.Name)
	}

	want := []string{".", "..", ".git", "A", "Z"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestReadResumesAfterMarker(t *testing.T) {
	var b Buffer
	b.Acquire(true)
	for _, name := range []string{"a", "b", "c", "d"} {
		b.Fill(Entry{Name: name})
	}
	b.Release()

	first := b.Read("", 2)
	if len(first) != 2 || first[0].Name != "a" || first[1].Name != "b" {
		t.Fatalf("unexpected first page: %v", first)
	}

	second := b.Read(first[len(first)-1].Name, 2)
	if len(second) != 2 || second[0].Name != "c" || second[1].Name != "d" {
		t.Fatalf("unexpected second page: %v", second)
	}
}

func TestFillGrowsAcrossBoundaryRetainingEntries(t *testing.T) {
	var b Buffer
	b.Acquire(true)

	names := make([]string, 0, 200)
	for i := 0; i < 200; i++ {
		name := strings.Repeat("x", 8) + fmt.Sprintf("%04d", i)
		names = append(names, name)
		if !b.Fill(Entry{Name: name, Payload: []byte{byte(i % 256)}}) {
			t.Fatalf("Fill #%d failed", i)
		}
	}

	if b.Cap() <= initialCapacity {
		t.Fatalf("expected buffer to have grown past initial capacity, got %d", b.Cap())
	}

	b.Release()
	if b.Len() != len(names) {
		t.Fatalf("Len() = %d, want %d", b.Len(), len(names))
	}

	all := b.Read("", len(names)+1)
	if len(all) != len(names) {
		t.Fatalf("Read returned %d entries, want %d", len(all), len(names))
	}
	for i, e := range all {
		if e.Name != names[i] {
			t.Fatalf("entry %d = %q, want %q (insertion order should match lexicographic order here)", i, e.Name, names[i])
		}
	}
}

func TestFillRejectsEmptyName(t *testing.T) {
	var b Buffer
	b.Acquire(true)
	if b.Fill(Entry{Name: ""}) {
		t.Fatalf("Fill with empty name should return false")
	}
}
