// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package memfs

import (
	"context"
	"testing"

	"github.com/jacobsa/timeutil"

	fsprt "github.com/gofsprt/gofsprt"
)

func TestCreateThenOpenRoundTrips(t *testing.T) {
	fs := New(timeutil.RealClock())
	ctx := context.Background()

	node, result, _, status := fs.Create(ctx, rootNode, "foo.txt", &fsprt.CreateRequest{})
	if status != fsprt.StatusSuccess {
		t.Fatalf("Create: status = %v", status)
	}
	if result != fsprt.FileCreated {
		t.Fatalf("Create: result = %v, want FileCreated", result)
	}

	got, _, status := fs.Open(ctx, rootNode, "foo.txt", &fsprt.OpenRequest{})
	if status != fsprt.StatusSuccess {
		t.Fatalf("Open: status = %v", status)
	}
	if got != node {
		t.Fatalf("Open: node = %v, want %v", got, node)
	}
}

func TestCreateDuplicateNameCollides(t *testing.T) {
	fs := New(timeutil.RealClock())
	ctx := context.Background()

	if _, _, _, status := fs.Create(ctx, rootNode, "dup", &fsprt.CreateRequest{}); status != fsprt.StatusSuccess {
		t.Fatalf("first Create: status = %v", status)
	}
	if _, _, _, status := fs.Create(ctx, rootNode, "dup", &fsprt.CreateRequest{}); status != fsprt.StatusObjectNameCollision {
		t.Fatalf("second Create: status = %v, want OBJECT_NAME_COLLISION", status)
	}
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	fs := New(timeutil.RealClock())
	ctx := context.Background()

	node, _, _, status := fs.Create(ctx, rootNode, "data.bin", &fsprt.CreateRequest{})
	if status != fsprt.StatusSuccess {
		t.Fatalf("Create: status = %v", status)
	}

	payload := []byte("hello, winfsp")
	n, status := fs.Write(ctx, node, &fsprt.WriteRequest{Offset: 0, Data: payload})
	if status != fsprt.StatusSuccess || int(n) != len(payload) {
		t.Fatalf("Write: n=%d status=%v", n, status)
	}

	got, status := fs.Read(ctx, node, &fsprt.ReadRequest{Offset: 0, Length: uint32(len(payload))})
	if status != fsprt.StatusSuccess {
		t.Fatalf("Read: status = %v", status)
	}
	if string(got) != string(payload) {
		t.Fatalf("Read: got %q, want %q", got, payload)
	}
}

func TestQueryDirectoryListsChildren(t *testing.T) {
	fs := New(timeutil.RealClock())
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		if _, _, _, status := fs.Create(ctx, rootNode, name, &fsprt.CreateRequest{}); status != fsprt.StatusSuccess {
			t.Fatalf("Create(%s): status = %v", name, status)
		}
	}

	var got []string
	filler := fillerFunc(func(name string, info fsprt.FileInfo) bool {
		got = append(got, name)
		return true
	})

	if status := fs.QueryDirectory(ctx, rootNode, &fsprt.QueryDirectoryRequest{}, filler); status != fsprt.StatusSuccess {
		t.Fatalf("QueryDirectory: status = %v", status)
	}
	if len(got) != 3 {
		t.Fatalf("QueryDirectory: got %d entries, want 3", len(got))
	}
}

type fillerFunc func(name string, info fsprt.FileInfo) bool

func (f fillerFunc) Append(name string, info fsprt.FileInfo) bool { return f(name, info) }
