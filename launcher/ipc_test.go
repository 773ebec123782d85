// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package launcher

import "testing"

func TestEncodeCommandLayout(t *testing.T) {
	buf := encodeCommand(cmdStart, "memfs", "inst1", []string{"-v"})

	if buf[0] != cmdStart {
		t.Fatalf("first unit = %v, want command letter", buf[0])
	}

	// Walk the \0-terminated fields and confirm there are exactly three:
	// ClassName, InstanceName, and the one extra arg.
	var fields int
	start := 1
	for i := 1; i < len(buf); i++ {
		if buf[i] == 0 {
			fields++
			start = i + 1
		}
	}
	_ = start
	if fields != 3 {
		t.Fatalf("got %d NUL-terminated fields, want 3", fields)
	}
}

func TestParseReplySuccess(t *testing.T) {
	reply := []byte{byte(replySuccess), 0}
	got, err := parseReply(reply)
	if err != nil {
		t.Fatalf("parseReply: %v", err)
	}
	if got != "" {
		t.Fatalf("got %q, want empty success payload", got)
	}
}

func TestParseReplyFailureCode(t *testing.T) {
	code := "2"
	reply := []byte{byte(replyFailure), 0}
	for _, r := range code {
		reply = append(reply, byte(r), 0)
	}

	_, err := parseReply(reply)
	if err == nil {
		t.Fatalf("expected an error for a failure reply")
	}
}

func TestParseReplyTooShort(t *testing.T) {
	if _, err := parseReply(nil); err == nil {
		t.Fatalf("expected error for empty reply")
	}
}
