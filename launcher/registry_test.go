// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package launcher

import "testing"

func TestMatchesAgentEmptyFilterAcceptsEveryone(t *testing.T) {
	rec := ServiceRecord{}
	if !rec.MatchesAgent("anyone") {
		t.Fatalf("empty Agent filter should accept any reader")
	}
}

func TestMatchesAgentCommaSeparatedCaseInsensitive(t *testing.T) {
	rec := ServiceRecord{Agent: "Foo, BAR , baz"}

	for _, agent := range []string{"foo", "FOO", "bar", "baz"} {
		if !rec.MatchesAgent(agent) {
			t.Fatalf("expected MatchesAgent(%q) to be true", agent)
		}
	}
	if rec.MatchesAgent("qux") {
		t.Fatalf("expected MatchesAgent(\"qux\") to be false")
	}
}

func TestJobControlUnsetSentinelDiffersFromZero(t *testing.T) {
	if jobControlUnset == 0 {
		t.Fatalf("jobControlUnset sentinel must not collide with a legitimate zero value")
	}
}
