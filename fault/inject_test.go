// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package fault

import "testing"

func buildIndex() bool {
	return Inject("malloc")
}

func TestSecondCallFromCallerTriggers(t *testing.T) {
	Reset("malloc")
	defer Reset("malloc")

	Configure("malloc", "github.com/gofsprt/gofsprt/fault.buildIndex", 1)

	if buildIndex() {
		t.Fatalf("0th call should succeed (not trigger)")
	}
	if !buildIndex() {
		t.Fatalf("1st call should trigger")
	}
	if buildIndex() {
		t.Fatalf("2nd call should succeed again")
	}
}

func TestWildcardCallerMatchesWhenNoSpecificConditionMatches(t *testing.T) {
	Reset("malloc")
	defer Reset("malloc")

	Configure("malloc", "*", AlwaysTrigger)

	if !Inject("malloc") {
		t.Fatalf("wildcard condition with AlwaysTrigger should trigger")
	}
}

func TestUnconfiguredPointNeverTriggers(t *testing.T) {
	Reset("nonexistent")
	if Inject("nonexistent") {
		t.Fatalf("unconfigured injection point should never trigger")
	}
}

func TestShortCallerNameMatchesFullyQualifiedFrameBySubstring(t *testing.T) {
	Reset("malloc")
	defer Reset("malloc")

	Configure("malloc", "buildIndex", AlwaysTrigger)

	if !buildIndex() {
		t.Fatalf("short caller name %q should match the fully-qualified frame by substring", "buildIndex")
	}
}
