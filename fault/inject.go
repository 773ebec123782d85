// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

// Package fault implements named fault-injection points for tests: a
// point is configured with a per-caller trigger index, and Inject reports
// whether the call at hand should fail.
package fault

import (
	"runtime"
	"strings"
	"sync"
)

// wildcardCaller is the caller-symbol condition that matches any caller
// not otherwise matched by a specific one.
const wildcardCaller = "*"

// AlwaysTrigger is the trigger-index sentinel meaning "every call from
// the matching caller triggers", spelled ^uint64(0) in the design.
const AlwaysTrigger = ^uint64(0)

// stackDepth and stackSkip match the design's call-stack capture: skip=2
// (Inject and its captureStack helper, so the first frame is Inject's
// caller), count=8 frames, each
// truncated to 63 bytes for the symbol comparison.
const (
	stackSkip      = 2
	stackDepth     = 8
	symbolMaxBytes = 63
)

type condition struct {
	trigger uint64
	hits    uint64
}

type entry struct {
	mu         sync.Mutex
	conditions map[string]*condition
}

var (
	registryMu sync.Mutex
	registry   = map[string]*entry{}
)

// Configure arms the named injection point so that the trigger-th call
// (0-based) whose call stack contains caller fails; AlwaysTrigger makes
// every matching call fail. caller may be the wildcard "*" to match any
// caller not matched by a more specific condition.
func Configure(name, caller string, trigger uint64) {
	registryMu.Lock()
	e, ok := registry[name]
	if !ok {
		e = &entry{conditions: map[string]*condition{}}
		registry[name] = e
	}
	registryMu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.conditions[truncateSymbol(caller)] = &condition{trigger: trigger}
}

// Reset clears every configured condition for name, restoring it to
// never-trigger. This exists purely for test isolation between cases that
// reuse the same injection point name.
func Reset(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, name)
}

// Inject reports whether the named injection point should fail for the
// current call, given the caller's own call stack. It increments the
// hit-count of whichever condition matches (a specific caller symbol,
// else the wildcard) every time it is consulted, regardless of outcome.
func Inject(name string) bool {
	registryMu.Lock()
	e, ok := registry[name]
	registryMu.Unlock()
	if !ok {
		return false
	}

	frames := captureStack(stackSkip)

	e.mu.Lock()
	defer e.mu.Unlock()

	cond := matchCondition(e.conditions, frames)
	if cond == nil {
		return false
	}

	hit := cond.hits
	cond.hits++
	return cond.trigger == AlwaysTrigger || hit == cond.trigger
}

// matchCondition finds the first configured caller condition whose symbol
// is a substring of any captured frame, walking frames from the most
// immediate caller outward, imitating tlib's strstr-based frame matching
// (ext/tlib/injection.c) rather than requiring an exact frame match —
// callers configure a short name ("BuildIndex"), not a fully-qualified
// frame ("pkg.(*Indexer).BuildIndex").
func matchCondition(conditions map[string]*condition, frames []string) *condition {
	for _, f := range frames {
		for caller, c := range conditions {
			if caller == wildcardCaller {
				continue
			}
			if strings.Contains(f, caller) {
				return c
			}
		}
	}
	return conditions[wildcardCaller]
}

func captureStack(skip int) []string {
	pcs := make([]uintptr, stackDepth)
	n := runtime.Callers(skip+1, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	out := make([]string, 0, n)
	for {
		f, more := frames.Next()
		out = append(out, truncateSymbol(f.Function))
		if !more {
			break
		}
	}
	return out
}

func truncateSymbol(s string) string {
	if len(s) <= symbolMaxBytes {
		return s
	}
	return s[:symbolMaxBytes]
}
