// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package fsprt

import "context"

type contextKeyType int

var opContextKey contextKeyType

// OperationContext is the per-request state stuffed into a context.Value,
// the runtime's equivalent of the kernel's per-IRP thread-local storage
// (spec.md §3, "OperationContext"). It is available to a FileSystem method
// via OperationFromContext, so that work can be attributed to the
// originating request without threading an extra parameter through every
// handler.
type OperationContext struct {
	Hint         Hint
	Kind         RequestKind
	ProcessID    uint32
	CallerCaller uintptr
}

// withOperationContext returns a context carrying opCtx, the inverse of
// OperationFromContext.
func withOperationContext(ctx context.Context, opCtx *OperationContext) context.Context {
	return context.WithValue(ctx, opContextKey, opCtx)
}

// OperationFromContext returns the OperationContext associated with ctx,
// or nil if ctx was not produced by this runtime's dispatcher (e.g. in a
// unit test that calls a FileSystem method directly with context.Background()).
func OperationFromContext(ctx context.Context) *OperationContext {
	v, _ := ctx.Value(opContextKey).(*OperationContext)
	return v
}
