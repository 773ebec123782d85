// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fsprt

import (
	"flag"
	"io"
	"log"
	"os"
	"sync"
)

var fEnableDebug = flag.Bool(
	"fsprt.debug",
	false,
	"Write runtime debugging messages to stderr.")

var gDebugLogger *log.Logger
var gErrorLogger *log.Logger
var gLoggerOnce sync.Once

func initLoggers() {
	var writer io.Writer = io.Discard
	if flag.Parsed() && *fEnableDebug {
		writer = os.Stderr
	}

	const flags = log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile
	gDebugLogger = log.New(writer, "fsprt: ", flags)
	gErrorLogger = log.New(os.Stderr, "fsprt: ", flags)
}

// getDebugLogger returns the package-wide debug logger, writing to stderr
// only when flags had been parsed and -fsprt.debug was passed at the time
// of its first use (matching the teacher's conservative default of only
// logging once flags are known to be settled).
func getDebugLogger() *log.Logger {
	gLoggerOnce.Do(initLoggers)
	return gDebugLogger
}

// getErrorLogger returns the package-wide error logger. Unlike the debug
// logger it always writes to stderr: the dispatcher uses it for conditions
// that should surface regardless of -fsprt.debug.
func getErrorLogger() *log.Logger {
	gLoggerOnce.Do(initLoggers)
	return gErrorLogger
}

// debugKindMask returns the bit that DebugLog must have set for operations
// of the given kind to be logged, per spec.md §3's "debug-log bitmask
// (1<<kind)".
func debugKindMask(kind RequestKind) uint64 {
	return uint64(1) << uint(kind)
}
