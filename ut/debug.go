package ut

import (
	"runtime"
	"sync"

	"github.com/cockroachdb/errors"
)

// DebugInfo captures assertion context.
type DebugInfo struct {
	Expr string
	File string
	Line int
}

var (
	dbgMu sync.Mutex
	// dbgStopThreads indicates a fatal assertion has fired.
	dbgStopThreads bool
	lastAssertion  DebugInfo
)

// DbgAssertionFailed records a failed assertion.
func DbgAssertionFailed(expr, file string, line int) {
	dbgMu.Lock()
	lastAssertion = DebugInfo{Expr: expr, File: file, Line: line}
	dbgStopThreads = true
	dbgMu.Unlock()
}

// DbgStopThreads reports whether a fatal assertion has been recorded.
func DbgStopThreads() bool {
	dbgMu.Lock()
	defer dbgMu.Unlock()
	return dbgStopThreads
}

// LastAssertion returns the most recent assertion failure.
func LastAssertion() DebugInfo {
	dbgMu.Lock()
	defer dbgMu.Unlock()
	return lastAssertion
}

// DbgReset clears debug state.
func DbgReset() {
	dbgMu.Lock()
	dbgStopThreads = false
	lastAssertion = DebugInfo{}
	dbgMu.Unlock()
}

// Fatalf records the failed invariant at the caller's location and panics
// with an assertion failure error. It never returns.
func Fatalf(format string, args ...any) {
	err := errors.AssertionFailedWithDepthf(1, format, args...)
	_, file, line, _ := runtime.Caller(1)
	DbgAssertionFailed(err.Error(), file, line)
	panic(err)
}

// Assertf calls Fatalf when cond is false.
func Assertf(cond bool, format string, args ...any) {
	if cond {
		return
	}
	err := errors.AssertionFailedWithDepthf(1, format, args...)
	_, file, line, _ := runtime.Caller(1)
	DbgAssertionFailed(err.Error(), file, line)
	panic(err)
}
