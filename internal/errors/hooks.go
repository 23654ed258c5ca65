// Package errors - error hook registration
package errors

import (
	"sync"
	"sync/atomic"
)

// ErrorHook is a callback invoked for every enhanced error built while
// reporting is active. Hooks must not block; they run on the caller's
// goroutine.
type ErrorHook func(ee *EnhancedError)

var (
	hookMutex sync.RWMutex
	hooks     []ErrorHook

	// hasActiveReporting gates the expensive Build path (component and
	// category detection, telemetry dispatch). It is true while a telemetry
	// reporter or at least one hook is registered.
	hasActiveReporting atomic.Bool
)

// AddErrorHook registers a hook invoked for each built error
func AddErrorHook(hook ErrorHook) {
	hookMutex.Lock()
	defer hookMutex.Unlock()
	hooks = append(hooks, hook)
	hasActiveReporting.Store(true)
}

// ClearErrorHooks removes all registered hooks
func ClearErrorHooks() {
	hookMutex.Lock()
	defer hookMutex.Unlock()
	hooks = nil
	updateActiveReportingLocked()
}

// notifyHooks invokes all registered hooks for the given error
func notifyHooks(ee *EnhancedError) {
	hookMutex.RLock()
	defer hookMutex.RUnlock()
	for _, hook := range hooks {
		hook(ee)
	}
}

// updateActiveReportingLocked recomputes the reporting gate. Callers must
// hold hookMutex.
func updateActiveReportingLocked() {
	active := len(hooks) > 0
	if reporter := GetTelemetryReporter(); reporter != nil && reporter.IsEnabled() {
		active = true
	}
	hasActiveReporting.Store(active)
}
