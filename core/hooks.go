package core

import (
	"os"
	"sort"
	"sync"
)

var (
	hooksMu  sync.Mutex
	hooks    = map[int]func(){}
	nextHook int

	// osExit may be replaced in tests.
	osExit = os.Exit
)

// RegisterExitHook registers fn to be run by Exit. The returned function unregisters it again.
func RegisterExitHook(fn func()) (unregister func()) {
	hooksMu.Lock()
	defer hooksMu.Unlock()

	id := nextHook
	nextHook++
	hooks[id] = fn

	return func() {
		hooksMu.Lock()
		defer hooksMu.Unlock()
		delete(hooks, id)
	}
}

// RunExitHooks runs all registered exit hooks, most recently registered first.
func RunExitHooks() {
	hooksMu.Lock()
	ids := make([]int, 0, len(hooks))
	for id := range hooks {
		ids = append(ids, id)
	}
	pending := make([]func(), 0, len(ids))
	sort.Sort(sort.Reverse(sort.IntSlice(ids)))
	for _, id := range ids {
		pending = append(pending, hooks[id])
	}
	hooksMu.Unlock()

	for _, fn := range pending {
		fn()
	}
}

// Exit runs the registered exit hooks and then terminates the process with the given status code.
// Deferred functions do not run on os.Exit, so the launcher must leave through here.
func Exit(code int) {
	RunExitHooks()
	osExit(code)
}
