package probe

import "sync"

// Process-wide kernel registry. This is a convenience for integrations that
// cannot thread a *Kernel explicitly; prefer passing the kernel to every
// collaborator that needs one.
var (
	globalMu     sync.Mutex
	globalKernel *Kernel
)

// Global returns the process-wide kernel, lazily creating one with default
// options on first use.
func Global() *Kernel {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalKernel == nil {
		globalKernel = New()
	}
	return globalKernel
}

// SetGlobal replaces the process-wide kernel. The previous kernel is not
// destroyed; the caller owns its teardown.
func SetGlobal(k *Kernel) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalKernel = k
}

// ResetGlobal clears the process-wide kernel so the next Global call creates
// a fresh one. Intended for test isolation; the caller destroys the old
// kernel if it still needs teardown.
func ResetGlobal() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalKernel = nil
}
