//go:build !linux

package affinity

// Pin is a no-op outside Linux. Core pinning is advisory everywhere it's
// used, so this is silently accepted rather than reported as an error.
func Pin(core int) error { return nil }
