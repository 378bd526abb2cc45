//go:build linux

// Package affinity pins the calling OS thread to a CPU core. It is the Go
// stand-in for the original's pthread_setaffinity_np calls; callers are
// expected to treat failures as advisory, never fatal.
package affinity

import "golang.org/x/sys/unix"

// Pin binds the current OS thread to core. The caller must have already
// called runtime.LockOSThread, or the binding will apply to whichever
// thread the goroutine happens to be running on at the moment of the
// syscall and may be meaningless afterwards.
func Pin(core int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	return unix.SchedSetaffinity(0, &set)
}
