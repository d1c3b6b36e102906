//go:build linux || darwin

// Package platform applies process-level hardening for binaries that hold
// key material.
package platform

import "golang.org/x/sys/unix"

// DisableCoreDumps sets RLIMIT_CORE to zero so a crash cannot write resolved
// passphrases or derived keys to disk. Called before any secret is resolved.
func DisableCoreDumps() error {
	return unix.Setrlimit(unix.RLIMIT_CORE, &unix.Rlimit{Cur: 0, Max: 0})
}
