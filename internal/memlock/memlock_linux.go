// Package memlock best-effort locks the packer's pages in RAM while it
// holds guest plaintext and per-resource keys in memory, so that
// material which must never touch a persistent path doesn't get paged
// to swap either.
package memlock

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Lock calls mlockall(MCL_CURRENT|MCL_FUTURE). Unlike the hard
// requirement some secret-handling tools impose, a failure here (most
// commonly a missing CAP_IPC_LOCK) is not fatal to packing: resource
// keys are stored unencrypted next to their ciphertext on disk anyway,
// so locking only narrows the window during which guest bytes could be
// swapped out, it doesn't protect a secret that's confidential elsewhere.
// Callers should log the returned error, not abort on it.
func Lock() error {
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		return fmt.Errorf("memlock: mlockall: %w", err)
	}
	return nil
}
