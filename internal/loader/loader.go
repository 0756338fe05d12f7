// Package loader implements the tardis loader's execution state machine:
// read its own image from /proc/self/exe, locate and walk the manifest,
// decode each resource, and install it into an anonymous memfd for
// execveat to take over. Every failure here is terminal: the loader
// never falls back, and a corrupted container is never executed.
package loader

import (
	"fmt"
	"os"
	"runtime"
	"syscall"

	"github.com/kernelmethod/tardis-go/internal/codec"
	"github.com/kernelmethod/tardis-go/internal/container"
)

// ReadSelf reads the running binary's own image in full via
// /proc/self/exe, which resolves to the running binary even after it
// has been renamed or unlinked.
func ReadSelf() ([]byte, error) {
	b, err := os.ReadFile("/proc/self/exe")
	if err != nil {
		return nil, fmt.Errorf("loader: read /proc/self/exe: %w", err)
	}
	return b, nil
}

// memfdName is the arbitrary short name given to every installed guest's
// anonymous file. Its contents are never visible outside this process.
const memfdName = "a"

// cstrings converts a slice of Go strings into NUL-terminated byte
// buffers plus a NULL-sentinel-terminated pointer array, the layout
// execveat's argv/envp parameters expect. Built once, before any fork,
// so the post-fork path never allocates.
func cstrings(ss []string) []*byte {
	ptrs := make([]*byte, 0, len(ss)+1)
	for _, s := range ss {
		buf := append([]byte(s), 0)
		ptrs = append(ptrs, &buf[0])
	}
	return append(ptrs, nil)
}

// Argv builds the argv pointer array forwarded verbatim to every guest.
func Argv(args []string) []*byte { return cstrings(args) }

// Envp builds the envp pointer array forwarded verbatim to every guest.
func Envp(env []string) []*byte { return cstrings(env) }

// install creates an anonymous, ram-backed memfd, writes guest in full
// to it, and returns the descriptor ready for execveat. It never
// touches any mounted filesystem path. Only safe to call before any
// fork: it builds its own name buffer and its error paths allocate.
func install(guest []byte) (int, error) {
	fd, errno := rawMemfdCreate(append([]byte(memfdName), 0))
	if errno != 0 {
		return -1, fmt.Errorf("loader: memfd_create: %w", errno)
	}

	for written := 0; written < len(guest); {
		n, errno := rawWrite(fd, guest[written:])
		if errno != 0 {
			return -1, fmt.Errorf("loader: write to memfd: %w", errno)
		}
		if n <= 0 {
			return -1, fmt.Errorf("loader: write to memfd: short write")
		}
		written += n
	}

	return fd, nil
}

// Spawn installs guest into a memfd and execveat's it. On success this
// never returns; on any failure it returns a terminal error. Used for
// the single-guest path, which runs before any fork, so allocating
// here (the name buffer, the wrapped errors) is unremarkable.
func Spawn(guest []byte, argv, envp []*byte) error {
	fd, err := install(guest)
	if err != nil {
		return err
	}
	errno := rawExecveat(fd, argv, envp)
	return fmt.Errorf("loader: execveat: %w", errno)
}

// spawnChild installs guest into a memfd and execveat's it using only
// the precomputed nameBuf and raw syscalls, exiting the process
// directly on any failure instead of building and returning a Go
// error. It must only run in a forked child, and it never allocates:
// nameBuf, guest, argv, and envp are all built by the parent before
// the fork that leads here.
func spawnChild(nameBuf, guest []byte, argv, envp []*byte) {
	fd, errno := rawMemfdCreate(nameBuf)
	if errno != 0 {
		rawExitGroup(1)
	}

	for written := 0; written < len(guest); {
		n, errno := rawWrite(fd, guest[written:])
		if errno != 0 || n <= 0 {
			rawExitGroup(1)
		}
		written += n
	}

	rawExecveat(fd, argv, envp)
	rawExitGroup(1)
}

// Manifest is the walked, still-encoded sequence of resources to run,
// in the order the packer wrote them. Each resource is decoded lazily,
// immediately before the fork (if any) that installs it, so that at
// most one guest's plaintext is live in the parent at a time.
type Manifest struct {
	Resources []codec.Resource
}

// DecodeManifest walks the container held in self and returns its
// manifest of still-encoded resources.
func DecodeManifest(self []byte) (Manifest, error) {
	m, _, err := container.Parse(self)
	if err != nil {
		return Manifest{}, fmt.Errorf("loader: %w", err)
	}
	return Manifest{Resources: m.Resources}, nil
}

// Run executes the DECODE_RESOURCE through EXECVEAT steps of the
// loader state machine for a walked manifest. For a single guest it
// decodes and execveat's in the current process (execveat replaces it,
// so this never returns on success). For more than one guest, it
// decodes each resource, forks, and lets the child install and exec
// while the parent moves on to the next resource without waiting;
// execution order across children is unspecified.
//
// Run locks the calling goroutine to its OS thread before forking:
// fork() only duplicates the calling thread, and a child that resumed
// on a different M than its parent observed would see an inconsistent
// view of the Go runtime's per-thread state.
func Run(m Manifest, argv, envp []*byte) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if len(m.Resources) == 1 {
		guest, err := codec.Decode(m.Resources[0])
		if err != nil {
			return fmt.Errorf("loader: resource 0: %w", err)
		}
		return Spawn(guest, argv, envp)
	}

	// Built once, before any fork, so the child path below never
	// allocates: the same reasoning that makes cstrings build argv/envp
	// up front applies here.
	nameBuf := append([]byte(memfdName), 0)

	for i, res := range m.Resources {
		guest, err := codec.Decode(res)
		if err != nil {
			return fmt.Errorf("loader: resource %d: %w", i, err)
		}

		pid, _, errno := syscall.RawSyscall(sysFork, 0, 0, 0)
		if errno != 0 {
			return fmt.Errorf("loader: fork: %w", errno)
		}

		if pid == 0 {
			// Child: from here on, no allocation, no goroutine scheduling,
			// no defer — spawnChild touches only nameBuf, guest, argv, and
			// envp, all already built, plus the raw syscalls themselves.
			// The fork may have happened while another OS thread held a Go
			// runtime lock that this thread never releases, so touching
			// the allocator or scheduler here can deadlock the child.
			spawnChild(nameBuf, guest, argv, envp)
		}
		// Parent: continue the walk without waiting for the child.
	}

	return nil
}
