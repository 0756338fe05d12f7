//go:build linux && amd64

package loader

import (
	"syscall"
	"unsafe"
)

// Linux/x86_64 syscall numbers used directly below, bypassing any
// convenience wrapper (including golang.org/x/sys/unix's helpers) that
// might allocate, retry, or otherwise do more than place registers and
// trap. Go binaries never link against libc for these, so calling
// syscall.RawSyscall/RawSyscall6 here is the direct equivalent of the
// hand-written "syscall" instruction the loader's reference
// implementation uses.
const (
	sysWrite       = 1
	sysFork        = 57
	sysExitGroup   = 231
	sysMemfdCreate = 319
	sysExecveat    = 322
)

// mfdCloexec is MFD_CLOEXEC.
const mfdCloexec = 0x1

// atEmptyPath is AT_EMPTY_PATH.
const atEmptyPath = 0x1000

// rawWrite issues a single write(2) syscall, returning the number of
// bytes written and a nonzero errno on failure.
func rawWrite(fd int, buf []byte) (int, syscall.Errno) {
	if len(buf) == 0 {
		return 0, 0
	}
	n, _, errno := syscall.RawSyscall(sysWrite, uintptr(fd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return int(n), errno
}

// rawMemfdCreate issues memfd_create(2) with MFD_CLOEXEC, returning the
// new anonymous file descriptor. nameBuf must already be NUL-terminated
// and non-empty; callers build it once, ahead of any fork, so this
// itself never allocates.
func rawMemfdCreate(nameBuf []byte) (int, syscall.Errno) {
	fd, _, errno := syscall.RawSyscall(sysMemfdCreate, uintptr(unsafe.Pointer(&nameBuf[0])), uintptr(mfdCloexec), 0)
	return int(fd), errno
}

// rawExecveat issues execveat(2) with an empty pathname and
// AT_EMPTY_PATH, which tells the kernel to execute the file referenced
// directly by dirfd. On success this never returns; on failure it
// returns the errno.
func rawExecveat(dirfd int, argv, envp []*byte) syscall.Errno {
	nul := byte(0)
	_, _, errno := syscall.RawSyscall6(
		sysExecveat,
		uintptr(dirfd),
		uintptr(unsafe.Pointer(&nul)),
		uintptr(unsafe.Pointer(&argv[0])),
		uintptr(unsafe.Pointer(&envp[0])),
		uintptr(atEmptyPath),
		0,
	)
	return errno
}

// rawExitGroup issues exit_group(2) directly and never returns. Used
// only on the post-fork failure path, where calling os.Exit would route
// through runtime machinery the child must not touch.
func rawExitGroup(code int) {
	syscall.RawSyscall(sysExitGroup, uintptr(code), 0, 0)
}
