package secfs

import (
	"syscall"
)

// Error reports a failed operation with a POSIX error number.
type Error struct {
	Op    string
	Path  string
	Errno syscall.Errno
}

// Error implements error.
func (e *Error) Error() string {
	if e.Path == "" {
		return "secfs: " + e.Op + ": " + e.Errno.Error()
	}
	return "secfs: " + e.Op + " " + e.Path + ": " + e.Errno.Error()
}

// Unwrap returns the errno, so errors.Is(err, fs.ErrNotExist) and friends
// work as with os errors.
func (e *Error) Unwrap() error {
	return e.Errno
}

func newError(op, path string, errno syscall.Errno) *Error {
	return &Error{Op: op, Path: path, Errno: errno}
}

// CME error codes reported by AT%CMNG.
const (
	cmeNotFound    = 513
	cmeNoAccess    = 514
	cmeMemoryFull  = 515
	cmeActiveState = 518
)

// errnoFromCME maps a CME error code onto an errno.
func errnoFromCME(code int) syscall.Errno {
	switch code {
	case cmeNotFound:
		// applies to read, write and delete.
		return syscall.ENOENT
	case cmeNoAccess:
		return syscall.EACCES
	case cmeMemoryFull:
		return syscall.ENOSPC
	case cmeActiveState:
		// not allowed while the modem is active.
		return syscall.EBUSY
	default:
		return syscall.EIO
	}
}
