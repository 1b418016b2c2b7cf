// File: internal/types/errors.go
package types

import "errors"

// Sentinel error kinds surfaced by kernel subsystems. Callers wrap them
// with context via fmt.Errorf("...: %w", err) and the shell matches with
// errors.Is.
var (
	ErrNotFound           = errors.New("path not found")
	ErrNotDirectory       = errors.New("not a directory")
	ErrNotRegular         = errors.New("not a regular file")
	ErrExists             = errors.New("name exists")
	ErrNoSpace            = errors.New("out of data blocks")
	ErrNoInodes           = errors.New("out of inodes")
	ErrFileTooLarge       = errors.New("file size limit reached")
	ErrBadFd              = errors.New("invalid file descriptor")
	ErrNotMounted         = errors.New("file system not mounted")
	ErrLayoutMismatch     = errors.New("layout mismatch")
	ErrBadMagic           = errors.New("magic number mismatch")
	ErrOutOfMemoryAndSwap = errors.New("out of memory and swap")
	ErrNoSuchProcess      = errors.New("no such process")
	ErrNoSuchDevice       = errors.New("no such device")
	ErrIO                 = errors.New("i/o error")
)
