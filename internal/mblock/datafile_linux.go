//go:build linux

package mblock

import (
	"os"

	"golang.org/x/sys/unix"
)

// openDataFile opens a block file's data file with O_DIRECT|O_DSYNC,
// bypassing the page cache and forcing durable writes, matching the
// teacher's direct-I/O idiom in internal/vfs one step further (O_DSYNC
// in addition to O_DIRECT, since committed blocks must be durable without
// a separate fsync call on the write path).
func openDataFile(path string, create bool) (*os.File, error) {
	flags := unix.O_RDWR | unix.O_DIRECT | unix.O_DSYNC
	if create {
		flags |= unix.O_CREAT | unix.O_EXCL
	}
	fd, err := unix.Open(path, flags, 0o644)
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}
