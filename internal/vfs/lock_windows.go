//go:build windows

// lock_windows.go implements LockFile on Windows via a simple exclusive
// open, since there is no direct flock(2) equivalent.
//
// Reference: RocksDB v10.7.5
//   - env/env_win.cc (WinEnvIO::LockFile)
package vfs

import (
	"io"
	"os"

	"github.com/hse-go/kvengine/internal/merr"
)

type fileLock struct {
	f *os.File
}

// LockFile opens name, creating it if necessary. Unlike the Unix
// implementation this does not enforce exclusivity against other
// processes; a real deployment would use LockFileEx range locking.
func LockFile(name string) (io.Closer, error) {
	const op = "vfs.LockFile"
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, merr.Wrap(merr.KindIO, op, err)
	}
	return &fileLock{f: f}, nil
}

func (l *fileLock) Close() error {
	return l.f.Close()
}
