//go:build !windows

// Package vfs provides the exclusive advisory lock used to keep a KVDB
// home directory open by at most one process at a time.
//
// Reference: RocksDB v10.7.5
//   - env/env_posix.cc (PosixEnv::LockFile)
package vfs

import (
	"io"
	"os"
	"syscall"

	"github.com/hse-go/kvengine/internal/merr"
)

// fileLock holds an flock(2)-acquired exclusive lock on a KVDB home's
// lock file.
type fileLock struct {
	f *os.File
}

// LockFile acquires an exclusive, non-blocking lock on name, creating it
// if necessary. The returned io.Closer releases the lock and closes the
// underlying file descriptor. KindExists is returned if another process
// already holds the lock.
func LockFile(name string) (io.Closer, error) {
	const op = "vfs.LockFile"
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, merr.Wrap(merr.KindIO, op, err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if err == syscall.EWOULDBLOCK {
			return nil, merr.New(merr.KindExists, op, "kvdb home already locked by another process")
		}
		return nil, merr.Wrap(merr.KindIO, op, err)
	}
	return &fileLock{f: f}, nil
}

func (l *fileLock) Close() error {
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	return l.f.Close()
}
