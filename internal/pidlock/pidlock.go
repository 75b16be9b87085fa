// Package pidlock serializes runs with an exclusive pid file, so two
// invocations against the same workspace cannot interleave side effects.
package pidlock

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"yqhp/stepflow/pkg/types"
)

// ErrHeld reports that a live process already holds the lock.
var ErrHeld = errors.New("another instance is already running")

// Lock is a held pid lock. Release it when the run finishes.
type Lock struct {
	path string
	file *os.File
}

// Acquire takes the lock at path or fails fatally if a live process
// holds it. A lock file left behind by a dead process is cleaned up.
func Acquire(path string) (*Lock, error) {
	if data, err := os.ReadFile(path); err == nil {
		pid, perr := strconv.Atoi(strings.TrimSpace(string(data)))
		if perr == nil && pid > 0 && alive(pid) {
			return nil, types.WrapFatal(ErrHeld, "pid %d holds %s", pid, path)
		}
		_ = os.Remove(path) // 残留的锁文件，直接清理
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, types.WrapFatal(err, "opening lock file %s", path)
	}
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		return nil, types.WrapFatal(ErrHeld, "%s", path)
	}

	if err := file.Truncate(0); err == nil {
		_, _ = file.WriteString(fmt.Sprintf("%d", os.Getpid()))
		_ = file.Sync()
	}
	return &Lock{path: path, file: file}, nil
}

// Release drops the lock and removes the pid file.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	err := l.file.Close()
	l.file = nil
	if rmErr := os.Remove(l.path); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
		err = rmErr
	}
	return err
}

// alive reports whether pid belongs to a running process. EPERM means
// the process exists but is owned by someone else.
func alive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
