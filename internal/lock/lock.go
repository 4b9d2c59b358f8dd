// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package lock provides an exclusive, advisory, per-process lock file used
// to keep two stores from appending to the same log.
package lock

import "errors"

// ErrLocked is returned when another process (or another store in this
// process) already holds the lock.
var ErrLocked = errors.New("log already in use")

// Lock is a held lock file.  It must stay open for as long as the lock is
// needed.
type Lock struct {
	path    string
	release func() error
}

// Path is the lock file's path.
func (l *Lock) Path() string {
	return l.path
}

// Release drops the lock.  Releasing twice is harmless.
func (l *Lock) Release() error {
	if l.release == nil {
		return nil
	}
	release := l.release
	l.release = nil
	return release()
}
