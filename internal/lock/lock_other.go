// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

//go:build !unix

package lock

import (
	"fmt"
	"os"
)

// Acquire atomically creates path.  If it already exists the log is
// assumed to be in use; a crashed process leaves a stale file behind that
// has to be removed by hand.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrLocked)
		}
		return nil, fmt.Errorf("unable to create lock file: %w", err)
	}

	return &Lock{
		path: path,
		release: func() error {
			_ = f.Close()
			return os.Remove(path)
		},
	}, nil
}
