// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

//go:build linux

package datafile

import (
	"os"

	"golang.org/x/sys/unix"
)

// datasync flushes file data (not necessarily all metadata) to disk.
func datasync(f *os.File) error {
	for {
		err := unix.Fdatasync(int(f.Fd()))
		if err != unix.EINTR {
			return err
		}
	}
}

func syncDir(d *os.File) error {
	return unix.Fsync(int(d.Fd()))
}
