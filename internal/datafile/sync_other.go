// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

//go:build !linux

package datafile

import "os"

func datasync(f *os.File) error {
	return f.Sync()
}

// syncDir is best-effort: not every platform can fsync a directory handle.
func syncDir(d *os.File) error {
	_ = d.Sync()
	return nil
}
