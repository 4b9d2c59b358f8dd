// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package datafile

import (
	"errors"
	"io"
	"sync"
)

type safeBuffer struct {
	mu     sync.Mutex
	buf    []byte
	syncs  int
	closed bool
}

func (s *safeBuffer) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]byte(nil), s.buf...)
}

func (s *safeBuffer) WriteAt(p []byte, off int64) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if int(off) > len(s.buf) {
		return 0, errors.New("writeAt leaves a hole")
	}
	end := int(off) + len(p)
	if end > len(s.buf) {
		s.buf = append(s.buf, make([]byte, end-len(s.buf))...)
	}

	return copy(s.buf[off:end], p), nil
}

func (s *safeBuffer) ReadAt(p []byte, off int64) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if int(off) > len(s.buf) {
		return 0, io.EOF
	}

	n = copy(p, s.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *safeBuffer) Truncate(size int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf = s.buf[:size]
	return nil
}

func (s *safeBuffer) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.syncs++
	return nil
}

func (s *safeBuffer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

var _ Backing = &safeBuffer{}

type testBacking struct {
	*safeBuffer
	writeShouldError bool
	shortWrite       bool
	syncShouldError  bool
}

func (c *testBacking) WriteAt(p []byte, off int64) (n int, err error) {
	if c.writeShouldError {
		return 0, errors.New("write failed")
	}
	if c.shortWrite && len(p) > 1 {
		return c.safeBuffer.WriteAt(p[:len(p)/2], off)
	}
	return c.safeBuffer.WriteAt(p, off)
}

func (c *testBacking) Sync() error {
	if c.syncShouldError {
		return errors.New("sync failed")
	}
	return c.safeBuffer.Sync()
}

var _ Backing = &testBacking{}
