// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package datafile

import "io"

// Iter walks the envelopes of a log in order.  It stops, without error, at
// the end of the log or at the first envelope that is truncated or fails
// its checksum; Err is only set for I/O failures.
type Iter struct {
	r      io.ReaderAt
	size   int64
	off    int64
	reason StopReason
	err    error
}

// NewIter iterates over the envelopes in r between start and size.
func NewIter(r io.ReaderAt, start, size int64) *Iter {
	return &Iter{
		r:    r,
		size: size,
		off:  start,
	}
}

// Next returns the next valid envelope.  Once it returns false it keeps
// returning false.
func (i *Iter) Next() (Entry, bool) {
	if i.reason != NotStopped {
		return Entry{}, false
	}
	e, reason, err := readEnvelope(i.r, i.off, i.size)
	if reason != NotStopped {
		i.reason = reason
		i.err = err
		return Entry{}, false
	}
	i.off += e.Len()
	return e, true
}

// Offset is where the next envelope begins, or where the scan stopped.
// Everything before it has been validated.
func (i *Iter) Offset() int64 {
	return i.off
}

// Stopped reports why iteration ended, or NotStopped if it hasn't.
func (i *Iter) Stopped() StopReason {
	return i.reason
}

// Err returns the I/O error that ended iteration, if any.
func (i *Iter) Err() error {
	return i.err
}
