// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package snapshot

import "encoding/binary"

// cursor is a bounded big-endian reader over b[pos:end].  Reads that
// would cross end fail and leave the cursor where it was.
type cursor struct {
	b   []byte
	pos int
	end int
}

func newCursor(b []byte) *cursor {
	return &cursor{b: b, end: len(b)}
}

func (c *cursor) remaining() int {
	return c.end - c.pos
}

func (c *cursor) take(n int) ([]byte, bool) {
	if n < 0 || n > c.remaining() {
		return nil, false
	}
	b := c.b[c.pos : c.pos+n]
	c.pos += n
	return b, true
}

func (c *cursor) u8() (uint8, bool) {
	b, ok := c.take(1)
	if !ok {
		return 0, false
	}
	return b[0], true
}

func (c *cursor) u16() (uint16, bool) {
	b, ok := c.take(2)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint16(b), true
}

func (c *cursor) u32() (uint32, bool) {
	b, ok := c.take(4)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint32(b), true
}

func (c *cursor) u64() (uint64, bool) {
	b, ok := c.take(8)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint64(b), true
}

// region splits off the next n bytes as their own cursor, clamped to
// what is actually left.  The parent skips past them.
func (c *cursor) region(n uint32) *cursor {
	end := c.end
	if uint64(n) < uint64(c.remaining()) {
		end = c.pos + int(n)
	}
	sub := &cursor{b: c.b, pos: c.pos, end: end}
	c.pos = end
	return sub
}
