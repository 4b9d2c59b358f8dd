// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package index holds the in-memory lookup structures rebuilt from the
// log on open: player id to latest envelope offset, and lower-cased
// player name to id.
package index

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
)

// Offsets maps a player id to the offset of that player's most recently
// appended envelope.
type Offsets struct {
	m map[uuid.UUID]int64
}

func NewOffsets() *Offsets {
	return &Offsets{m: make(map[uuid.UUID]int64)}
}

// Set records off as id's latest envelope, superseding any earlier one.
func (o *Offsets) Set(id uuid.UUID, off int64) {
	o.m[id] = off
}

func (o *Offsets) Get(id uuid.UUID) (off int64, ok bool) {
	off, ok = o.m[id]
	return
}

func (o *Offsets) Len() int {
	return len(o.m)
}

// IDs returns every indexed id in byte order.
func (o *Offsets) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(o.m))
	for id := range o.m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	return ids
}

// Equal reports whether o and other index the same offsets.
func (o *Offsets) Equal(other *Offsets) bool {
	if o.Len() != other.Len() {
		return false
	}
	for id, off := range o.m {
		if otherOff, ok := other.m[id]; !ok || otherOff != off {
			return false
		}
	}
	return true
}
