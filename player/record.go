// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package player defines the in-memory shape of a persisted player: a
// globally unique id, an optional display name, and a set of skill
// counters.
package player

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Record is a plain value describing one player's progression.  Copies
// returned by the store are independent of the store's cached state.
type Record struct {
	ID     uuid.UUID
	Name   string
	Skills map[Skill]int64

	// SavedAt is the write timestamp of the snapshot this record was
	// decoded from, or the zero time for a record that was never saved.
	SavedAt time.Time
}

// New returns an empty record for id.
func New(id uuid.UUID) Record {
	return Record{
		ID:     id,
		Skills: make(map[Skill]int64),
	}
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	c := r
	c.Skills = make(map[Skill]int64, len(r.Skills))
	for s, v := range r.Skills {
		c.Skills[s] = v
	}
	return c
}

// Equal reports whether r and o hold the same id, name and counters.
// SavedAt is ignored, and a missing counter is distinct from a zero one.
func (r Record) Equal(o Record) bool {
	if r.ID != o.ID || r.Name != o.Name || len(r.Skills) != len(o.Skills) {
		return false
	}
	for s, v := range r.Skills {
		if ov, ok := o.Skills[s]; !ok || ov != v {
			return false
		}
	}
	return true
}

// SortedSkills returns r's skills ordered by on-disk code, for stable
// encoding and display.
func (r Record) SortedSkills() []Skill {
	skills := make([]Skill, 0, len(r.Skills))
	for s := range r.Skills {
		skills = append(skills, s)
	}
	sort.Slice(skills, func(i, j int) bool { return skills[i] < skills[j] })
	return skills
}
