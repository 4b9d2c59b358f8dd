// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package playerlog stores player progression in a single append-only
// file.  Every save appends a full, checksummed snapshot of one player;
// the newest snapshot for an id wins.  Open rebuilds the id index by
// scanning the log, stopping quietly at a torn tail, and Compact rewrites
// the log down to one snapshot per player.
//
//	s, err := playerlog.Open("data/players.db")
//	...
//	s.Update(id, func(r *player.Record) { r.Skills[player.Mining] += 10 })
//	err = s.Save(id)
//
// A Store does no scheduling of its own: callers decide when to SaveAll
// and Compact, and must Close it on shutdown.
package playerlog
