// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package playerlog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	farm "github.com/dgryski/go-farm"
	"github.com/google/uuid"

	"github.com/bpowers/playerlog/internal/datafile"
	"github.com/bpowers/playerlog/internal/index"
	"github.com/bpowers/playerlog/internal/snapshot"
)

const (
	compactingSuffix = ".compacting"
	backupSuffix     = ".bak"
)

// CompactStats describes a finished compaction.
type CompactStats struct {
	Records     int
	BytesBefore int64
	BytesAfter  int64
}

// digest is an order-sensitive summary of a run of envelopes, used to
// check the rewritten log reads back exactly as it was written.
type digest struct {
	sum   uint64
	count int
}

func (d *digest) add(off int64, payload []byte) {
	d.sum += farm.Hash64WithSeed(payload, uint64(off))
	d.count++
}

// Compact rewrites the log so it holds exactly one snapshot per player
// in the log, taking in-memory state where there is any, then swaps the
// new file into place.  The previous log is kept at path+".bak".  On
// failure before the swap the existing log is left untouched.  Players
// that are in memory but have never been saved are not written.
func (s *Store) Compact() (CompactStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return CompactStats{}, ErrClosed
	}

	start := time.Now()
	stats := CompactStats{BytesBefore: s.log.Size()}
	tmpPath := s.path + compactingSuffix
	now := s.now()

	offsets, written, err := s.writeCompacted(tmpPath, now)
	if err != nil {
		_ = os.Remove(tmpPath)
		return CompactStats{}, err
	}
	if err := verifyCompacted(tmpPath, written); err != nil {
		_ = os.Remove(tmpPath)
		return CompactStats{}, err
	}

	if err := s.swap(tmpPath); err != nil {
		return CompactStats{}, err
	}

	if err := s.log.Close(); err != nil {
		s.logger.Warn("closing pre-compaction log", "err", err)
	}
	f, version, err := datafile.Open(s.path)
	if err != nil {
		// the compacted log is in place but we can't use it; stop taking writes
		s.closed = true
		_ = s.lock.Release()
		return CompactStats{}, fmt.Errorf("reopening compacted log: %w", err)
	}
	s.log = f
	s.version = version
	s.offsets = offsets
	for _, id := range offsets.IDs() {
		if c, ok := s.cache[id]; ok && c.dirty {
			c.dirty = false
			c.rec.SavedAt = time.UnixMilli(now.UnixMilli())
		}
	}

	stats.Records = written.count
	stats.BytesAfter = f.Size()

	s.metrics.compactions.Inc()
	if reclaimed := stats.BytesBefore - stats.BytesAfter; reclaimed > 0 {
		s.metrics.reclaimedBytes.Add(float64(reclaimed))
	}
	s.metrics.logBytes.Set(float64(stats.BytesAfter))

	s.logger.Info("compacted player log",
		"path", s.path,
		"records", stats.Records,
		"bytes_before", stats.BytesBefore,
		"bytes_after", stats.BytesAfter,
		"elapsed", time.Since(start))
	return stats, nil
}

// writeCompacted writes the latest snapshot of every indexed player to
// a new log at tmpPath.
func (s *Store) writeCompacted(tmpPath string, now time.Time) (*index.Offsets, digest, error) {
	var d digest

	f, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, d, fmt.Errorf("os.OpenFile(%s): %w", tmpPath, err)
	}
	defer func() {
		_ = f.Close()
	}()

	w, err := datafile.NewWriter(f)
	if err != nil {
		return nil, d, fmt.Errorf("datafile.NewWriter: %w", err)
	}

	offsets := index.NewOffsets()
	for _, id := range s.offsets.IDs() {
		payload, err := s.compactedPayload(id, now)
		if err != nil {
			return nil, d, err
		}
		off, err := w.Write(datafile.RecordKindPlayer, payload)
		if err != nil {
			return nil, d, fmt.Errorf("writing %s: %w", id, err)
		}
		offsets.Set(id, off)
		d.add(off, payload)
	}

	if err := w.Finish(); err != nil {
		return nil, d, fmt.Errorf("datafile.Writer.Finish: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, d, fmt.Errorf("close: %w", err)
	}
	return offsets, d, nil
}

// compactedPayload encodes the player's current state.  Clean records
// keep the timestamp of the snapshot they came from.
func (s *Store) compactedPayload(id uuid.UUID, now time.Time) ([]byte, error) {
	if c, ok := s.cache[id]; ok {
		writtenAt := c.rec.SavedAt
		if c.dirty || writtenAt.IsZero() {
			writtenAt = now
		}
		return snapshot.Encode(c.rec, writtenAt)
	}

	// Not in memory: copy the payload the index points at, unknown tags
	// and all.  The open-time scan already validated it, so a failure
	// here is fatal.
	off, _ := s.offsets.Get(id)
	e, err := s.log.ReadEntry(off)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot of %s at %d: %w", id, off, err)
	}
	if got, err := snapshot.PeekID(e.Payload); err != nil {
		return nil, fmt.Errorf("snapshot of %s at %d: %w", id, off, err)
	} else if got != id {
		return nil, fmt.Errorf("snapshot at %d belongs to %s, not %s", off, got, id)
	}
	return e.Payload, nil
}

// verifyCompacted rescans the new log and checks it holds exactly what
// was written.
func verifyCompacted(path string, want digest) error {
	f, _, err := datafile.OpenReadOnly(path)
	if err != nil {
		return fmt.Errorf("verifying %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var got digest
	it := f.Iter()
	for e, ok := it.Next(); ok; e, ok = it.Next() {
		got.add(e.Offset, e.Payload)
	}
	if err := it.Err(); err != nil {
		return fmt.Errorf("verifying %s: %w", path, err)
	}
	if it.Stopped() != datafile.EndOfLog || got != want {
		return fmt.Errorf("verifying %s: read back %d records (%s), wrote %d", path, got.count, it.Stopped(), want.count)
	}
	return nil
}

// swap moves the compacted log at tmpPath over s.path, keeping the old
// log as a backup.  With hard links s.path always names a complete log.
func (s *Store) swap(tmpPath string) error {
	bakPath := s.path + backupSuffix
	if err := os.Remove(bakPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("os.Remove(%s): %w", bakPath, err)
	}

	linked := true
	if err := os.Link(s.path, bakPath); err != nil {
		linked = false
		s.logger.Warn("hard link failed, backing up by rename", "err", err)
		if err := os.Rename(s.path, bakPath); err != nil {
			_ = os.Remove(tmpPath)
			return fmt.Errorf("os.Rename(%s): %w", bakPath, err)
		}
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		if !linked {
			_ = os.Rename(bakPath, s.path)
		}
		_ = os.Remove(tmpPath)
		return fmt.Errorf("os.Rename(%s): %w", tmpPath, err)
	}

	// the swap already happened; the store has to move to the new file regardless
	if err := datafile.SyncDir(filepath.Dir(s.path)); err != nil {
		s.logger.Warn("syncing log directory after compaction", "err", err)
	}
	return nil
}
