// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package playerlog

import (
	"bytes"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/bpowers/playerlog/internal/datafile"
	"github.com/bpowers/playerlog/internal/index"
	"github.com/bpowers/playerlog/internal/snapshot"
	"github.com/bpowers/playerlog/player"
)

// recovery is everything a scan of the log learned.
type recovery struct {
	offsets   *index.Offsets
	names     *index.Names
	records   map[uuid.UUID]player.Record
	envelopes int
	skipped   int
	end       int64
	stopped   datafile.StopReason
}

// rebuild walks every envelope after the header, keeping the latest
// decodable snapshot per player.  It stops quietly at a torn or corrupt
// tail and only fails on I/O errors.  It never writes to f.
func rebuild(f *datafile.File, version uint16, logger *slog.Logger) (*recovery, error) {
	rec := &recovery{
		offsets: index.NewOffsets(),
		names:   index.NewNames(),
		records: make(map[uuid.UUID]player.Record),
	}

	it := f.Iter()
	for e, ok := it.Next(); ok; e, ok = it.Next() {
		if e.Kind != datafile.RecordKindPlayer {
			logger.Warn("skipping envelope of unknown kind", "offset", e.Offset, "kind", e.Kind)
			rec.skipped++
			continue
		}
		r, err := snapshot.Decode(e.Payload, version)
		if err != nil {
			logger.Warn("skipping undecodable snapshot", "offset", e.Offset, "err", err)
			rec.skipped++
			continue
		}
		rec.envelopes++
		rec.offsets.Set(r.ID, e.Offset)
		rec.names.Set(r.ID, r.Name)
		rec.records[r.ID] = r
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", f.Name(), err)
	}
	rec.end = it.Offset()
	rec.stopped = it.Stopped()

	return rec, nil
}

// ScanReport describes a log without modifying it.
type ScanReport struct {
	// Version is the format version from the header.
	Version uint16
	// Envelopes is the number of valid player snapshots, superseded ones included.
	Envelopes int
	// Skipped counts checksummed envelopes of an unknown kind or with an
	// undecodable payload.
	Skipped int
	// ValidBytes is the length of the prefix recovery accepts.  Anything
	// between it and FileBytes would be truncated by Open.
	ValidBytes int64
	FileBytes  int64
	// StopReason is why the scan ended, e.g. "end of log" or "truncated tail".
	StopReason string
	// Players holds the latest snapshot of every player, ordered by id.
	Players []player.Record
}

// Scan reads the log at path the way Open does, but read-only and without
// taking the writer lock, so it is safe to run against a live store.
func Scan(path string, opts ...Option) (*ScanReport, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	f, version, err := datafile.OpenReadOnly(path)
	if err != nil {
		return nil, fmt.Errorf("datafile.OpenReadOnly: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	rec, err := rebuild(f, version, o.logger)
	if err != nil {
		return nil, err
	}

	report := &ScanReport{
		Version:    version,
		Envelopes:  rec.envelopes,
		Skipped:    rec.skipped,
		ValidBytes: rec.end,
		FileBytes:  f.Size(),
		StopReason: rec.stopped.String(),
		Players:    make([]player.Record, 0, len(rec.records)),
	}
	for _, r := range rec.records {
		report.Players = append(report.Players, r)
	}
	sortRecords(report.Players)
	return report, nil
}

func sortRecords(rs []player.Record) {
	sort.Slice(rs, func(i, j int) bool {
		return bytes.Compare(rs[i].ID[:], rs[j].ID[:]) < 0
	})
}
