// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package playerlog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bpowers/playerlog/internal/datafile"
	"github.com/bpowers/playerlog/internal/index"
	"github.com/bpowers/playerlog/internal/lock"
	"github.com/bpowers/playerlog/internal/snapshot"
	"github.com/bpowers/playerlog/player"
)

// ErrClosed is returned by operations on a Store after Close.
var ErrClosed = errors.New("playerlog: store closed")

const corruptSuffix = ".corrupt-"

type cached struct {
	rec   player.Record
	dirty bool
}

// Store is an open player log.  All methods are safe to call from
// multiple goroutines, but operations are serialized.
type Store struct {
	mu sync.Mutex

	path    string
	logger  *slog.Logger
	now     func() time.Time
	metrics *metrics
	lock    *lock.Lock

	log     *datafile.File
	version uint16
	offsets *index.Offsets
	names   *index.Names
	cache   map[uuid.UUID]*cached
	closed  bool
}

// Open opens the log at path, creating it and its parent directory if
// needed, and recovers the latest snapshot of every player into memory.
// A torn or corrupt tail left by an unclean shutdown is truncated away.
// Only one Store may have a given path open at a time.
func Open(path string, opts ...Option) (*Store, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("filepath.Abs: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("os.MkdirAll: %w", err)
	}

	m, err := newMetrics(o.registerer)
	if err != nil {
		return nil, err
	}

	l, err := lock.Acquire(path + ".lock")
	if err != nil {
		return nil, fmt.Errorf("lock.Acquire: %w", err)
	}

	f, version, err := datafile.Open(path)
	if err != nil {
		_ = l.Release()
		return nil, fmt.Errorf("datafile.Open: %w", err)
	}

	s := &Store{
		path:    path,
		logger:  o.logger,
		now:     o.now,
		metrics: m,
		lock:    l,
		log:     f,
		version: version,
	}
	if err := s.recover(); err != nil {
		_ = f.Close()
		_ = l.Release()
		return nil, err
	}
	return s, nil
}

func (s *Store) recover() error {
	rec, err := rebuild(s.log, s.version, s.logger)
	if err != nil {
		return err
	}

	if size := s.log.Size(); rec.end < size {
		discarded := size - rec.end
		// A checksum failure can sit in front of intact snapshots, so keep
		// a copy of everything we drop.  A short tail is a torn write.
		var kept string
		if rec.stopped == datafile.ChecksumFailed {
			if kept, err = s.preserveTail(rec.end); err != nil {
				return err
			}
		}
		s.logger.Warn("truncating damaged log tail",
			"path", s.path,
			"reason", rec.stopped.String(),
			"offset", rec.end,
			"discarded_bytes", discarded,
			"saved_to", kept)
		if err := s.log.Truncate(rec.end); err != nil {
			return fmt.Errorf("repairing tail: %w", err)
		}
		s.metrics.discardedTailBytes.Add(float64(discarded))
	}

	s.offsets = rec.offsets
	s.names = rec.names
	s.cache = make(map[uuid.UUID]*cached, len(rec.records))
	for id, r := range rec.records {
		s.cache[id] = &cached{rec: r}
	}

	s.metrics.recoveredRecords.Add(float64(rec.envelopes))
	s.metrics.skippedEnvelopes.Add(float64(rec.skipped))
	s.metrics.cachedPlayers.Set(float64(len(s.cache)))
	s.metrics.logBytes.Set(float64(s.log.Size()))

	s.logger.Info("recovered player log",
		"path", s.path,
		"format_version", s.version,
		"players", s.offsets.Len(),
		"snapshots", rec.envelopes,
		"skipped", rec.skipped,
		"bytes", s.log.Size())
	return nil
}

// preserveTail copies everything from off to the end of the log into
// path+".corrupt-<off>" and syncs it.
func (s *Store) preserveTail(off int64) (string, error) {
	tail, err := s.log.ReadAt(off, s.log.Size()-off)
	if err != nil {
		return "", fmt.Errorf("reading damaged tail: %w", err)
	}
	dst := fmt.Sprintf("%s%s%d", s.path, corruptSuffix, off)
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return "", fmt.Errorf("os.OpenFile(%s): %w", dst, err)
	}
	if _, err := f.Write(tail); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("sync %s: %w", dst, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", dst, err)
	}
	if err := datafile.SyncDir(filepath.Dir(dst)); err != nil {
		return "", fmt.Errorf("datafile.SyncDir: %w", err)
	}
	return dst, nil
}

// Path is the absolute path of the log.
func (s *Store) Path() string {
	return s.path
}

// Get returns a copy of the player's current record.  A player the store
// has never seen, or whose snapshot can no longer be read, comes back as
// a new empty record; Get never fails.
func (s *Store) Get(id uuid.UUID) player.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getLocked(id).rec.Clone()
}

func (s *Store) getLocked(id uuid.UUID) *cached {
	if c, ok := s.cache[id]; ok {
		return c
	}

	c := &cached{rec: player.New(id)}
	if off, ok := s.offsets.Get(id); ok {
		r, err := s.readRecord(off)
		if err == nil && r.ID == id {
			c.rec = r
		} else {
			if err == nil {
				err = fmt.Errorf("snapshot belongs to %s", r.ID)
			}
			s.logger.Warn("unreadable snapshot, starting player fresh",
				"player", id, "offset", off, "err", err)
		}
	}

	s.cache[id] = c
	s.metrics.cachedPlayers.Set(float64(len(s.cache)))
	return c
}

// readRecord strictly reads and decodes the snapshot at off.
func (s *Store) readRecord(off int64) (player.Record, error) {
	e, err := s.log.ReadEntry(off)
	if err != nil {
		return player.Record{}, err
	}
	if e.Kind != datafile.RecordKindPlayer {
		return player.Record{}, fmt.Errorf("envelope at %d has kind %d", off, e.Kind)
	}
	return snapshot.Decode(e.Payload, s.version)
}

// Update applies fn to the player's in-memory record and marks it dirty.
// The change is durable after the next Save or SaveAll.  fn must not
// change the record's ID.  After Close, fn isn't called.
func (s *Store) Update(id uuid.UUID, fn func(r *player.Record)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.updateLocked(id, fn)
}

func (s *Store) updateLocked(id uuid.UUID, fn func(r *player.Record)) {
	c := s.getLocked(id)
	prevName := c.rec.Name
	fn(&c.rec)
	c.rec.ID = id
	if c.rec.Skills == nil {
		c.rec.Skills = make(map[player.Skill]int64)
	}
	c.dirty = true
	if c.rec.Name != prevName {
		s.names.Set(id, c.rec.Name)
	}
}

// SetSkill sets one of the player's counters.
func (s *Store) SetSkill(id uuid.UUID, skill player.Skill, value int64) error {
	if !skill.Valid() {
		return fmt.Errorf("unknown skill %s", skill)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.updateLocked(id, func(r *player.Record) {
		r.Skills[skill] = value
	})
	return nil
}

// AddSkill adds delta to one of the player's counters and returns the new value.
func (s *Store) AddSkill(id uuid.UUID, skill player.Skill, delta int64) (int64, error) {
	if !skill.Valid() {
		return 0, fmt.Errorf("unknown skill %s", skill)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}
	var v int64
	s.updateLocked(id, func(r *player.Record) {
		r.Skills[skill] += delta
		v = r.Skills[skill]
	})
	return v, nil
}

// Dirty reports whether the player has changes that haven't been saved.
func (s *Store) Dirty(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cache[id]
	return ok && c.dirty
}

// Lookup finds a player by name, ignoring case.  If no player has that
// name and name is the UUID of a player in the log, that player is
// returned instead.
func (s *Store) Lookup(name string) (player.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.names.Lookup(name); ok {
		return s.getLocked(id).rec.Clone(), true
	}
	if id, err := uuid.Parse(name); err == nil {
		if _, ok := s.offsets.Get(id); ok {
			return s.getLocked(id).rec.Clone(), true
		}
	}
	return player.Record{}, false
}

// WithNamePrefix returns every named player whose name starts with
// prefix, ignoring case, ordered by name.
func (s *Store) WithNamePrefix(prefix string) []player.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.names.WithPrefix(prefix)
	out := make([]player.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.getLocked(id).rec.Clone())
	}
	return out
}

// knownIDsLocked is every id in the log or in memory.
func (s *Store) knownIDsLocked() []uuid.UUID {
	ids := s.offsets.IDs()
	for id := range s.cache {
		if _, ok := s.offsets.Get(id); !ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// All returns every known player, ordered by id.
func (s *Store) All() []player.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.knownIDsLocked()
	out := make([]player.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.getLocked(id).rec.Clone())
	}
	sortRecords(out)
	return out
}

// Len is the number of known players.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.knownIDsLocked())
}

// Size is the current size of the log in bytes.
func (s *Store) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0
	}
	return s.log.Size()
}

// Save appends a full snapshot of the player's in-memory record.  It is a
// no-op for players that aren't in memory.
func (s *Store) Save(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	return s.saveLocked(id)
}

func (s *Store) saveLocked(id uuid.UUID) error {
	c, ok := s.cache[id]
	if !ok {
		return nil
	}

	now := s.now()
	payload, err := snapshot.Encode(c.rec, now)
	if err != nil {
		return fmt.Errorf("snapshot.Encode(%s): %w", id, err)
	}
	env, err := datafile.AppendEnvelope(nil, datafile.RecordKindPlayer, payload)
	if err != nil {
		return fmt.Errorf("datafile.AppendEnvelope(%s): %w", id, err)
	}
	off, err := s.log.Append(env)
	if err != nil {
		return fmt.Errorf("appending snapshot of %s: %w", id, err)
	}

	s.offsets.Set(id, off)
	c.dirty = false
	c.rec.SavedAt = time.UnixMilli(now.UnixMilli())

	s.metrics.appends.Inc()
	s.metrics.appendedBytes.Add(float64(len(env)))
	s.metrics.logBytes.Set(float64(s.log.Size()))
	s.logger.Debug("saved player", "player", id, "offset", off, "bytes", len(env))
	return nil
}

// SaveAll saves every player held in memory, clean or not.  It keeps
// going after a failed save and returns all failures joined.
func (s *Store) SaveAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	return s.saveAllLocked()
}

func (s *Store) saveAllLocked() error {
	var errs []error
	for id := range s.cache {
		if err := s.saveLocked(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Unload saves the player if it has unsaved changes and then drops it
// from memory.  A later Get reads it back from the log.
func (s *Store) Unload(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	c, ok := s.cache[id]
	if !ok {
		return nil
	}
	if c.dirty {
		if err := s.saveLocked(id); err != nil {
			return err
		}
	}
	delete(s.cache, id)
	s.metrics.cachedPlayers.Set(float64(len(s.cache)))
	return nil
}

// Close saves every player in memory, syncs and closes the log, and
// releases the lock.  The log is closed even if saving fails.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.saveAllLocked(); err != nil {
		errs = append(errs, err)
	}
	if err := s.log.Sync(); err != nil {
		errs = append(errs, fmt.Errorf("sync: %w", err))
	}
	if err := s.log.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close: %w", err))
	}
	if err := s.lock.Release(); err != nil {
		errs = append(errs, fmt.Errorf("lock.Release: %w", err))
	}
	return errors.Join(errs...)
}
