// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Command gen-testdata fills a player log with random players, saving
// each several times so there is something for compaction to reclaim.
package main

import (
	crand "crypto/rand"
	"encoding/binary"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/google/uuid"

	"github.com/bpowers/playerlog"
	"github.com/bpowers/playerlog/player"
)

const (
	defaultPlayers   = 10000
	defaultSnapshots = 4
	namePrefix       = "player_"
)

func newRand() *rand.Rand {
	var seedBytes [8]byte
	_, _ = crand.Read(seedBytes[:])
	seed := int64(binary.LittleEndian.Uint64(seedBytes[:]))
	return rand.New(rand.NewSource(seed))
}

func main() {
	path := flag.String("path", "testdata/players.db", "player log to create or extend")
	nPlayers := flag.Int("players", defaultPlayers, "number of players")
	nSnapshots := flag.Int("snapshots", defaultSnapshots, "snapshots saved per player")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := generate(*path, *nPlayers, *nSnapshots, newRand(), logger); err != nil {
		logger.Error("generating test data", "err", err)
		os.Exit(1)
	}
}

func generate(path string, nPlayers, nSnapshots int, rng *rand.Rand, logger *slog.Logger) error {
	s, err := playerlog.Open(path, playerlog.WithLogger(logger))
	if err != nil {
		return err
	}

	ids := make([]uuid.UUID, nPlayers)
	for i := range ids {
		if _, err := rng.Read(ids[i][:]); err != nil {
			_ = s.Close()
			return err
		}
		// stamp as a random (version 4) UUID
		ids[i][6] = (ids[i][6] & 0x0f) | 0x40
		ids[i][8] = (ids[i][8] & 0x3f) | 0x80
	}

	skills := player.Skills()
	for round := 0; round < nSnapshots; round++ {
		for i, id := range ids {
			s.Update(id, func(r *player.Record) {
				if r.Name == "" {
					r.Name = fmt.Sprintf("%s%06d", namePrefix, i)
				}
				skill := skills[rng.Intn(len(skills))]
				r.Skills[skill] += rng.Int63n(1000)
			})
			if err := s.Save(id); err != nil {
				_ = s.Close()
				return err
			}
		}
	}

	logger.Info("generated player log", "path", s.Path(), "players", s.Len(), "bytes", s.Size())
	return s.Close()
}
