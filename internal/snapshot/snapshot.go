// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package snapshot encodes and decodes the payload of a player snapshot
// envelope.
//
// A payload is a fixed prefix followed by a TLV region:
//
//	payload :=
//		writtenAt  int64          // milliseconds since the Unix epoch
//		idHigh     int64          // first 8 bytes of the UUID
//		idLow      int64          // last 8 bytes of the UUID
//		regionLen  uint32
//		entry*                    // exactly regionLen bytes
//
//	entry :=
//		tag    uint8
//		length uint32
//		body   [length]uint8
//
// Known tags are TagPlayerName (UTF-8 name) and TagSkill (uint16 skill
// code + int64 value).  Entries with unknown tags, and skill entries with
// unknown codes, are skipped by their length so older readers can load
// logs written by newer ones.
package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/bpowers/playerlog/player"
)

const (
	TagPlayerName uint8 = 0x01
	TagSkill      uint8 = 0x10

	// PrefixSize is the fixed part of every payload, including regionLen.
	PrefixSize = 8 + 8 + 8 + 4

	entryHeaderSize = 1 + 4
	skillBodySize   = 2 + 8
)

// ErrTruncated means a payload is too short to hold even the fixed prefix.
var ErrTruncated = errors.New("snapshot payload truncated")

// Encode serializes the full state of r, stamped with writtenAt.
func Encode(r player.Record, writtenAt time.Time) ([]byte, error) {
	var region []byte
	if r.Name != "" {
		region = appendEntry(region, TagPlayerName, []byte(r.Name))
	}
	var body [skillBodySize]byte
	for _, s := range r.SortedSkills() {
		binary.BigEndian.PutUint16(body[:2], uint16(s))
		binary.BigEndian.PutUint64(body[2:], uint64(r.Skills[s]))
		region = appendEntry(region, TagSkill, body[:])
	}
	if uint64(len(region)) > math.MaxUint32 {
		return nil, fmt.Errorf("snapshot for %s too large: %d bytes", r.ID, len(region))
	}

	buf := make([]byte, 0, PrefixSize+len(region))
	buf = binary.BigEndian.AppendUint64(buf, uint64(writtenAt.UnixMilli()))
	buf = append(buf, r.ID[:]...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(region)))
	buf = append(buf, region...)
	return buf, nil
}

func appendEntry(dst []byte, tag uint8, body []byte) []byte {
	dst = append(dst, tag)
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(body)))
	return append(dst, body...)
}

type decodeFunc func(c *cursor, r *player.Record)

// payload decoders by log format version
var decoders = map[uint16]decodeFunc{
	1: decodeRegionV1,
}

// Decode parses a payload written under formatVersion.  Only a payload too
// short for the fixed prefix is an error: a damaged TLV region yields the
// entries parsed before the damage.
func Decode(b []byte, formatVersion uint16) (player.Record, error) {
	c := newCursor(b)
	writtenAt, ok1 := c.u64()
	idBytes, ok2 := c.take(len(uuid.UUID{}))
	regionLen, ok3 := c.u32()
	if !ok1 || !ok2 || !ok3 {
		return player.Record{}, fmt.Errorf("%w: %d bytes, need at least %d", ErrTruncated, len(b), PrefixSize)
	}

	var id uuid.UUID
	copy(id[:], idBytes)
	r := player.New(id)
	r.SavedAt = time.UnixMilli(int64(writtenAt))

	decode, ok := decoders[formatVersion]
	if !ok {
		// be liberal: newer versions only ever add tags
		decode = decodeRegionV1
	}
	decode(c.region(regionLen), &r)
	return r, nil
}

// PeekID returns the player id of an encoded payload without decoding the
// TLV region.
func PeekID(b []byte) (uuid.UUID, error) {
	if len(b) < PrefixSize {
		return uuid.Nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrTruncated, len(b), PrefixSize)
	}
	var id uuid.UUID
	copy(id[:], b[8:24])
	return id, nil
}

func decodeRegionV1(c *cursor, r *player.Record) {
	for c.remaining() > 0 {
		tag, _ := c.u8()
		length, ok := c.u32()
		if !ok {
			return
		}
		body, ok := c.take(int(length))
		if !ok {
			return
		}

		switch tag {
		case TagPlayerName:
			r.Name = string(body)
		case TagSkill:
			if len(body) < skillBodySize {
				continue
			}
			// anything past the first skillBodySize bytes is ignored
			bc := newCursor(body)
			code, _ := bc.u16()
			value, _ := bc.u64()
			if s, known := player.SkillFromCode(code); known {
				r.Skills[s] = int64(value)
			}
		}
	}
}
