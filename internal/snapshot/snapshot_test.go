// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package snapshot

import (
	"encoding/binary"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/playerlog/player"
)

var testID = uuid.UUID{
	0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11,
	0x22, 0x22, 0x22, 0x22, 0x22, 0x22, 0x22, 0x22,
}

func testRecord() player.Record {
	r := player.New(testID)
	r.Skills[player.Mining] = 500
	r.Skills[player.Woodcutting] = 70
	return r
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_123)

	r := testRecord()
	b, err := Encode(r, now)
	require.NoError(t, err)

	decoded, err := Decode(b, 1)
	require.NoError(t, err)
	assert.True(t, r.Equal(decoded), "got %+v", decoded)
	assert.Equal(t, map[player.Skill]int64{player.Mining: 500, player.Woodcutting: 70}, decoded.Skills)
	assert.Equal(t, now, decoded.SavedAt)

	id, err := PeekID(b)
	require.NoError(t, err)
	assert.Equal(t, testID, id)
}

func TestEncodeDecode_RandomRecords(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		r := player.New(uuid.New())
		if rng.Intn(2) == 0 {
			r.Name = uuid.NewString()[:rng.Intn(16)]
		}
		for _, s := range player.Skills() {
			if rng.Intn(3) == 0 {
				r.Skills[s] = rng.Int63() - rng.Int63()
			}
		}
		b, err := Encode(r, time.Now())
		require.NoError(t, err)
		decoded, err := Decode(b, 1)
		require.NoError(t, err)
		require.True(t, r.Equal(decoded), "record %d: %+v != %+v", i, r, decoded)
	}
}

func TestEncode_ByteLayout(t *testing.T) {
	r := player.New(testID)
	r.Skills[player.Herbalism] = 1400
	b, err := Encode(r, time.UnixMilli(2))
	require.NoError(t, err)

	require.Len(t, b, PrefixSize+entryHeaderSize+skillBodySize)
	assert.Equal(t, uint64(2), binary.BigEndian.Uint64(b[0:8]))
	assert.Equal(t, uint64(0x1111111111111111), binary.BigEndian.Uint64(b[8:16]))
	assert.Equal(t, uint64(0x2222222222222222), binary.BigEndian.Uint64(b[16:24]))
	assert.Equal(t, uint32(entryHeaderSize+skillBodySize), binary.BigEndian.Uint32(b[24:28]))
	assert.Equal(t, TagSkill, b[28])
	assert.Equal(t, uint32(skillBodySize), binary.BigEndian.Uint32(b[29:33]))
	assert.Equal(t, uint16(8), binary.BigEndian.Uint16(b[33:35]))
	assert.Equal(t, uint64(1400), binary.BigEndian.Uint64(b[35:43]))
}

func TestEncode_Name(t *testing.T) {
	r := testRecord()
	r.Name = "Steve"
	b, err := Encode(r, time.Now())
	require.NoError(t, err)

	// the name comes first
	assert.Equal(t, TagPlayerName, b[PrefixSize])
	assert.Equal(t, "Steve", string(b[PrefixSize+entryHeaderSize:PrefixSize+entryHeaderSize+5]))

	decoded, err := Decode(b, 1)
	require.NoError(t, err)
	assert.Equal(t, "Steve", decoded.Name)
	assert.True(t, r.Equal(decoded))
}

// buildPayload assembles a payload from raw TLV entries, with an explicit
// region length.
func buildPayload(regionLen uint32, entries ...[]byte) []byte {
	b := binary.BigEndian.AppendUint64(nil, 0)
	b = append(b, testID[:]...)
	b = binary.BigEndian.AppendUint32(b, regionLen)
	for _, e := range entries {
		b = append(b, e...)
	}
	return b
}

func skillEntry(code uint16, value int64) []byte {
	body := binary.BigEndian.AppendUint16(nil, code)
	body = binary.BigEndian.AppendUint64(body, uint64(value))
	return appendEntry(nil, TagSkill, body)
}

func regionLen(entries ...[]byte) uint32 {
	n := 0
	for _, e := range entries {
		n += len(e)
	}
	return uint32(n)
}

func TestDecode_UnknownTagSkipped(t *testing.T) {
	for _, l := range []int{0, 1, 7, 10, 255, 4096} {
		body := make([]byte, l)
		for i := range body {
			// make the unknown body look like more TLV entries
			body[i] = TagSkill
		}
		known := skillEntry(uint16(player.Mining), 500)
		unknown := appendEntry(nil, 0x7f, body)
		after := skillEntry(uint16(player.Axes), 3)

		b := buildPayload(regionLen(known, unknown, after), known, unknown, after)
		decoded, err := Decode(b, 1)
		require.NoError(t, err, "len %d", l)
		assert.Equal(t, map[player.Skill]int64{player.Mining: 500, player.Axes: 3}, decoded.Skills, "len %d", l)
	}
}

func TestDecode_UnknownSkillCodeSkipped(t *testing.T) {
	known := skillEntry(uint16(player.Repair), 9)
	unknown := skillEntry(999, 1)
	b := buildPayload(regionLen(unknown, known), unknown, known)

	decoded, err := Decode(b, 1)
	require.NoError(t, err)
	assert.Equal(t, map[player.Skill]int64{player.Repair: 9}, decoded.Skills)
}

func TestDecode_OddSkillBodies(t *testing.T) {
	short := appendEntry(nil, TagSkill, []byte{0, 1, 0, 0})
	// a Swords entry padded with 3 extra bytes
	long := []byte{TagSkill, 0, 0, 0, 13, 0, 4, 0, 0, 0, 0, 0, 0, 0, 42, 0xaa, 0xbb, 0xcc}
	tail := skillEntry(uint16(player.Archery), 1)

	b := buildPayload(regionLen(short, long, tail), short, long, tail)
	decoded, err := Decode(b, 1)
	require.NoError(t, err)
	assert.Equal(t, map[player.Skill]int64{player.Swords: 42, player.Archery: 1}, decoded.Skills)
}

func TestDecode_DamagedRegionIsPartial(t *testing.T) {
	first := skillEntry(uint16(player.Mining), 500)
	second := skillEntry(uint16(player.Woodcutting), 70)

	// an entry whose declared length runs past the region
	overlong := appendEntry(nil, TagSkill, make([]byte, 10))
	binary.BigEndian.PutUint32(overlong[1:5], 1000)
	b := buildPayload(regionLen(first, overlong), first, overlong)
	decoded, err := Decode(b, 1)
	require.NoError(t, err)
	assert.Equal(t, map[player.Skill]int64{player.Mining: 500}, decoded.Skills)

	// a region length that cuts the second entry in half
	b = buildPayload(regionLen(first)+7, first, second)
	decoded, err = Decode(b, 1)
	require.NoError(t, err)
	assert.Equal(t, map[player.Skill]int64{player.Mining: 500}, decoded.Skills)

	// a region length larger than the payload
	b = buildPayload(1<<31, first, second)
	decoded, err = Decode(b, 1)
	require.NoError(t, err)
	assert.Equal(t, map[player.Skill]int64{player.Mining: 500, player.Woodcutting: 70}, decoded.Skills)

	// trailing bytes too short for an entry header
	b = buildPayload(regionLen(first)+3, first, []byte{TagSkill, 0, 0})
	decoded, err = Decode(b, 1)
	require.NoError(t, err)
	assert.Equal(t, map[player.Skill]int64{player.Mining: 500}, decoded.Skills)

	// bytes after the declared region are ignored
	b = buildPayload(regionLen(first), first, second)
	decoded, err = Decode(b, 1)
	require.NoError(t, err)
	assert.Equal(t, map[player.Skill]int64{player.Mining: 500}, decoded.Skills)
}

func TestDecode_TruncatedPrefix(t *testing.T) {
	b, err := Encode(testRecord(), time.Now())
	require.NoError(t, err)

	for i := 0; i < PrefixSize; i++ {
		_, err := Decode(b[:i], 1)
		assert.ErrorIs(t, err, ErrTruncated, "len %d", i)
		_, err = PeekID(b[:i])
		assert.ErrorIs(t, err, ErrTruncated, "len %d", i)
	}

	// an empty region is fine
	decoded, err := Decode(buildPayload(0), 1)
	require.NoError(t, err)
	assert.Empty(t, decoded.Skills)
	assert.Equal(t, testID, decoded.ID)
}

func TestDecode_UnknownVersionIsLiberal(t *testing.T) {
	b, err := Encode(testRecord(), time.Now())
	require.NoError(t, err)
	decoded, err := Decode(b, 9)
	require.NoError(t, err)
	assert.True(t, testRecord().Equal(decoded))
}
