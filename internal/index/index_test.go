// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package index

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffsets(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	o := NewOffsets()
	_, ok := o.Get(a)
	assert.False(t, ok)

	o.Set(b, 100)
	o.Set(a, 8)
	o.Set(a, 200)

	off, ok := o.Get(a)
	require.True(t, ok)
	assert.Equal(t, int64(200), off)
	assert.Equal(t, 2, o.Len())
	assert.Equal(t, []uuid.UUID{a, b}, o.IDs())

	other := NewOffsets()
	other.Set(a, 200)
	assert.False(t, o.Equal(other))
	other.Set(b, 100)
	assert.True(t, o.Equal(other))
	other.Set(b, 101)
	assert.False(t, o.Equal(other))
}

func TestNames(t *testing.T) {
	steve := uuid.New()
	alex := uuid.New()
	stevie := uuid.New()

	n := NewNames()
	n.Set(steve, "Steve")
	n.Set(alex, "alex")
	n.Set(stevie, "STEVIE")
	n.Set(uuid.New(), "")
	assert.Equal(t, 3, n.Len())

	id, ok := n.Lookup("sTeVe")
	require.True(t, ok)
	assert.Equal(t, steve, id)
	_, ok = n.Lookup("")
	assert.False(t, ok)
	_, ok = n.Lookup("herobrine")
	assert.False(t, ok)

	assert.Equal(t, []uuid.UUID{steve, stevie}, n.WithPrefix("ste"))
	assert.Equal(t, []uuid.UUID{alex, steve, stevie}, n.WithPrefix(""))
	assert.Empty(t, n.WithPrefix("z"))

	// renaming drops the old name
	n.Set(steve, "Notch")
	_, ok = n.Lookup("steve")
	assert.False(t, ok)
	id, ok = n.Lookup("notch")
	require.True(t, ok)
	assert.Equal(t, steve, id)

	// a case-only rename keeps the entry
	n.Set(alex, "Alex")
	id, ok = n.Lookup("ALEX")
	require.True(t, ok)
	assert.Equal(t, alex, id)

	// a name taken over by another player isn't removed when the first renames
	n.Set(stevie, "notch")
	n.Set(steve, "")
	id, ok = n.Lookup("notch")
	require.True(t, ok)
	assert.Equal(t, stevie, id)
	assert.Equal(t, 2, n.Len())
}
