// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package index

import (
	"strings"

	"github.com/google/uuid"
	iradix "github.com/hashicorp/go-immutable-radix"
)

// Names is a case-insensitive name -> id index.  When two players share a
// name the most recent Set wins, matching the order snapshots are read.
type Names struct {
	tree *iradix.Tree
	byID map[uuid.UUID]string
}

func NewNames() *Names {
	return &Names{
		tree: iradix.New(),
		byID: make(map[uuid.UUID]string),
	}
}

func nameKey(name string) []byte {
	return []byte(strings.ToLower(name))
}

// Set points name at id, dropping id's previous name.  An empty name just
// removes id from the index.
func (n *Names) Set(id uuid.UUID, name string) {
	if prev, ok := n.byID[id]; ok {
		if strings.EqualFold(prev, name) {
			n.byID[id] = name
			n.tree, _, _ = n.tree.Insert(nameKey(name), id)
			return
		}
		// only remove the old key if it still belongs to id
		if owner, ok := n.tree.Get(nameKey(prev)); ok && owner.(uuid.UUID) == id {
			n.tree, _, _ = n.tree.Delete(nameKey(prev))
		}
		delete(n.byID, id)
	}
	if name == "" {
		return
	}
	n.tree, _, _ = n.tree.Insert(nameKey(name), id)
	n.byID[id] = name
}

// Lookup finds the id currently holding name.
func (n *Names) Lookup(name string) (uuid.UUID, bool) {
	if name == "" {
		return uuid.Nil, false
	}
	v, ok := n.tree.Get(nameKey(name))
	if !ok {
		return uuid.Nil, false
	}
	return v.(uuid.UUID), true
}

// WithPrefix returns the ids of every name starting with prefix, ordered
// by lower-cased name.
func (n *Names) WithPrefix(prefix string) []uuid.UUID {
	var ids []uuid.UUID
	n.tree.Root().WalkPrefix(nameKey(prefix), func(_ []byte, v interface{}) bool {
		ids = append(ids, v.(uuid.UUID))
		return false
	})
	return ids
}

// Len is the number of distinct names indexed.
func (n *Names) Len() int {
	return n.tree.Len()
}
