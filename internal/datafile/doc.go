// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package datafile implements the append-only player log: its file
// header, the checksummed record envelope, durable appends, random
// access reads and the tolerant scan used to rebuild an index on open.
//
// A log file looks like:
//
//	┌───────────────────┐
//	│ file header       │
//	├───────────────────┤
//	│ envelope          │
//	│ envelope          │
//	│ ...               │
//	├───────────────────┤
//	│ torn tail?        │
//	└───────────────────┘
//
// The header is 8 bytes:
//
//	 0    1    2    3    4    5    6    7
//	+----+----+----+----+----+----+----+----+
//	| magic "RPGF"      | version | hdr len |
//	+----+----+----+----+----+----+----+----+
//
// and each envelope is:
//
//	envelope :=
//		kind     uint8
//		length   uint32
//		payload  [length]uint8
//		checksum uint32   // CRC-32 (IEEE) of payload
//
// All integers are big-endian.  Envelopes are only ever appended; a
// later envelope for the same player supersedes earlier ones.
//
// A scan stops, without error, at the first envelope that doesn't fit in
// the file or whose checksum doesn't match: after an unclean shutdown the
// last append may be partially written, and that is indistinguishable
// from corruption at the tail.
package datafile
