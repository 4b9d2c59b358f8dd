// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package datafile

import "hash/crc32"

// Checksum is the CRC-32 (IEEE polynomial) of b, the same code
// java.util.zip.CRC32 and zlib produce.
func Checksum(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}
