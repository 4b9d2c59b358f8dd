// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package datafile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	magicDataHeader = 0x52504746 // "RPGF"

	// FormatVersion is the payload format version written into new files.
	FormatVersion = 1

	// FileHeaderSize is the length of the header this version writes and
	// expects to read.
	FileHeaderSize = 8
)

// ErrHeaderMismatch is returned when a file's header doesn't describe a
// log this version of the library can read.
var ErrHeaderMismatch = errors.New("log header mismatch")

// versions this reader understands
var knownVersions = map[uint16]bool{
	1: true,
}

type fileHeader struct {
	magic         uint32
	formatVersion uint16
	headerLen     uint16
}

func newFileHeader() *fileHeader {
	return &fileHeader{
		magic:         magicDataHeader,
		formatVersion: FormatVersion,
		headerLen:     FileHeaderSize,
	}
}

// EncodeHeader returns the header bytes for a new log file.
func EncodeHeader() []byte {
	buf := make([]byte, FileHeaderSize)
	// can't fail: buf is exactly big enough
	_ = newFileHeader().MarshalTo(buf)
	return buf
}

// DecodeHeader validates the header at the start of b and returns the
// format version it declares.
func DecodeHeader(b []byte) (version uint16, err error) {
	var h fileHeader
	if err := h.UnmarshalBytes(b); err != nil {
		return 0, err
	}
	return h.formatVersion, nil
}

func (h *fileHeader) MarshalTo(buf []byte) error {
	if len(buf) < FileHeaderSize {
		return fmt.Errorf("buffer too short for header: %d < %d", len(buf), FileHeaderSize)
	}
	binary.BigEndian.PutUint32(buf[0:4], h.magic)
	binary.BigEndian.PutUint16(buf[4:6], h.formatVersion)
	binary.BigEndian.PutUint16(buf[6:8], h.headerLen)
	return nil
}

func (h *fileHeader) WriteTo(w io.Writer) (n int64, err error) {
	var headerBuf [FileHeaderSize]byte
	if err := h.MarshalTo(headerBuf[:]); err != nil {
		return 0, err
	}
	written, err := w.Write(headerBuf[:])
	if err != nil {
		return int64(written), fmt.Errorf("write: %w", err)
	}
	return int64(written), nil
}

func (h *fileHeader) UnmarshalBytes(headerBytes []byte) error {
	if len(headerBytes) < FileHeaderSize {
		return fmt.Errorf("%w: header too short: %d < %d", ErrHeaderMismatch, len(headerBytes), FileHeaderSize)
	}

	h.magic = binary.BigEndian.Uint32(headerBytes[0:4])
	if h.magic != magicDataHeader {
		return fmt.Errorf("%w: bad magic number (%x) -- not a player log or corrupted", ErrHeaderMismatch, h.magic)
	}

	h.formatVersion = binary.BigEndian.Uint16(headerBytes[4:6])
	h.headerLen = binary.BigEndian.Uint16(headerBytes[6:8])
	if h.headerLen != FileHeaderSize {
		return fmt.Errorf("%w: header declares %d bytes, this version reads %d", ErrHeaderMismatch, h.headerLen, FileHeaderSize)
	}
	if !knownVersions[h.formatVersion] {
		return fmt.Errorf("%w: this version of playerlog can only read v%d logs; found v%d", ErrHeaderMismatch, FormatVersion, h.formatVersion)
	}

	return nil
}
