// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package datafile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	// RecordKindPlayer marks an envelope holding one player snapshot.
	RecordKindPlayer uint8 = 1

	envelopePrefixSize = 1 + 4 // kind + payload length
	checksumSize       = 4

	// MinEnvelopeSize is the size of an envelope with an empty payload.
	MinEnvelopeSize = envelopePrefixSize + checksumSize

	maxPayloadLen = math.MaxUint32
)

var (
	// ErrShortRead is returned when a read asks for bytes past the end of the log.
	ErrShortRead = errors.New("short read: past end of log")
	// ErrChecksumMismatch is returned by strict reads of a corrupted envelope.
	ErrChecksumMismatch = errors.New("checksum mismatch: log corrupted")
)

// EnvelopeLen is the on-disk size of an envelope carrying payloadLen bytes.
func EnvelopeLen(payloadLen int) int64 {
	return int64(envelopePrefixSize + payloadLen + checksumSize)
}

// AppendEnvelope appends a complete envelope for payload to dst.
func AppendEnvelope(dst []byte, kind uint8, payload []byte) ([]byte, error) {
	if uint64(len(payload)) > maxPayloadLen {
		return nil, fmt.Errorf("payload too long: %d bytes", len(payload))
	}
	var prefix [envelopePrefixSize]byte
	prefix[0] = kind
	binary.BigEndian.PutUint32(prefix[1:], uint32(len(payload)))
	dst = append(dst, prefix[:]...)
	dst = append(dst, payload...)
	return binary.BigEndian.AppendUint32(dst, Checksum(payload)), nil
}

// StopReason says why readEnvelope couldn't produce an entry.
type StopReason int

const (
	NotStopped StopReason = iota
	EndOfLog
	TruncatedTail
	ChecksumFailed
	ReadFailed
)

func (r StopReason) String() string {
	switch r {
	case NotStopped:
		return "not stopped"
	case EndOfLog:
		return "end of log"
	case TruncatedTail:
		return "truncated tail"
	case ChecksumFailed:
		return "checksum mismatch"
	case ReadFailed:
		return "read failed"
	default:
		return fmt.Sprintf("StopReason(%d)", int(r))
	}
}

// Entry is one validated envelope.
type Entry struct {
	Kind    uint8
	Offset  int64
	Payload []byte
}

// Len is the number of bytes the entry occupies in the log.
func (e Entry) Len() int64 {
	return EnvelopeLen(len(e.Payload))
}

// readEnvelope reads and validates the envelope at off in a log of the
// given size.  It never reads past size.
func readEnvelope(r io.ReaderAt, off, size int64) (Entry, StopReason, error) {
	if size-off == 0 {
		return Entry{}, EndOfLog, nil
	}
	if size-off < envelopePrefixSize {
		return Entry{}, TruncatedTail, nil
	}

	var prefix [envelopePrefixSize]byte
	if n, err := r.ReadAt(prefix[:], off); n != len(prefix) {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return Entry{}, ReadFailed, fmt.Errorf("ReadAt(%d): %w", off, err)
	}
	kind := prefix[0]
	payloadLen := int64(binary.BigEndian.Uint32(prefix[1:]))

	payloadStart := off + envelopePrefixSize
	payloadEnd := payloadStart + payloadLen
	if payloadEnd > size || payloadEnd+checksumSize > size {
		return Entry{}, TruncatedTail, nil
	}

	buf := make([]byte, payloadLen+checksumSize)
	if n, err := r.ReadAt(buf, payloadStart); n != len(buf) {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return Entry{}, ReadFailed, fmt.Errorf("ReadAt(%d, len: %d): %w", payloadStart, len(buf), err)
	}
	payload := buf[:payloadLen]
	expectedChecksum := binary.BigEndian.Uint32(buf[payloadLen:])
	if Checksum(payload) != expectedChecksum {
		return Entry{}, ChecksumFailed, nil
	}

	return Entry{Kind: kind, Offset: off, Payload: payload}, NotStopped, nil
}
