// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package datafile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
)

const defaultBufferSize = 1024 * 1024

type nopWriter struct{}

func (nopWriter) Write([]byte) (int, error) {
	return 0, io.EOF
}

// FileWriter is usually an *os.File, but specified as an interface for easier testing.
type FileWriter interface {
	io.Writer
	Sync() error
}

// Writer builds a whole new log in one pass.  Unlike File.Append it
// buffers envelopes and only syncs once, in Finish, so it is meant for
// files that aren't visible until they are complete (compaction output).
type Writer struct {
	f        FileWriter
	w        *bufio.Writer
	scratch  []byte
	off      int64
	count    int
	finished atomic.Bool
}

// NewWriter writes a fresh header to f and returns a Writer positioned
// after it.
func NewWriter(f FileWriter) (*Writer, error) {
	w := &Writer{
		f: f,
		w: bufio.NewWriterSize(f, defaultBufferSize),
	}

	if headerLen, err := newFileHeader().WriteTo(w.w); err != nil {
		return nil, fmt.Errorf("fileHeader.WriteTo: %w", err)
	} else {
		w.off = headerLen
	}

	// try to expose errors when writing to the backing file early
	if err := w.w.Flush(); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}

	return w, nil
}

// Write buffers an envelope and returns the offset it will occupy.
func (w *Writer) Write(kind uint8, payload []byte) (off int64, err error) {
	if w.finished.Load() {
		return 0, errors.New("write after Finish")
	}
	off = w.off
	if off < FileHeaderSize {
		return 0, errors.New("invariant broken: always expect *Writer.off to be past the header")
	}

	w.scratch, err = AppendEnvelope(w.scratch[:0], kind, payload)
	if err != nil {
		return 0, err
	}
	n, err := w.w.Write(w.scratch)
	if err != nil {
		return 0, fmt.Errorf("bufio.Write: %w", err)
	}

	w.off += int64(n)
	w.count++
	return off, nil
}

// Len is the number of envelopes written.
func (w *Writer) Len() int {
	return w.count
}

// Size is the number of bytes written, header included.
func (w *Writer) Size() int64 {
	return w.off
}

// Finish flushes buffered envelopes and syncs the file.  It doesn't close it.
func (w *Writer) Finish() error {
	if alreadyFinished := w.finished.Swap(true); alreadyFinished {
		// nothing to do - already cleaned up
		return nil
	}

	defer func() {
		w.w.Reset(nopWriter{})
	}()

	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("bufio.Flush: %w", err)
	}

	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}
