// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package datafile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

// Backing is usually an *os.File, but specified as an interface for easier testing.
type Backing interface {
	io.ReaderAt
	io.WriterAt
	Truncate(size int64) error
	Sync() error
	Close() error
}

// File is an open log.  Appends always land at the current end of the
// file and are flushed to stable storage before Append returns.
type File struct {
	b        Backing
	name     string
	size     int64
	isClosed atomic.Bool
}

// osBacking routes Sync through fdatasync where the platform has it.
type osBacking struct {
	*os.File
}

func (b osBacking) Sync() error {
	return datasync(b.File)
}

// Open opens the log at path for reading and appending, creating it if it
// doesn't exist.  A new or empty file is given a fresh header; otherwise
// the existing header is validated and its format version returned.
func Open(path string) (*File, uint16, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, 0, fmt.Errorf("os.OpenFile(%s): %w", path, err)
	}
	stats, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("f.Stat: %w", err)
	}

	lf := NewFile(osBacking{f}, path, stats.Size())
	version, err := lf.initHeader()
	if err != nil {
		_ = lf.Close()
		return nil, 0, err
	}
	return lf, version, nil
}

// OpenReadOnly opens an existing log without write access and validates
// its header.  Appends and truncation through the returned File fail.
func OpenReadOnly(path string) (*File, uint16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("os.Open(%s): %w", path, err)
	}
	stats, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("f.Stat: %w", err)
	}

	lf := NewFile(osBacking{f}, path, stats.Size())
	if lf.size == 0 {
		_ = lf.Close()
		return nil, 0, fmt.Errorf("%w: %s is empty", ErrHeaderMismatch, path)
	}
	version, err := lf.initHeader()
	if err != nil {
		_ = lf.Close()
		return nil, 0, err
	}
	return lf, version, nil
}

// Create creates a new log at path holding only a header, truncating
// anything already there.
func Create(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("os.OpenFile(%s): %w", path, err)
	}
	lf := NewFile(osBacking{f}, path, 0)
	if _, err := lf.initHeader(); err != nil {
		_ = lf.Close()
		return nil, err
	}
	return lf, nil
}

// NewFile wraps an already-open backing store of the given size.
func NewFile(b Backing, name string, size int64) *File {
	return &File{
		b:    b,
		name: name,
		size: size,
	}
}

func (f *File) initHeader() (uint16, error) {
	if f.size == 0 {
		if _, err := f.Append(EncodeHeader()); err != nil {
			return 0, fmt.Errorf("writing header: %w", err)
		}
		return FormatVersion, nil
	}
	header, err := f.ReadAt(0, FileHeaderSize)
	if err != nil {
		if errors.Is(err, ErrShortRead) {
			return 0, fmt.Errorf("%w: file is %d bytes", ErrHeaderMismatch, f.size)
		}
		return 0, err
	}
	return DecodeHeader(header)
}

// Name returns the path the file was opened with.
func (f *File) Name() string {
	return f.name
}

// Size is the current length of the log in bytes.
func (f *File) Size() int64 {
	return f.size
}

// Append writes p at the end of the log, syncs it, and returns the offset
// the write began at.  On error the logical end of the log doesn't move,
// so a failed partial write is overwritten by the next append.
func (f *File) Append(p []byte) (off int64, err error) {
	if f.isClosed.Load() {
		return 0, os.ErrClosed
	}
	off = f.size
	if n, err := f.b.WriteAt(p, off); err != nil {
		return 0, fmt.Errorf("WriteAt(%d): %w", off, err)
	} else if n != len(p) {
		return 0, fmt.Errorf("WriteAt(%d): short write of %d (wanted %d)", off, n, len(p))
	}
	if err := f.b.Sync(); err != nil {
		return 0, fmt.Errorf("sync: %w", err)
	}
	f.size += int64(len(p))
	return off, nil
}

// ReadAt reads exactly n bytes at off.  Asking for bytes past the end of
// the log is an ErrShortRead.
func (f *File) ReadAt(off, n int64) ([]byte, error) {
	if f.isClosed.Load() {
		return nil, os.ErrClosed
	}
	if off < 0 || n < 0 || off+n > f.size {
		return nil, fmt.Errorf("ReadAt(%d, len: %d) in log of %d bytes: %w", off, n, f.size, ErrShortRead)
	}
	buf := make([]byte, n)
	if read, err := f.b.ReadAt(buf, off); int64(read) != n {
		if err == nil || errors.Is(err, io.EOF) {
			err = ErrShortRead
		}
		return nil, fmt.Errorf("ReadAt(%d, len: %d): %w", off, n, err)
	}
	return buf, nil
}

// ReadEntry strictly reads the envelope at off: an envelope that runs past
// the end of the log or fails its checksum is an error.
func (f *File) ReadEntry(off int64) (Entry, error) {
	if f.isClosed.Load() {
		return Entry{}, os.ErrClosed
	}
	if off < FileHeaderSize {
		return Entry{}, fmt.Errorf("offset %d is inside the header", off)
	}
	e, reason, err := readEnvelope(f.b, off, f.size)
	switch reason {
	case NotStopped:
		return e, nil
	case EndOfLog, TruncatedTail:
		return Entry{}, fmt.Errorf("envelope at %d: %w", off, ErrShortRead)
	case ChecksumFailed:
		return Entry{}, fmt.Errorf("envelope at %d: %w", off, ErrChecksumMismatch)
	default:
		return Entry{}, err
	}
}

// Iter returns an iterator over the envelopes following the header.
func (f *File) Iter() *Iter {
	return NewIter(f.b, FileHeaderSize, f.size)
}

// Truncate discards everything at or after size.
func (f *File) Truncate(size int64) error {
	if size < FileHeaderSize || size > f.size {
		return fmt.Errorf("truncate to %d out of range [%d, %d]", size, FileHeaderSize, f.size)
	}
	if err := f.b.Truncate(size); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	if err := f.b.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	f.size = size
	return nil
}

// Sync flushes the log to stable storage.
func (f *File) Sync() error {
	if f.isClosed.Load() {
		return os.ErrClosed
	}
	return f.b.Sync()
}

// Close closes the underlying file.  Closing twice is harmless.
func (f *File) Close() error {
	if f.isClosed.Swap(true) {
		return nil
	}
	return f.b.Close()
}

// SyncDir fsyncs a directory so renames within it are durable.
func SyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("os.Open(%s): %w", dir, err)
	}
	defer func() {
		_ = d.Close()
	}()
	return syncDir(d)
}
