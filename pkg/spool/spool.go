// Package spool provides a byte accumulator that spills from memory to disk.
//
// A Spool accepts writes into an in-memory buffer until the accumulated size
// exceeds a rollover threshold, at which point the contents move to a
// temporary file and all further writes go to disk. Finalizing the spool via
// Reader() yields a forward-only io.ReadCloser that releases the backing
// temporary file when closed.
//
// Spools are designed for response payloads whose size is unknown up front:
// small payloads never touch the filesystem, large ones never exhaust memory.
package spool

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
)

// DefaultRolloverBytes is the memory threshold past which a spool moves its
// contents to a temporary file.
const DefaultRolloverBytes = 1 << 20 // 1 MiB

const tempPattern = "seisgate-spool-*"

// Spool accumulates bytes in memory and spills to a temporary file once the
// rollover threshold is exceeded. All methods are safe for concurrent use,
// though a spool is normally owned by a single writer at a time.
type Spool struct {
	mu        sync.Mutex
	threshold int
	dir       string

	mem       bytes.Buffer
	file      *os.File
	size      int64
	finalized bool
	closed    bool
}

// New creates a spool with the given options. The zero configuration uses
// DefaultRolloverBytes and the system temporary directory.
func New(options ...Option) *Spool {
	opts := applyOptions(options...)
	return &Spool{
		threshold: opts.rolloverBytes,
		dir:       opts.tempDir,
	}
}

// Write appends p to the spool, rolling over to a temporary file when the
// accumulated size would exceed the threshold. Implements io.Writer.
func (s *Spool) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrSpoolClosed
	}
	if s.finalized {
		return 0, ErrSpoolFinalized
	}

	if s.file == nil && s.size+int64(len(p)) > int64(s.threshold) {
		if err := s.rollover(); err != nil {
			return 0, err
		}
	}

	var n int
	var err error
	if s.file != nil {
		n, err = s.file.Write(p)
	} else {
		n, err = s.mem.Write(p)
	}
	s.size += int64(n)
	if err != nil {
		return n, fmt.Errorf("spool write: %w", err)
	}
	return n, nil
}

// rollover moves the in-memory contents to a fresh temporary file.
// Caller must hold s.mu.
func (s *Spool) rollover() error {
	f, err := os.CreateTemp(s.dir, tempPattern)
	if err != nil {
		return fmt.Errorf("spool rollover: create temp file: %w", err)
	}
	if _, err := f.Write(s.mem.Bytes()); err != nil {
		name := f.Name()
		_ = f.Close()
		_ = os.Remove(name)
		return fmt.Errorf("spool rollover: flush memory: %w", err)
	}
	s.mem.Reset()
	s.file = f
	return nil
}

// Len returns the total number of bytes written to the spool.
func (s *Spool) Len() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// InMemory reports whether the spool contents still live in memory, i.e. no
// rollover to disk has happened yet.
func (s *Spool) InMemory() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file == nil
}

// Reset discards all accumulated bytes and returns the spool to memory mode,
// removing any backing temporary file. A finalized spool cannot be reset.
func (s *Spool) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSpoolClosed
	}
	if s.finalized {
		return ErrSpoolFinalized
	}

	if s.file != nil {
		name := s.file.Name()
		if err := s.file.Close(); err != nil {
			return fmt.Errorf("spool reset: close temp file: %w", err)
		}
		if err := os.Remove(name); err != nil {
			return fmt.Errorf("spool reset: remove temp file: %w", err)
		}
		s.file = nil
	}
	s.mem.Reset()
	s.size = 0
	return nil
}

// Reader finalizes the spool and returns a forward-only reader over its
// contents. After Reader returns, the spool accepts no further writes or
// resets. For disk-backed spools the returned reader owns the temporary file
// and removes it on Close.
func (s *Spool) Reader() (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSpoolClosed
	}
	if s.finalized {
		return nil, ErrSpoolFinalized
	}
	s.finalized = true

	if s.file != nil {
		f := s.file
		s.file = nil // ownership moves to the reader
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			name := f.Name()
			_ = f.Close()
			_ = os.Remove(name)
			return nil, fmt.Errorf("spool reader: rewind temp file: %w", err)
		}
		return &fileReadCloser{f: f}, nil
	}
	return io.NopCloser(bytes.NewReader(s.mem.Bytes())), nil
}

// Close releases any resources still held by the spool. It is safe to call
// multiple times and after Reader; a reader handed out by Reader keeps
// working and still owns its temporary file.
func (s *Spool) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.file != nil {
		name := s.file.Name()
		err := s.file.Close()
		s.file = nil
		if rmErr := os.Remove(name); rmErr != nil && err == nil {
			err = rmErr
		}
		if err != nil {
			return fmt.Errorf("spool close: %w", err)
		}
	}
	s.mem.Reset()
	return nil
}

// fileReadCloser reads a temporary file and removes it on Close.
type fileReadCloser struct {
	f    *os.File
	once sync.Once
	err  error
}

func (r *fileReadCloser) Read(p []byte) (int, error) {
	return r.f.Read(p)
}

func (r *fileReadCloser) Close() error {
	r.once.Do(func() {
		name := r.f.Name()
		r.err = r.f.Close()
		if rmErr := os.Remove(name); rmErr != nil && r.err == nil {
			r.err = rmErr
		}
	})
	return r.err
}
