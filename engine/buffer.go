package engine

import (
	"io"

	"github.com/c360/seisgate/errors"
	"github.com/c360/seisgate/pkg/spool"
)

// responseBuffer assembles the merged payload for one federated request.
//
// The dispatcher appends one slot per initial sub-request before any worker
// starts; a worker that must subdivide its epoch replaces its slot's contents
// with ordered child slots. Payload order is therefore fixed by slot position
// alone, no matter how out of order the workers finish.
//
// The buffer is deliberately unsynchronized. Each slot has exactly one owner
// at a time (the dispatcher before spawn, then the worker, then the child
// workers after a split), and finalize runs only after every worker has
// resolved. The goroutine spawn and WaitGroup edges give the required
// ordering.
type responseBuffer struct {
	slots     []*slot
	spoolOpts []spool.Option
}

func newResponseBuffer(opts ...spool.Option) *responseBuffer {
	return &responseBuffer{spoolOpts: opts}
}

// addSlot appends a top-level slot. Call only before workers start.
func (b *responseBuffer) addSlot() *slot {
	s := &slot{buf: b}
	b.slots = append(b.slots, s)
	return s
}

// size returns the bytes held across all slots.
func (b *responseBuffer) size() int64 {
	var total int64
	for _, s := range b.slots {
		total += s.size()
	}
	return total
}

// finalize flattens the slot tree into a forward-only reader over the merged
// payload in slot order. Each drained segment releases its spill file before
// the next is read, so disk usage shrinks while the response streams out.
// The buffer accepts no writes after finalize.
func (b *responseBuffer) finalize() (io.ReadCloser, int64, error) {
	var readers []io.ReadCloser
	var total int64

	var walk func(s *slot) error
	walk = func(s *slot) error {
		if s.children != nil {
			for _, c := range s.children {
				if err := walk(c); err != nil {
					return err
				}
			}
			return nil
		}
		if s.spool == nil {
			return nil
		}
		n := s.spool.Len()
		if n == 0 {
			_ = s.spool.Close()
			return nil
		}
		rc, err := s.spool.Reader()
		if err != nil {
			return errors.Wrap(err, "responseBuffer", "finalize", "slot reader creation")
		}
		readers = append(readers, rc)
		total += n
		return nil
	}

	for _, s := range b.slots {
		if err := walk(s); err != nil {
			for _, rc := range readers {
				_ = rc.Close()
			}
			b.discard()
			return nil, 0, err
		}
	}
	return &sequentialReader{readers: readers}, total, nil
}

// discard releases every slot's backing storage. Used on the abort path when
// the merged payload will not be streamed.
func (b *responseBuffer) discard() {
	var walk func(s *slot)
	walk = func(s *slot) {
		for _, c := range s.children {
			walk(c)
		}
		if s.spool != nil {
			_ = s.spool.Close()
		}
	}
	for _, s := range b.slots {
		walk(s)
	}
}

// slot is one position in the merged payload. A leaf slot holds bytes in a
// lazily created spool; a split slot holds ordered children instead.
type slot struct {
	buf      *responseBuffer
	spool    *spool.Spool
	children []*slot
}

// Write appends payload bytes, creating the backing spool on first use.
// Implements io.Writer for the worker's body copy.
func (s *slot) Write(p []byte) (int, error) {
	if s.spool == nil {
		s.spool = spool.New(s.buf.spoolOpts...)
	}
	return s.spool.Write(p)
}

// reset discards any bytes written so far. Used when a body copy fails
// partway through and the slot must not contribute a truncated payload.
func (s *slot) reset() error {
	if s.spool == nil {
		return nil
	}
	return s.spool.Reset()
}

// split replaces the slot's contents with n ordered child slots that take
// over its payload position.
func (s *slot) split(n int) []*slot {
	if s.spool != nil {
		_ = s.spool.Close()
		s.spool = nil
	}
	s.children = make([]*slot, n)
	for i := range s.children {
		s.children[i] = &slot{buf: s.buf}
	}
	return s.children
}

// size returns the bytes held by the slot subtree.
func (s *slot) size() int64 {
	if s.children != nil {
		var total int64
		for _, c := range s.children {
			total += c.size()
		}
		return total
	}
	if s.spool == nil {
		return 0
	}
	return s.spool.Len()
}

// sequentialReader concatenates segment readers, closing each as soon as it
// is drained.
type sequentialReader struct {
	readers []io.ReadCloser
	idx     int
	err     error
}

func (r *sequentialReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	for r.idx < len(r.readers) {
		n, err := r.readers[r.idx].Read(p)
		if err != io.EOF {
			return n, err
		}
		// Segment drained; release its backing file before moving on.
		if cerr := r.readers[r.idx].Close(); cerr != nil {
			r.err = cerr
		}
		r.readers[r.idx] = nil
		r.idx++
		if n > 0 {
			return n, nil
		}
		if r.err != nil {
			return 0, r.err
		}
	}
	return 0, io.EOF
}

func (r *sequentialReader) Close() error {
	var first error
	for ; r.idx < len(r.readers); r.idx++ {
		if rc := r.readers[r.idx]; rc != nil {
			if err := rc.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
