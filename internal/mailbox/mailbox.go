// Package mailbox provides ordered in-memory byte streams keyed by name.
//
// Transports deliver every point-to-point message into the stream for its
// (communicator, source) pair. Receivers read exact byte counts from the
// stream, so message boundaries on the sending side do not matter: two 4-byte
// sends may be consumed as one 8-byte read, and vice versa.
package mailbox

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
)

// ErrClosed is returned by reads and writes on a closed stream.
var ErrClosed = errors.New("mailbox closed")

// Stream is an unbounded ordered byte queue with one reader.
type Stream struct {
	mu     sync.Mutex
	buf    []byte
	err    error
	notify chan struct{}
}

// NewStream creates an empty stream.
func NewStream() *Stream {
	return &Stream{notify: make(chan struct{}, 1)}
}

// Write appends a copy of p. It never blocks.
func (s *Stream) Write(p []byte) error {
	s.mu.Lock()
	if s.err != nil {
		err := s.err
		s.mu.Unlock()

		return err
	}
	s.buf = append(s.buf, p...)
	s.mu.Unlock()

	s.signal()

	return nil
}

// ReadFull blocks until len(p) bytes are available, then consumes them.
//
// Buffered data is still returned after Close until it runs short; only then
// is the close error reported.
//
// Returns:
//   - error: ctx.Err() on cancellation, or the close error
func (s *Stream) ReadFull(ctx context.Context, p []byte) error {
	for {
		s.mu.Lock()
		if len(s.buf) >= len(p) {
			n := copy(p, s.buf)
			s.buf = s.buf[n:]
			if len(s.buf) == 0 {
				s.buf = nil
			}
			s.mu.Unlock()

			return nil
		}
		if s.err != nil {
			err := s.err
			s.mu.Unlock()

			return err
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Buffered returns the number of unread bytes.
func (s *Stream) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.buf)
}

// Close fails pending and future operations with err (ErrClosed if nil).
// Only the first Close takes effect.
func (s *Stream) Close(err error) {
	if err == nil {
		err = ErrClosed
	}

	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()

	s.signal()
}

func (s *Stream) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Mailbox is a concurrent registry of streams.
type Mailbox struct {
	streams  *xsync.Map[string, *Stream]
	closed   atomic.Bool
	closeErr atomic.Pointer[error]
}

// New creates an empty mailbox.
func New() *Mailbox {
	return &Mailbox{streams: xsync.NewMap[string, *Stream]()}
}

// Key builds the stream key for messages from src on a named channel.
func Key(channel string, src int) string {
	return channel + "@" + strconv.Itoa(src)
}

// Stream returns the stream for key, creating it on first use. Streams created
// after CloseAll start out closed.
func (m *Mailbox) Stream(key string) *Stream {
	if s, ok := m.streams.Load(key); ok {
		return s
	}

	s, loaded := m.streams.LoadOrStore(key, NewStream())
	if !loaded && m.closed.Load() {
		s.Close(m.err())
	}

	return s
}

// Len returns the number of streams.
func (m *Mailbox) Len() int {
	return m.streams.Size()
}

// CloseAll closes every current and future stream with err.
func (m *Mailbox) CloseAll(err error) {
	if err == nil {
		err = ErrClosed
	}
	m.closeErr.CompareAndSwap(nil, &err)
	m.closed.Store(true)

	m.streams.Range(func(_ string, s *Stream) bool {
		s.Close(m.err())
		return true
	})
}

func (m *Mailbox) err() error {
	if p := m.closeErr.Load(); p != nil {
		return *p
	}

	return ErrClosed
}
