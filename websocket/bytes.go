package websocket

import (
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/eapache/queue"
)

// byteCursor accumulates chunks from a Source and hands out exact-length
// slices, pulling more input only when the buffered bytes run short.
//
// Consumed bytes are dropped immediately. Slices returned by take and chunks
// are no longer referenced by the cursor, so callers may modify them.
type byteCursor struct {
	src Source

	pending  *queue.Queue // buffered []byte chunks, oldest first
	offset   int          // consumed prefix of the head chunk
	buffered int          // unconsumed bytes across all pending chunks

	err error // source failure, reported once the buffer drains
}

func newByteCursor(src Source) *byteCursor {
	return &byteCursor{
		src:     src,
		pending: queue.New(),
	}
}

// fill pulls one non-empty chunk from the source.
func (c *byteCursor) fill() error {
	for c.err == nil {
		chunk, err := c.src.Next()
		if err != nil {
			c.err = endOfStream(err)
		}
		if len(chunk) > 0 {
			c.pending.Add(chunk)
			c.buffered += len(chunk)
			return nil
		}
	}
	return c.err
}

func endOfStream(err error) error {
	if errors.Is(err, io.EOF) {
		return ErrEndOfStream
	}
	return fmt.Errorf("%w: %w", ErrEndOfStream, err)
}

// next consumes up to n bytes from the head chunk. The buffer must not be empty.
func (c *byteCursor) next(n int) []byte {
	head := c.pending.Peek().([]byte)[c.offset:]
	if n >= len(head) {
		c.pending.Remove()
		c.offset = 0
		c.buffered -= len(head)
		return head
	}
	c.offset += n
	c.buffered -= n
	return head[:n:n]
}

// take returns exactly n bytes.
func (c *byteCursor) take(n int) ([]byte, error) {
	for c.buffered < n {
		if err := c.fill(); err != nil {
			return nil, err
		}
	}
	if n == 0 {
		return []byte{}, nil
	}

	first := c.next(n)
	if len(first) == n {
		return first, nil
	}

	out := make([]byte, n)
	copied := copy(out, first)
	for copied < n {
		copied += copy(out[copied:], c.next(n-copied))
	}
	return out, nil
}

// pop returns exactly one byte.
func (c *byteCursor) pop() (byte, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// chunks yields slices whose lengths sum to exactly n, each bounded by the
// chunk at the head of the buffer. A source failure is yielded once as
// (nil, err) and ends the sequence. The sequence is not restartable.
func (c *byteCursor) chunks(n int64) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for n > 0 {
			if c.buffered == 0 {
				if err := c.fill(); err != nil {
					yield(nil, err)
					return
				}
			}
			chunk := c.next(int(min(n, int64(c.buffered))))
			n -= int64(len(chunk))
			if !yield(chunk, nil) {
				return
			}
		}
	}
}
