package websocket

import (
	"bytes"
	"io"
)

// Source is the inbound side of a transport: an ordered, non-restartable
// sequence of byte chunks.
//
// Next returns the next chunk in arrival order. It returns io.EOF once the
// stream has ended; any other error is treated as a terminated stream too.
// A chunk returned together with an error is consumed before the error is
// observed. Returned chunks are owned by the caller.
type Source interface {
	Next() ([]byte, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func() ([]byte, error)

// Next calls f.
func (f SourceFunc) Next() ([]byte, error) {
	return f()
}

// NewReaderSource turns r into a Source reading at most size bytes per chunk.
//
// Every chunk is a fresh copy, so the parser may transform it in place.
// size <= 0 selects the default read buffer size (4096).
func NewReaderSource(r io.Reader, size int) Source {
	if size <= 0 {
		size = defaultReadBufferSize
	}
	return &readerSource{r: r, buf: make([]byte, size)}
}

type readerSource struct {
	r   io.Reader
	buf []byte
}

func (s *readerSource) Next() ([]byte, error) {
	n, err := s.r.Read(s.buf)
	if n > 0 {
		return bytes.Clone(s.buf[:n]), err
	}
	return nil, err
}
