package websocket

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
)

// sliceSource replays chunks in order, then reports io.EOF.
func sliceSource(chunks ...[]byte) Source {
	return SourceFunc(func() ([]byte, error) {
		if len(chunks) == 0 {
			return nil, io.EOF
		}
		c := bytes.Clone(chunks[0])
		chunks = chunks[1:]
		return c, nil
	})
}

// rawFrame builds a frame as a client would send it. A nil mask sends the
// payload unmasked.
func rawFrame(fin bool, op Opcode, mask *[4]byte, payload []byte) []byte {
	out := appendHeader(nil, op, len(payload))
	if !fin {
		out[0] &^= finBit
	}

	if mask == nil {
		return append(out, payload...)
	}

	out[1] |= maskBit
	out = append(out, mask[:]...)
	masked := bytes.Clone(payload)
	applyMask(masked, *mask, 0)
	return append(out, masked...)
}

// fakeTransport serves fixed inbound bytes and captures everything written.
type fakeTransport struct {
	r io.Reader

	mu          sync.Mutex
	out         bytes.Buffer
	writeClosed int
	closed      bool
	writeErr    error
}

func newFakeTransport(inbound ...[]byte) *fakeTransport {
	return &fakeTransport{r: bytes.NewReader(bytes.Join(inbound, nil))}
}

func (t *fakeTransport) Read(p []byte) (int, error) {
	return t.r.Read(p)
}

func (t *fakeTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.writeErr != nil {
		return 0, t.writeErr
	}
	return t.out.Write(p)
}

func (t *fakeTransport) CloseWrite() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeClosed++
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *fakeTransport) written() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return bytes.Clone(t.out.Bytes())
}

func (t *fakeTransport) writeCloses() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writeClosed
}

// sent decodes every frame written to the transport.
func (t *fakeTransport) sent(tb testing.TB) []Event {
	tb.Helper()
	return decodeAll(tb, t.written())
}

// decodeAll decodes a complete byte stream of frames.
func decodeAll(tb testing.TB, stream []byte) []Event {
	tb.Helper()

	var events []Event
	p := NewParser(sliceSource(stream), nil)
	for {
		ev, err := p.Next()
		if errors.Is(err, ErrEndOfStream) {
			return events
		}
		if err != nil {
			tb.Fatalf("decoding written frames: %v", err)
		}
		events = append(events, ev)
	}
}
