package websocket

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Conn represents a server-side WebSocket connection (RFC 6455).
//
// Conn binds the frame parser and encoder to a Transport:
//   - Next yields inbound events one at a time, reassembling fragmented
//     messages and validating UTF-8
//   - Pings are answered with a pong and a received close frame is answered
//     with close(1000) before the event is returned
//   - Protocol violations are answered with a close frame carrying 1002, or
//     1007 for invalid UTF-8, and end the inbound sequence
//   - Writes are serialized, so header and payload of one frame are never
//     interleaved with another frame
//
// Example Usage:
//
//	conn, err := websocket.Upgrade(w, r, nil)
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
//
//	for ev, err := range conn.Events() {
//	    if err != nil {
//	        return err
//	    }
//	    if ev.Type.IsData() {
//	        conn.Write(ev.Type, ev.Payload())
//	    }
//	}
//
// Next, Events and the Read helpers must be called from a single goroutine.
// The write methods are safe for concurrent use, including concurrently with
// the reader.
type Conn struct {
	id        string
	transport Transport
	parser    *Parser
	logger    *slog.Logger

	// Write synchronization: one frame at a time on the wire.
	writeMu sync.Mutex
	header  []byte // reused header buffer, guarded by writeMu

	// done is set once the inbound sequence has terminated. Reader-owned.
	done bool

	closeSent atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewConn creates a connection over t. The opening handshake must already
// have completed.
func NewConn(t Transport, opts *Options) *Conn {
	if opts == nil {
		opts = &Options{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Conn{
		id:        uuid.New().String(),
		transport: t,
		parser:    NewParser(NewReaderSource(t, opts.ReadBufferSize), opts),
		logger:    logger,
		header:    make([]byte, 0, 10),
	}
}

// ID returns a unique identifier for the connection.
func (c *Conn) ID() string {
	return c.id
}

// Next returns the next inbound event.
//
// Text and Binary messages are returned as reassembled. A Ping is answered
// with a Pong carrying the same data before it is returned. A Close is
// answered with close(1000) and terminates the sequence: every later call
// returns ErrClosed.
//
// When the inbound bytes violate the protocol, a close frame with the
// mapped status code is written first; Next then returns the close event it
// sent together with a *CloseError, and the sequence is terminated.
func (c *Conn) Next() (Event, error) {
	if c.done {
		return Event{}, ErrClosed
	}

	ev, err := c.parser.Next()
	if err != nil {
		c.done = true
		return c.fail(err)
	}

	switch ev.Type {
	case CloseMessage:
		c.done = true
		if err := c.WriteClose(CloseNormalClosure, ""); err != nil {
			c.logger.Debug("websocket: close reply failed", "conn", c.id, "err", err)
		}
	case PingMessage:
		if err := c.Pong(ev.Data); err != nil {
			c.done = true
			return Event{}, err
		}
	}

	return ev, nil
}

// fail translates a decode failure into an outbound close frame.
func (c *Conn) fail(err error) (Event, error) {
	code := CloseCodeFor(err)
	reason := truncateReason(err.Error())

	c.logger.Debug("websocket: protocol violation", "conn", c.id, "code", int(code), "err", err)

	if werr := c.WriteClose(code, reason); werr != nil {
		c.logger.Debug("websocket: close write failed", "conn", c.id, "err", werr)
	}

	ev := Event{Type: CloseMessage, Code: code, Text: reason}
	return ev, &CloseError{Code: code, Reason: reason, Err: err}
}

// truncateReason keeps a close reason within the control frame limit
// without splitting a rune.
func truncateReason(s string) string {
	const limit = maxControlPayload - 2
	if len(s) <= limit {
		return s
	}
	s = s[:limit]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

// Events returns the inbound events as a sequence.
//
// The sequence ends after a close event, or after the first error, which is
// yielded together with the close event that was sent for it.
func (c *Conn) Events() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			ev, err := c.Next()
			if errors.Is(err, ErrClosed) {
				return
			}
			if !yield(ev, err) || err != nil || ev.Type == CloseMessage {
				return
			}
		}
	}
}

// Read returns the next Text or Binary message, handling and skipping
// control frames as Next does. A received close yields ErrClosed; protocol
// violations yield the *CloseError from Next.
func (c *Conn) Read() (MessageType, []byte, error) {
	for {
		ev, err := c.Next()
		if err != nil {
			return 0, nil, err
		}

		switch ev.Type {
		case TextMessage:
			return TextMessage, []byte(ev.Text), nil
		case BinaryMessage:
			return BinaryMessage, ev.Data, nil
		case CloseMessage:
			return 0, nil, ErrClosed
		}
	}
}

// ReadText reads the next data message, which must be text.
func (c *Conn) ReadText() (string, error) {
	data, err := c.readText()
	return string(data), err
}

// ReadJSON reads the next text message and unmarshals it into v.
func (c *Conn) ReadJSON(v any) error {
	data, err := c.readText()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// readText returns the next data message, or ErrInvalidMessageType when it
// is binary.
func (c *Conn) readText() ([]byte, error) {
	mt, data, err := c.Read()
	switch {
	case err != nil:
		return nil, err
	case mt != TextMessage:
		return nil, ErrInvalidMessageType
	}
	return data, nil
}

// Write writes a data message as a single unfragmented frame.
//
// Text payloads must be valid UTF-8 (RFC 6455 Section 8.1).
func (c *Conn) Write(messageType MessageType, data []byte) error {
	switch messageType {
	case TextMessage:
		if !utf8.Valid(data) {
			return ErrInvalidUTF8
		}
		return c.writeFrame(OpText, data)
	case BinaryMessage:
		return c.writeFrame(OpBinary, data)
	default:
		return ErrInvalidMessageType
	}
}

// WriteText writes a text message.
func (c *Conn) WriteText(text string) error {
	return c.Write(TextMessage, []byte(text))
}

// WriteBinary writes a binary message.
func (c *Conn) WriteBinary(data []byte) error {
	return c.Write(BinaryMessage, data)
}

// WriteJSON marshals v and writes it as a text message.
func (c *Conn) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return c.Write(TextMessage, data)
}

// Ping sends a ping frame. data is limited to 125 bytes.
func (c *Conn) Ping(data []byte) error {
	if len(data) > maxControlPayload {
		return ErrControlTooLarge
	}
	return c.writeFrame(OpPing, data)
}

// Pong sends a pong frame. data is limited to 125 bytes.
//
// Next answers pings automatically, so an explicit Pong is only needed for
// unsolicited heartbeats.
func (c *Conn) Pong(data []byte) error {
	if len(data) > maxControlPayload {
		return ErrControlTooLarge
	}
	return c.writeFrame(OpPong, data)
}

// WriteClose sends a close frame.
//
// A zero code sends an empty close frame, which starts the closing
// handshake without a status. Otherwise the frame carries the big-endian
// code followed by reason, and the write side of the transport is
// half-closed afterwards.
//
// Duplicate close frames are not suppressed.
func (c *Conn) WriteClose(code CloseCode, reason string) error {
	if code == 0 {
		return c.writeFrame(OpClose, nil)
	}

	payload := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(payload, uint16(code))
	copy(payload[2:], reason)

	if len(payload) > maxControlPayload {
		return ErrControlTooLarge
	}

	if err := c.writeFrame(OpClose, payload); err != nil {
		return err
	}
	c.closeSent.Store(true)

	return c.transport.CloseWrite()
}

// Close sends close(1000) unless a close frame with a status was already
// sent, then releases the transport if it implements io.Closer. Later calls
// return the first result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		if !c.closeSent.Load() {
			c.closeErr = c.WriteClose(CloseNormalClosure, "")
		}

		if closer, ok := c.transport.(io.Closer); ok {
			if err := closer.Close(); err != nil && c.closeErr == nil {
				c.closeErr = err
			}
		}
	})

	return c.closeErr
}

// writeFrame writes header and payload as one unit.
func (c *Conn) writeFrame(op Opcode, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.header = appendHeader(c.header[:0], op, len(payload))

	bufs := net.Buffers{c.header, payload}
	_, err := bufs.WriteTo(c.transport)
	return err
}
