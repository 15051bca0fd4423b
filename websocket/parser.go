package websocket

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"iter"
	"log/slog"
	"unicode/utf8"
)

// Options configures the decoding side of a connection.
//
// All fields are optional. Zero values use sensible defaults.
type Options struct {
	// MaxMessageSize caps the cumulative payload length of one message,
	// counted across all of its fragments. 0 = unbounded.
	MaxMessageSize int64

	// ReadBufferSize sets the largest chunk read from the transport at once
	// (default: 4096).
	ReadBufferSize int

	// Logger is used by Conn and Upgrade for Debug records about the
	// handshake, protocol violations and failed close replies. The Parser
	// itself does not log. nil = no logging.
	Logger *slog.Logger
}

// Parser decodes a stream of frames into events.
//
// It is a state machine with two states: awaiting a header (no message
// open) and awaiting a continuation (a fragmented message is open). Control
// frames may arrive in either state and are returned as their own events
// without disturbing the open message.
//
// A Parser is not safe for concurrent use. Errors are sticky: once Next has
// failed it keeps returning the same error.
type Parser struct {
	bytes *byteCursor
	limit int64

	msg *pendingMessage // open message, nil while awaiting a header
	err error
}

// NewParser returns a Parser reading frames from src.
func NewParser(src Source, opts *Options) *Parser {
	p := &Parser{bytes: newByteCursor(src)}
	if opts != nil {
		p.limit = opts.MaxMessageSize
	}
	return p
}

// Next returns the next complete event: a reassembled Text or Binary
// message, or a Close, Ping or Pong control frame.
//
// Events are returned in the order their last frame was received.
func (p *Parser) Next() (Event, error) {
	if p.err != nil {
		return Event{}, p.err
	}

	ev, err := p.next()
	if err != nil {
		p.err = err
		p.msg = nil
	}
	return ev, err
}

// Events returns the remaining events as a sequence. The sequence ends after
// the first error, which is yielded with a zero Event.
func (p *Parser) Events() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			ev, err := p.Next()
			if !yield(ev, err) || err != nil {
				return
			}
		}
	}
}

func (p *Parser) next() (Event, error) {
	for {
		h, err := readHeader(p.bytes)
		if err != nil {
			return Event{}, err
		}

		// RFC 6455 Section 5.4: control frames MAY be injected in the
		// middle of a fragmented message.
		if h.opcode.IsControl() {
			return p.controlFrame(h)
		}

		switch {
		case p.msg == nil && h.opcode == OpContinuation:
			return Event{}, ErrUnexpectedContinuation
		case p.msg != nil && h.opcode != OpContinuation:
			return Event{}, ErrIncompleteMessage
		case p.msg == nil:
			p.msg = newPendingMessage(h.opcode)
		}

		if err := p.payload(h); err != nil {
			return Event{}, err
		}

		if h.fin {
			msg := p.msg
			p.msg = nil
			return msg.end()
		}
	}
}

// payload streams one data frame payload into the open message.
func (p *Parser) payload(h frameHeader) error {
	if total := p.msg.length + h.length; p.limit > 0 && total > p.limit {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrMessageTooLarge, total, p.limit)
	}

	chunks := p.bytes.chunks(h.length)
	if h.masked {
		chunks = unmask(chunks, h.mask)
	}

	for chunk, err := range chunks {
		if err != nil {
			return err
		}
		if err := p.msg.push(chunk); err != nil {
			return err
		}
	}
	return nil
}

// controlFrame reads and validates a Close, Ping or Pong payload.
func (p *Parser) controlFrame(h frameHeader) (Event, error) {
	if h.length > maxControlPayload {
		return Event{}, ErrControlTooLarge
	}

	data, err := p.bytes.take(int(h.length))
	if err != nil {
		return Event{}, err
	}
	if h.masked {
		applyMask(data, h.mask, 0)
	}

	switch h.opcode {
	case OpPing:
		return Event{Type: PingMessage, Data: data}, nil
	case OpPong:
		return Event{Type: PongMessage, Data: data}, nil
	default:
		return parseClose(data)
	}
}

// parseClose decodes a close body: an optional 2-byte status code followed
// by a UTF-8 reason (RFC 6455 Section 5.5.1).
func parseClose(data []byte) (Event, error) {
	ev := Event{Type: CloseMessage, Code: CloseNoStatusReceived}

	switch len(data) {
	case 0:
		return ev, nil
	case 1:
		return Event{}, ErrInvalidCloseBody
	}

	ev.Code = CloseCode(binary.BigEndian.Uint16(data))
	if !ev.Code.IsValidReceived() {
		return Event{}, fmt.Errorf("%w: %d", ErrInvalidCloseCode, int(ev.Code))
	}

	reason := data[2:]
	if !utf8.Valid(reason) {
		return Event{}, ErrInvalidUTF8
	}
	ev.Text = string(reason)

	return ev, nil
}

// pendingMessage accumulates an in-progress data message. The opcode is
// fixed by the first frame; text is validated as it arrives.
type pendingMessage struct {
	opcode Opcode
	length int64
	buf    bytes.Buffer
	text   *utf8Validator // nil for binary messages
}

func newPendingMessage(op Opcode) *pendingMessage {
	m := &pendingMessage{opcode: op}
	if op == OpText {
		m.text = &utf8Validator{}
	}
	return m
}

func (m *pendingMessage) push(chunk []byte) error {
	if m.text != nil {
		if err := m.text.push(chunk); err != nil {
			return err
		}
	}
	m.buf.Write(chunk)
	m.length += int64(len(chunk))
	return nil
}

// end finalizes the message into an event.
func (m *pendingMessage) end() (Event, error) {
	if m.text == nil {
		return Event{Type: BinaryMessage, Data: m.buf.Bytes()}, nil
	}
	if err := m.text.finish(); err != nil {
		return Event{}, err
	}
	return Event{Type: TextMessage, Text: m.buf.String()}, nil
}
