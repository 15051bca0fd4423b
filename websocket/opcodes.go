// Package websocket implements the RFC 6455 WebSocket wire protocol over a bidirectional byte stream.
//
// The package is split into a frame engine and a connection layer:
//   - Parser decodes inbound bytes into events, enforcing framing,
//     fragmentation, masking and control-frame rules
//   - Conn binds a Parser and the frame encoder to a Transport, replies to
//     pings and closes, and maps protocol violations to close codes
//   - Upgrade performs the HTTP opening handshake and returns a Conn
//
// Outgoing frames are never masked and never fragmented: this package plays
// the server role only.
//
// RFC Reference: https://datatracker.ietf.org/doc/html/rfc6455
package websocket

import "fmt"

// Opcode is the 4-bit frame operation code (RFC 6455 Section 5.2).
//
// Opcodes 0x0-0x2 are data frames, 0x8-0xA are control frames.
// Opcodes 0x3-0x7 and 0xB-0xF are reserved and rejected by the parser.
type Opcode byte

const (
	// OpContinuation continues a fragmented message (RFC 6455 Section 5.4).
	OpContinuation Opcode = 0x0

	// OpText carries UTF-8 text (RFC 6455 Section 5.6).
	OpText Opcode = 0x1

	// OpBinary carries arbitrary bytes (RFC 6455 Section 5.6).
	OpBinary Opcode = 0x2

	// OpClose starts or answers the closing handshake (RFC 6455 Section 5.5.1).
	OpClose Opcode = 0x8

	// OpPing is a keepalive probe (RFC 6455 Section 5.5.2).
	OpPing Opcode = 0x9

	// OpPong answers a ping (RFC 6455 Section 5.5.3).
	OpPong Opcode = 0xA
)

// IsControl reports whether op is a control opcode.
//
// RFC 6455 Section 5.5: control opcodes have the most significant bit of
// the opcode set. Control frames must not be fragmented and carry at most
// 125 bytes of payload.
func (op Opcode) IsControl() bool {
	return op&0x08 != 0
}

// IsValid reports whether op is one of the six opcodes defined in RFC 6455.
func (op Opcode) IsValid() bool {
	switch op {
	case OpContinuation, OpText, OpBinary, OpClose, OpPing, OpPong:
		return true
	default:
		return false
	}
}

// String returns the RFC name of the opcode.
func (op Opcode) String() string {
	switch op {
	case OpContinuation:
		return "continuation"
	case OpText:
		return "text"
	case OpBinary:
		return "binary"
	case OpClose:
		return "close"
	case OpPing:
		return "ping"
	case OpPong:
		return "pong"
	default:
		return fmt.Sprintf("reserved(0x%X)", byte(op))
	}
}
