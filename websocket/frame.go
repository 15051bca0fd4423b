package websocket

import (
	"encoding/binary"
	"fmt"
)

// Header bits and payload limits (RFC 6455 Section 5.2).
const (
	finBit       = 0x80
	reservedBits = 0x70
	maskBit      = 0x80

	// maxControlPayload is the maximum payload length for control frames.
	// RFC 6455 Section 5.5: Control frames must have payload <= 125 bytes.
	maxControlPayload = 125

	// maxPayloadLength is the largest 64-bit length accepted (2^53-1).
	maxPayloadLength = 1<<53 - 1

	// Payload length encoding thresholds (RFC 6455 Section 5.2).
	payloadLen7Bit  = 125 // 0-125: stored in 7 bits
	payloadLen16Bit = 126 // 126: followed by 16-bit length
	payloadLen64Bit = 127 // 127: followed by 64-bit length
)

// frameHeader is the decoded header of a WebSocket frame.
//
// Frame structure:
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-------+-+-------------+-------------------------------+
//	|F|R|R|R| opcode|M| Payload len |    Extended payload length    |
//	|I|S|S|S|  (4)  |A|     (7)     |             (16/64)           |
//	|N|V|V|V|       |S|             |   (if payload len==126/127)   |
//	| |1|2|3|       |K|             |                               |
//	+-+-+-+-+-------+-+-------------+ - - - - - - - - - - - - - - - +
//	|     Extended payload length continued, if payload len == 127  |
//	+ - - - - - - - - - - - - - - - +-------------------------------+
//	|                               |Masking-key, if MASK set to 1  |
//	+-------------------------------+-------------------------------+
//	| Masking-key (continued)       |          Payload Data         |
//	+-------------------------------- - - - - - - - - - - - - - - - +
type frameHeader struct {
	fin    bool
	opcode Opcode
	length int64

	// mask is only meaningful when masked is set.
	masked bool
	mask   [4]byte
}

// readHeader parses one frame header from the cursor.
//
// Steps:
//  1. First byte: FIN, RSV1-3, opcode. The opcode must be defined, the
//     reserved bits clear, and a control frame must have FIN set.
//  2. Second byte: MASK and the 7-bit length, followed by the 16-bit or
//     64-bit extended length when the 7-bit value is 126 or 127.
//  3. The 4-byte masking key when MASK is set.
func readHeader(c *byteCursor) (frameHeader, error) {
	var h frameHeader

	first, err := c.pop()
	if err != nil {
		return h, err
	}

	h.fin = first&finBit != 0
	h.opcode = Opcode(first & 0x0F)

	if !h.opcode.IsValid() {
		return h, fmt.Errorf("%w: 0x%X", ErrInvalidOpcode, byte(h.opcode))
	}
	if first&reservedBits != 0 {
		return h, ErrReservedBits
	}
	if h.opcode.IsControl() && !h.fin {
		return h, ErrControlFragmented
	}

	second, err := c.pop()
	if err != nil {
		return h, err
	}

	h.masked = second&maskBit != 0
	h.length = int64(second & 0x7F)

	switch h.length {
	case payloadLen16Bit:
		buf, err := c.take(2)
		if err != nil {
			return h, err
		}
		h.length = int64(binary.BigEndian.Uint16(buf))
	case payloadLen64Bit:
		buf, err := c.take(8)
		if err != nil {
			return h, err
		}
		length := binary.BigEndian.Uint64(buf)
		if length > maxPayloadLength {
			return h, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
		}
		h.length = int64(length)
	}

	if h.masked {
		key, err := c.take(4)
		if err != nil {
			return h, err
		}
		copy(h.mask[:], key)
	}

	return h, nil
}

// appendHeader appends the header of an outgoing frame carrying n payload
// bytes to dst.
//
// The minimal length encoding is chosen: 2 bytes up to 125, 4 bytes up to
// 65535, 10 bytes beyond. FIN is always set and the payload is never masked.
func appendHeader(dst []byte, op Opcode, n int) []byte {
	b0 := finBit | byte(op)&0x0F

	switch {
	case n <= payloadLen7Bit:
		return append(dst, b0, byte(n))
	case n <= 0xFFFF:
		dst = append(dst, b0, payloadLen16Bit)
		return binary.BigEndian.AppendUint16(dst, uint16(n))
	default:
		dst = append(dst, b0, payloadLen64Bit)
		return binary.BigEndian.AppendUint64(dst, uint64(n))
	}
}
