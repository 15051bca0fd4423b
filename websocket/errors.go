package websocket

import (
	"errors"
	"fmt"
)

// Protocol error types. Each one is fatal to the current decode operation.
// Conn maps ErrInvalidUTF8 to status 1007 and every other protocol error to
// status 1002 (RFC 6455 Section 7.4.1).

var (
	// ErrReservedBits indicates RSV1/RSV2/RSV3 bits are set.
	// RFC 6455 Section 5.2: Reserved bits must be 0 unless extension negotiated.
	ErrReservedBits = errors.New("websocket: reserved fields must be 0")

	// ErrInvalidOpcode indicates an unknown or reserved opcode.
	// RFC 6455 Section 5.2: Opcodes 0x3-0x7 and 0xB-0xF are reserved.
	ErrInvalidOpcode = errors.New("websocket: reserved op codes are invalid")

	// ErrControlFragmented indicates a control frame with FIN=0.
	// RFC 6455 Section 5.5: Control frames must NOT be fragmented.
	ErrControlFragmented = errors.New("websocket: control frames must not be fragmented")

	// ErrFrameTooLarge indicates a 64-bit payload length above 2^53-1.
	ErrFrameTooLarge = errors.New("websocket: frame too large")

	// ErrControlTooLarge indicates control frame payload > 125 bytes.
	// RFC 6455 Section 5.5: Control frame payload length must be <= 125.
	ErrControlTooLarge = errors.New("websocket: control frames must be less than 126 bytes long")

	// ErrInvalidCloseBody indicates a close frame with a 1-byte body.
	// RFC 6455 Section 5.5.1: the body, if present, starts with a 2-byte code.
	ErrInvalidCloseBody = errors.New("websocket: close frame body cannot be 1 byte long")

	// ErrInvalidCloseCode indicates a close code outside the ranges a peer may send.
	// RFC 6455 Section 7.4.
	ErrInvalidCloseCode = errors.New("websocket: invalid close code")

	// ErrUnexpectedContinuation indicates continuation frame without initial frame.
	// RFC 6455 Section 5.4: Continuation requires prior data frame with FIN=0.
	ErrUnexpectedContinuation = errors.New("websocket: orphaned continuation frame")

	// ErrIncompleteMessage indicates a new data frame while a fragmented
	// message is still open.
	ErrIncompleteMessage = errors.New("websocket: incomplete fragmented message")

	// ErrMessageTooLarge indicates the cumulative message length exceeds
	// Options.MaxMessageSize.
	ErrMessageTooLarge = errors.New("websocket: payload too large")

	// ErrEndOfStream indicates the transport ended before an expected byte arrived.
	// Transport read failures are reported as this error joined with the cause.
	ErrEndOfStream = errors.New("websocket: end of stream reached")

	// ErrInvalidUTF8 indicates text frame contains invalid UTF-8.
	// RFC 6455 Section 8.1: Text frames must contain valid UTF-8.
	// Status code 1007.
	ErrInvalidUTF8 = errors.New("websocket: invalid UTF-8 in text frame")

	// Handshake error types (RFC 6455 Section 4).

	// ErrInvalidMethod indicates HTTP method is not GET.
	// RFC 6455 Section 4.1: Handshake MUST use GET method.
	ErrInvalidMethod = errors.New("websocket: method must be GET")

	// ErrMissingUpgrade indicates missing or invalid Upgrade header.
	// RFC 6455 Section 4.2.1: Must contain "websocket" (case-insensitive).
	ErrMissingUpgrade = errors.New("websocket: missing or invalid Upgrade header")

	// ErrMissingConnection indicates missing or invalid Connection header.
	// RFC 6455 Section 4.2.1: Must contain "Upgrade" (case-insensitive).
	ErrMissingConnection = errors.New("websocket: missing or invalid Connection header")

	// ErrMissingSecKey indicates missing Sec-WebSocket-Key header.
	// RFC 6455 Section 4.2.1: Required for handshake.
	ErrMissingSecKey = errors.New("websocket: missing Sec-WebSocket-Key header")

	// ErrInvalidVersion indicates unsupported WebSocket version.
	// RFC 6455 Section 4.4: Only version 13 is supported.
	ErrInvalidVersion = errors.New("websocket: unsupported WebSocket version")

	// ErrOriginDenied indicates origin check failed.
	ErrOriginDenied = errors.New("websocket: origin check failed")

	// ErrHijackFailed indicates HTTP connection cannot be hijacked.
	ErrHijackFailed = errors.New("websocket: cannot hijack connection")

	// Connection error types (runtime errors).

	// ErrClosed indicates the inbound sequence has terminated.
	// Returned by Next and Read after a close event was produced.
	ErrClosed = errors.New("websocket: connection closed")

	// ErrInvalidMessageType indicates invalid message type for operation.
	// For example, calling ReadText() on binary message.
	ErrInvalidMessageType = errors.New("websocket: invalid message type")
)

// CloseError is returned by Conn.Next when a decode failure was translated
// into an outbound close frame. Code and Reason are what was sent to the peer.
type CloseError struct {
	Code   CloseCode
	Reason string
	Err    error
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("websocket: closed with %d (%s): %v", int(e.Code), e.Code, e.Err)
}

func (e *CloseError) Unwrap() error {
	return e.Err
}

// CloseCodeFor returns the status code a decode failure is reported with.
//
// UTF-8 failures map to 1007 (invalid frame payload data), every other
// failure, stream truncation included, maps to 1002 (protocol error).
func CloseCodeFor(err error) CloseCode {
	if errors.Is(err, ErrInvalidUTF8) {
		return CloseInvalidFramePayloadData
	}
	return CloseProtocolError
}
