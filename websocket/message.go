package websocket

import (
	"errors"
	"fmt"
)

// MessageType identifies the kind of an inbound Event.
//
// The values equal the opcode of the frame that produced the event, which
// keeps the set closed: a Text or Binary message, or one of the three
// control frames.
type MessageType int

const (
	TextMessage   MessageType = 1 // UTF-8 text, validated on receipt
	BinaryMessage MessageType = 2
	CloseMessage  MessageType = 8
	PingMessage   MessageType = 9
	PongMessage   MessageType = 10
)

func (mt MessageType) String() string {
	switch mt {
	case TextMessage, BinaryMessage, CloseMessage, PingMessage, PongMessage:
		return Opcode(mt).String()
	}
	return fmt.Sprintf("MessageType(%d)", int(mt))
}

// IsData reports whether mt is a text or binary message.
func (mt MessageType) IsData() bool {
	return mt == TextMessage || mt == BinaryMessage
}

// Event is one inbound protocol event.
//
// Which fields are set depends on Type:
//   - TextMessage: Text holds the reassembled message
//   - BinaryMessage: Data holds the reassembled message
//   - CloseMessage: Code and Text (the close reason)
//   - PingMessage, PongMessage: Data holds the application data
type Event struct {
	Type MessageType
	Data []byte
	Text string

	// Code is the received status code. A close frame without a body is
	// reported as CloseNoStatusReceived.
	Code CloseCode
}

// Payload returns the event body as bytes regardless of its type.
func (e Event) Payload() []byte {
	if e.Type == TextMessage || e.Type == CloseMessage {
		return []byte(e.Text)
	}
	return e.Data
}

// CloseCode is a close frame status code (RFC 6455 Section 7.4.1).
type CloseCode int

// Registered status codes. 1004 and 1014 are unassigned; 1005 and 1006 are
// never sent on the wire and only describe how a connection ended locally.
const (
	CloseNormalClosure           CloseCode = 1000
	CloseGoingAway               CloseCode = 1001
	CloseProtocolError           CloseCode = 1002
	CloseUnsupportedData         CloseCode = 1003
	CloseNoStatusReceived        CloseCode = 1005 // close frame had no body
	CloseAbnormalClosure         CloseCode = 1006 // transport lost without a close frame
	CloseInvalidFramePayloadData CloseCode = 1007 // e.g. invalid UTF-8 in a text message
	ClosePolicyViolation         CloseCode = 1008
	CloseMessageTooBig           CloseCode = 1009
	CloseMandatoryExtension      CloseCode = 1010
	CloseInternalServerErr       CloseCode = 1011
	CloseServiceRestart          CloseCode = 1012
	CloseTryAgainLater           CloseCode = 1013
	CloseTLSHandshake            CloseCode = 1015
)

var closeCodeNames = map[CloseCode]string{
	CloseNormalClosure:           "normal closure",
	CloseGoingAway:               "going away",
	CloseProtocolError:           "protocol error",
	CloseUnsupportedData:         "unsupported data",
	CloseNoStatusReceived:        "no status received",
	CloseAbnormalClosure:         "abnormal closure",
	CloseInvalidFramePayloadData: "invalid frame payload data",
	ClosePolicyViolation:         "policy violation",
	CloseMessageTooBig:           "message too big",
	CloseMandatoryExtension:      "mandatory extension",
	CloseInternalServerErr:       "internal server error",
	CloseServiceRestart:          "service restart",
	CloseTryAgainLater:           "try again later",
	CloseTLSHandshake:            "TLS handshake",
}

func (cc CloseCode) String() string {
	if name, ok := closeCodeNames[cc]; ok {
		return name
	}
	switch {
	case cc >= 4000:
		return "private use"
	case cc >= 3000:
		return "registered"
	default:
		return "unknown"
	}
}

// IsValidReceived reports whether a peer may put cc on the wire.
//
// Codes below 1000, 1004-1006 and 1016-2999 are rejected. 1000-1003,
// 1007-1015 and everything from 3000 up are accepted without further
// semantic checks.
func (cc CloseCode) IsValidReceived() bool {
	switch {
	case cc < 1000:
		return false
	case cc > 1003 && cc < 1007:
		return false
	case cc > 1015 && cc < 3000:
		return false
	default:
		return true
	}
}

// IsCloseError reports whether err ended the inbound sequence through a
// close frame, either received or sent after a protocol violation.
func IsCloseError(err error) bool {
	if err == nil {
		return false
	}
	var ce *CloseError
	return errors.Is(err, ErrClosed) || errors.As(err, &ce)
}
