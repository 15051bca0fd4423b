package websocket

// This file exports internal helpers for the black-box tests in
// package websocket_test. It is only compiled during tests.

// ClientFrameForTest encodes a final frame masked with key, as a client
// would send it.
func ClientFrameForTest(op Opcode, key [4]byte, payload []byte) []byte {
	return rawFrame(true, op, &key, payload)
}

// RawHeaderForTest returns a two-byte frame header with arbitrary first
// byte, masked, for a payload of n < 126 bytes.
func RawHeaderForTest(first byte, n int) []byte {
	return []byte{first, maskBit | byte(n)}
}
