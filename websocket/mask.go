package websocket

import "iter"

// applyMask applies the WebSocket masking algorithm to data.
//
// RFC 6455 Section 5.3: Client-to-Server Masking.
//
// Algorithm:
//
//	transformed-octet-i = original-octet-i XOR masking-key-octet-j
//	where j = i MOD 4
//
// pos is the stream position of data[0] within the frame payload. The
// position following the last byte is returned so that a payload split into
// several slices can be masked piecewise. XOR is its own inverse, so the
// same function masks and unmasks.
func applyMask(data []byte, key [4]byte, pos int) int {
	for i := range data {
		data[i] ^= key[(pos+i)&3]
	}
	return (pos + len(data)) & 3
}

// unmask XORs every chunk of seq against key in place, indexing the key by
// position in the whole sequence rather than within each chunk. Chunk
// boundaries and errors pass through unchanged.
func unmask(seq iter.Seq2[[]byte, error], key [4]byte) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		pos := 0
		for chunk, err := range seq {
			if err == nil {
				pos = applyMask(chunk, key, pos)
			}
			if !yield(chunk, err) {
				return
			}
		}
	}
}
