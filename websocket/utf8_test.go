package websocket

import (
	"testing"
	"unicode/utf8"
)

var utf8Cases = []struct {
	name string
	data []byte
}{
	{"ascii", []byte("hello")},
	{"two-byte", []byte("héllo")},
	{"three-byte", []byte("€ and ☃")},
	{"four-byte", []byte("𝄞 and 😀")},
	{"mixed", []byte("κόσμε 世界 🌍")},
	{"empty", nil},
	{"lone continuation", []byte{0x80}},
	{"overlong slash", []byte{0xc0, 0xaf}},
	{"overlong three-byte", []byte{0xe0, 0x80, 0xaf}},
	{"surrogate", []byte{0xed, 0xa0, 0x80}},
	{"above U+10FFFF", []byte{0xf4, 0x90, 0x80, 0x80}},
	{"invalid lead 0xF5", []byte{0xf5, 0x80, 0x80, 0x80}},
	{"invalid lead 0xFF", []byte{0xff}},
	{"truncated sequence", []byte{0xe1, 0xa0}},
	{"bad continuation", []byte{0xe1, 0xa0, 0xc0}},
	{"max code point", []byte{0xf4, 0x8f, 0xbf, 0xbf}},
	{"last before surrogates", []byte{0xed, 0x9f, 0xbf}},
}

func validateStream(chunks ...[]byte) error {
	var v utf8Validator
	for _, c := range chunks {
		if err := v.push(c); err != nil {
			return err
		}
	}
	return v.finish()
}

func TestUTF8Validator_MatchesStdlib(t *testing.T) {
	for _, tt := range utf8Cases {
		t.Run(tt.name, func(t *testing.T) {
			want := utf8.Valid(tt.data)

			if got := validateStream(tt.data) == nil; got != want {
				t.Errorf("whole: valid = %v, want %v", got, want)
			}

			// Every split point, including ones inside a multi-byte sequence.
			for i := 0; i <= len(tt.data); i++ {
				if got := validateStream(tt.data[:i], tt.data[i:]) == nil; got != want {
					t.Errorf("split at %d: valid = %v, want %v", i, got, want)
				}
			}

			bytewise := make([][]byte, len(tt.data))
			for i := range tt.data {
				bytewise[i] = tt.data[i : i+1]
			}
			if got := validateStream(bytewise...) == nil; got != want {
				t.Errorf("byte by byte: valid = %v, want %v", got, want)
			}
		})
	}
}

func TestUTF8Validator_FailsEarly(t *testing.T) {
	var v utf8Validator

	if err := v.push([]byte{0xe1, 0xa0}); err != nil {
		t.Fatalf("partial sequence rejected: %v", err)
	}
	if err := v.push([]byte{0xc0}); err == nil {
		t.Error("invalid continuation accepted until finish")
	}
}

func TestUTF8Validator_TrailingIncomplete(t *testing.T) {
	var v utf8Validator

	if err := v.push([]byte("ok\xf0\x9f")); err != nil {
		t.Fatalf("push failed: %v", err)
	}
	if err := v.finish(); err == nil {
		t.Error("finish accepted an incomplete trailing sequence")
	}
}
