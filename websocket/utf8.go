package websocket

// utf8Validator checks UTF-8 incrementally.
//
// A multi-byte sequence may be split across calls to push; a byte that can
// never complete a valid sequence fails immediately instead of at the end of
// the message. The accepted byte ranges follow the Unicode well-formed table
// (no overlong forms, no surrogates, nothing above U+10FFFF).
type utf8Validator struct {
	need   int  // continuation bytes still expected
	lo, hi byte // accepted range for the next continuation byte
}

// push validates the next slice of the stream.
func (v *utf8Validator) push(p []byte) error {
	for _, b := range p {
		if v.need == 0 {
			if b < 0x80 {
				continue
			}
			if !v.start(b) {
				return ErrInvalidUTF8
			}
			continue
		}

		if b < v.lo || b > v.hi {
			return ErrInvalidUTF8
		}
		v.need--
		v.lo, v.hi = 0x80, 0xBF
	}
	return nil
}

// start records the expectations set by a leading byte.
func (v *utf8Validator) start(b byte) bool {
	v.lo, v.hi = 0x80, 0xBF

	switch {
	case b >= 0xC2 && b <= 0xDF:
		v.need = 1
	case b == 0xE0:
		v.need, v.lo = 2, 0xA0
	case b == 0xED:
		v.need, v.hi = 2, 0x9F
	case b >= 0xE1 && b <= 0xEF:
		v.need = 2
	case b == 0xF0:
		v.need, v.lo = 3, 0x90
	case b >= 0xF1 && b <= 0xF3:
		v.need = 3
	case b == 0xF4:
		v.need, v.hi = 3, 0x8F
	default:
		return false
	}
	return true
}

// finish fails if the stream stopped in the middle of a sequence.
func (v *utf8Validator) finish() error {
	if v.need != 0 {
		return ErrInvalidUTF8
	}
	return nil
}
