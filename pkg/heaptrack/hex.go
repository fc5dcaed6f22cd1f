package heaptrack

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformedNumber is returned when a hex argument in the trace contains a
// byte outside [0-9a-fA-F]. The trace is assumed well-formed upstream, so this
// is fatal to the run.
var ErrMalformedNumber = errors.New("malformed hex number")

// ParseHex decodes a minimal-width ASCII hex literal (no sign, no 0x prefix)
// as written by heaptrack. It works on the raw line slice to avoid a string
// allocation per event line.
func ParseHex(b []byte) (uint64, error) {
	if len(b) == 0 {
		return 0, fmt.Errorf("%w: empty input", ErrMalformedNumber)
	}

	var v uint64
	for _, c := range b {
		v <<= 4
		switch {
		case c >= '0' && c <= '9':
			v |= uint64(c - '0')
		case c >= 'a' && c <= 'f':
			v |= uint64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v |= uint64(c-'A') + 10
		default:
			return 0, fmt.Errorf("%w: %q", ErrMalformedNumber, b)
		}
	}

	return v, nil
}

// AppendHex appends the minimal-width lowercase hex representation of v, with
// "0" for zero. This matches the encoding heaptrack itself uses, so rewritten
// lines re-parse identically downstream.
func AppendHex(dst []byte, v uint64) []byte {
	return strconv.AppendUint(dst, v, 16)
}
