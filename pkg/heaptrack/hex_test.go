package heaptrack

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHex(t *testing.T) {
	for _, test := range []struct {
		input    string
		expected uint64
		err      bool
	}{
		{"0", 0, false},
		{"1", 1, false},
		{"a", 10, false},
		{"A", 10, false},
		{"7d0", 2000, false},
		{"3e8", 1000, false},
		{"102", 258, false},
		{"DeadBeef", 0xdeadbeef, false},
		{"ffffffffffffffff", math.MaxUint64, false},
		{"", 0, true},
		{"0x12", 0, true},
		{"12g3", 0, true},
		{"-1", 0, true},
		{" 1", 0, true},
	} {
		t.Run(test.input, func(t *testing.T) {
			v, err := ParseHex([]byte(test.input))
			if test.err {
				require.ErrorIs(t, err, ErrMalformedNumber)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.expected, v)
		})
	}
}

func TestAppendHex(t *testing.T) {
	for _, test := range []struct {
		value    uint64
		expected string
	}{
		{0, "0"},
		{1, "1"},
		{10, "a"},
		{1000, "3e8"},
		{2000, "7d0"},
		// Interior zero nibbles must survive.
		{0x102, "102"},
		{0x1000000, "1000000"},
		{math.MaxUint64, "ffffffffffffffff"},
	} {
		t.Run(test.expected, func(t *testing.T) {
			require.Equal(t, test.expected, string(AppendHex(nil, test.value)))
		})
	}
}

func TestHexRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 10, 1000, 2000, 0xdeadbeef, math.MaxUint64} {
		parsed, err := ParseHex(AppendHex(nil, v))
		require.NoError(t, err)
		require.Equal(t, v, parsed)
	}
}
