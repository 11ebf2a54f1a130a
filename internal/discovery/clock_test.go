package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in         string
		hour, mins int
	}{
		{"12:00 AM", 0, 0},
		{"12:30 am", 0, 30},
		{"12:00 PM", 12, 0},
		{"01:15 PM", 13, 15},
		{"6:00AM", 6, 0},
		{"11:59 PM", 23, 59},
		{"18:45", 18, 45},
		{"00:05", 0, 5},
	}
	for _, c := range cases {
		h, m, err := ParseClock(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.hour, h, c.in)
		assert.Equal(t, c.mins, m, c.in)
	}
}

func TestParseClockRejects(t *testing.T) {
	for _, in := range []string{"", "noon", "13:00 PM", "00:10 AM", "24:00", "10:75", "7 PM"} {
		_, _, err := ParseClock(in)
		assert.ErrorIs(t, err, ErrBadClock, in)
	}
}

func TestBucketOf(t *testing.T) {
	b, err := BucketOf("12:00 AM")
	require.NoError(t, err)
	assert.Equal(t, BeforeSix, b)

	b, err = BucketOf("12:00 PM")
	require.NoError(t, err)
	assert.Equal(t, Afternoon, b)

	b, err = BucketOf("06:00 AM")
	require.NoError(t, err)
	assert.Equal(t, Morning, b)

	b, err = BucketOf("06:00 PM")
	require.NoError(t, err)
	assert.Equal(t, Evening, b)
}
