package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoffDoublesAndSaturates(t *testing.T) {
	b := newBackoff(time.Second, 60*time.Second)

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		32 * time.Second,
		60 * time.Second,
		60 * time.Second,
	}
	for i, w := range want {
		require.Equal(t, w, b.Next(), "attempt %d", i)
	}
}

func TestBackoffResetReturnsToFloor(t *testing.T) {
	b := newBackoff(time.Second, 60*time.Second)
	b.Next()
	b.Next()
	b.Next()

	b.Reset()
	require.Equal(t, time.Second, b.Next())
	require.Equal(t, 2*time.Second, b.Next())
}
