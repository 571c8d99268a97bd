package checksum

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSumMatchesStreamedUpdates(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")

	whole := Sum(data)

	c := New()
	c.Update(data[:10])
	c.Update(data[10:])
	require.Equal(t, whole, c.Final())
}

func TestSumOverMultipleBuffersMatchesConcatenation(t *testing.T) {
	a := []byte("hello ")
	b := []byte("world")

	got := Sum(a, b)
	want := Sum(append(append([]byte{}, a...), b...))

	require.Equal(t, want, got)
}

func TestResetRestartsAccumulator(t *testing.T) {
	c := New()
	c.Update([]byte("garbage"))
	c.Reset()
	c.Update([]byte("abc"))

	require.Equal(t, Sum([]byte("abc")), c.Final())
}

func TestEmptyInputIsDeterministic(t *testing.T) {
	require.Equal(t, New().Final(), Sum())
}

func TestSingleBitFlipChangesChecksum(t *testing.T) {
	original := []byte{0x01, 0x02, 0x03, 0x04}
	flipped := []byte{0x01, 0x02, 0x03, 0x05}

	require.NotEqual(t, Sum(original), Sum(flipped))
}
