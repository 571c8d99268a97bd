package port

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemPortReadWriteRoundTrip(t *testing.T) {
	p := NewMemPort(64)
	require.NoError(t, p.Init())
	require.EqualValues(t, 64, p.Size())

	in := []byte{1, 2, 3, 4}
	require.NoError(t, p.Write(10, in, 4))

	out := make([]byte, 4)
	require.NoError(t, p.Read(10, out, 4))
	require.Equal(t, in, out)
}

func TestMemPortOutOfBoundsRejected(t *testing.T) {
	p := NewMemPort(16)
	buf := make([]byte, 4)
	require.Error(t, p.Write(14, buf, 4))
	require.Error(t, p.Read(14, buf, 4))
}

func TestFilePortPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.bin")

	p1, err := NewFilePort(path, 128)
	require.NoError(t, err)
	require.NoError(t, p1.Write(0, []byte("persisted"), 9))
	require.NoError(t, p1.(*filePort).Close())

	p2, err := NewFilePort(path, 128)
	require.NoError(t, err)
	out := make([]byte, 9)
	require.NoError(t, p2.Read(0, out, 9))
	require.Equal(t, "persisted", string(out))
	require.NoError(t, p2.(*filePort).Close())
}

func TestFilePortGrowsShortFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.bin")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o600))

	p, err := NewFilePort(path, 256)
	require.NoError(t, err)
	require.EqualValues(t, 256, p.Size())
	require.NoError(t, p.(*filePort).Close())
}

func TestSystemClockReportsNonzeroTime(t *testing.T) {
	c := SystemClock{}
	require.Greater(t, c.TimeSeconds(), uint32(0))
	require.Greater(t, c.TimeMillis(), uint32(0))
}
