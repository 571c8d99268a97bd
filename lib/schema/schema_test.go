package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStaticRegistryLookup(t *testing.T) {
	reg := NewStaticRegistry([]Entry{
		{Tag: 1, MaxLength: 8, Version: 1, Name: "a"},
		{Tag: 2, MaxLength: 16, Version: 2, Name: "b"},
	})

	require.Equal(t, 2, reg.Size())

	e, ok := reg.Lookup(2)
	require.True(t, ok)
	require.Equal(t, "b", e.Name)

	_, ok = reg.Lookup(99)
	require.False(t, ok)
}

func TestStaticRegistryStripsTerminator(t *testing.T) {
	reg := NewStaticRegistry([]Entry{
		{Tag: 1, MaxLength: 8, Version: 1},
		{Tag: Terminator},
	})

	require.Equal(t, 1, reg.Size())
	_, ok := reg.Lookup(Terminator)
	require.False(t, ok)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	content := `
tags:
  - tag: 4097
    max_length: 64
    version: 1
    name: system_config
  - tag: 4098
    max_length: 128
    version: 2
    name: calibration
    backup_enable: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	reg, err := LoadYAML(path)
	require.NoError(t, err)
	require.Equal(t, 2, reg.Size())

	e, ok := reg.Lookup(4098)
	require.True(t, ok)
	require.Equal(t, "calibration", e.Name)
	require.True(t, e.BackupEnable)
}

func TestBufferTooSmallErrorMessage(t *testing.T) {
	err := &BufferTooSmallError{Required: 42}
	require.Contains(t, err.Error(), "buffer too small")
}
