package nvm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ferrokv/ferrokv/lib/ferrostore"
	ferrokvtesting "github.com/ferrokv/ferrokv/lib/ferrostore/testing"
	"github.com/ferrokv/ferrokv/lib/port"
	"github.com/ferrokv/ferrokv/lib/schema"
)

const testDeviceSize = 32 * 1024

func newTestEngine(t *testing.T, reg schema.Registry) *Engine {
	opts := DefaultOptions(testDeviceSize)
	opts.MaxTags = 16
	opts.BufferSize = 256
	e, err := NewEngine(opts, port.NewMemPort(testDeviceSize), port.SystemClock{}, reg)
	require.NoError(t, err)
	return e
}

func TestStoreConformance(t *testing.T) {
	ferrokvtesting.RunStoreTests(t, "nvm", func(t *testing.T, reg schema.Registry) ferrostore.Store {
		return newTestEngine(t, reg)
	})
}

func TestFormatDetectsFirstBoot(t *testing.T) {
	reg := schema.NewStaticRegistry([]schema.Entry{{Tag: 1, MaxLength: 8, Version: 1}})
	e := newTestEngine(t, reg)

	state, err := e.Init()
	require.NoError(t, err)
	require.Equal(t, ferrostore.StateFirstBoot, state)

	require.NoError(t, e.Format(0))
	require.Equal(t, ferrostore.StateOk, e.State())
}

func TestRestoreFromBackupAfterIndexCorruption(t *testing.T) {
	reg := schema.NewStaticRegistry([]schema.Entry{{Tag: 1, MaxLength: 8, Version: 1}})
	e := newTestEngine(t, reg)
	_, err := e.Init()
	require.NoError(t, err)
	require.NoError(t, e.Format(0))
	require.NoError(t, e.Write(1, []byte("saved")))
	require.NoError(t, e.BackupAll())

	garbage := make([]byte, e.opts.DataOff-e.opts.IndexOff)
	for i := range garbage {
		garbage[i] = 0xFF
	}
	require.NoError(t, e.p.Write(e.opts.IndexOff, garbage, uint32(len(garbage))))

	state, err := e.Init()
	require.NoError(t, err)
	require.Equal(t, ferrostore.StateRecovered, state)

	buf := make([]byte, 8)
	n, err := e.Read(1, buf)
	require.NoError(t, err)
	require.Equal(t, "saved", string(buf[:n]))
}

func TestLazyMigrationOnRead(t *testing.T) {
	migrated := false
	reg := schema.NewStaticRegistry([]schema.Entry{
		{
			Tag: 1, MaxLength: 16, Version: 2,
			Migrate: func(buf []byte, oldLen int, newLen *int, maxSize int, oldVer, newVer uint8) error {
				migrated = true
				copy(buf, []byte("MIGRATED"))
				*newLen = len("MIGRATED")
				return nil
			},
		},
	})
	e := newTestEngine(t, reg)
	_, err := e.Init()
	require.NoError(t, err)
	require.NoError(t, e.Format(0))

	// Write with an older schema version to force migration on next read.
	oldReg := schema.NewStaticRegistry([]schema.Entry{{Tag: 1, MaxLength: 16, Version: 1}})
	e.reg = oldReg
	require.NoError(t, e.Write(1, []byte("old data")))

	e.reg = reg
	buf := make([]byte, 16)
	n, err := e.Read(1, buf)
	require.NoError(t, err)
	require.True(t, migrated)
	require.Equal(t, "MIGRATED", string(buf[:n]))
}

func TestVerifyAllDetectsCorruptBlock(t *testing.T) {
	reg := schema.NewStaticRegistry([]schema.Entry{{Tag: 1, MaxLength: 16, Version: 1}})
	e := newTestEngine(t, reg)
	_, err := e.Init()
	require.NoError(t, err)
	require.NoError(t, e.Format(0))
	require.NoError(t, e.Write(1, []byte("payload1")))

	_, _, ok := e.findIndex(1)
	require.True(t, ok)
	_, entry, _ := e.findIndex(1)

	flip := []byte{0x00}
	require.NoError(t, e.p.Write(entry.DataAddr, flip, 1))

	corrupted, err := e.VerifyAll()
	require.Error(t, err)
	require.Contains(t, corrupted, uint16(1))
}

func TestWriteRejectsUnknownTag(t *testing.T) {
	reg := schema.NewStaticRegistry([]schema.Entry{{Tag: 1, MaxLength: 16, Version: 1}})
	e := newTestEngine(t, reg)
	_, err := e.Init()
	require.NoError(t, err)
	require.NoError(t, e.Format(0))

	err = e.Write(99, []byte("x"))
	require.Error(t, err)
	require.Equal(t, ferrostore.NotFound, ferrostore.CodeOf(err))
}

func TestNoIndexSpace(t *testing.T) {
	reg := schema.NewStaticRegistry([]schema.Entry{
		{Tag: 1, MaxLength: 8, Version: 1},
		{Tag: 2, MaxLength: 8, Version: 1},
	})
	opts := DefaultOptions(testDeviceSize)
	opts.MaxTags = 1
	opts.BufferSize = 256
	e, err := NewEngine(opts, port.NewMemPort(testDeviceSize), port.SystemClock{}, reg)
	require.NoError(t, err)
	_, err = e.Init()
	require.NoError(t, err)
	require.NoError(t, e.Format(0))

	require.NoError(t, e.Write(1, []byte("a")))
	err = e.Write(2, []byte("b"))
	require.Error(t, err)
	require.Equal(t, ferrostore.NoIndexSpace, ferrostore.CodeOf(err))
}

func TestErrorLedgerRecordsCorrelationID(t *testing.T) {
	reg := schema.NewStaticRegistry([]schema.Entry{{Tag: 1, MaxLength: 8, Version: 1}})
	e := newTestEngine(t, reg)
	_, err := e.Init()
	require.NoError(t, err)
	require.NoError(t, e.Format(0))

	err = e.Write(0, []byte("x"))
	require.Error(t, err)

	ctx := e.LastErrorEx()
	require.Equal(t, ferrostore.InvalidParam, ctx.Code)
	require.NotEmpty(t, ctx.CorrelationID)
}
