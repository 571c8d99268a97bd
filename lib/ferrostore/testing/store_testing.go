// Package testing provides a reusable conformance suite any
// ferrostore.Store implementation can be run against, mirroring the shape
// of a conformance-test-suite pattern: a single entry point taking a
// factory closure, with the concrete engine construction left to the
// caller so the suite itself stays implementation-agnostic.
package testing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ferrokv/ferrokv/lib/ferrostore"
	"github.com/ferrokv/ferrokv/lib/schema"
)

// Factory builds a fresh, unformatted Store over the given registry, for
// one subtest. Implementations should return a new
// in-memory-backed instance each call so subtests never share state.
type Factory func(t *testing.T, reg schema.Registry) ferrostore.Store

// RunStoreTests runs the full conformance suite against a Store built by
// factory.
func RunStoreTests(t *testing.T, name string, factory Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("FreshBootWriteRead", func(t *testing.T) { testFreshBootWriteRead(t, factory) })
		t.Run("ResizeUpward", func(t *testing.T) { testResizeUpward(t, factory) })
		t.Run("ResizeDownwardInPlace", func(t *testing.T) { testResizeDownwardInPlace(t, factory) })
		t.Run("Defragment", func(t *testing.T) { testDefragmentScenario(t, factory) })
		t.Run("BackupRecovery", func(t *testing.T) { testBackupRecovery(t, factory) })
		t.Run("DeleteThenExists", func(t *testing.T) { testDeleteThenExists(t, factory) })
		t.Run("OverwritePreservesLatest", func(t *testing.T) { testOverwritePreservesLatest(t, factory) })
		t.Run("BoundaryNoIndexSpace", func(t *testing.T) { testBoundaryNoIndexSpace(t, factory) })
		t.Run("BoundaryPayloadTooLarge", func(t *testing.T) { testBoundaryPayloadTooLarge(t, factory) })
		t.Run("BoundaryBufferTooSmall", func(t *testing.T) { testBoundaryBufferTooSmall(t, factory) })
		t.Run("Stream", func(t *testing.T) { testStreamRoundTrip(t, factory) })
	})
}

func basicSchema() schema.Registry {
	return schema.NewStaticRegistry([]schema.Entry{
		{Tag: 0x1001, MaxLength: 64, Version: 1, Name: "tag_a"},
		{Tag: 0x1002, MaxLength: 64, Version: 1, Name: "tag_b"},
		{Tag: 0x1003, MaxLength: 64, Version: 1, Name: "tag_c"},
	})
}

func testFreshBootWriteRead(t *testing.T, factory Factory) {
	reg := basicSchema()
	s := factory(t, reg)

	state, err := s.Init()
	require.NoError(t, err)
	require.Equal(t, ferrostore.StateFirstBoot, state)

	require.NoError(t, s.Format(0))

	state, err = s.Init()
	require.NoError(t, err)
	require.Equal(t, ferrostore.StateOk, state)

	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	require.NoError(t, s.Write(0x1001, payload))

	buf := make([]byte, 4)
	n, err := s.Read(0x1001, buf)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, payload, buf)
}

func testResizeUpward(t *testing.T, factory Factory) {
	reg := basicSchema()
	s := factory(t, reg)
	require.NoError(t, firstBootFormat(s))

	require.NoError(t, s.Write(0x1001, []byte("A")))
	require.NoError(t, s.Write(0x1001, []byte("ABCDEFGH")))

	buf := make([]byte, 8)
	n, err := s.Read(0x1001, buf)
	require.NoError(t, err)
	require.Equal(t, "ABCDEFGH", string(buf[:n]))

	stats := s.Statistics()
	require.EqualValues(t, 1, stats.FragmentCount)
	require.EqualValues(t, 17, stats.FragmentSize) // 14+1+2
}

func testResizeDownwardInPlace(t *testing.T, factory Factory) {
	reg := basicSchema()
	s := factory(t, reg)
	require.NoError(t, firstBootFormat(s))

	require.NoError(t, s.Write(0x1001, []byte("ABCDEFGH")))
	require.NoError(t, s.Write(0x1001, []byte("X")))

	buf := make([]byte, 1)
	n, err := s.Read(0x1001, buf)
	require.NoError(t, err)
	require.Equal(t, "X", string(buf[:n]))

	stats := s.Statistics()
	require.EqualValues(t, 0, stats.FragmentCount)
}

func testDefragmentScenario(t *testing.T, factory Factory) {
	reg := basicSchema()
	s := factory(t, reg)
	require.NoError(t, firstBootFormat(s))

	require.NoError(t, s.Write(0x1001, make([]byte, 16)))
	require.NoError(t, s.Write(0x1002, make([]byte, 32)))
	require.NoError(t, s.Write(0x1003, make([]byte, 16)))
	require.NoError(t, s.Delete(0x1002))

	stats := s.Statistics()
	require.EqualValues(t, 1, stats.FragmentCount)

	require.NoError(t, s.Defragment())

	stats = s.Statistics()
	require.EqualValues(t, 0, stats.FragmentCount)
	require.EqualValues(t, (14+16+2)*2, stats.NextFreeAddr-(stats.NextFreeAddr-stats.UsedSpace))
}

func testBackupRecovery(t *testing.T, factory Factory) {
	reg := basicSchema()
	s := factory(t, reg)
	require.NoError(t, firstBootFormat(s))

	require.NoError(t, s.Write(0x1001, []byte("hello")))
	require.NoError(t, s.Write(0x1002, []byte("world")))
	require.NoError(t, s.BackupAll())

	corruptIndexFunc, ok := s.(interface{ TestCorruptIndex() })
	if ok {
		corruptIndexFunc.TestCorruptIndex()
		state, err := s.Init()
		require.NoError(t, err)
		require.Equal(t, ferrostore.StateRecovered, state)

		buf := make([]byte, 16)
		n, err := s.Read(0x1001, buf)
		require.NoError(t, err)
		require.Equal(t, "hello", string(buf[:n]))
	}
}

func testDeleteThenExists(t *testing.T, factory Factory) {
	reg := basicSchema()
	s := factory(t, reg)
	require.NoError(t, firstBootFormat(s))

	require.NoError(t, s.Write(0x1001, []byte("v1")))
	require.True(t, s.Exists(0x1001))
	require.NoError(t, s.Delete(0x1001))
	require.False(t, s.Exists(0x1001))
}

func testOverwritePreservesLatest(t *testing.T, factory Factory) {
	reg := basicSchema()
	s := factory(t, reg)
	require.NoError(t, firstBootFormat(s))

	require.NoError(t, s.Write(0x1001, []byte("v1")))
	require.NoError(t, s.Write(0x1001, []byte("v2")))

	buf := make([]byte, 8)
	n, err := s.Read(0x1001, buf)
	require.NoError(t, err)
	require.Equal(t, "v2", string(buf[:n]))
}

func testBoundaryNoIndexSpace(t *testing.T, factory Factory) {
	entries := []schema.Entry{}
	for i := uint16(1); i <= 2; i++ {
		entries = append(entries, schema.Entry{Tag: i, MaxLength: 16, Version: 1})
	}
	reg := schema.NewStaticRegistry(entries)
	s := factory(t, reg)
	require.NoError(t, firstBootFormat(s))

	// The harness's small devices use a MaxTags large enough that this
	// boundary test is exercised at the engine-level unit tests instead,
	// which construct an engine with MaxTags=1 directly. Here we only
	// assert the two declared tags both fit.
	require.NoError(t, s.Write(1, []byte("a")))
	require.NoError(t, s.Write(2, []byte("b")))
}

func testBoundaryPayloadTooLarge(t *testing.T, factory Factory) {
	reg := basicSchema()
	s := factory(t, reg)
	require.NoError(t, firstBootFormat(s))

	err := s.Write(0x1001, make([]byte, 65))
	require.Error(t, err)
	require.Equal(t, ferrostore.InvalidParam, ferrostore.CodeOf(err))
}

func testBoundaryBufferTooSmall(t *testing.T, factory Factory) {
	reg := basicSchema()
	s := factory(t, reg)
	require.NoError(t, firstBootFormat(s))

	require.NoError(t, s.Write(0x1001, []byte("0123456789")))

	buf := make([]byte, 4)
	_, err := s.Read(0x1001, buf)
	require.Error(t, err)
	require.Equal(t, ferrostore.NoBufferMemory, ferrostore.CodeOf(err))
}

func testStreamRoundTrip(t *testing.T, factory Factory) {
	reg := basicSchema()
	s := factory(t, reg)
	require.NoError(t, firstBootFormat(s))

	payload := []byte("the quick brown fox jumps over the lazy dog")
	h, err := s.WriteBegin(0x1001, uint32(len(payload)))
	require.NoError(t, err)

	chunkSize := 7
	for i := 0; i < len(payload); i += chunkSize {
		end := i + chunkSize
		if end > len(payload) {
			end = len(payload)
		}
		require.NoError(t, s.WriteChunk(h, payload[i:end]))
	}
	require.NoError(t, s.WriteEnd(h))

	rh, total, err := s.ReadBegin(0x1001)
	require.NoError(t, err)
	require.EqualValues(t, len(payload), total)

	out := make([]byte, 0, len(payload))
	buf := make([]byte, 5)
	for {
		n, err := s.ReadChunk(rh, buf)
		require.NoError(t, err)
		if n == 0 {
			break
		}
		out = append(out, buf[:n]...)
		if uint32(len(out)) >= total {
			break
		}
	}
	require.NoError(t, s.ReadEnd(rh))
	require.Equal(t, payload, out)
}

func firstBootFormat(s ferrostore.Store) error {
	if _, err := s.Init(); err != nil {
		return err
	}
	if err := s.Format(0); err != nil {
		return err
	}
	_, err := s.Init()
	return err
}
