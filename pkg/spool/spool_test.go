package spool

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempFileCount(t *testing.T, dir string) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "seisgate-spool-*"))
	require.NoError(t, err)
	return len(matches)
}

func TestSpool_SmallPayloadStaysInMemory(t *testing.T) {
	dir := t.TempDir()
	s := New(WithRolloverBytes(64), WithTempDir(dir))
	defer s.Close()

	n, err := s.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, int64(5), s.Len())
	assert.True(t, s.InMemory())
	assert.Equal(t, 0, tempFileCount(t, dir))

	r, err := s.Reader()
	require.NoError(t, err)
	defer r.Close()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestSpool_RolloverPreservesBytes(t *testing.T) {
	dir := t.TempDir()
	s := New(WithRolloverBytes(16), WithTempDir(dir))
	defer s.Close()

	// 100 bytes in uneven chunks crosses the 16-byte threshold mid-stream.
	payload := make([]byte, 100)
	for i := range payload {
		payload[i] = byte(i)
	}
	for _, chunk := range [][]byte{payload[:7], payload[7:20], payload[20:64], payload[64:]} {
		_, err := s.Write(chunk)
		require.NoError(t, err)
	}

	assert.Equal(t, int64(100), s.Len())
	assert.False(t, s.InMemory())
	assert.Equal(t, 1, tempFileCount(t, dir))

	r, err := s.Reader()
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(payload, got), "forward read must reproduce written bytes exactly")

	require.NoError(t, r.Close())
	assert.Equal(t, 0, tempFileCount(t, dir), "reader close should remove the spill file")
}

func TestSpool_ResetReturnsToMemory(t *testing.T) {
	dir := t.TempDir()
	s := New(WithRolloverBytes(8), WithTempDir(dir))
	defer s.Close()

	_, err := s.Write(bytes.Repeat([]byte("x"), 32))
	require.NoError(t, err)
	assert.False(t, s.InMemory())

	require.NoError(t, s.Reset())
	assert.Equal(t, int64(0), s.Len())
	assert.True(t, s.InMemory())
	assert.Equal(t, 0, tempFileCount(t, dir))

	// Spool remains usable after reset.
	_, err = s.Write([]byte("retry"))
	require.NoError(t, err)

	r, err := s.Reader()
	require.NoError(t, err)
	defer r.Close()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, []byte("retry"), got)
}

func TestSpool_FinalizedRejectsWrites(t *testing.T) {
	s := New(WithRolloverBytes(16))
	defer s.Close()

	_, err := s.Write([]byte("data"))
	require.NoError(t, err)

	r, err := s.Reader()
	require.NoError(t, err)
	defer r.Close()

	_, err = s.Write([]byte("more"))
	assert.ErrorIs(t, err, ErrSpoolFinalized)

	assert.ErrorIs(t, s.Reset(), ErrSpoolFinalized)

	_, err = s.Reader()
	assert.ErrorIs(t, err, ErrSpoolFinalized)
}

func TestSpool_CloseRemovesSpillFile(t *testing.T) {
	dir := t.TempDir()
	s := New(WithRolloverBytes(4), WithTempDir(dir))

	_, err := s.Write([]byte("more than four bytes"))
	require.NoError(t, err)
	assert.Equal(t, 1, tempFileCount(t, dir))

	require.NoError(t, s.Close())
	assert.Equal(t, 0, tempFileCount(t, dir))

	// Close is idempotent, writes after close fail.
	require.NoError(t, s.Close())
	_, err = s.Write([]byte("late"))
	assert.ErrorIs(t, err, ErrSpoolClosed)
}

func TestSpool_ReaderSurvivesSpoolClose(t *testing.T) {
	dir := t.TempDir()
	s := New(WithRolloverBytes(4), WithTempDir(dir))

	payload := []byte("spilled payload bytes")
	_, err := s.Write(payload)
	require.NoError(t, err)

	r, err := s.Reader()
	require.NoError(t, err)

	// Closing the spool must not touch the handed-off file.
	require.NoError(t, s.Close())

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	require.NoError(t, r.Close())
}

func TestSpool_EmptyReader(t *testing.T) {
	s := New()
	defer s.Close()

	r, err := s.Reader()
	require.NoError(t, err)
	defer r.Close()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSpool_DefaultTempDir(t *testing.T) {
	s := New(WithRolloverBytes(1))
	_, err := s.Write([]byte("ab"))
	require.NoError(t, err)
	assert.False(t, s.InMemory())

	// Spill file lives under the system temp dir and disappears on close.
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "seisgate-spool-*"))
	require.NoError(t, err)
	assert.NotEmpty(t, matches)

	require.NoError(t, s.Close())
}
