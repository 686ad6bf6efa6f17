package engine

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/seisgate/pkg/spool"
)

// drainBuffer finalizes the buffer and reads the merged payload back.
func drainBuffer(t *testing.T, buf *responseBuffer) (string, int64) {
	t.Helper()
	rc, size, err := buf.finalize()
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	return string(data), size
}

func TestResponseBuffer_MergesInSlotOrder(t *testing.T) {
	buf := newResponseBuffer()
	a := buf.addSlot()
	b := buf.addSlot()
	c := buf.addSlot()

	// Write in reverse of slot order; the merge must not care.
	_, err := c.Write([]byte("CCCC"))
	require.NoError(t, err)
	_, err = b.Write([]byte("BBBB"))
	require.NoError(t, err)
	_, err = a.Write([]byte("AAAA"))
	require.NoError(t, err)

	data, size := drainBuffer(t, buf)
	assert.Equal(t, "AAAABBBBCCCC", data)
	assert.Equal(t, int64(12), size)
}

func TestResponseBuffer_SplitKeepsPosition(t *testing.T) {
	buf := newResponseBuffer()
	a := buf.addSlot()
	b := buf.addSlot()
	c := buf.addSlot()

	children := b.split(2)
	require.Len(t, children, 2)

	_, err := children[1].Write([]byte("b2"))
	require.NoError(t, err)
	_, err = c.Write([]byte("cc"))
	require.NoError(t, err)
	_, err = children[0].Write([]byte("b1"))
	require.NoError(t, err)
	_, err = a.Write([]byte("aa"))
	require.NoError(t, err)

	data, _ := drainBuffer(t, buf)
	assert.Equal(t, "aab1b2cc", data)
}

func TestResponseBuffer_NestedSplit(t *testing.T) {
	buf := newResponseBuffer()
	s := buf.addSlot()

	level1 := s.split(2)
	level2 := level1[0].split(2)

	_, err := level1[1].Write([]byte("3"))
	require.NoError(t, err)
	_, err = level2[0].Write([]byte("1"))
	require.NoError(t, err)
	_, err = level2[1].Write([]byte("2"))
	require.NoError(t, err)

	data, _ := drainBuffer(t, buf)
	assert.Equal(t, "123", data)
}

func TestResponseBuffer_SplitDiscardsParentBytes(t *testing.T) {
	buf := newResponseBuffer()
	s := buf.addSlot()

	_, err := s.Write([]byte("stale"))
	require.NoError(t, err)

	children := s.split(2)
	_, err = children[0].Write([]byte("fresh"))
	require.NoError(t, err)

	data, size := drainBuffer(t, buf)
	assert.Equal(t, "fresh", data)
	assert.Equal(t, int64(5), size)
}

func TestResponseBuffer_EmptySlotsSkipped(t *testing.T) {
	buf := newResponseBuffer()
	buf.addSlot()
	mid := buf.addSlot()
	buf.addSlot()

	_, err := mid.Write([]byte("only"))
	require.NoError(t, err)

	data, size := drainBuffer(t, buf)
	assert.Equal(t, "only", data)
	assert.Equal(t, int64(4), size)
}

func TestResponseBuffer_FinalizeEmpty(t *testing.T) {
	buf := newResponseBuffer()
	buf.addSlot()
	buf.addSlot()

	data, size := drainBuffer(t, buf)
	assert.Empty(t, data)
	assert.Zero(t, size)
}

func TestResponseBuffer_ResetDiscardsPartialBytes(t *testing.T) {
	buf := newResponseBuffer()
	s := buf.addSlot()

	_, err := s.Write([]byte("truncated-body"))
	require.NoError(t, err)
	require.NoError(t, s.reset())
	_, err = s.Write([]byte("retried"))
	require.NoError(t, err)

	data, _ := drainBuffer(t, buf)
	assert.Equal(t, "retried", data)
}

func TestResponseBuffer_SpoolRollover(t *testing.T) {
	dir := t.TempDir()
	buf := newResponseBuffer(spool.WithRolloverBytes(16), spool.WithTempDir(dir))
	s := buf.addSlot()

	payload := make([]byte, 100)
	for i := range payload {
		payload[i] = byte('a' + i%26)
	}
	for off := 0; off < len(payload); off += 7 {
		end := off + 7
		if end > len(payload) {
			end = len(payload)
		}
		_, err := s.Write(payload[off:end])
		require.NoError(t, err)
	}

	require.False(t, s.spool.InMemory(), "100 bytes past a 16 byte threshold must spill")

	data, size := drainBuffer(t, buf)
	assert.Equal(t, string(payload), data)
	assert.Equal(t, int64(100), size)

	// Draining the merged reader releases the spill file.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResponseBuffer_CloseEarlyReleasesSpill(t *testing.T) {
	dir := t.TempDir()
	buf := newResponseBuffer(spool.WithRolloverBytes(4), spool.WithTempDir(dir))

	for i := 0; i < 2; i++ {
		_, err := buf.addSlot().Write([]byte("larger-than-threshold"))
		require.NoError(t, err)
	}

	rc, _, err := buf.finalize()
	require.NoError(t, err)

	// Abandon the stream after a partial read.
	partial := make([]byte, 3)
	_, err = rc.Read(partial)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResponseBuffer_DiscardRemovesSpill(t *testing.T) {
	dir := t.TempDir()
	buf := newResponseBuffer(spool.WithRolloverBytes(4), spool.WithTempDir(dir))

	_, err := buf.addSlot().Write([]byte("spilled-payload"))
	require.NoError(t, err)
	children := buf.addSlot().split(2)
	_, err = children[1].Write([]byte("child-payload"))
	require.NoError(t, err)

	buf.discard()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResponseBuffer_Size(t *testing.T) {
	buf := newResponseBuffer()
	a := buf.addSlot()
	b := buf.addSlot()

	_, err := a.Write([]byte("1234"))
	require.NoError(t, err)
	children := b.split(2)
	_, err = children[0].Write([]byte("56"))
	require.NoError(t, err)
	_, err = children[1].Write([]byte("78"))
	require.NoError(t, err)

	assert.Equal(t, int64(8), buf.size())
}
