package recorder

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

func appendRecords(t *testing.T, dir string, count int) []schema.CommandHeader {
	t.Helper()
	w, err := NewWriter(DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	headers := make([]schema.CommandHeader, 0, count)
	for i := 0; i < count; i++ {
		header := schema.NewHeader(schema.CommandCreateRfq, uint64(i+1), schema.ClusterTime(1_000+i), 11)
		require.NoError(t, w.TryAppend(header, []byte{byte(i), 0xAB}))
		headers = append(headers, header)
	}
	require.NoError(t, w.Close())
	return headers
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	written := appendRecords(t, dir, 3)

	pb, err := NewPlayback(PlaybackConfig{Dir: dir})
	require.NoError(t, err)

	var got []schema.CommandHeader
	err = pb.Run(context.Background(), func(header schema.CommandHeader, payload []byte) error {
		got = append(got, header)
		assert.Len(t, payload, 2)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, written, got)
}

func TestReaderDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	appendRecords(t, dir, 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	path := filepath.Join(dir, entries[0].Name())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-5] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o644))

	pb, err := NewPlayback(PlaybackConfig{Dir: dir})
	require.NoError(t, err)
	err = pb.Run(context.Background(), func(schema.CommandHeader, []byte) error { return nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChecksumMismatch)

	// Disabling validation lets the damaged record through.
	pb, err = NewPlayback(PlaybackConfig{Dir: dir, DisableChecksum: true})
	require.NoError(t, err)
	count := 0
	err = pb.Run(context.Background(), func(schema.CommandHeader, []byte) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestWriterRejectsAppendAfterClose(t *testing.T) {
	w, err := NewWriter(DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Close())

	err = w.TryAppend(schema.NewHeader(schema.CommandCreateRfq, 1, 1_000, 1), nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMaxPayloadSize(t *testing.T) {
	dir := t.TempDir()
	appendRecords(t, dir, 1)

	pb, err := NewPlayback(PlaybackConfig{Dir: dir, MaxPayloadSize: 1})
	require.NoError(t, err)
	err = pb.Run(context.Background(), func(schema.CommandHeader, []byte) error { return nil })
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}
