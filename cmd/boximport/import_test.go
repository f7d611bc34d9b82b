//nolint:goconst // test files commonly repeat strings for test data
package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/musicbox/internal/store"
)

// writeWAV writes one second of mono 16-bit silence at 8kHz.
func writeWAV(t *testing.T, path string) {
	t.Helper()
	const sampleRate, frames = 8000, 8000
	dataSize := frames * 2

	buf := make([]byte, 44+dataSize)
	copy(buf[0:], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:], uint32(36+dataSize))
	copy(buf[8:], "WAVE")
	copy(buf[12:], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:], 16)
	binary.LittleEndian.PutUint16(buf[20:], 1)
	binary.LittleEndian.PutUint16(buf[22:], 1)
	binary.LittleEndian.PutUint32(buf[24:], sampleRate)
	binary.LittleEndian.PutUint32(buf[28:], sampleRate*2)
	binary.LittleEndian.PutUint16(buf[32:], 2)
	binary.LittleEndian.PutUint16(buf[34:], 16)
	copy(buf[36:], "data")
	binary.LittleEndian.PutUint32(buf[40:], uint32(dataSize))

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf, 0o600))
}

func musicDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "Bedtime")
	writeWAV(t, filepath.Join(dir, "02 - Moon.wav"))
	writeWAV(t, filepath.Join(dir, "01 - Stars.wav"))
	writeWAV(t, filepath.Join(dir, "cd2", "01 - Owls.wav"))
	writeWAV(t, filepath.Join(dir, ".trash", "old.wav"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cover.jpg"), []byte("jpg"), 0o600))
	return dir
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestScanDir_SortsAndSkipsHidden(t *testing.T) {
	dir := musicDir(t)

	paths, err := scanDir(dir)
	require.NoError(t, err)

	want := []string{
		filepath.Join(dir, "01 - Stars.wav"),
		filepath.Join(dir, "02 - Moon.wav"),
		filepath.Join(dir, "cd2", "01 - Owls.wav"),
	}
	assert.Equal(t, want, paths)
}

func TestImportDir(t *testing.T) {
	st := openStore(t)
	dir := musicDir(t)

	res, err := importDir(context.Background(), st, dir, "", "04 a1 b2 c3", zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "Bedtime", res.Name)
	assert.Equal(t, 3, res.Tracks)
	assert.Equal(t, 3*time.Second, res.Duration)
	assert.Equal(t, "04a1b2c3", res.TagID)

	name, tracks, err := st.Playlists().PlaylistTracks(res.PlaylistID)
	require.NoError(t, err)
	assert.Equal(t, "Bedtime", name)
	require.Len(t, tracks, 3)
	assert.Equal(t, "01 - Stars", tracks[0].Title)
	assert.Equal(t, "01 - Owls", tracks[2].Title)

	id, err := st.Tags().Lookup("04a1b2c3")
	require.NoError(t, err)
	assert.Equal(t, res.PlaylistID, id)
}

func TestImportDir_EmptyDirectory(t *testing.T) {
	st := openStore(t)

	_, err := importDir(context.Background(), st, t.TempDir(), "Empty", "", zerolog.Nop())
	require.ErrorIs(t, err, errNoMusic)

	playlists, err := st.Playlists().List()
	require.NoError(t, err)
	assert.Empty(t, playlists)
}

func TestRun_ImportThenList(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "box.db")
	dir := musicDir(t)

	var out bytes.Buffer
	err := run(context.Background(), []string{"--db", dbPath, "--name", "Nap", dir}, &out, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), `Imported "Nap"`)
	assert.Contains(t, out.String(), "3 tracks")

	out.Reset()
	err = run(context.Background(), []string{"--db", dbPath, "--list"}, &out, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Nap")
	assert.Contains(t, out.String(), "TRACKS")
}

func TestRun_RequiresDirectory(t *testing.T) {
	var out bytes.Buffer
	dbPath := filepath.Join(t.TempDir(), "box.db")

	err := run(context.Background(), []string{"--db", dbPath}, &out, &out)
	require.Error(t, err)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{75 * time.Second, "1:15"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
