package downloader

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box(boxType string, payloadLen int) []byte {
	b := make([]byte, 8+payloadLen)
	binary.BigEndian.PutUint32(b[0:4], uint32(8+payloadLen))
	copy(b[4:8], boxType)
	return b
}

func writeFile(t *testing.T, chunks ...[]byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "video.mp4")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	for _, c := range chunks {
		_, err := f.Write(c)
		require.NoError(t, err)
	}
	return path
}

func TestIsMP4CompleteValid(t *testing.T) {
	path := writeFile(t, box("ftyp", 16), box("moov", 32), box("mdat", 100))
	ok, err := IsMP4Complete(path)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsMP4CompleteMissingMoov(t *testing.T) {
	path := writeFile(t, box("ftyp", 16), box("mdat", 100))
	ok, err := IsMP4Complete(path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsMP4CompleteFirstBoxNotFtyp(t *testing.T) {
	path := writeFile(t, box("moov", 32), box("mdat", 100))
	ok, err := IsMP4Complete(path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsMP4CompleteTruncated(t *testing.T) {
	full := box("mdat", 1000)
	path := writeFile(t, box("ftyp", 16), box("moov", 32), full[:len(full)-500])
	ok, err := IsMP4Complete(path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsMP4CompleteOvershootingSize(t *testing.T) {
	bad := box("mdat", 100)
	binary.BigEndian.PutUint32(bad[0:4], uint32(len(bad)+10_000))
	path := writeFile(t, box("ftyp", 16), box("moov", 32), bad)
	ok, err := IsMP4Complete(path)
	require.NoError(t, err)
	assert.False(t, ok)
}
