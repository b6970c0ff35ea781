package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFFmpeg writes a shell script standing in for ffmpeg: it ignores its
// flags and copies the first -i argument's file to the last argument,
// enough to exercise Run's rename/cleanup bookkeeping without a real
// multimedia tool.
func fakeFFmpeg(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script ffmpeg shim requires a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\nfirst_input=\"$3\"\neval last=\\${$#}\ncp \"$first_input\" \"$last\"\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestRunMergesVideoAndAudio(t *testing.T) {
	bin := fakeFFmpeg(t)
	dir := t.TempDir()
	video := filepath.Join(dir, "ep.mp4")
	audio := filepath.Join(dir, "ep.m4a")
	require.NoError(t, os.WriteFile(video, []byte("video-bytes"), 0o644))
	require.NoError(t, os.WriteFile(audio, []byte("audio-bytes"), 0o644))

	err := Run(context.Background(), bin, MergeOptions{
		Binary:    bin,
		VideoPath: video,
		AudioPath: audio,
		FinalPath: video,
	})
	require.NoError(t, err)

	got, err := os.ReadFile(video)
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(got))
	_, err = os.Stat(audio)
	assert.True(t, os.IsNotExist(err))
}

func TestRunRejectsEmptyOptions(t *testing.T) {
	err := Run(context.Background(), "ffmpeg", MergeOptions{VideoPath: "v.mp4", FinalPath: "v.mp4"})
	assert.Error(t, err)
}
