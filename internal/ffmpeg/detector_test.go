package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVersionExtractsFfmpegFormat(t *testing.T) {
	assert.Equal(t, "6.0", parseVersion("ffmpeg version 6.0 Copyright (c) 2000-2023"))
	assert.Equal(t, "N-112345-g1234567", parseVersion("ffmpeg version N-112345-g1234567\nbuilt with gcc"))
}

func TestParseVersionEmptyOnUnrecognizedOutput(t *testing.T) {
	assert.Equal(t, "", parseVersion("garbage output with no version token"))
}
