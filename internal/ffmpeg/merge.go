package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// MergeOptions describes one merge/embed invocation — spec.md §4.5 step 3's
// four cases collapse to whether AudioPath and MetadataPath are non-empty.
type MergeOptions struct {
	Binary       string
	VideoPath    string
	AudioPath    string // empty: no audio stream to merge in
	MetadataPath string // empty: no chapter/skip metadata to embed
	// FinalPath is the path the caller expects the merged/embedded result
	// at on success — normally VideoPath itself, since the stage renames
	// the remux output over the original video file.
	FinalPath string
}

// Run invokes ffmpeg to merge video+audio and/or embed chapter metadata per
// which of AudioPath/MetadataPath are set, grounded on the teacher's
// worker.go embedSubtitles (temp-output-then-rename, -c copy to avoid a
// re-encode, CombinedOutput on failure for diagnostics).
func Run(ctx context.Context, binary string, opts MergeOptions) error {
	hasAudio := opts.AudioPath != ""
	hasMetadata := opts.MetadataPath != ""
	if !hasAudio && !hasMetadata {
		return fmt.Errorf("ffmpeg.Run: neither audio nor metadata given, nothing to do")
	}

	tempOutput := opts.FinalPath + ".merging.mp4"
	args := []string{"-y", "-i", opts.VideoPath}

	switch {
	case hasAudio && hasMetadata:
		args = append(args, "-i", opts.AudioPath, "-i", opts.MetadataPath,
			"-map", "0:v", "-map", "1:a", "-map_metadata", "2",
			"-c", "copy", tempOutput)
	case hasAudio:
		args = append(args, "-i", opts.AudioPath,
			"-map", "0:v", "-map", "1:a",
			"-c", "copy", tempOutput)
	default: // hasMetadata only
		args = append(args, "-i", opts.MetadataPath,
			"-map", "0", "-map_metadata", "1",
			"-c", "copy", tempOutput)
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg merge/embed failed: %w: %s", err, stderr.String())
	}

	if err := os.Remove(opts.FinalPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove original before merge rename: %w", err)
	}
	if err := os.Rename(tempOutput, opts.FinalPath); err != nil {
		return fmt.Errorf("failed to rename merged output into place: %w", err)
	}

	if hasAudio {
		_ = os.Remove(opts.AudioPath)
	}
	if hasMetadata {
		_ = os.Remove(opts.MetadataPath)
	}
	return nil
}
