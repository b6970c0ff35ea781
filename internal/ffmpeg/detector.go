// Package ffmpeg wraps the external multimedia tool invocation spec.md
// §4.5 step 3 delegates merge/remux and chapter/skip metadata embedding to
// — grounded on the teacher's internal/downloader/tools/detector.go
// (PATH lookup + version probe) and worker.go's exec.CommandContext
// invocation shape (embedSubtitles/downloadWithFFmpeg).
package ffmpeg

import (
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// Info describes the ffmpeg binary located on PATH.
type Info struct {
	Binary    string
	Version   string
	Available bool
}

// Detect locates ffmpeg on PATH, grounded on tools/detector.go's
// DetectTools (generalized here to the single tool this module needs —
// yt-dlp/mpv fallbacks are out of spec.md's scope, see SPEC_FULL.md's
// Non-goals).
func Detect() (*Info, error) {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return &Info{}, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	info := &Info{Binary: path, Available: true}
	info.Version, _ = getVersion(path)
	return info, nil
}

func getVersion(binary string) (string, error) {
	out, err := exec.Command(binary, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("failed to get ffmpeg version: %w", err)
	}
	return parseVersion(string(out)), nil
}

var versionPattern = regexp.MustCompile(`ffmpeg version\s+([^\s]+)`)

func parseVersion(output string) string {
	lines := strings.SplitN(strings.TrimSpace(output), "\n", 2)
	if len(lines) == 0 {
		return ""
	}
	if m := versionPattern.FindStringSubmatch(lines[0]); len(m) > 1 {
		return m[1]
	}
	return ""
}
