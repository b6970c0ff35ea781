package danmaku

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// assWriter emits the [Script Info]/[V4+ Styles]/[Events] sections of an
// ASS subtitle file, grounded on original_source's ass_writer.rs AssWriter
// (same section layout and Dialogue line format, byte-for-byte compatible
// with mpv/ffmpeg's ass renderer).
type assWriter struct {
	w     *bufio.Writer
	title string
	cfg   CanvasConfig
}

func newAssWriter(w io.Writer, title string, cfg CanvasConfig) *assWriter {
	// ass_writer.rs notes disk IO is the bottleneck on HDD/docker volumes
	// and uses a 10MiB buffer; a 1MiB buffer is plenty for a comment track
	// (typically low tens of MB at most), so this uses that smaller size.
	return &assWriter{w: bufio.NewWriterSize(w, 1<<20), title: title, cfg: cfg}
}

func (aw *assWriter) init() error {
	opacity := aw.cfg.Opacity()
	bold := 0
	if aw.cfg.Bold {
		bold = -1
	}
	styles := strings.Join([]string{
		assStyleLine("Float", aw.cfg, opacity, bold),
		assStyleLine("Bottom", aw.cfg, opacity, bold),
		assStyleLine("Top", aw.cfg, opacity, bold),
	}, "\n")

	_, err := fmt.Fprintf(aw.w,
		"[Script Info]\n"+
			"; Script generated by bilidl\n"+
			"Title: %s\n"+
			"ScriptType: v4.00+\n"+
			"PlayResX: %d\n"+
			"PlayResY: %d\n"+
			"Aspect Ratio: %d:%d\n"+
			"Collisions: Normal\n"+
			"WrapStyle: 2\n"+
			"ScaledBorderAndShadow: yes\n"+
			"YCbCr Matrix: TV.601\n\n\n"+
			"[V4+ Styles]\n"+
			"Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, "+
			"Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, "+
			"Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n"+
			"%s\n\n"+
			"[Events]\n"+
			"Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n",
		aw.title, aw.cfg.Width, aw.cfg.Height, aw.cfg.Width, aw.cfg.Height, styles,
	)
	return err
}

func assStyleLine(name string, cfg CanvasConfig, opacity uint8, bold int) string {
	return fmt.Sprintf(
		"Style: %s,%s,%d,&H%02xFFFFFF,&H00FFFFFF,&H%02x000000,&H00000000,"+
			"%d,0,0,0,100,100,0.00,0.00,1,%.2f,0,7,0,0,0,1",
		name, cfg.Font, cfg.FontSize, opacity, opacity, bold, cfg.OutlinePx,
	)
}

func (aw *assWriter) write(d *Drawable) error {
	start := formatTimePoint(d.Danmaku.TimelineSec)
	end := formatTimePoint(d.Danmaku.TimelineSec + d.Duration)
	effect := fmt.Sprintf(`\move(%d, %d, %d, %d)`, d.Effect.StartX, d.Effect.StartY, d.Effect.EndX, d.Effect.EndY)
	text := escapeAssText(d.Danmaku.Content)
	_, err := fmt.Fprintf(aw.w,
		"Dialogue: 2,%s,%s,%s,,0,0,0,,{%s\\c&H%02x%02x%02x&}%s\n",
		start, end, d.StyleName, effect, d.Danmaku.B, d.Danmaku.G, d.Danmaku.R, text,
	)
	return err
}

func (aw *assWriter) flush() error {
	return aw.w.Flush()
}

func formatTimePoint(t float64) string {
	if t < 0 {
		t = 0
	}
	secs := int64(t)
	hour := secs / 3600
	minutes := (secs % 3600) / 60
	left := t - float64(hour*3600) - float64(minutes*60)
	return fmt.Sprintf("%d:%02d:%05.2f", hour, minutes, left)
}

func escapeAssText(text string) string {
	text = strings.TrimSpace(text)
	return strings.ReplaceAll(text, "\n", "\\N")
}
