package danmaku

// CanvasConfig controls the simulated scrolling canvas the float-lane
// allocator packs comments into — grounded on original_source's
// canvas/mod.rs CanvasConfig, with field names translated to Go case and
// mapped from config.DanmakuCanvas at the call site (internal/downloader's
// pipeline.go, canvasConfigFromSettings) rather than duplicated here.
type CanvasConfig struct {
	// DurationSec is how long one comment stays visible while crossing the
	// canvas, in seconds.
	DurationSec float64
	Width       uint32
	Height      uint32
	Font        string
	FontSize    uint32
	// WidthRatio compensates for font weight when estimating glyph width.
	WidthRatio float64
	// HorizontalGapPx is the minimum horizontal gap enforced between two
	// comments sharing a lane.
	HorizontalGapPx float64
	// LaneSizePx is the vertical pixel height of one scroll lane.
	LaneSizePx uint32
	// FloatPercentage is the fraction of canvas height the scrolling lanes
	// may occupy.
	FloatPercentage float64
	// Alpha is opacity, 0 (fully transparent) to 1 (fully opaque).
	Alpha float64
	Bold  bool
	// OutlinePx is the glyph outline stroke width.
	OutlinePx float64
	// TimeOffsetSec shifts every comment's timeline; negative moves
	// comments earlier.
	TimeOffsetSec float64
}

// DefaultCanvasConfig mirrors original_source's CanvasConfig::default.
func DefaultCanvasConfig() CanvasConfig {
	return CanvasConfig{
		DurationSec:     15.0,
		Width:           1280,
		Height:          720,
		Font:            "黑体",
		FontSize:        25,
		WidthRatio:      1.2,
		HorizontalGapPx: 20.0,
		LaneSizePx:      32,
		FloatPercentage: 0.5,
		Alpha:           0.7,
		Bold:            false,
		OutlinePx:       0.8,
		TimeOffsetSec:   0,
	}
}

// Opacity returns the ASS alpha byte (0x00 opaque, 0xFF transparent) for
// this config's Alpha.
func (c CanvasConfig) Opacity() uint8 {
	return 255 - uint8(c.Alpha*255)
}

// Canvas allocates float-lane comments across a fixed number of scroll
// tracks so concurrently visible comments don't overlap in time, grounded
// on canvas/mod.rs's Canvas/draw/draw_float/draw_float_in_lane. The original
// also special-cased Bottom/Top/Reverse by demoting them to Float ("不喜欢
// 底部弹幕，直接转成 Float" — not a bug, a feature); this keeps that choice.
type Canvas struct {
	cfg   CanvasConfig
	lanes []*lane
}

// NewCanvas builds a Canvas with its scroll lanes sized from cfg.
func NewCanvas(cfg CanvasConfig) *Canvas {
	count := int(cfg.FloatPercentage * float64(cfg.Height) / float64(cfg.LaneSizePx))
	if count < 1 {
		count = 1
	}
	return &Canvas{cfg: cfg, lanes: make([]*lane, count)}
}

// Draw assigns d a lane and returns the Drawable to emit, or nil if d
// cannot be placed (e.g. its shifted timeline is negative).
func (c *Canvas) Draw(d Danmaku) *Drawable {
	d.TimelineSec += c.cfg.TimeOffsetSec
	if d.TimelineSec < 0 {
		return nil
	}
	if d.Type != TypeFloat {
		d.Type = TypeFloat
	}
	return c.drawFloat(d)
}

func (c *Canvas) drawFloat(d Danmaku) *Drawable {
	type candidate struct {
		idx       int
		timeNeeded float64
	}
	var collisions []candidate
	for idx, l := range c.lanes {
		if l == nil {
			return c.drawFloatInLane(d, idx)
		}
		sep, timeNeeded := l.availableFor(d, c.cfg)
		if sep {
			return c.drawFloatInLane(d, idx)
		}
		collisions = append(collisions, candidate{idx, timeNeeded})
	}
	if len(collisions) == 0 {
		return nil
	}
	best := collisions[0]
	for _, cand := range collisions[1:] {
		if cand.timeNeeded < best.timeNeeded {
			best = cand
		}
	}
	if best.timeNeeded < 1.0 {
		d.TimelineSec += best.timeNeeded + 0.01
		return c.drawFloatInLane(d, best.idx)
	}
	return nil
}

func (c *Canvas) drawFloatInLane(d Danmaku, idx int) *Drawable {
	c.lanes[idx] = newLane(d, c.cfg)
	y := int32(idx) * int32(c.cfg.LaneSizePx)
	length := int32(d.Length(c.cfg))
	return &Drawable{
		Danmaku:   d,
		Duration:  c.cfg.DurationSec,
		StyleName: "Float",
		Effect: DrawEffect{
			StartX: int32(c.cfg.Width), StartY: y,
			EndX: -length, EndY: y,
		},
	}
}
