package danmaku

// lane tracks the single most recently placed float-lane comment so a new
// comment can be checked against it before sharing the track.
//
// original_source's canvas/lane.rs was not present in the retrieval pack —
// only its call sites in canvas/mod.rs (the Collision enum's three
// variants: Separate, NotEnoughTime, Collide{time_needed}) survived. This
// reconstructs the physics from those call sites: a float comment travels
// at constant speed from the right edge (x=width) to fully off the left
// edge (x=-length) over duration seconds, so two comments in the same lane
// are clear of each other once the earlier one's trailing edge has crossed
// the entry point plus the configured horizontal gap.
type lane struct {
	enterAt  float64
	speed    float64 // px/sec
	length   float64
	gap      float64
}

func newLane(d Danmaku, cfg CanvasConfig) *lane {
	length := d.Length(cfg)
	speed := (float64(cfg.Width) + length) / cfg.DurationSec
	return &lane{enterAt: d.TimelineSec, speed: speed, length: length, gap: cfg.HorizontalGapPx}
}

// availableFor reports whether d can enter this lane immediately (true),
// and if not, how many more seconds must elapse before it can.
func (l *lane) availableFor(d Danmaku, cfg CanvasConfig) (bool, float64) {
	if l.speed <= 0 {
		return true, 0
	}
	clearAt := l.enterAt + (l.length+l.gap)/l.speed
	if d.TimelineSec >= clearAt {
		return true, 0
	}
	return false, clearAt - d.TimelineSec
}
