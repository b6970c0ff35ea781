package danmaku

// DrawEffect is the ASS \move(...) override tag parameters for one
// drawable, grounded on original_source's drawable.rs DrawEffect enum
// (Move/Fixed — only Move is ever produced by the float-lane canvas, so
// Fixed is omitted here rather than kept as dead code).
type DrawEffect struct {
	StartX, StartY int32
	EndX, EndY     int32
}

// Drawable is one comment placed on the canvas, ready for AssWriter to
// render as a Dialogue line.
type Drawable struct {
	Danmaku   Danmaku
	Duration  float64
	StyleName string
	Effect    DrawEffect
}
