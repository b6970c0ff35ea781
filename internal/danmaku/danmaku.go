// Package danmaku renders a bilibili XML danmaku dump into an ASS subtitle
// track an external player can burn in or overlay, grounded on
// original_source's danmaku_xml_to_ass module (danmaku.rs/canvas/mod.rs/
// drawable.rs/ass_writer.rs/mod.rs).
package danmaku

// Type is one of the four on-screen danmaku movement styles the XML format
// encodes in its mode field (1=scroll, 4=bottom, 5=top, 6=reverse).
type Type int

const (
	TypeFloat Type = iota
	TypeTop
	TypeBottom
	TypeReverse
)

// Danmaku is one parsed comment, stripped of its raw XML shape. JSON tags
// match original_source's serde-derived Reply shape closely enough that the
// json_selected sibling output (a straight serialization of the decoded
// comment list) looks like what a Rust serde_json::to_string would produce.
type Danmaku struct {
	TimelineSec float64 `json:"timeline_sec"`
	Content     string  `json:"content"`
	Type        Type    `json:"type"`
	FontSize    uint32  `json:"font_size"`
	R           uint8   `json:"r"`
	G           uint8   `json:"g"`
	B           uint8   `json:"b"`
}

// Length estimates the on-screen pixel width of the comment: CJK glyphs
// count as full-width (3 units), everything else as two-thirds width (2
// units) per original_source's danmaku.rs length(), scaled by the canvas's
// width_ratio to compensate for font weight differences.
func (d Danmaku) Length(cfg CanvasConfig) float64 {
	var units uint32
	for _, r := range d.Content {
		if r <= 0x7f {
			units += 2
		} else {
			units += 3
		}
	}
	pts := cfg.FontSize * units / 3
	return float64(pts) * cfg.WidthRatio
}

func typeFromMode(mode int) (Type, bool) {
	switch mode {
	case 1:
		return TypeFloat, true
	case 4:
		return TypeBottom, true
	case 5:
		return TypeTop, true
	case 6:
		return TypeReverse, true
	default:
		return 0, false
	}
}
