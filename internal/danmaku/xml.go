package danmaku

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// danmakuXML mirrors the bilibili comment-dump shape (<i><d p="...">text</d>...</i>),
// grounded on original_source's mod.rs DanmakuXmlITag/DamakuXmlDTag, reparsed
// with encoding/xml instead of yaserde since this module has no Rust
// serde-style attribute/text split requirement.
type danmakuXML struct {
	XMLName xml.Name   `xml:"i"`
	D       []dTagXML `xml:"d"`
}

type dTagXML struct {
	P    string `xml:"p,attr"`
	Body string `xml:",chardata"`
}

// ParseXML decodes a raw comment-dump document into Danmaku values, sorted
// by timeline. Grounded on original_source's xml_to_danmakus.
func ParseXML(raw []byte) ([]Danmaku, error) {
	sanitized := sanitizeXML(raw)

	var doc danmakuXML
	if err := xml.Unmarshal(sanitized, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse danmaku xml: %w", err)
	}

	danmakus := make([]Danmaku, 0, len(doc.D))
	for _, tag := range doc.D {
		if strings.TrimSpace(tag.Body) == "" {
			continue
		}
		d, err := parseDTag(tag)
		if err != nil {
			return nil, err
		}
		danmakus = append(danmakus, d)
	}

	sort.SliceStable(danmakus, func(i, j int) bool {
		return danmakus[i].TimelineSec < danmakus[j].TimelineSec
	})
	return danmakus, nil
}

func parseDTag(tag dTagXML) (Danmaku, error) {
	parts := strings.Split(tag.P, ",")
	if len(parts) < 4 {
		return Danmaku{}, fmt.Errorf("danmaku %q p attribute missing fields", tag.Body)
	}
	timeline, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return Danmaku{}, fmt.Errorf("danmaku %q has no timeline: %w", tag.Body, err)
	}
	mode, err := strconv.Atoi(parts[1])
	if err != nil {
		return Danmaku{}, fmt.Errorf("danmaku %q has no mode: %w", tag.Body, err)
	}
	danType, ok := typeFromMode(mode)
	if !ok {
		return Danmaku{}, fmt.Errorf("danmaku %q has unknown type %d", tag.Body, mode)
	}
	fontSize, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return Danmaku{}, fmt.Errorf("danmaku %q has no font size: %w", tag.Body, err)
	}
	rgb, err := strconv.ParseUint(parts[3], 10, 32)
	if err != nil {
		return Danmaku{}, fmt.Errorf("danmaku %q has no color: %w", tag.Body, err)
	}

	return Danmaku{
		TimelineSec: timeline,
		Content:     tag.Body,
		Type:        danType,
		FontSize:    uint32(fontSize),
		R:           uint8(rgb >> 16 & 0xff),
		G:           uint8(rgb >> 8 & 0xff),
		B:           uint8(rgb & 0xff),
	}, nil
}

// sanitizeXML drops bytes outside the XML 1.0 valid character ranges —
// bilibili's dumps occasionally carry raw control characters that trip
// Go's strict XML decoder, grounded on mod.rs's sanitize_xml.
func sanitizeXML(raw []byte) []byte {
	s := string(raw)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isValidXMLChar(r) {
			b.WriteRune(r)
		}
	}
	return []byte(b.String())
}

func isValidXMLChar(r rune) bool {
	switch {
	case r == 0x09, r == 0x0A, r == 0x0D:
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	default:
		return false
	}
}

// RenderASS parses raw and writes an ASS subtitle track to out, placing
// comments on a simulated scrolling canvas per cfg. Grounded on
// original_source's mod.rs xml_to_ass.
func RenderASS(raw []byte, out io.Writer, title string, cfg CanvasConfig) error {
	danmakus, err := ParseXML(raw)
	if err != nil {
		return err
	}
	return RenderASSFromDanmakus(danmakus, out, title, cfg)
}

// RenderASSFromDanmakus writes an ASS subtitle track for an already-decoded
// comment list, letting callers that assembled comments from several
// fetched segments (e.g. the danmaku sibling generator) skip the
// XML round-trip.
func RenderASSFromDanmakus(danmakus []Danmaku, out io.Writer, title string, cfg CanvasConfig) error {
	writer := newAssWriter(out, title, cfg)
	if err := writer.init(); err != nil {
		return fmt.Errorf("failed to write ass header: %w", err)
	}

	canvas := NewCanvas(cfg)
	for _, d := range danmakus {
		if drawable := canvas.Draw(d); drawable != nil {
			if err := writer.write(drawable); err != nil {
				return fmt.Errorf("failed to write ass dialogue: %w", err)
			}
		}
	}

	return writer.flush()
}

// ParseXMLSegments decodes and merges several fetched legacy comment-dump
// segments into one sorted comment list — the XML-input counterpart to
// ParseProtobufSegments, for the comment.bilibili.com/<cid>.xml endpoint
// rather than the protobuf seg.so one biliclient.GetDanmaku actually calls.
// A segment that doesn't parse as the comment-dump XML shape is skipped
// rather than failing the whole fetch, since a gap in one 6-minute window
// shouldn't lose every other window's comments.
func ParseXMLSegments(segments [][]byte) ([]Danmaku, error) {
	var all []Danmaku
	for _, seg := range segments {
		danmakus, err := ParseXML(seg)
		if err != nil {
			continue
		}
		all = append(all, danmakus...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].TimelineSec < all[j].TimelineSec
	})
	return all, nil
}

// MarshalXML re-serializes a decoded comment list back into the canonical
// <i><d p="...">text</d>...</i> comment-dump shape, used for the
// xml_selected sibling output once segments have been merged.
func MarshalXML(danmakus []Danmaku) ([]byte, error) {
	doc := danmakuXML{D: make([]dTagXML, 0, len(danmakus))}
	for _, d := range danmakus {
		doc.D = append(doc.D, dTagXML{
			P:    formatPAttr(d),
			Body: d.Content,
		})
	}
	out, err := xml.MarshalIndent(doc, "", "")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal danmaku xml: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

func formatPAttr(d Danmaku) string {
	mode := 1
	switch d.Type {
	case TypeTop:
		mode = 5
	case TypeBottom:
		mode = 4
	case TypeReverse:
		mode = 6
	}
	rgb := uint32(d.R)<<16 | uint32(d.G)<<8 | uint32(d.B)
	return fmt.Sprintf("%s,%d,%d,%d", strconv.FormatFloat(d.TimelineSec, 'f', -1, 64), mode, d.FontSize, rgb)
}
