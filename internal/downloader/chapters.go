package downloader

import (
	"fmt"
	"sort"
	"strings"
)

// ChapterSegment is one entry of a non-overlapping, start-ascending chapter
// timeline — spec.md §3/§4.8 (C8).
type ChapterSegment struct {
	Title string
	Start uint64
	End   uint64 // exclusive
}

// ChapterSegments is an ordered, non-overlapping sequence maintained by
// Insert.
type ChapterSegments struct {
	segments []ChapterSegment
}

// NewChapterSegments creates an empty timeline.
func NewChapterSegments() *ChapterSegments {
	return &ChapterSegments{}
}

// Segments returns the current sorted, non-overlapping segments.
func (c *ChapterSegments) Segments() []ChapterSegment {
	out := make([]ChapterSegment, len(c.segments))
	copy(out, c.segments)
	return out
}

// Insert adds a new segment, splitting any existing segment it overlaps
// into its non-overlapping left/right residues, then re-sorts by start.
// This is the §4.8 "hard part": for an overlapping existing segment s,
// emit [s.Start, min(s.End,new.Start)) if non-empty and
// [max(s.Start,new.End), s.End) if non-empty, drop s, and keep new.
func (c *ChapterSegments) Insert(seg ChapterSegment) {
	if seg.Start >= seg.End {
		return
	}

	next := make([]ChapterSegment, 0, len(c.segments)+1)
	for _, s := range c.segments {
		if s.End <= seg.Start || s.Start >= seg.End {
			// No overlap.
			next = append(next, s)
			continue
		}

		leftEnd := s.End
		if seg.Start < leftEnd {
			leftEnd = seg.Start
		}
		if s.Start < leftEnd {
			next = append(next, ChapterSegment{Title: s.Title, Start: s.Start, End: leftEnd})
		}

		rightStart := s.Start
		if seg.End > rightStart {
			rightStart = seg.End
		}
		if rightStart < s.End {
			next = append(next, ChapterSegment{Title: s.Title, Start: rightStart, End: s.End})
		}
	}
	next = append(next, seg)

	sort.Slice(next, func(i, j int) bool { return next[i].Start < next[j].Start })
	c.segments = next
}

// GenerateMetadata produces the ffmpeg chapter metadata file content for a
// video of duration D, covering [0,D] exactly by filling gaps — including a
// leading gap, inter-segment gaps, and a trailing gap up to D — with
// blank-titled fillers, per spec.md §4.8/§8.
func (c *ChapterSegments) GenerateMetadata(duration uint64) string {
	var filled []ChapterSegment
	cursor := uint64(0)
	for _, s := range c.segments {
		if s.Start > cursor {
			filled = append(filled, ChapterSegment{Title: " ", Start: cursor, End: s.Start})
		}
		filled = append(filled, s)
		cursor = s.End
	}
	if cursor < duration {
		filled = append(filled, ChapterSegment{Title: " ", Start: cursor, End: duration})
	}

	var b strings.Builder
	b.WriteString(";FFMETADATA1\n")
	for _, s := range filled {
		b.WriteString("[CHAPTER]\n")
		b.WriteString("TIMEBASE=1/1000\n")
		fmt.Fprintf(&b, "START=%d\n", s.Start*1000)
		fmt.Fprintf(&b, "END=%d\n", s.End*1000)
		fmt.Fprintf(&b, "title=%s\n", escapeMetadataValue(s.Title))
	}
	return b.String()
}

func escapeMetadataValue(v string) string {
	r := strings.NewReplacer("\\", "\\\\", "=", "\\=", ";", "\\;", "#", "\\#", "\n", "\\\n")
	return r.Replace(v)
}

// SkipCategoryTitles maps the external community skip-segment category
// names to the fixed display dictionary named in spec.md §4.8.
var SkipCategoryTitles = map[string]string{
	"advertisement":       "广告",
	"self-promotion":      "宣传",
	"brand-cooperation":   "合作",
	"interaction-reminder": "互动",
	"highlight":           "精彩",
	"intro":               "片头",
	"outro":               "片尾",
	"recap":               "回顾",
}

// SkipCategoryTitle resolves a category to its display title, falling back
// to the raw category name for anything not in the fixed dictionary.
func SkipCategoryTitle(category string) string {
	if t, ok := SkipCategoryTitles[category]; ok {
		return t
	}
	return category
}
