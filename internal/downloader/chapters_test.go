package downloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChapterSegmentsInsertSplitsOverlap(t *testing.T) {
	c := NewChapterSegments()
	c.Insert(ChapterSegment{Title: "A", Start: 0, End: 10})
	c.Insert(ChapterSegment{Title: "B", Start: 20, End: 30})
	c.Insert(ChapterSegment{Title: "X", Start: 5, End: 25})

	got := c.Segments()
	require.Len(t, got, 3)
	assert.Equal(t, ChapterSegment{Title: "A", Start: 0, End: 5}, got[0])
	assert.Equal(t, ChapterSegment{Title: "X", Start: 5, End: 25}, got[1])
	assert.Equal(t, ChapterSegment{Title: "B", Start: 25, End: 30}, got[2])
}

func TestChapterSegmentsSortedAndNonOverlapping(t *testing.T) {
	c := NewChapterSegments()
	c.Insert(ChapterSegment{Title: "C", Start: 50, End: 60})
	c.Insert(ChapterSegment{Title: "A", Start: 0, End: 10})
	c.Insert(ChapterSegment{Title: "B", Start: 20, End: 30})

	got := c.Segments()
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Start, got[i].Start)
		assert.LessOrEqual(t, got[i-1].End, got[i].Start)
	}
}

func TestGenerateMetadataCoversDurationExactly(t *testing.T) {
	c := NewChapterSegments()
	c.Insert(ChapterSegment{Title: "A", Start: 0, End: 10})
	c.Insert(ChapterSegment{Title: "B", Start: 20, End: 30})

	meta := c.GenerateMetadata(40)
	assert.Contains(t, meta, "START=200000")
	assert.Contains(t, meta, "END=300000")
	// Trailing filler [30,40) and gap filler [10,20).
	assert.Contains(t, meta, "START=100000")
	assert.Contains(t, meta, "START=300000\nEND=400000")
}
