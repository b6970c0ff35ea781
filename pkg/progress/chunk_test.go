package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanChunksExactMultiple(t *testing.T) {
	chunks := PlanChunks(4 * ChunkSize)
	require.Len(t, chunks, 4)
	for i, c := range chunks {
		assert.Equal(t, uint64(i)*ChunkSize, c.Start)
		assert.Equal(t, uint64(i+1)*ChunkSize-1, c.End)
	}
	assert.Equal(t, 4*ChunkSize-1, chunks[len(chunks)-1].End)
}

func TestPlanChunksPartialLast(t *testing.T) {
	length := 3*ChunkSize + 17
	chunks := PlanChunks(length)
	require.Len(t, chunks, 4)
	last := chunks[len(chunks)-1]
	assert.Equal(t, 3*ChunkSize, last.Start)
	assert.Equal(t, length-1, last.End)

	// contiguous, non-overlapping, union covers [0, length-1]
	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, chunks[i-1].End+1, chunks[i].Start)
	}
}

func TestPlanChunksZeroLength(t *testing.T) {
	assert.Nil(t, PlanChunks(0))
}

func TestAllComplete(t *testing.T) {
	chunks := PlanChunks(10)
	assert.False(t, AllComplete(chunks))
	for i := range chunks {
		chunks[i].Completed = true
	}
	assert.True(t, AllComplete(chunks))
	assert.False(t, AllComplete(nil))
}
