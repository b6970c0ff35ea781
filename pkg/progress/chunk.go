package progress

// ChunkSize is the compile-time chunk size for range downloads (2 MiB).
const ChunkSize uint64 = 2 * 1024 * 1024

// PlanChunks computes the chunk plan for a stream of length contentLength:
// ceil(L/ChunkSize) contiguous, non-overlapping chunks whose union is
// exactly [0, contentLength-1].
func PlanChunks(contentLength uint64) []MediaChunk {
	if contentLength == 0 {
		return nil
	}
	count := (contentLength + ChunkSize - 1) / ChunkSize
	chunks := make([]MediaChunk, 0, count)
	for i := uint64(0); i < count; i++ {
		start := i * ChunkSize
		end := start + ChunkSize - 1
		if end > contentLength-1 {
			end = contentLength - 1
		}
		chunks = append(chunks, MediaChunk{Start: start, End: end})
	}
	return chunks
}

// AllComplete reports whether every chunk in the plan is marked complete.
func AllComplete(chunks []MediaChunk) bool {
	for _, c := range chunks {
		if !c.Completed {
			return false
		}
	}
	return len(chunks) > 0
}
