package partition

import "hash/fnv"

// DefaultCount is the slice count used when a partitioned projection does not set one.
// Changing a projection's slice count reshuffles streams between slices and
// requires a rebuild of that projection.
const DefaultCount = 4

// For returns the slice a stream id belongs to, in [0, count).
// Stable and deterministic: same streamID always maps to the same slice.
// Uses FNV-32a (stdlib, fast, well-distributed).
func For(streamID string, count int) int {
	if count <= 1 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(streamID))
	return int(h.Sum32() % uint32(count))
}
