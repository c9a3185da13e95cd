package export

// Plan is the chunk layout for a number of leaves.
type Plan struct {
	// Total is the number of leaves to place.
	Total int
	// Capacity is the most leaves a chunk may hold: the limit minus the
	// reserved slot, never below 1.
	Capacity int
	// Chunks is ceil(Total/Capacity).
	Chunks int
	// PerChunk is ceil(Total/Chunks), the slice width used to cut chunks.
	PerChunk int
}

// PlanChunks computes the layout for total leaves with at most maxEntries
// entries per chunk. A total of zero yields a plan with no chunks.
func PlanChunks(total, maxEntries int) (Plan, error) {
	if maxEntries < 1 {
		return Plan{}, ErrInvalidChunkSize
	}
	p := Plan{Total: total, Capacity: max(1, maxEntries-1)}
	if total <= 0 {
		p.Total = 0
		return p, nil
	}
	p.Chunks = ceilDiv(total, p.Capacity)
	p.PerChunk = ceilDiv(total, p.Chunks)
	return p, nil
}

// Bounds returns the half-open leaf range [start, end) of chunk i.
func (p Plan) Bounds(i int) (start, end int) {
	start = min(i*p.PerChunk, p.Total)
	end = min(start+p.PerChunk, p.Total)
	return start, end
}

// Sizes lists the number of leaves in every chunk.
func (p Plan) Sizes() []int {
	out := make([]int, p.Chunks)
	for i := range out {
		s, e := p.Bounds(i)
		out[i] = e - s
	}
	return out
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
