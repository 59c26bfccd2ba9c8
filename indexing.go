package ndmesh

import (
	"strconv"
	"strings"
)

// A mapping of items along one dimension from a chunk to the whole array.
type chunkDimProjection struct {
	// Index of chunk.
	DimChunkIX int
	// Selection of items from chunk array.
	DimChunkSel Range
	// Selection of items in target (output) array.
	DimOutSel Range
}

// dimProjections cuts a dimension of length shape into chunks of length
// chunk. The last chunk may be partially covered by the array.
func dimProjections(shape, chunk int) []chunkDimProjection {
	n := ceilDiv(shape, chunk)
	out := make([]chunkDimProjection, n)
	for ix := 0; ix < n; ix++ {
		start := ix * chunk
		stop := start + chunk
		if stop > shape {
			stop = shape
		}
		out[ix] = chunkDimProjection{
			DimChunkIX:  ix,
			DimChunkSel: Span(0, stop-start),
			DimOutSel:   Span(start, stop),
		}
	}
	return out
}

// A mapping of items from chunk to output array. Can be used to extract items
// from the chunk array for loading into an output array. Can also be used to
// extract items from a value array for setting/updating in a chunk array.
type chunkProjection struct {
	// Indices of chunk
	ChunkCoords []int
	// Selection of items from chunk array.
	ChunkSelection []Range
	// Selection of items in target (output) array.
	OutSelection []Range
}

// chunkProjections lists every chunk of an array with the given shape and
// chunk shape, last dimension varying fastest.
func chunkProjections(shape, chunks []int) []chunkProjection {
	dims := make([][]chunkDimProjection, len(shape))
	total := 1
	for d := range shape {
		dims[d] = dimProjections(shape[d], chunks[d])
		total *= len(dims[d])
	}

	grid := make([]int, len(shape))
	for d := range dims {
		grid[d] = len(dims[d])
	}
	gs := NewSpace(grid...)

	out := make([]chunkProjection, total)
	for i := range out {
		ix := gs.Delinearize(i)
		p := chunkProjection{
			ChunkCoords:    ix,
			ChunkSelection: make([]Range, len(ix)),
			OutSelection:   make([]Range, len(ix)),
		}
		for d, c := range ix {
			p.ChunkSelection[d] = dims[d][c].DimChunkSel
			p.OutSelection[d] = dims[d][c].DimOutSel
		}
		out[i] = p
	}
	return out
}

// chunkKey joins chunk coordinates with sep, "." when sep is empty.
func chunkKey(coords []int, sep string) string {
	if sep == "" {
		sep = "."
	}
	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, sep)
}
