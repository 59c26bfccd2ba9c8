package ndmesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDimProjections(t *testing.T) {
	got := dimProjections(10, 4)
	require.Len(t, got, 3)
	assert.Equal(t, chunkDimProjection{DimChunkIX: 0, DimChunkSel: Span(0, 4), DimOutSel: Span(0, 4)}, got[0])
	assert.Equal(t, chunkDimProjection{DimChunkIX: 2, DimChunkSel: Span(0, 2), DimOutSel: Span(8, 10)}, got[2])
}

func TestChunkProjections(t *testing.T) {
	projs := chunkProjections([]int{5, 3}, []int{2, 2})
	require.Len(t, projs, 6)

	coords := make([][]int, len(projs))
	for i, p := range projs {
		coords[i] = p.ChunkCoords
	}
	assert.Equal(t, [][]int{{0, 0}, {0, 1}, {1, 0}, {1, 1}, {2, 0}, {2, 1}}, coords)

	last := projs[5]
	assert.Equal(t, []Range{Span(0, 1), Span(0, 1)}, last.ChunkSelection)
	assert.Equal(t, []Range{Span(4, 5), Span(2, 3)}, last.OutSelection)
}

func TestChunkKey(t *testing.T) {
	assert.Equal(t, "1.0.2", chunkKey([]int{1, 0, 2}, ""))
	assert.Equal(t, "1/0/2", chunkKey([]int{1, 0, 2}, "/"))
	assert.Equal(t, "7", chunkKey([]int{7}, "."))
}
