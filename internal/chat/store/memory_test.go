package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPassages() []*Passage {
	return []*Passage{
		{ID: "p1", Text: "MIDA stands for Malaysian Investment Development Authority.", Vector: []float32{1, 0, 0}},
		{ID: "p2", Text: "Penang is an electronics hub.", Vector: []float32{0, 1, 0}},
		{ID: "p3", Text: "Tax incentives are available.", Vector: []float32{0.7, 0.7, 0}},
		{ID: "p4", Text: "Duplicate of p1.", Vector: []float32{2, 0, 0}},
	}
}

func TestMemoryIndexSearch(t *testing.T) {
	idx, err := NewMemoryIndex("all-MiniLM-L6-v2", testPassages())
	require.NoError(t, err)

	results, err := idx.Search(context.Background(), []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// p1 and p4 tie at 1.0; insertion order wins.
	assert.Equal(t, "p1", results[0].ID)
	assert.Equal(t, "p4", results[1].ID)
	assert.Equal(t, "p3", results[2].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Nil(t, results[0].Vector)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestMemoryIndexSearchBounds(t *testing.T) {
	idx, err := NewMemoryIndex("m", testPassages())
	require.NoError(t, err)
	ctx := context.Background()

	for _, k := range []int{0, -1} {
		results, err := idx.Search(ctx, []float32{1, 0, 0}, k)
		require.NoError(t, err)
		assert.Empty(t, results)
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 100)
	require.NoError(t, err)
	assert.Len(t, results, 4)
}

func TestMemoryIndexEmpty(t *testing.T) {
	idx, err := NewMemoryIndex("m", nil)
	require.NoError(t, err)

	results, err := idx.Search(context.Background(), []float32{1, 2}, 4)
	require.NoError(t, err)
	assert.Empty(t, results)

	count, err := idx.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemoryIndexDimensionMismatch(t *testing.T) {
	idx, err := NewMemoryIndex("m", testPassages())
	require.NoError(t, err)

	_, err = idx.Search(context.Background(), []float32{1, 0}, 2)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = NewMemoryIndex("m", []*Passage{
		{ID: "a", Vector: []float32{1, 2}},
		{ID: "b", Vector: []float32{1}},
	})
	assert.ErrorIs(t, err, ErrIndexCorrupt)
}
