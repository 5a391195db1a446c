package textutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "length mismatch", a: []float32{1}, b: []float32{1, 2}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.False(t, math.IsNaN(got))
		})
	}
}

func TestHashString(t *testing.T) {
	assert.Equal(t, HashString("mida"), HashString("mida"))
	assert.NotEqual(t, HashString("mida"), HashString("MIDA"))
	assert.Len(t, HashString(""), 64)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", TruncateRunes("abc", 5))
	assert.Equal(t, "ab", TruncateRunes("abc", 2))
	assert.Equal(t, "马来西", TruncateRunes("马来西亚投资", 3))
	assert.Equal(t, "", TruncateRunes("abc", 0))
}

func TestNormalizeWhitespace(t *testing.T) {
	in := "  MIDA   is\tthe agency.\r\n\r\n\r\n  Second   paragraph.  \n"
	assert.Equal(t, "MIDA is the agency.\n\nSecond paragraph.", NormalizeWhitespace(in))
	assert.Equal(t, "", NormalizeWhitespace(" \n\t "))
}

func TestSplitIntoChunks(t *testing.T) {
	t.Run("short text is one chunk", func(t *testing.T) {
		assert.Equal(t, []string{"hello"}, SplitIntoChunks("hello", 10, 2))
	})

	t.Run("blank text has no chunks", func(t *testing.T) {
		assert.Empty(t, SplitIntoChunks("   ", 10, 2))
	})

	t.Run("overlap", func(t *testing.T) {
		chunks := SplitIntoChunks("abcdefghij", 4, 2)
		assert.Equal(t, []string{"abcd", "cdef", "efgh", "ghij"}, chunks)
	})

	t.Run("overlap clamped", func(t *testing.T) {
		chunks := SplitIntoChunks("abcdef", 3, 5)
		require.NotEmpty(t, chunks)
		assert.Equal(t, []string{"abc", "bcd", "cde", "def"}, chunks)
	})

	t.Run("invalid size", func(t *testing.T) {
		assert.Nil(t, SplitIntoChunks("abc", 0, 0))
	})
}
