package cleaner

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildChunksPartitionsExactly(t *testing.T) {
	tests := []struct {
		name        string
		nSamples    int
		sampleRate  float64
		chunkLength float64
		wantChunks  int
	}{
		{"two equal chunks", 75000, 250, 150, 2},
		{"zero length means one chunk", 1000, 100, 0, 1},
		{"recording shorter than chunk", 500, 100, 60, 1},
		{"even split", 999, 10, 10, 9},
		{"remainder absorbed by last", 1003, 10, 10, 9},
		{"single sample", 1, 100, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := buildChunks(tt.nSamples, tt.sampleRate, tt.chunkLength)
			require.Len(t, chunks, tt.wantChunks)

			// Exact partition of [0, nSamples): no gaps, no overlaps
			assert.Equal(t, 0, chunks[0].Start)
			assert.Equal(t, tt.nSamples, chunks[len(chunks)-1].End)
			for i := 1; i < len(chunks); i++ {
				assert.Equal(t, chunks[i-1].End, chunks[i].Start)
			}

			// Last chunk is never shorter than the others
			last := chunks[len(chunks)-1].len()
			for _, cr := range chunks {
				assert.GreaterOrEqual(t, last, cr.len())
				assert.Positive(t, cr.len())
			}
		})
	}
}

func TestPadScoresMarksMissingWithNaN(t *testing.T) {
	results := []ChunkResult{
		{Scores: []float64{0.9, 0.3, 0.1}},
		{Scores: []float64{0.8}},
		{Scores: nil},
	}

	padded := padScores(results)
	require.Len(t, padded, 3)
	for _, row := range padded {
		assert.Len(t, row, 3)
	}

	assert.Equal(t, []float64{0.9, 0.3, 0.1}, padded[0])
	assert.Equal(t, 0.8, padded[1][0])
	assert.True(t, math.IsNaN(padded[1][1]))
	assert.True(t, math.IsNaN(padded[1][2]))
	for _, v := range padded[2] {
		assert.True(t, math.IsNaN(v))
	}
}
