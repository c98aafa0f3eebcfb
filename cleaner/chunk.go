package cleaner

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/RyanBlaney/linefilter/dss"
	"github.com/RyanBlaney/linefilter/logging"
)

// chunkRange is a half-open sample-index range [Start, End)
type chunkRange struct {
	Start int
	End   int
}

func (cr chunkRange) len() int {
	return cr.End - cr.Start
}

// buildChunks partitions [0, nSamples) into contiguous chunks of chunkLength
// seconds. The chunk count is max(floor(totalSeconds/chunkLength), 1) and the
// last chunk absorbs the remainder, so it is never shorter than the others.
// chunkLength of 0 yields a single chunk spanning the whole recording.
func buildChunks(nSamples int, sampleRate, chunkLength float64) []chunkRange {
	nChunks := 1
	if chunkLength > 0 {
		totalSeconds := float64(nSamples) / sampleRate
		if n := int(math.Floor(totalSeconds / chunkLength)); n > 1 {
			nChunks = n
		}
	}

	base := nSamples / nChunks
	chunks := make([]chunkRange, nChunks)
	for i := 0; i < nChunks; i++ {
		chunks[i] = chunkRange{Start: i * base, End: (i + 1) * base}
	}
	chunks[nChunks-1].End = nSamples

	return chunks
}

// processChunks runs one cleaning pass over all chunks at the given frequency.
// Chunks share no mutable state, so they are fanned out to a worker pool;
// results land in chunk-indexed slots so completion order does not matter.
func (c *Cleaner) processChunks(data [][]float64, chunks []chunkRange, freq float64, state *CleaningState, sampleRate float64) ([]ChunkResult, error) {
	results := make([]ChunkResult, len(chunks))
	errs := make([]error, len(chunks))

	numWorkers := min(runtime.NumCPU(), len(chunks))

	jobs := make(chan int, len(chunks))

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx], errs[idx] = c.processChunk(data[chunks[idx].Start:chunks[idx].End], freq, state, sampleRate)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for idx := range chunks {
			jobs <- idx
		}
	}()

	wg.Wait()

	for idx, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", idx, err)
		}
	}

	return results, nil
}

// processChunk refines the target frequency for one chunk and invokes the
// removal primitive
func (c *Cleaner) processChunk(chunk [][]float64, freq float64, state *CleaningState, sampleRate float64) (ChunkResult, error) {
	target := freq
	found := true
	adaptive := c.cfg.AdaptiveNRemove

	if c.cfg.SearchIndividualNoise {
		peak, ok, err := c.detectFinePeak(chunk, freq, sampleRate)
		if err != nil {
			return ChunkResult{}, err
		}
		found = ok
		if ok {
			target = peak
		} else {
			// A missed detection must not let adaptive logic over- or
			// under-remove; fall back to the fixed floor only.
			adaptive = false
		}
	}

	clean, nRemoved, scores, err := c.remover.Remove(chunk, target/sampleRate, state.FixedNRemove, dss.RemoveOpts{
		Adaptive: adaptive,
		Sigma:    state.Sigma,
		NKeep:    c.cfg.NKeep,
	})
	if err != nil {
		return ChunkResult{}, fmt.Errorf("removal at %g Hz: %w", target, err)
	}

	c.logger.Debug("Chunk cleaned", logging.Fields{
		"target_freq": target,
		"found_noise": found,
		"n_removed":   nRemoved,
		"sigma":       state.Sigma,
	})

	return ChunkResult{
		Clean:      clean,
		NRemoved:   nRemoved,
		Scores:     scores,
		NoisePeak:  target,
		FoundNoise: found,
	}, nil
}

// assembleClean stitches per-chunk cleaned data back into a full recording
func assembleClean(chunks []chunkRange, results []ChunkResult, nSamples, nChannels int) [][]float64 {
	out := make([][]float64, nSamples)
	for i, cr := range chunks {
		for s := cr.Start; s < cr.End; s++ {
			row := make([]float64, nChannels)
			copy(row, results[i].Clean[s-cr.Start])
			out[s] = row
		}
	}
	return out
}

// padScores pads per-chunk score vectors with NaN markers to a common width.
// NaN slots are excluded from aggregate statistics downstream.
func padScores(results []ChunkResult) [][]float64 {
	width := 0
	for _, r := range results {
		if len(r.Scores) > width {
			width = len(r.Scores)
		}
	}

	padded := make([][]float64, len(results))
	for i, r := range results {
		row := make([]float64, width)
		copy(row, r.Scores)
		for j := len(r.Scores); j < width; j++ {
			row[j] = math.NaN()
		}
		padded[i] = row
	}
	return padded
}
