package dss

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/RyanBlaney/linefilter/logging"
)

// DSSRemover is the default Remover implementation. It performs a denoising
// source separation pass: the chunk is whitened, rotated toward a sinusoidal
// reference at the target frequency, and the most noise-biased spatial
// components are projected out.
type DSSRemover struct {
	logger logging.Logger
}

// NewDSSRemover creates the default noise-removal primitive
func NewDSSRemover() *DSSRemover {
	return &DSSRemover{
		logger: logging.WithFields(logging.Fields{
			"component": "dss_remover",
		}),
	}
}

// singularTol is the relative cutoff below which singular values are treated
// as rank deficiency
const singularTol = 1e-9

// Remove implements the Remover interface
func (d *DSSRemover) Remove(chunk [][]float64, normFreq float64, minRemove int, opts RemoveOpts) ([][]float64, int, []float64, error) {
	if len(chunk) == 0 || len(chunk[0]) == 0 {
		return nil, 0, nil, fmt.Errorf("empty chunk")
	}
	if normFreq <= 0 || normFreq >= 0.5 {
		return nil, 0, nil, fmt.Errorf("normalized frequency %g outside (0, 0.5)", normFreq)
	}
	if minRemove < 0 {
		minRemove = 0
	}

	nSamples := len(chunk)
	nChannels := len(chunk[0])

	x := mat.NewDense(nSamples, nChannels, nil)
	for i, row := range chunk {
		if len(row) != nChannels {
			return nil, 0, nil, fmt.Errorf("ragged chunk: row %d has %d channels, want %d", i, len(row), nChannels)
		}
		x.SetRow(i, row)
	}
	demeanColumns(x)

	// Noise-biased copy: per-channel projection onto sine/cosine regressors
	// at the target frequency
	biased := sinusoidProjection(x, normFreq)

	// Whiten the chunk. Columns of V scaled by 1/s form the whitening map.
	var svdX mat.SVD
	if ok := svdX.Factorize(x, mat.SVDThin); !ok {
		return nil, 0, nil, fmt.Errorf("svd of chunk failed")
	}

	var u, v mat.Dense
	svdX.UTo(&u)
	svdX.VTo(&v)
	sv := svdX.Values(nil)

	rank := effectiveRank(sv)
	if opts.NKeep > 0 && opts.NKeep < rank {
		rank = opts.NKeep
	}
	if rank == 0 {
		return cloneMatrix(chunk), 0, nil, nil
	}

	uR := u.Slice(0, nSamples, 0, rank).(*mat.Dense)
	vR := v.Slice(0, nChannels, 0, rank).(*mat.Dense)
	svR := sv[:rank]

	// Biased data expressed in whitened coordinates
	whitener := mat.NewDense(nChannels, rank, nil)
	for j := 0; j < rank; j++ {
		for i := 0; i < nChannels; i++ {
			whitener.Set(i, j, vR.At(i, j)/svR[j])
		}
	}

	var z mat.Dense
	z.Mul(biased, whitener)

	// Rotation that orders whitened directions by noise bias
	var svdZ mat.SVD
	if ok := svdZ.Factorize(&z, mat.SVDThin); !ok {
		return nil, 0, nil, fmt.Errorf("svd of biased chunk failed")
	}

	var rot mat.Dense
	svdZ.VTo(&rot)
	scores := svdZ.Values(nil)

	nRemove := minRemove
	if opts.Adaptive {
		if n := countOutlierScores(scores, opts.Sigma); n > nRemove {
			nRemove = n
		}
	}
	if nRemove > rank {
		nRemove = rank
	}

	d.logger.Debug("Removal pass", logging.Fields{
		"norm_freq":  normFreq,
		"rank":       rank,
		"n_removed":  nRemove,
		"min_remove": minRemove,
		"adaptive":   opts.Adaptive,
	})

	if nRemove == 0 {
		return cloneMatrix(chunk), 0, scores, nil
	}

	// Noise subspace in the original channel space:
	// X_noise = U_r * R_n * R_n' * diag(s) * V_r'
	rotN := rot.Slice(0, rank, 0, nRemove).(*mat.Dense)

	var proj mat.Dense // rank x rank projector onto the removed directions
	proj.Mul(rotN, rotN.T())

	scaledV := mat.NewDense(rank, nChannels, nil)
	for i := 0; i < rank; i++ {
		for j := 0; j < nChannels; j++ {
			scaledV.Set(i, j, svR[i]*vR.At(j, i))
		}
	}

	var tmp, noise mat.Dense
	tmp.Mul(&proj, scaledV)
	noise.Mul(uR, &tmp)

	clean := make([][]float64, nSamples)
	for i := 0; i < nSamples; i++ {
		clean[i] = make([]float64, nChannels)
		for j := 0; j < nChannels; j++ {
			clean[i][j] = chunk[i][j] - noise.At(i, j)
		}
	}

	return clean, nRemove, scores, nil
}

// demeanColumns removes the per-channel mean in place
func demeanColumns(x *mat.Dense) {
	rows, cols := x.Dims()
	for j := 0; j < cols; j++ {
		col := mat.Col(nil, j, x)
		mean := stat.Mean(col, nil)
		for i := 0; i < rows; i++ {
			x.Set(i, j, x.At(i, j)-mean)
		}
	}
}

// sinusoidProjection projects each channel onto the span of sine and cosine
// regressors at the given normalized frequency
func sinusoidProjection(x *mat.Dense, normFreq float64) *mat.Dense {
	rows, cols := x.Dims()

	sin := make([]float64, rows)
	cos := make([]float64, rows)
	for t := 0; t < rows; t++ {
		phase := 2 * math.Pi * normFreq * float64(t)
		sin[t] = math.Sin(phase)
		cos[t] = math.Cos(phase)
	}

	// Sine and cosine over full cycles are near-orthogonal; project onto
	// each regressor independently
	sinNorm := floats.Dot(sin, sin)
	cosNorm := floats.Dot(cos, cos)

	out := mat.NewDense(rows, cols, nil)
	for j := 0; j < cols; j++ {
		col := mat.Col(nil, j, x)
		a := floats.Dot(col, sin) / sinNorm
		b := floats.Dot(col, cos) / cosNorm
		for t := 0; t < rows; t++ {
			out.Set(t, j, a*sin[t]+b*cos[t])
		}
	}
	return out
}

// effectiveRank counts singular values above the relative tolerance
func effectiveRank(sv []float64) int {
	if len(sv) == 0 {
		return 0
	}
	tol := sv[0] * singularTol
	rank := 0
	for _, s := range sv {
		if s > tol {
			rank++
		}
	}
	return rank
}

// countOutlierScores counts leading components whose score exceeds
// mean + sigma*std of the full score vector. Scores arrive sorted descending,
// so the outliers form a prefix.
func countOutlierScores(scores []float64, sigma float64) int {
	if len(scores) < 2 {
		return 0
	}

	mean := stat.Mean(scores, nil)
	std := math.Sqrt(stat.Variance(scores, nil))
	threshold := mean + sigma*std

	count := 0
	for _, s := range scores {
		if s <= threshold {
			break
		}
		count++
	}
	return count
}

func cloneMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = make([]float64, len(row))
		copy(out[i], row)
	}
	return out
}
