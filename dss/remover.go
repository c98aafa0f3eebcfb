package dss

// RemoveOpts configures a single removal invocation
type RemoveOpts struct {
	// Adaptive enables data-driven selection of how many components to
	// remove on top of the fixed floor
	Adaptive bool

	// Sigma is the outlier-detection strictness for adaptive selection
	Sigma float64

	// NKeep caps the dimensionality entering the decomposition
	// (0 = use all channels)
	NKeep int
}

// Remover removes a narrow-band noise subspace from a chunk of multichannel
// data. Implementations must be side-effect free: the control loop substitutes
// mocks for them when testing convergence behavior in isolation.
//
// chunk is samples x channels, normFreq is the target frequency divided by the
// sample rate, and minRemove is the minimum number of components to discard.
// Remove returns the cleaned chunk, the number of components removed, and one
// artifact score per analyzed component.
type Remover interface {
	Remove(chunk [][]float64, normFreq float64, minRemove int, opts RemoveOpts) (clean [][]float64, nRemoved int, scores []float64, err error)
}
