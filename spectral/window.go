package spectral

import "math"

// hannWindow generates symmetric Hann window coefficients
func hannWindow(size int) []float64 {
	coeffs := make([]float64, size)
	if size == 1 {
		coeffs[0] = 1.0
		return coeffs
	}

	denominator := float64(size - 1)
	for i := 0; i < size; i++ {
		coeffs[i] = 0.5 * (1.0 - math.Cos(2*math.Pi*float64(i)/denominator))
	}
	return coeffs
}

// windowPowerSum returns the sum of squared window coefficients, used to
// normalize Welch periodograms
func windowPowerSum(window []float64) float64 {
	sum := 0.0
	for _, w := range window {
		sum += w * w
	}
	return sum
}
