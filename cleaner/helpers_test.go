package cleaner

import (
	"math"
	"math/rand"
	"sync"

	"github.com/mjibson/go-dsp/fft"

	"github.com/RyanBlaney/linefilter/dss"
)

// mockCall records one invocation of the mock removal primitive
type mockCall struct {
	NormFreq  float64
	MinRemove int
	Opts      dss.RemoveOpts
}

// mockRemover is an identity Remover: it records every call and returns the
// chunk unchanged, so the control loop can be exercised without any
// decomposition math
type mockRemover struct {
	mu    sync.Mutex
	calls []mockCall
}

func (m *mockRemover) Remove(chunk [][]float64, normFreq float64, minRemove int, opts dss.RemoveOpts) ([][]float64, int, []float64, error) {
	m.mu.Lock()
	m.calls = append(m.calls, mockCall{NormFreq: normFreq, MinRemove: minRemove, Opts: opts})
	m.mu.Unlock()

	clean := make([][]float64, len(chunk))
	for i, row := range chunk {
		clean[i] = append([]float64(nil), row...)
	}
	return clean, minRemove, []float64{1, 0.5}, nil
}

func (m *mockRemover) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockRemover) minRemoveSequence() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	seq := make([]int, len(m.calls))
	for i, c := range m.calls {
		seq[i] = c.MinRemove
	}
	return seq
}

// bandStopRemover records every call like mockRemover, but hollows out a
// frequency band on its first notchCalls invocations and acts as an identity
// afterwards. notchCalls < 0 notches on every call. Over-removal around the
// target is what this simulates, so the loop's too-strong reaction can be
// observed directly.
type bandStopRemover struct {
	mu         sync.Mutex
	calls      []mockCall
	loFreq     float64
	hiFreq     float64
	sampleRate float64
	notchCalls int
}

func (m *bandStopRemover) Remove(chunk [][]float64, normFreq float64, minRemove int, opts dss.RemoveOpts) ([][]float64, int, []float64, error) {
	m.mu.Lock()
	call := len(m.calls)
	m.calls = append(m.calls, mockCall{NormFreq: normFreq, MinRemove: minRemove, Opts: opts})
	m.mu.Unlock()

	if m.notchCalls >= 0 && call >= m.notchCalls {
		return cloneMatrix(chunk), minRemove, []float64{1, 0.5}, nil
	}
	return bandStop(chunk, m.loFreq, m.hiFreq, m.sampleRate), minRemove, []float64{1, 0.5}, nil
}

func (m *bandStopRemover) sigmaSequence() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	seq := make([]float64, len(m.calls))
	for i, c := range m.calls {
		seq[i] = c.Opts.Sigma
	}
	return seq
}

func (m *bandStopRemover) minRemoveSequence() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	seq := make([]int, len(m.calls))
	for i, c := range m.calls {
		seq[i] = c.MinRemove
	}
	return seq
}

// bandStop zeroes all spectral content of chunk between loFreq and hiFreq
func bandStop(chunk [][]float64, loFreq, hiFreq, sampleRate float64) [][]float64 {
	n := len(chunk)
	nChannels := len(chunk[0])
	resolution := sampleRate / float64(n)

	out := make([][]float64, n)
	for t := range out {
		out[t] = make([]float64, nChannels)
	}

	sig := make([]float64, n)
	for ch := 0; ch < nChannels; ch++ {
		for t := range chunk {
			sig[t] = chunk[t][ch]
		}
		bins := fft.FFTReal(sig)
		for k := 1; k < n/2; k++ {
			f := float64(k) * resolution
			if f >= loFreq && f <= hiFreq {
				bins[k] = 0
				bins[n-k] = 0
			}
		}
		back := fft.IFFT(bins)
		for t := range back {
			out[t][ch] = real(back[t])
		}
	}
	return out
}

// testRecording builds samples x channels data with an optional sine at freq
// plus white noise
func testRecording(nSamples, nChannels int, freq, sampleRate, amplitude, noiseStd float64, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	data := make([][]float64, nSamples)
	for t := 0; t < nSamples; t++ {
		row := make([]float64, nChannels)
		s := amplitude * math.Sin(2*math.Pi*freq*float64(t)/sampleRate)
		for ch := 0; ch < nChannels; ch++ {
			row[ch] = s + noiseStd*rng.NormFloat64()
		}
		data[t] = row
	}
	return data
}
