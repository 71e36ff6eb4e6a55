package recording

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	fftSize     = 256
	minDecibels = -100.0
	maxDecibels = -30.0
	smoothing   = 0.8
)

// levelMeter turns a time-domain snapshot into a 0..1 loudness value by
// averaging byte-scaled frequency magnitudes, like an audio analyser node.
type levelMeter struct {
	fft      *fourier.FFT
	window   []float64
	input    []float64
	coeffs   []complex128
	smoothed []float64
}

func newLevelMeter() *levelMeter {
	window := make([]float64, fftSize)
	for i := range window {
		// Blackman
		x := 2 * math.Pi * float64(i) / float64(fftSize)
		window[i] = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
	}
	return &levelMeter{
		fft:      fourier.NewFFT(fftSize),
		window:   window,
		input:    make([]float64, fftSize),
		smoothed: make([]float64, fftSize/2),
	}
}

// level is only called from the level goroutine.
func (m *levelMeter) level(snapshot []int16) float64 {
	if len(snapshot) == 0 {
		return 0
	}

	// Right-align the newest samples, zero-pad the rest.
	offset := fftSize - len(snapshot)
	for i := range m.input {
		j := i - offset
		if j < 0 || j >= len(snapshot) {
			m.input[i] = 0
			continue
		}
		m.input[i] = float64(snapshot[j]) / 32768 * m.window[i]
	}

	m.coeffs = m.fft.Coefficients(m.coeffs, m.input)

	var sum float64
	for k := range m.smoothed {
		magnitude := math.Hypot(real(m.coeffs[k]), imag(m.coeffs[k])) / fftSize
		m.smoothed[k] = smoothing*m.smoothed[k] + (1-smoothing)*magnitude
		sum += byteScale(m.smoothed[k])
	}

	avg := sum / float64(len(m.smoothed))
	return math.Min(avg/128, 1)
}

func (m *levelMeter) reset() {
	for i := range m.smoothed {
		m.smoothed[i] = 0
	}
}

// byteScale maps a linear magnitude onto 0..255 across the decibel range.
func byteScale(magnitude float64) float64 {
	if magnitude <= 0 {
		return 0
	}
	db := 20 * math.Log10(magnitude)
	scaled := 255 * (db - minDecibels) / (maxDecibels - minDecibels)
	return math.Max(0, math.Min(255, math.Floor(scaled)))
}
