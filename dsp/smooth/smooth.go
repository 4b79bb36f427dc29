// Package smooth provides zero-phase smoothing of sampled series.
//
// Smoothing is a centred convolution with a normalised kernel. The series is
// extended at both ends by repeating its edge samples, so the output has the
// input's length and a constant input is returned unchanged.
//
// Short kernels are convolved directly; longer kernels use an FFT.
package smooth

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// Errors returned by smoothing functions.
var (
	ErrEmptyInput   = errors.New("smooth: empty input")
	ErrInvalidWidth = errors.New("smooth: kernel width must be >= 1")
	ErrEmptyKernel  = errors.New("smooth: empty kernel")
	ErrEvenKernel   = errors.New("smooth: kernel length must be odd")
)

// directThreshold is the kernel length above which the FFT path is used.
const directThreshold = 32

// Kind selects a kernel shape.
type Kind int

const (
	// Boxcar weights all samples in the window equally.
	Boxcar Kind = iota
	// Hann weights samples with a raised cosine.
	Hann
)

// Kernel returns a normalised, symmetric kernel of the given kind. Even
// widths are rounded up to the next odd width so the kernel has a centre tap.
func Kernel(kind Kind, width int) ([]float64, error) {
	if width < 1 {
		return nil, ErrInvalidWidth
	}
	if width%2 == 0 {
		width++
	}

	k := make([]float64, width)

	switch kind {
	case Hann:
		// Periodic over width+1 points so the end taps are non-zero.
		for i := range k {
			k[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i+1)/float64(width+1)))
		}
	default:
		for i := range k {
			k[i] = 1
		}
	}

	var sum float64
	for _, v := range k {
		sum += v
	}
	for i := range k {
		k[i] /= sum
	}

	return k, nil
}

// MovingAverage smooths x with a boxcar of the given width.
func MovingAverage(x []float64, width int) ([]float64, error) {
	k, err := Kernel(Boxcar, width)
	if err != nil {
		return nil, err
	}

	return Apply(x, k)
}

// Apply convolves x with an odd-length kernel centred on each sample.
func Apply(x, kernel []float64) ([]float64, error) {
	if len(x) == 0 {
		return nil, ErrEmptyInput
	}
	if len(kernel) == 0 {
		return nil, ErrEmptyKernel
	}
	if len(kernel)%2 == 0 {
		return nil, ErrEvenKernel
	}

	padded := extend(x, len(kernel)/2)

	if len(kernel) <= directThreshold {
		return direct(padded, kernel, len(x)), nil
	}

	return fftConvolve(padded, kernel, len(x))
}

// extend repeats the first and last samples half times on each side.
func extend(x []float64, half int) []float64 {
	out := make([]float64, len(x)+2*half)
	for i := 0; i < half; i++ {
		out[i] = x[0]
		out[len(out)-1-i] = x[len(x)-1]
	}
	copy(out[half:], x)
	return out
}

// direct returns the n fully overlapping outputs of padded * kernel.
func direct(padded, kernel []float64, n int) []float64 {
	m := len(kernel)
	out := make([]float64, n)
	for i := range out {
		var acc float64
		for j := 0; j < m; j++ {
			acc += padded[i+m-1-j] * kernel[j]
		}
		out[i] = acc
	}
	return out
}

func fftConvolve(padded, kernel []float64, n int) ([]float64, error) {
	m := len(kernel)
	fftSize := nextPowerOf2(len(padded) + m - 1)

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("smooth: failed to create FFT plan: %w", err)
	}

	sig := make([]complex128, fftSize)
	for i, v := range padded {
		sig[i] = complex(v, 0)
	}

	ker := make([]complex128, fftSize)
	for i, v := range kernel {
		ker[i] = complex(v, 0)
	}

	sigFreq := make([]complex128, fftSize)
	if err := plan.Forward(sigFreq, sig); err != nil {
		return nil, fmt.Errorf("smooth: forward FFT failed: %w", err)
	}

	kerFreq := make([]complex128, fftSize)
	if err := plan.Forward(kerFreq, ker); err != nil {
		return nil, fmt.Errorf("smooth: forward FFT failed: %w", err)
	}

	for i := range sigFreq {
		sigFreq[i] *= kerFreq[i]
	}

	if err := plan.Inverse(sig, sigFreq); err != nil {
		return nil, fmt.Errorf("smooth: inverse FFT failed: %w", err)
	}

	out := make([]float64, n)
	for i := range out {
		out[i] = real(sig[i+m-1])
	}

	return out, nil
}

// nextPowerOf2 returns the next power of 2 >= n.
func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
