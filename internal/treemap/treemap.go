package treemap

import "math"

type layouter struct {
	algorithm Algorithm
}

// New creates a Layouter for the named algorithm. An empty name selects squarify.
func New(algorithm Algorithm) (Layouter, error) {
	switch algorithm {
	case "", AlgorithmSquarify:
		return &layouter{algorithm: AlgorithmSquarify}, nil
	case AlgorithmSlice:
		return &layouter{algorithm: AlgorithmSlice}, nil
	default:
		return nil, ErrUnknownAlgorithm
	}
}

// Squarify lays weights out inside bounds using the squarified algorithm.
func Squarify(weights Weights, bounds Rect) ([]Rect, error) {
	return (&layouter{algorithm: AlgorithmSquarify}).Layout(weights, bounds)
}

func (l *layouter) Layout(weights Weights, bounds Rect) ([]Rect, error) {
	if weights == nil {
		return nil, ErrInvalidInput
	}
	n := weights.Len()
	if n < 0 {
		return nil, ErrInvalidInput
	}

	rects := make([]Rect, n)
	if l.algorithm == AlgorithmSlice {
		if n > 0 {
			sliceLayout(weights, rects, 0, n-1, bounds)
		}
		return rects, nil
	}
	squarifyLayout(weights, rects, 0, n-1, bounds)
	return rects, nil
}

// rangeSum sums weights[start..end], both ends inclusive.
func rangeSum(weights Weights, start, end int) float64 {
	var sum float64
	for i := start; i <= end; i++ {
		sum += weights.At(i)
	}
	return sum
}

// share returns the fraction of total held by weights[i]. A zero total
// spreads the n items of the range evenly.
func share(weights Weights, i int, total float64, n int) float64 {
	if total == 0 {
		return 1 / float64(n)
	}
	return weights.At(i) / total
}

// normAspect returns the aspect ratio (>= 1) of the band's leading item when
// the band covers factor of the range and the item covers accum of it.
// Degenerate inputs report +Inf so comparisons stay well defined.
func normAspect(big, small, accum, factor float64) float64 {
	if big <= 0 || small <= 0 || accum <= 0 || factor <= 0 {
		return math.Inf(1)
	}
	x := (big * factor) / (small * accum / factor)
	if x < 1 {
		return 1 / x
	}
	return x
}

// sliceLayout lays out[start..end] end to end along the shorter side of r.
func sliceLayout(weights Weights, out []Rect, start, end int, r Rect) {
	total := rangeSum(weights, start, end)
	n := end - start + 1

	var accum float64
	for i := start; i <= end; i++ {
		f := share(weights, i, total, n)
		if r.W <= r.H {
			out[i] = Rect{X: r.X, Y: r.Y + r.H*accum, W: r.W, H: r.H * f}
		} else {
			out[i] = Rect{X: r.X + r.W*accum, Y: r.Y, W: r.W * f, H: r.H}
		}
		accum += f
	}
}

// squarifyLayout greedily peels a band off r for the leading items of the
// range, slices the band, and continues with the rest of the range in the
// remaining rectangle. The loop replaces tail recursion, so stack use stays
// constant however many items there are.
func squarifyLayout(weights Weights, out []Rect, start, end int, r Rect) {
	for start <= end {
		if end-start < 2 {
			sliceLayout(weights, out, start, end, r)
			return
		}

		total := rangeSum(weights, start, end)
		if total == 0 {
			sliceLayout(weights, out, start, end, r)
			return
		}

		big, small := r.W, r.H
		if r.W < r.H {
			big, small = r.H, r.W
		}

		mid := start
		accum := weights.At(start) / total
		factor := accum

		// A zero leading item gets a zero-depth band of its own.
		if accum > 0 {
			for mid < end {
				q := weights.At(mid+1) / total
				if normAspect(big, small, accum, factor+q) > normAspect(big, small, accum, factor) {
					break
				}
				mid++
				factor += q
			}
		}

		rest := 1 - factor
		if rest < 0 {
			rest = 0
		}

		var band Rect
		if r.W < r.H {
			band = Rect{X: r.X, Y: r.Y, W: r.W, H: r.H * factor}
			r = Rect{X: r.X, Y: r.Y + band.H, W: r.W, H: r.H * rest}
		} else {
			band = Rect{X: r.X, Y: r.Y, W: r.W * factor, H: r.H}
			r = Rect{X: r.X + band.W, Y: r.Y, W: r.W * rest, H: r.H}
		}

		sliceLayout(weights, out, start, mid, band)
		start = mid + 1
	}
}
