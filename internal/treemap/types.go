package treemap

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jbeda/geom"
)

// Weights is a read-only view over an ordered sequence of weights.
// Implementations are never copied or retained beyond a single layout call.
type Weights interface {
	Len() int
	At(i int) float64
}

// Float64s adapts a plain slice to the Weights view without copying it.
type Float64s []float64

// Len returns the number of weights.
func (f Float64s) Len() int { return len(f) }

// At returns the weight at position i.
func (f Float64s) At(i int) float64 { return f[i] }

// UnmarshalJSON accepts a flat array of numbers. Null elements, nested arrays
// and non-numeric values fail with ErrInvalidInput. A top-level null leaves f nil.
func (f *Float64s) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = nil
		return nil
	}

	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	out := make(Float64s, len(raw))
	for i, v := range raw {
		if v == nil {
			return fmt.Errorf("%w: weight %d is null", ErrInvalidInput, i)
		}
		out[i] = *v
	}
	*f = out
	return nil
}

// Rect is an axis-aligned box with its origin at (X, Y).
type Rect struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	W float64 `json:"width" yaml:"width"`
	H float64 `json:"height" yaml:"height"`
}

// Area returns W*H.
func (r Rect) Area() float64 {
	return r.W * r.H
}

// Geom converts r to a min/max geom.Rect.
func (r Rect) Geom() geom.Rect {
	return geom.Rect{
		Min: geom.Coord{X: r.X, Y: r.Y},
		Max: geom.Coord{X: r.X + r.W, Y: r.Y + r.H},
	}
}

// FromGeom converts a min/max geom.Rect back to origin and size form.
func FromGeom(g geom.Rect) Rect {
	return Rect{X: g.Min.X, Y: g.Min.Y, W: g.Width(), H: g.Height()}
}

// Algorithm names a layout strategy.
type Algorithm string

const (
	// AlgorithmSquarify groups items into rows and columns that keep aspect ratios near 1.
	AlgorithmSquarify Algorithm = "squarify"
	// AlgorithmSlice lays every item out in a single row or column.
	AlgorithmSlice Algorithm = "slice"
)

// Algorithms lists the supported strategies.
func Algorithms() []Algorithm {
	return []Algorithm{AlgorithmSquarify, AlgorithmSlice}
}

// Layouter describes the behaviour required from a treemap layout engine.
type Layouter interface {
	Layout(weights Weights, bounds Rect) ([]Rect, error)
}
