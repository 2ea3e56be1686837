package treemap

import (
	"math"

	"github.com/jbeda/geom"
)

// Summary describes the shape quality of a computed layout.
type Summary struct {
	Count       int     `json:"count" yaml:"count"`
	TotalArea   float64 `json:"totalArea" yaml:"total_area"`
	WorstAspect float64 `json:"worstAspectRatio" yaml:"worst_aspect_ratio"`
	MeanAspect  float64 `json:"meanAspectRatio" yaml:"mean_aspect_ratio"`
	Extent      Rect    `json:"extent" yaml:"extent"`
}

// AspectRatio returns max(W/H, H/W) for r, or 0 when r has no area.
func AspectRatio(r Rect) float64 {
	if r.W <= 0 || r.H <= 0 {
		return 0
	}
	return math.Max(r.W/r.H, r.H/r.W)
}

// Stats summarises rects. Zero-area slots count towards Count but not towards
// the aspect figures. Extent is the bounding box of every slot.
func Stats(rects []Rect) Summary {
	s := Summary{Count: len(rects), Extent: FromGeom(Bounds(rects))}

	var sum float64
	var sized int
	for _, r := range rects {
		s.TotalArea += r.Area()
		aspect := AspectRatio(r)
		if aspect == 0 {
			continue
		}
		sized++
		sum += aspect
		if aspect > s.WorstAspect {
			s.WorstAspect = aspect
		}
	}
	if sized > 0 {
		s.MeanAspect = sum / float64(sized)
	}
	return s
}

// Within reports whether r lies inside outer, allowing a relative tolerance
// of eps on every edge.
func Within(r, outer Rect, eps float64) bool {
	in, out := r.Geom(), outer.Geom()
	scale := 1.0
	for _, v := range []float64{out.Min.X, out.Min.Y, out.Max.X, out.Max.Y} {
		scale = math.Max(scale, math.Abs(v))
	}
	tol := eps * scale
	return in.Min.X >= out.Min.X-tol && in.Min.Y >= out.Min.Y-tol &&
		in.Max.X <= out.Max.X+tol && in.Max.Y <= out.Max.Y+tol
}

// Bounds returns the smallest rectangle containing every slot of rects.
func Bounds(rects []Rect) geom.Rect {
	if len(rects) == 0 {
		return geom.Rect{}
	}

	origin := rects[0].Geom().Min
	bounds := geom.Rect{Min: origin, Max: origin}
	for _, r := range rects {
		bounds.ExpandToContainRect(r.Geom())
	}
	return bounds
}
