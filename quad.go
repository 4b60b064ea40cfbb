package chesscam

import (
	"image"
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// Errors produced while turning raw corner points into a usable board quad.
var (
	ErrInsufficientGeometry = errors.New("fewer than 4 usable corner points")
	ErrOrderingFailed       = errors.New("could not order corner points into a quad")
	ErrDegenerateQuad       = errors.New("degenerate quad")
	ErrImplausibleAspect    = errors.New("implausible quad aspect ratio")
)

// Corner points closer than this are treated as the same point.
const duplicateTolerance = 1e-6

// Quad is the board outline in image pixels, ordered
// top-left, top-right, bottom-right, bottom-left.
type Quad [4]r2.Point

func (q Quad) Centroid() r2.Point {
	c := r2.Point{}
	for _, p := range q {
		c = c.Add(p)
	}
	return c.Mul(1.0 / 4.0)
}

// Area is the polygon area from the shoelace formula.
func (q Quad) Area() float64 {
	return math.Abs(shoelaceSum(q)) / 2
}

// AspectRatio is average width over average height, taken from edge lengths.
func (q Quad) AspectRatio() float64 {
	w := (q[1].Sub(q[0]).Norm() + q[2].Sub(q[3]).Norm()) / 2
	h := (q[3].Sub(q[0]).Norm() + q[2].Sub(q[1]).Norm()) / 2
	if h == 0 {
		return math.Inf(1)
	}
	return w / h
}

// Bounds is the quad's enclosing pixel rectangle.
func (q Quad) Bounds() image.Rectangle {
	minX, minY := q[0].X, q[0].Y
	maxX, maxY := q[0].X, q[0].Y
	for _, p := range q[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return image.Rect(int(minX), int(minY), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}

// ResolveQuad orders 4 raw corner points into a consistent cyclic quad and
// checks it is plausible as a board outline. force skips the area and aspect
// checks but never the ordering.
func ResolveQuad(points []r2.Point, minArea, aspectLow, aspectHigh float64, force bool) (Quad, error) {
	var q Quad

	unique := dedupePoints(points)
	if len(unique) < 4 {
		return q, errors.Wrapf(ErrInsufficientGeometry, "%d unique points from %d given", len(unique), len(points))
	}

	hull := convexHullPoints(unique)
	if len(hull) == 4 {
		copy(q[:], hull)
		q = orderCyclic(q)
	} else {
		copy(q[:], halfSplitCorners(unique))
		q = orderCyclic(q)
		if !isConvexQuad(q) {
			return q, errors.Wrapf(ErrOrderingFailed, "hull has %d vertices and half-split gave a non-convex quad", len(hull))
		}
	}

	if !force {
		if area := q.Area(); area < minArea {
			return q, errors.Wrapf(ErrDegenerateQuad, "area %.1f below minimum %.1f", area, minArea)
		}
		if ar := q.AspectRatio(); ar < aspectLow || ar > aspectHigh {
			return q, errors.Wrapf(ErrImplausibleAspect, "aspect %.2f outside [%.2f, %.2f]", ar, aspectLow, aspectHigh)
		}
	}

	return q, nil
}

func dedupePoints(points []r2.Point) []r2.Point {
	out := make([]r2.Point, 0, len(points))
	for _, p := range points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			continue
		}
		dup := false
		for _, seen := range out {
			if p.Sub(seen).Norm() <= duplicateTolerance {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}

// orderCyclic sorts the vertices by angle about their centroid, rotates the
// cycle so the minimum x+y vertex (top-left by convention) leads, and flips
// the winding if the signed area says the cycle is mirrored.
func orderCyclic(q Quad) Quad {
	c := q.Centroid()

	verts := q[:]
	sort.Slice(verts, func(i, j int) bool {
		ai := math.Atan2(verts[i].Y-c.Y, verts[i].X-c.X)
		aj := math.Atan2(verts[j].Y-c.Y, verts[j].X-c.X)
		return ai < aj
	})

	start := 0
	for i := 1; i < 4; i++ {
		if verts[i].X+verts[i].Y < verts[start].X+verts[start].Y {
			start = i
		}
	}

	var out Quad
	for i := 0; i < 4; i++ {
		out[i] = verts[(start+i)%4]
	}

	if shoelaceSum(out) < 0 {
		out[1], out[3] = out[3], out[1]
	}
	return out
}

func shoelaceSum(q Quad) float64 {
	sum := 0.0
	for i := 0; i < 4; i++ {
		j := (i + 1) % 4
		sum += q[i].X*q[j].Y - q[j].X*q[i].Y
	}
	return sum
}

// halfSplitCorners is the fallback ordering when the hull collapses: split the
// points into an upper and a lower pair by y, then read each pair left to right.
func halfSplitCorners(points []r2.Point) []r2.Point {
	sorted := make([]r2.Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Y < sorted[j].Y })

	top := []r2.Point{sorted[0], sorted[1]}
	bottom := []r2.Point{sorted[len(sorted)-2], sorted[len(sorted)-1]}
	if top[0].X > top[1].X {
		top[0], top[1] = top[1], top[0]
	}
	if bottom[0].X > bottom[1].X {
		bottom[0], bottom[1] = bottom[1], bottom[0]
	}

	return []r2.Point{top[0], top[1], bottom[1], bottom[0]}
}

func isConvexQuad(q Quad) bool {
	sign := 0
	for i := 0; i < 4; i++ {
		a, b, c := q[i], q[(i+1)%4], q[(i+2)%4]
		cross := (b.X-a.X)*(c.Y-b.Y) - (b.Y-a.Y)*(c.X-b.X)
		if cross == 0 {
			return false
		}
		s := 1
		if cross < 0 {
			s = -1
		}
		if sign == 0 {
			sign = s
		} else if s != sign {
			return false
		}
	}
	return true
}

func convexHullPoints(points []r2.Point) []r2.Point {
	if len(points) < 3 {
		return points
	}

	sorted := make([]r2.Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	cross := func(o, a, b r2.Point) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	var lower []r2.Point
	for _, p := range sorted {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}

	var upper []r2.Point
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}
