package chesscam

import (
	"image"
	"image/color"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrSingularTransform means the corner correspondence has no invertible
// projective solution, typically a quad that is degenerate in disguise.
var ErrSingularTransform = errors.New("singular perspective transform")

// Homography is a 3x3 projective transform from image space to the canonical
// board canvas, stored row-major.
type Homography [3][3]float64

func (h *Homography) At(row, col int) float64 {
	return h[row][col]
}

// Apply maps an image point into canvas coordinates with a homogeneous divide.
func (h *Homography) Apply(pt r2.Point) r2.Point {
	x := h[0][0]*pt.X + h[0][1]*pt.Y + h[0][2]
	y := h[1][0]*pt.X + h[1][1]*pt.Y + h[1][2]
	z := h[2][0]*pt.X + h[2][1]*pt.Y + h[2][2]
	return r2.Point{X: x / z, Y: y / z}
}

func (h *Homography) Inverse() (*Homography, error) {
	m := mat.NewDense(3, 3, []float64{
		h[0][0], h[0][1], h[0][2],
		h[1][0], h[1][1], h[1][2],
		h[2][0], h[2][1], h[2][2],
	})

	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return nil, errors.Wrap(ErrSingularTransform, err.Error())
	}

	out := &Homography{}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r][c] = inv.At(r, c)
		}
	}
	return out, nil
}

// canvasCorners are the rectification targets on a side-length canvas,
// inset by margin, in the same TL,TR,BR,BL order as Quad.
func canvasCorners(side, margin float64) Quad {
	lo := margin
	hi := side - 1 - margin
	return Quad{
		{X: lo, Y: lo},
		{X: hi, Y: lo},
		{X: hi, Y: hi},
		{X: lo, Y: hi},
	}
}

// rollCorners shifts the corner cycle by one position, which relabels the
// destination a quarter turn around the board.
func rollCorners(q Quad) Quad {
	return Quad{q[3], q[0], q[1], q[2]}
}

// EstimateHomography solves the projective transform taking the quad's corners
// to the canonical canvas corners.
func EstimateHomography(q Quad, side, margin float64) (*Homography, error) {
	return estimateToCorners(q, canvasCorners(side, margin))
}

// estimateToCorners solves the 8 unknown homography terms from the four
// point correspondences, two equations per corner.
func estimateToCorners(q Quad, dst Quad) (*Homography, error) {
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		sx, sy := q[i].X, q[i].Y
		dx, dy := dst[i].X, dst[i].Y

		a.SetRow(2*i, []float64{sx, sy, 1, 0, 0, 0, -dx * sx, -dx * sy})
		a.SetRow(2*i+1, []float64{0, 0, 0, sx, sy, 1, -dy * sx, -dy * sy})
		b.SetVec(2*i, dx)
		b.SetVec(2*i+1, dy)
	}

	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return nil, errors.Wrap(ErrSingularTransform, err.Error())
	}

	out := &Homography{
		{h.AtVec(0), h.AtVec(1), h.AtVec(2)},
		{h.AtVec(3), h.AtVec(4), h.AtVec(5)},
		{h.AtVec(6), h.AtVec(7), 1},
	}

	// A solvable system can still be numerically non-invertible.
	if _, err := out.Inverse(); err != nil {
		return nil, err
	}
	return out, nil
}

// WarpImage renders the source image onto a side×side canvas by inverse
// mapping every canvas pixel through the homography and sampling bilinearly.
func WarpImage(src image.Image, h *Homography, side int) (*image.RGBA, error) {
	inv, err := h.Inverse()
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, side, side))

	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			sp := inv.Apply(r2.Point{X: float64(x), Y: float64(y)})
			c, ok := bilinearSample(src, bounds, sp)
			if !ok {
				continue
			}
			dst.SetRGBA(x, y, c)
		}
	}
	return dst, nil
}

func bilinearSample(src image.Image, bounds image.Rectangle, p r2.Point) (color.RGBA, bool) {
	x0 := int(math.Floor(p.X))
	y0 := int(math.Floor(p.Y))
	if x0 < bounds.Min.X || y0 < bounds.Min.Y || x0+1 >= bounds.Max.X || y0+1 >= bounds.Max.Y {
		return color.RGBA{}, false
	}

	fx := p.X - float64(x0)
	fy := p.Y - float64(y0)

	var rr, gg, bb float64
	for _, s := range []struct {
		dx, dy int
		w      float64
	}{
		{0, 0, (1 - fx) * (1 - fy)},
		{1, 0, fx * (1 - fy)},
		{0, 1, (1 - fx) * fy},
		{1, 1, fx * fy},
	} {
		cr, cg, cb, _ := src.At(x0+s.dx, y0+s.dy).RGBA()
		rr += s.w * float64(cr>>8)
		gg += s.w * float64(cg>>8)
		bb += s.w * float64(cb>>8)
	}

	return color.RGBA{uint8(rr), uint8(gg), uint8(bb), 255}, true
}
