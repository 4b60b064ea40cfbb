package chesscam

import (
	"image"
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// FindBoard locates the four outer corners of a chessboard in a photograph
// without any learned detector: segment pixels that plausibly belong to board
// squares, keep the largest connected region, take the extreme points of its
// boundary hull as corner candidates, and sharpen them with Hough line
// intersections. Corners come back in rough TL,TR,BR,BL order; ResolveQuad
// stays the single ordering authority downstream.
func FindBoard(img image.Image) ([]image.Point, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 32 || h < 32 {
		return nil, errors.Errorf("image %dx%d too small to hold a board", w, h)
	}

	gray := grayLevels(img)

	region := boardMask(img)
	boundary := region.boundary()
	if len(boundary) < 100 {
		return nil, errors.New("no board-sized region found")
	}

	corners := extremeCorners(boundary)
	corners = refineWithLines(gray, corners, w, h)
	return corners, nil
}

// boardMask keeps pixels that plausibly belong to board squares: bright
// low-saturation light squares, or mid-tone dark squares. Morphological
// cleanup plus a largest-component pass rejects stray background matches.
func boardMask(img image.Image) *mask {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	m := newMask(w, h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			r8, g8, b8 := int(r>>8), int(g>>8), int(b>>8)

			brightness := (r8 + g8 + b8) / 3
			maxC := max(r8, max(g8, b8))
			minC := min(r8, min(g8, b8))
			saturation := 0
			if maxC > 0 {
				saturation = 100 * (maxC - minC) / maxC
			}

			light := brightness > 160 && saturation < 35
			dark := brightness > 50 && brightness < 170 && maxC > 60

			m.on[y][x] = light || dark
		}
	}

	return m.erode(2).dilate(2).largestRegion()
}

type mask struct {
	w, h int
	on   [][]bool
}

func newMask(w, h int) *mask {
	on := make([][]bool, h)
	for y := range on {
		on[y] = make([]bool, w)
	}
	return &mask{w: w, h: h, on: on}
}

func (m *mask) erode(radius int) *mask {
	out := newMask(m.w, m.h)
	for y := radius; y < m.h-radius; y++ {
		for x := radius; x < m.w-radius; x++ {
			all := true
			for dy := -radius; dy <= radius && all; dy++ {
				for dx := -radius; dx <= radius && all; dx++ {
					if !m.on[y+dy][x+dx] {
						all = false
					}
				}
			}
			out.on[y][x] = all
		}
	}
	return out
}

func (m *mask) dilate(radius int) *mask {
	out := newMask(m.w, m.h)
	for y := radius; y < m.h-radius; y++ {
		for x := radius; x < m.w-radius; x++ {
			any := false
			for dy := -radius; dy <= radius && !any; dy++ {
				for dx := -radius; dx <= radius && !any; dx++ {
					if m.on[y+dy][x+dx] {
						any = true
					}
				}
			}
			out.on[y][x] = any
		}
	}
	return out
}

// largestRegion keeps only the biggest 4-connected component.
func (m *mask) largestRegion() *mask {
	labels := make([][]int, m.h)
	for y := range labels {
		labels[y] = make([]int, m.w)
	}

	sizes := map[int]int{}
	next := 0
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			if m.on[y][x] && labels[y][x] == 0 {
				next++
				sizes[next] = m.fill(labels, x, y, next)
			}
		}
	}

	best, bestSize := 0, 0
	for label, size := range sizes {
		if size > bestSize {
			best, bestSize = label, size
		}
	}
	if best == 0 {
		return newMask(m.w, m.h)
	}

	out := newMask(m.w, m.h)
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			out.on[y][x] = labels[y][x] == best
		}
	}
	return out
}

func (m *mask) fill(labels [][]int, startX, startY, label int) int {
	stack := []image.Point{{startX, startY}}
	size := 0

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= m.w || p.Y < 0 || p.Y >= m.h {
			continue
		}
		if !m.on[p.Y][p.X] || labels[p.Y][p.X] != 0 {
			continue
		}

		labels[p.Y][p.X] = label
		size++

		stack = append(stack,
			image.Point{p.X + 1, p.Y},
			image.Point{p.X - 1, p.Y},
			image.Point{p.X, p.Y + 1},
			image.Point{p.X, p.Y - 1})
	}

	return size
}

// boundary lists the set pixels with at least one unset 4-neighbor.
func (m *mask) boundary() []image.Point {
	var out []image.Point
	for y := 1; y < m.h-1; y++ {
		for x := 1; x < m.w-1; x++ {
			if !m.on[y][x] {
				continue
			}
			if !m.on[y-1][x] || !m.on[y+1][x] || !m.on[y][x-1] || !m.on[y][x+1] {
				out = append(out, image.Point{x, y})
			}
		}
	}
	return out
}

// extremeCorners scores each hull point against the centroid in the four
// diagonal directions and keeps the winner of each.
func extremeCorners(points []image.Point) []image.Point {
	hullPts := make([]r2.Point, len(points))
	for i, p := range points {
		hullPts[i] = r2.Point{X: float64(p.X), Y: float64(p.Y)}
	}
	hull := convexHullPoints(hullPts)
	if len(hull) < 4 {
		hull = hullPts
	}

	var cx, cy float64
	for _, p := range hull {
		cx += p.X
		cy += p.Y
	}
	cx /= float64(len(hull))
	cy /= float64(len(hull))

	var tl, tr, br, bl r2.Point
	var maxTL, maxTR, maxBR, maxBL float64

	for _, p := range hull {
		dx := p.X - cx
		dy := p.Y - cy

		if score := -dx - dy; score > maxTL {
			maxTL = score
			tl = p
		}
		if score := dx - dy; score > maxTR {
			maxTR = score
			tr = p
		}
		if score := dx + dy; score > maxBR {
			maxBR = score
			br = p
		}
		if score := -dx + dy; score > maxBL {
			maxBL = score
			bl = p
		}
	}

	out := make([]image.Point, 4)
	for i, p := range []r2.Point{tl, tr, br, bl} {
		out[i] = image.Point{X: int(math.Round(p.X)), Y: int(math.Round(p.Y))}
	}
	return out
}

func grayLevels(img image.Image) [][]int {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	gray := make([][]int, h)
	for y := 0; y < h; y++ {
		gray[y] = make([]int, w)
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			gray[y][x] = (int(r>>8) + int(g>>8) + int(b>>8)) / 3
		}
	}
	return gray
}

// houghLine is rho = x*cos(theta) + y*sin(theta).
type houghLine struct {
	rho   float64
	theta float64
	votes int
}

func sobelEdges(gray [][]int, w, h int) [][]int {
	edges := make([][]int, h)
	for y := range edges {
		edges[y] = make([]int, w)
	}

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -gray[y-1][x-1] + gray[y-1][x+1] +
				-2*gray[y][x-1] + 2*gray[y][x+1] +
				-gray[y+1][x-1] + gray[y+1][x+1]

			gy := -gray[y-1][x-1] - 2*gray[y-1][x] - gray[y-1][x+1] +
				gray[y+1][x-1] + 2*gray[y+1][x] + gray[y+1][x+1]

			mag := int(math.Sqrt(float64(gx*gx + gy*gy)))
			if mag > 255 {
				mag = 255
			}
			edges[y][x] = mag
		}
	}

	return edges
}

func houghLines(edges [][]int, w, h, edgeThreshold int) []houghLine {
	maxRho := int(math.Sqrt(float64(w*w + h*h)))
	const numThetas = 180

	acc := make([][]int, 2*maxRho+1)
	for i := range acc {
		acc[i] = make([]int, numThetas)
	}

	cosT := make([]float64, numThetas)
	sinT := make([]float64, numThetas)
	for t := 0; t < numThetas; t++ {
		theta := float64(t) * math.Pi / numThetas
		cosT[t] = math.Cos(theta)
		sinT[t] = math.Sin(theta)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if edges[y][x] < edgeThreshold {
				continue
			}
			for t := 0; t < numThetas; t++ {
				rhoIdx := int(float64(x)*cosT[t]+float64(y)*sinT[t]) + maxRho
				if rhoIdx >= 0 && rhoIdx < len(acc) {
					acc[rhoIdx][t]++
				}
			}
		}
	}

	// Peaks with a local-maximum check over a 5x5 neighborhood.
	var lines []houghLine
	const voteThreshold = 100
	for rhoIdx := range acc {
		for t := 0; t < numThetas; t++ {
			votes := acc[rhoIdx][t]
			if votes < voteThreshold {
				continue
			}

			isMax := true
			for dr := -2; dr <= 2 && isMax; dr++ {
				for dt := -2; dt <= 2 && isMax; dt++ {
					if dr == 0 && dt == 0 {
						continue
					}
					nRho := rhoIdx + dr
					nT := (t + dt + numThetas) % numThetas
					if nRho >= 0 && nRho < len(acc) && acc[nRho][nT] > votes {
						isMax = false
					}
				}
			}

			if isMax {
				lines = append(lines, houghLine{
					rho:   float64(rhoIdx - maxRho),
					theta: float64(t) * math.Pi / numThetas,
					votes: votes,
				})
			}
		}
	}

	sort.Slice(lines, func(i, j int) bool {
		return lines[i].votes > lines[j].votes
	})

	return lines
}

func intersectLines(l1, l2 houghLine) (image.Point, bool) {
	c1, s1 := math.Cos(l1.theta), math.Sin(l1.theta)
	c2, s2 := math.Cos(l2.theta), math.Sin(l2.theta)

	det := c1*s2 - c2*s1
	if math.Abs(det) < 1e-10 {
		return image.Point{}, false
	}

	x := (s2*l1.rho - s1*l2.rho) / det
	y := (c1*l2.rho - c2*l1.rho) / det
	return image.Point{X: int(math.Round(x)), Y: int(math.Round(y))}, true
}

func distanceToLine(l houghLine, pt image.Point) float64 {
	return math.Abs(float64(pt.X)*math.Cos(l.theta) + float64(pt.Y)*math.Sin(l.theta) - l.rho)
}

// pickLineNear chooses the line passing closest to the given corners,
// preferring the outermost candidate when several run close together, so
// interior square edges lose to the board border.
func pickLineNear(lines []houghLine, corners []image.Point) houghLine {
	var cx, cy float64
	for _, c := range corners {
		cx += float64(c.X)
		cy += float64(c.Y)
	}
	cx /= float64(len(corners))
	cy /= float64(len(corners))

	best := lines[0]
	bestScore := math.MaxFloat64

	for _, l := range lines {
		avgDist := 0.0
		for _, c := range corners {
			avgDist += distanceToLine(l, c)
		}
		avgDist /= float64(len(corners))

		var score float64
		if avgDist < 15 {
			distFromCenter := math.Abs(cx*math.Cos(l.theta) + cy*math.Sin(l.theta) - l.rho)
			score = avgDist - distFromCenter/50.0
		} else {
			score = avgDist - float64(l.votes)/100.0
		}

		if score < bestScore {
			bestScore = score
			best = l
		}
	}

	return best
}

// refineWithLines replaces corner estimates with intersections of the board's
// border lines when Hough finds them.
func refineWithLines(gray [][]int, corners []image.Point, w, h int) []image.Point {
	edges := sobelEdges(gray, w, h)
	lines := houghLines(edges, w, h, 50)
	if len(lines) < 4 {
		return corners
	}

	var horizontal, vertical []houghLine
	for _, l := range lines {
		if l.theta > math.Pi/4 && l.theta < 3*math.Pi/4 {
			horizontal = append(horizontal, l)
		} else {
			vertical = append(vertical, l)
		}
	}
	if len(horizontal) < 2 || len(vertical) < 2 {
		return corners
	}

	top := pickLineNear(horizontal, []image.Point{corners[0], corners[1]})
	bottom := pickLineNear(horizontal, []image.Point{corners[2], corners[3]})
	left := pickLineNear(vertical, []image.Point{corners[0], corners[3]})
	right := pickLineNear(vertical, []image.Point{corners[1], corners[2]})

	refined := make([]image.Point, 4)
	crossings := []struct{ a, b houghLine }{
		{top, left}, {top, right}, {bottom, right}, {bottom, left},
	}
	for i, c := range crossings {
		if pt, ok := intersectLines(c.a, c.b); ok && nearImage(pt, w, h) {
			refined[i] = pt
		} else {
			refined[i] = corners[i]
		}
	}
	return refined
}

// nearImage tolerates intersections slightly outside the frame, which happens
// when a border line clips a corner the photo cuts off.
func nearImage(pt image.Point, w, h int) bool {
	const margin = 50
	return pt.X >= -margin && pt.X < w+margin &&
		pt.Y >= -margin && pt.Y < h+margin
}
