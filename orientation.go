package chesscam

import (
	"image"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ResolveOrientation estimates the board homography and settles which canvas
// corner really is the board's dark a1 corner. The quad's top-left convention
// is only an image-space guess, so the candidate transform is checked against
// the checkerboard itself: if the squares that must be dark are not, the
// destination corners are rolled a quarter turn and that result is accepted.
// Reports whether the quarter turn was applied.
func ResolveOrientation(img image.Image, q Quad, side, margin float64) (*Homography, bool, error) {
	h, err := EstimateHomography(q, side, margin)
	if err != nil {
		return nil, false, err
	}

	ok, err := darkSquaresOnOddParity(img, h, int(side))
	if err != nil {
		return nil, false, err
	}
	if ok {
		return h, false, nil
	}

	rolled, err := estimateToCorners(q, rollCorners(canvasCorners(side, margin)))
	if err != nil {
		return nil, false, err
	}
	return rolled, true, nil
}

// darkSquaresOnOddParity warps the photo onto the canvas and checks that the
// cells dark under the a1-is-dark convention (row+col odd, a1 at row 7 col 0)
// average darker than the rest. Each cell is sampled on an inner crop so
// square borders and spilled pieces bias the means less.
func darkSquaresOnOddParity(img image.Image, h *Homography, side int) (bool, error) {
	warped, err := WarpImage(img, h, side)
	if err != nil {
		return false, err
	}

	cell := side / 8
	pad := cell / 10

	var oddSum, evenSum float64
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			l := meanLightness(warped, col*cell+pad, row*cell+pad, cell-2*pad)
			if (row+col)%2 == 1 {
				oddSum += l
			} else {
				evenSum += l
			}
		}
	}

	return oddSum < evenSum, nil
}

// meanLightness averages perceptual lightness over a size×size patch.
func meanLightness(img image.Image, x0, y0, size int) float64 {
	var sum float64
	var n int

	for y := y0; y < y0+size; y++ {
		for x := x0; x < x0+size; x++ {
			cf, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				continue
			}
			l, _, _ := cf.Lab()
			sum += l
			n++
		}
	}

	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// NormalizeForWhite rotates the board 180 degrees when the white pieces sit
// nearer the top of the matrix than the black pieces, so callers always see
// the position from White's side. Boards missing either color pass through
// unchanged. The input is never mutated. Reports whether rotation happened.
func NormalizeForWhite(b BoardMatrix) (BoardMatrix, bool) {
	var whiteSum, blackSum float64
	var whiteN, blackN int

	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			switch {
			case strings.HasPrefix(b[row][col].Label, "white-"):
				whiteSum += float64(row)
				whiteN++
			case strings.HasPrefix(b[row][col].Label, "black-"):
				blackSum += float64(row)
				blackN++
			}
		}
	}

	if whiteN == 0 || blackN == 0 {
		return b, false
	}
	if whiteSum/float64(whiteN) >= blackSum/float64(blackN) {
		return b, false
	}

	var out BoardMatrix
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			out[row][col] = b[7-row][7-col]
		}
	}
	return out, true
}
