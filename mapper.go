package chesscam

import (
	"image"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/rdk/vision/objectdetection"
)

// ErrNoDetections signals that no piece detection landed on any square. The
// empty board still encodes, so surfaces decide whether this is a failure.
var ErrNoDetections = errors.New("no piece detections mapped onto the board")

// PieceAssignment is one square's resolved piece. An empty Label means an
// empty square; Confidence is the best score among everything mapped there.
type PieceAssignment struct {
	Label      string
	Confidence float64
}

// BoardMatrix is the resolved 8x8 grid. Row 0 is the topmost canonical rank
// before orientation normalization, column 0 the leftmost file.
type BoardMatrix [8][8]PieceAssignment

func (b BoardMatrix) PieceCount() int {
	n := 0
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			if b[row][col].Label != "" {
				n++
			}
		}
	}
	return n
}

// anchorPoint is where a piece touches its square: the horizontal middle of
// the box, three quarters of the way down. Pieces lean with the perspective,
// so the box center sits too high while the base stays over the square.
func anchorPoint(box *image.Rectangle) r2.Point {
	return r2.Point{
		X: float64(box.Min.X+box.Max.X) / 2,
		Y: float64(box.Max.Y) - float64(box.Dy())/4,
	}
}

// MapDetections projects each detection's anchor through the homography and
// assigns it to one of the 64 squares. Projections off the canvas and labels
// outside the piece vocabulary are dropped silently; when two detections land
// on one square the higher confidence wins and ties keep the earlier one.
func MapDetections(dets []objectdetection.Detection, h *Homography, side float64) BoardMatrix {
	var board BoardMatrix
	cell := side / 8

	for _, d := range dets {
		label := d.Label()
		if _, ok := pieceLetters[label]; !ok {
			continue
		}

		p := h.Apply(anchorPoint(d.BoundingBox()))
		if p.X < 0 || p.X > side || p.Y < 0 || p.Y > side {
			continue
		}

		row := clampCell(int(p.Y / cell))
		col := clampCell(int(p.X / cell))

		cur := board[row][col]
		if cur.Label == "" || d.Score() > cur.Confidence {
			board[row][col] = PieceAssignment{Label: label, Confidence: d.Score()}
		}
	}

	return board
}

// clampCell absorbs boundary rounding: a projection exactly on the canvas
// edge belongs to the edge square.
func clampCell(v int) int {
	if v < 0 {
		return 0
	}
	if v > 7 {
		return 7
	}
	return v
}
