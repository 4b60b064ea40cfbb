package chesscam

import (
	"image"
	"testing"

	"go.viam.com/rdk/vision/objectdetection"
	"go.viam.com/test"
)

type fakeDetection struct {
	boundingBox *image.Rectangle
	score       float64
	label       string
}

func (fd *fakeDetection) BoundingBox() *image.Rectangle {
	return fd.boundingBox
}

func (fd *fakeDetection) Score() float64 {
	return fd.score
}

func (fd *fakeDetection) Label() string {
	return fd.label
}

func det(x0, y0, x1, y1 int, score float64, label string) objectdetection.Detection {
	r := image.Rect(x0, y0, x1, y1)
	return &fakeDetection{boundingBox: &r, score: score, label: label}
}

func identityHomography() *Homography {
	return &Homography{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

func TestAnchorPoint(t *testing.T) {
	box := image.Rect(100, 100, 200, 300)
	p := anchorPoint(&box)

	test.That(t, p.X, test.ShouldEqual, 150.0)
	test.That(t, p.Y, test.ShouldEqual, 250.0)
}

func TestMapDetectionsPlacement(t *testing.T) {
	// anchor (450, 750) on an 800 canvas belongs to row 7, col 4
	board := MapDetections([]objectdetection.Detection{
		det(400, 600, 500, 800, 0.9, "white-king"),
	}, identityHomography(), 800)

	test.That(t, board[7][4].Label, test.ShouldEqual, "white-king")
	test.That(t, board[7][4].Confidence, test.ShouldEqual, 0.9)
	test.That(t, board.PieceCount(), test.ShouldEqual, 1)
}

func TestMapDetectionsConflict(t *testing.T) {
	weak := det(400, 600, 500, 800, 0.4, "white-queen")
	strong := det(410, 610, 490, 790, 0.9, "white-king")

	board := MapDetections([]objectdetection.Detection{weak, strong}, identityHomography(), 800)
	test.That(t, board[7][4].Label, test.ShouldEqual, "white-king")
	test.That(t, board[7][4].Confidence, test.ShouldEqual, 0.9)

	// same result regardless of arrival order
	board = MapDetections([]objectdetection.Detection{strong, weak}, identityHomography(), 800)
	test.That(t, board[7][4].Label, test.ShouldEqual, "white-king")
	test.That(t, board[7][4].Confidence, test.ShouldEqual, 0.9)
}

func TestMapDetectionsTieKeepsFirst(t *testing.T) {
	first := det(400, 600, 500, 800, 0.5, "white-rook")
	second := det(410, 610, 490, 790, 0.5, "white-bishop")

	board := MapDetections([]objectdetection.Detection{first, second}, identityHomography(), 800)
	test.That(t, board[7][4].Label, test.ShouldEqual, "white-rook")
}

func TestMapDetectionsBoundary(t *testing.T) {
	// anchor exactly on the far canvas edge still lands on the last square
	onEdge := det(750, 700, 850, 800, 0.8, "black-pawn")
	p := anchorPoint(onEdge.BoundingBox())
	test.That(t, p.X, test.ShouldEqual, 800.0)

	board := MapDetections([]objectdetection.Detection{onEdge}, identityHomography(), 800)
	test.That(t, board[7][7].Label, test.ShouldEqual, "black-pawn")
}

func TestMapDetectionsOffCanvas(t *testing.T) {
	outside := []objectdetection.Detection{
		det(830, 100, 930, 200, 0.9, "white-pawn"),
		det(-220, 100, -120, 200, 0.9, "white-pawn"),
		det(100, 900, 200, 1100, 0.9, "white-pawn"),
	}

	board := MapDetections(outside, identityHomography(), 800)
	test.That(t, board.PieceCount(), test.ShouldEqual, 0)
}

func TestMapDetectionsVocabulary(t *testing.T) {
	board := MapDetections([]objectdetection.Detection{
		det(400, 600, 500, 800, 0.99, "coffee-mug"),
		det(100, 100, 200, 300, 0.99, ""),
	}, identityHomography(), 800)

	test.That(t, board.PieceCount(), test.ShouldEqual, 0)
}

func TestMapDetectionsAllSquares(t *testing.T) {
	// one pawn per square, every anchor dead center
	var dets []objectdetection.Detection
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			cx := col*100 + 50
			cy := row*100 + 50
			// the anchor sits a quarter of the box height above the bottom edge
			dets = append(dets, det(cx-20, cy-30, cx+20, cy+10, 0.7, "white-pawn"))
		}
	}

	board := MapDetections(dets, identityHomography(), 800)
	test.That(t, board.PieceCount(), test.ShouldEqual, 64)
}
