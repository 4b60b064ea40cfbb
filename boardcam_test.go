package chesscam

import (
	"image/color"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestBoardCameraConfigValidate(t *testing.T) {
	cfg := BoardCameraConfig{}
	_, _, err := cfg.Validate("")
	test.That(t, err, test.ShouldNotBeNil)

	cfg = BoardCameraConfig{Input: "cam"}
	deps, _, err := cfg.Validate("")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, deps, test.ShouldResemble, []string{"cam"})

	cfg = BoardCameraConfig{Input: "cam", CornerFinder: "corners"}
	deps, _, err = cfg.Validate("")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, deps, test.ShouldResemble, []string{"cam", "corners"})
}

func TestBoardCameraConfigDefaults(t *testing.T) {
	cfg := BoardCameraConfig{Input: "cam"}
	test.That(t, cfg.side(), test.ShouldEqual, 800)
	test.That(t, cfg.drawGrid(), test.ShouldBeTrue)

	yes, no := true, false
	cfg = BoardCameraConfig{Input: "cam", CanvasSize: 400, Grid: &yes}
	test.That(t, cfg.side(), test.ShouldEqual, 400)
	test.That(t, cfg.drawGrid(), test.ShouldBeTrue)

	cfg = BoardCameraConfig{Input: "cam", Grid: &no}
	test.That(t, cfg.drawGrid(), test.ShouldBeFalse)

	rc := (&BoardCameraConfig{Input: "cam", CanvasSize: 400, Margin: 5}).rectifyConfig()
	test.That(t, rc.Side, test.ShouldEqual, 400.0)
	test.That(t, rc.Margin, test.ShouldEqual, 5.0)
}

func TestRectifyBoard(t *testing.T) {
	src := drawCheckerboard(160, false)
	quad := fullImageQuad(160)

	dst, resolved, turned, err := RectifyBoard(src, quad[:], RecognizeConfig{Side: 160}, false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, turned, test.ShouldBeFalse)
	test.That(t, dst.Bounds().Dx(), test.ShouldEqual, 160)
	test.That(t, dst.Bounds().Dy(), test.ShouldEqual, 160)
	test.That(t, resolved[0], test.ShouldResemble, r2.Point{X: 0, Y: 0})

	// the warp of an already square-on board keeps the top-left square light
	tl := dst.RGBAAt(5, 5)
	test.That(t, int(tl.R), test.ShouldBeGreaterThan, 200)
	test.That(t, int(tl.G), test.ShouldBeGreaterThan, 200)
}

func TestRectifyBoardTakesQuarterTurn(t *testing.T) {
	src := drawCheckerboard(160, true)
	quad := fullImageQuad(160)

	dst, _, turned, err := RectifyBoard(src, quad[:], RecognizeConfig{Side: 160}, false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, turned, test.ShouldBeTrue)
	test.That(t, dst, test.ShouldNotBeNil)
}

func TestRectifyBoardBadQuad(t *testing.T) {
	src := drawCheckerboard(160, false)
	flat := []r2.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 200, Y: 0}, {X: 300, Y: 0}}

	_, _, _, err := RectifyBoard(src, flat, RecognizeConfig{Side: 160}, false)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestOverlayGrid(t *testing.T) {
	dst := drawCheckerboard(160, false)
	overlayGrid(dst)

	black := color.RGBA{0, 0, 0, 255}

	// cell border lines run every 20 pixels
	test.That(t, dst.RGBAAt(0, 50), test.ShouldResemble, black)
	test.That(t, dst.RGBAAt(140, 50), test.ShouldResemble, black)
	test.That(t, dst.RGBAAt(57, 20), test.ShouldResemble, black)

	// off the lines and left of the square name, the board shows through
	test.That(t, dst.RGBAAt(2, 5), test.ShouldResemble, color.RGBA{220, 220, 220, 255})
}
