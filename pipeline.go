package chesscam

import (
	"image"

	"github.com/golang/geo/r2"

	"go.viam.com/rdk/vision/objectdetection"
)

// Pipeline defaults. The canvas side matches the 800-unit board the rest of
// the tooling expects; the quad gates assume detector coordinates in the
// scale of a resized working image.
const (
	DefaultCanvasSide  = 800.0
	DefaultMinQuadArea = 800.0
	DefaultAspectLow   = 0.2
	DefaultAspectHigh  = 5.0
)

// RecognizeConfig tunes one pipeline run. Zero values take the defaults.
type RecognizeConfig struct {
	Side       float64
	MinArea    float64
	AspectLow  float64
	AspectHigh float64
	Margin     float64
	Force      bool
}

func (c RecognizeConfig) withDefaults() RecognizeConfig {
	if c.Side <= 0 {
		c.Side = DefaultCanvasSide
	}
	if c.MinArea <= 0 {
		c.MinArea = DefaultMinQuadArea
	}
	if c.AspectLow <= 0 {
		c.AspectLow = DefaultAspectLow
	}
	if c.AspectHigh <= 0 {
		c.AspectHigh = DefaultAspectHigh
	}
	return c
}

// Recognition is everything one pipeline run produced. All fields are owned
// by the caller; nothing is shared across requests.
type Recognition struct {
	Quad          Quad
	H             *Homography
	Hinv          *Homography
	Board         BoardMatrix
	Position      string
	PieceCount    int
	QuarterTurned bool
	Rotated       bool
}

// Recognize turns one photograph's raw corners and piece detections into a
// position string: quad ordering and validation, homography estimation with
// square-color orientation disambiguation, detection-to-square mapping,
// white-side normalization, and FEN encoding.
//
// Geometry failures abort the run with one of the sentinel errors; zero
// mapped detections does not, the all-empty board encodes as "8/8/8/8/8/8/8/8".
func Recognize(img image.Image, corners []r2.Point, dets []objectdetection.Detection, cfg RecognizeConfig) (*Recognition, error) {
	cfg = cfg.withDefaults()

	quad, err := ResolveQuad(corners, cfg.MinArea, cfg.AspectLow, cfg.AspectHigh, cfg.Force)
	if err != nil {
		return nil, err
	}

	h, quarterTurned, err := ResolveOrientation(img, quad, cfg.Side, cfg.Margin)
	if err != nil {
		return nil, err
	}

	hinv, err := h.Inverse()
	if err != nil {
		return nil, err
	}

	raw := MapDetections(dets, h, cfg.Side)
	board, rotated := NormalizeForWhite(raw)

	return &Recognition{
		Quad:          quad,
		H:             h,
		Hinv:          hinv,
		Board:         board,
		Position:      EncodePosition(board),
		PieceCount:    board.PieceCount(),
		QuarterTurned: quarterTurned,
		Rotated:       rotated,
	}, nil
}
