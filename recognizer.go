package chesscam

import (
	"context"
	"fmt"
	"image"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/mitchellh/mapstructure"

	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	generic "go.viam.com/rdk/services/generic"
	"go.viam.com/rdk/services/vision"
	"go.viam.com/rdk/vision/objectdetection"
	"go.viam.com/rdk/vision/viscapture"

	"github.com/corentings/chess/v2"
)

var RecognizerModel = family.WithModel("recognizer")

func init() {
	resource.RegisterService(
		generic.API,
		RecognizerModel,
		resource.Registration[resource.Resource, *RecognizerConfig]{
			Constructor: newRecognizer,
		})
}

type RecognizerConfig struct {
	PieceFinder  string `json:"piece-finder"`
	CornerFinder string `json:"corner-finder"`
	Camera       string

	CanvasSize float64 `json:"canvas-size"`
	MinArea    float64 `json:"min-area"`
	AspectLow  float64 `json:"aspect-low"`
	AspectHigh float64 `json:"aspect-high"`
	Margin     float64
	Force      bool
}

func (cfg *RecognizerConfig) Validate(path string) ([]string, []string, error) {
	if cfg.PieceFinder == "" {
		return nil, nil, fmt.Errorf("need a piece-finder")
	}

	deps := []string{cfg.PieceFinder}
	if cfg.CornerFinder != "" {
		deps = append(deps, cfg.CornerFinder)
	}

	return deps, nil, nil
}

func (cfg *RecognizerConfig) pipelineConfig() RecognizeConfig {
	return RecognizeConfig{
		Side:       cfg.CanvasSize,
		MinArea:    cfg.MinArea,
		AspectLow:  cfg.AspectLow,
		AspectHigh: cfg.AspectHigh,
		Margin:     cfg.Margin,
		Force:      cfg.Force,
	}
}

func newRecognizer(ctx context.Context, deps resource.Dependencies, rawConf resource.Config, logger logging.Logger) (resource.Resource, error) {
	conf, err := resource.NativeConfig[*RecognizerConfig](rawConf)
	if err != nil {
		return nil, err
	}

	return NewRecognizer(ctx, deps, rawConf.ResourceName(), conf, logger)
}

func NewRecognizer(ctx context.Context, deps resource.Dependencies, name resource.Name, conf *RecognizerConfig, logger logging.Logger) (resource.Resource, error) {
	var err error

	cancelCtx, cancelFunc := context.WithCancel(context.Background())

	r := &recognizer{
		name:       name,
		logger:     logger,
		conf:       conf,
		cancelCtx:  cancelCtx,
		cancelFunc: cancelFunc,
	}

	r.pieceFinder, err = vision.FromProvider(deps, conf.PieceFinder)
	if err != nil {
		return nil, err
	}

	if conf.CornerFinder != "" {
		r.cornerFinder, err = vision.FromProvider(deps, conf.CornerFinder)
		if err != nil {
			return nil, err
		}
	}

	return r, nil
}

type recognizer struct {
	resource.AlwaysRebuild

	name resource.Name

	logger logging.Logger
	conf   *RecognizerConfig

	cancelCtx  context.Context
	cancelFunc func()

	pieceFinder  vision.Service
	cornerFinder vision.Service
}

func (r *recognizer) Name() resource.Name {
	return r.name
}

type RecognizeCmd struct {
	Camera string
	Force  bool
}

type DiffCmd struct {
	Before string
	After  string
}

type recognizerCmd struct {
	Recognize *RecognizeCmd
	Diff      *DiffCmd
}

func (r *recognizer) DoCommand(ctx context.Context, cmdMap map[string]interface{}) (map[string]interface{}, error) {
	var cmd recognizerCmd
	err := mapstructure.Decode(cmdMap, &cmd)
	if err != nil {
		return nil, err
	}

	if cmd.Recognize != nil {
		cameraName := cmd.Recognize.Camera
		if cameraName == "" {
			cameraName = r.conf.Camera
		}

		rec, err := r.FindPosition(ctx, cameraName, cmd.Recognize.Force || r.conf.Force)
		if err != nil {
			return nil, err
		}
		return recognitionResult(rec), nil
	}

	if cmd.Diff != nil {
		return diffResult(cmd.Diff.Before, cmd.Diff.After)
	}

	return nil, fmt.Errorf("bad cmd %v", cmdMap)
}

// FindPosition grabs a frame and piece detections from the piece finder,
// locates the board corners, and runs the geometry pipeline over them.
func (r *recognizer) FindPosition(ctx context.Context, cameraName string, force bool) (*Recognition, error) {
	all, err := r.pieceFinder.CaptureAllFromCamera(ctx, cameraName, viscapture.CaptureOptions{
		ReturnImage:      true,
		ReturnDetections: true,
	}, nil)
	if err != nil {
		return nil, err
	}
	if all.Image == nil {
		return nil, fmt.Errorf("piece finder (%s) returned no image", r.conf.PieceFinder)
	}

	corners, err := r.findCorners(ctx, cameraName, all.Image)
	if err != nil {
		return nil, err
	}

	cfg := r.conf.pipelineConfig()
	cfg.Force = force

	rec, err := Recognize(all.Image, corners, all.Detections, cfg)
	if err != nil {
		return nil, err
	}

	if rec.PieceCount == 0 {
		r.logger.Warnf("recognized empty board: %v", ErrNoDetections)
	}

	return rec, nil
}

// findCorners asks the corner detector when one is configured, otherwise
// falls back to the built-in segmentation finder.
func (r *recognizer) findCorners(ctx context.Context, cameraName string, img image.Image) ([]r2.Point, error) {
	if r.cornerFinder == nil {
		pts, err := FindBoard(img)
		if err != nil {
			return nil, err
		}
		return toR2Points(pts), nil
	}

	capture, err := r.cornerFinder.CaptureAllFromCamera(ctx, cameraName, viscapture.CaptureOptions{
		ReturnDetections: true,
	}, nil)
	if err != nil {
		return nil, err
	}

	return keypointCenters(capture.Detections), nil
}

// keypointCenters takes the four most confident detections and reduces each
// to its box center.
func keypointCenters(dets []objectdetection.Detection) []r2.Point {
	sorted := make([]objectdetection.Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score() > sorted[j].Score()
	})

	if len(sorted) > 4 {
		sorted = sorted[:4]
	}

	out := make([]r2.Point, len(sorted))
	for i, d := range sorted {
		box := d.BoundingBox()
		out[i] = r2.Point{
			X: float64(box.Min.X+box.Max.X) / 2,
			Y: float64(box.Min.Y+box.Max.Y) / 2,
		}
	}
	return out
}

func toR2Points(pts []image.Point) []r2.Point {
	out := make([]r2.Point, len(pts))
	for i, p := range pts {
		out[i] = r2.Point{X: float64(p.X), Y: float64(p.Y)}
	}
	return out
}

// recognitionResult flattens a Recognition for DoCommand callers.
func recognitionResult(rec *Recognition) map[string]interface{} {
	board := map[string]interface{}{}
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			a := rec.Board[row][col]
			if a.Label == "" {
				continue
			}
			sq := chess.NewSquare(chess.File(col), chess.Rank(7-row))
			board[sq.String()] = a.Label
		}
	}

	corners := make([]interface{}, 4)
	for i, p := range rec.Quad {
		corners[i] = []interface{}{p.X, p.Y}
	}

	out := map[string]interface{}{
		"fen":            rec.Position,
		"board":          board,
		"piece-count":    rec.PieceCount,
		"corners":        corners,
		"quarter-turned": rec.QuarterTurned,
		"rotated":        rec.Rotated,
	}
	if rec.PieceCount == 0 {
		out["warning"] = ErrNoDetections.Error()
	}

	return out
}

func diffResult(beforeFEN, afterFEN string) (map[string]interface{}, error) {
	before, err := ParsePosition(beforeFEN)
	if err != nil {
		return nil, err
	}
	after, err := ParsePosition(afterFEN)
	if err != nil {
		return nil, err
	}

	changes := DiffBoards(before.Board(), after.Board())

	changed := make([]interface{}, 0, len(changes))
	for _, ch := range changes {
		changed = append(changed, ch.Square.String())
	}

	out := map[string]interface{}{"changed": changed}
	if from, to, ok := InferMove(changes); ok {
		out["move"] = from.String() + to.String()
	}

	return out, nil
}

func (r *recognizer) Close(ctx context.Context) error {
	r.cancelFunc()
	return nil
}
