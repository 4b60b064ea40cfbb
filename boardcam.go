package chesscam

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/golang/geo/r2"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/erh/vmodutils/touch"

	"go.viam.com/rdk/components/camera"
	"go.viam.com/rdk/data"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/pointcloud"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/services/vision"
	"go.viam.com/rdk/spatialmath"
	"go.viam.com/rdk/vision/viscapture"
)

var BoardCameraModel = family.WithModel("board-camera")

func init() {
	resource.RegisterComponent(camera.API, BoardCameraModel,
		resource.Registration[camera.Camera, *BoardCameraConfig]{
			Constructor: newBoardCamera,
		},
	)
}

type BoardCameraConfig struct {
	Input        string
	CornerFinder string `json:"corner-finder"`

	CanvasSize int     `json:"canvas-size"`
	Margin     float64 `json:"margin"`
	Grid       *bool   `json:"grid"`
}

func (cfg *BoardCameraConfig) Validate(path string) ([]string, []string, error) {
	if cfg.Input == "" {
		return nil, nil, fmt.Errorf("need an input")
	}

	deps := []string{cfg.Input}
	if cfg.CornerFinder != "" {
		deps = append(deps, cfg.CornerFinder)
	}

	return deps, nil, nil
}

func (cfg *BoardCameraConfig) side() int {
	if cfg.CanvasSize <= 0 {
		return int(DefaultCanvasSide)
	}
	return cfg.CanvasSize
}

func (cfg *BoardCameraConfig) drawGrid() bool {
	return cfg.Grid == nil || *cfg.Grid
}

func newBoardCamera(ctx context.Context, deps resource.Dependencies, rawConf resource.Config, logger logging.Logger) (camera.Camera, error) {
	conf, err := resource.NativeConfig[*BoardCameraConfig](rawConf)
	if err != nil {
		return nil, err
	}

	return NewBoardCamera(ctx, deps, rawConf.ResourceName(), conf, logger)
}

func NewBoardCamera(ctx context.Context, deps resource.Dependencies, name resource.Name, conf *BoardCameraConfig, logger logging.Logger) (camera.Camera, error) {
	var err error

	bc := &BoardCamera{
		name:   name,
		conf:   conf,
		logger: logger,
	}

	bc.input, err = camera.FromProvider(deps, conf.Input)
	if err != nil {
		return nil, err
	}

	if conf.CornerFinder != "" {
		bc.cornerFinder, err = vision.FromProvider(deps, conf.CornerFinder)
		if err != nil {
			return nil, err
		}
	}

	bc.props, err = bc.input.Properties(ctx)
	if err != nil {
		return nil, err
	}

	return bc, nil
}

type BoardCamera struct {
	resource.AlwaysRebuild
	resource.TriviallyCloseable

	name   resource.Name
	conf   *BoardCameraConfig
	logger logging.Logger

	input        camera.Camera
	cornerFinder vision.Service

	props camera.Properties
}

func (bc *BoardCamera) Image(ctx context.Context, mimeType string, extra map[string]interface{}) ([]byte, camera.ImageMetadata, error) {
	return camera.GetImageFromGetImages(ctx, nil, bc, extra, nil)
}

func (bc *BoardCamera) Images(ctx context.Context, filterSourceNames []string, extra map[string]interface{}) ([]camera.NamedImage, resource.ResponseMetadata, error) {
	ni, rm, err := bc.input.Images(ctx, nil, extra)
	if err != nil {
		return nil, rm, err
	}

	if len(ni) == 0 {
		return nil, rm, fmt.Errorf("no images returned from input camera")
	}

	srcImg, err := ni[0].Image(ctx)
	if err != nil {
		return nil, rm, err
	}

	corners, err := bc.corners(ctx, srcImg)
	if err != nil {
		return nil, rm, err
	}

	dst, _, _, err := RectifyBoard(srcImg, corners, bc.rectifyConfig(), bc.conf.drawGrid())
	if err != nil {
		return nil, rm, err
	}

	result, err := camera.NamedImageFromImage(dst, ni[0].SourceName, "", data.Annotations{})
	if err != nil {
		return nil, rm, err
	}
	return []camera.NamedImage{result}, rm, nil
}

func (bc *BoardCamera) rectifyConfig() RecognizeConfig {
	return RecognizeConfig{
		Side:   float64(bc.conf.side()),
		Margin: bc.conf.Margin,
	}
}

// corners finds the four board corners in an input frame, from the corner
// detector when one is configured, otherwise via segmentation.
func (bc *BoardCamera) corners(ctx context.Context, srcImg image.Image) ([]r2.Point, error) {
	if bc.cornerFinder == nil {
		pts, err := FindBoard(srcImg)
		if err != nil {
			return nil, err
		}
		return toR2Points(pts), nil
	}

	capture, err := bc.cornerFinder.CaptureAllFromCamera(ctx, bc.conf.Input, viscapture.CaptureOptions{
		ReturnDetections: true,
	}, nil)
	if err != nil {
		return nil, err
	}

	return keypointCenters(capture.Detections), nil
}

// RectifyBoard warps a frame so the board fills the canvas square on,
// optionally drawing cell borders and square names. It reports the resolved
// quad and whether the oriented homography took the quarter turn.
func RectifyBoard(srcImg image.Image, corners []r2.Point, cfg RecognizeConfig, grid bool) (*image.RGBA, Quad, bool, error) {
	cfg = cfg.withDefaults()

	quad, err := ResolveQuad(corners, cfg.MinArea, cfg.AspectLow, cfg.AspectHigh, cfg.Force)
	if err != nil {
		return nil, Quad{}, false, err
	}

	h, turned, err := ResolveOrientation(srcImg, quad, cfg.Side, cfg.Margin)
	if err != nil {
		return nil, Quad{}, false, err
	}

	dst, err := WarpImage(srcImg, h, int(cfg.Side))
	if err != nil {
		return nil, Quad{}, false, err
	}

	if grid {
		overlayGrid(dst)
	}

	return dst, quad, turned, nil
}

// overlayGrid draws the 8x8 cell borders and square names onto a rectified
// frame. Names follow the white-side convention, a8 top left.
func overlayGrid(dst *image.RGBA) {
	bounds := dst.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	gridColor := color.RGBA{0, 0, 0, 255}

	// draw vertical lines
	for i := 0; i <= 8; i++ {
		x := bounds.Min.X + (width * i / 8)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			dst.Set(x, y, gridColor)
		}
	}

	// draw horizontal lines
	for i := 0; i <= 8; i++ {
		y := bounds.Min.Y + (height * i / 8)
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			dst.Set(x, y, gridColor)
		}
	}

	squareSize := width / 8
	for rank := 1; rank <= 8; rank++ {
		for file := 'a'; file <= 'h'; file++ {
			name := fmt.Sprintf("%s%d", string([]byte{byte(file)}), rank)

			// put name in the middle of that square
			textX := bounds.Min.X + int(file-'a')*squareSize + squareSize/2 - len(name)*3
			textY := bounds.Min.Y + (8-rank)*squareSize + squareSize/2 + 3
			drawString(dst, textX, textY, name, color.RGBA{255, 0, 0, 255})
		}
	}
}

func drawString(dst *image.RGBA, x, y int, s string, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(s)
}

func (bc *BoardCamera) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	return nil, fmt.Errorf("DoCommand not supported")
}

func (bc *BoardCamera) NextPointCloud(ctx context.Context, extra map[string]interface{}) (pointcloud.PointCloud, error) {
	pc, err := bc.input.NextPointCloud(ctx, extra)
	if err != nil {
		return nil, err
	}

	ni, _, err := bc.input.Images(ctx, nil, extra)
	if err != nil {
		return nil, err
	}
	if len(ni) == 0 {
		return nil, fmt.Errorf("no images returned from input camera")
	}

	srcImg, err := ni[0].Image(ctx)
	if err != nil {
		return nil, err
	}

	corners, err := bc.corners(ctx, srcImg)
	if err != nil {
		return nil, err
	}

	quad, err := ResolveQuad(corners, DefaultMinQuadArea, DefaultAspectLow, DefaultAspectHigh, false)
	if err != nil {
		return nil, err
	}

	boardRect := quad.Bounds()
	return touch.PCLimitToImageBoxes(pc, []*image.Rectangle{&boardRect}, nil, bc.props)
}

func (bc *BoardCamera) Properties(ctx context.Context) (camera.Properties, error) {
	return camera.Properties{}, nil
}

func (bc *BoardCamera) Geometries(ctx context.Context, extra map[string]interface{}) ([]spatialmath.Geometry, error) {
	return nil, nil
}

func (bc *BoardCamera) Name() resource.Name {
	return bc.name
}
