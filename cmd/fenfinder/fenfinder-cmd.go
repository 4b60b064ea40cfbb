package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	chesscam "chesscam"

	"github.com/golang/geo/r2"

	"go.viam.com/rdk/rimage"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <input.jpg> [output.jpg]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  If output is not specified, it will be <input>_rectified.jpg\n")
		os.Exit(1)
	}

	inputFile := os.Args[1]

	// Determine output file name
	var outputFile string
	if len(os.Args) >= 3 {
		outputFile = os.Args[2]
	} else {
		// Generate output filename: input.jpg -> input_rectified.jpg
		ext := filepath.Ext(inputFile)
		base := strings.TrimSuffix(inputFile, ext)
		outputFile = base + "_rectified" + ext
	}

	// Read input image
	input, err := rimage.ReadImageFromFile(inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading image: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Image size: %dx%d\n", input.Bounds().Dx(), input.Bounds().Dy())

	// Find board corners
	corners, err := chesscam.FindBoard(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error finding board corners: %v\n", err)
		os.Exit(1)
	}

	if len(corners) != 4 {
		fmt.Fprintf(os.Stderr, "Expected 4 corners, found %d\n", len(corners))
		os.Exit(1)
	}

	fmt.Printf("Found corners:\n")
	fmt.Printf("  Top-left:     (%d, %d)\n", corners[0].X, corners[0].Y)
	fmt.Printf("  Top-right:    (%d, %d)\n", corners[1].X, corners[1].Y)
	fmt.Printf("  Bottom-right: (%d, %d)\n", corners[2].X, corners[2].Y)
	fmt.Printf("  Bottom-left:  (%d, %d)\n", corners[3].X, corners[3].Y)

	// Rectify the board onto the canonical canvas
	points := make([]r2.Point, len(corners))
	for i, c := range corners {
		points[i] = r2.Point{X: float64(c.X), Y: float64(c.Y)}
	}

	output, quad, turned, err := chesscam.RectifyBoard(input, points, chesscam.RecognizeConfig{}, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rectifying board: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Board area: %.0f px\n", quad.Area())
	if turned {
		fmt.Printf("Orientation: rolled a quarter turn to fix square colors\n")
	} else {
		fmt.Printf("Orientation: accepted as found\n")
	}

	// Save output image
	err = rimage.WriteImageToFile(outputFile, output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output image: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Saved rectified image to %s\n", outputFile)
}
