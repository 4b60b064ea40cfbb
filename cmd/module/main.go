package main

import (
	"go.viam.com/rdk/components/camera"
	"go.viam.com/rdk/module"
	"go.viam.com/rdk/resource"
	generic "go.viam.com/rdk/services/generic"

	"chesscam"
)

func main() {
	module.ModularMain(
		resource.APIModel{API: generic.API, Model: chesscam.RecognizerModel},
		resource.APIModel{API: generic.API, Model: chesscam.AnalyzerModel},
		resource.APIModel{API: camera.API, Model: chesscam.BoardCameraModel},
	)
}
