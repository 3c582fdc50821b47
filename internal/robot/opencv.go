//go:build gocv

package robot

import (
	"github.com/ironsheep/logistics-bot/internal/camera"
	"github.com/ironsheep/logistics-bot/internal/detection"
)

func openCVCamera(device string, width, height int) (camera.Capture, error) {
	return camera.NewOpenCV(device, width, height)
}

func openCVLineDetector() (detection.LineDetector, error) {
	return detection.NewOpenCVLineDetector(), nil
}
