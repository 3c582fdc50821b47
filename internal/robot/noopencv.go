//go:build !gocv

package robot

import (
	"errors"

	"github.com/ironsheep/logistics-bot/internal/camera"
	"github.com/ironsheep/logistics-bot/internal/detection"
)

var errNoOpenCV = errors.New("built without OpenCV support (rebuild with -tags gocv)")

func openCVCamera(string, int, int) (camera.Capture, error) {
	return nil, errNoOpenCV
}

func openCVLineDetector() (detection.LineDetector, error) {
	return nil, errNoOpenCV
}
