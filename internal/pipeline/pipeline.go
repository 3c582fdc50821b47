// Package pipeline runs one classification pass over a captured frame:
// region extraction, color segmentation, contour classification and material
// aggregation.
package pipeline

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ironsheep/logistics-bot/internal/detection"
	"github.com/ironsheep/logistics-bot/internal/imaging"
	"github.com/ironsheep/logistics-bot/internal/materials"
)

// Result is the outcome of one pass.
type Result struct {
	Counts     materials.Counts
	Detections []detection.Detection
	Mask       *image.Gray
}

// Pipeline holds the configuration of a classification pass. It keeps no
// state between passes, so counts always start from zero.
type Pipeline struct {
	Region     imaging.Region
	Segmenter  imaging.Segmenter
	Classifier *detection.Classifier

	// ImageDir, when set, receives the raw and annotated frame of every pass.
	ImageDir string

	logger *slog.Logger
}

// New returns a pipeline with the default segmenter and classifier.
func New(region imaging.Region, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		Region:     region,
		Segmenter:  imaging.DefaultSegmenter(),
		Classifier: detection.NewClassifier(),
		logger:     logger,
	}
}

// Run classifies the symbols inside the configured region of frame.
//
// The only error is an invalid region, wrapping imaging.ErrInvalidRegion.
func (p *Pipeline) Run(frame image.Image) (Result, error) {
	roi, err := imaging.ExtractRegion(frame, p.Region)
	if err != nil {
		return Result{}, fmt.Errorf("failed to extract region: %w", err)
	}

	mask := p.Segmenter.Segment(roi)
	detections := p.Classifier.Classify(mask)

	shapes := make([]detection.Shape, len(detections))
	for i, d := range detections {
		shapes[i] = d.Shape
		p.logger.Debug("symbol classified",
			"shape", d.Shape.String(),
			"vertices", len(d.Approx),
			"area", d.Area,
			"circularity", d.Circularity,
			"aspect_ratio", d.AspectRatio)
	}

	return Result{
		Counts:     materials.Tally(shapes),
		Detections: detections,
		Mask:       mask,
	}, nil
}

// SaveImages writes the raw and annotated frame for a checkpoint to ImageDir
// as <Name>_<unix>.jpg and <Name>_<unix>_annotated.jpg. Spaces in the name
// become underscores. It is a no-op when ImageDir is empty.
func (p *Pipeline) SaveImages(checkpoint string, frame image.Image, res Result, at time.Time) ([]string, error) {
	if p.ImageDir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(p.ImageDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	base := fmt.Sprintf("%s_%d", strings.ReplaceAll(checkpoint, " ", "_"), at.Unix())
	raw := filepath.Join(p.ImageDir, base+".jpg")
	annotated := filepath.Join(p.ImageDir, base+"_annotated.jpg")

	marks := make([]imaging.Mark, len(res.Detections))
	for i, d := range res.Detections {
		marks[i] = imaging.Mark{Outline: d.Approx, Label: d.Shape.String()}
	}

	if err := imaging.SaveImage(frame, raw); err != nil {
		return nil, err
	}
	if err := imaging.SaveImage(imaging.Annotate(frame, p.Region, marks, res.Counts.String()), annotated); err != nil {
		return nil, err
	}
	return []string{raw, annotated}, nil
}
