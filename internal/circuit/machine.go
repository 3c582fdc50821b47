// Package circuit sequences the robot around its four checkpoints.
//
// A Machine owns the current checkpoint. Each lap visits Start, Building A,
// Building B and Building C, classifying at every building, and returns to
// Start. Location changes are reported as soon as the robot arrives, before
// any classification at the new checkpoint.
package circuit

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/ironsheep/logistics-bot/internal/actuator"
	"github.com/ironsheep/logistics-bot/internal/camera"
	"github.com/ironsheep/logistics-bot/internal/materials"
	"github.com/ironsheep/logistics-bot/internal/pipeline"
)

// Classifier runs a classification pass. *pipeline.Pipeline implements it.
type Classifier interface {
	Run(frame image.Image) (pipeline.Result, error)
	SaveImages(checkpoint string, frame image.Image, res pipeline.Result, at time.Time) ([]string, error)
}

// Reporter receives the machine's events.
type Reporter interface {
	LocationChanged(ctx context.Context, cp Checkpoint)
	MaterialsDetected(ctx context.Context, cp Checkpoint, counts materials.Counts)
}

// Machine is the checkpoint state machine. It is not safe for concurrent
// use.
type Machine struct {
	act        actuator.Actuator
	capture    camera.Capture
	classifier Classifier
	reporter   Reporter
	motion     Motion
	logger     *slog.Logger

	current Checkpoint
	history []Checkpoint
}

// NewMachine returns a machine at Start.
func NewMachine(act actuator.Actuator, capture camera.Capture, classifier Classifier,
	reporter Reporter, motion Motion, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		act:        act,
		capture:    capture,
		classifier: classifier,
		reporter:   reporter,
		motion:     motion,
		logger:     logger,
		current:    Start,
		history:    []Checkpoint{Start},
	}
}

// Current returns the checkpoint the robot is at.
func (m *Machine) Current() Checkpoint {
	return m.current
}

// History returns every checkpoint reached, starting with Start.
func (m *Machine) History() []Checkpoint {
	out := make([]Checkpoint, len(m.history))
	copy(out, m.history)
	return out
}

// AdvanceToNext drives to the next checkpoint, then reports the new location
// and waits for the chassis to settle.
//
// If a movement fails the current checkpoint is unchanged and the error
// wraps actuator.ErrActuatorFault. Cancellation during a movement returns the
// context error, also without changing state.
func (m *Machine) AdvanceToNext(ctx context.Context) error {
	from := m.current
	to := from.Next()
	m.logger.Info("navigating", "from", from.String(), "to", to.String())

	for _, step := range m.motion.Route(from) {
		if err := execute(ctx, m.act, step); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return err
			}
			if !errors.Is(err, actuator.ErrActuatorFault) {
				err = fmt.Errorf("%w: %v", actuator.ErrActuatorFault, err)
			}
			return fmt.Errorf("failed to move from %s to %s: %w", from, to, err)
		}
	}

	m.current = to
	m.history = append(m.history, to)
	m.logger.Info("arrived", "checkpoint", to.String())
	if m.reporter != nil {
		m.reporter.LocationChanged(ctx, to)
	}

	return sleep(ctx, m.motion.Settle)
}

// ProcessCurrentCheckpoint captures and classifies a frame at the current
// checkpoint and reports the counts. At Start it does nothing and reports
// false.
func (m *Machine) ProcessCurrentCheckpoint(ctx context.Context) (materials.Counts, bool, error) {
	cp := m.current
	if !cp.Classifies() {
		m.logger.Debug("no processing at checkpoint", "checkpoint", cp.String())
		return materials.Counts{}, false, nil
	}

	frame, err := m.capture.AcquireFrame(ctx)
	if err != nil {
		if !errors.Is(err, camera.ErrCaptureUnavailable) && !errors.Is(err, ctx.Err()) {
			err = fmt.Errorf("%w: %v", camera.ErrCaptureUnavailable, err)
		}
		return materials.Counts{}, false, fmt.Errorf("failed to capture at %s: %w", cp, err)
	}

	res, err := m.classifier.Run(frame.Image)
	if err != nil {
		return materials.Counts{}, false, fmt.Errorf("failed to classify at %s: %w", cp, err)
	}
	m.logger.Info("checkpoint classified",
		"checkpoint", cp.String(),
		"symbols", res.Counts.Total(),
		"counts", res.Counts.String())

	paths, err := m.classifier.SaveImages(cp.String(), frame.Image, res, frame.CapturedAt)
	if err != nil {
		m.logger.Warn("failed to save checkpoint images", "checkpoint", cp.String(), "error", err)
	} else if len(paths) > 0 {
		m.logger.Debug("saved checkpoint images", "paths", paths)
	}

	if m.reporter != nil {
		m.reporter.MaterialsDetected(ctx, cp, res.Counts)
	}
	return res.Counts, true, nil
}

// RunCircuit completes one lap from the current checkpoint: process, then
// advance, four times. Starting from Start, the lap ends at Start without
// classifying there again.
func (m *Machine) RunCircuit(ctx context.Context) error {
	if m.reporter != nil {
		m.reporter.LocationChanged(ctx, m.current)
	}
	for i := 0; i < NumCheckpoints; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, _, err := m.ProcessCurrentCheckpoint(ctx); err != nil {
			return err
		}
		if err := m.AdvanceToNext(ctx); err != nil {
			return err
		}
	}
	m.logger.Info("circuit completed", "checkpoint", m.current.String())
	return nil
}
