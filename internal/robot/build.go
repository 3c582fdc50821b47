package robot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ironsheep/logistics-bot/internal/actuator"
	"github.com/ironsheep/logistics-bot/internal/camera"
	"github.com/ironsheep/logistics-bot/internal/circuit"
	"github.com/ironsheep/logistics-bot/internal/config"
	"github.com/ironsheep/logistics-bot/internal/detection"
	"github.com/ironsheep/logistics-bot/internal/imaging"
	"github.com/ironsheep/logistics-bot/internal/journal"
	"github.com/ironsheep/logistics-bot/internal/pipeline"
	"github.com/ironsheep/logistics-bot/internal/publish"
)

// NewPipeline builds the classification pipeline described by the vision
// settings.
func NewPipeline(v config.VisionConfig, imageDir string, logger *slog.Logger) (*pipeline.Pipeline, error) {
	p := pipeline.New(v.Region, logger)
	p.ImageDir = imageDir
	p.Segmenter = imaging.Segmenter{
		Bands:         append([]imaging.HueBand(nil), v.Bands...),
		MinSaturation: v.MinSaturation,
		MinValue:      v.MinValue,
		KernelSize:    v.KernelSize,
	}

	c := detection.NewClassifier()
	c.MinArea = v.MinArea
	c.ApproxFactor = v.ApproxFactor
	c.CircularityThreshold = v.CircularityThreshold
	if v.LineDetector == "opencv" {
		lines, err := openCVLineDetector()
		if err != nil {
			return nil, err
		}
		c.Lines = lines
	}
	p.Classifier = c
	return p, nil
}

func openActuator(m config.MotionConfig) (actuator.Actuator, error) {
	switch m.Driver {
	case "gpio":
		return actuator.NewGPIO(m.Pins, m.StopPause)
	case "serial":
		return actuator.NewSerial(m.SerialPort, m.BaudRate, m.StopPause)
	case "sim":
		sim := actuator.NewSimulator()
		sim.RealTime = true
		return sim, nil
	default:
		return nil, fmt.Errorf("unsupported motion driver: %s", m.Driver)
	}
}

func openCamera(c config.CameraConfig) (camera.Capture, error) {
	switch c.Driver {
	case "replay":
		return camera.NewReplay(c.ReplayDir)
	case "opencv":
		return openCVCamera(c.Device, c.Width, c.Height)
	default:
		return nil, fmt.Errorf("unsupported camera driver: %s", c.Driver)
	}
}

// openStore connects to Firebase. A store that cannot be reached at startup
// is dropped and the robot runs on the local record alone.
func openStore(ctx context.Context, s config.StoreConfig, logger *slog.Logger) publish.Store {
	if !s.Enabled {
		logger.Info("remote store disabled, results will be logged locally")
		return nil
	}
	store, err := publish.NewFirebaseStore(ctx, s.CredentialsPath, s.DatabaseURL)
	if err != nil {
		logger.Warn("remote store unavailable, results will be logged locally", "error", err)
		return nil
	}
	if err := store.EnsureDefaults(ctx, circuit.Start.String(), time.Now().UnixMilli()); err != nil {
		logger.Warn("remote store unavailable, results will be logged locally", "error", err)
		return nil
	}
	logger.Info("connected to remote store")
	return store
}

// New builds a driver from configuration, acquiring the actuator and the
// camera. Anything acquired before a failure is released again.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Driver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	pipe, err := NewPipeline(cfg.Vision, cfg.Output.ImageDir, logger)
	if err != nil {
		return nil, err
	}

	var j *journal.Journal
	if cfg.Output.Journal != "" {
		if j, err = journal.Open(cfg.Output.Journal); err != nil {
			return nil, err
		}
	}
	closeJournal := func() {
		if j != nil {
			j.Close()
		}
	}

	act, err := openActuator(cfg.Motion)
	if err != nil {
		closeJournal()
		return nil, fmt.Errorf("failed to open actuator: %w", err)
	}
	capture, err := openCamera(cfg.Camera)
	if err != nil {
		act.Stop()
		act.Close()
		closeJournal()
		return nil, fmt.Errorf("failed to open camera: %w", err)
	}

	deps := Deps{
		Actuator:          act,
		Capture:           capture,
		Pipeline:          pipe,
		Store:             openStore(ctx, cfg.Store, logger),
		LocalRecord:       publish.NewLocalRecord(cfg.Output.LocalRecord),
		Motion:            circuit.Motion{Forward: cfg.Motion.Forward, Turn: cfg.Motion.Turn, Settle: cfg.Motion.Settle},
		RepublishInterval: cfg.Republish.Interval,
	}
	if j != nil {
		deps.Journal = j
	}
	return NewWithDeps(deps, logger), nil
}
