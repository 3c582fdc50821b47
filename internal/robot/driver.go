package robot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ironsheep/logistics-bot/internal/actuator"
	"github.com/ironsheep/logistics-bot/internal/camera"
	"github.com/ironsheep/logistics-bot/internal/circuit"
	"github.com/ironsheep/logistics-bot/internal/materials"
	"github.com/ironsheep/logistics-bot/internal/publish"
)

// Journal is a publish.Journal that is closed at teardown.
type Journal interface {
	publish.Journal
	io.Closer
}

// Deps are the collaborators of a Driver. Store and Journal may be nil.
type Deps struct {
	Actuator          actuator.Actuator
	Capture           camera.Capture
	Pipeline          circuit.Classifier
	Store             publish.Store
	LocalRecord       *publish.LocalRecord
	Journal           Journal
	Motion            circuit.Motion
	RepublishInterval time.Duration
}

// Driver runs the robot.
type Driver struct {
	act     actuator.Actuator
	capture camera.Capture
	journal Journal
	logger  *slog.Logger

	publisher   *publish.Publisher
	republisher *publish.Republisher
	machine     *circuit.Machine

	teardownOnce sync.Once
	teardownErr  error
}

// NewWithDeps builds a driver around already acquired collaborators. The
// driver takes ownership of the actuator, the capture and the journal.
func NewWithDeps(deps Deps, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	store := deps.Store
	pub := publish.New(store, deps.LocalRecord, logger)
	if deps.Journal != nil {
		pub.SetJournal(deps.Journal)
	}

	d := &Driver{
		act:         deps.Actuator,
		capture:     deps.Capture,
		journal:     deps.Journal,
		logger:      logger,
		publisher:   pub,
		republisher: publish.NewRepublisher(pub, deps.RepublishInterval, logger),
	}
	d.machine = circuit.NewMachine(deps.Actuator, deps.Capture, deps.Pipeline,
		reporter{pub: pub}, deps.Motion, logger)
	return d
}

// Machine returns the checkpoint state machine.
func (d *Driver) Machine() *circuit.Machine {
	return d.machine
}

// Publisher returns the publisher results are sent through.
func (d *Driver) Publisher() *publish.Publisher {
	return d.publisher
}

// Run drives one full circuit and tears down. The returned error is nil on
// completion, the context error on cancellation, and otherwise the fatal
// error that aborted the circuit.
func (d *Driver) Run(ctx context.Context) error {
	defer d.Teardown()

	repCtx, stopRepublisher := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.republisher.Run(repCtx)
	}()
	defer func() {
		stopRepublisher()
		wg.Wait()
	}()

	d.logger.Info("starting circuit", "checkpoint", d.machine.Current().String())
	err := d.machine.RunCircuit(ctx)
	switch {
	case err == nil:
		d.logger.Info("route completed, returned to start")
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		d.logger.Warn("circuit interrupted",
			"checkpoint", d.machine.Current().String(),
			"error", err)
	default:
		d.logger.Error("pipeline aborted",
			"checkpoint", d.machine.Current().String(),
			"error", err)
	}
	return err
}

// Teardown stops the motors and releases the actuator, the camera and the
// journal. Only the first call has any effect; later calls return the same
// result.
func (d *Driver) Teardown() error {
	d.teardownOnce.Do(func() {
		var errs []error
		if err := d.act.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop motors: %w", err))
		}
		if err := d.act.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close actuator: %w", err))
		}
		if err := d.capture.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close camera: %w", err))
		}
		if d.journal != nil {
			if err := d.journal.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close journal: %w", err))
			}
		}
		d.teardownErr = errors.Join(errs...)
		if d.teardownErr != nil {
			d.logger.Error("teardown incomplete", "error", d.teardownErr)
		} else {
			d.logger.Info("resources released")
		}
	})
	return d.teardownErr
}

// reporter forwards machine events to the publisher.
type reporter struct {
	pub *publish.Publisher
}

func (r reporter) LocationChanged(ctx context.Context, cp circuit.Checkpoint) {
	r.pub.PublishLocation(ctx, cp.String())
}

func (r reporter) MaterialsDetected(ctx context.Context, cp circuit.Checkpoint, counts materials.Counts) {
	r.pub.Publish(ctx, cp.String(), counts)
}
