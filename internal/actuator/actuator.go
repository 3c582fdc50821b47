// Package actuator drives the robot's motors.
//
// Movements are time-based: the caller asks for forward motion or a right
// turn for a duration, and the implementation holds that motion until the
// duration elapses or the context is cancelled, then stops the motors.
package actuator

import (
	"context"
	"errors"
	"time"
)

// ErrActuatorFault is returned when a motor command cannot be applied. It is
// fatal for a circuit run.
var ErrActuatorFault = errors.New("actuator fault")

// Actuator moves the robot.
type Actuator interface {
	// MoveForward drives straight ahead for d.
	MoveForward(ctx context.Context, d time.Duration) error

	// TurnRight pivots clockwise for d.
	TurnRight(ctx context.Context, d time.Duration) error

	// Stop halts all motors. It is idempotent and may be called at any time,
	// including after Close.
	Stop() error

	// Close releases the hardware. Call Stop first.
	Close() error
}

// hold blocks for d or until ctx is done, whichever comes first.
func hold(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
