package circuit

import (
	"context"
	"fmt"
	"time"

	"github.com/ironsheep/logistics-bot/internal/actuator"
)

// Motion holds the timings of the open-loop route.
type Motion struct {
	Forward time.Duration
	Turn    time.Duration
	// Settle is the pause after arriving, before the next step.
	Settle time.Duration
}

// DefaultMotion matches the reference chassis on its test track.
var DefaultMotion = Motion{
	Forward: 3 * time.Second,
	Turn:    1500 * time.Millisecond,
	Settle:  time.Second,
}

// StepKind is one primitive movement.
type StepKind string

const (
	StepForward   StepKind = "forward"
	StepTurnRight StepKind = "turn_right"
)

// Step is a movement held for a duration.
type Step struct {
	Kind     StepKind
	Duration time.Duration
}

// Route returns the movement plan from a checkpoint to its successor. The
// first leg leaves the depot straight ahead; every other leg turns the
// corner first.
func (m Motion) Route(from Checkpoint) []Step {
	forward := Step{Kind: StepForward, Duration: m.Forward}
	if from == Start {
		return []Step{forward}
	}
	return []Step{{Kind: StepTurnRight, Duration: m.Turn}, forward}
}

func execute(ctx context.Context, act actuator.Actuator, s Step) error {
	switch s.Kind {
	case StepForward:
		return act.MoveForward(ctx, s.Duration)
	case StepTurnRight:
		return act.TurnRight(ctx, s.Duration)
	default:
		return fmt.Errorf("%w: unknown step %q", actuator.ErrActuatorFault, s.Kind)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
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
