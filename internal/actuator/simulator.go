package actuator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Command is one call recorded by the Simulator.
type Command struct {
	Op       string
	Duration time.Duration
}

// Simulator is an Actuator that records commands instead of moving. It does
// not sleep unless RealTime is set.
type Simulator struct {
	mu       sync.Mutex
	commands []Command
	stops    int
	closes   int

	// RealTime makes movements block for their duration.
	RealTime bool

	// FailOn makes the named operation ("forward" or "right") fail with
	// ErrActuatorFault.
	FailOn string
}

// NewSimulator returns a simulator that completes movements immediately.
func NewSimulator() *Simulator {
	return &Simulator{}
}

// MoveForward implements Actuator.
func (s *Simulator) MoveForward(ctx context.Context, d time.Duration) error {
	return s.move(ctx, "forward", d)
}

// TurnRight implements Actuator.
func (s *Simulator) TurnRight(ctx context.Context, d time.Duration) error {
	return s.move(ctx, "right", d)
}

func (s *Simulator) move(ctx context.Context, op string, d time.Duration) error {
	s.mu.Lock()
	if s.FailOn == op {
		s.mu.Unlock()
		return fmt.Errorf("%w: simulated %s failure", ErrActuatorFault, op)
	}
	s.commands = append(s.commands, Command{Op: op, Duration: d})
	realTime := s.RealTime
	s.mu.Unlock()

	if realTime {
		return hold(ctx, d)
	}
	return ctx.Err()
}

// Stop implements Actuator.
func (s *Simulator) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return nil
}

// Close implements Actuator.
func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

// Commands returns a copy of the recorded movements.
func (s *Simulator) Commands() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Command, len(s.commands))
	copy(out, s.commands)
	return out
}

// Stops returns how many times Stop was called.
func (s *Simulator) Stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

// Closes returns how many times Close was called.
func (s *Simulator) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}
