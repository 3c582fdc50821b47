package actuator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// Pin is the subset of gpio.PinIO the motor driver uses.
type Pin interface {
	Out(l gpio.Level) error
	PWM(duty gpio.Duty, f physic.Frequency) error
	Halt() error
}

// PinMap names the BCM pins wired to an L298N-style dual H-bridge.
type PinMap struct {
	// Right motor direction and enable.
	IN1 string `toml:"in1"`
	IN2 string `toml:"in2"`
	ENA string `toml:"ena"`

	// Left motor direction and enable.
	IN3 string `toml:"in3"`
	IN4 string `toml:"in4"`
	ENB string `toml:"enb"`
}

// DefaultPinMap is the wiring of the reference chassis.
var DefaultPinMap = PinMap{
	IN1: "GPIO17", IN2: "GPIO27", ENA: "GPIO4",
	IN3: "GPIO5", IN4: "GPIO6", ENB: "GPIO13",
}

const (
	pwmFrequency = 100 * physic.Hertz
	pwmDuty      = gpio.DutyMax * 75 / 100
)

// GPIO drives two DC motors through direction and PWM enable pins.
type GPIO struct {
	mu        sync.Mutex
	in1, in2  Pin
	in3, in4  Pin
	ena, enb  Pin
	stopPause time.Duration
	closed    bool
}

// NewGPIO initialises the host drivers and claims the pins in m.
//
// stopPause is how long every movement waits after stopping so the chassis
// comes to rest before the next command.
func NewGPIO(m PinMap, stopPause time.Duration) (*GPIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: failed to initialise host: %v", ErrActuatorFault, err)
	}

	lookup := func(name string) (Pin, error) {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("%w: unknown pin %q", ErrActuatorFault, name)
		}
		return p, nil
	}

	pins := make([]Pin, 0, 6)
	for _, name := range []string{m.IN1, m.IN2, m.ENA, m.IN3, m.IN4, m.ENB} {
		p, err := lookup(name)
		if err != nil {
			return nil, err
		}
		pins = append(pins, p)
	}
	return newGPIO(pins[0], pins[1], pins[2], pins[3], pins[4], pins[5], stopPause)
}

func newGPIO(in1, in2, ena, in3, in4, enb Pin, stopPause time.Duration) (*GPIO, error) {
	g := &GPIO{
		in1: in1, in2: in2, ena: ena,
		in3: in3, in4: in4, enb: enb,
		stopPause: stopPause,
	}
	for _, en := range []Pin{ena, enb} {
		if err := en.PWM(pwmDuty, pwmFrequency); err != nil {
			return nil, fmt.Errorf("%w: failed to start PWM: %v", ErrActuatorFault, err)
		}
	}
	if err := g.Stop(); err != nil {
		return nil, err
	}
	return g, nil
}

// MoveForward implements Actuator.
func (g *GPIO) MoveForward(ctx context.Context, d time.Duration) error {
	return g.run(ctx, d, gpio.High, gpio.Low, gpio.Low, gpio.High)
}

// TurnRight implements Actuator. The right motor runs backward while the
// left motor is idle.
func (g *GPIO) TurnRight(ctx context.Context, d time.Duration) error {
	if err := g.Stop(); err != nil {
		return err
	}
	return g.run(ctx, d, gpio.Low, gpio.High, gpio.Low, gpio.Low)
}

func (g *GPIO) run(ctx context.Context, d time.Duration, in1, in2, in3, in4 gpio.Level) error {
	if err := g.drive(in1, in2, in3, in4); err != nil {
		_ = g.Stop()
		return err
	}
	holdErr := hold(ctx, d)
	if err := g.Stop(); err != nil {
		return err
	}
	if holdErr != nil {
		return holdErr
	}
	return hold(ctx, g.stopPause)
}

func (g *GPIO) drive(in1, in2, in3, in4 gpio.Level) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return fmt.Errorf("%w: motor driver closed", ErrActuatorFault)
	}
	levels := []struct {
		p Pin
		l gpio.Level
	}{{g.in1, in1}, {g.in2, in2}, {g.in3, in3}, {g.in4, in4}}
	for _, pl := range levels {
		if err := pl.p.Out(pl.l); err != nil {
			return fmt.Errorf("%w: failed to set direction pin: %v", ErrActuatorFault, err)
		}
	}
	return nil
}

// Stop implements Actuator by pulling all direction pins low.
func (g *GPIO) Stop() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	for _, p := range []Pin{g.in1, g.in2, g.in3, g.in4} {
		if err := p.Out(gpio.Low); err != nil {
			return fmt.Errorf("%w: failed to stop motors: %v", ErrActuatorFault, err)
		}
	}
	return nil
}

// Close implements Actuator. It halts the PWM outputs and releases every pin.
func (g *GPIO) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true

	var firstErr error
	for _, p := range []Pin{g.ena, g.enb, g.in1, g.in2, g.in3, g.in4} {
		if err := p.Halt(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%w: failed to release pin: %v", ErrActuatorFault, err)
		}
	}
	return firstErr
}
