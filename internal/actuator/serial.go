package actuator

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Serial motor controller commands, one per line.
const (
	cmdForward = "F\n"
	cmdRight   = "R\n"
	cmdStop    = "S\n"
)

// Serial drives a motor controller board over a serial line. The board runs
// a command until it receives another one, so timing stays on this side.
type Serial struct {
	mu        sync.Mutex
	port      io.WriteCloser
	stopPause time.Duration
	closed    bool
}

// NewSerial opens the serial device at path.
func NewSerial(path string, baudRate int, stopPause time.Duration) (*Serial, error) {
	if baudRate <= 0 {
		baudRate = 115200
	}
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %v", ErrActuatorFault, path, err)
	}
	return newSerial(port, stopPause), nil
}

func newSerial(port io.WriteCloser, stopPause time.Duration) *Serial {
	return &Serial{port: port, stopPause: stopPause}
}

// MoveForward implements Actuator.
func (s *Serial) MoveForward(ctx context.Context, d time.Duration) error {
	return s.run(ctx, cmdForward, d)
}

// TurnRight implements Actuator.
func (s *Serial) TurnRight(ctx context.Context, d time.Duration) error {
	return s.run(ctx, cmdRight, d)
}

func (s *Serial) run(ctx context.Context, cmd string, d time.Duration) error {
	if err := s.send(cmd); err != nil {
		_ = s.Stop()
		return err
	}
	holdErr := hold(ctx, d)
	if err := s.Stop(); err != nil {
		return err
	}
	if holdErr != nil {
		return holdErr
	}
	return hold(ctx, s.stopPause)
}

func (s *Serial) send(cmd string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: serial port closed", ErrActuatorFault)
	}
	if _, err := io.WriteString(s.port, cmd); err != nil {
		return fmt.Errorf("%w: failed to write command: %v", ErrActuatorFault, err)
	}
	return nil
}

// Stop implements Actuator.
func (s *Serial) Stop() error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil
	}
	return s.send(cmdStop)
}

// Close implements Actuator.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.port.Close(); err != nil {
		return fmt.Errorf("%w: failed to close serial port: %v", ErrActuatorFault, err)
	}
	return nil
}
