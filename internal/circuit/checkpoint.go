package circuit

import "fmt"

// Checkpoint is a stop on the rectangular circuit.
type Checkpoint int

const (
	Start Checkpoint = iota
	BuildingA
	BuildingB
	BuildingC
)

// NumCheckpoints is the length of one lap.
const NumCheckpoints = 4

var checkpointNames = [NumCheckpoints]string{"Start", "Building A", "Building B", "Building C"}

// String returns the name the dashboard displays.
func (c Checkpoint) String() string {
	if c < 0 || int(c) >= NumCheckpoints {
		return fmt.Sprintf("Checkpoint(%d)", int(c))
	}
	return checkpointNames[c]
}

// Next returns the following checkpoint; BuildingC wraps to Start.
func (c Checkpoint) Next() Checkpoint {
	return Checkpoint((int(c) + 1) % NumCheckpoints)
}

// Classifies reports whether a pass runs at this checkpoint. Start is the
// depot and has no marked surface.
func (c Checkpoint) Classifies() bool {
	return c != Start
}
