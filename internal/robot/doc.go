// Package robot wires the hardware, the classification pipeline and the
// publisher into a runnable circuit.
//
// A Driver acquires the actuator and the camera once at construction and
// releases them through a single teardown that runs exactly once, whether the
// circuit completes, fails or is cancelled. The teardown stops the motors,
// closes the actuator and then closes the camera.
package robot
