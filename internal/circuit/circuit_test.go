package circuit

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/logistics-bot/internal/actuator"
	"github.com/ironsheep/logistics-bot/internal/camera"
	"github.com/ironsheep/logistics-bot/internal/imaging"
	"github.com/ironsheep/logistics-bot/internal/materials"
	"github.com/ironsheep/logistics-bot/internal/pipeline"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

var quickMotion = Motion{Forward: 3 * time.Second, Turn: 1500 * time.Millisecond}

type fakeCapture struct {
	frames int
	err    error
}

func (f *fakeCapture) AcquireFrame(ctx context.Context) (camera.Frame, error) {
	if f.err != nil {
		return camera.Frame{}, f.err
	}
	f.frames++
	return camera.Frame{
		Image:      image.NewRGBA(image.Rect(0, 0, 640, 480)),
		Encoding:   camera.RGB,
		CapturedAt: time.Unix(1_700_000_000, 0),
	}, nil
}

func (f *fakeCapture) Close() error { return nil }

// fakeClassifier returns a fixed result and counts calls.
type fakeClassifier struct {
	counts materials.Counts
	runs   int
	saves  []string
	err    error
}

func (f *fakeClassifier) Run(image.Image) (pipeline.Result, error) {
	if f.err != nil {
		return pipeline.Result{}, f.err
	}
	f.runs++
	return pipeline.Result{Counts: f.counts}, nil
}

func (f *fakeClassifier) SaveImages(checkpoint string, _ image.Image, _ pipeline.Result, _ time.Time) ([]string, error) {
	f.saves = append(f.saves, checkpoint)
	return nil, nil
}

type event struct {
	kind string
	cp   Checkpoint
}

type recorder struct {
	events []event
	counts []materials.Counts
}

func (r *recorder) LocationChanged(_ context.Context, cp Checkpoint) {
	r.events = append(r.events, event{"location", cp})
}

func (r *recorder) MaterialsDetected(_ context.Context, cp Checkpoint, c materials.Counts) {
	r.events = append(r.events, event{"materials", cp})
	r.counts = append(r.counts, c)
}

func (r *recorder) triggers() []Checkpoint {
	out := make([]Checkpoint, 0)
	for _, e := range r.events {
		if e.kind == "materials" {
			out = append(out, e.cp)
		}
	}
	return out
}

type fixture struct {
	sim *actuator.Simulator
	cap *fakeCapture
	cls *fakeClassifier
	rec *recorder
	m   *Machine
}

func newFixture() *fixture {
	f := &fixture{
		sim: actuator.NewSimulator(),
		cap: &fakeCapture{},
		cls: &fakeClassifier{counts: materials.Counts{DispatchReady: 1, EWaste: 2}},
		rec: &recorder{},
	}
	f.m = NewMachine(f.sim, f.cap, f.cls, f.rec, quickMotion, testLogger())
	return f
}

func TestCheckpoint(t *testing.T) {
	tests := []struct {
		cp   Checkpoint
		name string
		next Checkpoint
	}{
		{Start, "Start", BuildingA},
		{BuildingA, "Building A", BuildingB},
		{BuildingB, "Building B", BuildingC},
		{BuildingC, "Building C", Start},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.cp.String())
			assert.Equal(t, tt.next, tt.cp.Next())
		})
	}
	assert.Equal(t, "Checkpoint(7)", Checkpoint(7).String())
}

func TestMotion_Route(t *testing.T) {
	assert.Equal(t, []Step{{StepForward, 3 * time.Second}}, quickMotion.Route(Start))
	for _, cp := range []Checkpoint{BuildingA, BuildingB, BuildingC} {
		assert.Equal(t, []Step{
			{StepTurnRight, 1500 * time.Millisecond},
			{StepForward, 3 * time.Second},
		}, quickMotion.Route(cp), cp.String())
	}
}

func TestAdvanceToNext_FourAdvancesReturnToStart(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, f.m.AdvanceToNext(ctx))
	}
	assert.Equal(t, Start, f.m.Current())
	assert.Equal(t, []Checkpoint{Start, BuildingA, BuildingB, BuildingC, Start}, f.m.History())
	assert.Len(t, f.sim.Commands(), 7)
	assert.Equal(t, []event{
		{"location", BuildingA}, {"location", BuildingB},
		{"location", BuildingC}, {"location", Start},
	}, f.rec.events)
}

func TestAdvanceToNext_ActuatorFault(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.m.AdvanceToNext(ctx))

	f.sim.FailOn = "right"
	err := f.m.AdvanceToNext(ctx)
	assert.ErrorIs(t, err, actuator.ErrActuatorFault)
	assert.Equal(t, BuildingA, f.m.Current(), "state must not change on failure")
	assert.Len(t, f.rec.events, 1, "no location event for a failed move")
}

func TestAdvanceToNext_Cancelled(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.m.AdvanceToNext(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, actuator.ErrActuatorFault)
	assert.Equal(t, Start, f.m.Current())
}

func TestProcessCurrentCheckpoint(t *testing.T) {
	t.Run("start is skipped", func(t *testing.T) {
		f := newFixture()
		counts, processed, err := f.m.ProcessCurrentCheckpoint(context.Background())
		require.NoError(t, err)
		assert.False(t, processed)
		assert.Equal(t, materials.Counts{}, counts)
		assert.Zero(t, f.cap.frames)
	})

	t.Run("building classifies", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		require.NoError(t, f.m.AdvanceToNext(ctx))

		counts, processed, err := f.m.ProcessCurrentCheckpoint(ctx)
		require.NoError(t, err)
		assert.True(t, processed)
		assert.Equal(t, f.cls.counts, counts)
		assert.Equal(t, []string{"Building A"}, f.cls.saves)
		assert.Equal(t, []event{{"location", BuildingA}, {"materials", BuildingA}}, f.rec.events)
	})

	t.Run("capture failure", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		require.NoError(t, f.m.AdvanceToNext(ctx))
		f.cap.err = errors.New("device busy")

		_, _, err := f.m.ProcessCurrentCheckpoint(ctx)
		assert.ErrorIs(t, err, camera.ErrCaptureUnavailable)
	})

	t.Run("invalid region", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		require.NoError(t, f.m.AdvanceToNext(ctx))
		f.cls.err = imaging.ErrInvalidRegion

		_, _, err := f.m.ProcessCurrentCheckpoint(ctx)
		assert.ErrorIs(t, err, imaging.ErrInvalidRegion)
		assert.Empty(t, f.rec.triggers())
	})
}

func TestRunCircuit(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.m.RunCircuit(context.Background()))

	assert.Equal(t, Start, f.m.Current())
	assert.Equal(t, []Checkpoint{BuildingA, BuildingB, BuildingC}, f.rec.triggers())
	assert.Equal(t, 3, f.cap.frames)
	assert.Equal(t, 3, f.cls.runs)
	for _, c := range f.rec.counts {
		assert.Equal(t, 3, c.Total(), "counts reset every pass")
	}
	assert.Equal(t, []event{
		{"location", Start},
		{"location", BuildingA},
		{"materials", BuildingA},
		{"location", BuildingB},
		{"materials", BuildingB},
		{"location", BuildingC},
		{"materials", BuildingC},
		{"location", Start},
	}, f.rec.events)
}

func TestRunCircuit_StopsOnFault(t *testing.T) {
	f := newFixture()
	f.sim.FailOn = "right"

	err := f.m.RunCircuit(context.Background())
	assert.ErrorIs(t, err, actuator.ErrActuatorFault)
	assert.Equal(t, BuildingA, f.m.Current())
	assert.Equal(t, []Checkpoint{BuildingA}, f.rec.triggers())
}

func TestRunCircuit_Cancelled(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, f.m.RunCircuit(ctx), context.Canceled)
	assert.Zero(t, f.cap.frames)
}
