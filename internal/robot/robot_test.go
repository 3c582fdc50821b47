package robot

import (
	"context"
	"errors"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/logistics-bot/internal/actuator"
	"github.com/ironsheep/logistics-bot/internal/camera"
	"github.com/ironsheep/logistics-bot/internal/circuit"
	"github.com/ironsheep/logistics-bot/internal/config"
	"github.com/ironsheep/logistics-bot/internal/imaging"
	"github.com/ironsheep/logistics-bot/internal/journal"
	"github.com/ironsheep/logistics-bot/internal/materials"
	"github.com/ironsheep/logistics-bot/internal/publish"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

var (
	paper  = color.RGBA{240, 240, 240, 255}
	symbol = color.RGBA{220, 20, 30, 255}
)

// checkpointFrame is a 640x480 frame with a square and a disk inside the
// default region.
func checkpointFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	for y := 0; y < 480; y++ {
		for x := 0; x < 640; x++ {
			img.SetRGBA(x, y, paper)
			inSquare := x >= 130 && x < 200 && y >= 150 && y < 220
			inDisk := (x-400)*(x-400)+(y-240)*(y-240) <= 60*60
			if inSquare || inDisk {
				img.SetRGBA(x, y, symbol)
			}
		}
	}
	return img
}

var wantCounts = materials.Counts{DispatchReady: 1, Damaged: 1}

type fakeCapture struct {
	mu     sync.Mutex
	frames int
	closes int
	err    error
}

func (f *fakeCapture) AcquireFrame(ctx context.Context) (camera.Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return camera.Frame{}, f.err
	}
	f.frames++
	return camera.Frame{Image: checkpointFrame(), Encoding: camera.RGB, CapturedAt: time.Now()}, nil
}

func (f *fakeCapture) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

type fakeStore struct {
	mu        sync.Mutex
	locations []string
	materials []materials.Counts
}

func (f *fakeStore) SetLocation(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locations = append(f.locations, name)
	return nil
}

func (f *fakeStore) SetMaterials(_ context.Context, c materials.Counts) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.materials = append(f.materials, c)
	return nil
}

func (f *fakeStore) SetLastUpdate(context.Context, int64) error { return nil }

type fakeJournal struct {
	records []publish.SyncRecord
	closes  int
}

func (f *fakeJournal) Record(_ context.Context, rec publish.SyncRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeJournal) Close() error {
	f.closes++
	return nil
}

type harness struct {
	sim     *actuator.Simulator
	capture *fakeCapture
	store   *fakeStore
	journal *fakeJournal
	record  string
	driver  *Driver
}

func newHarness(t *testing.T, withStore bool) *harness {
	t.Helper()
	pipe, err := NewPipeline(config.DefaultConfig().Vision, "", testLogger())
	require.NoError(t, err)

	h := &harness{
		sim:     actuator.NewSimulator(),
		capture: &fakeCapture{},
		journal: &fakeJournal{},
		record:  filepath.Join(t.TempDir(), "material_logs.txt"),
	}
	deps := Deps{
		Actuator:    h.sim,
		Capture:     h.capture,
		Pipeline:    pipe,
		LocalRecord: publish.NewLocalRecord(h.record),
		Journal:     h.journal,
		Motion:      circuit.Motion{Forward: time.Second, Turn: time.Second},
	}
	if withStore {
		h.store = &fakeStore{}
		deps.Store = h.store
	}
	h.driver = NewWithDeps(deps, testLogger())
	return h
}

func (h *harness) assertReleasedOnce(t *testing.T) {
	t.Helper()
	assert.Equal(t, 1, h.sim.Stops(), "Stop")
	assert.Equal(t, 1, h.sim.Closes(), "actuator Close")
	assert.Equal(t, 1, h.capture.closes, "capture Close")
	assert.Equal(t, 1, h.journal.closes, "journal Close")
}

func TestRun_CompletesCircuit(t *testing.T) {
	h := newHarness(t, true)

	require.NoError(t, h.driver.Run(context.Background()))

	assert.Equal(t, circuit.Start, h.driver.Machine().Current())
	assert.Equal(t, 3, h.capture.frames)
	assert.Equal(t, []materials.Counts{wantCounts, wantCounts, wantCounts}, h.store.materials)
	assert.Equal(t,
		[]string{"Start", "Building A", "Building A", "Building B", "Building B", "Building C", "Building C", "Start"},
		h.store.locations)

	latest, ok := h.driver.Publisher().Latest()
	assert.True(t, ok)
	assert.Equal(t, wantCounts, latest)

	assert.Len(t, h.journal.records, 8)
	for _, rec := range h.journal.records {
		assert.Equal(t, publish.Delivered, rec.Status)
	}
	_, err := os.Stat(h.record)
	assert.True(t, errors.Is(err, os.ErrNotExist), "nothing logged locally")

	h.assertReleasedOnce(t)
	assert.NoError(t, h.driver.Teardown())
	h.assertReleasedOnce(t)
}

func TestRun_StoreMissing(t *testing.T) {
	h := newHarness(t, false)

	require.NoError(t, h.driver.Run(context.Background()))

	data, err := os.ReadFile(h.record)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 8)

	materialLines := 0
	for _, line := range lines {
		if strings.Contains(line, "dispatchReady: 1, damaged: 1") {
			materialLines++
		}
	}
	assert.Equal(t, 3, materialLines)
	for _, rec := range h.journal.records {
		assert.Equal(t, publish.LoggedLocally, rec.Status)
	}
	h.assertReleasedOnce(t)
}

func TestRun_CaptureFailure(t *testing.T) {
	h := newHarness(t, true)
	h.capture.err = errors.New("no device")

	err := h.driver.Run(context.Background())
	assert.ErrorIs(t, err, camera.ErrCaptureUnavailable)
	assert.Equal(t, circuit.BuildingA, h.driver.Machine().Current())
	h.assertReleasedOnce(t)
}

func TestRun_ActuatorFault(t *testing.T) {
	h := newHarness(t, true)
	h.sim.FailOn = "right"

	err := h.driver.Run(context.Background())
	assert.ErrorIs(t, err, actuator.ErrActuatorFault)
	h.assertReleasedOnce(t)
}

func TestRun_Cancelled(t *testing.T) {
	h := newHarness(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.driver.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, h.capture.frames)
	h.assertReleasedOnce(t)
}

func TestTeardown_ConcurrentCalls(t *testing.T) {
	h := newHarness(t, true)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.driver.Teardown()
		}()
	}
	wg.Wait()
	h.assertReleasedOnce(t)
}

func TestNew_FromConfig(t *testing.T) {
	dir := t.TempDir()
	frames := filepath.Join(dir, "frames")
	require.NoError(t, os.MkdirAll(frames, 0o755))
	require.NoError(t, imaging.SaveImage(checkpointFrame(), filepath.Join(frames, "frame_000.png")))

	cfg := config.DefaultConfig()
	cfg.Motion.Driver = "sim"
	cfg.Motion.Forward = time.Millisecond
	cfg.Motion.Turn = time.Millisecond
	cfg.Motion.Settle = 0
	cfg.Motion.StopPause = 0
	cfg.Camera.Driver = "replay"
	cfg.Camera.ReplayDir = frames
	cfg.Store.Enabled = false
	cfg.Output.LocalRecord = filepath.Join(dir, "material_logs.txt")
	cfg.Output.ImageDir = filepath.Join(dir, "captured")
	cfg.Output.Journal = filepath.Join(dir, "journal.db")

	d, err := New(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	require.NoError(t, d.Run(context.Background()))

	saved, err := imaging.ListImages(cfg.Output.ImageDir)
	require.NoError(t, err)
	assert.Len(t, saved, 6, "raw and annotated frame per building")

	j, err := journal.Open(cfg.Output.Journal)
	require.NoError(t, err)
	defer j.Close()
	byStatus, err := j.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[publish.Status]int{publish.LoggedLocally: 8}, byStatus)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Vision.Region = imaging.Region{X: 400, Y: 300, Width: 440, Height: 280}

	_, err := New(context.Background(), cfg, testLogger())
	assert.ErrorIs(t, err, imaging.ErrInvalidRegion)
}

func TestNew_CameraFailureReleasesActuator(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Motion.Driver = "sim"
	cfg.Camera.Driver = "replay"
	cfg.Camera.ReplayDir = filepath.Join(t.TempDir(), "empty")
	cfg.Store.Enabled = false

	_, err := New(context.Background(), cfg, testLogger())
	assert.ErrorIs(t, err, camera.ErrCaptureUnavailable)
}
