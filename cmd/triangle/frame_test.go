package main

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/timeline-triangle/config"
	"github.com/vkngwrapper/timeline-triangle/pacing"
	"github.com/vkngwrapper/timeline-triangle/simgpu"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// staleTarget reports an out of date swapchain on the listed frames.
type staleTarget struct {
	headlessTarget
	acquires int
	stale    map[int]bool
}

func (t *staleTarget) Acquire(imageAvailable pacing.Semaphore) (int, error) {
	acquire := t.acquires
	t.acquires++
	if t.stale[acquire] {
		return 0, errSwapchainOutOfDate
	}
	return t.headlessTarget.Acquire(imageAvailable)
}

func TestRenderFrameOutOfDateKeepsTimeline(t *testing.T) {
	gpu := simgpu.NewDevice(simgpu.Options{Latency: time.Millisecond, Logger: quietLogger()})
	device := pacing.NewDeviceContext(gpu, quietLogger())
	defer device.Close()

	pacer, err := pacing.NewPacer(device, 2, time.Second)
	require.NoError(t, err)
	defer pacer.Destroy()
	sequencer, err := pacing.NewSequencer(device, pacer)
	require.NoError(t, err)
	defer sequencer.Destroy()
	imageAvailable, err := createImageAvailable(device, pacer.SlotCount())
	require.NoError(t, err)

	swapchain, err := simgpu.NewSwapchain(gpu, 3)
	require.NoError(t, err)
	target := &staleTarget{
		headlessTarget: headlessTarget{Swapchain: swapchain, clearColor: mgl32.Vec4{0, 0, 0, 1}},
		stale:          map[int]bool{2: true, 5: true},
	}

	const frames = 8
	outOfDate := 0
	for i := 0; i < frames; i++ {
		err := renderFrame(pacer, sequencer, imageAvailable, target)
		if errors.Is(err, errSwapchainOutOfDate) {
			outOfDate++
			continue
		}
		require.NoError(t, err)
	}

	require.NoError(t, device.WaitIdle())
	require.NoError(t, gpu.Err())
	assert.Equal(t, 2, outOfDate)
	assert.Equal(t, uint64(frames), device.LastSubmitted())
	assert.Equal(t, uint64(frames), gpu.Timeline().Value())
	assert.Equal(t, frames-outOfDate, gpu.Draws(), "out of date frames retire empty")
	assert.Len(t, swapchain.Presented(), frames-outOfDate)
}

func TestRunHeadless(t *testing.T) {
	cfg := config.Default()
	cfg.Headless.Latency = config.Duration{Duration: time.Millisecond}
	cfg.Pacing.FramesInFlight = 3

	result, err := runHeadless(cfg, 20, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 20, result.Frames)
	assert.Equal(t, uint64(20), result.Stats.Frames)
	assert.Equal(t, uint64(17), result.Stats.Recycles)
	assert.Positive(t, result.Elapsed)
}

func TestRunHeadlessTimesOut(t *testing.T) {
	cfg := config.Default()
	cfg.Headless.Latency = config.Duration{Duration: 100 * time.Millisecond}
	cfg.Pacing.FramesInFlight = 1
	cfg.Pacing.WaitTimeout = config.Duration{Duration: 5 * time.Millisecond}

	_, err := runHeadless(cfg, 3, quietLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, pacing.ErrTimeout))
}

func TestRunFlags(t *testing.T) {
	assert.NoError(t, run([]string{"-headless", "-frames", "4"}))
	assert.Error(t, run([]string{"-frames", "many"}))
	assert.Error(t, run([]string{"-headless", "-config", "does-not-exist.toml"}))
}

func TestFlippedViewport(t *testing.T) {
	viewport := flippedViewport(core1_0.Extent2D{Width: 1440, Height: 900})
	assert.Equal(t, float32(900), viewport.Y)
	assert.Equal(t, float32(1440), viewport.Width)
	assert.Equal(t, float32(-900), viewport.Height)
	assert.Equal(t, float32(1), viewport.MaxDepth)
}

func TestClampExtent(t *testing.T) {
	minExtent := core1_0.Extent2D{Width: 64, Height: 64}
	maxExtent := core1_0.Extent2D{Width: 4096, Height: 2048}

	assert.Equal(t, core1_0.Extent2D{Width: 800, Height: 600}, clampExtent(800, 600, minExtent, maxExtent))
	assert.Equal(t, core1_0.Extent2D{Width: 64, Height: 2048}, clampExtent(10, 5000, minExtent, maxExtent))
}
