package main

import (
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/loov/hrtime"
	"github.com/vkngwrapper/timeline-triangle/config"
	"github.com/vkngwrapper/timeline-triangle/pacing"
	"github.com/vkngwrapper/timeline-triangle/simgpu"
)

type headlessTarget struct {
	*simgpu.Swapchain
	clearColor mgl32.Vec4
}

func (t headlessTarget) Record(frame pacing.Frame, image int) error {
	buffer, ok := frame.Buffer.(*simgpu.CommandBuffer)
	if !ok {
		return errors.Newf("%T is not a simulated command buffer", frame.Buffer)
	}
	buffer.CmdClear(t.clearColor)
	buffer.CmdDraw(3, 1)
	return nil
}

type headlessResult struct {
	Frames  int
	Elapsed time.Duration
	Stats   pacing.PacerStats
}

// runHeadless renders frames on the software GPU without opening a window.
func runHeadless(cfg config.Config, frames int, logger *slog.Logger) (headlessResult, error) {
	var result headlessResult

	gpu := simgpu.NewDevice(simgpu.Options{
		Latency: cfg.Headless.Latency.Duration,
		Logger:  logger,
	})
	device := pacing.NewDeviceContext(gpu, logger)

	pacer, err := pacing.NewPacer(device, cfg.Pacing.FramesInFlight, cfg.Pacing.WaitTimeout.Duration)
	if err != nil {
		device.Close()
		return result, err
	}

	sequencer, err := pacing.NewSequencer(device, pacer)
	if err != nil {
		pacer.Destroy()
		device.Close()
		return result, err
	}

	imageAvailable, err := createImageAvailable(device, pacer.SlotCount())
	if err != nil {
		sequencer.Destroy()
		pacer.Destroy()
		device.Close()
		return result, err
	}

	defer func() {
		_ = device.WaitIdle()
		destroySemaphores(imageAvailable)
		sequencer.Destroy()
		pacer.Destroy()
		_ = device.Close()
	}()

	swapchain, err := simgpu.NewSwapchain(gpu, cfg.Headless.Images)
	if err != nil {
		return result, err
	}
	target := headlessTarget{Swapchain: swapchain, clearColor: cfg.Render.ClearColor}

	logger.Info("rendering headless", "frames", frames, "framesInFlight", pacer.SlotCount(), "latency", cfg.Headless.Latency.Duration)

	start := hrtime.Now()
	for i := 0; i < frames; i++ {
		err = renderFrame(pacer, sequencer, imageAvailable, target)
		if err != nil {
			return result, err
		}
	}

	err = device.WaitIdle()
	if err != nil {
		return result, err
	}

	result = headlessResult{
		Frames:  len(swapchain.Presented()),
		Elapsed: hrtime.Since(start),
		Stats:   pacer.Stats(),
	}
	return result, nil
}

func (r headlessResult) LogValue() slog.Value {
	fps := 0.0
	if r.Elapsed > 0 {
		fps = float64(r.Frames) / r.Elapsed.Seconds()
	}
	return slog.GroupValue(
		slog.Int("frames", r.Frames),
		slog.Duration("elapsed", r.Elapsed),
		slog.Float64("fps", fps),
		slog.Int("waits", r.Stats.Waits),
		slog.Duration("blocked", r.Stats.Blocked),
	)
}
