package main

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/ext_debug_utils"
	"github.com/vkngwrapper/extensions/khr_surface"
	"github.com/vkngwrapper/extensions/khr_swapchain"
	"github.com/vkngwrapper/timeline-triangle/config"
	"github.com/vkngwrapper/timeline-triangle/pacing"
	"github.com/vkngwrapper/timeline-triangle/vkgpu"
)

// TriangleApplication renders into an SDL window. Graphics and present share
// one queue, and the single framebuffer is imageless: the swapchain view is
// bound when each render pass begins.
type TriangleApplication struct {
	cfg    config.Config
	logger *slog.Logger

	window *sdl.Window
	loader core.Loader

	instance       core1_0.Instance
	debugMessenger ext_debug_utils.Messenger
	surface        khr_surface.Surface

	physicalDevice core1_0.PhysicalDevice
	device         core1_0.Device
	queueFamily    int
	queue          core1_0.Queue

	swapchainExtension  khr_swapchain.Extension
	swapchain           khr_swapchain.Swapchain
	swapchainFormat     core1_0.Format
	swapchainExtent     core1_0.Extent2D
	swapchainImageViews []core1_0.ImageView

	renderPass       core1_0.RenderPass
	pipelineLayout   core1_0.PipelineLayout
	graphicsPipeline core1_0.Pipeline
	framebuffer      imagelessFramebuffer

	deviceContext  *pacing.DeviceContext
	pacer          *pacing.Pacer
	sequencer      *pacing.Sequencer
	imageAvailable []pacing.Semaphore
}

func NewTriangleApplication(cfg config.Config, logger *slog.Logger) *TriangleApplication {
	return &TriangleApplication{
		cfg:    cfg,
		logger: logger,
	}
}

func (app *TriangleApplication) Run() error {
	err := app.initWindow()
	if err != nil {
		return err
	}

	err = app.initVulkan()
	defer app.cleanup()
	if err != nil {
		return err
	}

	return app.mainLoop()
}

func (app *TriangleApplication) initWindow() error {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return errors.Wrap(err, "init sdl")
	}

	window, err := sdl.CreateWindow(app.cfg.Window.Title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(app.cfg.Window.Width), int32(app.cfg.Window.Height), sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return errors.Wrap(err, "create window")
	}
	app.window = window

	app.loader, err = core.CreateLoaderFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	return errors.Wrap(err, "load vulkan")
}

func (app *TriangleApplication) initVulkan() error {
	steps := []struct {
		name string
		run  func() error
	}{
		{"create instance", app.createInstance},
		{"debug messenger", app.setupDebugMessenger},
		{"create surface", app.createSurface},
		{"pick physical device", app.pickPhysicalDevice},
		{"create device", app.createLogicalDevice},
		{"create swapchain", app.createSwapchain},
		{"create image views", app.createImageViews},
		{"create render pass", app.createRenderPass},
		{"create pipeline", app.createGraphicsPipeline},
		{"create framebuffer", app.updateFramebuffer},
		{"create frame resources", app.createFrameResources},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return errors.Wrap(err, step.name)
		}
	}
	return nil
}

func (app *TriangleApplication) mainLoop() error {
	rendering := true

appLoop:
	for {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch e := event.(type) {
			case *sdl.QuitEvent:
				break appLoop
			case *sdl.WindowEvent:
				switch e.Event {
				case sdl.WINDOWEVENT_MINIMIZED:
					rendering = false
				case sdl.WINDOWEVENT_RESTORED:
					rendering = true
				case sdl.WINDOWEVENT_RESIZED:
					w, h := app.window.GetSize()
					rendering = w > 0 && h > 0
					if rendering {
						if err := app.recreateSwapchain(); err != nil {
							return err
						}
					}
				}
			}
		}
		if !rendering {
			continue
		}

		err := renderFrame(app.pacer, app.sequencer, app.imageAvailable, app)
		if errors.Is(err, errSwapchainOutOfDate) {
			err = app.recreateSwapchain()
		}
		if err != nil {
			return err
		}
	}

	stats := app.pacer.Stats()
	app.logger.Info("exiting", "frames", stats.Frames, "waits", stats.Waits, "blocked", stats.Blocked)

	return app.deviceContext.WaitIdle()
}

// createFrameResources builds the pacing core on the shared queue.
func (app *TriangleApplication) createFrameResources() error {
	driver, err := vkgpu.NewDriver(app.device, app.queue, app.queueFamily, app.logger)
	if err != nil {
		return err
	}
	app.deviceContext = pacing.NewDeviceContext(driver, app.logger)

	app.pacer, err = pacing.NewPacer(app.deviceContext, app.cfg.Pacing.FramesInFlight, app.cfg.Pacing.WaitTimeout.Duration)
	if err != nil {
		return err
	}

	app.sequencer, err = pacing.NewSequencer(app.deviceContext, app.pacer)
	if err != nil {
		return err
	}

	app.imageAvailable, err = createImageAvailable(app.deviceContext, app.pacer.SlotCount())
	return err
}

// recreateSwapchain rebuilds the swapchain and its views. The render pass and
// pipeline survive because viewport and scissor are dynamic, and the
// framebuffer survives unless the extent changed.
func (app *TriangleApplication) recreateSwapchain() error {
	w, h := app.window.VulkanGetDrawableSize()
	if w == 0 || h == 0 {
		return nil
	}
	if (app.window.GetFlags() & sdl.WINDOW_MINIMIZED) != 0 {
		return nil
	}

	err := app.deviceContext.WaitIdle()
	if err != nil {
		return err
	}

	app.destroySwapchain()

	err = app.createSwapchain()
	if err != nil {
		return err
	}

	err = app.createImageViews()
	if err != nil {
		return err
	}

	err = app.updateFramebuffer()
	if err != nil {
		return err
	}

	app.logger.Debug("recreated swapchain", "width", app.swapchainExtent.Width, "height", app.swapchainExtent.Height)
	return nil
}

func (app *TriangleApplication) destroySwapchain() {
	for _, imageView := range app.swapchainImageViews {
		imageView.Destroy(nil)
	}
	app.swapchainImageViews = nil

	if app.swapchain != nil {
		app.swapchain.Destroy(nil)
		app.swapchain = nil
	}
}

func (app *TriangleApplication) cleanup() {
	if app.deviceContext != nil {
		if err := app.deviceContext.WaitIdle(); err != nil {
			app.logger.Error("wait for device idle", "error", err)
		}
	}

	destroySemaphores(app.imageAvailable)
	if app.sequencer != nil {
		app.sequencer.Destroy()
	}
	if app.pacer != nil {
		app.pacer.Destroy()
	}
	if app.deviceContext != nil {
		if err := app.deviceContext.Close(); err != nil {
			app.logger.Error("close device context", "error", err)
		}
	}

	app.framebuffer.destroy()
	app.destroySwapchain()

	if app.graphicsPipeline != nil {
		app.graphicsPipeline.Destroy(nil)
	}
	if app.pipelineLayout != nil {
		app.pipelineLayout.Destroy(nil)
	}
	if app.renderPass != nil {
		app.renderPass.Destroy(nil)
	}
	if app.device != nil {
		app.device.Destroy(nil)
	}
	if app.debugMessenger != nil {
		app.debugMessenger.Destroy(nil)
	}
	if app.surface != nil {
		app.surface.Destroy(nil)
	}
	if app.instance != nil {
		app.instance.Destroy(nil)
	}
	if app.window != nil {
		app.window.Destroy()
	}
	sdl.Quit()
}
