package main

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/core/core1_2"
	"github.com/vkngwrapper/extensions/khr_swapchain"
	"github.com/vkngwrapper/timeline-triangle/pacing"
	"github.com/vkngwrapper/timeline-triangle/vkgpu"
)

func (app *TriangleApplication) Acquire(imageAvailable pacing.Semaphore) (int, error) {
	semaphore, ok := imageAvailable.(*vkgpu.Semaphore)
	if !ok {
		return 0, errors.Newf("%T is not a vulkan semaphore", imageAvailable)
	}

	image, res, err := app.swapchain.AcquireNextImage(common.NoTimeout, semaphore.Handle(), nil)
	if res == khr_swapchain.VKErrorOutOfDate {
		return 0, errSwapchainOutOfDate
	} else if err != nil {
		return 0, errors.Wrap(err, "acquire swapchain image")
	}
	return image, nil
}

// renderPassBeginInfo clears and renders the whole extent, binding view to
// the imageless framebuffer's only attachment.
func renderPassBeginInfo(renderPass core1_0.RenderPass, framebuffer core1_0.Framebuffer, view core1_0.ImageView, extent core1_0.Extent2D, clear [4]float32) core1_0.RenderPassBeginInfo {
	info := core1_0.RenderPassBeginInfo{
		RenderPass:  renderPass,
		Framebuffer: framebuffer,
		RenderArea:  fullScissor(extent),
		ClearValues: []core1_0.ClearValue{core1_0.ClearValueFloat(clear)},
	}
	info.Next = core1_2.RenderPassAttachmentBeginInfo{
		Attachments: []core1_0.ImageView{view},
	}
	return info
}

func (app *TriangleApplication) Record(frame pacing.Frame, image int) error {
	buffer, ok := frame.Buffer.(*vkgpu.CommandBuffer)
	if !ok {
		return errors.Newf("%T is not a vulkan command buffer", frame.Buffer)
	}

	err := buffer.CmdBeginRenderPass(core1_0.SubpassContentsInline, renderPassBeginInfo(
		app.renderPass, app.framebuffer.handle, app.swapchainImageViews[image],
		app.swapchainExtent, app.cfg.Render.ClearColor))
	if err != nil {
		return err
	}

	buffer.CmdBindPipeline(core1_0.PipelineBindPointGraphics, app.graphicsPipeline)
	buffer.CmdSetViewport([]core1_0.Viewport{flippedViewport(app.swapchainExtent)})
	buffer.CmdSetScissor([]core1_0.Rect2D{fullScissor(app.swapchainExtent)})
	buffer.CmdDraw(3, 1, 0, 0)
	buffer.CmdEndRenderPass()
	return nil
}

func (app *TriangleApplication) Present(image int, renderComplete pacing.Semaphore) error {
	semaphore, ok := renderComplete.(*vkgpu.Semaphore)
	if !ok {
		return errors.Newf("%T is not a vulkan semaphore", renderComplete)
	}

	res, err := app.swapchainExtension.QueuePresent(app.queue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{semaphore.Handle()},
		Swapchains:     []khr_swapchain.Swapchain{app.swapchain},
		ImageIndices:   []int{image},
	})
	if res == khr_swapchain.VKErrorOutOfDate || res == khr_swapchain.VKSuboptimal {
		return errSwapchainOutOfDate
	} else if err != nil {
		return errors.Wrapf(err, "present image %d", image)
	}
	return nil
}
