package main

import (
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/core/core1_2"
	"github.com/vkngwrapper/extensions/khr_swapchain"
	"github.com/vkngwrapper/timeline-triangle/shaders"
)

func (app *TriangleApplication) createRenderPass() error {
	renderPass, _, err := app.device.CreateRenderPass(nil, core1_0.RenderPassCreateInfo{
		Attachments: []core1_0.AttachmentDescription{
			{
				Format:         app.swapchainFormat,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
				FinalLayout:    khr_swapchain.ImageLayoutPresentSrc,
			},
		},
		Subpasses: []core1_0.SubpassDescription{
			{
				PipelineBindPoint: core1_0.PipelineBindPointGraphics,
				ColorAttachments: []core1_0.AttachmentReference{
					{
						Attachment: 0,
						Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
					},
				},
			},
		},
		// The first use of a swapchain image waits on imageAvailable at the
		// color output stage, so the layout transition must wait there too.
		SubpassDependencies: []core1_0.SubpassDependency{
			{
				SrcSubpass:    core1_0.SubpassExternal,
				DstSubpass:    0,
				SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput,
				DstStageMask:  core1_0.PipelineStageColorAttachmentOutput,
				DstAccessMask: core1_0.AccessColorAttachmentWrite,
			},
		},
	})
	if err != nil {
		return err
	}

	app.renderPass = renderPass
	return nil
}

func (app *TriangleApplication) createShaderModule(name, override string) (core1_0.ShaderModule, error) {
	code, err := shaders.Load(name, override)
	if err != nil {
		return nil, err
	}

	module, _, err := app.device.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: code,
	})
	return module, err
}

func (app *TriangleApplication) createGraphicsPipeline() error {
	vertShader, err := app.createShaderModule(shaders.Vertex, app.cfg.Render.VertexShader)
	if err != nil {
		return err
	}
	defer vertShader.Destroy(nil)

	fragShader, err := app.createShaderModule(shaders.Fragment, app.cfg.Render.FragmentShader)
	if err != nil {
		return err
	}
	defer fragShader.Destroy(nil)

	app.pipelineLayout, _, err = app.device.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{})
	if err != nil {
		return err
	}

	pipelines, _, err := app.device.CreateGraphicsPipelines(nil, nil, []core1_0.GraphicsPipelineCreateInfo{
		{
			Stages: []core1_0.PipelineShaderStageCreateInfo{
				{Stage: core1_0.StageVertex, Module: vertShader, Name: "main"},
				{Stage: core1_0.StageFragment, Module: fragShader, Name: "main"},
			},
			VertexInputState: &core1_0.PipelineVertexInputStateCreateInfo{},
			InputAssemblyState: &core1_0.PipelineInputAssemblyStateCreateInfo{
				Topology: core1_0.PrimitiveTopologyTriangleList,
			},
			// Set per frame; only the counts matter here.
			ViewportState: &core1_0.PipelineViewportStateCreateInfo{
				Viewports: []core1_0.Viewport{flippedViewport(app.swapchainExtent)},
				Scissors:  []core1_0.Rect2D{fullScissor(app.swapchainExtent)},
			},
			// The flipped viewport mirrors winding, so counter-clockwise in
			// clip space is front facing.
			RasterizationState: &core1_0.PipelineRasterizationStateCreateInfo{
				PolygonMode: core1_0.PolygonModeFill,
				CullMode:    core1_0.CullModeBack,
				FrontFace:   core1_0.FrontFaceCounterClockwise,
				LineWidth:   1.0,
			},
			MultisampleState: &core1_0.PipelineMultisampleStateCreateInfo{
				RasterizationSamples: core1_0.Samples1,
				MinSampleShading:     1.0,
			},
			ColorBlendState: &core1_0.PipelineColorBlendStateCreateInfo{
				LogicOp: core1_0.LogicOpCopy,
				Attachments: []core1_0.PipelineColorBlendAttachmentState{
					{
						ColorWriteMask: core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
					},
				},
			},
			DynamicState: &core1_0.PipelineDynamicStateCreateInfo{
				DynamicStates: []core1_0.DynamicState{
					core1_0.DynamicStateViewport,
					core1_0.DynamicStateScissor,
				},
			},
			Layout:            app.pipelineLayout,
			RenderPass:        app.renderPass,
			Subpass:           0,
			BasePipelineIndex: -1,
		},
	})
	if err != nil {
		return err
	}

	app.graphicsPipeline = pipelines[0]
	return nil
}

// framebufferShape is everything an imageless framebuffer is specialized on.
// Any swapchain view with the same shape can be bound to it.
type framebufferShape struct {
	Extent core1_0.Extent2D
	Format core1_0.Format
}

// imagelessFramebuffer is the one framebuffer shared by every swapchain
// image.
type imagelessFramebuffer struct {
	handle core1_0.Framebuffer
	shape  framebufferShape
}

// stale reports whether the framebuffer must be rebuilt for shape.
func (f *imagelessFramebuffer) stale(shape framebufferShape) bool {
	return f.handle == nil || f.shape != shape
}

func (f *imagelessFramebuffer) destroy() {
	if f.handle != nil {
		f.handle.Destroy(nil)
		f.handle = nil
	}
}

// imagelessFramebufferInfo describes a framebuffer whose single color
// attachment is supplied at render pass begin. The attachment list still
// needs one entry for the count; Vulkan ignores the view itself.
func imagelessFramebufferInfo(renderPass core1_0.RenderPass, placeholder core1_0.ImageView, shape framebufferShape) core1_0.FramebufferCreateInfo {
	info := core1_0.FramebufferCreateInfo{
		Flags:       core1_2.FramebufferCreateImageless,
		RenderPass:  renderPass,
		Attachments: []core1_0.ImageView{placeholder},
		Width:       shape.Extent.Width,
		Height:      shape.Extent.Height,
		Layers:      1,
	}
	info.Next = core1_2.FramebufferAttachmentsCreateInfo{
		AttachmentImageInfos: []core1_2.FramebufferAttachmentImageInfo{
			{
				Usage:       core1_0.ImageUsageColorAttachment,
				Width:       shape.Extent.Width,
				Height:      shape.Extent.Height,
				LayerCount:  1,
				ViewFormats: []core1_0.Format{shape.Format},
			},
		},
	}
	return info
}

// updateFramebuffer rebuilds the imageless framebuffer when the swapchain
// changed size or format. The caller has already drained the device.
func (app *TriangleApplication) updateFramebuffer() error {
	shape := framebufferShape{Extent: app.swapchainExtent, Format: app.swapchainFormat}
	if !app.framebuffer.stale(shape) {
		return nil
	}

	app.framebuffer.destroy()
	framebuffer, _, err := app.device.CreateFramebuffer(nil, imagelessFramebufferInfo(app.renderPass, app.swapchainImageViews[0], shape))
	if err != nil {
		return err
	}

	app.framebuffer = imagelessFramebuffer{handle: framebuffer, shape: shape}
	app.logger.Debug("created imageless framebuffer", "width", shape.Extent.Width, "height", shape.Extent.Height)
	return nil
}
