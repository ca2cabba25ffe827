package main

import (
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_surface"
	"github.com/vkngwrapper/extensions/khr_swapchain"
)

// undefinedExtent is the currentExtent a surface reports when the swapchain
// decides the window size.
const undefinedExtent = 0xFFFFFFFF

type swapchainSupport struct {
	Capabilities *khr_surface.Capabilities
	Formats      []khr_surface.Format
	PresentModes []khr_surface.PresentMode
}

func (app *TriangleApplication) querySwapchainSupport(device core1_0.PhysicalDevice) (swapchainSupport, error) {
	var support swapchainSupport
	var err error

	support.Capabilities, _, err = app.surface.PhysicalDeviceSurfaceCapabilities(device)
	if err != nil {
		return support, err
	}

	support.Formats, _, err = app.surface.PhysicalDeviceSurfaceFormats(device)
	if err != nil {
		return support, err
	}

	support.PresentModes, _, err = app.surface.PhysicalDeviceSurfacePresentModes(device)
	return support, err
}

func chooseSurfaceFormat(formats []khr_surface.Format) khr_surface.Format {
	for _, format := range formats {
		if format.Format == core1_0.FormatB8G8R8A8SRGB && format.ColorSpace == khr_surface.ColorSpaceSRGBNonlinear {
			return format
		}
	}
	return formats[0]
}

// choosePresentMode prefers mailbox, so frames in flight rather than vsync
// bound the CPU. FIFO is always available.
func choosePresentMode(modes []khr_surface.PresentMode) khr_surface.PresentMode {
	for _, mode := range modes {
		if mode == khr_surface.PresentModeMailbox {
			return mode
		}
	}
	return khr_surface.PresentModeFIFO
}

func chooseExtent(capabilities *khr_surface.Capabilities, drawableWidth, drawableHeight int) core1_0.Extent2D {
	if capabilities.CurrentExtent.Width != undefinedExtent {
		return capabilities.CurrentExtent
	}
	return clampExtent(drawableWidth, drawableHeight, capabilities.MinImageExtent, capabilities.MaxImageExtent)
}

// chooseImageCount asks for one image more than the minimum. A MaxImageCount
// of zero means there is no maximum.
func chooseImageCount(capabilities *khr_surface.Capabilities) int {
	count := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && count > capabilities.MaxImageCount {
		count = capabilities.MaxImageCount
	}
	return count
}

func (app *TriangleApplication) createSwapchain() error {
	app.swapchainExtension = khr_swapchain.CreateExtensionFromDevice(app.device)

	support, err := app.querySwapchainSupport(app.physicalDevice)
	if err != nil {
		return err
	}

	format := chooseSurfaceFormat(support.Formats)
	width, height := app.window.VulkanGetDrawableSize()
	extent := chooseExtent(support.Capabilities, int(width), int(height))

	// Graphics and present share a queue family, so images stay exclusive.
	swapchain, _, err := app.swapchainExtension.CreateSwapchain(app.device, nil, khr_swapchain.SwapchainCreateInfo{
		Surface: app.surface,

		MinImageCount:    chooseImageCount(support.Capabilities),
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,
		ImageSharingMode: core1_0.SharingModeExclusive,

		PreTransform:   support.Capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    choosePresentMode(support.PresentModes),
		Clipped:        true,
	})
	if err != nil {
		return err
	}

	app.swapchain = swapchain
	app.swapchainFormat = format.Format
	app.swapchainExtent = extent
	return nil
}

func (app *TriangleApplication) createImageViews() error {
	images, _, err := app.swapchain.SwapchainImages()
	if err != nil {
		return err
	}

	for _, image := range images {
		view, _, err := app.device.CreateImageView(nil, core1_0.ImageViewCreateInfo{
			ViewType: core1_0.ImageViewType2D,
			Image:    image,
			Format:   app.swapchainFormat,
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask: core1_0.ImageAspectColor,
				LevelCount: 1,
				LayerCount: 1,
			},
		})
		if err != nil {
			return err
		}
		app.swapchainImageViews = append(app.swapchainImageViews, view)
	}

	return nil
}
