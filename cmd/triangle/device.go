package main

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/core/core1_2"
	"github.com/vkngwrapper/extensions/ext_debug_utils"
	"github.com/vkngwrapper/extensions/khr_portability_subset"
	"github.com/vkngwrapper/extensions/khr_swapchain"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2"
)

var validationLayers = []string{"VK_LAYER_KHRONOS_validation"}
var deviceExtensions = []string{khr_swapchain.ExtensionName}

func (app *TriangleApplication) createInstance() error {
	createInfo := core1_0.InstanceCreateInfo{
		ApplicationName:    app.cfg.Window.Title,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "No Engine",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	available, _, err := app.loader.AvailableExtensions()
	if err != nil {
		return err
	}
	for _, ext := range app.window.VulkanGetInstanceExtensions() {
		if _, ok := available[ext]; !ok {
			return errors.Newf("sdl needs missing instance extension %s", ext)
		}
		createInfo.EnabledExtensionNames = append(createInfo.EnabledExtensionNames, ext)
	}

	if app.cfg.Render.Validation {
		layers, _, err := app.loader.AvailableLayers()
		if err != nil {
			return err
		}
		for _, layer := range validationLayers {
			if _, ok := layers[layer]; !ok {
				return errors.Newf("validation layer %s not available; install the Vulkan SDK or disable render.validation", layer)
			}
			createInfo.EnabledLayerNames = append(createInfo.EnabledLayerNames, layer)
		}

		createInfo.EnabledExtensionNames = append(createInfo.EnabledExtensionNames, ext_debug_utils.ExtensionName)
		createInfo.Next = app.debugMessengerInfo()
	}

	app.instance, _, err = app.loader.CreateInstance(nil, createInfo)
	return err
}

func (app *TriangleApplication) debugMessengerInfo() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    app.logDebug,
	}
}

func (app *TriangleApplication) setupDebugMessenger() error {
	if !app.cfg.Render.Validation {
		return nil
	}

	debugUtils := ext_debug_utils.CreateExtensionFromInstance(app.instance)
	if debugUtils == nil {
		return errors.Newf("%s is not active on the instance", ext_debug_utils.ExtensionName)
	}

	var err error
	app.debugMessenger, _, err = debugUtils.CreateDebugUtilsMessenger(app.instance, nil, app.debugMessengerInfo())
	return err
}

func (app *TriangleApplication) logDebug(msgType ext_debug_utils.MessageTypes, severity ext_debug_utils.MessageSeverities, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	level := slog.LevelWarn
	if severity&ext_debug_utils.SeverityError != 0 {
		level = slog.LevelError
	}
	app.logger.Log(context.Background(), level, data.Message, "type", msgType.String(), "severity", severity.String())
	return false
}

func (app *TriangleApplication) createSurface() error {
	surface, _, err := vkng_sdl2.CreateExtensionFromInstance(app.instance).CreateSurface(app.instance, app.window)
	if err != nil {
		return err
	}
	app.surface = surface
	return nil
}

// pickPhysicalDevice takes the first Vulkan 1.2 device with the swapchain
// extension, a usable surface, and one queue family that can both draw and
// present.
func (app *TriangleApplication) pickPhysicalDevice() error {
	physicalDevices, _, err := app.instance.EnumeratePhysicalDevices()
	if err != nil {
		return err
	}

	for _, device := range physicalDevices {
		family, ok, err := app.suitableQueueFamily(device)
		if err != nil {
			return err
		}
		if ok {
			app.physicalDevice = device
			app.queueFamily = family
			app.logDeviceSelected(device, family)
			return nil
		}
	}

	return errors.New("no GPU with Vulkan 1.2 can draw and present to the window")
}

func (app *TriangleApplication) logDeviceSelected(device core1_0.PhysicalDevice, family int) {
	properties, err := device.Properties()
	if err != nil {
		app.logger.Warn("read gpu properties", "error", err)
		return
	}
	app.logger.Info("selected gpu", "name", properties.DriverName, "api", properties.APIVersion.String(), "queueFamily", family)
}

func (app *TriangleApplication) suitableQueueFamily(device core1_0.PhysicalDevice) (int, bool, error) {
	if !device.DeviceAPIVersion().IsAtLeast(common.Vulkan1_2) {
		return 0, false, nil
	}

	extensions, _, err := device.EnumerateDeviceExtensionProperties()
	if err != nil {
		return 0, false, err
	}
	for _, name := range deviceExtensions {
		if _, ok := extensions[name]; !ok {
			return 0, false, nil
		}
	}

	support, err := app.querySwapchainSupport(device)
	if err != nil {
		return 0, false, err
	}
	if len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		return 0, false, nil
	}

	return selectQueueFamily(device.QueueFamilyProperties(), func(index int) (bool, error) {
		supported, _, err := app.surface.PhysicalDeviceSurfaceSupport(device, index)
		return supported, err
	})
}

// selectQueueFamily returns the first family with graphics support that can
// also present.
func selectQueueFamily(families []*core1_0.QueueFamily, canPresent func(index int) (bool, error)) (int, bool, error) {
	for index, family := range families {
		if family.QueueFlags&core1_0.QueueGraphics == 0 {
			continue
		}

		supported, err := canPresent(index)
		if err != nil {
			return 0, false, err
		}
		if supported {
			return index, true, nil
		}
	}
	return 0, false, nil
}

// deviceCreateInfo asks for one queue from family and the Vulkan 1.2 features
// this renderer depends on. Both features are mandatory in Vulkan 1.2, so any
// device that passed pickPhysicalDevice has them.
func deviceCreateInfo(family int, extensions []string) core1_0.DeviceCreateInfo {
	info := core1_0.DeviceCreateInfo{
		QueueCreateInfos: []core1_0.DeviceQueueCreateInfo{
			{
				QueueFamilyIndex: family,
				QueuePriorities:  []float32{1.0},
			},
		},
		EnabledFeatures:       &core1_0.PhysicalDeviceFeatures{},
		EnabledExtensionNames: extensions,
	}
	info.Next = core1_2.PhysicalDeviceVulkan12Features{
		TimelineSemaphore:    true,
		ImagelessFramebuffer: true,
	}
	return info
}

func (app *TriangleApplication) createLogicalDevice() error {
	extensionNames := append([]string(nil), deviceExtensions...)

	// Required on portability implementations such as MoltenVK.
	extensions, _, err := app.physicalDevice.EnumerateDeviceExtensionProperties()
	if err != nil {
		return err
	}
	if _, ok := extensions[khr_portability_subset.ExtensionName]; ok {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	app.device, _, err = app.physicalDevice.CreateDevice(nil, deviceCreateInfo(app.queueFamily, extensionNames))
	if err != nil {
		return err
	}

	app.queue = app.device.GetQueue(app.queueFamily, 0)
	return nil
}
