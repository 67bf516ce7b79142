package vkpresent

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"model-viewer/queues"
)

func (p *Presenter) createInstance(appName string) error {
	if p.enableValidationLayers && !p.checkValidationSupport() {
		return fmt.Errorf("validation layers requested but not available")
	}

	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   appName + "\x00",
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        "No Engine\x00",
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.ApiVersion10,
	}

	glfwExtensions := p.window.GetRequiredInstanceExtensions()
	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(glfwExtensions)),
		PpEnabledExtensionNames: glfwExtensions,
	}

	if p.enableValidationLayers {
		createInfo.EnabledLayerCount = uint32(len(p.validationLayers))
		createInfo.PpEnabledLayerNames = p.validationLayers
	}

	var instance vk.Instance
	if err := vk.Error(vk.CreateInstance(&createInfo, nil, &instance)); err != nil {
		return fmt.Errorf("failed to create Vulkan instance: %w", err)
	}

	p.instance = instance
	return nil
}

func (p *Presenter) createSurface() error {
	surfacePtr, err := p.window.CreateWindowSurface(p.instance, nil)
	if err != nil {
		return fmt.Errorf("cannot create surface within GLFW window: %w", err)
	}

	p.surface = vk.SurfaceFromPointer(surfacePtr)
	return nil
}

func (p *Presenter) pickPhysicalDevice() error {
	var deviceCount uint32
	err := vk.Error(vk.EnumeratePhysicalDevices(p.instance, &deviceCount, nil))
	if err != nil {
		return fmt.Errorf("failed to get the number of physical devices: %w", err)
	}
	if deviceCount == 0 {
		return fmt.Errorf("failed to find GPUs with Vulkan support")
	}

	pDevices := make([]vk.PhysicalDevice, deviceCount)
	err = vk.Error(vk.EnumeratePhysicalDevices(p.instance, &deviceCount, pDevices))
	if err != nil {
		return fmt.Errorf("failed to enumerate the physical devices: %w", err)
	}

	var (
		selectedDevice vk.PhysicalDevice
		score          uint32
	)

	for _, device := range pDevices {
		deviceScore := p.getDeviceScore(device)

		if deviceScore > score {
			selectedDevice = device
			score = deviceScore
		}
	}

	if selectedDevice == vk.PhysicalDevice(vk.NullHandle) {
		return fmt.Errorf("failed to find suitable physical devices")
	}

	p.physicalDevice = selectedDevice
	p.indices = p.findQueueFamilies(selectedDevice)
	return nil
}

func (p *Presenter) createLogicalDevice() error {
	indices := p.indices
	if !indices.IsComplete() {
		return fmt.Errorf("createLogicalDevice called for physical device which does " +
			"not have all the queues required by the program")
	}

	queueCreateInfos := []vk.DeviceQueueCreateInfo{}

	for _, familyIndex := range indices.Unique() {
		queueCreateInfos = append(
			queueCreateInfos,
			vk.DeviceQueueCreateInfo{
				SType:            vk.StructureTypeDeviceQueueCreateInfo,
				QueueFamilyIndex: familyIndex,
				QueueCount:       1,
				PQueuePriorities: []float32{1.0},
			},
		)
	}

	createInfo := vk.DeviceCreateInfo{
		SType:            vk.StructureTypeDeviceCreateInfo,
		PEnabledFeatures: []vk.PhysicalDeviceFeatures{{}},

		PQueueCreateInfos:    queueCreateInfos,
		QueueCreateInfoCount: uint32(len(queueCreateInfos)),

		EnabledExtensionCount:   uint32(len(p.deviceExtensions)),
		PpEnabledExtensionNames: p.deviceExtensions,
	}

	if p.enableValidationLayers {
		createInfo.PpEnabledLayerNames = p.validationLayers
		createInfo.EnabledLayerCount = uint32(len(p.validationLayers))
	}

	var device vk.Device
	err := vk.Error(vk.CreateDevice(p.physicalDevice, &createInfo, nil, &device))
	if err != nil {
		return fmt.Errorf("failed to create logical device: %w", err)
	}
	p.device = device

	var graphicsQueue vk.Queue
	vk.GetDeviceQueue(p.device, indices.Graphics.Get(), 0, &graphicsQueue)
	p.graphicsQueue = graphicsQueue

	var presentQueue vk.Queue
	vk.GetDeviceQueue(p.device, indices.Present.Get(), 0, &presentQueue)
	p.presentQueue = presentQueue

	return nil
}

// findQueueFamilies returns the queue families of device used to copy and
// present frames.
func (p *Presenter) findQueueFamilies(device vk.PhysicalDevice) queues.FamilyIndices {
	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)

	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	families := make([]queues.Family, 0, len(queueFamilies))
	for i, family := range queueFamilies {
		family.Deref()

		var hasPresent vk.Bool32
		err := vk.Error(
			vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), p.surface, &hasPresent),
		)
		if err != nil {
			p.log.Warn("querying surface support", "family", i, "err", err)
		}

		families = append(families, queues.Family{
			Flags:      family.QueueFlags,
			Count:      family.QueueCount,
			CanPresent: err == nil && hasPresent.B(),
		})
	}

	return queues.Find(families)
}

type swapChainSupportDetails struct {
	capabilities vk.SurfaceCapabilities
	formats      []vk.SurfaceFormat
	presentModes []vk.PresentMode
}

func (p *Presenter) querySwapChainSupport(
	device vk.PhysicalDevice,
) (swapChainSupportDetails, error) {
	details := swapChainSupportDetails{}

	var capabilities vk.SurfaceCapabilities
	res := vk.GetPhysicalDeviceSurfaceCapabilities(device, p.surface, &capabilities)
	if err := vk.Error(res); err != nil {
		return details, fmt.Errorf("failed to query device surface capabilities: %w", err)
	}
	capabilities.Deref()
	capabilities.CurrentExtent.Deref()
	capabilities.MinImageExtent.Deref()
	capabilities.MaxImageExtent.Deref()

	details.capabilities = capabilities

	var formatCount uint32
	res = vk.GetPhysicalDeviceSurfaceFormats(device, p.surface, &formatCount, nil)
	if err := vk.Error(res); err != nil {
		return details, fmt.Errorf("failed to query device surface formats: %w", err)
	}

	if formatCount != 0 {
		formats := make([]vk.SurfaceFormat, formatCount)
		vk.GetPhysicalDeviceSurfaceFormats(device, p.surface, &formatCount, formats)
		for _, format := range formats {
			format.Deref()
			details.formats = append(details.formats, format)
		}
	}

	var presentModeCount uint32
	res = vk.GetPhysicalDeviceSurfacePresentModes(
		device, p.surface, &presentModeCount, nil,
	)
	if err := vk.Error(res); err != nil {
		return details, fmt.Errorf("failed to query device surface present modes: %w", err)
	}

	if presentModeCount != 0 {
		presentModes := make([]vk.PresentMode, presentModeCount)
		vk.GetPhysicalDeviceSurfacePresentModes(
			device, p.surface, &presentModeCount, presentModes,
		)
		details.presentModes = presentModes
	}

	return details, nil
}

// getDeviceScore returns how suitable is this device for the current program.
// Bigger score means better. Zero means the device cannot be used.
func (p *Presenter) getDeviceScore(device vk.PhysicalDevice) uint32 {
	var (
		deviceScore uint32
		properties  vk.PhysicalDeviceProperties
	)

	vk.GetPhysicalDeviceProperties(device, &properties)
	properties.Deref()

	if properties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
		deviceScore += 1000
	} else {
		deviceScore++
	}

	if !p.isDeviceSuitable(device) {
		deviceScore = 0
	}

	p.log.Debug("available device",
		"name", vk.ToString(properties.DeviceName[:]),
		"score", deviceScore,
	)

	return deviceScore
}

func (p *Presenter) isDeviceSuitable(device vk.PhysicalDevice) bool {
	indices := p.findQueueFamilies(device)
	if !indices.IsComplete() || !p.checkDeviceExtensionSupport(device) {
		return false
	}

	support, err := p.querySwapChainSupport(device)
	if err != nil {
		p.log.Warn("querying swap chain support", "err", err)
		return false
	}
	if _, _, err := chooseSwapSurfaceFormat(support.formats); err != nil {
		return false
	}

	return len(support.presentModes) > 0 &&
		checkImageUsage(support.capabilities.SupportedUsageFlags) == nil
}

func (p *Presenter) checkDeviceExtensionSupport(device vk.PhysicalDevice) bool {
	var extensionsCount uint32
	res := vk.EnumerateDeviceExtensionProperties(device, "", &extensionsCount, nil)
	if err := vk.Error(res); err != nil {
		p.log.Warn("enumerating device extension properties count", "err", err)
		return false
	}

	availableExtensions := make([]vk.ExtensionProperties, extensionsCount)
	res = vk.EnumerateDeviceExtensionProperties(device, "", &extensionsCount,
		availableExtensions)
	if err := vk.Error(res); err != nil {
		p.log.Warn("getting device extension properties", "err", err)
		return false
	}

	requiredExtensions := make(map[string]struct{})
	for _, extensionName := range p.deviceExtensions {
		requiredExtensions[extensionName] = struct{}{}
	}

	for _, extension := range availableExtensions {
		extension.Deref()
		extensionName := vk.ToString(extension.ExtensionName[:])

		delete(requiredExtensions, extensionName+"\x00")
	}

	return len(requiredExtensions) == 0
}

func (p *Presenter) checkValidationSupport() bool {
	var count uint32
	if vk.EnumerateInstanceLayerProperties(&count, nil) != vk.Success {
		return false
	}
	availableLayers := make([]vk.LayerProperties, count)

	if vk.EnumerateInstanceLayerProperties(&count, availableLayers) != vk.Success {
		return false
	}

	available := make(map[string]struct{}, count)
	for _, layer := range availableLayers {
		layer.Deref()
		available[vk.ToString(layer.LayerName[:])+"\x00"] = struct{}{}
	}

	for _, validationLayer := range p.validationLayers {
		if _, ok := available[validationLayer]; !ok {
			return false
		}
	}

	return true
}
