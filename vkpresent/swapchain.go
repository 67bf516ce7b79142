package vkpresent

import (
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

func (p *Presenter) createSwapChain() error {
	swapChainSupport, err := p.querySwapChainSupport(p.physicalDevice)
	if err != nil {
		return err
	}

	surfaceFormat, swizzle, err := chooseSwapSurfaceFormat(swapChainSupport.formats)
	if err != nil {
		return err
	}
	presentMode := chooseSwapPresentMode(swapChainSupport.presentModes)
	fbw, fbh := p.window.GetFramebufferSize()
	caps := swapChainSupport.capabilities
	if err := checkImageUsage(caps.SupportedUsageFlags); err != nil {
		return err
	}
	extent := chooseSwapExtent(caps.CurrentExtent, caps.MinImageExtent, caps.MaxImageExtent, fbw, fbh)

	imageCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          p.surface,
		MinImageCount:    imageCount,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageFormat:      surfaceFormat.Format,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       swapImageUsage,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
	}

	families := p.indices.Unique()
	if len(families) > 1 {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = uint32(len(families))
		createInfo.PQueueFamilyIndices = families
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var swapChain vk.Swapchain
	res := vk.CreateSwapchain(p.device, &createInfo, nil, &swapChain)
	if err := vk.Error(res); err != nil {
		return fmt.Errorf("failed to create swap chain: %w", err)
	}
	p.swapChain = swapChain

	var imagesCount uint32
	vk.GetSwapchainImages(p.device, p.swapChain, &imagesCount, nil)

	images := make([]vk.Image, imagesCount)
	vk.GetSwapchainImages(p.device, p.swapChain, &imagesCount, images)

	p.swapChainImages = images
	p.swapChainFormat = surfaceFormat
	p.swapChainExtent = extent
	p.swizzle = swizzle

	p.log.Debug("swap chain created",
		"width", extent.Width,
		"height", extent.Height,
		"images", imagesCount,
		"swizzle", swizzle,
	)
	return nil
}

func (p *Presenter) recreateSwapChain() error {
	vk.DeviceWaitIdle(p.device)

	p.cleanupSwapChain()

	if err := p.createSwapChain(); err != nil {
		return fmt.Errorf("createSwapChain: %w", err)
	}
	if err := p.createStagingBuffers(); err != nil {
		return fmt.Errorf("createStagingBuffers: %w", err)
	}

	return nil
}

func (p *Presenter) cleanupSwapChain() {
	for i, buffer := range p.stagingBuffers {
		vk.UnmapMemory(p.device, p.stagingBuffersMemory[i])
		vk.DestroyBuffer(p.device, buffer, nil)
		vk.FreeMemory(p.device, p.stagingBuffersMemory[i], nil)
	}
	p.stagingBuffers = nil
	p.stagingBuffersMemory = nil
	p.stagingBuffersMapped = nil

	if p.swapChain != vk.NullSwapchain {
		vk.DestroySwapchain(p.device, p.swapChain, nil)
		p.swapChain = vk.NullSwapchain
	}
	p.swapChainImages = nil
}

func (p *Presenter) createCommandPool() error {
	poolInfo := vk.CommandPoolCreateInfo{
		SType: vk.StructureTypeCommandPoolCreateInfo,
		Flags: vk.CommandPoolCreateFlags(
			vk.CommandPoolCreateResetCommandBufferBit,
		),
		QueueFamilyIndex: p.indices.Graphics.Get(),
	}

	var commandPool vk.CommandPool
	res := vk.CreateCommandPool(p.device, &poolInfo, nil, &commandPool)
	if err := vk.Error(res); err != nil {
		return fmt.Errorf("failed to create command pool: %w", err)
	}
	p.commandPool = commandPool

	return nil
}

func (p *Presenter) createCommandBuffers() error {
	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        p.commandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: maxFramesInFlight,
	}

	commandBuffers := make([]vk.CommandBuffer, maxFramesInFlight)
	res := vk.AllocateCommandBuffers(p.device, &allocInfo, commandBuffers)
	if err := vk.Error(res); err != nil {
		return fmt.Errorf("failed to allocate command buffer: %w", err)
	}
	p.commandBuffers = commandBuffers

	return nil
}

func (p *Presenter) createSyncObjects() error {
	semaphoreInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}

	fenceInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}

	for i := 0; i < maxFramesInFlight; i++ {
		var imageAvailableSem vk.Semaphore
		if err := vk.Error(
			vk.CreateSemaphore(p.device, &semaphoreInfo, nil, &imageAvailableSem),
		); err != nil {
			return fmt.Errorf("failed to create imageAvailableSem: %w", err)
		}
		p.imageAvailableSems = append(p.imageAvailableSems, imageAvailableSem)

		var transferDoneSem vk.Semaphore
		if err := vk.Error(
			vk.CreateSemaphore(p.device, &semaphoreInfo, nil, &transferDoneSem),
		); err != nil {
			return fmt.Errorf("failed to create transferDoneSem: %w", err)
		}
		p.transferDoneSems = append(p.transferDoneSems, transferDoneSem)

		var fence vk.Fence
		if err := vk.Error(
			vk.CreateFence(p.device, &fenceInfo, nil, &fence),
		); err != nil {
			return fmt.Errorf("failed to create inFlightFence: %w", err)
		}
		p.inFlightFences = append(p.inFlightFences, fence)
	}

	return nil
}

// createStagingBuffers creates one persistently mapped staging buffer per
// frame in flight, sized for the current swapchain extent.
func (p *Presenter) createStagingBuffers() error {
	w, h := p.Extent()
	size := vk.DeviceSize(w * h * 4)
	p.scratch = make([]uint32, w*h)
	if size == 0 {
		return fmt.Errorf("swap chain extent %dx%d is empty", w, h)
	}

	for i := 0; i < maxFramesInFlight; i++ {
		var (
			buffer       vk.Buffer
			bufferMemory vk.DeviceMemory
		)
		err := p.createBuffer(
			size,
			vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
			vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|
				vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit),
			&buffer,
			&bufferMemory,
		)
		if err != nil {
			return fmt.Errorf("failed to create staging buffer %d: %w", i, err)
		}

		var pData unsafe.Pointer
		res := vk.MapMemory(p.device, bufferMemory, 0, size, 0, &pData)
		if err := vk.Error(res); err != nil {
			vk.DestroyBuffer(p.device, buffer, nil)
			vk.FreeMemory(p.device, bufferMemory, nil)
			return fmt.Errorf("failed to map staging buffer %d: %w", i, err)
		}

		p.stagingBuffers = append(p.stagingBuffers, buffer)
		p.stagingBuffersMemory = append(p.stagingBuffersMemory, bufferMemory)
		p.stagingBuffersMapped = append(p.stagingBuffersMapped, pData)
	}

	return nil
}

func (p *Presenter) createBuffer(
	size vk.DeviceSize,
	usage vk.BufferUsageFlags,
	properties vk.MemoryPropertyFlags,
	buffer *vk.Buffer,
	bufferMemory *vk.DeviceMemory,
) error {
	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	res := vk.CreateBuffer(p.device, &bufferInfo, nil, buffer)
	if res != vk.Success {
		return fmt.Errorf("failed to create buffer: %w", vk.Error(res))
	}

	var memRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(p.device, *buffer, &memRequirements)
	memRequirements.Deref()

	memTypeIndex, err := p.findMemoryType(memRequirements.MemoryTypeBits, properties)
	if err != nil {
		vk.DestroyBuffer(p.device, *buffer, nil)
		return err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memTypeIndex,
	}

	res = vk.AllocateMemory(p.device, &allocInfo, nil, bufferMemory)
	if res != vk.Success {
		vk.DestroyBuffer(p.device, *buffer, nil)
		return fmt.Errorf("failed to allocate buffer memory: %w", vk.Error(res))
	}

	res = vk.BindBufferMemory(p.device, *buffer, *bufferMemory, 0)
	if res != vk.Success {
		vk.DestroyBuffer(p.device, *buffer, nil)
		vk.FreeMemory(p.device, *bufferMemory, nil)
		return fmt.Errorf("failed to bind buffer memory: %w", vk.Error(res))
	}

	return nil
}

func (p *Presenter) findMemoryType(
	typeFilter uint32,
	properties vk.MemoryPropertyFlags,
) (uint32, error) {
	var memProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(p.physicalDevice, &memProperties)
	memProperties.Deref()

	for i := uint32(0); i < memProperties.MemoryTypeCount; i++ {
		memType := memProperties.MemoryTypes[i]
		memType.Deref()

		if typeFilter&(1<<i) == 0 {
			continue
		}

		if memType.PropertyFlags&properties != properties {
			continue
		}

		return i, nil
	}

	return 0, fmt.Errorf("failed to find suitable memory type")
}
