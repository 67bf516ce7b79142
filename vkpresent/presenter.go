// Package vkpresent shows frames rendered on the CPU in a glfw window.
//
// Each frame is written to a host visible staging buffer and copied into
// the acquired swapchain image with a transfer command. No pipeline or
// shaders are involved.
package vkpresent

import (
	"fmt"
	"log/slog"
	"math"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"

	"model-viewer/queues"
	"model-viewer/unsafer"
)

const maxFramesInFlight = 2

// Options configures New.
type Options struct {
	AppName string

	// Validation enables the Khronos validation layer.
	Validation bool

	Log *slog.Logger
}

// Presenter owns the Vulkan instance, device and swapchain for one window.
type Presenter struct {
	window *glfw.Window
	log    *slog.Logger

	// validationLayers is the list of required device extensions needed by this
	// program when validation is enabled.
	validationLayers       []string
	enableValidationLayers bool

	// deviceExtensions is the list of required device extensions needed by this
	// program.
	deviceExtensions []string

	instance vk.Instance

	// physicalDevice is the physical device selected for this program.
	physicalDevice vk.PhysicalDevice

	// device is the logical device created for interfacing with the physical device.
	device  vk.Device
	indices queues.FamilyIndices

	graphicsQueue vk.Queue
	presentQueue  vk.Queue

	surface vk.Surface

	swapChain       vk.Swapchain
	swapChainImages []vk.Image
	swapChainFormat vk.SurfaceFormat
	swapChainExtent vk.Extent2D
	swizzle         bool

	commandPool    vk.CommandPool
	commandBuffers []vk.CommandBuffer

	imageAvailableSems []vk.Semaphore
	transferDoneSems   []vk.Semaphore
	inFlightFences     []vk.Fence

	stagingBuffers       []vk.Buffer
	stagingBuffersMemory []vk.DeviceMemory
	stagingBuffersMapped []unsafe.Pointer
	scratch              []uint32

	frameBufferResized bool

	currentFrame uint32
}

// New sets up Vulkan for presenting into window. The window must have been
// created with the glfw.NoAPI client API hint.
func New(window *glfw.Window, opts Options) (*Presenter, error) {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	p := &Presenter{
		window:                 window,
		log:                    log,
		enableValidationLayers: opts.Validation,
		validationLayers: []string{
			"VK_LAYER_KHRONOS_validation\x00",
		},
		deviceExtensions: []string{
			vk.KhrSwapchainExtensionName + "\x00",
		},
		physicalDevice: vk.PhysicalDevice(vk.NullHandle),
		device:         vk.Device(vk.NullHandle),
		surface:        vk.NullSurface,
		swapChain:      vk.NullSwapchain,
	}
	if err := p.init(opts.AppName); err != nil {
		p.Destroy()
		return nil, err
	}
	return p, nil
}

func (p *Presenter) init(appName string) error {
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())

	if err := vk.Init(); err != nil {
		return fmt.Errorf("failed to init Vulkan Go: %w", err)
	}

	if err := p.createInstance(appName); err != nil {
		return fmt.Errorf("createInstance: %w", err)
	}

	if err := p.createSurface(); err != nil {
		return fmt.Errorf("createSurface: %w", err)
	}

	if err := p.pickPhysicalDevice(); err != nil {
		return fmt.Errorf("pickPhysicalDevice: %w", err)
	}

	if err := p.createLogicalDevice(); err != nil {
		return fmt.Errorf("createLogicalDevice: %w", err)
	}

	if err := p.createSwapChain(); err != nil {
		return fmt.Errorf("createSwapChain: %w", err)
	}

	if err := p.createCommandPool(); err != nil {
		return fmt.Errorf("createCommandPool: %w", err)
	}

	if err := p.createStagingBuffers(); err != nil {
		return fmt.Errorf("createStagingBuffers: %w", err)
	}

	if err := p.createCommandBuffers(); err != nil {
		return fmt.Errorf("createCommandBuffers: %w", err)
	}

	if err := p.createSyncObjects(); err != nil {
		return fmt.Errorf("createSyncObjects: %w", err)
	}

	return nil
}

// Resized marks the swapchain as stale. It is recreated before the next
// frame is presented.
func (p *Presenter) Resized() {
	p.frameBufferResized = true
}

// Extent returns the size of the swapchain images.
func (p *Presenter) Extent() (int, int) {
	return int(p.swapChainExtent.Width), int(p.swapChainExtent.Height)
}

// Present shows a width x height frame of 0xAARRGGBB pixels. A frame
// whose size differs from the swapchain is cropped or padded.
func (p *Presenter) Present(pixels []uint32, width, height int) error {
	if len(pixels) < width*height {
		return fmt.Errorf("frame has %d pixels, want %dx%d", len(pixels), width, height)
	}
	if p.frameBufferResized {
		if fbw, fbh := p.window.GetFramebufferSize(); fbw == 0 || fbh == 0 {
			return nil
		}
		p.frameBufferResized = false
		if err := p.recreateSwapChain(); err != nil {
			return fmt.Errorf("recreateSwapChain: %w", err)
		}
	}

	fences := []vk.Fence{p.inFlightFences[p.currentFrame]}
	vk.WaitForFences(p.device, 1, fences, vk.True, math.MaxUint64)

	var imageIndex uint32
	res := vk.AcquireNextImage(
		p.device,
		p.swapChain,
		math.MaxUint64,
		p.imageAvailableSems[p.currentFrame],
		vk.Fence(vk.NullHandle),
		&imageIndex,
	)
	if res == vk.ErrorOutOfDate {
		p.frameBufferResized = true
		return nil
	} else if res != vk.Success && res != vk.Suboptimal {
		return fmt.Errorf("failed to acquire swap chain image: %w", vk.Error(res))
	}

	// Only reset the fence if we are submitting work.
	vk.ResetFences(p.device, 1, fences)

	ew, eh := p.Extent()
	copyFrame(p.scratch, ew, eh, pixels, width, height, p.swizzle)
	vk.Memcopy(p.stagingBuffersMapped[p.currentFrame], unsafer.SliceToBytes(p.scratch))

	commandBuffer := p.commandBuffers[p.currentFrame]

	vk.ResetCommandBuffer(commandBuffer, 0)
	if err := p.recordCopy(commandBuffer, imageIndex); err != nil {
		return fmt.Errorf("recording command buffer: %w", err)
	}

	signalSemaphores := []vk.Semaphore{
		p.transferDoneSems[p.currentFrame],
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{p.imageAvailableSems[p.currentFrame]},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{commandBuffer},
		PSignalSemaphores:    signalSemaphores,
		SignalSemaphoreCount: uint32(len(signalSemaphores)),
	}

	res = vk.QueueSubmit(
		p.graphicsQueue,
		1,
		[]vk.SubmitInfo{submitInfo},
		p.inFlightFences[p.currentFrame],
	)
	if err := vk.Error(res); err != nil {
		return fmt.Errorf("queue submit error: %w", err)
	}

	swapChains := []vk.Swapchain{
		p.swapChain,
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(signalSemaphores)),
		PWaitSemaphores:    signalSemaphores,
		SwapchainCount:     uint32(len(swapChains)),
		PSwapchains:        swapChains,
		PImageIndices:      []uint32{imageIndex},
	}

	res = vk.QueuePresent(p.presentQueue, &presentInfo)
	if res == vk.ErrorOutOfDate || res == vk.Suboptimal {
		p.frameBufferResized = true
	} else if res != vk.Success {
		return fmt.Errorf("failed to present swap chain image: %w", vk.Error(res))
	}

	p.currentFrame = (p.currentFrame + 1) % maxFramesInFlight
	return nil
}

// recordCopy records the transfer of the current staging buffer into the
// swapchain image and its transition to the present layout.
func (p *Presenter) recordCopy(commandBuffer vk.CommandBuffer, imageIndex uint32) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if err := vk.Error(vk.BeginCommandBuffer(commandBuffer, &beginInfo)); err != nil {
		return fmt.Errorf("cannot begin command buffer: %w", err)
	}

	image := p.swapChainImages[imageIndex]
	subresource := vk.ImageSubresourceRange{
		AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}

	toTransfer := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           vk.ImageLayoutUndefined,
		NewLayout:           vk.ImageLayoutTransferDstOptimal,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange:    subresource,
		SrcAccessMask:       0,
		DstAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
	}
	vk.CmdPipelineBarrier(
		commandBuffer,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		0,
		0, nil,
		0, nil,
		1, []vk.ImageMemoryBarrier{toTransfer},
	)

	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,

		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},

		ImageOffset: vk.Offset3D{
			X: 0, Y: 0, Z: 0,
		},

		ImageExtent: vk.Extent3D{
			Width:  p.swapChainExtent.Width,
			Height: p.swapChainExtent.Height,
			Depth:  1,
		},
	}
	vk.CmdCopyBufferToImage(
		commandBuffer,
		p.stagingBuffers[p.currentFrame],
		image,
		vk.ImageLayoutTransferDstOptimal,
		1,
		[]vk.BufferImageCopy{region},
	)

	toPresent := toTransfer
	toPresent.OldLayout = vk.ImageLayoutTransferDstOptimal
	toPresent.NewLayout = vk.ImageLayoutPresentSrc
	toPresent.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
	toPresent.DstAccessMask = 0
	vk.CmdPipelineBarrier(
		commandBuffer,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
		0,
		0, nil,
		0, nil,
		1, []vk.ImageMemoryBarrier{toPresent},
	)

	if err := vk.Error(vk.EndCommandBuffer(commandBuffer)); err != nil {
		return fmt.Errorf("recording commands to buffer: %w", err)
	}
	return nil
}

// Destroy waits for the device to finish and releases every Vulkan object.
// It is safe to call on a partially initialised presenter.
func (p *Presenter) Destroy() {
	if p.device != vk.Device(vk.NullHandle) {
		vk.DeviceWaitIdle(p.device)

		for i := range p.inFlightFences {
			vk.DestroyFence(p.device, p.inFlightFences[i], nil)
		}
		for i := range p.imageAvailableSems {
			vk.DestroySemaphore(p.device, p.imageAvailableSems[i], nil)
		}
		for i := range p.transferDoneSems {
			vk.DestroySemaphore(p.device, p.transferDoneSems[i], nil)
		}
		p.inFlightFences, p.imageAvailableSems, p.transferDoneSems = nil, nil, nil

		if p.commandPool != vk.NullCommandPool {
			vk.DestroyCommandPool(p.device, p.commandPool, nil)
			p.commandPool = vk.NullCommandPool
		}

		p.cleanupSwapChain()

		vk.DestroyDevice(p.device, nil)
		p.device = vk.Device(vk.NullHandle)
	}
	if p.surface != vk.NullSurface {
		vk.DestroySurface(p.instance, p.surface, nil)
		p.surface = vk.NullSurface
	}
	if p.instance != nil {
		vk.DestroyInstance(p.instance, nil)
		p.instance = nil
	}
}
