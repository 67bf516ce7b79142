package vkpresent

import (
	"cmp"
	"fmt"
	"math"

	vk "github.com/vulkan-go/vulkan"
)

// opaqueBlack fills the parts of a swapchain image the frame does not cover.
const opaqueBlack = 0xff000000

// copyFrame copies the overlapping part of a src frame of srcW x srcH
// pixels into dst of dstW x dstH. Pixels are 0xAARRGGBB; with swizzle set
// the red and blue channels are exchanged for RGBA surfaces.
func copyFrame(dst []uint32, dstW, dstH int, src []uint32, srcW, srcH int, swizzle bool) {
	w, h := min(dstW, srcW), min(dstH, srcH)
	if w < 0 {
		w = 0
	}
	for y := 0; y < dstH; y++ {
		row := dst[y*dstW : (y+1)*dstW]
		n := 0
		if y < h {
			n = w
			copy(row[:n], src[y*srcW:y*srcW+n])
			if swizzle {
				for x, p := range row[:n] {
					row[x] = swapRB(p)
				}
			}
		}
		for x := n; x < dstW; x++ {
			row[x] = opaqueBlack
		}
	}
}

func swapRB(p uint32) uint32 {
	return p&0xff00ff00 | p>>16&0xff | p&0xff<<16
}

// chooseSwapSurfaceFormat picks a 8 bit per channel format the frame can
// be copied into. swizzle reports whether the format stores red first.
func chooseSwapSurfaceFormat(
	availableFormats []vk.SurfaceFormat,
) (format vk.SurfaceFormat, swizzle bool, err error) {
	preferred := []vk.Format{
		vk.FormatB8g8r8a8Unorm,
		vk.FormatB8g8r8a8Srgb,
		vk.FormatR8g8b8a8Unorm,
		vk.FormatR8g8b8a8Srgb,
	}
	for _, want := range preferred {
		for _, f := range availableFormats {
			if f.Format == want && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
				return f, isRGBA(f.Format), nil
			}
		}
	}
	for _, f := range availableFormats {
		for _, want := range preferred {
			if f.Format == want {
				return f, isRGBA(f.Format), nil
			}
		}
	}
	return vk.SurfaceFormat{}, false, fmt.Errorf("no 8 bit BGRA or RGBA surface format among %d", len(availableFormats))
}

func isRGBA(f vk.Format) bool {
	return f == vk.FormatR8g8b8a8Unorm || f == vk.FormatR8g8b8a8Srgb
}

// swapImageUsage is how frames reach swapchain images: as the target of a
// buffer to image copy.
const swapImageUsage = vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)

func checkImageUsage(supported vk.ImageUsageFlags) error {
	if supported&swapImageUsage != swapImageUsage {
		return fmt.Errorf("surface images cannot be transfer destinations (usage %#x)", uint32(supported))
	}
	return nil
}

// chooseSwapPresentMode picks FIFO so presentation blocks until the next
// vertical blank and the render loop runs once per display refresh.
func chooseSwapPresentMode(
	available []vk.PresentMode,
) vk.PresentMode {
	for _, mode := range available {
		if mode == vk.PresentModeFifo {
			return mode
		}
	}
	if len(available) > 0 {
		return available[0]
	}

	return vk.PresentModeFifo
}

// chooseSwapExtent returns the surface's current extent, or the framebuffer
// size clamped to the supported range when the surface leaves it to us.
func chooseSwapExtent(current, minExtent, maxExtent vk.Extent2D, width, height int) vk.Extent2D {
	if current.Width != math.MaxUint32 {
		return current
	}
	return vk.Extent2D{
		Width:  clamp(uint32(max(width, 0)), minExtent.Width, maxExtent.Width),
		Height: clamp(uint32(max(height, 0)), minExtent.Height, maxExtent.Height),
	}
}

func clamp[T cmp.Ordered](val, min, max T) T {
	if val < min {
		val = min
	}
	if val > max {
		val = max
	}
	return val
}
