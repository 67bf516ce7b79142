package vkpresent

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestCopyFrameSameSize(t *testing.T) {
	src := []uint32{0xff112233, 0xff445566, 0xff778899, 0xffaabbcc}
	dst := make([]uint32, 4)

	copyFrame(dst, 2, 2, src, 2, 2, false)
	assert.Equal(t, src, dst)

	copyFrame(dst, 2, 2, src, 2, 2, true)
	assert.Equal(t, uint32(0xff332211), dst[0])
	assert.Equal(t, uint32(0xffccbbaa), dst[3])
}

func TestCopyFrameCropsAndPads(t *testing.T) {
	src := []uint32{
		1, 2, 3,
		4, 5, 6,
	}

	small := make([]uint32, 2)
	copyFrame(small, 2, 1, src, 3, 2, false)
	assert.Equal(t, []uint32{1, 2}, small)

	large := make([]uint32, 4*3)
	copyFrame(large, 4, 3, src, 3, 2, false)
	b := uint32(opaqueBlack)
	assert.Equal(t, []uint32{
		1, 2, 3, b,
		4, 5, 6, b,
		b, b, b, b,
	}, large)
}

func TestChooseSwapSurfaceFormat(t *testing.T) {
	f, swizzle, err := chooseSwapSurfaceFormat([]vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	})
	require.NoError(t, err)
	assert.Equal(t, vk.FormatB8g8r8a8Srgb, f.Format)
	assert.False(t, swizzle)

	f, swizzle, err = chooseSwapSurfaceFormat([]vk.SurfaceFormat{
		{Format: vk.FormatA2b10g10r10UnormPack32, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatR8g8b8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	})
	require.NoError(t, err)
	assert.Equal(t, vk.FormatR8g8b8a8Srgb, f.Format)
	assert.True(t, swizzle)

	_, _, err = chooseSwapSurfaceFormat([]vk.SurfaceFormat{
		{Format: vk.FormatA2b10g10r10UnormPack32},
	})
	assert.Error(t, err)
}

func TestChooseSwapPresentMode(t *testing.T) {
	assert.Equal(t, vk.PresentModeFifo, chooseSwapPresentMode([]vk.PresentMode{
		vk.PresentModeMailbox, vk.PresentModeImmediate, vk.PresentModeFifo,
	}))
	assert.Equal(t, vk.PresentModeImmediate, chooseSwapPresentMode([]vk.PresentMode{
		vk.PresentModeImmediate,
	}))
	assert.Equal(t, vk.PresentModeFifo, chooseSwapPresentMode(nil))
}

func TestChooseSwapExtent(t *testing.T) {
	lo := vk.Extent2D{Width: 1, Height: 1}
	hi := vk.Extent2D{Width: 4096, Height: 4096}

	current := vk.Extent2D{Width: 800, Height: 600}
	assert.Equal(t, current, chooseSwapExtent(current, lo, hi, 1024, 768))

	undefined := vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32}
	assert.Equal(t, vk.Extent2D{Width: 1024, Height: 768}, chooseSwapExtent(undefined, lo, hi, 1024, 768))
	assert.Equal(t, vk.Extent2D{Width: 4096, Height: 1}, chooseSwapExtent(undefined, lo, hi, 10000, 0))
}

func TestCheckImageUsage(t *testing.T) {
	assert.NoError(t, checkImageUsage(vk.ImageUsageFlags(
		vk.ImageUsageTransferDstBit|vk.ImageUsageColorAttachmentBit)))
	assert.Error(t, checkImageUsage(vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)))
	assert.Error(t, checkImageUsage(0))
}
