// Package queues finds the Vulkan queue families the presenter needs.
package queues

import (
	vk "github.com/vulkan-go/vulkan"

	"model-viewer/optional"
)

// FamilyIndices holds the indexes of the Vulkan queue families used to
// copy frames into the swapchain and present them.
type FamilyIndices struct {

	// Graphics is the index of a queue family which supports transfer
	// commands. Every graphics family does.
	Graphics optional.Optional[uint32]

	// Present is the index of the queue family used for presenting to the drawing
	// surface.
	Present optional.Optional[uint32]
}

// IsComplete returns true if all families have been set.
func (f FamilyIndices) IsComplete() bool {
	return f.Graphics.HasValue() && f.Present.HasValue()
}

// Unique returns the distinct family indexes. It must only be called on
// complete indices.
func (f FamilyIndices) Unique() []uint32 {
	g, p := f.Graphics.Get(), f.Present.Get()
	if g == p {
		return []uint32{g}
	}
	return []uint32{g, p}
}

// Family is the part of vk.QueueFamilyProperties used for the choice.
type Family struct {
	Flags      vk.QueueFlags
	Count      uint32
	CanPresent bool
}

// Find picks queue families from the given list. A family which can both
// draw and present is preferred so one queue serves both.
func Find(families []Family) FamilyIndices {
	var indices FamilyIndices
	for i, f := range families {
		if f.Count == 0 {
			continue
		}
		idx := uint32(i)
		graphics := f.Flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0
		if graphics && f.CanPresent {
			indices.Graphics.Set(idx)
			indices.Present.Set(idx)
			return indices
		}
		if graphics && !indices.Graphics.HasValue() {
			indices.Graphics.Set(idx)
		}
		if f.CanPresent && !indices.Present.HasValue() {
			indices.Present.Set(idx)
		}
	}
	return indices
}
