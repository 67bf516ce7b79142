package main

import (
	"github.com/go-gl/glfw/v3.3/glfw"

	"model-viewer/viewport"
)

// bindInput forwards the window's resize and pointer events to c.
func bindInput(window *glfw.Window, c *viewport.Controller) {
	window.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		c.Resize(width, height)
	})

	window.SetMouseButtonCallback(func(
		w *glfw.Window,
		button glfw.MouseButton,
		action glfw.Action,
		_ glfw.ModifierKey,
	) {
		b, ok := mapButton(button)
		if !ok {
			return
		}
		switch action {
		case glfw.Press:
			x, y := w.GetCursorPos()
			c.PointerDown(b, x, y)
		case glfw.Release:
			c.PointerUp(b)
		}
	})

	window.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		c.PointerMove(x, y)
	})

	window.SetScrollCallback(func(_ *glfw.Window, _, dy float64) {
		c.Wheel(dy)
	})
}

func mapButton(b glfw.MouseButton) (viewport.Button, bool) {
	switch b {
	case glfw.MouseButtonLeft:
		return viewport.ButtonLeft, true
	case glfw.MouseButtonRight:
		return viewport.ButtonRight, true
	case glfw.MouseButtonMiddle:
		return viewport.ButtonMiddle, true
	}
	return 0, false
}
