package main

import (
	"github.com/vkngwrapper/core/core1_0"
)

// flippedViewport covers extent with a negative height, so clip space Y
// points up.
func flippedViewport(extent core1_0.Extent2D) core1_0.Viewport {
	width, height := float32(extent.Width), float32(extent.Height)
	return core1_0.Viewport{
		X:        0,
		Y:        height,
		Width:    width,
		Height:   -height,
		MinDepth: 0,
		MaxDepth: 1,
	}
}

func fullScissor(extent core1_0.Extent2D) core1_0.Rect2D {
	return core1_0.Rect2D{
		Offset: core1_0.Offset2D{X: 0, Y: 0},
		Extent: extent,
	}
}

func clampExtent(width, height int, minExtent, maxExtent core1_0.Extent2D) core1_0.Extent2D {
	if width < minExtent.Width {
		width = minExtent.Width
	}
	if width > maxExtent.Width {
		width = maxExtent.Width
	}
	if height < minExtent.Height {
		height = minExtent.Height
	}
	if height > maxExtent.Height {
		height = maxExtent.Height
	}

	return core1_0.Extent2D{Width: width, Height: height}
}
