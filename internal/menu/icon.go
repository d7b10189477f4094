package menu

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"

	"github.com/example/twintray/internal/snapshot"
)

const iconSize = 22

var (
	colorConnected    = color.RGBA{56, 142, 60, 255}
	colorDisconnected = color.RGBA{117, 117, 117, 255}
	colorAttention    = color.RGBA{245, 166, 35, 255}
)

var iconCache sync.Map

// IconFor returns the PNG tray icon for a connection state. Icons are
// generated once per color and cached.
func IconFor(state snapshot.ConnectionState, degraded bool) []byte {
	fill := iconColor(state)
	if degraded {
		fill = colorAttention
	}
	if cached, ok := iconCache.Load(fill); ok {
		return cached.([]byte)
	}
	data := renderIcon(fill)
	iconCache.Store(fill, data)
	return data
}

func iconColor(state snapshot.ConnectionState) color.RGBA {
	switch state {
	case snapshot.StateConnected:
		return colorConnected
	case snapshot.StateAuthRequired, snapshot.StateError:
		return colorAttention
	default:
		return colorDisconnected
	}
}

// renderIcon draws a filled circle with a lighter ring on a transparent
// background.
func renderIcon(fill color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))
	center := float64(iconSize) / 2
	outer := center - 1
	inner := outer - 2

	ring := color.RGBA{
		R: lighten(fill.R),
		G: lighten(fill.G),
		B: lighten(fill.B),
		A: 255,
	}

	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			dx := float64(x) + 0.5 - center
			dy := float64(y) + 0.5 - center
			d2 := dx*dx + dy*dy
			switch {
			case d2 <= inner*inner:
				img.Set(x, y, fill)
			case d2 <= outer*outer:
				img.Set(x, y, ring)
			}
		}
	}

	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func lighten(c uint8) uint8 {
	v := int(c) + 60
	if v > 255 {
		v = 255
	}
	return uint8(v)
}
