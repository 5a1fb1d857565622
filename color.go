package g3d

import (
	"image/color"

	"github.com/gogpu/gputypes"
)

// Color is a linear RGB color. Each component is nominally in [0, 1];
// values above 1 are allowed for emissive and light colors.
type Color struct {
	R, G, B float32
}

// RGB creates a color from components.
func RGB(r, g, b float32) Color {
	return Color{R: r, G: g, B: b}
}

// Hex creates a color from a 0xRRGGBB value.
func Hex(hex uint32) Color {
	return Color{
		R: float32((hex>>16)&0xff) / 255,
		G: float32((hex>>8)&0xff) / 255,
		B: float32(hex&0xff) / 255,
	}
}

// FromColor converts a standard color.Color, dropping alpha.
func FromColor(c color.Color) Color {
	r, g, b, _ := c.RGBA()
	return Color{
		R: float32(r) / 65535,
		G: float32(g) / 65535,
		B: float32(b) / 65535,
	}
}

// Hex returns the color as 0xRRGGBB, clamping each component.
func (c Color) Hex() uint32 {
	return uint32(clampUnit(c.R)*255+0.5)<<16 |
		uint32(clampUnit(c.G)*255+0.5)<<8 |
		uint32(clampUnit(c.B)*255+0.5)
}

// Scale returns the color multiplied by s.
func (c Color) Scale(s float32) Color {
	return Color{R: c.R * s, G: c.G * s, B: c.B * s}
}

// Lerp performs linear interpolation between two colors.
func (c Color) Lerp(other Color, t float32) Color {
	return Color{
		R: c.R + (other.R-c.R)*t,
		G: c.G + (other.G-c.G)*t,
		B: c.B + (other.B-c.B)*t,
	}
}

func (c Color) vec4(a float32) [4]float32 {
	return [4]float32{c.R, c.G, c.B, a}
}

func (c Color) clearValue(a float32) gputypes.Color {
	return gputypes.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B), A: float64(a)}
}

func clampUnit(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// Common colors
var (
	Black = RGB(0, 0, 0)
	White = RGB(1, 1, 1)
)
