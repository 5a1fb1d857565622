package g3d

import (
	"image/color"
	"math"
	"testing"
)

func TestHex(t *testing.T) {
	tests := []struct {
		hex     uint32
		r, g, b float32
	}{
		{0x000000, 0, 0, 0},
		{0xffffff, 1, 1, 1},
		{0xff0000, 1, 0, 0},
		{0x404040, 64.0 / 255, 64.0 / 255, 64.0 / 255},
	}
	for _, tt := range tests {
		c := Hex(tt.hex)
		if !near(c.R, tt.r) || !near(c.G, tt.g) || !near(c.B, tt.b) {
			t.Errorf("Hex(%#06x) = %+v, want (%v, %v, %v)", tt.hex, c, tt.r, tt.g, tt.b)
		}
		if got := c.Hex(); got != tt.hex {
			t.Errorf("Hex(%#06x).Hex() = %#06x", tt.hex, got)
		}
	}
}

func TestColorHexClamps(t *testing.T) {
	if got := RGB(2, -1, 0.5).Hex(); got != 0xff0080 {
		t.Errorf("Hex() = %#06x, want 0xff0080", got)
	}
}

func TestFromColor(t *testing.T) {
	c := FromColor(color.NRGBA{R: 255, G: 0, B: 255, A: 255})
	if c != RGB(1, 0, 1) {
		t.Errorf("FromColor = %+v, want magenta", c)
	}
}

func TestColorLerpAndScale(t *testing.T) {
	mid := Black.Lerp(White, 0.5)
	if !near(mid.R, 0.5) || !near(mid.G, 0.5) || !near(mid.B, 0.5) {
		t.Errorf("Lerp = %+v, want 0.5 gray", mid)
	}
	if got := White.Scale(0.6); !near(got.G, 0.6) {
		t.Errorf("Scale = %+v", got)
	}
}

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}
