package render

// Color is one 24-bit RGB pixel.
type Color struct {
	R, G, B uint8
}

var (
	Black  = Color{0, 0, 0}
	White  = Color{255, 255, 255}
	Red    = Color{255, 0, 0}
	Green  = Color{0, 255, 0}
	Blue   = Color{0, 0, 255}
	Orange = Color{255, 165, 0}
	Purple = Color{128, 0, 128}
)

// Blend mixes a toward b by alpha256 in [0,256]. 0 keeps a, 256 yields b.
func Blend(a, b Color, alpha256 int) Color {
	if alpha256 <= 0 {
		return a
	}
	if alpha256 >= 256 {
		return b
	}
	inv := 256 - alpha256
	return Color{
		R: uint8((int(a.R)*inv + int(b.R)*alpha256) >> 8),
		G: uint8((int(a.G)*inv + int(b.G)*alpha256) >> 8),
		B: uint8((int(a.B)*inv + int(b.B)*alpha256) >> 8),
	}
}

// Scale multiplies each channel by pct/100.
func Scale(c Color, pct int) Color {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return Color{
		R: uint8(int(c.R) * pct / 100),
		G: uint8(int(c.G) * pct / 100),
		B: uint8(int(c.B) * pct / 100),
	}
}

// scaleByte multiplies each channel by b/255; the per-strip brightness
// scalar of the final composition step.
func scaleByte(c Color, b uint8) Color {
	if b == 255 {
		return c
	}
	return Color{
		R: uint8(int(c.R) * int(b) / 255),
		G: uint8(int(c.G) * int(b) / 255),
		B: uint8(int(c.B) * int(b) / 255),
	}
}

func fill(p []Color, c Color) {
	for i := range p {
		p[i] = c
	}
}
