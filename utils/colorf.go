package utils

// ColorFloat is an RGBA pixel with float32 channels in [0, 1].
// It implements image/color.Color so composited pixels can be written
// straight into an image.RGBA.
type ColorFloat [4]float32

func (c ColorFloat) RGBA() (r, g, b, a uint32) {
	const mf = float32(256*256 - 1)
	cl := c.Clamp()
	r = uint32(cl[0] * mf)
	g = uint32(cl[1] * mf)
	b = uint32(cl[2] * mf)
	a = uint32(cl[3] * mf)
	return
}

func (c ColorFloat) Clamp() ColorFloat {
	for i, v := range c {
		if v < 0 {
			c[i] = 0
		} else if v > 1 {
			c[i] = 1
		}
	}
	return c
}
