package chip8

import "sync/atomic"

// Pixel values. A pixel is either fully lit or dark; no other value is
// ever stored.
const (
	Dark uint32 = 0
	Lit  uint32 = 0xFFFFFFFF
)

// Framebuffer is the 64x32 monochrome display, stored row-major. Only the
// interpreter writes it; the video collaborator reads it concurrently.
type Framebuffer struct {
	pixels [Area]atomic.Uint32
}

func (f *Framebuffer) Clear() {
	for i := range f.pixels {
		f.pixels[i].Store(Dark)
	}
}

// Lit reports whether the pixel at (x, y) is set. Coordinates wrap.
func (f *Framebuffer) Lit(x, y int) bool {
	return f.pixels[offset(x, y)].Load() == Lit
}

// Set lights or darkens the pixel at (x, y). Coordinates wrap.
func (f *Framebuffer) Set(x, y int, lit bool) {
	v := Dark
	if lit {
		v = Lit
	}
	f.pixels[offset(x, y)].Store(v)
}

// Snapshot copies the pixel values into dst, allocating it if it is too
// small, and returns it.
func (f *Framebuffer) Snapshot(dst []uint32) []uint32 {
	if len(dst) < Area {
		dst = make([]uint32, Area)
	}
	for i := range f.pixels {
		dst[i] = f.pixels[i].Load()
	}
	return dst[:Area]
}

// DrawSprite XORs an 8 pixel wide sprite onto the display with its top left
// corner at (x0, y0) and returns the resulting collision flag. Pixels that
// fall off an edge wrap to the opposite edge.
//
// Without anyCollision the flag is the prior state of the last cell the
// sprite covers, whether or not that cell's sprite bit was set. With
// anyCollision the flag is 1 when any lit pixel was turned off.
func (f *Framebuffer) DrawSprite(x0, y0 uint8, sprite []byte, anyCollision bool) uint8 {
	startX := int(x0) % Width
	startY := int(y0) % Height

	var flag uint8
	for row, bits := range sprite {
		for col := range 8 {
			p := &f.pixels[offset(startX+col, startY+row)]
			lit := p.Load() == Lit
			set := bits&(0x80>>col) != 0

			if anyCollision {
				if set && lit {
					flag = 1
				}
			} else {
				flag = 0
				if lit {
					flag = 1
				}
			}

			if set {
				p.Store(^p.Load())
			}
		}
	}
	return flag
}

func offset(x, y int) int {
	x %= Width
	if x < 0 {
		x += Width
	}
	y %= Height
	if y < 0 {
		y += Height
	}
	return x + y*Width
}
