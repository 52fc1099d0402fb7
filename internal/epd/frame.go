package epd

import "image"

// inkThreshold is the luma below which a pixel counts as ink, on the
// 16-bit scale returned by color.Color.RGBA (64 out of 255).
const inkThreshold = 64 * 257

// imageFrame adapts any image.Image to the Frame contract. Opaque pixels
// darker than the luma threshold become ink; transparent pixels stay blank.
type imageFrame struct {
	img image.Image
}

// NewImageFrame wraps an image as a logical frame for the panel.
func NewImageFrame(img image.Image) Frame {
	return &imageFrame{img: img}
}

func (f *imageFrame) Size() (int, int) {
	b := f.img.Bounds()
	return b.Dx(), b.Dy()
}

func (f *imageFrame) Ink(x, y int) bool {
	b := f.img.Bounds()
	r, g, bl, a := f.img.At(b.Min.X+x, b.Min.Y+y).RGBA()
	if a < 0x8000 {
		return false
	}
	// Perceptual brightness.
	luma := (299*r + 587*g + 114*bl) / 1000
	return luma < inkThreshold
}
