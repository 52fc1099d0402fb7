package epd

import (
	"errors"
	"fmt"
)

// Geometry is the panel's native pixel dimensions in controller RAM order.
// It is fixed per panel model and never mutated at runtime.
type Geometry struct {
	Width  int
	Height int
}

// EPD2in13V4 is the 2.13" V4 black/white panel.
var EPD2in13V4 = Geometry{Width: 122, Height: 250}

// BufferLen returns the packed frame size in bytes.
func (g Geometry) BufferLen() int {
	return (g.Width + 7) / 8 * g.Height
}

// ErrDimensionMismatch reports a logical frame that matches neither the
// native nor the rotated panel orientation. This is an integration error
// and is never silently corrected.
var ErrDimensionMismatch = errors.New("epd: frame dimensions match neither panel orientation")

// Frame is the logical monochrome image to render. Ink reports whether the
// pixel at (x, y) is black. The driver only reads a frame during encoding
// and never retains it.
type Frame interface {
	Size() (w, h int)
	Ink(x, y int) bool
}

// Encode packs a logical frame into the controller's RAM layout. The panel
// uses an active-low ink convention: every byte starts as 0xFF (blank) and
// ink only ever clears bits.
//
// A frame in native orientation is packed directly; a frame with swapped
// dimensions is treated as the 90°-rotated landscape view and transposed
// on the fly, without an intermediate image copy.
func Encode(f Frame, g Geometry) ([]byte, error) {
	w, h := f.Size()

	buf := make([]byte, g.BufferLen())
	for i := range buf {
		buf[i] = 0xFF
	}

	switch {
	case w == g.Width && h == g.Height:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if f.Ink(x, y) {
					buf[(x+y*g.Width)/8] &^= 0x80 >> (x % 8)
				}
			}
		}
	case w == g.Height && h == g.Width:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if f.Ink(x, y) {
					nx, ny := y, g.Height-x-1
					buf[(nx+ny*g.Width)/8] &^= 0x80 >> (y % 8)
				}
			}
		}
	default:
		return nil, fmt.Errorf("%w: frame %dx%d, panel %dx%d",
			ErrDimensionMismatch, w, h, g.Width, g.Height)
	}

	return buf, nil
}
