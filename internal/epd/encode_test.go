package epd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// gridFrame is a simple in-memory Frame for tests.
type gridFrame struct {
	w, h int
	fill bool
	ink  map[[2]int]bool
}

func (f gridFrame) Size() (int, int) { return f.w, f.h }

func (f gridFrame) Ink(x, y int) bool {
	if f.fill {
		return true
	}
	return f.ink[[2]int{x, y}]
}

func TestEncodeIdentity(t *testing.T) {
	// Byte-aligned geometry so every bit of the buffer is addressable.
	g := Geometry{Width: 32, Height: 16}

	for _, tc := range []struct {
		name  string
		frame Frame
		want  byte
	}{
		{name: "all blank", frame: gridFrame{w: 32, h: 16}, want: 0xFF},
		{name: "all ink", frame: gridFrame{w: 32, h: 16, fill: true}, want: 0x00},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Encode(tc.frame, g)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			want := bytes.Repeat([]byte{tc.want}, g.BufferLen())
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Encode() difference (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeSinglePixel(t *testing.T) {
	g := EPD2in13V4

	frame := gridFrame{w: g.Width, h: g.Height, ink: map[[2]int]bool{{0, 0}: true}}

	got, err := Encode(frame, g)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if len(got) != g.BufferLen() {
		t.Fatalf("Encode() returned %d bytes, want %d", len(got), g.BufferLen())
	}
	if got[0] != 0x7F {
		t.Errorf("first byte = %#02x, want 0x7f (MSB cleared)", got[0])
	}
	for i, b := range got[1:] {
		if b != 0xFF {
			t.Fatalf("byte %d = %#02x, want 0xff", i+1, b)
		}
	}
}

func TestEncodeRotationEquivalence(t *testing.T) {
	g := EPD2in13V4

	// Ink at native (X, Y) corresponds to (H-1-Y, X) in the 90°-rotated
	// landscape view.
	const nx, ny = 17, 42

	native := gridFrame{
		w: g.Width, h: g.Height,
		ink: map[[2]int]bool{{nx, ny}: true},
	}
	rotated := gridFrame{
		w: g.Height, h: g.Width,
		ink: map[[2]int]bool{{g.Height - 1 - ny, nx}: true},
	}

	wantBuf, err := Encode(native, g)
	if err != nil {
		t.Fatalf("Encode(native) error: %v", err)
	}
	gotBuf, err := Encode(rotated, g)
	if err != nil {
		t.Fatalf("Encode(rotated) error: %v", err)
	}
	if !bytes.Equal(wantBuf, gotBuf) {
		t.Errorf("rotated encoding differs from native encoding")
	}
}

func TestEncodeDimensionMismatch(t *testing.T) {
	g := EPD2in13V4

	for _, tc := range []struct {
		name string
		w, h int
	}{
		{name: "too small", w: 10, h: 10},
		{name: "one axis off", w: g.Width, h: g.Height + 1},
		{name: "double", w: g.Width * 2, h: g.Height * 2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			buf, err := Encode(gridFrame{w: tc.w, h: tc.h}, g)
			if !errors.Is(err, ErrDimensionMismatch) {
				t.Errorf("Encode() error = %v, want ErrDimensionMismatch", err)
			}
			if buf != nil {
				t.Errorf("Encode() returned a buffer alongside the error")
			}
		})
	}
}

func TestBufferLen(t *testing.T) {
	if got, want := EPD2in13V4.BufferLen(), 16*250; got != want {
		t.Errorf("BufferLen() = %d, want %d", got, want)
	}
}
