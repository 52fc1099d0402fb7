package render

import (
	"testing"
	"time"

	"epdweather/internal/epd"
	"epdweather/internal/weather"
)

func sampleObservation() weather.Current {
	return weather.Current{
		City:          "Stralsund",
		Temperature:   18.4,
		Humidity:      71,
		Pressure:      1012.5,
		WindSpeed:     14.2,
		WindDirection: 250,
		Description:   "Leichter Regen",
	}
}

func TestComposeDimensions(t *testing.T) {
	r := New(Options{Rotation: 180, Language: "de"})

	img := r.Compose(sampleObservation(), time.Date(2026, 8, 29, 14, 30, 0, 0, time.UTC))

	b := img.Bounds()
	if b.Dx() != Width || b.Dy() != Height {
		t.Fatalf("Compose() image is %dx%d, want %dx%d", b.Dx(), b.Dy(), Width, Height)
	}
}

func TestComposeEncodesForPanel(t *testing.T) {
	for _, rotation := range []int{0, 180} {
		r := New(Options{Rotation: rotation})

		img := r.Compose(sampleObservation(), time.Now())
		frame := epd.NewImageFrame(img)

		packed, err := epd.Encode(frame, epd.EPD2in13V4)
		if err != nil {
			t.Fatalf("rotation %d: Encode() error: %v", rotation, err)
		}
		if len(packed) != epd.EPD2in13V4.BufferLen() {
			t.Fatalf("rotation %d: packed length %d, want %d",
				rotation, len(packed), epd.EPD2in13V4.BufferLen())
		}

		// The screen must contain ink but not be solid black.
		ink := 0
		for _, b := range packed {
			if b != 0xFF {
				ink++
			}
		}
		if ink == 0 {
			t.Errorf("rotation %d: rendered frame has no ink", rotation)
		}
		if ink == len(packed) {
			t.Errorf("rotation %d: rendered frame is solid ink", rotation)
		}
	}
}

func TestComposeFontFallback(t *testing.T) {
	r := New(Options{FontPath: "/nonexistent/font.ttf"})

	// Must not panic and still produce a usable frame.
	img := r.Compose(sampleObservation(), time.Now())
	if img.Bounds().Dx() != Width {
		t.Fatalf("Compose() with missing font returned %v", img.Bounds())
	}
}
