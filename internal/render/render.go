// Package render composes the weather screen as a 250x122 landscape image
// ready for the e-paper panel.
package render

import (
	"fmt"
	"image"
	"math"
	"os"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	appLog "epdweather/internal/log"
	"epdweather/internal/weather"
)

// Landscape dimensions of the 2.13" panel.
const (
	Width  = 250
	Height = 122
)

const margin = 5

// Options configures a Renderer.
type Options struct {
	// FontPath is a TTF file; empty or unreadable falls back to the
	// built-in bitmap face.
	FontPath string
	// Rotation is 0 or 180 degrees.
	Rotation int
	// Language selects the info-column labels ("de" or "en").
	Language string
	// Units is "metric" or "imperial"; only affects suffixes.
	Units string
}

// Renderer lays out weather data for the display.
type Renderer struct {
	opts Options

	small  font.Face
	medium font.Face
	large  font.Face
}

// New creates a renderer, loading the configured font with graceful
// fallback to a bitmap face.
func New(opts Options) *Renderer {
	r := &Renderer{opts: opts}
	r.loadFonts()
	return r
}

func (r *Renderer) loadFonts() {
	r.small = basicfont.Face7x13
	r.medium = basicfont.Face7x13
	r.large = basicfont.Face7x13

	if r.opts.FontPath == "" {
		return
	}

	data, err := os.ReadFile(r.opts.FontPath)
	if err != nil {
		appLog.Warn("font not readable, using built-in face", "path", r.opts.FontPath, "err", err)
		return
	}
	ft, err := truetype.Parse(data)
	if err != nil {
		appLog.Warn("font not parseable, using built-in face", "path", r.opts.FontPath, "err", err)
		return
	}

	r.small = truetype.NewFace(ft, &truetype.Options{Size: 12})
	r.medium = truetype.NewFace(ft, &truetype.Options{Size: 16})
	r.large = truetype.NewFace(ft, &truetype.Options{Size: 24})
}

type labels struct {
	humidity  string
	pressure  string
	wind      string
	direction string
}

func (r *Renderer) labels() labels {
	if r.opts.Language == "en" {
		return labels{
			humidity:  "Humidity:",
			pressure:  "Pressure:",
			wind:      "Wind",
			direction: "Direction",
		}
	}
	return labels{
		humidity:  "Luftfeuchtigkeit:",
		pressure:  "Luftdruck:",
		wind:      "Wind",
		direction: "Richtung",
	}
}

func (r *Renderer) tempUnit() string {
	if r.opts.Units == "imperial" {
		return "°F"
	}
	return "°C"
}

func (r *Renderer) windUnit() string {
	if r.opts.Units == "imperial" {
		return "mph"
	}
	return "km/h"
}

// Compose draws the current conditions into a fresh landscape frame.
func (r *Renderer) Compose(obs weather.Current, now time.Time) image.Image {
	dc := gg.NewContext(Width, Height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	if r.opts.Rotation == 180 {
		dc.RotateAbout(math.Pi, Width/2.0, Height/2.0)
	}

	dc.SetRGB(0, 0, 0)
	lb := r.labels()

	// Top row: date left, time right.
	dc.SetFontFace(r.small)
	dc.DrawStringAnchored(now.Format("02.01.2006"), margin, margin, 0, 1)
	dc.DrawStringAnchored(now.Format("15:04"), Width-margin, margin, 1, 1)

	// City.
	dc.SetFontFace(r.medium)
	dc.DrawStringAnchored(obs.City, margin, 20, 0, 1)

	// Temperature, large and prominent.
	dc.SetFontFace(r.large)
	dc.DrawStringAnchored(fmt.Sprintf("%.1f%s", obs.Temperature, r.tempUnit()), margin, 45, 0, 1)

	// Description, truncated to fit the left column.
	desc := obs.Description
	if len([]rune(desc)) > 20 {
		desc = string([]rune(desc)[:20]) + "..."
	}
	dc.SetFontFace(r.medium)
	dc.DrawStringAnchored(desc, margin, 75, 0, 1)

	// Right column with the remaining measurements.
	const rightX = 130
	dc.SetFontFace(r.small)
	dc.DrawStringAnchored(lb.humidity, rightX, 20, 0, 1)
	dc.DrawStringAnchored(fmt.Sprintf("%d%%", obs.Humidity), rightX, 32, 0, 1)
	dc.DrawStringAnchored(lb.pressure, rightX, 50, 0, 1)
	dc.DrawStringAnchored(fmt.Sprintf("%.0f hPa", obs.Pressure), rightX, 62, 0, 1)
	dc.DrawStringAnchored(fmt.Sprintf("%s: %.1f %s", lb.wind, obs.WindSpeed, r.windUnit()), rightX, 80, 0, 1)
	dc.DrawStringAnchored(fmt.Sprintf("%s: %d°", lb.direction, obs.WindDirection), rightX, 92, 0, 1)

	// Separator between the two columns.
	dc.SetLineWidth(1)
	dc.DrawLine(120, 20, 120, 110)
	dc.Stroke()

	return dc.Image()
}
