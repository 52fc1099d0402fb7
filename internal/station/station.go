// Package station wires weather fetching, rendering and the display
// driver into the update pipeline.
package station

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"time"

	"epdweather/internal/config"
	"epdweather/internal/epd"
	appLog "epdweather/internal/log"
	"epdweather/internal/render"
	"epdweather/internal/weather"
)

// observer is the slice of weather.Client the pipeline needs.
type observer interface {
	Current(ctx context.Context) (weather.Current, error)
}

// Station owns the fetch -> render -> display pipeline.
type Station struct {
	cfg  *config.Config
	api  observer
	rend *render.Renderer
	disp *epd.Controller

	// hardware is false when the display is unavailable or rendering
	// was forced to file output; it stays false for the process
	// lifetime, no re-probing.
	hardware bool

	clock func() time.Time
}

// New builds a station from configuration and probes the display once.
// A missing or unclaimable panel is not an error: the station runs in
// the file-output mode instead.
func New(cfg *config.Config, renderOnly bool) *Station {
	s := &Station{
		cfg: cfg,
		api: weather.NewClient(cfg.Latitude, cfg.Longitude, cfg.City,
			cfg.Language, cfg.Units, cfg.Timezone),
		rend: render.New(render.Options{
			FontPath: cfg.FontPath,
			Rotation: cfg.Display.Rotation,
			Language: cfg.Language,
			Units:    cfg.Units,
		}),
		clock: time.Now,
	}

	if renderOnly {
		appLog.Info("render-only mode, display hardware untouched")
		return s
	}

	s.disp = epd.NewController(epd.Opts{
		Port: cfg.Display.SPIPort,
		Pins: epd.PinMap{
			Reset: cfg.Display.ResetPin,
			DC:    cfg.Display.DCPin,
			CS:    cfg.Display.CSPin,
			Busy:  cfg.Display.BusyPin,
		},
	})

	if err := s.disp.Init(); err != nil {
		if errors.Is(err, epd.ErrUnavailable) {
			appLog.Info("no display hardware, frames will be saved as PNG",
				"path", cfg.FallbackPNG)
		} else {
			appLog.Error("display init failed, falling back to PNG output", err)
		}
		return s
	}

	s.hardware = true
	appLog.Info("display initialized")
	return s
}

// HasDisplay reports whether the physical panel is driving output.
func (s *Station) HasDisplay() bool { return s.hardware }

// Update fetches the current weather and refreshes the display, or saves
// the frame to the fallback PNG when no hardware is present.
func (s *Station) Update(ctx context.Context) error {
	obs, err := s.api.Current(ctx)
	if err != nil {
		return err
	}

	img := s.rend.Compose(obs, s.clock())

	if !s.hardware {
		return s.savePNG(img)
	}

	if err := s.disp.RenderFull(epd.NewImageFrame(img)); err != nil {
		return err
	}
	appLog.Info("display updated", "city", obs.City, "temperature", obs.Temperature)
	return nil
}

// Clear blanks the panel. Without hardware this is a no-op.
func (s *Station) Clear() error {
	if !s.hardware {
		return nil
	}
	return s.disp.Clear()
}

// Shutdown puts the panel into deep sleep and releases the bus. Safe to
// call in any mode.
func (s *Station) Shutdown() {
	if !s.hardware {
		return
	}
	if err := s.disp.Sleep(); err != nil {
		appLog.Error("display sleep failed", err)
		return
	}
	appLog.Info("display sleeping")
}

func (s *Station) savePNG(img image.Image) error {
	f, err := os.Create(s.cfg.FallbackPNG)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	appLog.Info("frame saved", "path", s.cfg.FallbackPNG)
	return nil
}
