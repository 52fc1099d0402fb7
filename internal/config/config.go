package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DisplayConfig describes how the e-paper panel is wired to this host.
type DisplayConfig struct {
	// SPIPort is the periph.io SPI port name; empty selects the default
	// port (/dev/spidev0.0 on a Raspberry Pi).
	SPIPort string `yaml:"spi_port" json:"spi_port"`

	// Control pins by BCM GPIO name.
	ResetPin string `yaml:"reset_pin" json:"reset_pin"`
	DCPin    string `yaml:"dc_pin" json:"dc_pin"`
	CSPin    string `yaml:"cs_pin" json:"cs_pin"`
	BusyPin  string `yaml:"busy_pin" json:"busy_pin"`

	// Rotation is the layout rotation in degrees; 0 or 180.
	Rotation int `yaml:"rotation" json:"rotation"`
}

// Config is the top-level application configuration.
type Config struct {
	// Latitude / Longitude locate the forecast.
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`

	// City is the label shown on the display.
	City string `yaml:"city" json:"city"`

	// RefreshCron is a cron-style schedule string (e.g. "*/30 * * * *")
	// for periodic weather refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Language selects weather descriptions: "de" or "en".
	Language string `yaml:"language" json:"language"`

	// Units is "metric" or "imperial".
	Units string `yaml:"units" json:"units"`

	// Timezone is the IANA timezone used for the API request and the
	// clock on the display (e.g. "Europe/Berlin").
	Timezone string `yaml:"timezone" json:"timezone"`

	// FontPath is a TTF file used for rendering; empty falls back to a
	// built-in bitmap face.
	FontPath string `yaml:"font_path" json:"font_path"`

	// FallbackPNG is where rendered frames are written when no display
	// hardware is present.
	FallbackPNG string `yaml:"fallback_png" json:"fallback_png"`

	Display DisplayConfig `yaml:"display" json:"display"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Latitude:    54.3091,
		Longitude:   13.0818,
		City:        "Stralsund",
		RefreshCron: "*/30 * * * *",
		Language:    "de",
		Units:       "metric",
		Timezone:    "Europe/Berlin",
		FallbackPNG: "weather_display.png",
		Display: DisplayConfig{
			ResetPin: "GPIO17",
			DCPin:    "GPIO25",
			CSPin:    "GPIO8",
			BusyPin:  "GPIO24",
			Rotation: 180,
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Latitude == 0 && c.Longitude == 0 {
		c.Latitude = def.Latitude
		c.Longitude = def.Longitude
	}
	if c.City == "" {
		c.City = def.City
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	switch c.Language {
	case "de", "en":
	default:
		c.Language = def.Language
	}
	switch c.Units {
	case "metric", "imperial":
	default:
		c.Units = def.Units
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.FallbackPNG == "" {
		c.FallbackPNG = def.FallbackPNG
	}
	if c.Display.ResetPin == "" {
		c.Display.ResetPin = def.Display.ResetPin
	}
	if c.Display.DCPin == "" {
		c.Display.DCPin = def.Display.DCPin
	}
	if c.Display.CSPin == "" {
		c.Display.CSPin = def.Display.CSPin
	}
	if c.Display.BusyPin == "" {
		c.Display.BusyPin = def.Display.BusyPin
	}
	switch c.Display.Rotation {
	case 0, 180:
	default:
		c.Display.Rotation = def.Display.Rotation
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written there
//     (parent directory created, 0600 perms) and returned.
//   - If the file exists, it is unmarshaled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path, atomically
// via a temp file + rename, with final permissions 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".epdweather-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up the temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save delegates to the package-level Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
