// Package weather fetches current conditions and forecasts from the
// Open-Meteo API and maps WMO weather codes to display text and icons.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	appLog "epdweather/internal/log"
)

const defaultBaseURL = "https://api.open-meteo.com/v1"

// currentFields is the comma-separated field list for the current block.
const currentFields = "temperature_2m,relative_humidity_2m,apparent_temperature," +
	"weather_code,surface_pressure,wind_speed_10m,wind_direction_10m,is_day"

// Current is a single observation.
type Current struct {
	City          string
	Temperature   float64
	FeelsLike     float64
	Humidity      int
	Pressure      float64
	WindSpeed     float64
	WindDirection int
	Code          int
	IsDay         bool
	Description   string
	Icon          string
	FetchedAt     time.Time
}

// ForecastEntry is one 3-hourly forecast slot.
type ForecastEntry struct {
	Time        time.Time
	Temperature float64
	Humidity    int
	WindSpeed   float64
	Code        int
	Description string
}

// Client talks to the Open-Meteo forecast endpoint for one location.
type Client struct {
	baseURL  string
	client   *http.Client
	lat, lon float64
	city     string
	lang     string
	units    string
	timezone string
}

// NewClient creates a weather client for the given coordinates. lang
// selects description text ("de" or "en"), units is "metric" or
// "imperial".
func NewClient(lat, lon float64, city, lang, units, timezone string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		lat:      lat,
		lon:      lon,
		city:     city,
		lang:     lang,
		units:    units,
		timezone: timezone,
	}
}

type currentPayload struct {
	Current struct {
		Time        string  `json:"time"`
		Temperature float64 `json:"temperature_2m"`
		Humidity    float64 `json:"relative_humidity_2m"`
		FeelsLike   float64 `json:"apparent_temperature"`
		Code        int     `json:"weather_code"`
		Pressure    float64 `json:"surface_pressure"`
		WindSpeed   float64 `json:"wind_speed_10m"`
		WindDir     float64 `json:"wind_direction_10m"`
		IsDay       int     `json:"is_day"`
	} `json:"current"`
}

// Current fetches the current conditions.
func (c *Client) Current(ctx context.Context) (Current, error) {
	q := c.baseQuery()
	q.Set("current", currentFields)
	q.Set("forecast_days", "1")

	appLog.Info("fetching current weather", "city", c.city, "lat", c.lat, "lon", c.lon)

	var payload currentPayload
	if err := c.get(ctx, q, &payload); err != nil {
		return Current{}, err
	}

	cur := payload.Current
	obs := Current{
		City:          c.city,
		Temperature:   cur.Temperature,
		FeelsLike:     cur.FeelsLike,
		Humidity:      int(cur.Humidity),
		Pressure:      cur.Pressure,
		WindSpeed:     cur.WindSpeed,
		WindDirection: int(cur.WindDir),
		Code:          cur.Code,
		IsDay:         cur.IsDay == 1,
		Description:   Describe(cur.Code, c.lang),
		Icon:          Icon(cur.Code),
		FetchedAt:     time.Now(),
	}

	appLog.Info("weather fetched", "temperature", obs.Temperature, "description", obs.Description)
	return obs, nil
}

type forecastPayload struct {
	Hourly struct {
		Time        []string  `json:"time"`
		Temperature []float64 `json:"temperature_2m"`
		Humidity    []float64 `json:"relative_humidity_2m"`
		WindSpeed   []float64 `json:"wind_speed_10m"`
		Code        []int     `json:"weather_code"`
	} `json:"hourly"`
}

// Forecast fetches up to days (max 7) of hourly forecast, thinned to
// 3-hour slots.
func (c *Client) Forecast(ctx context.Context, days int) ([]ForecastEntry, error) {
	if days > 7 {
		days = 7
	}

	q := c.baseQuery()
	q.Set("hourly", "temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code")
	q.Set("forecast_days", strconv.Itoa(days))

	appLog.Info("fetching forecast", "city", c.city, "days", days)

	var payload forecastPayload
	if err := c.get(ctx, q, &payload); err != nil {
		return nil, err
	}

	h := payload.Hourly
	entries := make([]ForecastEntry, 0, days*8)
	for i := 0; i < len(h.Time); i += 3 {
		if len(entries) >= days*8 {
			break
		}
		if i >= len(h.Temperature) || i >= len(h.Humidity) || i >= len(h.WindSpeed) || i >= len(h.Code) {
			return nil, fmt.Errorf("weather: forecast arrays are ragged at index %d", i)
		}

		ts, err := time.Parse("2006-01-02T15:04", h.Time[i])
		if err != nil {
			return nil, fmt.Errorf("weather: parse forecast time %q: %w", h.Time[i], err)
		}

		entries = append(entries, ForecastEntry{
			Time:        ts,
			Temperature: h.Temperature[i],
			Humidity:    int(h.Humidity[i]),
			WindSpeed:   h.WindSpeed[i],
			Code:        h.Code[i],
			Description: Describe(h.Code[i], c.lang),
		})
	}

	appLog.Info("forecast fetched", "entries", len(entries))
	return entries, nil
}

func (c *Client) baseQuery() url.Values {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(c.lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(c.lon, 'f', 4, 64))
	q.Set("timezone", c.timezone)
	if c.units == "imperial" {
		q.Set("temperature_unit", "fahrenheit")
		q.Set("wind_speed_unit", "mph")
	}
	return q
}

func (c *Client) get(ctx context.Context, q url.Values, out any) error {
	u := c.baseURL + "/forecast?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("weather: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("weather: unexpected status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("weather: decode response: %w", err)
	}
	return nil
}
