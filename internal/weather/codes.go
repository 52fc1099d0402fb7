package weather

// WMO weather interpretation codes mapped to display text.

var descriptionsDE = map[int]string{
	0: "Klarer Himmel", 1: "Überwiegend klar", 2: "Teilweise bewölkt", 3: "Bedeckt",
	45: "Nebel", 48: "Nebel mit Reifablagerung",
	51: "Leichter Nieselregen", 53: "Mäßiger Nieselregen", 55: "Starker Nieselregen",
	56: "Leichter gefrierender Nieselregen", 57: "Starker gefrierender Nieselregen",
	61: "Leichter Regen", 63: "Mäßiger Regen", 65: "Starker Regen",
	66: "Leichter gefrierender Regen", 67: "Starker gefrierender Regen",
	71: "Leichter Schneefall", 73: "Mäßiger Schneefall", 75: "Starker Schneefall",
	77: "Schneekörner", 80: "Leichte Regenschauer", 81: "Mäßige Regenschauer",
	82: "Starke Regenschauer", 85: "Leichte Schneeschauer", 86: "Starke Schneeschauer",
	95: "Gewitter", 96: "Gewitter mit leichtem Hagel", 99: "Gewitter mit starkem Hagel",
}

var descriptionsEN = map[int]string{
	0: "Clear sky", 1: "Mainly clear", 2: "Partly cloudy", 3: "Overcast",
	45: "Fog", 48: "Depositing rime fog",
	51: "Light drizzle", 53: "Moderate drizzle", 55: "Dense drizzle",
	56: "Light freezing drizzle", 57: "Dense freezing drizzle",
	61: "Slight rain", 63: "Moderate rain", 65: "Heavy rain",
	66: "Light freezing rain", 67: "Heavy freezing rain",
	71: "Slight snowfall", 73: "Moderate snowfall", 75: "Heavy snowfall",
	77: "Snow grains", 80: "Slight rain showers", 81: "Moderate rain showers",
	82: "Violent rain showers", 85: "Slight snow showers", 86: "Heavy snow showers",
	95: "Thunderstorm", 96: "Thunderstorm with slight hail", 99: "Thunderstorm with heavy hail",
}

// Describe maps a WMO weather code to a human-readable description in the
// given language ("de" or "en").
func Describe(code int, lang string) string {
	m := descriptionsDE
	unknown := "Unbekannt"
	if lang == "en" {
		m = descriptionsEN
		unknown = "Unknown"
	}
	if d, ok := m[code]; ok {
		return d
	}
	return unknown
}

// Icon maps a WMO weather code to an icon identifier (OpenWeatherMap-style
// naming, kept for icon asset compatibility).
func Icon(code int) string {
	switch {
	case code == 0:
		return "01d" // clear sky
	case code == 1 || code == 2:
		return "02d" // few clouds
	case code == 3:
		return "03d" // scattered clouds
	case code == 45 || code == 48:
		return "50d" // mist
	case code >= 51 && code <= 57:
		return "09d" // drizzle
	case code >= 61 && code <= 67:
		return "10d" // rain
	case code >= 71 && code <= 77, code == 85, code == 86:
		return "13d" // snow
	case code >= 80 && code <= 82:
		return "09d" // shower rain
	case code == 95 || code == 96 || code == 99:
		return "11d" // thunderstorm
	default:
		return "01d"
	}
}
