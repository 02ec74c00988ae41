package service

import "strings"

// SF Symbol identifiers rendered by the clients.
const (
	IconSunny        = "sun.max.fill"
	IconClearNight   = "moon.stars.fill"
	IconPartlyDay    = "cloud.sun.fill"
	IconPartlyNight  = "cloud.moon.fill"
	IconRain         = "cloud.rain.fill"
	IconThunderstorm = "cloud.bolt.rain.fill"
	IconSnow         = "cloud.snow.fill"
	IconFog          = "cloud.fog.fill"
	IconWind         = "wind"
)

// Background theme tags rendered by the clients.
const (
	ThemeThunder = "thunder"
	ThemeRainy   = "rainy"
	ThemeSnowy   = "snowy"
	ThemeFoggy   = "foggy"
	ThemeWindy   = "windy"
	ThemeHot     = "hot"
	ThemeSunny   = "sunny"
)

// IconForCondition maps a provider condition text to an icon
// identifier. Matching is case-insensitive substring matching, and the
// precedence order below is load-bearing: "Patchy light rain with
// thunder" must resolve to rain, not thunder.
func IconForCondition(condition string, isDay bool) string {
	c := strings.ToLower(condition)
	switch {
	case containsAny(c, "sunny", "clear"):
		if isDay {
			return IconSunny
		}
		return IconClearNight
	case containsAny(c, "partly", "cloud"):
		if isDay {
			return IconPartlyDay
		}
		return IconPartlyNight
	case containsAny(c, "rain", "drizzle", "shower"):
		return IconRain
	case containsAny(c, "thunder", "storm", "lightning"):
		return IconThunderstorm
	case containsAny(c, "snow", "sleet", "blizzard"):
		return IconSnow
	case containsAny(c, "fog", "mist", "haze", "smoke"):
		return IconFog
	case containsAny(c, "wind", "breeze", "gust"):
		return IconWind
	default:
		if isDay {
			return IconPartlyDay
		}
		return IconPartlyNight
	}
}

// ThemeForCondition maps a provider condition text to a background
// theme tag. Unlike the icon precedence, thunder outranks rain here.
func ThemeForCondition(condition string, isDay bool) string {
	c := strings.ToLower(condition)
	switch {
	case containsAny(c, "thunder", "storm"):
		return ThemeThunder
	case containsAny(c, "rain", "drizzle", "shower"):
		return ThemeRainy
	case containsAny(c, "snow", "sleet", "blizzard"):
		return ThemeSnowy
	case containsAny(c, "fog", "mist", "haze"):
		return ThemeFoggy
	case containsAny(c, "wind", "breeze", "gust"):
		return ThemeWindy
	case containsAny(c, "hot", "humid"):
		return ThemeHot
	default:
		if isDay {
			return ThemeSunny
		}
		return ThemeFoggy
	}
}

func containsAny(s string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
