package domain

import (
	"time"

	"github.com/google/uuid"
)

// CurrentWeather represents current conditions for a location.
// It is an immutable snapshot: produced in one piece by the weather
// service's mapping step and always replaced wholesale, never patched.
type CurrentWeather struct {
	City        string `json:"city"`
	Temperature int    `json:"temperature"` // Fahrenheit
	Condition   string `json:"condition"`
	High        int    `json:"high"`
	Low         int    `json:"low"`
	Icon        string `json:"icon"`  // SF Symbol identifier
	Theme       string `json:"theme"` // background theme tag
	IsDay       bool   `json:"is_day"`

	FeelsLike     int     `json:"feels_like"`
	Humidity      int     `json:"humidity"`
	Pressure      float64 `json:"pressure_mb"`
	WindSpeed     float64 `json:"wind_mph"`
	WindDir       string  `json:"wind_dir"`
	GustSpeed     float64 `json:"gust_mph"`
	Visibility    float64 `json:"visibility_miles"`
	UV            float64 `json:"uv"`
	CloudCover    int     `json:"cloud_cover"`
	DewPoint      int     `json:"dew_point"`
	AirQualityEPA int     `json:"aqi_epa"`
	PM25          float64 `json:"pm2_5"`
	Sunrise       string  `json:"sunrise"`
	Sunset        string  `json:"sunset"`
	PrecipChance  int     `json:"precip_chance"`
	LastUpdated   string  `json:"last_updated"`

	Timestamp time.Time `json:"timestamp"`
}

// ForecastDay represents one day of a multi-day forecast.
// The ID is synthetic, not derived from content.
type ForecastDay struct {
	ID      uuid.UUID `json:"id"`
	Weekday string    `json:"weekday"`
	High    int       `json:"high"`
	Low     int       `json:"low"`
	Icon    string    `json:"icon"`
}

// SearchResult represents a location returned by the provider's search
// endpoint. Transient - never persisted.
type SearchResult struct {
	ID      int     `json:"id"`
	Name    string  `json:"name"`
	Region  string  `json:"region"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// WeatherResponse wraps a current-weather snapshot with metadata
type WeatherResponse struct {
	Data    CurrentWeather `json:"data"`
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
}

// ForecastResponse wraps a forecast with metadata
type ForecastResponse struct {
	Data    []ForecastDay `json:"data"`
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
}

// Overview aggregates the current snapshot and the 5-day forecast
// rendered together on the home screen.
type Overview struct {
	Current   CurrentWeather `json:"current"`
	Forecast  []ForecastDay  `json:"forecast"`
	Timestamp time.Time      `json:"timestamp"`
}
