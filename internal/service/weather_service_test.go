package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skycast/backend/internal/domain"
)

const currentFixture = `{
	"location": {"name": "Seattle", "region": "Washington", "country": "United States of America"},
	"current": {
		"last_updated": "2025-09-01 14:30",
		"temp_f": 68.4,
		"is_day": 1,
		"condition": {"text": "Partly cloudy"},
		"wind_mph": 9.4,
		"wind_dir": "SW",
		"gust_mph": 14.1,
		"pressure_mb": 1017.0,
		"humidity": 62,
		"cloud": 50,
		"feelslike_f": 67.2,
		"dewpoint_f": 54.9,
		"vis_miles": 9.0,
		"uv": 5.0,
		"air_quality": {"pm2_5": 8.3, "us-epa-index": 1}
	}
}`

const oneDayForecastFixture = `{
	"forecast": {"forecastday": [{
		"date": "2025-09-01",
		"day": {
			"maxtemp_f": 74.8,
			"mintemp_f": 57.6,
			"daily_chance_of_rain": 20,
			"condition": {"text": "Partly cloudy"}
		},
		"astro": {"sunrise": "06:27 AM", "sunset": "07:48 PM"}
	}]}
}`

const fiveDayForecastFixture = `{
	"forecast": {"forecastday": [
		{"date": "2025-09-01", "day": {"maxtemp_f": 74.8, "mintemp_f": 57.6, "daily_chance_of_rain": 20, "condition": {"text": "Partly cloudy"}}, "astro": {"sunrise": "06:27 AM", "sunset": "07:48 PM"}},
		{"date": "2025-09-02", "day": {"maxtemp_f": 71.1, "mintemp_f": 55.2, "daily_chance_of_rain": 60, "condition": {"text": "Heavy rain at times"}}, "astro": {"sunrise": "06:28 AM", "sunset": "07:46 PM"}},
		{"date": "2025-09-03", "day": {"maxtemp_f": 66.9, "mintemp_f": 53.0, "daily_chance_of_rain": 80, "condition": {"text": "Moderate rain"}}, "astro": {"sunrise": "06:29 AM", "sunset": "07:44 PM"}},
		{"date": "2025-09-04", "day": {"maxtemp_f": 69.3, "mintemp_f": 54.1, "daily_chance_of_rain": 10, "condition": {"text": "Sunny"}}, "astro": {"sunrise": "06:31 AM", "sunset": "07:42 PM"}},
		{"date": "2025-09-05", "day": {"maxtemp_f": 72.0, "mintemp_f": 56.3, "daily_chance_of_rain": 0, "condition": {"text": "Sunny"}}, "astro": {"sunrise": "06:32 AM", "sunset": "07:40 PM"}}
	]}
}`

const searchFixture = `[
	{"id": 2655603, "name": "Seattle", "region": "Washington", "country": "United States of America", "lat": 47.61, "lon": -122.33},
	{"id": 2655604, "name": "Seattle Hill-Silver Firs", "region": "Washington", "country": "United States of America", "lat": 47.87, "lon": -122.11}
]`

func newFakeProvider(t *testing.T, forecastStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/current.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "yes", r.URL.Query().Get("aqi"))
		w.Write([]byte(currentFixture))
	})
	mux.HandleFunc("/forecast.json", func(w http.ResponseWriter, r *http.Request) {
		if forecastStatus != http.StatusOK {
			http.Error(w, `{"error":{"message":"internal"}}`, forecastStatus)
			return
		}
		assert.Equal(t, "no", r.URL.Query().Get("alerts"))
		if r.URL.Query().Get("days") == "1" {
			w.Write([]byte(oneDayForecastFixture))
			return
		}
		w.Write([]byte(fiveDayForecastFixture))
	})
	mux.HandleFunc("/search.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(searchFixture))
	})
	return httptest.NewServer(mux)
}

func TestGetCurrentMergesDayFields(t *testing.T) {
	server := newFakeProvider(t, http.StatusOK)
	defer server.Close()

	svc := NewWeatherService("test-key", server.URL)
	snapshot, err := svc.GetCurrent(context.Background(), "Seattle")
	require.NoError(t, err)

	assert.Equal(t, "Seattle", snapshot.City)
	assert.Equal(t, 68, snapshot.Temperature)
	assert.Equal(t, "Partly cloudy", snapshot.Condition)
	assert.Equal(t, IconPartlyDay, snapshot.Icon)
	assert.Equal(t, ThemeSunny, snapshot.Theme)
	assert.True(t, snapshot.IsDay)

	// Day-level fields come from the one-day forecast call.
	assert.Equal(t, 74, snapshot.High)
	assert.Equal(t, 57, snapshot.Low)
	assert.Equal(t, 20, snapshot.PrecipChance)
	assert.Equal(t, "06:27 AM", snapshot.Sunrise)
	assert.Equal(t, "07:48 PM", snapshot.Sunset)

	// Enrichment fields.
	assert.Equal(t, 62, snapshot.Humidity)
	assert.Equal(t, 1017.0, snapshot.Pressure)
	assert.Equal(t, 9.4, snapshot.WindSpeed)
	assert.Equal(t, "SW", snapshot.WindDir)
	assert.Equal(t, 1, snapshot.AirQualityEPA)
	assert.Equal(t, 8.3, snapshot.PM25)
	assert.Equal(t, "2025-09-01 14:30", snapshot.LastUpdated)
}

func TestGetCurrentFallsBackWhenForecastFails(t *testing.T) {
	server := newFakeProvider(t, http.StatusInternalServerError)
	defer server.Close()

	svc := NewWeatherService("test-key", server.URL)
	snapshot, err := svc.GetCurrent(context.Background(), "Seattle")
	require.NoError(t, err)

	assert.Equal(t, 68, snapshot.Temperature)
	assert.Equal(t, 68+fallbackTempOffset, snapshot.High)
	assert.Equal(t, 68-fallbackTempOffset, snapshot.Low)
	assert.Equal(t, placeholderTime, snapshot.Sunrise)
	assert.Equal(t, placeholderTime, snapshot.Sunset)
	assert.Equal(t, 0, snapshot.PrecipChance)
}

func TestGetCurrentPropagatesStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"API key is invalid"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	svc := NewWeatherService("bad-key", server.URL)
	_, err := svc.GetCurrent(context.Background(), "Seattle")
	require.Error(t, err)

	var apiErr *domain.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "API key is invalid")
}

func TestGetCurrentRejectsMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	svc := NewWeatherService("test-key", server.URL)
	_, err := svc.GetCurrent(context.Background(), "Seattle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse response")
}

func TestGetForecastMapsDays(t *testing.T) {
	server := newFakeProvider(t, http.StatusOK)
	defer server.Close()

	svc := NewWeatherService("test-key", server.URL)
	forecast, err := svc.GetForecast(context.Background(), "Seattle", 5)
	require.NoError(t, err)
	require.Len(t, forecast, 5)

	assert.Equal(t, "Monday", forecast[0].Weekday)
	assert.Equal(t, "Tuesday", forecast[1].Weekday)
	assert.Equal(t, "Friday", forecast[4].Weekday)

	assert.Equal(t, 74, forecast[0].High)
	assert.Equal(t, 57, forecast[0].Low)
	assert.Equal(t, IconRain, forecast[1].Icon)
	assert.Equal(t, IconSunny, forecast[3].Icon)

	// Synthetic ids, not derived from content.
	assert.NotEqual(t, forecast[0].ID, forecast[1].ID)
}

func TestSearchReturnsCandidates(t *testing.T) {
	server := newFakeProvider(t, http.StatusOK)
	defer server.Close()

	svc := NewWeatherService("test-key", server.URL)
	results, err := svc.Search(context.Background(), "Seattle")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 2655603, results[0].ID)
	assert.Equal(t, "Seattle", results[0].Name)
	assert.Equal(t, "Washington", results[0].Region)
	assert.Equal(t, 47.61, results[0].Lat)
}

func TestWeekdayFromDate(t *testing.T) {
	assert.Equal(t, "Monday", weekdayFromDate("2025-09-01"))
	assert.Equal(t, "Sunday", weekdayFromDate("2025-08-31"))
	// Unparseable input falls through untouched.
	assert.Equal(t, "not-a-date", weekdayFromDate("not-a-date"))
}

func TestCoordQuery(t *testing.T) {
	assert.Equal(t, "47.6062,-122.3321", CoordQuery(47.60621, -122.33207))
}
