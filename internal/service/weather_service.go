package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skycast/backend/internal/domain"
	"github.com/skycast/backend/pkg/utils"
)

// DefaultWeatherAPIURL is the production weather provider base URL.
const DefaultWeatherAPIURL = "https://api.weatherapi.com/v1"

// Fallback values used when the one-day forecast sub-call fails:
// high/low are widened from the current temperature by a fixed offset,
// and sunrise/sunset get a placeholder string.
const (
	fallbackTempOffset = 5
	placeholderTime    = "--:--"
)

// WeatherService translates a location query (a place name or a
// "lat,lon" string) into domain weather values via the WeatherAPI
// provider. Errors propagate to the caller untouched - no retries.
type WeatherService struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewWeatherService creates a new weather service. An empty baseURL
// selects the production provider endpoint.
func NewWeatherService(apiKey, baseURL string) *WeatherService {
	if baseURL == "" {
		baseURL = DefaultWeatherAPIURL
	}
	return &WeatherService{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// currentResponse mirrors the provider's current.json shape.
type currentResponse struct {
	Location struct {
		Name    string `json:"name"`
		Region  string `json:"region"`
		Country string `json:"country"`
	} `json:"location"`
	Current struct {
		LastUpdated string  `json:"last_updated"`
		TempF       float64 `json:"temp_f"`
		IsDay       int     `json:"is_day"`
		Condition   struct {
			Text string `json:"text"`
		} `json:"condition"`
		WindMph    float64 `json:"wind_mph"`
		WindDir    string  `json:"wind_dir"`
		GustMph    float64 `json:"gust_mph"`
		PressureMb float64 `json:"pressure_mb"`
		Humidity   int     `json:"humidity"`
		Cloud      int     `json:"cloud"`
		FeelsLikeF float64 `json:"feelslike_f"`
		DewPointF  float64 `json:"dewpoint_f"`
		VisMiles   float64 `json:"vis_miles"`
		UV         float64 `json:"uv"`
		AirQuality struct {
			PM25     float64 `json:"pm2_5"`
			EPAIndex int     `json:"us-epa-index"`
		} `json:"air_quality"`
	} `json:"current"`
}

// forecastResponse mirrors the provider's forecast.json shape.
type forecastResponse struct {
	Forecast struct {
		ForecastDay []struct {
			Date string `json:"date"`
			Day  struct {
				MaxTempF          float64 `json:"maxtemp_f"`
				MinTempF          float64 `json:"mintemp_f"`
				DailyChanceOfRain int     `json:"daily_chance_of_rain"`
				Condition         struct {
					Text string `json:"text"`
				} `json:"condition"`
			} `json:"day"`
			Astro struct {
				Sunrise string `json:"sunrise"`
				Sunset  string `json:"sunset"`
			} `json:"astro"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

// GetCurrent fetches current conditions for q and merges in day-level
// fields (sunrise/sunset, precipitation chance, true high/low) from a
// one-day forecast call, since the current-conditions endpoint does not
// carry them. The two requests run concurrently. A failed forecast
// sub-call degrades to the fixed-offset high/low and placeholder
// sunrise/sunset; a failed current-conditions call fails the whole fetch.
func (s *WeatherService) GetCurrent(ctx context.Context, q string) (domain.CurrentWeather, error) {
	var (
		cur    currentResponse
		day    forecastResponse
		curErr error
		dayErr error
		wg     sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		curErr = s.get(ctx, "current.json", url.Values{"q": {q}, "aqi": {"yes"}}, &cur)
	}()
	go func() {
		defer wg.Done()
		dayErr = s.get(ctx, "forecast.json", url.Values{
			"q": {q}, "days": {"1"}, "aqi": {"yes"}, "alerts": {"no"},
		}, &day)
	}()
	wg.Wait()

	if curErr != nil {
		return domain.CurrentWeather{}, curErr
	}

	isDay := cur.Current.IsDay == 1
	temp := int(cur.Current.TempF)

	snapshot := domain.CurrentWeather{
		City:        cur.Location.Name,
		Temperature: temp,
		Condition:   cur.Current.Condition.Text,
		Icon:        IconForCondition(cur.Current.Condition.Text, isDay),
		Theme:       ThemeForCondition(cur.Current.Condition.Text, isDay),
		IsDay:       isDay,

		FeelsLike:     int(cur.Current.FeelsLikeF),
		Humidity:      cur.Current.Humidity,
		Pressure:      cur.Current.PressureMb,
		WindSpeed:     cur.Current.WindMph,
		WindDir:       cur.Current.WindDir,
		GustSpeed:     cur.Current.GustMph,
		Visibility:    cur.Current.VisMiles,
		UV:            cur.Current.UV,
		CloudCover:    cur.Current.Cloud,
		DewPoint:      int(cur.Current.DewPointF),
		AirQualityEPA: cur.Current.AirQuality.EPAIndex,
		PM25:          cur.Current.AirQuality.PM25,
		LastUpdated:   cur.Current.LastUpdated,

		Timestamp: time.Now(),
	}

	if dayErr == nil && len(day.Forecast.ForecastDay) > 0 {
		d := day.Forecast.ForecastDay[0]
		snapshot.High = int(d.Day.MaxTempF)
		snapshot.Low = int(d.Day.MinTempF)
		snapshot.PrecipChance = d.Day.DailyChanceOfRain
		snapshot.Sunrise = d.Astro.Sunrise
		snapshot.Sunset = d.Astro.Sunset
	} else {
		snapshot.High = temp + fallbackTempOffset
		snapshot.Low = temp - fallbackTempOffset
		snapshot.Sunrise = placeholderTime
		snapshot.Sunset = placeholderTime
	}

	return snapshot, nil
}

// GetForecast fetches a days-long forecast for q. Days is limited to
// the provider's supported 1..10 range.
func (s *WeatherService) GetForecast(ctx context.Context, q string, days int) ([]domain.ForecastDay, error) {
	days = int(utils.Clamp(float64(days), 1, 10))

	var fc forecastResponse
	err := s.get(ctx, "forecast.json", url.Values{
		"q": {q}, "days": {strconv.Itoa(days)}, "aqi": {"yes"}, "alerts": {"no"},
	}, &fc)
	if err != nil {
		return nil, err
	}

	forecast := make([]domain.ForecastDay, 0, len(fc.Forecast.ForecastDay))
	for _, d := range fc.Forecast.ForecastDay {
		forecast = append(forecast, domain.ForecastDay{
			ID:      uuid.New(),
			Weekday: weekdayFromDate(d.Date),
			High:    int(d.Day.MaxTempF),
			Low:     int(d.Day.MinTempF),
			Icon:    IconForCondition(d.Day.Condition.Text, true),
		})
	}
	return forecast, nil
}

// Search resolves a free-text query to candidate locations.
func (s *WeatherService) Search(ctx context.Context, q string) ([]domain.SearchResult, error) {
	var results []domain.SearchResult
	if err := s.get(ctx, "search.json", url.Values{"q": {q}}, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// CoordQuery formats coordinates as the provider's "lat,lon" query
// form, rounded to 4 decimal places to keep slot keys stable.
func CoordQuery(lat, lon float64) string {
	return fmt.Sprintf("%g,%g", utils.RoundTo(lat, 4), utils.RoundTo(lon, 4))
}

// get issues one provider request and decodes the JSON response into
// out. Non-2xx statuses become *domain.APIError carrying the raw body.
func (s *WeatherService) get(ctx context.Context, resource string, params url.Values, out any) error {
	params.Set("key", s.apiKey)
	endpoint := fmt.Sprintf("%s/%s?%s", s.baseURL, resource, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("weather: failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("weather: failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("weather: failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("weather: failed to parse response: %w", err)
	}
	return nil
}

// weekdayFromDate derives a weekday name from the provider's date
// string, trying the ISO form first and falling back to a manual
// year-month-day split.
func weekdayFromDate(date string) string {
	if t, err := time.Parse("2006-01-02", date); err == nil {
		return t.Weekday().String()
	}

	parts := strings.Split(date, "-")
	if len(parts) != 3 {
		return date
	}
	year, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	dayNum, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return date
	}
	t := time.Date(year, time.Month(month), dayNum, 0, 0, 0, 0, time.UTC)
	return t.Weekday().String()
}
