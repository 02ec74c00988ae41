package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/skycast/backend/internal/domain"
)

// OverviewService aggregates the home screen data: the current
// snapshot and the 5-day forecast, fetched concurrently.
type OverviewService struct {
	weatherSvc *WeatherService
}

// NewOverviewService creates a new overview service
func NewOverviewService(weatherSvc *WeatherService) *OverviewService {
	return &OverviewService{weatherSvc: weatherSvc}
}

// GetOverview fetches current conditions and the forecast for q
// concurrently. The current snapshot is required; a failed forecast is
// logged and the overview is returned without it.
func (s *OverviewService) GetOverview(ctx context.Context, q string) (domain.Overview, error) {
	var (
		current     domain.CurrentWeather
		forecast    []domain.ForecastDay
		currentErr  error
		forecastErr error
		wg          sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		current, currentErr = s.weatherSvc.GetCurrent(ctx, q)
	}()
	go func() {
		defer wg.Done()
		forecast, forecastErr = s.weatherSvc.GetForecast(ctx, q, 5)
	}()
	wg.Wait()

	if currentErr != nil {
		return domain.Overview{}, currentErr
	}
	if forecastErr != nil {
		log.Printf("overview: forecast fetch failed for %q: %v", q, forecastErr)
		forecast = nil
	}

	return domain.Overview{
		Current:   current,
		Forecast:  forecast,
		Timestamp: time.Now(),
	}, nil
}
