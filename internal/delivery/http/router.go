package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/skycast/backend/internal/service"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(
	app *fiber.App,
	weatherSvc *service.WeatherService,
	overviewSvc *service.OverviewService,
	favoritesSvc *service.FavoritesService,
	sessionSvc *service.SessionService,
) {
	handler := NewHandler(weatherSvc, overviewSvc, favoritesSvc, sessionSvc)

	// Health check
	app.Get("/health", handler.HealthCheck)

	// API v1 routes
	api := app.Group("/api/v1")
	{
		// Weather endpoints
		api.Get("/weather/current", handler.GetCurrentWeather)
		api.Get("/weather/forecast", handler.GetForecast)
		api.Get("/weather/search", handler.SearchLocations)
		api.Get("/weather/at", handler.GetWeatherAt)

		// Home screen slot
		api.Get("/home", handler.GetHome)
		api.Delete("/home", handler.CancelHome)

		// Favorites endpoints
		api.Get("/favorites", handler.GetFavorites)
		api.Post("/favorites/refresh", handler.RefreshFavorites)
		api.Post("/favorites/toggle", handler.ToggleFavorite)
		api.Delete("/favorites", handler.ClearFavorites)
		api.Get("/favorites/nearest", handler.GetNearestFavorite)
		api.Get("/favorites/:id/weather", handler.GetFavoriteWeather)

		// Auth endpoints
		api.Post("/auth/signin", handler.SignIn)
		api.Post("/auth/signup", handler.SignUp)
		api.Post("/auth/signout", handler.SignOut)
		api.Get("/session", handler.GetSession)
	}
}
