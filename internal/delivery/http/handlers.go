package http

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/skycast/backend/internal/domain"
	"github.com/skycast/backend/internal/service"
	"github.com/skycast/backend/pkg/fetch"
)

// homeSlot is the logical key for the home screen's current-city slot.
// Every request for it supersedes the one before, so the slot always
// settles on the most recently requested city.
const homeSlot = "home"

// Handler contains all HTTP handlers
type Handler struct {
	weatherSvc   *service.WeatherService
	overviewSvc  *service.OverviewService
	favoritesSvc *service.FavoritesService
	sessionSvc   *service.SessionService

	home     *fetch.Group[string, domain.Overview]
	previews *fetch.Group[uuid.UUID, domain.CurrentWeather]
	markers  *fetch.Group[string, domain.CurrentWeather]
}

// NewHandler creates a new handler
func NewHandler(
	weatherSvc *service.WeatherService,
	overviewSvc *service.OverviewService,
	favoritesSvc *service.FavoritesService,
	sessionSvc *service.SessionService,
) *Handler {
	return &Handler{
		weatherSvc:   weatherSvc,
		overviewSvc:  overviewSvc,
		favoritesSvc: favoritesSvc,
		sessionSvc:   sessionSvc,
		home:         fetch.NewGroup[string, domain.Overview](),
		previews:     fetch.NewGroup[uuid.UUID, domain.CurrentWeather](),
		markers:      fetch.NewGroup[string, domain.CurrentWeather](),
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "skycast-backend",
		"version": "1.0.0",
	})
}

// GetCurrentWeather returns current conditions for ?q=
func (h *Handler) GetCurrentWeather(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing query parameter q")
	}

	weather, err := h.weatherSvc.GetCurrent(c.Context(), q)
	if err != nil {
		return upstreamError(err, "Failed to fetch current weather")
	}

	return c.JSON(domain.WeatherResponse{
		Data:    weather,
		Success: true,
	})
}

// GetForecast returns the multi-day forecast for ?q=&days=
func (h *Handler) GetForecast(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing query parameter q")
	}
	days := c.QueryInt("days", 5)

	forecast, err := h.weatherSvc.GetForecast(c.Context(), q, days)
	if err != nil {
		return upstreamError(err, "Failed to fetch forecast")
	}

	return c.JSON(domain.ForecastResponse{
		Data:    forecast,
		Success: true,
	})
}

// SearchLocations returns location candidates for ?q=
func (h *Handler) SearchLocations(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing query parameter q")
	}

	results, err := h.weatherSvc.Search(c.Context(), q)
	if err != nil {
		return upstreamError(err, "Failed to search locations")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    results,
		"count":   len(results),
	})
}

// GetHome refreshes the home slot for ?q= and returns its state. A
// request for a new city supersedes any fetch still in flight: the
// slot reflects the latest-issued request, whichever resolves first.
func (h *Handler) GetHome(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing query parameter q")
	}

	// Slot fetches may outlive this request when superseded, so they
	// run on a background context rather than the request's.
	done := h.home.Replace(context.Background(), homeSlot, func(ctx context.Context) (domain.Overview, error) {
		return h.overviewSvc.GetOverview(ctx, q)
	})
	<-done

	v, err, status := h.home.State(homeSlot)
	return h.slotResponse(c, v, err, status)
}

// CancelHome returns the home slot to idle, suppressing any in-flight
// result (user navigated away).
func (h *Handler) CancelHome(c *fiber.Ctx) error {
	h.home.Cancel(homeSlot)
	return c.JSON(fiber.Map{"success": true})
}

// GetWeatherAt returns conditions at a map coordinate, one slot per
// rounded "lat,lon" key. Concurrent requests for the same marker are
// collapsed into the first in-flight fetch.
func (h *Handler) GetWeatherAt(c *fiber.Ctx) error {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lon, err2 := strconv.ParseFloat(c.Query("lon"), 64)
	if err1 != nil || err2 != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid lat/lon parameters")
	}

	q := service.CoordQuery(lat, lon)
	done, started := h.markers.Do(context.Background(), q, func(ctx context.Context) (domain.CurrentWeather, error) {
		return h.weatherSvc.GetCurrent(ctx, q)
	})
	if started {
		<-done
	}

	v, err, status := h.markers.State(q)
	return h.slotResponse(c, v, err, status)
}

// GetFavorites returns the favorites cache state
func (h *Handler) GetFavorites(c *fiber.Ctx) error {
	state := h.favoritesSvc.State()
	return c.JSON(fiber.Map{
		"success":    true,
		"data":       state.Favorites,
		"count":      len(state.Favorites),
		"is_loading": state.IsLoading,
		"last_error": state.LastError,
		"offline":    state.Offline,
	})
}

// RefreshFavorites reloads the favorites list from its backend
func (h *Handler) RefreshFavorites(c *fiber.Ctx) error {
	h.favoritesSvc.Load(c.Context())
	return h.GetFavorites(c)
}

type toggleRequest struct {
	City    string   `json:"city"`
	Country string   `json:"country"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

// ToggleFavorite stars or unstars a city
func (h *Handler) ToggleFavorite(c *fiber.Ctx) error {
	var req toggleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.City == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing city")
	}

	favorited, err := h.favoritesSvc.Toggle(c.Context(), req.City, req.Country, req.Lat, req.Lon)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "Failed to update favorite")
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"favorited": favorited,
		"data":      h.favoritesSvc.Favorites(),
	})
}

// ClearFavorites removes every favorite, best-effort
func (h *Handler) ClearFavorites(c *fiber.Ctx) error {
	h.favoritesSvc.ClearAll(c.Context())
	state := h.favoritesSvc.State()
	return c.JSON(fiber.Map{
		"success":    true,
		"last_error": state.LastError,
	})
}

// GetFavoriteWeather returns the per-row weather preview for a
// favorite. Each favorite id owns a coordinator slot, so repeated
// requests while a fetch is in flight are dropped rather than stacked.
func (h *Handler) GetFavoriteWeather(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid favorite id")
	}

	var fav domain.Favorite
	var found bool
	for _, f := range h.favoritesSvc.Favorites() {
		if f.ID == id {
			fav, found = f, true
			break
		}
	}
	if !found {
		return fiber.NewError(fiber.StatusNotFound, "Favorite not found")
	}

	q := fav.City
	if fav.Lat != nil && fav.Lon != nil {
		q = service.CoordQuery(*fav.Lat, *fav.Lon)
	}

	done, started := h.previews.Do(context.Background(), id, func(ctx context.Context) (domain.CurrentWeather, error) {
		return h.weatherSvc.GetCurrent(ctx, q)
	})
	if started {
		<-done
	}

	v, errSlot, status := h.previews.State(id)
	return h.slotResponse(c, v, errSlot, status)
}

// GetNearestFavorite snaps a map tap to the closest saved marker
func (h *Handler) GetNearestFavorite(c *fiber.Ctx) error {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lon, err2 := strconv.ParseFloat(c.Query("lon"), 64)
	if err1 != nil || err2 != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid lat/lon parameters")
	}

	fav, ok := h.favoritesSvc.Nearest(lat, lon)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "No favorites with coordinates")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fav,
	})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn authenticates a user
func (h *Handler) SignIn(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	session, err := h.sessionSvc.SignIn(c.Context(), req.Email, req.Password)
	if err != nil {
		return authError(err)
	}

	return c.JSON(domain.SessionResponse{
		Data:    session,
		Success: true,
	})
}

// SignUp registers a user
func (h *Handler) SignUp(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	session, err := h.sessionSvc.SignUp(c.Context(), req.Email, req.Password)
	if err != nil {
		return authError(err)
	}

	return c.JSON(domain.SessionResponse{
		Data:    session,
		Success: true,
	})
}

// SignOut clears the session
func (h *Handler) SignOut(c *fiber.Ctx) error {
	h.sessionSvc.SignOut(c.Context())
	return c.JSON(fiber.Map{"success": true})
}

// GetSession returns the current session state
func (h *Handler) GetSession(c *fiber.Ctx) error {
	return c.JSON(domain.SessionResponse{
		Data:    h.sessionSvc.Current(),
		Success: true,
	})
}

// slotResponse renders a coordinator slot snapshot in the standard
// envelope: the value when loaded, 202 while loading, 502 when the
// last fetch failed.
func (h *Handler) slotResponse(c *fiber.Ctx, v any, err error, status fetch.Status) error {
	switch status {
	case fetch.StatusLoaded:
		return c.JSON(fiber.Map{
			"success": true,
			"status":  status.String(),
			"data":    v,
		})
	case fetch.StatusFailed:
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"status":  status.String(),
			"message": err.Error(),
		})
	default:
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"success": false,
			"status":  status.String(),
		})
	}
}

// upstreamError maps weather provider failures onto fiber errors,
// keeping the upstream status code visible for non-2xx responses.
func upstreamError(err error, message string) error {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return fiber.NewError(fiber.StatusBadGateway, message+": "+apiErr.Error())
	}
	return fiber.NewError(fiber.StatusBadGateway, message)
}

// authError maps auth failures onto fiber errors
func authError(err error) error {
	if errors.Is(err, service.ErrAuthNotConfigured) {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Authentication is not configured")
	}
	return fiber.NewError(fiber.StatusUnauthorized, err.Error())
}
