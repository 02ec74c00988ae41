package service

import (
	"github.com/skycast/backend/internal/domain"
)

// FavoritesRepository is re-exported from domain for convenience
type FavoritesRepository = domain.FavoritesRepository
