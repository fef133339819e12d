package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"mediacatalog/internal/logging"
	"mediacatalog/internal/services"
	"mediacatalog/internal/utils"
)

// MovieHandler serves the /movies endpoints
type MovieHandler struct {
	repo *services.Repository
}

// NewMovieHandler creates a new movie handler
func NewMovieHandler(repo *services.Repository) *MovieHandler {
	return &MovieHandler{
		repo: repo,
	}
}

// parseID reads the :id route parameter. Anything that is not an integer
// cannot name a row, so callers answer 404 rather than 400.
func parseID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// lookupFailed maps a repository error to a response
func lookupFailed(c *fiber.Ctx, err error, notFound string) error {
	if errors.Is(err, services.ErrNotFound) {
		return utils.SendNotFoundError(c, notFound)
	}
	logging.WithContext(c.UserContext()).Error().Err(err).Str("path", c.Path()).Msg("Catalog lookup failed")
	return utils.SendInternalServerError(c, "Failed to load catalog data")
}

// ListMovies handles GET /movies/
func (h *MovieHandler) ListMovies(c *fiber.Ctx) error {
	movies, err := h.repo.ListMovies(c.UserContext())
	if err != nil {
		return lookupFailed(c, err, "")
	}
	return c.JSON(toMovies(movies))
}

// GetMovie handles GET /movies/:id
func (h *MovieHandler) GetMovie(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return utils.SendNotFoundError(c, "Movie not found")
	}

	movie, err := h.repo.GetMovieByID(c.UserContext(), id)
	if err != nil {
		return lookupFailed(c, err, "Movie not found")
	}
	return c.JSON(toMovie(*movie))
}

// GetMovieSources handles GET /movies/:id/sources
func (h *MovieHandler) GetMovieSources(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return utils.SendNotFoundError(c, "Movie not found")
	}

	sources, err := h.repo.GetMovieSources(c.UserContext(), id)
	if err != nil {
		return lookupFailed(c, err, "Movie not found")
	}
	return c.JSON(toSources(sources))
}
