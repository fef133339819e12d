package handlers

import (
	"github.com/gofiber/fiber/v2"

	"mediacatalog/internal/services"
	"mediacatalog/internal/utils"
)

// ShowHandler serves the /shows endpoints
type ShowHandler struct {
	repo *services.Repository
}

// NewShowHandler creates a new show handler
func NewShowHandler(repo *services.Repository) *ShowHandler {
	return &ShowHandler{
		repo: repo,
	}
}

// ListShows handles GET /shows/
func (h *ShowHandler) ListShows(c *fiber.Ctx) error {
	shows, err := h.repo.ListShows(c.UserContext())
	if err != nil {
		return lookupFailed(c, err, "")
	}
	return c.JSON(toShows(shows))
}

// GetShow handles GET /shows/:id
func (h *ShowHandler) GetShow(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return utils.SendNotFoundError(c, "Show not found")
	}

	show, err := h.repo.GetShowByID(c.UserContext(), id)
	if err != nil {
		return lookupFailed(c, err, "Show not found")
	}
	return c.JSON(toShow(*show))
}

// GetShowSeasons handles GET /shows/:id/seasons
func (h *ShowHandler) GetShowSeasons(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return utils.SendNotFoundError(c, "Show not found")
	}

	seasons, err := h.repo.GetShowSeasons(c.UserContext(), id)
	if err != nil {
		return lookupFailed(c, err, "Show not found")
	}
	return c.JSON(toSeasons(seasons))
}

// GetShowEpisodes handles GET /shows/:id/episodes
func (h *ShowHandler) GetShowEpisodes(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return utils.SendNotFoundError(c, "Show not found")
	}

	episodes, err := h.repo.GetShowEpisodes(c.UserContext(), id)
	if err != nil {
		return lookupFailed(c, err, "Show not found")
	}
	return c.JSON(toEpisodes(episodes))
}

// GetEpisodeSources handles GET /shows/episodes/:id/sources
func (h *ShowHandler) GetEpisodeSources(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return utils.SendNotFoundError(c, "Episode not found")
	}

	sources, err := h.repo.GetEpisodeSources(c.UserContext(), id)
	if err != nil {
		return lookupFailed(c, err, "Episode not found")
	}
	return c.JSON(toSources(sources))
}
