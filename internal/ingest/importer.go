package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"mediacatalog/internal/config"
	"mediacatalog/internal/logging"
	"mediacatalog/internal/metrics"
	"mediacatalog/internal/models"
	"mediacatalog/internal/services"
)

// Placeholder scaffolding written for every imported title
const (
	EpisodePlaceholderURL = "https://example.com/episode-placeholder.mp4"
	MoviePlaceholderURL   = "https://example.com/movie-placeholder.mp4"

	placeholderSeasons  = 2
	placeholderEpisodes = 2
)

// Summary counts the outcome of one feed run
type Summary struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Importer pulls the show and movie feeds into the catalog
type Importer struct {
	repo   *services.Repository
	feeds  *FeedClient
	cfg    config.FeedsConfig
	logger *zerolog.Logger
	now    func() time.Time
}

// NewImporter creates an importer reading the feeds named in cfg
func NewImporter(repo *services.Repository, cfg config.FeedsConfig, userAgent string) *Importer {
	return &Importer{
		repo:   repo,
		feeds:  NewFeedClient(cfg.Timeout, userAgent),
		cfg:    cfg,
		logger: logging.WithModule("ingest"),
		now:    time.Now,
	}
}

// ImportShows upserts every show in the feed and scaffolds its placeholder
// seasons, episodes and sources. The whole run is one transaction.
func (i *Importer) ImportShows(ctx context.Context) (Summary, error) {
	var summary Summary

	items, err := i.feeds.FetchShows(ctx, i.cfg.ShowsURL)
	if err != nil {
		return summary, err
	}

	err = i.repo.Transaction(ctx, func(tx *services.Repository) error {
		for _, item := range items {
			title := strings.TrimSpace(item.Name)
			if title == "" {
				summary.Skipped++
				i.logger.Warn().Str("kind", "show").Msg("Skipping feed item without a name")
				continue
			}

			releaseDate := parseFirstAired(item.FirstAired)
			if item.FirstAired != "" && releaseDate == nil {
				i.logger.Warn().Str("title", title).Str("first_aired", item.FirstAired).Msg("Unparsable first_aired, storing null release date")
			}

			show, created, err := tx.UpsertShow(ctx, models.Show{
				Title:           title,
				Description:     item.Description,
				Image:           normalizeImage(item.Image),
				ReleaseDate:     releaseDate,
				IMDbRating:      ratingOrZero(item.IMDbRating),
				KinopoiskRating: 0,
			})
			if err != nil {
				return err
			}
			if created {
				summary.Created++
			} else {
				summary.Updated++
			}

			if err := i.scaffoldShow(ctx, tx, show, releaseDate); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, fmt.Errorf("import shows: %w", err)
	}

	i.record("show", summary)
	return summary, nil
}

// scaffoldShow get-or-creates the fixed 2x2 season/episode grid. Existing
// rows are left as they are.
func (i *Importer) scaffoldShow(ctx context.Context, tx *services.Repository, show *models.Show, releaseDate *datatypes.Date) error {
	episodeDate := releaseDate
	if episodeDate == nil {
		today := datatypes.Date(i.now())
		episodeDate = &today
	}

	for s := 1; s <= placeholderSeasons; s++ {
		season, err := tx.EnsureSeason(ctx, show.ID, s, models.Season{
			Description: fmt.Sprintf("Placeholder season %d", s),
		})
		if err != nil {
			return err
		}

		for e := 1; e <= placeholderEpisodes; e++ {
			episode, err := tx.EnsureEpisode(ctx, season.ID, e, models.Episode{
				Title:       fmt.Sprintf("Episode %d (Placeholder)", e),
				ReleaseDate: episodeDate,
			})
			if err != nil {
				return err
			}

			if _, err := tx.EnsureSource(ctx, models.OwnerEpisode, episode.ID, EpisodePlaceholderURL, models.SourceTypeDirect); err != nil {
				return err
			}
		}
	}
	return nil
}

// ImportMovies upserts every movie in the feed and gives each one placeholder
// source. The whole run is one transaction.
func (i *Importer) ImportMovies(ctx context.Context) (Summary, error) {
	var summary Summary

	items, err := i.feeds.FetchMovies(ctx, i.cfg.MoviesURL)
	if err != nil {
		return summary, err
	}

	err = i.repo.Transaction(ctx, func(tx *services.Repository) error {
		for _, item := range items {
			title := strings.TrimSpace(item.Name)
			if title == "" {
				summary.Skipped++
				i.logger.Warn().Str("kind", "movie").Msg("Skipping feed item without a name")
				continue
			}

			var year *int
			if item.ReleaseYear != nil && *item.ReleaseYear > 0 {
				year = item.ReleaseYear
			}

			movie, created, err := tx.UpsertMovie(ctx, models.Movie{
				Title:           title,
				Description:     item.Description,
				Image:           normalizeImage(item.Image),
				ReleaseDate:     yearToDate(year),
				ReleaseYear:     year,
				IMDbRating:      ratingOrZero(item.IMDbRating),
				KinopoiskRating: 0,
			})
			if err != nil {
				return err
			}
			if created {
				summary.Created++
			} else {
				summary.Updated++
			}

			if _, err := tx.EnsureSource(ctx, models.OwnerMovie, movie.ID, MoviePlaceholderURL, models.SourceTypeDirect); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, fmt.Errorf("import movies: %w", err)
	}

	i.record("movie", summary)
	return summary, nil
}

func (i *Importer) record(kind string, summary Summary) {
	metrics.ImportedItemsTotal.WithLabelValues(kind, "created").Add(float64(summary.Created))
	metrics.ImportedItemsTotal.WithLabelValues(kind, "updated").Add(float64(summary.Updated))
	metrics.ImportedItemsTotal.WithLabelValues(kind, "skipped").Add(float64(summary.Skipped))

	i.logger.Info().
		Str("kind", kind).
		Int("created", summary.Created).
		Int("updated", summary.Updated).
		Int("skipped", summary.Skipped).
		Msg("Feed import completed")
}

// normalizeImage turns protocol-relative feed images into https URLs
func normalizeImage(image string) string {
	if image == "" || strings.HasPrefix(image, "http") {
		return image
	}
	return "https:" + image
}

func parseFirstAired(value string) *datatypes.Date {
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil
	}
	d := datatypes.Date(t)
	return &d
}

func yearToDate(year *int) *datatypes.Date {
	if year == nil {
		return nil
	}
	d := datatypes.Date(time.Date(*year, time.January, 1, 0, 0, 0, 0, time.UTC))
	return &d
}

func ratingOrZero(rating *float64) float64 {
	if rating == nil {
		return 0
	}
	return *rating
}
