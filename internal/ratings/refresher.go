package ratings

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"mediacatalog/internal/logging"
	"mediacatalog/internal/metrics"
	"mediacatalog/internal/models"
	"mediacatalog/internal/services"
)

const refreshBatchSize = 200

// Summary counts ratings rewritten in one run
type Summary struct {
	Movies int `json:"movies"`
	Shows  int `json:"shows"`
}

// Refresher rewrites kinopoisk_rating on every movie and show
type Refresher struct {
	repo     *services.Repository
	provider RatingProvider
	logger   *zerolog.Logger
}

// NewRefresher creates a refresher using the given provider
func NewRefresher(repo *services.Repository, provider RatingProvider) *Refresher {
	return &Refresher{
		repo:     repo,
		provider: provider,
		logger:   logging.WithModule("ratings"),
	}
}

// Refresh makes a full pass over movies then shows. The first provider or
// database error stops the run; rows already written stay written.
func (r *Refresher) Refresh(ctx context.Context) (Summary, error) {
	var summary Summary

	err := r.repo.EachMovieBatch(ctx, refreshBatchSize, func(movies []models.Movie) error {
		for _, movie := range movies {
			rating, err := r.provider.Rating(ctx, KindMovie, movie.Title)
			if err != nil {
				return fmt.Errorf("rating for movie %q: %w", movie.Title, err)
			}
			if err := r.repo.SetMovieKinopoiskRating(ctx, movie.ID, rating); err != nil {
				return err
			}
			summary.Movies++
		}
		return nil
	})
	if err != nil {
		return summary, fmt.Errorf("refresh movie ratings: %w", err)
	}

	err = r.repo.EachShowBatch(ctx, refreshBatchSize, func(shows []models.Show) error {
		for _, show := range shows {
			rating, err := r.provider.Rating(ctx, KindShow, show.Title)
			if err != nil {
				return fmt.Errorf("rating for show %q: %w", show.Title, err)
			}
			if err := r.repo.SetShowKinopoiskRating(ctx, show.ID, rating); err != nil {
				return err
			}
			summary.Shows++
		}
		return nil
	})
	if err != nil {
		return summary, fmt.Errorf("refresh show ratings: %w", err)
	}

	metrics.RatingsRefreshedTotal.WithLabelValues(string(KindMovie)).Add(float64(summary.Movies))
	metrics.RatingsRefreshedTotal.WithLabelValues(string(KindShow)).Add(float64(summary.Shows))
	r.logger.Info().Int("movies", summary.Movies).Int("shows", summary.Shows).Msg("Ratings refreshed")

	return summary, nil
}
