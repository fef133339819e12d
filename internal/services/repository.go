package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"mediacatalog/internal/models"
)

// ErrNotFound is returned when a requested catalog row does not exist
var ErrNotFound = errors.New("record not found")

// Repository handles database operations for the catalog models
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository instance
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

// Transaction runs fn against a repository bound to a single transaction.
// Any error returned by fn rolls the whole transaction back.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func notFound(err error, entity string, id int64) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %d", ErrNotFound, entity, id)
	}
	return fmt.Errorf("failed to load %s %d: %w", entity, id, err)
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

func orderSeasons(db *gorm.DB) *gorm.DB {
	return db.Order("seasons.number ASC")
}

func orderEpisodes(db *gorm.DB) *gorm.DB {
	return db.Order("episodes.number ASC")
}

// preloadSeasonTree loads Episodes and their Sources under a season query
func preloadSeasonTree(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Episodes", orderEpisodes).
		Preload("Episodes.Sources", orderByID)
}

// preloadShowTree loads Seasons → Episodes → Sources, each level ordered
func preloadShowTree(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Seasons", orderSeasons).
		Preload("Seasons.Episodes", orderEpisodes).
		Preload("Seasons.Episodes.Sources", orderByID)
}

// Movie operations

// ListMovies returns every movie with its sources
func (r *Repository) ListMovies(ctx context.Context) ([]models.Movie, error) {
	movies := []models.Movie{}
	err := r.db.WithContext(ctx).
		Preload("Sources", orderByID).
		Order("id ASC").
		Find(&movies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch movies: %w", err)
	}
	return movies, nil
}

// GetMovieByID returns one movie with its sources
func (r *Repository) GetMovieByID(ctx context.Context, id int64) (*models.Movie, error) {
	var movie models.Movie
	err := r.db.WithContext(ctx).
		Preload("Sources", orderByID).
		First(&movie, id).Error
	if err != nil {
		return nil, notFound(err, "movie", id)
	}
	return &movie, nil
}

// GetMovieSources returns a movie's sources, or ErrNotFound if the movie is absent
func (r *Repository) GetMovieSources(ctx context.Context, movieID int64) ([]models.Source, error) {
	if err := r.ensureExists(ctx, &models.Movie{}, "movie", movieID); err != nil {
		return nil, err
	}
	return r.sourcesFor(ctx, models.OwnerMovie, movieID)
}

// Show operations

// ListShows returns every show with its full season/episode/source tree
func (r *Repository) ListShows(ctx context.Context) ([]models.Show, error) {
	shows := []models.Show{}
	err := preloadShowTree(r.db.WithContext(ctx)).
		Order("id ASC").
		Find(&shows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch shows: %w", err)
	}
	return shows, nil
}

// GetShowByID returns one show with its full tree
func (r *Repository) GetShowByID(ctx context.Context, id int64) (*models.Show, error) {
	var show models.Show
	err := preloadShowTree(r.db.WithContext(ctx)).First(&show, id).Error
	if err != nil {
		return nil, notFound(err, "show", id)
	}
	return &show, nil
}

// GetShowSeasons returns a show's seasons ordered by number
func (r *Repository) GetShowSeasons(ctx context.Context, showID int64) ([]models.Season, error) {
	if err := r.ensureExists(ctx, &models.Show{}, "show", showID); err != nil {
		return nil, err
	}

	seasons := []models.Season{}
	err := preloadSeasonTree(r.db.WithContext(ctx)).
		Where("show_id = ?", showID).
		Order("number ASC").
		Find(&seasons).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seasons for show %d: %w", showID, err)
	}
	return seasons, nil
}

// GetShowEpisodes returns all of a show's episodes flattened across seasons,
// ordered by season number then episode number.
func (r *Repository) GetShowEpisodes(ctx context.Context, showID int64) ([]models.Episode, error) {
	if err := r.ensureExists(ctx, &models.Show{}, "show", showID); err != nil {
		return nil, err
	}

	episodes := []models.Episode{}
	err := r.db.WithContext(ctx).
		Select("episodes.*").
		Joins("JOIN seasons ON seasons.id = episodes.season_id").
		Where("seasons.show_id = ?", showID).
		Order("seasons.number ASC, episodes.number ASC").
		Preload("Sources", orderByID).
		Find(&episodes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch episodes for show %d: %w", showID, err)
	}
	return episodes, nil
}

// GetEpisodeSources returns an episode's sources, or ErrNotFound if the episode is absent
func (r *Repository) GetEpisodeSources(ctx context.Context, episodeID int64) ([]models.Source, error) {
	if err := r.ensureExists(ctx, &models.Episode{}, "episode", episodeID); err != nil {
		return nil, err
	}
	return r.sourcesFor(ctx, models.OwnerEpisode, episodeID)
}

func (r *Repository) sourcesFor(ctx context.Context, ownerType string, ownerID int64) ([]models.Source, error) {
	sources := []models.Source{}
	err := r.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		Order("id ASC").
		Find(&sources).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sources for %s %d: %w", ownerType, ownerID, err)
	}
	return sources, nil
}

func (r *Repository) ensureExists(ctx context.Context, model interface{}, entity string, id int64) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up %s %d: %w", entity, id, err)
	}
	if count == 0 {
		return fmt.Errorf("%w: %s %d", ErrNotFound, entity, id)
	}
	return nil
}

// Import operations

// UpsertShow creates the show or overwrites the existing row with the same
// title. The update goes through a column map so zero values (a reset rating,
// a null date) are written too.
func (r *Repository) UpsertShow(ctx context.Context, show models.Show) (*models.Show, bool, error) {
	var existing models.Show
	err := r.db.WithContext(ctx).Where("title = ?", show.Title).Take(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		show.ID = 0
		show.Seasons = nil
		if err := r.db.WithContext(ctx).Create(&show).Error; err != nil {
			return nil, false, fmt.Errorf("failed to create show %q: %w", show.Title, err)
		}
		return &show, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("failed to look up show %q: %w", show.Title, err)
	}

	err = r.db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
		"description":      show.Description,
		"image":            show.Image,
		"release_date":     show.ReleaseDate,
		"imdb_rating":      show.IMDbRating,
		"kinopoisk_rating": show.KinopoiskRating,
	}).Error
	if err != nil {
		return nil, false, fmt.Errorf("failed to update show %q: %w", show.Title, err)
	}
	return &existing, false, nil
}

// UpsertMovie creates the movie or overwrites the existing row with the same title
func (r *Repository) UpsertMovie(ctx context.Context, movie models.Movie) (*models.Movie, bool, error) {
	var existing models.Movie
	err := r.db.WithContext(ctx).Where("title = ?", movie.Title).Take(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		movie.ID = 0
		movie.Sources = nil
		if err := r.db.WithContext(ctx).Create(&movie).Error; err != nil {
			return nil, false, fmt.Errorf("failed to create movie %q: %w", movie.Title, err)
		}
		return &movie, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("failed to look up movie %q: %w", movie.Title, err)
	}

	err = r.db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
		"description":      movie.Description,
		"image":            movie.Image,
		"release_date":     movie.ReleaseDate,
		"release_year":     movie.ReleaseYear,
		"imdb_rating":      movie.IMDbRating,
		"kinopoisk_rating": movie.KinopoiskRating,
	}).Error
	if err != nil {
		return nil, false, fmt.Errorf("failed to update movie %q: %w", movie.Title, err)
	}
	return &existing, false, nil
}

// EnsureSeason returns the season with the given number, creating it with
// defaults if missing. Existing rows are never modified.
func (r *Repository) EnsureSeason(ctx context.Context, showID int64, number int, defaults models.Season) (*models.Season, error) {
	var season models.Season
	err := r.db.WithContext(ctx).
		Where(models.Season{ShowID: showID, Number: number}).
		Attrs(defaults).
		FirstOrCreate(&season).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get or create season %d of show %d: %w", number, showID, err)
	}
	return &season, nil
}

// EnsureEpisode returns the episode with the given number, creating it with defaults if missing
func (r *Repository) EnsureEpisode(ctx context.Context, seasonID int64, number int, defaults models.Episode) (*models.Episode, error) {
	var episode models.Episode
	err := r.db.WithContext(ctx).
		Where(models.Episode{SeasonID: seasonID, Number: number}).
		Attrs(defaults).
		FirstOrCreate(&episode).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get or create episode %d of season %d: %w", number, seasonID, err)
	}
	return &episode, nil
}

// EnsureSource returns the owner's source with this URL and type, creating an active one if missing
func (r *Repository) EnsureSource(ctx context.Context, ownerType string, ownerID int64, url, sourceType string) (*models.Source, error) {
	var source models.Source
	err := r.db.WithContext(ctx).
		Where(models.Source{OwnerType: ownerType, OwnerID: ownerID, URL: url, SourceType: sourceType}).
		Attrs(models.Source{Active: true}).
		FirstOrCreate(&source).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get or create source for %s %d: %w", ownerType, ownerID, err)
	}
	return &source, nil
}

// Rating operations

// EachMovieBatch walks all movies in primary-key order
func (r *Repository) EachMovieBatch(ctx context.Context, batchSize int, fn func([]models.Movie) error) error {
	var batch []models.Movie
	return r.db.WithContext(ctx).
		Select("id", "title", "kinopoisk_rating").
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		}).Error
}

// EachShowBatch walks all shows in primary-key order
func (r *Repository) EachShowBatch(ctx context.Context, batchSize int, fn func([]models.Show) error) error {
	var batch []models.Show
	return r.db.WithContext(ctx).
		Select("id", "title", "kinopoisk_rating").
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		}).Error
}

// SetMovieKinopoiskRating overwrites a movie's kinopoisk rating
func (r *Repository) SetMovieKinopoiskRating(ctx context.Context, id int64, rating float64) error {
	err := r.db.WithContext(ctx).Model(&models.Movie{}).
		Where("id = ?", id).
		Update("kinopoisk_rating", rating).Error
	if err != nil {
		return fmt.Errorf("failed to update rating for movie %d: %w", id, err)
	}
	return nil
}

// SetShowKinopoiskRating overwrites a show's kinopoisk rating
func (r *Repository) SetShowKinopoiskRating(ctx context.Context, id int64, rating float64) error {
	err := r.db.WithContext(ctx).Model(&models.Show{}).
		Where("id = ?", id).
		Update("kinopoisk_rating", rating).Error
	if err != nil {
		return fmt.Errorf("failed to update rating for show %d: %w", id, err)
	}
	return nil
}

// Source validation operations

// EachSourceBatch walks all sources in primary-key order
func (r *Repository) EachSourceBatch(ctx context.Context, batchSize int, fn func([]models.Source) error) error {
	var batch []models.Source
	return r.db.WithContext(ctx).
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		}).Error
}

// RecordProbe stores the outcome of a source probe. A nil active leaves the
// flag untouched.
func (r *Repository) RecordProbe(ctx context.Context, id int64, status int, checkedAt time.Time, active *bool) error {
	updates := map[string]interface{}{
		"last_status":     status,
		"last_checked_at": checkedAt,
	}
	if active != nil {
		updates["active"] = *active
	}

	err := r.db.WithContext(ctx).Model(&models.Source{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to record probe for source %d: %w", id, err)
	}
	return nil
}

// Delete operations

// DeleteMovie removes a movie and its sources
func (r *Repository) DeleteMovie(ctx context.Context, id int64) error {
	return r.Transaction(ctx, func(tx *Repository) error {
		if err := tx.ensureExists(ctx, &models.Movie{}, "movie", id); err != nil {
			return err
		}
		if err := tx.db.Where("owner_type = ? AND owner_id = ?", models.OwnerMovie, id).
			Delete(&models.Source{}).Error; err != nil {
			return fmt.Errorf("failed to delete sources of movie %d: %w", id, err)
		}
		if err := tx.db.Delete(&models.Movie{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete movie %d: %w", id, err)
		}
		return nil
	})
}

// DeleteShow removes a show with its seasons, episodes and their sources
func (r *Repository) DeleteShow(ctx context.Context, id int64) error {
	return r.Transaction(ctx, func(tx *Repository) error {
		if err := tx.ensureExists(ctx, &models.Show{}, "show", id); err != nil {
			return err
		}

		seasonIDs := tx.db.Model(&models.Season{}).Select("id").Where("show_id = ?", id)
		episodeIDs := tx.db.Model(&models.Episode{}).Select("id").Where("season_id IN (?)", seasonIDs)

		if err := tx.db.Where("owner_type = ? AND owner_id IN (?)", models.OwnerEpisode, episodeIDs).
			Delete(&models.Source{}).Error; err != nil {
			return fmt.Errorf("failed to delete episode sources of show %d: %w", id, err)
		}
		if err := tx.db.Where("season_id IN (?)", seasonIDs).Delete(&models.Episode{}).Error; err != nil {
			return fmt.Errorf("failed to delete episodes of show %d: %w", id, err)
		}
		if err := tx.db.Where("show_id = ?", id).Delete(&models.Season{}).Error; err != nil {
			return fmt.Errorf("failed to delete seasons of show %d: %w", id, err)
		}
		if err := tx.db.Delete(&models.Show{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete show %d: %w", id, err)
		}
		return nil
	})
}

// Counts returns row counts per catalog table
func (r *Repository) Counts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, 5)
	for name, model := range map[string]interface{}{
		"shows":    &models.Show{},
		"seasons":  &models.Season{},
		"episodes": &models.Episode{},
		"movies":   &models.Movie{},
		"sources":  &models.Source{},
	} {
		var n int64
		if err := r.db.WithContext(ctx).Model(model).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", name, err)
		}
		counts[name] = n
	}
	return counts, nil
}
