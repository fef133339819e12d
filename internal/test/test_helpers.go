package test

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"mediacatalog/internal/config"
	"mediacatalog/internal/database"
	"mediacatalog/internal/models"
)

// GetTestDB creates a migrated SQLite database private to the calling test
func GetTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "catalog_test.db")
	db, err := gorm.Open(sqlite.Open(database.SQLiteDSN(path)), database.NewGORMConfig(&config.DatabaseConfig{}, nil))
	require.NoError(t, err)

	require.NoError(t, database.NewMigrationManager(db, nil).Migrate())

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// GetTestDBManager wraps GetTestDB in a DatabaseManager
func GetTestDBManager(t *testing.T) *database.DatabaseManager {
	t.Helper()

	db := GetTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	return database.NewDatabaseManagerFromExisting(db, sqlDB)
}

// Date builds a datatypes.Date pointer for fixtures
func Date(year int, month time.Month, day int) *datatypes.Date {
	d := datatypes.Date(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
	return &d
}

// CreateTestMovie creates a movie with the given source URLs
func CreateTestMovie(t *testing.T, db *gorm.DB, title string, sourceURLs ...string) *models.Movie {
	t.Helper()

	movie := &models.Movie{
		Title:       title,
		Description: title + " description",
		Image:       "https://img.example.com/" + title + ".jpg",
		ReleaseDate: Date(2020, time.January, 1),
		IMDbRating:  7.5,
	}
	require.NoError(t, db.Create(movie).Error)

	for _, url := range sourceURLs {
		src := &models.Source{
			OwnerType:  models.OwnerMovie,
			OwnerID:    movie.ID,
			URL:        url,
			SourceType: models.SourceTypeDirect,
			Active:     true,
		}
		require.NoError(t, db.Create(src).Error)
		movie.Sources = append(movie.Sources, *src)
	}

	return movie
}

// CreateTestShow creates a show with seasons x episodes, each episode carrying
// one direct source. Rows are inserted in reverse order so ordering bugs show up
// as wrong output rather than accidentally correct insertion order.
func CreateTestShow(t *testing.T, db *gorm.DB, title string, seasons, episodes int) *models.Show {
	t.Helper()

	show := &models.Show{
		Title:       title,
		Description: title + " description",
		Image:       "https://img.example.com/" + title + ".jpg",
		ReleaseDate: Date(2019, time.March, 4),
		IMDbRating:  8.1,
	}
	require.NoError(t, db.Create(show).Error)

	for s := seasons; s >= 1; s-- {
		season := &models.Season{ShowID: show.ID, Number: s, Description: fmt.Sprintf("Season %d", s)}
		require.NoError(t, db.Create(season).Error)

		for e := episodes; e >= 1; e-- {
			episode := &models.Episode{
				SeasonID:    season.ID,
				Number:      e,
				Title:       fmt.Sprintf("S%dE%d", s, e),
				ReleaseDate: show.ReleaseDate,
			}
			require.NoError(t, db.Create(episode).Error)

			src := &models.Source{
				OwnerType:  models.OwnerEpisode,
				OwnerID:    episode.ID,
				URL:        fmt.Sprintf("https://cdn.example.com/%s/s%de%d.mp4", title, s, e),
				SourceType: models.SourceTypeDirect,
				Active:     true,
			}
			require.NoError(t, db.Create(src).Error)
		}
	}

	return show
}
