package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"mediacatalog/internal/config"
	"mediacatalog/internal/models"
	"mediacatalog/internal/ratings"
	"mediacatalog/internal/services"
	"mediacatalog/internal/test"
)

const showsFeed = `[
  {"name": "Breaking Bad", "description": "Chemistry", "image": "//img.example.com/bb.jpg", "first_aired": "2008-01-20", "imdb_rating": 9.5},
  {"name": "The Wire", "description": "Baltimore", "image": "https://img.example.com/wire.jpg", "first_aired": "not-a-date", "imdb_rating": null},
  {"name": "", "description": "nameless"}
]`

const moviesFeed = `[
  {"name": "Inception", "description": "Dreams", "image": "//img.example.com/inception.jpg", "release_year": 2010, "imdb_rating": 8.8},
  {"name": "Unknown Year", "description": "?", "image": "http://img.example.com/u.jpg"}
]`

func feedServer(t *testing.T, body *string, status *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(*status)
		w.Write([]byte(*body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestImporter(t *testing.T, db *gorm.DB, url string) *Importer {
	t.Helper()
	return NewImporter(services.NewRepository(db), config.FeedsConfig{
		ShowsURL:  url,
		MoviesURL: url,
		Timeout:   5 * time.Second,
	}, "catalog-test")
}

func dateString(d *datatypes.Date) string {
	if d == nil {
		return ""
	}
	return time.Time(*d).Format(time.DateOnly)
}

func TestImportShows(t *testing.T) {
	db := test.GetTestDB(t)
	body, status := showsFeed, http.StatusOK
	srv := feedServer(t, &body, &status)
	importer := newTestImporter(t, db, srv.URL)
	ctx := context.Background()

	summary, err := importer.ImportShows(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Created: 2, Updated: 0, Skipped: 1}, summary)

	repo := services.NewRepository(db)
	shows, err := repo.ListShows(ctx)
	require.NoError(t, err)
	require.Len(t, shows, 2)

	bb := shows[0]
	assert.Equal(t, "Breaking Bad", bb.Title)
	assert.Equal(t, "https://img.example.com/bb.jpg", bb.Image)
	assert.Equal(t, "2008-01-20", dateString(bb.ReleaseDate))
	assert.Equal(t, 9.5, bb.IMDbRating)

	require.Len(t, bb.Seasons, 2)
	for si, season := range bb.Seasons {
		assert.Equal(t, si+1, season.Number)
		require.Len(t, season.Episodes, 2)
		for ei, ep := range season.Episodes {
			assert.Equal(t, ei+1, ep.Number)
			assert.Equal(t, "2008-01-20", dateString(ep.ReleaseDate))
			require.Len(t, ep.Sources, 1)
			assert.Equal(t, EpisodePlaceholderURL, ep.Sources[0].URL)
			assert.Equal(t, models.SourceTypeDirect, ep.Sources[0].SourceType)
			assert.True(t, ep.Sources[0].Active)
		}
	}

	wire := shows[1]
	assert.Equal(t, "https://img.example.com/wire.jpg", wire.Image)
	assert.Nil(t, wire.ReleaseDate)
	assert.Equal(t, 0.0, wire.IMDbRating)
	require.Len(t, wire.Seasons, 2)
	// Episodes of undated shows fall back to the import day
	assert.NotEmpty(t, dateString(wire.Seasons[0].Episodes[0].ReleaseDate))
}

func TestImportShows_Idempotent(t *testing.T) {
	db := test.GetTestDB(t)
	body, status := showsFeed, http.StatusOK
	srv := feedServer(t, &body, &status)
	importer := newTestImporter(t, db, srv.URL)
	ctx := context.Background()

	_, err := importer.ImportShows(ctx)
	require.NoError(t, err)

	// Ratings set between imports are reset, scaffolding is untouched
	require.NoError(t, db.Model(&models.Show{}).Where("1 = 1").Update("kinopoisk_rating", 7.7).Error)
	require.NoError(t, db.Model(&models.Episode{}).Where("1 = 1").Update("title", "Renamed").Error)

	summary, err := importer.ImportShows(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Created: 0, Updated: 2, Skipped: 1}, summary)

	counts, err := services.NewRepository(db).Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts["shows"])
	assert.Equal(t, int64(4), counts["seasons"])
	assert.Equal(t, int64(8), counts["episodes"])
	assert.Equal(t, int64(8), counts["sources"])

	var show models.Show
	require.NoError(t, db.Where("title = ?", "Breaking Bad").First(&show).Error)
	assert.Equal(t, 0.0, show.KinopoiskRating)

	var renamed int64
	require.NoError(t, db.Model(&models.Episode{}).Where("title = ?", "Renamed").Count(&renamed).Error)
	assert.Equal(t, int64(8), renamed)
}

func TestImportShows_OverwritesChangedValues(t *testing.T) {
	db := test.GetTestDB(t)
	body, status := showsFeed, http.StatusOK
	srv := feedServer(t, &body, &status)
	importer := newTestImporter(t, db, srv.URL)
	ctx := context.Background()

	_, err := importer.ImportShows(ctx)
	require.NoError(t, err)

	var before models.Show
	require.NoError(t, db.Where("title = ?", "Breaking Bad").First(&before).Error)

	body = `[{"name": "Breaking Bad", "description": "Chemistry, season two", "image": "", "imdb_rating": 8.9}]`
	summary, err := importer.ImportShows(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Updated: 1}, summary)

	var after models.Show
	require.NoError(t, db.Where("title = ?", "Breaking Bad").First(&after).Error)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, "Chemistry, season two", after.Description)
	assert.Equal(t, 8.9, after.IMDbRating)
	// An empty image is stored as-is rather than as a bare scheme
	assert.Equal(t, "", after.Image)
	assert.Nil(t, after.ReleaseDate)

	// Placeholder episodes keep the date they were created with
	episodes, err := services.NewRepository(db).GetShowEpisodes(ctx, after.ID)
	require.NoError(t, err)
	require.Len(t, episodes, 4)
	assert.Equal(t, "2008-01-20", dateString(episodes[0].ReleaseDate))
}

func TestImportShows_OverlappingRuns(t *testing.T) {
	db := test.GetTestDB(t)

	items := make([]ShowItem, 300)
	for n := range items {
		items[n] = ShowItem{Name: fmt.Sprintf("s%d", n), Description: "d", FirstAired: "2020-02-02"}
	}
	raw, err := json.Marshal(items)
	require.NoError(t, err)
	body, status := string(raw), http.StatusOK
	srv := feedServer(t, &body, &status)
	importer := newTestImporter(t, db, srv.URL)
	refresher := ratings.NewRefresher(services.NewRepository(db), ratings.NewRandomProvider())
	ctx := context.Background()

	_, err = importer.ImportShows(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 3)
	wg.Add(3)
	go func() {
		defer wg.Done()
		_, errs[0] = importer.ImportShows(ctx)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = refresher.Refresh(ctx)
	}()
	go func() {
		defer wg.Done()
		_, errs[2] = importer.ImportShows(ctx)
	}()
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}

	counts, err := services.NewRepository(db).Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(300), counts["shows"])
	assert.Equal(t, int64(1200), counts["episodes"])
	assert.Equal(t, int64(1200), counts["sources"])
}

func TestImportMovies(t *testing.T) {
	db := test.GetTestDB(t)
	body, status := moviesFeed, http.StatusOK
	srv := feedServer(t, &body, &status)
	importer := newTestImporter(t, db, srv.URL)
	ctx := context.Background()

	summary, err := importer.ImportMovies(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Created: 2}, summary)

	movies, err := services.NewRepository(db).ListMovies(ctx)
	require.NoError(t, err)
	require.Len(t, movies, 2)

	inception := movies[0]
	assert.Equal(t, "https://img.example.com/inception.jpg", inception.Image)
	assert.Equal(t, "2010-01-01", dateString(inception.ReleaseDate))
	require.NotNil(t, inception.ReleaseYear)
	assert.Equal(t, 2010, *inception.ReleaseYear)
	assert.Equal(t, 8.8, inception.IMDbRating)
	require.Len(t, inception.Sources, 1)
	assert.Equal(t, MoviePlaceholderURL, inception.Sources[0].URL)

	unknown := movies[1]
	assert.Equal(t, "http://img.example.com/u.jpg", unknown.Image)
	assert.Nil(t, unknown.ReleaseDate)
	assert.Nil(t, unknown.ReleaseYear)
	assert.Equal(t, 0.0, unknown.IMDbRating)

	summary, err = importer.ImportMovies(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Updated: 2}, summary)

	counts, err := services.NewRepository(db).Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts["sources"])
}

func TestImport_FeedFailures(t *testing.T) {
	db := test.GetTestDB(t)
	body, status := moviesFeed, http.StatusServiceUnavailable
	srv := feedServer(t, &body, &status)
	importer := newTestImporter(t, db, srv.URL)
	ctx := context.Background()

	t.Run("non-2xx status", func(t *testing.T) {
		_, err := importer.ImportMovies(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status 503")
	})

	t.Run("malformed body", func(t *testing.T) {
		body, status = `{"not": "an array"}`, http.StatusOK
		_, err := importer.ImportShows(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode feed")
	})

	t.Run("unreachable host", func(t *testing.T) {
		dead := newTestImporter(t, db, "http://127.0.0.1:1/shows.json")
		_, err := dead.ImportShows(ctx)
		assert.Error(t, err)
	})

	counts, err := services.NewRepository(db).Counts(ctx)
	require.NoError(t, err)
	for table, n := range counts {
		assert.Zero(t, n, table)
	}
}

func TestNormalizeImage(t *testing.T) {
	assert.Equal(t, "https://a/b.jpg", normalizeImage("//a/b.jpg"))
	assert.Equal(t, "http://a/b.jpg", normalizeImage("http://a/b.jpg"))
	assert.Equal(t, "https://a/b.jpg", normalizeImage("https://a/b.jpg"))
	assert.Equal(t, "", normalizeImage(""))
}

func TestParseFirstAired(t *testing.T) {
	assert.Equal(t, "2001-09-30", dateString(parseFirstAired("2001-09-30")))
	assert.Nil(t, parseFirstAired(""))
	assert.Nil(t, parseFirstAired("2001/09/30"))
}
