package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"mediacatalog/internal/database"
	"mediacatalog/internal/models"
)

func writeTestConfig(t *testing.T) (cfgPath, dbPath string) {
	t.Helper()

	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"name": "Heat", "release_year": 1995, "imdb_rating": 8.3}]`))
	}))
	t.Cleanup(feed.Close)

	dir := t.TempDir()
	cfgPath = filepath.Join(dir, "config.yaml")
	dbPath = filepath.Join(dir, "catalog.db")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
database:
  driver: sqlite
  path: `+dbPath+`
feeds:
  shows_url: `+feed.URL+`
  movies_url: `+feed.URL+`
  timeout: 5s
log:
  level: error
`), 0644))
	return cfgPath, dbPath
}

func TestRun_UsageErrors(t *testing.T) {
	assert.Equal(t, exitUsage, run("", false, nil))
	assert.Equal(t, exitUsage, run("", false, []string{"reindex"}))
	assert.Equal(t, exitUsage, run("", false, []string{"delete-movie"}))
	assert.Equal(t, exitUsage, run("", false, []string{"stats", "extra"}))
}

func TestRun_BadConfig(t *testing.T) {
	assert.Equal(t, exitError, run(filepath.Join(t.TempDir(), "missing.yaml"), false, []string{"stats"}))
}

func TestRun_CommandsAgainstSQLite(t *testing.T) {
	cfgPath, dbPath := writeTestConfig(t)

	assert.Equal(t, exitOK, run(cfgPath, true, []string{"import-movies"}))
	assert.Equal(t, exitOK, run(cfgPath, false, []string{"stats"}))

	// A failing command still releases the database for the next one
	assert.Equal(t, exitError, run(cfgPath, false, []string{"delete-movie", "999"}))
	assert.Equal(t, exitError, run(cfgPath, false, []string{"delete-show", "abc"}))
	assert.Equal(t, exitOK, run(cfgPath, false, []string{"delete-movie", "1"}))

	db, err := gorm.Open(sqlite.Open(database.SQLiteDSN(dbPath)), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	var movies, sources int64
	require.NoError(t, db.Model(&models.Movie{}).Count(&movies).Error)
	require.NoError(t, db.Model(&models.Source{}).Count(&sources).Error)
	assert.Zero(t, movies)
	assert.Zero(t, sources)
}
