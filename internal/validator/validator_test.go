package validator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"mediacatalog/internal/config"
	"mediacatalog/internal/models"
	"mediacatalog/internal/services"
	"mediacatalog/internal/test"
)

func probeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok.mp4", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/broken.mp4", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/moved.mp4", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ok.mp4", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/slow.mp4", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func loadSource(t *testing.T, db *gorm.DB, id int64) models.Source {
	t.Helper()
	var src models.Source
	require.NoError(t, db.First(&src, id).Error)
	return src
}

func TestValidate(t *testing.T) {
	db := test.GetTestDB(t)
	srv := probeServer(t)

	movie := test.CreateTestMovie(t, db, "Heat",
		srv.URL+"/ok.mp4",
		srv.URL+"/broken.mp4",
		srv.URL+"/moved.mp4",
		srv.URL+"/slow.mp4",
		"http://127.0.0.1:1/refused.mp4",
	)

	v := NewValidator(services.NewRepository(db), config.ValidatorConfig{Timeout: 200 * time.Millisecond})
	summary, err := v.Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Checked: 5, Deactivated: 4}, summary)

	ok := loadSource(t, db, movie.Sources[0].ID)
	assert.True(t, ok.Active)
	assert.Equal(t, 200, ok.LastStatus)
	assert.NotNil(t, ok.LastCheckedAt)

	broken := loadSource(t, db, movie.Sources[1].ID)
	assert.False(t, broken.Active)
	assert.Equal(t, 500, broken.LastStatus)

	moved := loadSource(t, db, movie.Sources[2].ID)
	assert.False(t, moved.Active)
	assert.Equal(t, 301, moved.LastStatus)

	slow := loadSource(t, db, movie.Sources[3].ID)
	assert.False(t, slow.Active)
	assert.Equal(t, 0, slow.LastStatus)

	refused := loadSource(t, db, movie.Sources[4].ID)
	assert.False(t, refused.Active)
	assert.Equal(t, 0, refused.LastStatus)
}

func TestValidate_InactiveStaysInactiveByDefault(t *testing.T) {
	db := test.GetTestDB(t)
	srv := probeServer(t)

	movie := test.CreateTestMovie(t, db, "Heat", srv.URL+"/ok.mp4")
	id := movie.Sources[0].ID
	require.NoError(t, db.Model(&models.Source{}).Where("id = ?", id).Update("active", false).Error)

	v := NewValidator(services.NewRepository(db), config.ValidatorConfig{Timeout: time.Second})
	summary, err := v.Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Checked: 1}, summary)
	assert.False(t, loadSource(t, db, id).Active)
}

func TestValidate_Reactivate(t *testing.T) {
	db := test.GetTestDB(t)
	srv := probeServer(t)

	movie := test.CreateTestMovie(t, db, "Heat", srv.URL+"/ok.mp4")
	id := movie.Sources[0].ID
	require.NoError(t, db.Model(&models.Source{}).Where("id = ?", id).Update("active", false).Error)

	v := NewValidator(services.NewRepository(db), config.ValidatorConfig{Timeout: time.Second, Reactivate: true})
	summary, err := v.Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Checked: 1, Reactivated: 1}, summary)
	assert.True(t, loadSource(t, db, id).Active)
}

func TestValidate_NoSources(t *testing.T) {
	v := NewValidator(services.NewRepository(test.GetTestDB(t)), config.ValidatorConfig{Timeout: time.Second})
	summary, err := v.Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
}

func TestValidate_RateLimited(t *testing.T) {
	db := test.GetTestDB(t)
	srv := probeServer(t)
	test.CreateTestMovie(t, db, "Heat", srv.URL+"/ok.mp4?a", srv.URL+"/ok.mp4?b", srv.URL+"/ok.mp4?c")

	v := NewValidator(services.NewRepository(db), config.ValidatorConfig{Timeout: time.Second, RateLimit: 20})
	start := time.Now()
	summary, err := v.Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Checked)
	// burst of one, then 50ms per probe
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestValidate_CanceledContext(t *testing.T) {
	db := test.GetTestDB(t)
	srv := probeServer(t)
	test.CreateTestMovie(t, db, "Heat", srv.URL+"/ok.mp4")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := NewValidator(services.NewRepository(db), config.ValidatorConfig{Timeout: time.Second})
	_, err := v.Validate(ctx)
	assert.Error(t, err)
}
