package handlers

import (
	"time"

	"gorm.io/datatypes"

	"mediacatalog/internal/models"
)

// SourceResponse is the public shape of a Source
type SourceResponse struct {
	ID         int64  `json:"id"`
	URL        string `json:"url"`
	SourceType string `json:"source_type"`
}

// EpisodeResponse is the public shape of an Episode
type EpisodeResponse struct {
	ID          int64            `json:"id"`
	Number      int              `json:"number"`
	Title       string           `json:"title"`
	ReleaseDate *string          `json:"release_date"`
	Sources     []SourceResponse `json:"sources"`
}

// SeasonResponse is the public shape of a Season
type SeasonResponse struct {
	ID       int64             `json:"id"`
	Number   int               `json:"number"`
	Episodes []EpisodeResponse `json:"episodes"`
}

// ShowResponse is the public shape of a Show with its full tree
type ShowResponse struct {
	ID              int64            `json:"id"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Image           string           `json:"image"`
	ReleaseDate     *string          `json:"release_date"`
	IMDbRating      float64          `json:"imdb_rating"`
	KinopoiskRating float64          `json:"kinopoisk_rating"`
	Seasons         []SeasonResponse `json:"seasons"`
}

// MovieResponse is the public shape of a Movie
type MovieResponse struct {
	ID              int64            `json:"id"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Image           string           `json:"image"`
	ReleaseDate     *string          `json:"release_date"`
	IMDbRating      float64          `json:"imdb_rating"`
	KinopoiskRating float64          `json:"kinopoisk_rating"`
	Sources         []SourceResponse `json:"sources"`
}

// formatDate renders a date as YYYY-MM-DD, or nil for a missing date
func formatDate(d *datatypes.Date) *string {
	if d == nil {
		return nil
	}
	s := time.Time(*d).Format(time.DateOnly)
	return &s
}

func toSources(sources []models.Source) []SourceResponse {
	out := make([]SourceResponse, 0, len(sources))
	for _, s := range sources {
		out = append(out, SourceResponse{
			ID:         s.ID,
			URL:        s.URL,
			SourceType: s.SourceType,
		})
	}
	return out
}

func toEpisodes(episodes []models.Episode) []EpisodeResponse {
	out := make([]EpisodeResponse, 0, len(episodes))
	for _, e := range episodes {
		out = append(out, EpisodeResponse{
			ID:          e.ID,
			Number:      e.Number,
			Title:       e.Title,
			ReleaseDate: formatDate(e.ReleaseDate),
			Sources:     toSources(e.Sources),
		})
	}
	return out
}

func toSeasons(seasons []models.Season) []SeasonResponse {
	out := make([]SeasonResponse, 0, len(seasons))
	for _, s := range seasons {
		out = append(out, SeasonResponse{
			ID:       s.ID,
			Number:   s.Number,
			Episodes: toEpisodes(s.Episodes),
		})
	}
	return out
}

func toShow(s models.Show) ShowResponse {
	return ShowResponse{
		ID:              s.ID,
		Title:           s.Title,
		Description:     s.Description,
		Image:           s.Image,
		ReleaseDate:     formatDate(s.ReleaseDate),
		IMDbRating:      s.IMDbRating,
		KinopoiskRating: s.KinopoiskRating,
		Seasons:         toSeasons(s.Seasons),
	}
}

func toShows(shows []models.Show) []ShowResponse {
	out := make([]ShowResponse, 0, len(shows))
	for _, s := range shows {
		out = append(out, toShow(s))
	}
	return out
}

func toMovie(m models.Movie) MovieResponse {
	return MovieResponse{
		ID:              m.ID,
		Title:           m.Title,
		Description:     m.Description,
		Image:           m.Image,
		ReleaseDate:     formatDate(m.ReleaseDate),
		IMDbRating:      m.IMDbRating,
		KinopoiskRating: m.KinopoiskRating,
		Sources:         toSources(m.Sources),
	}
}

func toMovies(movies []models.Movie) []MovieResponse {
	out := make([]MovieResponse, 0, len(movies))
	for _, m := range movies {
		out = append(out, toMovie(m))
	}
	return out
}
