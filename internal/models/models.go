package models

import (
	"time"

	"gorm.io/datatypes"
)

// Source types
const (
	SourceTypePlaylist = "playlist"
	SourceTypeDirect   = "direct"
)

// Owner types for the polymorphic Source association. The values are the
// table names of the owning models, which is what gorm writes by default.
const (
	OwnerMovie   = "movies"
	OwnerEpisode = "episodes"
)

// Show represents the shows table
type Show struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Title           string          `gorm:"size:255;not null;uniqueIndex:idx_shows_title" json:"title"`
	Description     string          `gorm:"type:text" json:"description"`
	Image           string          `gorm:"size:1024" json:"image"`
	ReleaseDate     *datatypes.Date `json:"release_date"`
	IMDbRating      float64         `gorm:"column:imdb_rating;not null;default:0" json:"imdb_rating"`
	KinopoiskRating float64         `gorm:"not null;default:0" json:"kinopoisk_rating"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	// Relationships
	Seasons []Season `gorm:"foreignKey:ShowID;constraint:OnDelete:CASCADE" json:"seasons"`
}

func (Show) TableName() string {
	return "shows"
}

// Season represents the seasons table. Numbers are unique within a show.
type Season struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ShowID      int64  `gorm:"not null;uniqueIndex:idx_seasons_show_number,priority:1" json:"show_id"`
	Number      int    `gorm:"not null;uniqueIndex:idx_seasons_show_number,priority:2;check:number > 0" json:"number"`
	Description string `gorm:"type:text" json:"description"`

	Show     *Show     `gorm:"foreignKey:ShowID" json:"-"`
	Episodes []Episode `gorm:"foreignKey:SeasonID;constraint:OnDelete:CASCADE" json:"episodes"`
}

func (Season) TableName() string {
	return "seasons"
}

// Episode represents the episodes table. Numbers are unique within a season.
type Episode struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SeasonID    int64           `gorm:"not null;uniqueIndex:idx_episodes_season_number,priority:1" json:"season_id"`
	Number      int             `gorm:"not null;uniqueIndex:idx_episodes_season_number,priority:2;check:number > 0" json:"number"`
	Title       string          `gorm:"size:255;not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	ReleaseDate *datatypes.Date `json:"release_date"`

	Season  *Season  `gorm:"foreignKey:SeasonID" json:"-"`
	Sources []Source `gorm:"polymorphic:Owner;polymorphicValue:episodes" json:"sources"`
}

func (Episode) TableName() string {
	return "episodes"
}

// Movie represents the movies table
type Movie struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Title           string          `gorm:"size:255;not null;uniqueIndex:idx_movies_title" json:"title"`
	Description     string          `gorm:"type:text" json:"description"`
	Image           string          `gorm:"size:1024" json:"image"`
	ReleaseDate     *datatypes.Date `json:"release_date"`
	ReleaseYear     *int            `json:"release_year"`
	IMDbRating      float64         `gorm:"column:imdb_rating;not null;default:0" json:"imdb_rating"`
	KinopoiskRating float64         `gorm:"not null;default:0" json:"kinopoisk_rating"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Sources []Source `gorm:"polymorphic:Owner;polymorphicValue:movies" json:"sources"`
}

func (Movie) TableName() string {
	return "movies"
}

// Source represents a playable URL owned by exactly one movie or episode.
// OwnerType/OwnerID form a tagged union, so a source can never point at
// both or neither.
type Source struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerType     string     `gorm:"size:20;not null;uniqueIndex:idx_sources_owner_url,priority:1;check:owner_type IN ('movies', 'episodes')" json:"owner_type"`
	OwnerID       int64      `gorm:"not null;uniqueIndex:idx_sources_owner_url,priority:2" json:"owner_id"`
	URL           string     `gorm:"column:url;size:1024;not null;uniqueIndex:idx_sources_owner_url,priority:3" json:"url"`
	SourceType    string     `gorm:"size:20;not null;uniqueIndex:idx_sources_owner_url,priority:4;check:source_type IN ('playlist', 'direct')" json:"source_type"`
	Active        bool       `gorm:"not null;default:true;index:idx_sources_active" json:"active"`
	LastCheckedAt *time.Time `json:"last_checked_at"`
	LastStatus    int        `gorm:"default:0" json:"last_status"` // 0 when the probe never got a response
	CreatedAt     time.Time  `json:"created_at"`
}

func (Source) TableName() string {
	return "sources"
}

// All returns every catalog model in migration order
func All() []interface{} {
	return []interface{}{
		&Show{},
		&Season{},
		&Episode{},
		&Movie{},
		&Source{},
	}
}
