package ratings

import (
	"context"
	"math"
	"math/rand/v2"
)

// Kind names what a rating is looked up for
type Kind string

const (
	KindMovie Kind = "movie"
	KindShow  Kind = "show"
)

// RatingProvider looks up a kinopoisk rating for a title
type RatingProvider interface {
	Rating(ctx context.Context, kind Kind, title string) (float64, error)
}

// Placeholder rating range
const (
	MinRandomRating = 5.0
	MaxRandomRating = 9.0
)

// RandomProvider stands in for a real rating service. It returns a uniformly
// random rating in [5.0, 9.0] rounded to one decimal.
type RandomProvider struct{}

// NewRandomProvider creates the placeholder provider
func NewRandomProvider() *RandomProvider {
	return &RandomProvider{}
}

func (RandomProvider) Rating(ctx context.Context, _ Kind, _ string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	v := MinRandomRating + rand.Float64()*(MaxRandomRating-MinRandomRating)
	return math.Round(v*10) / 10, nil
}
