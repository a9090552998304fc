package catalog

import (
	"context"
	"fmt"
	"math"

	"github.com/mitchellh/mapstructure"

	"github.com/zynqcloud/catalog/internal/validate"
)

// Rating is an append-only score for a resource. ResourceID is not checked
// against the resources collection.
type Rating struct {
	ID          string `json:"id"`
	ResourceID  string `json:"resourceId"`
	RatingValue int    `json:"ratingValue"`
	UserID      string `json:"userId"`
	Timestamp   string `json:"timestamp"`
}

type ratingInput struct {
	RatingValue float64 `mapstructure:"ratingValue"`
	UserID      string  `mapstructure:"userId"`
}

// AddRating validates payload (ratingValue 1..5, optional userId) and
// appends a rating for resourceID.
func (s *Service) AddRating(ctx context.Context, resourceID string, payload map[string]any) (Rating, error) {
	doc := withFields(payload, "resourceId", resourceID)
	if err := s.validator.Validate(validate.RatingCreate, doc); err != nil {
		return Rating{}, invalid(err)
	}
	var in ratingInput
	if err := mapstructure.Decode(doc, &in); err != nil {
		return Rating{}, fmt.Errorf("decode rating: %w", err)
	}
	if in.UserID == "" {
		in.UserID = AnonymousUser
	}

	r := Rating{
		ID:          s.newID(),
		ResourceID:  resourceID,
		RatingValue: int(in.RatingValue),
		UserID:      in.UserID,
		Timestamp:   s.timestamp(),
	}
	var rs []Rating
	err := s.mutate(ctx, ratings, &rs, func() error {
		rs = append(rs, r)
		return nil
	})
	if err != nil {
		return Rating{}, err
	}
	s.logger.Info("rating: added", "id", r.ID, "resource", resourceID, "value", r.RatingValue)
	return r, nil
}

// ListRatings returns the ratings recorded for resourceID.
func (s *Service) ListRatings(ctx context.Context, resourceID string) ([]Rating, error) {
	var rs []Rating
	if err := s.load(ctx, ratings, &rs); err != nil {
		return nil, err
	}
	out := []Rating{}
	for _, r := range rs {
		if r.ResourceID == resourceID {
			out = append(out, r)
		}
	}
	return out, nil
}

// AverageRating is the mean ratingValue for resourceID rounded to two
// decimals, or nil when the resource has no ratings.
func (s *Service) AverageRating(ctx context.Context, resourceID string) (*float64, error) {
	var rs []Rating
	if err := s.load(ctx, ratings, &rs); err != nil {
		return nil, err
	}
	return average(rs, resourceID), nil
}

func average(rs []Rating, resourceID string) *float64 {
	var sum, n int
	for _, r := range rs {
		if r.ResourceID == resourceID {
			sum += r.RatingValue
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := math.Round(float64(sum)/float64(n)*100) / 100
	return &avg
}
