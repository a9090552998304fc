package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/zynqcloud/catalog/internal/validate"
)

// URLBase prefixes generated resource URLs.
const URLBase = "http://example.com/"

// averageRatingField is derived on read and never persisted.
const averageRatingField = "averageRating"

// Resource is one record of the resources collection. Besides the known
// fields (id, title, type, authorId, url) it keeps whatever else the client sent.
type Resource map[string]any

// ID returns the resource id, or "" when absent.
func (r Resource) ID() string {
	id, _ := r["id"].(string)
	return id
}

func (r Resource) clone() Resource {
	out := make(Resource, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// resourceFields is the typed view of a validated create payload.
type resourceFields struct {
	Title    string `mapstructure:"title"`
	Type     string `mapstructure:"type"`
	AuthorID string `mapstructure:"authorId"`
	URL      string `mapstructure:"url"`
}

// defaultURL strips every whitespace run from title.
func defaultURL(title string) string {
	return URLBase + strings.Join(strings.Fields(title), "")
}

// List returns every resource in stored order.
func (s *Service) List(ctx context.Context) ([]Resource, error) {
	var rs []Resource
	if err := s.load(ctx, resources, &rs); err != nil {
		return nil, err
	}
	if rs == nil {
		rs = []Resource{}
	}
	return rs, nil
}

// Get returns the resource with id, with averageRating computed from the
// ratings collection (nil when unrated).
func (s *Service) Get(ctx context.Context, id string) (Resource, error) {
	var rs []Resource
	if err := s.load(ctx, resources, &rs); err != nil {
		return nil, err
	}
	i := indexOf(rs, id)
	if i < 0 {
		return nil, notFound("Resource with ID %s not found.", id)
	}

	avg, err := s.AverageRating(ctx, id)
	if err != nil {
		return nil, err
	}
	out := rs[i].clone()
	if avg == nil {
		out[averageRatingField] = nil
	} else {
		out[averageRatingField] = *avg
	}
	return out, nil
}

// Create validates payload, assigns an id and fills authorId and url when
// missing, then appends the record.
func (s *Service) Create(ctx context.Context, payload map[string]any) (Resource, error) {
	if err := s.validator.Validate(validate.ResourceCreate, payload); err != nil {
		return nil, invalid(err)
	}
	var in resourceFields
	if err := mapstructure.Decode(payload, &in); err != nil {
		return nil, fmt.Errorf("decode resource: %w", err)
	}

	r := Resource(payload).clone()
	delete(r, averageRatingField)
	r["id"] = s.newID()
	if in.AuthorID == "" {
		r["authorId"] = s.newID()
	}
	if in.URL == "" {
		r["url"] = defaultURL(in.Title)
	}

	var rs []Resource
	err := s.mutate(ctx, resources, &rs, func() error {
		rs = append(rs, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("resource: created", "id", r.ID(), "type", in.Type)
	return r, nil
}

// Update overlays payload onto the stored record. The id is never changed,
// whatever the payload says.
func (s *Service) Update(ctx context.Context, id string, payload map[string]any) (Resource, error) {
	if err := s.validator.Validate(validate.ResourceUpdate, payload); err != nil {
		return nil, invalid(err)
	}

	var (
		rs     []Resource
		merged Resource
	)
	err := s.mutate(ctx, resources, &rs, func() error {
		i := indexOf(rs, id)
		if i < 0 {
			return notFound("Resource with ID %s not found.", id)
		}
		merged = rs[i].clone()
		for k, v := range payload {
			merged[k] = v
		}
		delete(merged, averageRatingField)
		merged["id"] = id
		rs[i] = merged
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("resource: updated", "id", id, "fields", len(payload))
	return merged, nil
}

// Delete removes the resource with id. Its ratings and feedback are left in place.
func (s *Service) Delete(ctx context.Context, id string) error {
	var rs []Resource
	err := s.mutate(ctx, resources, &rs, func() error {
		i := indexOf(rs, id)
		if i < 0 {
			return notFound("Resource with ID %s not found.", id)
		}
		rs = append(rs[:i], rs[i+1:]...)
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("resource: deleted", "id", id)
	return nil
}

func indexOf(rs []Resource, id string) int {
	for i, r := range rs {
		if r.ID() == id {
			return i
		}
	}
	return -1
}
