package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/zynqcloud/catalog/internal/validate"
)

// Feedback is free text a user left on a resource.
type Feedback struct {
	ID           string `json:"id"`
	ResourceID   string `json:"resourceId"`
	FeedbackText string `json:"feedbackText"`
	UserID       string `json:"userId"`
	Timestamp    string `json:"timestamp"`
}

type feedbackInput struct {
	FeedbackText string `mapstructure:"feedbackText"`
	UserID       string `mapstructure:"userId"`
}

func decodeFeedback(doc map[string]any) (feedbackInput, error) {
	var in feedbackInput
	if err := mapstructure.Decode(doc, &in); err != nil {
		return in, fmt.Errorf("decode feedback: %w", err)
	}
	in.FeedbackText = strings.TrimSpace(in.FeedbackText)
	return in, nil
}

// AddFeedback stores trimmed feedback text for resourceID. userId defaults
// to "anonymous".
func (s *Service) AddFeedback(ctx context.Context, resourceID string, payload map[string]any) (Feedback, error) {
	doc := withFields(payload, "resourceId", resourceID)
	if err := s.validator.Validate(validate.FeedbackCreate, doc); err != nil {
		return Feedback{}, invalid(err)
	}
	in, err := decodeFeedback(doc)
	if err != nil {
		return Feedback{}, err
	}
	if in.UserID == "" {
		in.UserID = AnonymousUser
	}

	f := Feedback{
		ID:           s.newID(),
		ResourceID:   resourceID,
		FeedbackText: in.FeedbackText,
		UserID:       in.UserID,
		Timestamp:    s.timestamp(),
	}
	var fs []Feedback
	err = s.mutate(ctx, feedback, &fs, func() error {
		fs = append(fs, f)
		return nil
	})
	if err != nil {
		return Feedback{}, err
	}
	s.logger.Info("feedback: added", "id", f.ID, "resource", resourceID, "user", f.UserID)
	return f, nil
}

// ListFeedback returns the feedback left on resourceID.
func (s *Service) ListFeedback(ctx context.Context, resourceID string) ([]Feedback, error) {
	var fs []Feedback
	if err := s.load(ctx, feedback, &fs); err != nil {
		return nil, err
	}
	out := []Feedback{}
	for _, f := range fs {
		if f.ResourceID == resourceID {
			out = append(out, f)
		}
	}
	return out, nil
}

// UpdateFeedback replaces the text (and timestamp) of a feedback record.
// The userId in payload is part of the lookup, so a caller naming the wrong
// owner gets ErrNotFound exactly as for a missing record.
func (s *Service) UpdateFeedback(ctx context.Context, resourceID, feedbackID string, payload map[string]any) (Feedback, error) {
	doc := withFields(payload, "resourceId", resourceID, "feedbackId", feedbackID)
	if err := s.validator.Validate(validate.FeedbackUpdate, doc); err != nil {
		return Feedback{}, invalid(err)
	}
	in, err := decodeFeedback(doc)
	if err != nil {
		return Feedback{}, err
	}

	var (
		fs      []Feedback
		updated Feedback
	)
	err = s.mutate(ctx, feedback, &fs, func() error {
		for i := range fs {
			f := &fs[i]
			if f.ID == feedbackID && f.ResourceID == resourceID && f.UserID == in.UserID {
				f.FeedbackText = in.FeedbackText
				f.Timestamp = s.timestamp()
				updated = *f
				return nil
			}
		}
		return notFound("Feedback with ID %s not found for this resource and user.", feedbackID)
	})
	if err != nil {
		return Feedback{}, err
	}
	s.logger.Info("feedback: updated", "id", feedbackID, "resource", resourceID)
	return updated, nil
}

// DeleteFeedback removes a feedback record. Only its owner may delete it:
// any other userId yields ErrForbidden.
func (s *Service) DeleteFeedback(ctx context.Context, resourceID, feedbackID, userID string) error {
	doc := map[string]any{"resourceId": resourceID, "feedbackId": feedbackID, "userId": userID}
	if err := s.validator.Validate(validate.FeedbackDelete, doc); err != nil {
		return invalid(err)
	}

	var fs []Feedback
	err := s.mutate(ctx, feedback, &fs, func() error {
		for i, f := range fs {
			if f.ID != feedbackID || f.ResourceID != resourceID {
				continue
			}
			if f.UserID != userID {
				s.logger.Warn("feedback: delete denied", "id", feedbackID, "owner", f.UserID, "user", userID)
				return forbidden("You are not allowed to delete this feedback.")
			}
			fs = append(fs[:i], fs[i+1:]...)
			return nil
		}
		return notFound("Feedback with ID %s not found.", feedbackID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("feedback: deleted", "id", feedbackID, "resource", resourceID)
	return nil
}
