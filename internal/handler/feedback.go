package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/zynqcloud/catalog/internal/catalog"
)

// ListFeedback handles GET /resources/{resourceId}/feedback.
func (h *Handler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	fs, err := h.svc.ListFeedback(r.Context(), r.PathValue("resourceId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fs)
}

// AddFeedback handles POST /resources/{resourceId}/feedback.
func (h *Handler) AddFeedback(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	f, err := h.svc.AddFeedback(r.Context(), r.PathValue("resourceId"), body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.metrics.FeedbackCreated.Add(1)
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Feedback added successfully.", "feedback": f})
}

// UpdateFeedback handles PUT /resources/{resourceId}/feedback/{feedbackId}.
// The body must name the owning userId.
func (h *Handler) UpdateFeedback(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	f, err := h.svc.UpdateFeedback(r.Context(), r.PathValue("resourceId"), r.PathValue("feedbackId"), body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.metrics.FeedbackUpdated.Add(1)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Feedback updated successfully.", "feedback": f})
}

// DeleteFeedback handles DELETE /resources/{resourceId}/feedback/{feedbackId}.
// The requesting userId comes from the query string, or failing that from a
// JSON body.
func (h *Handler) DeleteFeedback(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		body, err := decodeBody(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		userID, _ = body["userId"].(string)
	}

	err := h.svc.DeleteFeedback(r.Context(), r.PathValue("resourceId"), r.PathValue("feedbackId"), userID)
	if err != nil {
		if errors.Is(err, catalog.ErrForbidden) {
			h.metrics.FeedbackDenied.Add(1)
		}
		h.fail(w, r, err)
		return
	}
	h.metrics.FeedbackDeleted.Add(1)
	w.WriteHeader(http.StatusNoContent)
}
