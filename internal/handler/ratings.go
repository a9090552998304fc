package handler

import "net/http"

// AddRating handles POST /resources/{id}/rating. The resource is not
// required to exist.
func (h *Handler) AddRating(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rating, err := h.svc.AddRating(r.Context(), r.PathValue("id"), body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.metrics.RatingsAdded.Add(1)
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Rating added successfully.", "data": rating})
}

// ListRatings handles GET /resources/{id}/ratings.
func (h *Handler) ListRatings(w http.ResponseWriter, r *http.Request) {
	rs, err := h.svc.ListRatings(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}
