package handler

import (
	"net/http"
)

// ListResources returns every resource as a JSON array.
func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	rs, err := h.svc.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

// SearchResources filters resources by query parameters. Each key must
// match case-insensitively; for repeated keys only the first value counts.
func (h *Handler) SearchResources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria := make(map[string]string, len(q))
	for k, vs := range q {
		if len(vs) > 0 {
			criteria[k] = vs[0]
		}
	}
	rs, err := h.svc.Search(r.Context(), criteria)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

// GetResource returns one resource with its averageRating.
func (h *Handler) GetResource(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CreateResource handles POST /resources.
func (h *Handler) CreateResource(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.svc.Create(r.Context(), body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.metrics.ResourcesCreated.Add(1)
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Resource created successfully.", "data": res})
}

// UpdateResource handles PUT /resources/{id}.
func (h *Handler) UpdateResource(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.svc.Update(r.Context(), r.PathValue("id"), body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.metrics.ResourcesUpdated.Add(1)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Resource updated successfully.", "data": res})
}

// DeleteResource handles DELETE /resources/{id}.
func (h *Handler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.metrics.ResourcesDeleted.Add(1)
	w.WriteHeader(http.StatusNoContent)
}
