package api

import (
	"net/http"
)

const resourceMedias = "medias"

func (h *Handler) MediasHealth(w http.ResponseWriter, r *http.Request) {
	h.writeText(w, http.StatusOK, h.mediaSvc.Health())
}

func (h *Handler) CreateMedia(w http.ResponseWriter, r *http.Request) {
	var req MediaRequest
	if err := h.validator.Decode(r.Body, &req); err != nil {
		h.writeError(w, r, resourceMedias, err)
		return
	}

	m, err := h.mediaSvc.Create(r.Context(), req.Title, req.Username)
	if err != nil {
		h.writeError(w, r, resourceMedias, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, toMediaDTO(m))
}

func (h *Handler) ListMedias(w http.ResponseWriter, r *http.Request) {
	list, err := h.mediaSvc.List(r.Context())
	if err != nil {
		h.writeError(w, r, resourceMedias, err)
		return
	}

	dtos := make([]MediaDTO, 0, len(list))
	for i := range list {
		dtos = append(dtos, toMediaDTO(&list[i]))
	}
	h.writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetMedia(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, resourceMedias, err)
		return
	}

	m, err := h.mediaSvc.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, resourceMedias, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toMediaDTO(m))
}

func (h *Handler) UpdateMedia(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, resourceMedias, err)
		return
	}

	var req MediaRequest
	if err := h.validator.Decode(r.Body, &req); err != nil {
		h.writeError(w, r, resourceMedias, err)
		return
	}

	m, err := h.mediaSvc.Update(r.Context(), id, req.Title, req.Username)
	if err != nil {
		h.writeError(w, r, resourceMedias, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toMediaDTO(m))
}

func (h *Handler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, resourceMedias, err)
		return
	}

	if err := h.mediaSvc.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, resourceMedias, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
