package api

import (
	"net/http"

	"github.com/howjmay/publicator/internal/publications"
	"github.com/howjmay/publicator/internal/validation"
)

const resourcePublications = "publications"

func (h *Handler) PublicationsHealth(w http.ResponseWriter, r *http.Request) {
	h.writeText(w, http.StatusOK, h.publicationSvc.Health())
}

func (h *Handler) CreatePublication(w http.ResponseWriter, r *http.Request) {
	var req PublicationRequest
	if err := h.validator.Decode(r.Body, &req); err != nil {
		h.writeError(w, r, resourcePublications, err)
		return
	}

	// The date rule already accepted it
	date, _ := validation.ParseDate(req.Date)

	p, err := h.publicationSvc.Create(r.Context(), req.MediaID, req.PostID, date)
	if err != nil {
		h.writeError(w, r, resourcePublications, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, toPublicationDTO(p))
}

// ListPublications supports ?published=true|false and ?after=<date>
func (h *Handler) ListPublications(w http.ResponseWriter, r *http.Request) {
	filter, err := publications.ParseFilter(queryParam(r, "published"), queryParam(r, "after"))
	if err != nil {
		h.writeError(w, r, resourcePublications, err)
		return
	}

	list, err := h.publicationSvc.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, resourcePublications, err)
		return
	}

	dtos := make([]PublicationDTO, 0, len(list))
	for i := range list {
		dtos = append(dtos, toPublicationDTO(&list[i]))
	}
	h.writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetPublication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, resourcePublications, err)
		return
	}

	p, err := h.publicationSvc.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, resourcePublications, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toPublicationDTO(p))
}

func (h *Handler) UpdatePublication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, resourcePublications, err)
		return
	}

	var req PublicationRequest
	if err := h.validator.Decode(r.Body, &req); err != nil {
		h.writeError(w, r, resourcePublications, err)
		return
	}
	date, _ := validation.ParseDate(req.Date)

	p, err := h.publicationSvc.Update(r.Context(), id, req.MediaID, req.PostID, date)
	if err != nil {
		h.writeError(w, r, resourcePublications, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toPublicationDTO(p))
}

func (h *Handler) DeletePublication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, resourcePublications, err)
		return
	}

	if err := h.publicationSvc.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, resourcePublications, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
