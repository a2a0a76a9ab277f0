package api

import (
	"net/http"
)

const resourcePosts = "posts"

func (h *Handler) PostsHealth(w http.ResponseWriter, r *http.Request) {
	h.writeText(w, http.StatusOK, h.postSvc.Health())
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req PostRequest
	if err := h.validator.Decode(r.Body, &req); err != nil {
		h.writeError(w, r, resourcePosts, err)
		return
	}

	p, err := h.postSvc.Create(r.Context(), req.Title, req.Text, req.Image)
	if err != nil {
		h.writeError(w, r, resourcePosts, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, toPostDTO(p))
}

func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	list, err := h.postSvc.List(r.Context())
	if err != nil {
		h.writeError(w, r, resourcePosts, err)
		return
	}

	dtos := make([]PostDTO, 0, len(list))
	for i := range list {
		dtos = append(dtos, toPostDTO(&list[i]))
	}
	h.writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, resourcePosts, err)
		return
	}

	p, err := h.postSvc.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, resourcePosts, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toPostDTO(p))
}

func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, resourcePosts, err)
		return
	}

	var req PostRequest
	if err := h.validator.Decode(r.Body, &req); err != nil {
		h.writeError(w, r, resourcePosts, err)
		return
	}

	p, err := h.postSvc.Update(r.Context(), id, req.Title, req.Text, req.Image)
	if err != nil {
		h.writeError(w, r, resourcePosts, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toPostDTO(p))
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, resourcePosts, err)
		return
	}

	if err := h.postSvc.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, resourcePosts, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
