package api

import (
	"time"

	"github.com/howjmay/publicator/internal/apperr"
	"github.com/howjmay/publicator/internal/db/entities"
)

// Error response
type ErrorResponse struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Details []apperr.Violation `json:"details,omitempty"`
}

// Request bodies. Keys not declared here are rejected.

type MediaRequest struct {
	Title    string `json:"title" validate:"required"`
	Username string `json:"username" validate:"required"`
}

// PostRequest accepts an id for compatibility with existing clients; it is
// ignored.
type PostRequest struct {
	ID    *int64  `json:"id"`
	Title string  `json:"title" validate:"required"`
	Text  string  `json:"text" validate:"required"`
	Image *string `json:"image" validate:"omitnil,url"`
}

// PublicationRequest accepts an id for compatibility with existing clients;
// it is ignored.
type PublicationRequest struct {
	ID      *int64 `json:"id"`
	MediaID int64  `json:"mediaId" validate:"required,min=1"`
	PostID  int64  `json:"postId" validate:"required,min=1"`
	Date    string `json:"date" validate:"required,date"`
}

// Responses

type MediaDTO struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Username string `json:"username"`
}

type PostDTO struct {
	ID    int64   `json:"id"`
	Title string  `json:"title"`
	Text  string  `json:"text"`
	Image *string `json:"image,omitempty"`
}

type PublicationDTO struct {
	ID      int64  `json:"id"`
	MediaID int64  `json:"mediaId"`
	PostID  int64  `json:"postId"`
	Date    string `json:"date"`
}

func toMediaDTO(m *entities.Media) MediaDTO {
	return MediaDTO{ID: m.ID, Title: m.Title, Username: m.Username}
}

func toPostDTO(p *entities.Post) PostDTO {
	return PostDTO{ID: p.ID, Title: p.Title, Text: p.Text, Image: p.Image}
}

func toPublicationDTO(p *entities.Publication) PublicationDTO {
	return PublicationDTO{
		ID:      p.ID,
		MediaID: p.MediaID,
		PostID:  p.PostID,
		Date:    p.Date.UTC().Format(time.RFC3339Nano),
	}
}
