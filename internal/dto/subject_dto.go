package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSubjectRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

type CreateSubjectResponse struct {
	Id uuid.UUID `json:"id"`
}

type ShowSubjectResponse struct {
	Id            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	DocumentCount int64      `json:"document_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
}

type UpdateSubjectRequest struct {
	Id   uuid.UUID
	Name string `json:"name" validate:"required,max=120"`
}

type UpdateSubjectResponse struct {
	Id uuid.UUID `json:"id"`
}
