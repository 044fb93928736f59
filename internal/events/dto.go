package events

import (
	"time"

	"github.com/angelmondragon/eventhub-backend/pkg/db/models"
	"github.com/google/uuid"
)

// EventDTO is the event payload returned to clients.
type EventDTO struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	IsPublic    bool       `json:"is_public"`
	CreatedByID uuid.UUID  `json:"created_by_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateEventRequest is the admin payload for a new event. Timestamps are RFC 3339.
type CreateEventRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	Location    *string `json:"location,omitempty" validate:"omitempty,max=300"`
	StartsAt    string  `json:"starts_at" validate:"required"`
	EndsAt      *string `json:"ends_at,omitempty"`
	IsPublic    *bool   `json:"is_public,omitempty"`
}

// UpdateEventRequest holds optional fields; nil leaves the column untouched.
type UpdateEventRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	Location    *string `json:"location,omitempty" validate:"omitempty,max=300"`
	StartsAt    *string `json:"starts_at,omitempty"`
	EndsAt      *string `json:"ends_at,omitempty"`
	IsPublic    *bool   `json:"is_public,omitempty"`
}

func FromModel(ev *models.Event) *EventDTO {
	if ev == nil {
		return nil
	}
	return &EventDTO{
		ID:          ev.ID,
		Title:       ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		StartsAt:    ev.StartsAt,
		EndsAt:      ev.EndsAt,
		IsPublic:    ev.IsPublic,
		CreatedByID: ev.CreatedByID,
		CreatedAt:   ev.CreatedAt,
		UpdatedAt:   ev.UpdatedAt,
	}
}
