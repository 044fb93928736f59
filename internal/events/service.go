package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/eventhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/eventhub-backend/pkg/errors"
	"github.com/angelmondragon/eventhub-backend/pkg/logger"
	"github.com/angelmondragon/eventhub-backend/pkg/visibility"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const notFoundMessage = "event not found"

// Viewer describes who is reading events.
type Viewer struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// Notifier announces events that became visible to everyone.
type Notifier interface {
	NotifyEventPublished(ctx context.Context, ev *models.Event) error
}

// Service exposes event reads for everyone and writes for admins.
type Service interface {
	List(ctx context.Context, viewer Viewer) ([]EventDTO, error)
	Get(ctx context.Context, viewer Viewer, id uuid.UUID) (*EventDTO, error)
	Create(ctx context.Context, creatorID uuid.UUID, req CreateEventRequest) (*EventDTO, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateEventRequest) (*EventDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo     *Repository
	notifier Notifier
	logg     *logger.Logger
}

// NewService builds the events service. A nil notifier disables announcements.
func NewService(repo *Repository, notifier Notifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("events repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, notifier: notifier, logg: logg}, nil
}

func (s *service) List(ctx context.Context, viewer Viewer) ([]EventDTO, error) {
	rows, err := s.repo.List(ctx, viewer.IsAdmin)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list events")
	}
	rows = visibility.FilterEvents(rows, visibility.EventViewer{IsAdmin: viewer.IsAdmin})
	out := make([]EventDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, viewer Viewer, id uuid.UUID) (*EventDTO, error) {
	ev, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := visibility.EnsureEventVisible(ev, visibility.EventViewer{IsAdmin: viewer.IsAdmin}); err != nil {
		return nil, err
	}
	return FromModel(ev), nil
}

func (s *service) Create(ctx context.Context, creatorID uuid.UUID, req CreateEventRequest) (*EventDTO, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" || strings.TrimSpace(req.StartsAt) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and starts_at are required")
	}
	startsAt, err := parseTimestamp("starts_at", req.StartsAt)
	if err != nil {
		return nil, err
	}
	var endsAt *time.Time
	if req.EndsAt != nil && strings.TrimSpace(*req.EndsAt) != "" {
		parsed, err := parseTimestamp("ends_at", *req.EndsAt)
		if err != nil {
			return nil, err
		}
		endsAt = &parsed
	}
	if err := checkWindow(startsAt, endsAt); err != nil {
		return nil, err
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	ev, err := s.repo.Create(ctx, &models.Event{
		Title:       title,
		Description: trimmed(req.Description),
		Location:    trimmed(req.Location),
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		IsPublic:    isPublic,
		CreatedByID: creatorID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create event")
	}

	if ev.IsPublic {
		s.announce(ctx, ev)
	}
	return FromModel(ev), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateEventRequest) (*EventDTO, error) {
	ev, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	wasPublic := ev.IsPublic

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title must not be empty")
		}
		ev.Title = title
	}
	if req.Description != nil {
		ev.Description = trimmed(req.Description)
	}
	if req.Location != nil {
		ev.Location = trimmed(req.Location)
	}
	if req.StartsAt != nil {
		startsAt, err := parseTimestamp("starts_at", *req.StartsAt)
		if err != nil {
			return nil, err
		}
		ev.StartsAt = startsAt
	}
	if req.EndsAt != nil {
		endsAt, err := parseTimestamp("ends_at", *req.EndsAt)
		if err != nil {
			return nil, err
		}
		ev.EndsAt = &endsAt
	}
	if err := checkWindow(ev.StartsAt, ev.EndsAt); err != nil {
		return nil, err
	}
	if req.IsPublic != nil {
		ev.IsPublic = *req.IsPublic
	}

	if err := s.repo.Save(ctx, ev); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update event")
	}

	if !wasPublic && ev.IsPublic {
		s.announce(ctx, ev)
	}
	return FromModel(ev), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete event")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMessage)
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	ev, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, notFoundMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load event")
	}
	return ev, nil
}

// announce hands the event to the notifier. The response never waits on
// delivery, so enqueue failures are only logged.
func (s *service) announce(ctx context.Context, ev *models.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyEventPublished(ctx, ev); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "event_id", ev.ID.String()), "queue event notification", err)
	}
}

func parseTimestamp(field, raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be an RFC 3339 timestamp (e.g. 2026-02-15T20:00:00Z)", field)
	}
	return t.UTC(), nil
}

func checkWindow(startsAt time.Time, endsAt *time.Time) error {
	if endsAt != nil && endsAt.Before(startsAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "ends_at must not be before starts_at")
	}
	return nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	out := strings.TrimSpace(*v)
	if out == "" {
		return nil
	}
	return &out
}
