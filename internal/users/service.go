package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/eventhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/eventhub-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes the profile reads used by the API and the auth middleware.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	Me(ctx context.Context, id uuid.UUID) (*UserDTO, error)
}

type userReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type service struct {
	repo userReader
}

func NewService(repo userReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	return &service{repo: repo}, nil
}

// Get loads the account or fails with NOT_FOUND.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return user, nil
}

func (s *service) Me(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}
