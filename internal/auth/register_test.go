package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/eventhub-backend/internal/users"
	"github.com/angelmondragon/eventhub-backend/pkg/config"
	"github.com/angelmondragon/eventhub-backend/pkg/db/dbtest"
	pkgmodels "github.com/angelmondragon/eventhub-backend/pkg/db/models"
	"github.com/angelmondragon/eventhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eventhub-backend/pkg/errors"
	"github.com/angelmondragon/eventhub-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubTxRunner struct{}

func (s stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubRegisterUserRepository struct {
	data      map[string]*pkgmodels.User
	created   *pkgmodels.User
	createErr error
}

func newStubRegisterUserRepository() *stubRegisterUserRepository {
	return &stubRegisterUserRepository{data: map[string]*pkgmodels.User{}}
}

func (s *stubRegisterUserRepository) FindByEmail(ctx context.Context, email string) (*pkgmodels.User, error) {
	if user, ok := s.data[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRegisterUserRepository) Create(ctx context.Context, dto users.CreateUserDTO) (*pkgmodels.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	user := dto.ToModel()
	user.ID = uuid.New()
	s.data[user.Email] = user
	s.created = user
	return user, nil
}

func newRegisterTestService(t *testing.T, repo *stubRegisterUserRepository) RegisterService {
	t.Helper()
	svc, err := NewRegisterService(RegisterServiceParams{
		TxRunner: stubTxRunner{},
		UserRepoFactory: func(tx *gorm.DB) registerUserRepository {
			return repo
		},
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("new register service: %v", err)
	}
	return svc
}

func TestRegisterCreatesUser(t *testing.T) {
	repo := newStubRegisterUserRepository()
	svc := newRegisterTestService(t, repo)

	dto, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "New@Example.com",
		Username: "newbie",
		Password: "Secret123!",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if repo.created == nil {
		t.Fatalf("expected user to be created")
	}
	if dto.Email != "new@example.com" {
		t.Fatalf("expected normalized email, got %s", dto.Email)
	}
	if dto.Role != enums.UserRoleUser {
		t.Fatalf("expected user role, got %s", dto.Role)
	}
	ok, err := security.VerifyPassword("Secret123!", repo.created.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("expected stored hash to verify: %v", err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	repo := newStubRegisterUserRepository()
	repo.data["taken@example.com"] = &pkgmodels.User{ID: uuid.New(), Email: "taken@example.com"}
	svc := newRegisterTestService(t, repo)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "taken@example.com",
		Username: "dup",
		Password: "Secret123!",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if repo.created != nil {
		t.Fatalf("expected no user creation")
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	svc := newRegisterTestService(t, newStubRegisterUserRepository())

	cases := []RegisterRequest{
		{Email: "a@example.com", Username: "a", Password: "short"},
		{Email: "", Username: "a", Password: "Secret123!"},
		{Email: "a@example.com", Username: "  ", Password: "Secret123!"},
	}
	for _, req := range cases {
		_, err := svc.Register(context.Background(), req)
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for %+v, got %v", req, err)
		}
	}
}

func TestRegisterWrapsStoreFailure(t *testing.T) {
	repo := newStubRegisterUserRepository()
	repo.createErr = errors.New("disk full")
	svc := newRegisterTestService(t, repo)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "a@example.com",
		Username: "a",
		Password: "Secret123!",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestRegisterAgainstDatabase(t *testing.T) {
	client := dbtest.New(t)
	svc, err := NewRegisterService(DefaultRegisterParams(client, config.PasswordConfig{}))
	if err != nil {
		t.Fatalf("new register service: %v", err)
	}

	req := RegisterRequest{Email: "db@example.com", Username: "db", Password: "Secret123!"}
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(context.Background(), req); !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict on second register, got %v", err)
	}
}
