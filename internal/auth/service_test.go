package auth

import (
	"context"
	"testing"
	"time"

	pkgAuth "github.com/angelmondragon/eventhub-backend/pkg/auth"
	"github.com/angelmondragon/eventhub-backend/pkg/auth/session"
	"github.com/angelmondragon/eventhub-backend/pkg/config"
	"github.com/angelmondragon/eventhub-backend/pkg/db/models"
	"github.com/angelmondragon/eventhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eventhub-backend/pkg/errors"
	"github.com/angelmondragon/eventhub-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var testJWTConfig = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "eventhub",
	ExpirationMinutes: 30,
}

func TestServiceLoginIssuesTokens(t *testing.T) {
	password := "fan-secret"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "fan@example.com",
		Username:     "fan",
		PasswordHash: mustHashPassword(t, password),
		Role:         enums.UserRoleAdmin,
	}
	svc, sessions := buildTestService(t, user)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: " FAN@example.com ", Password: password})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected user id claim %s, got %s", user.ID, claims.UserID)
	}
	if claims.Role != enums.UserRoleAdmin || !claims.IsAdmin() {
		t.Fatalf("expected admin role claim, got %s", claims.Role)
	}
	if resp.RefreshToken != sessions.tokens[claims.ID] {
		t.Fatalf("refresh token not bound to access jti")
	}
	if resp.User == nil || resp.User.Email != user.Email {
		t.Fatalf("expected user in response")
	}
	if user.LastLoginAt == nil {
		t.Fatalf("expected last login to be recorded")
	}
	if resp.ExpiresIn != 30*60 {
		t.Fatalf("unexpected expires_in %d", resp.ExpiresIn)
	}
}

func TestServiceLoginRejectsBadCredentials(t *testing.T) {
	user := &models.User{
		ID:           uuid.New(),
		Email:        "fan@example.com",
		PasswordHash: mustHashPassword(t, "right-password"),
		Role:         enums.UserRoleUser,
	}
	svc, _ := buildTestService(t, user)

	cases := []LoginRequest{
		{Email: "fan@example.com", Password: "wrong-password"},
		{Email: "ghost@example.com", Password: "right-password"},
		{Email: "  ", Password: "right-password"},
	}
	for _, req := range cases {
		_, err := svc.Login(context.Background(), req)
		if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			t.Fatalf("expected unauthorized for %q, got %v", req.Email, err)
		}
	}
}

func TestServiceRefreshRotatesSession(t *testing.T) {
	password := "fan-secret"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "fan@example.com",
		PasswordHash: mustHashPassword(t, password),
		Role:         enums.UserRoleUser,
	}
	svc, sessions := buildTestService(t, user)
	ctx := context.Background()

	login, err := svc.Login(ctx, LoginRequest{Email: user.Email, Password: password})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := svc.Refresh(ctx, RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Fatalf("expected rotated refresh token")
	}
	if len(sessions.tokens) != 1 {
		t.Fatalf("expected old session to be replaced, have %d", len(sessions.tokens))
	}

	_, err = svc.Refresh(ctx, RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected reused refresh token to be rejected, got %v", err)
	}
}

func TestServiceLogoutRevokes(t *testing.T) {
	password := "fan-secret"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "fan@example.com",
		PasswordHash: mustHashPassword(t, password),
		Role:         enums.UserRoleUser,
	}
	svc, sessions := buildTestService(t, user)
	ctx := context.Background()

	login, err := svc.Login(ctx, LoginRequest{Email: user.Email, Password: password})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(ctx, LogoutRequest{AccessToken: login.AccessToken}); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.tokens) != 0 {
		t.Fatalf("expected session to be revoked")
	}

	if err := svc.Logout(ctx, LogoutRequest{AccessToken: "garbage"}); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for malformed token, got %v", err)
	}
}

func buildTestService(t *testing.T, user *models.User) (Service, *stubSessionManager) {
	t.Helper()
	sessions := &stubSessionManager{tokens: map[string]string{}, owners: map[string]uuid.UUID{}}
	svc, err := NewService(ServiceParams{
		UserRepo:       &stubUserRepo{user: user},
		SessionManager: sessions,
		JWTConfig:      testJWTConfig,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, sessions
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

type stubUserRepo struct {
	user *models.User
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s.user != nil && s.user.ID == id {
		s.user.LastLoginAt = &at
	}
	return nil
}

func (s *stubUserRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	if s.user != nil && s.user.ID == id {
		s.user.PasswordHash = hash
	}
	return nil
}

type stubSessionManager struct {
	tokens map[string]string
	owners map[string]uuid.UUID
	seq    int
}

func (s *stubSessionManager) Generate(ctx context.Context, userID uuid.UUID, accessID string) (string, error) {
	s.seq++
	token := "refresh-" + string(rune('a'+s.seq))
	s.tokens[accessID] = token
	s.owners[accessID] = userID
	return token, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, userID uuid.UUID, oldAccessID, provided string) (string, string, error) {
	stored, ok := s.tokens[oldAccessID]
	if !ok || stored != provided || s.owners[oldAccessID] != userID {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(s.tokens, oldAccessID)
	delete(s.owners, oldAccessID)
	newID := session.NewAccessID()
	token, err := s.Generate(ctx, userID, newID)
	return newID, token, err
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	delete(s.tokens, accessID)
	delete(s.owners, accessID)
	return nil
}
