package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/angelmondragon/eventhub-backend/api/responses"
	"github.com/angelmondragon/eventhub-backend/api/validators"
	pkgAuth "github.com/angelmondragon/eventhub-backend/pkg/auth"
	"github.com/angelmondragon/eventhub-backend/pkg/auth/session"
	"github.com/angelmondragon/eventhub-backend/pkg/config"
	"github.com/angelmondragon/eventhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/eventhub-backend/pkg/errors"
	"github.com/angelmondragon/eventhub-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Authenticator validates bearer tokens against the JWT config and the live
// session store, then loads the account behind them.
type Authenticator struct {
	cfg      config.JWTConfig
	sessions session.AccessSessionChecker
	users    userLoader
	logg     *logger.Logger
}

func NewAuthenticator(cfg config.JWTConfig, sessions session.AccessSessionChecker, users userLoader, logg *logger.Logger) *Authenticator {
	return &Authenticator{cfg: cfg, sessions: sessions, users: users, logg: logg}
}

// RequireAuth rejects requests without a valid token or whose user no longer exists.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := validators.BearerToken(r.Header.Get("Authorization"))
		if token == "" {
			responses.WriteError(r.Context(), a.logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		ctx, err := a.authenticate(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), a.logg, w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth attaches the user when a valid token is present and otherwise
// lets the request through anonymously.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := validators.BearerToken(r.Header.Get("Authorization"))
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx, err := a.authenticate(r.Context(), token)
		if err != nil {
			if a.logg != nil {
				a.logg.Debug(r.Context(), "optional auth ignored invalid token")
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin must run after RequireAuth.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			responses.WriteError(r.Context(), a.logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		if !IsAdminFromContext(r.Context()) {
			responses.WriteError(r.Context(), a.logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) authenticate(ctx context.Context, token string) (context.Context, error) {
	claims, err := pkgAuth.ParseAccessToken(a.cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}

	if a.sessions != nil {
		ok, err := a.sessions.HasSession(ctx, claims.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
		}
	}

	isAdmin := claims.IsAdmin()
	if a.users != nil {
		user, err := a.users.FindByID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user no longer exists")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
		}
		isAdmin = user.IsAdmin()
	}

	ctx = WithUser(ctx, claims.UserID, isAdmin)
	if a.logg != nil {
		ctx = a.logg.WithFields(ctx, map[string]any{
			"user_id":  claims.UserID.String(),
			"is_admin": isAdmin,
		})
	}
	return ctx, nil
}
