package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/campusbuy/internal/apperr"
	"github.com/mmynk/campusbuy/internal/auth"
	"github.com/mmynk/campusbuy/internal/models"
	"github.com/mmynk/campusbuy/internal/storage/sqlite"
)

func setupAuthService(t *testing.T) (*AuthService, *auth.JWTManager) {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	jwtManager := auth.NewJWTManager("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour, "campusbuy")
	authenticator := auth.NewPasswordAuthenticator(store, bcrypt.MinCost)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAuthService(authenticator, jwtManager, store, logger), jwtManager
}

func TestAuthService(t *testing.T) {
	svc, jwtManager := setupAuthService(t)
	ctx := context.Background()

	var session *Session
	t.Run("Register", func(t *testing.T) {
		var err error
		session, err = svc.Register(ctx, RegisterCommand{
			Email:     "  Ada@Campus.edu ",
			Password:  "correct horse",
			FirstName: "Ada",
			LastName:  "Lovelace",
		})
		require.NoError(t, err)
		assert.Equal(t, "ada@campus.edu", session.User.Email)
		assert.Equal(t, models.RoleStudent, session.User.Role)
		assert.Equal(t, 1, session.User.Level)

		claims, err := jwtManager.Validate(session.Tokens.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, session.User.ID, claims.UserID)
	})

	t.Run("RegisterDuplicate", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterCommand{
			Email:     "ada@campus.edu",
			Password:  "another password",
			FirstName: "Ada",
			LastName:  "Again",
		})
		requireKind(t, err, apperr.KindConflict)
	})

	t.Run("RegisterWeakPassword", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterCommand{Email: "x@campus.edu", Password: "short", FirstName: "X", LastName: "Y"})
		requireKind(t, err, apperr.KindValidation)
	})

	t.Run("RegisterInvalidRole", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterCommand{
			Email: "y@campus.edu", Password: "long enough", FirstName: "Y", LastName: "Z", Role: "superuser",
		})
		requireKind(t, err, apperr.KindValidation)
	})

	t.Run("Login", func(t *testing.T) {
		got, err := svc.Login(ctx, "ADA@campus.edu", "correct horse")
		require.NoError(t, err)
		assert.Equal(t, session.User.ID, got.User.ID)
		assert.NotEmpty(t, got.Tokens.RefreshToken)
	})

	t.Run("LoginWrongPassword", func(t *testing.T) {
		_, err := svc.Login(ctx, "ada@campus.edu", "wrong horse")
		requireKind(t, err, apperr.KindAuthentication)
	})

	t.Run("LoginUnknownEmail", func(t *testing.T) {
		_, err := svc.Login(ctx, "nobody@campus.edu", "correct horse")
		requireKind(t, err, apperr.KindAuthentication)
	})

	t.Run("Refresh", func(t *testing.T) {
		access, err := svc.Refresh(ctx, session.Tokens.RefreshToken)
		require.NoError(t, err)
		claims, err := jwtManager.Validate(access)
		require.NoError(t, err)
		assert.Equal(t, session.User.ID, claims.UserID)
	})

	t.Run("RefreshWithAccessTokenRejected", func(t *testing.T) {
		_, err := svc.Refresh(ctx, session.Tokens.AccessToken)
		requireKind(t, err, apperr.KindAuthentication)
	})

	t.Run("Me", func(t *testing.T) {
		user, err := svc.Me(ctx, session.User.ID)
		require.NoError(t, err)
		assert.Equal(t, "Lovelace", user.LastName)

		_, err = svc.Me(ctx, "")
		requireKind(t, err, apperr.KindAuthentication)

		_, err = svc.Me(ctx, "9b2f1c3e-4a5d-4e6f-8a9b-0c1d2e3f4a5b")
		requireKind(t, err, apperr.KindNotFound)
	})
}
