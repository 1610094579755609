package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mmynk/campusbuy/internal/apperr"
	"github.com/mmynk/campusbuy/internal/auth"
	"github.com/mmynk/campusbuy/internal/models"
	"github.com/mmynk/campusbuy/internal/storage"
)

// AuthService handles account registration, login and token refresh.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	users         storage.UserStore
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, users storage.UserStore, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		users:         users,
		logger:        logger,
	}
}

// Session is a user together with a freshly issued token pair.
type Session struct {
	User   *models.User
	Tokens *auth.TokenPair
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, cmd RegisterCommand) (*Session, error) {
	s.logger.Info("Register request", "email", cmd.Email)

	role := cmd.Role
	if role == "" {
		role = models.RoleStudent
	}
	if !role.Valid() {
		return nil, apperr.Validation("Invalid role",
			apperr.FieldError{Field: "role", Message: "must be one of student, vendor, admin"})
	}

	user, err := s.authenticator.Register(ctx, auth.Registration{
		Email:     cmd.Email,
		FirstName: cmd.FirstName,
		LastName:  cmd.LastName,
		Role:      role,
	}, cmd.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			s.logger.Warn("Registration rejected", "email", cmd.Email, "error", err)
			return nil, apperr.Conflict("User already exists")
		case errors.Is(err, auth.ErrWeakPassword):
			return nil, apperr.Validation("Password must be at least 8 characters",
				apperr.FieldError{Field: "password", Message: err.Error()})
		}
		s.logger.Error("Registration failed", "email", cmd.Email, "error", err)
		return nil, apperr.Internal("failed to register user", err)
	}

	tokens, err := s.jwtManager.GeneratePair(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, apperr.Internal("failed to issue tokens", err)
	}

	s.logger.Info("User registered successfully", "user_id", user.ID, "email", user.Email)
	return &Session{User: user, Tokens: tokens}, nil
}

// Login authenticates a user and returns a fresh token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	s.logger.Info("Login request", "email", email)

	if email == "" || password == "" {
		return nil, apperr.Unauthenticated("Invalid email or password")
	}

	user, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.Warn("Login failed", "email", email, "error", err)
			return nil, apperr.Unauthenticated("Invalid email or password")
		}
		s.logger.Error("Login failed", "email", email, "error", err)
		return nil, apperr.Internal("failed to authenticate", err)
	}

	tokens, err := s.jwtManager.GeneratePair(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, apperr.Internal("failed to issue tokens", err)
	}

	s.logger.Info("User logged in successfully", "user_id", user.ID, "email", user.Email)
	return &Session{User: user, Tokens: tokens}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The user
// must still exist.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtManager.ValidateRefresh(refreshToken)
	if err != nil {
		s.logger.Warn("Refresh rejected", "error", err)
		return "", apperr.Unauthenticated("Invalid or expired refresh token")
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", apperr.Unauthenticated("Invalid or expired refresh token")
		}
		return "", apperr.Internal("failed to load user", err)
	}

	access, err := s.jwtManager.Generate(user, auth.AccessToken)
	if err != nil {
		return "", apperr.Internal("failed to issue token", err)
	}

	s.logger.Info("Access token refreshed", "user_id", user.ID)
	return access, nil
}

// Me returns the profile of the authenticated user.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, apperr.Unauthenticated("Authentication required")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errUserNotFound
		}
		s.logger.Error("Failed to load user", "user_id", userID, "error", err)
		return nil, apperr.Internal("failed to load user", err)
	}
	return user, nil
}
