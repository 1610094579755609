package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmynk/campusbuy/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authorization token required")
)

// TokenType distinguishes short-lived access tokens from refresh tokens.
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// JWTManager handles JWT token generation and validation.
// Access and refresh tokens are signed with different keys so one can never
// be replayed as the other.
type JWTManager struct {
	accessKey       []byte
	refreshKey      []byte
	accessDuration  time.Duration
	refreshDuration time.Duration
	issuer          string
}

// Claims represents the custom JWT claims for a user session.
type Claims struct {
	UserID    string      `json:"user_id"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	TokenType TokenType   `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair is what login and registration hand back to clients.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// NewJWTManager creates a new JWT manager.
// Secrets should be strong random strings (e.g., 32 bytes).
func NewJWTManager(accessSecret, refreshSecret string, accessDuration, refreshDuration time.Duration, issuer string) *JWTManager {
	return &JWTManager{
		accessKey:       []byte(accessSecret),
		refreshKey:      []byte(refreshSecret),
		accessDuration:  accessDuration,
		refreshDuration: refreshDuration,
		issuer:          issuer,
	}
}

// GeneratePair issues a fresh access and refresh token for the user.
func (m *JWTManager) GeneratePair(user *models.User) (*TokenPair, error) {
	access, err := m.Generate(user, AccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := m.Generate(user, RefreshToken)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Generate creates a new JWT token of the given type for the user.
func (m *JWTManager) Generate(user *models.User, typ TokenType) (string, error) {
	key, duration := m.accessKey, m.accessDuration
	if typ == RefreshToken {
		key, duration = m.refreshKey, m.refreshDuration
	}

	now := time.Now()
	claims := &Claims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// Validate parses and validates an access token, returning the claims if valid.
func (m *JWTManager) Validate(tokenString string) (*Claims, error) {
	return m.parse(tokenString, m.accessKey, AccessToken)
}

// ValidateRefresh parses and validates a refresh token.
func (m *JWTManager) ValidateRefresh(tokenString string) (*Claims, error) {
	return m.parse(tokenString, m.refreshKey, RefreshToken)
}

func (m *JWTManager) parse(tokenString string, key []byte, typ TokenType) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			// Verify the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return key, nil
		},
		opts...,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != typ {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
