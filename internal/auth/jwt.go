package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/yugmi/sense-api/internal/config"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// TokenType distinguishes access tokens from refresh tokens
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Claims is the payload of both token kinds
type Claims struct {
	UserID uuid.UUID `json:"userId"`
	Type   TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair is issued on register, login and refresh
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// TokenService issues and verifies HS256 access and refresh tokens, each with its own secret
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenService creates a token service from auth configuration
func NewTokenService(cfg *config.AuthConfig) *TokenService {
	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTLDuration(),
		refreshTTL:    cfg.RefreshTTLDuration(),
		now:           time.Now,
	}
}

// WithClock overrides the time source, used by tests
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// IssuePair signs a fresh access and refresh token for the user
func (s *TokenService) IssuePair(userID uuid.UUID) (*TokenPair, error) {
	access, err := s.sign(userID, TokenAccess, s.accessSecret, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := s.sign(userID, TokenRefresh, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: s.accessTTL}, nil
}

// ParseAccess validates an access token and returns its user id
func (s *TokenService) ParseAccess(token string) (uuid.UUID, error) {
	return s.parse(token, TokenAccess, s.accessSecret)
}

// ParseRefresh validates a refresh token and returns its user id
func (s *TokenService) ParseRefresh(token string) (uuid.UUID, error) {
	return s.parse(token, TokenRefresh, s.refreshSecret)
}

func (s *TokenService) sign(userID uuid.UUID, typ TokenType, secret []byte, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: userID,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (s *TokenService) parse(tokenString string, typ TokenType, secret []byte) (uuid.UUID, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrExpiredToken
		}
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}
	if claims.Type != typ {
		return uuid.Nil, fmt.Errorf("%w: expected %s token", ErrInvalidToken, typ)
	}
	if claims.UserID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	return claims.UserID, nil
}
