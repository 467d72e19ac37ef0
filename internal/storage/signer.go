package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSignature is returned when a download token does not grant access to a key
var ErrInvalidSignature = errors.New("invalid or expired download token")

type objectClaims struct {
	Key string `json:"key"`
	jwt.RegisteredClaims
}

// URLSigner issues and verifies HS256 download tokens bound to a single object key
type URLSigner struct {
	secret []byte
	now    func() time.Time
}

func NewURLSigner(secret string) *URLSigner {
	return &URLSigner{secret: []byte(secret), now: time.Now}
}

// WithClock overrides the clock used for issuing and verifying tokens
func (s *URLSigner) WithClock(now func() time.Time) *URLSigner {
	s.now = now
	return s
}

func (s *URLSigner) Sign(key string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := objectClaims{
		Key: key,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign download token: %w", err)
	}
	return signed, nil
}

// Verify checks that token is valid, unexpired and issued for key
func (s *URLSigner) Verify(token, key string) error {
	var claims objectClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || claims.Key != key {
		return ErrInvalidSignature
	}
	return nil
}
