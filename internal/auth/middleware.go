package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yugmi/sense-api/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserLoader loads a user together with its Organization and Role
type UserLoader interface {
	GetWithRelations(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Middleware handles authentication and authorization for HTTP requests
type Middleware struct {
	tokens *TokenService
	users  UserLoader
	logger *zap.Logger
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(tokens *TokenService, users UserLoader, logger *zap.Logger) *Middleware {
	return &Middleware{
		tokens: tokens,
		users:  users,
		logger: logger,
	}
}

// Authenticate verifies the bearer token, loads the caller and attaches a UserContext
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Access token required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			writeError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		userID, err := m.tokens.ParseAccess(parts[1])
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			if errors.Is(err, ErrExpiredToken) {
				writeError(w, http.StatusUnauthorized, "Token has expired")
				return
			}
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		user, err := m.users.GetWithRelations(r.Context(), userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			m.logger.Error("failed to load authenticated user", zap.String("user_id", userID.String()), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Authentication failed")
			return
		}
		if user == nil || !user.State.IsActive() {
			writeError(w, http.StatusUnauthorized, "Invalid or inactive credential")
			return
		}

		m.logger.Debug("request authenticated",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("user_id", user.ID.String()),
			zap.String("user_type", string(user.UserType)),
			zap.Duration("auth_duration", time.Since(start)),
		)

		ctx := WithUserContext(r.Context(), NewUserContext(user))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission middleware ensures the caller holds a capability
func (m *Middleware) RequirePermission(c domain.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userCtx, ok := FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			if !userCtx.Can(c) {
				m.logger.Info("permission denied",
					zap.String("user_id", userCtx.UserID().String()),
					zap.String("capability", string(c)),
					zap.String("path", r.URL.Path),
				)
				writeError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireOrgAdmin middleware ensures the caller administers its organization
func (m *Middleware) RequireOrgAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userCtx, ok := FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		if !userCtx.IsOrgAdmin() {
			writeError(w, http.StatusForbidden, "Organization admin access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.APIResponse{Success: false, Message: message})
}
