package handler

import (
	"errors"
	"net/http"

	"github.com/yugmi/sense-api/internal/domain"
	"github.com/yugmi/sense-api/internal/service"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *service.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Register godoc
// @Summary Register a user
// @Description Register an individual user, or an organization together with its admin user
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.RegisterRequest true "Registration data"
// @Success 201 {object} domain.APIResponse{data=domain.AuthResponse}
// @Failure 400 {object} domain.APIResponse
// @Failure 409 {object} domain.APIResponse
// @Failure 500 {object} domain.APIResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		h.handleAuthError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusCreated, "User registered successfully", resp)
}

// Login godoc
// @Summary Log in
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.LoginRequest true "Credentials"
// @Success 200 {object} domain.APIResponse{data=domain.AuthResponse}
// @Failure 400 {object} domain.APIResponse
// @Failure 401 {object} domain.APIResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		h.handleAuthError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Login successful", resp)
}

// Refresh godoc
// @Summary Refresh tokens
// @Description Exchange a refresh token for a new token pair
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.RefreshRequest true "Refresh token"
// @Success 200 {object} domain.APIResponse{data=domain.AuthResponse}
// @Failure 401 {object} domain.APIResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.handleAuthError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Token refreshed", resp)
}

// Profile godoc
// @Summary Get current user
// @Description Returns the authenticated user with organization and role
// @Tags Auth
// @Produce json
// @Success 200 {object} domain.APIResponse{data=domain.UserDTO}
// @Failure 401 {object} domain.APIResponse
// @Security BearerAuth
// @Router /auth/profile [get]
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.Profile(r.Context())
	if err != nil {
		h.handleAuthError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Profile retrieved", user)
}

func (h *AuthHandler) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	if handleCommonError(w, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrEmailTaken), errors.Is(err, service.ErrOrganizationEmailTaken):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrOrganizationDataRequired):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrAccountDeactivated):
		respondWithError(w, http.StatusUnauthorized, "Account is deactivated")
	case errors.Is(err, service.ErrInvalidRefreshToken):
		respondWithError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		respondWithError(w, http.StatusNotFound, "User not found")
	default:
		logFailure(h.logger, r, "auth request failed", err)
		respondInternalError(w, "Authentication request failed", err)
	}
}
