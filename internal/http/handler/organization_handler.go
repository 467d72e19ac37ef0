package handler

import (
	"errors"
	"net/http"

	"github.com/yugmi/sense-api/internal/domain"
	"github.com/yugmi/sense-api/internal/service"
	"go.uber.org/zap"
)

// OrganizationHandler serves role and member administration for organization admins
type OrganizationHandler struct {
	roleService *service.RoleService
	userService *service.UserService
	logger      *zap.Logger
}

func NewOrganizationHandler(roleService *service.RoleService, userService *service.UserService, logger *zap.Logger) *OrganizationHandler {
	return &OrganizationHandler{
		roleService: roleService,
		userService: userService,
		logger:      logger,
	}
}

// ListRoles godoc
// @Summary List roles
// @Description Roles of the caller's organization. Organization admins only.
// @Tags Organization
// @Produce json
// @Success 200 {object} domain.APIResponse{data=[]domain.RoleDTO}
// @Failure 403 {object} domain.APIResponse
// @Security BearerAuth
// @Router /roles [get]
func (h *OrganizationHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roleService.List(r.Context())
	if err != nil {
		h.handleOrganizationError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Roles retrieved", roles)
}

// CreateRole godoc
// @Summary Create role
// @Tags Organization
// @Accept json
// @Produce json
// @Param request body domain.CreateRoleRequest true "Role data"
// @Success 201 {object} domain.APIResponse{data=domain.RoleDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Security BearerAuth
// @Router /roles [post]
func (h *OrganizationHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateRoleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	role, err := h.roleService.Create(r.Context(), &req)
	if err != nil {
		h.handleOrganizationError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusCreated, "Role created successfully", role)
}

// UpdateRole godoc
// @Summary Update role
// @Tags Organization
// @Accept json
// @Produce json
// @Param id path string true "Role ID" format(uuid)
// @Param request body domain.UpdateRoleRequest true "Role changes"
// @Success 200 {object} domain.APIResponse{data=domain.RoleDTO}
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /roles/{id} [put]
func (h *OrganizationHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid role ID")
		return
	}

	var req domain.UpdateRoleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	role, err := h.roleService.Update(r.Context(), id, &req)
	if err != nil {
		h.handleOrganizationError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Role updated successfully", role)
}

// ListUsers godoc
// @Summary List members
// @Tags Organization
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Success 200 {object} domain.APIResponse{data=domain.PaginatedResponse}
// @Security BearerAuth
// @Router /users [get]
func (h *OrganizationHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	users, err := h.userService.List(r.Context(), page, pageSize)
	if err != nil {
		h.handleOrganizationError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Users retrieved", users)
}

// CreateUser godoc
// @Summary Create member
// @Description Create a user in the caller's organization with the given role
// @Tags Organization
// @Accept json
// @Produce json
// @Param request body domain.CreateMemberRequest true "Member data"
// @Success 201 {object} domain.APIResponse{data=domain.UserDTO}
// @Failure 409 {object} domain.APIResponse
// @Security BearerAuth
// @Router /users [post]
func (h *OrganizationHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateMemberRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.userService.Create(r.Context(), &req)
	if err != nil {
		h.handleOrganizationError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusCreated, "User created successfully", user)
}

func (h *OrganizationHandler) handleOrganizationError(w http.ResponseWriter, r *http.Request, err error) {
	if handleCommonError(w, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrRoleNotFound):
		respondWithError(w, http.StatusNotFound, "Role not found")
	case errors.Is(err, service.ErrEmailTaken):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUserQuotaExceeded):
		respondWithError(w, http.StatusConflict, err.Error())
	default:
		logFailure(h.logger, r, "organization request failed", err)
		respondInternalError(w, "Organization request failed", err)
	}
}
