package service

import (
	"context"
	"errors"

	"github.com/yugmi/sense-api/internal/auth"
	"github.com/yugmi/sense-api/internal/domain"
)

// Common service errors
var (
	// ErrPermissionDenied is returned when a user doesn't have permission for an action
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnauthorized is returned when no authenticated caller is present
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidDate is returned when a date is neither YYYY-MM-DD nor RFC3339
	ErrInvalidDate = errors.New("invalid date: expected YYYY-MM-DD or RFC3339")

	// ErrInvalidDateRange is returned when an end date precedes the start date
	ErrInvalidDateRange = errors.New("end date must not be before start date")
)

// Identity errors
var (
	// ErrEmailTaken is returned when registering an email that already exists
	ErrEmailTaken = errors.New("user with this email already exists")

	// ErrOrganizationEmailTaken is returned when an organization contact email is already in use
	ErrOrganizationEmailTaken = errors.New("organization with this email already exists")

	// ErrOrganizationDataRequired is returned for organization registrations without organization data
	ErrOrganizationDataRequired = errors.New("organization data is required for organization users")

	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrAccountDeactivated = errors.New("account is deactivated")

	// ErrInvalidRefreshToken covers malformed, expired and revoked refresh tokens
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")

	ErrUserNotFound = errors.New("user not found")

	// ErrRoleNotFound is returned when a role is not found in the caller's organization
	ErrRoleNotFound = errors.New("role not found")

	// ErrUserQuotaExceeded is returned when an organization has reached its member limit
	ErrUserQuotaExceeded = errors.New("organization user limit reached")
)

// Project and site errors
var (
	ErrProjectNotFound = errors.New("project not found")

	// ErrProjectHasSites is returned when deleting a project that still has active sites
	ErrProjectHasSites = errors.New("cannot delete project with active sites")

	// ErrProjectQuotaExceeded is returned when an organization has reached its project limit
	ErrProjectQuotaExceeded = errors.New("organization project limit reached")

	ErrInvalidProjectStatus = errors.New("invalid project status")

	ErrSiteNotFound = errors.New("site not found")

	// ErrSiteHasCaptures is returned when deleting a site that still has captures
	ErrSiteHasCaptures = errors.New("cannot delete site with existing captures")

	// ErrInvalidOperationType is returned for an unknown site operation type
	ErrInvalidOperationType = errors.New("invalid operation type")
)

// Capture errors
var (
	ErrCaptureNotFound = errors.New("capture not found")

	// ErrMediaRequired is returned when a capture upload carries no file
	ErrMediaRequired = errors.New("media file is required")

	// ErrSensorDataRequired is returned when a capture upload carries no sensor payload
	ErrSensorDataRequired = errors.New("sensor data is required")

	// ErrInvalidSensorData is returned when the sensor payload is not valid JSON
	ErrInvalidSensorData = errors.New("invalid sensor data format")

	ErrInvalidMediaType = errors.New("media type must be image or video")

	// ErrFileTooLarge is returned when an upload exceeds the configured size limit
	ErrFileTooLarge = errors.New("file exceeds maximum upload size")

	// ErrStorageFailed is returned when the object store rejects an upload
	ErrStorageFailed = errors.New("failed to store media")

	// ErrAnalysisInProgress is returned while another analysis of the capture is running
	ErrAnalysisInProgress = errors.New("analysis already in progress for this capture")

	// ErrAnalysisFailed is returned when the vision provider call fails
	ErrAnalysisFailed = errors.New("AI analysis failed")

	// ErrInvalidShareMethod is returned for share methods other than email or whatsapp
	ErrInvalidShareMethod = errors.New("invalid share method. Use 'email' or 'whatsapp'")

	// ErrShareFailed is returned when the messaging provider rejects a share
	ErrShareFailed = errors.New("failed to share")
)

// Report errors
var (
	ErrReportNotFound = errors.New("report not found")

	// ErrInvalidCaptureSelection is returned when report captures do not belong to the site
	ErrInvalidCaptureSelection = errors.New("captures must belong to the report site")
)

// authorize returns the caller when it holds the capability
func authorize(ctx context.Context, c domain.Capability) (*auth.UserContext, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if !userCtx.Can(c) {
		return nil, ErrPermissionDenied
	}
	return userCtx, nil
}

// authorizeOrgAdmin returns the caller when it administers its organization
func authorizeOrgAdmin(ctx context.Context) (*auth.UserContext, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if !userCtx.IsOrgAdmin() || userCtx.OrganizationID() == nil {
		return nil, ErrPermissionDenied
	}
	return userCtx, nil
}
