package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/yugmi/sense-api/internal/domain"
	"github.com/yugmi/sense-api/internal/http/middleware"
	"github.com/yugmi/sense-api/internal/logger"
	"github.com/yugmi/sense-api/internal/repository"
	"github.com/yugmi/sense-api/internal/service"
	"go.uber.org/zap"
)

var validate = validator.New()

const maxJSONBody = 1 << 20

var errInvalidID = errors.New("invalid id")

func respondJSON(w http.ResponseWriter, status int, body domain.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// respondSuccess wraps data in a successful envelope
func respondSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	respondJSON(w, status, domain.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// respondWithError sends a failed envelope without a diagnostic
func respondWithError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, domain.APIResponse{
		Success: false,
		Message: message,
	})
}

// respondInternalError sends a 500 envelope carrying the raw error as diagnostic
func respondInternalError(w http.ResponseWriter, message string, err error) {
	respondJSON(w, http.StatusInternalServerError, domain.APIResponse{
		Success: false,
		Message: message,
		Error:   err.Error(),
	})
}

// respondValidationError sends a 400 envelope listing the failed fields
func respondValidationError(w http.ResponseWriter, err error) {
	var fieldErrors []domain.ValidationFieldError
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fieldErrors = append(fieldErrors, domain.ValidationFieldError{
				Field:   toJSONFieldName(fe.Field()),
				Message: formatValidationError(fe),
			})
		}
	}

	respondJSON(w, http.StatusBadRequest, domain.APIResponse{
		Success: false,
		Message: "Validation failed",
		Errors:  fieldErrors,
	})
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", toJSONFieldName(fe.Field()))
	case "email":
		return "Must be a valid email address"
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("Must be greater than %s", fe.Param())
	case "lte":
		return fmt.Sprintf("Must be less than or equal to %s", fe.Param())
	case "lt":
		return fmt.Sprintf("Must be less than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	default:
		return domain.GetValidationMessage(fe.Tag())
	}
}

// toJSONFieldName converts a Go struct field name to its JSON equivalent (camelCase)
func toJSONFieldName(field string) string {
	if len(field) == 0 {
		return field
	}
	switch field {
	case "ID":
		return "id"
	case "WBSID":
		return "wbsId"
	case "MediaURL":
		return "mediaUrl"
	}
	if strings.HasSuffix(field, "ID") {
		field = field[:len(field)-2] + "Id"
	}
	if strings.HasSuffix(field, "IDs") {
		field = field[:len(field)-3] + "Ids"
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// decodeAndValidate reads a JSON body into dst and validates it. It writes the
// failure response itself and reports whether the handler may continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, domain.APIResponse{
			Success: false,
			Message: "Invalid request body: malformed JSON",
			Error:   err.Error(),
		})
		return false
	}
	if err := validate.Struct(dst); err != nil {
		respondValidationError(w, err)
		return false
	}
	return true
}

// decodeOptional is decodeAndValidate for endpoints whose body may be empty
func decodeOptional(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		respondJSON(w, http.StatusBadRequest, domain.APIResponse{
			Success: false,
			Message: "Invalid request body: malformed JSON",
			Error:   err.Error(),
		})
		return false
	}
	if err := validate.Struct(dst); err != nil {
		respondValidationError(w, err)
		return false
	}
	return true
}

// urlID parses the {id} route parameter
func urlID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = repository.DefaultPageSize
	}
	if pageSize > repository.MaxPageSize {
		pageSize = repository.MaxPageSize
	}
	return page, pageSize
}

// queryUUID parses an optional UUID query parameter; a malformed value is an error
func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", name)
	}
	return &id, nil
}

// handleCommonError maps the errors every service can return. It reports false
// when err is not one of them.
func handleCommonError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, service.ErrPermissionDenied):
		respondWithError(w, http.StatusForbidden, "Insufficient permissions")
	case errors.Is(err, service.ErrInvalidDate), errors.Is(err, service.ErrInvalidDateRange):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		return false
	}
	return true
}

// logFailure logs an unexpected error with request context
func logFailure(log *zap.Logger, r *http.Request, msg string, err error) {
	logger.WithRequest(log, r.Method, r.URL.Path, r.Header.Get(middleware.RequestIDHeader)).
		Error(msg, zap.Error(err))
}
