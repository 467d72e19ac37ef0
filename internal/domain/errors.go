package domain

// APIResponse is the envelope every endpoint responds with
type APIResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    interface{}            `json:"data,omitempty"`
	Errors  []ValidationFieldError `json:"errors,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// ValidationFieldError maps a field name to its validation error message
type ValidationFieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationMessages provides human-readable validation error messages
// These map validator tags to user-friendly messages
var ValidationMessages = map[string]string{
	"required":    "This field is required",
	"required_if": "This field is required",
	"email":       "Must be a valid email address",
	"max":         "Exceeds maximum length",
	"min":         "Below minimum length",
	"gte":         "Must be greater than or equal to minimum value",
	"gt":          "Must be greater than minimum value",
	"lte":         "Must be less than or equal to maximum value",
	"lt":          "Must be less than maximum value",
	"uuid":        "Must be a valid UUID",
	"url":         "Must be a valid URL",
	"oneof":       "Must be one of the allowed values",
	"numeric":     "Must be a numeric value",
	"hexcolor":    "Must be a hex color",
}

// GetValidationMessage returns a human-readable message for a validation tag
func GetValidationMessage(tag string) string {
	if msg, ok := ValidationMessages[tag]; ok {
		return msg
	}
	return "Validation failed: " + tag
}
