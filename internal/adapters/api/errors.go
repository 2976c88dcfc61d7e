package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kamal-hamza/lima-cli/internal/core/domain"
)

// GenericFailure is shown when an error carries no usable message
const GenericFailure = "Request failed"

// APIError is a non-2xx response. Body holds the decoded JSON document when
// the server sent JSON, the raw text otherwise, or nil when it could not be read.
type APIError struct {
	Status int
	Body   any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API Error %d", e.Status)
}

// Message extracts the most specific human message from the body:
// error.message, then message, then a status fallback
func (e *APIError) Message() string {
	if body, ok := e.Body.(map[string]any); ok {
		if inner, ok := body["error"].(map[string]any); ok {
			if msg, ok := inner["message"].(string); ok && msg != "" {
				return msg
			}
		}
		if msg, ok := body["message"].(string); ok && msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("%s (%d)", GenericFailure, e.Status)
}

// Code returns the machine-readable error.code, if any
func (e *APIError) Code() string {
	if body, ok := e.Body.(map[string]any); ok {
		if inner, ok := body["error"].(map[string]any); ok {
			if code, ok := inner["code"].(string); ok {
				return code
			}
		}
	}
	return ""
}

// RequestID returns the server's error.request_id, if any
func (e *APIError) RequestID() string {
	if body, ok := e.Body.(map[string]any); ok {
		if inner, ok := body["error"].(map[string]any); ok {
			if id, ok := inner["request_id"].(string); ok {
				return id
			}
		}
	}
	return ""
}

// TransportError is a request that never produced a response
type TransportError struct {
	Method string
	Route  string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Route, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ErrorMessage turns any error into the text shown to the user
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}

	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		return valErr.Message
	}

	return GenericFailure
}

// ErrorCode returns the server error code carried by err, if any
func ErrorCode(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code()
	}
	return ""
}

// IsNotFound reports whether err is a 404 from the server
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsBadRequest reports whether err is a 400 from the server
func IsBadRequest(err error) bool {
	return hasStatus(err, http.StatusBadRequest)
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// parseBody decodes an error body according to its content type
func parseBody(contentType string, data []byte) any {
	if isJSON(contentType) {
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil
		}
		return v
	}
	if data == nil {
		return nil
	}
	return string(data)
}

func isJSON(contentType string) bool {
	return strings.Contains(contentType, "application/json")
}
