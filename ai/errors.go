package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnavailable is returned when the backend rejects our credentials. It is
// never retried.
var ErrUnavailable = errors.New("llm service unavailable")

type errorClass int

const (
	classPermanent errorClass = iota
	classTransient
	classCredential
)

func (c errorClass) String() string {
	switch c {
	case classTransient:
		return "transient"
	case classCredential:
		return "credential"
	default:
		return "permanent"
	}
}

// APIError is a non-200 answer from the backend.
type APIError struct {
	StatusCode int
	Status     string // structured provider status, e.g. RESOURCE_EXHAUSTED
	Message    string
	class      errorClass
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("gemini API error (status %d, %s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini API error (status %d): %s", e.StatusCode, e.Message)
}

// Transient reports whether retrying the same request may succeed.
func (e *APIError) Transient() bool { return e.class == classTransient }

func (e *APIError) Unwrap() error {
	if e.class == classCredential {
		return ErrUnavailable
	}
	return nil
}

var credentialMarkers = []string{
	"api key not valid",
	"api_key_invalid",
	"api key expired",
	"invalid api key",
	"credentials",
	"expired",
}

var rateMarkers = []string{
	"resource_exhausted",
	"rate limit",
	"ratelimit",
	"too many requests",
	"quota",
}

// newAPIError classifies a failed response. Structured fields (HTTP status and
// error.status) decide first; the message text is only a fallback.
func newAPIError(statusCode int, body []byte) *APIError {
	e := &APIError{StatusCode: statusCode, Message: strings.TrimSpace(string(body))}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && (env.Error.Message != "" || env.Error.Status != "") {
		e.Status = env.Error.Status
		e.Message = env.Error.Message
	}
	e.class = classify(statusCode, e.Status, e.Message)
	return e
}

func classify(statusCode int, status, message string) errorClass {
	lowerMsg := strings.ToLower(message)

	switch {
	case statusCode == http.StatusTooManyRequests, status == "RESOURCE_EXHAUSTED":
		return classTransient
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden,
		status == "UNAUTHENTICATED", status == "PERMISSION_DENIED":
		return classCredential
	}

	if statusCode == http.StatusBadRequest && containsAny(lowerMsg, credentialMarkers) {
		return classCredential
	}
	if containsAny(lowerMsg, rateMarkers) {
		return classTransient
	}
	if statusCode >= 500 || status == "UNAVAILABLE" || status == "INTERNAL" {
		return classTransient
	}
	return classPermanent
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
