package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
)

// messages shown when the server gave us nothing usable.
const (
	genericErrorMessage = "An unexpected error occurred."
	unknownServerError  = "An unknown error occurred from the server."
)

// Error is the normalized failure every call returns. StatusCode is zero
// when no response was received at all.
type Error struct {
	StatusCode int
	Message    string
	cause      error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

func hasStatus(err error, status int) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == status
}

func transportError(err error) *Error {
	return &Error{StatusCode: 0, Message: genericErrorMessage, cause: err}
}

// normalizeBody flattens whatever error shape the server produced into a
// single display string. Handled shapes, in order: a bare string body, a
// {"detail": ...} message, a {"messages": [{"message": ...}]} list, and a
// field-validation map of {"field": ["msg", ...]} with fields joined by "; "
// in sorted-field order so the output is deterministic.
func normalizeBody(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return unknownServerError
	}

	var asString string
	if err := json.Unmarshal(body, &asString); err == nil {
		if asString == "" {
			return unknownServerError
		}
		return asString
	}

	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(body, &asObject); err != nil {
		// Not JSON at all; surface the raw body.
		return trimmed
	}
	if len(asObject) == 0 {
		return unknownServerError
	}

	if raw, ok := asObject["detail"]; ok {
		var detail string
		if err := json.Unmarshal(raw, &detail); err == nil && detail != "" {
			return detail
		}
	}

	if raw, ok := asObject["messages"]; ok {
		var list []struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
			parts := make([]string, 0, len(list))
			for _, m := range list {
				if m.Message != "" {
					parts = append(parts, m.Message)
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, "; ")
			}
		}
	}

	fields := make([]string, 0, len(asObject))
	for field := range asObject {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var parts []string
	for _, field := range fields {
		parts = append(parts, flattenValue(asObject[field])...)
	}
	if len(parts) == 0 {
		return unknownServerError
	}
	return strings.Join(parts, "; ")
}

func flattenValue(raw json.RawMessage) []string {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return nil
		}
		return []string{single}
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		var out []string
		for _, s := range list {
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
