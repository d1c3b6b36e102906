package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"fieldguard/internal/guard"
)

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func tooMany(w http.ResponseWriter, retryAfterSeconds int) {
	if retryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	http.Error(w, "too many requests", http.StatusTooManyRequests)
}

// bearerToken extracts the credential; an absent header yields "" and the
// pipeline's identity stage rejects it.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// writeGuardError maps pipeline error categories to HTTP statuses. The
// response body is the category's generic message only.
func writeGuardError(w http.ResponseWriter, err error) {
	var ge *guard.Error
	if errors.As(err, &ge) {
		var status int
		switch ge.Code {
		case guard.CodeUnauthenticated:
			status = http.StatusUnauthorized
		case guard.CodeInvalidArgument:
			status = http.StatusBadRequest
		case guard.CodePermissionDenied:
			status = http.StatusForbidden
		case guard.CodeFailedPrecondition:
			status = http.StatusServiceUnavailable
		default:
			status = http.StatusInternalServerError
		}
		http.Error(w, ge.Error(), status)
		return
	}
	if errors.Is(err, errNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if errors.Is(err, errBadRecord) {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	// Handler-level failures stay generic too.
	http.Error(w, "internal error", http.StatusInternalServerError)
}
