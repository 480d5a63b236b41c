package rosterapi

import (
	"net/http"
	"strings"

	"usaffe/cmd/roster"
)

func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return ""
	}
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

// requireAdmin gates privileged endpoints. Returns false after writing
// the 401.
func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if err := h.AuthorizeAdminRequest(r); err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "admin session required")
		return false
	}
	return true
}

// writeStoreError maps roster storage errors onto the HTTP envelope.
func (h *Handler) writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case roster.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
	case roster.IsInvalidInput(err):
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid request")
	case roster.IsConflict(err):
		writeError(w, http.StatusConflict, "conflict", "conflicting resource")
	default:
		h.log.Error(op, "err", err)
		writeError(w, http.StatusInternalServerError, "storage_error", "internal error")
	}
}
