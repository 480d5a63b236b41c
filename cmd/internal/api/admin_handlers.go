package rosterapi

import (
	"errors"
	"net/http"
	"time"

	"usaffe/cmd/internal/adminauth"
)

func (h *Handler) handleKeyCreate(w http.ResponseWriter, r *http.Request) {
	// Open minting is a bootstrap/dev knob; otherwise an existing admin
	// session is required to mint further keys.
	if !h.admin.OpenKeyMint() && !h.requireAdmin(w, r) {
		return
	}

	minted, err := h.admin.MintKey(r.Context(), time.Now().UTC())
	if err != nil {
		h.log.Error("api.admin_keys.create.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "storage_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, keyCreateResponse{Key: minted.Key, ExpiresAt: minted.ExpiresAt})
}

func (h *Handler) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	ex, err := h.admin.Exchange(r.Context(), time.Now().UTC(), req.Key)
	if err != nil {
		switch {
		case errors.Is(err, adminauth.ErrInvalidKey):
			h.metrics.ObserveAdminExchange("invalid_key")
			writeError(w, http.StatusUnauthorized, "invalid_key", "unknown admin key")
		case errors.Is(err, adminauth.ErrKeyExpired):
			h.metrics.ObserveAdminExchange("key_expired")
			writeError(w, http.StatusUnauthorized, "key_expired", "admin key expired")
		case errors.Is(err, adminauth.ErrKeyUsed):
			h.metrics.ObserveAdminExchange("key_used")
			writeError(w, http.StatusUnauthorized, "key_used", "admin key already used")
		default:
			h.metrics.ObserveAdminExchange("error")
			h.log.Error("api.admin.login.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "storage_error", "internal error")
		}
		return
	}

	h.metrics.ObserveAdminExchange("ok")
	writeJSON(w, http.StatusOK, adminLoginResponse{Token: ex.SessionToken, ExpiresAt: ex.ExpiresAt})
}

func (h *Handler) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	members, err := h.roster.ListMembers(r.Context(), h.cfg.ListLimit)
	if err != nil {
		h.writeStoreError(w, "api.admin.users.fail", err)
		return
	}

	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, toMemberResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleAdminKeys(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	keys, err := h.admin.ListKeys(r.Context(), h.cfg.ListLimit)
	if err != nil {
		h.log.Error("api.admin.keys.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "storage_error", "internal error")
		return
	}

	out := make([]keyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, keyResponse{
			ID:        k.ID,
			CreatedAt: k.CreatedAt,
			ExpiresAt: k.ExpiresAt,
			UsedAt:    k.UsedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
