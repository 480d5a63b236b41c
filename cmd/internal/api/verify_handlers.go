package rosterapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"usaffe/cmd/internal/activity"
	"usaffe/cmd/internal/roblox"
	"usaffe/cmd/internal/verify"
)

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "username is required")
		return
	}

	ctx := r.Context()
	userID, err := h.platform.ResolveUsername(ctx, username)
	if err != nil {
		h.writeUpstreamError(w, "api.roblox.lookup.fail", err)
		return
	}

	profile, err := h.platform.Profile(ctx, userID)
	if err != nil {
		h.writeUpstreamError(w, "api.roblox.lookup.profile.fail", err)
		return
	}

	writeJSON(w, http.StatusOK, lookupResponse{
		ExternalID:  profile.UserID,
		Username:    profile.Username,
		DisplayName: profile.DisplayName,
	})
}

func (h *Handler) handleStartVerification(w http.ResponseWriter, r *http.Request) {
	var req startVerificationRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	issued, err := h.verifier.Issue(r.Context(), time.Now().UTC(), req.ExternalID)
	if err != nil {
		if errors.Is(err, verify.ErrUnknownUser) {
			writeError(w, http.StatusBadRequest, "invalid_input", "external_id is required")
			return
		}
		h.log.Error("api.roblox.start.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "storage_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, startVerificationResponse{Code: issued.Code, ExpiresAt: issued.ExpiresAt})
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	verified, err := h.verifier.Check(r.Context(), time.Now().UTC(), req.ExternalID)
	if err != nil {
		switch {
		case errors.Is(err, verify.ErrNoChallenge):
			h.metrics.ObserveVerification("no_challenge")
			writeError(w, http.StatusBadRequest, "no_challenge", "no verification in progress")
		case errors.Is(err, verify.ErrChallengeExpired):
			h.metrics.ObserveVerification("expired")
			writeError(w, http.StatusBadRequest, "code_expired", "verification code expired")
		case errors.Is(err, verify.ErrCodeMismatch):
			h.metrics.ObserveVerification("mismatch")
			writeError(w, http.StatusBadRequest, "code_mismatch", "code not found in profile")
		case errors.Is(err, verify.ErrUnknownUser):
			h.metrics.ObserveVerification("unknown_user")
			writeError(w, http.StatusBadRequest, "unknown_user", "roblox user not found")
		case errors.Is(err, verify.ErrUpstream), errors.Is(err, roblox.ErrUnavailable):
			h.metrics.ObserveVerification("upstream")
			writeError(w, http.StatusBadGateway, "upstream_unavailable", "profile service unavailable")
		default:
			h.metrics.ObserveVerification("error")
			h.log.Error("api.roblox.check.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "storage_error", "internal error")
		}
		return
	}

	h.metrics.ObserveVerification("ok")
	h.publish(activity.TypeMemberVerified, map[string]any{
		"member_id": verified.Member.ID,
		"username":  verified.Member.Username,
	})
	writeJSON(w, http.StatusOK, checkResponse{
		Token:     verified.SessionToken,
		ExpiresAt: verified.SessionExpiresAt,
		Member:    toMemberResponse(verified.Member),
	})
}

// handleAvatar never hard-fails: any resolution or upstream problem
// degrades to a null image URL.
func (h *Handler) handleAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
	if err != nil || userID <= 0 {
		writeJSON(w, http.StatusOK, avatarResponse{ImageURL: nil})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.AvatarTimeout)
	defer cancel()

	u, err := h.platform.AvatarURL(ctx, userID)
	if err != nil || u == "" {
		if err != nil {
			h.log.Info("api.avatar.degrade", "user_id", userID, "err", err)
		}
		writeJSON(w, http.StatusOK, avatarResponse{ImageURL: nil})
		return
	}

	writeJSON(w, http.StatusOK, avatarResponse{ImageURL: &u})
}

func (h *Handler) writeUpstreamError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, roblox.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "not_found", "roblox user not found")
	case errors.Is(err, roblox.ErrUnavailable):
		writeError(w, http.StatusBadGateway, "upstream_unavailable", "profile service unavailable")
	default:
		h.log.Error(op, "err", err)
		writeError(w, http.StatusInternalServerError, "upstream_error", "internal error")
	}
}
