package rosterapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"usaffe/cmd/internal/activity"
	"usaffe/cmd/internal/verify"
	"usaffe/cmd/roster"
)

func (h *Handler) handleUserProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	member, err := h.roster.Resolve(ctx, r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, "api.users.resolve.fail", err)
		return
	}

	profile, err := h.roster.GetProfile(ctx, member.ID)
	if err != nil {
		h.writeStoreError(w, "api.users.profile.fail", err)
		return
	}

	medals := make([]medalResponse, 0, len(profile.Medals))
	for _, m := range profile.Medals {
		medals = append(medals, medalResponse{
			ID:        m.ID,
			MedalID:   m.MedalID,
			AwardedBy: m.AwardedBy,
			Reason:    m.Reason,
			CreatedAt: m.CreatedAt,
		})
	}
	trainings := make([]trainingResponse, 0, len(profile.Trainings))
	for _, t := range profile.Trainings {
		trainings = append(trainings, toTrainingResponse(t))
	}

	writeJSON(w, http.StatusOK, profileResponse{
		Member:    toMemberResponse(profile.Member),
		Medals:    medals,
		Trainings: trainings,
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	member, err := h.verifier.Authenticate(r.Context(), time.Now().UTC(), bearerToken(r))
	if err != nil {
		if errors.Is(err, verify.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "member session required")
			return
		}
		h.writeStoreError(w, "api.me.fail", err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberResponse(member))
}

func (h *Handler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if req.PointsDelta == nil && req.ValorDelta == nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "at least one of pointsDelta/valorDelta is required")
		return
	}

	var deltas roster.CounterDeltas
	if req.PointsDelta != nil {
		deltas.Points = *req.PointsDelta
	}
	if req.ValorDelta != nil {
		deltas.Valor = *req.ValorDelta
	}

	ctx := r.Context()
	member, err := h.roster.Resolve(ctx, r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, "api.adjust.resolve.fail", err)
		return
	}

	updated, err := h.roster.AdjustCounters(ctx, member.ID, deltas)
	if err != nil {
		h.writeStoreError(w, "api.adjust.fail", err)
		return
	}

	h.publish(activity.TypeCountersChanged, map[string]any{
		"member_id": updated.ID,
		"points":    updated.Points,
		"valor":     updated.Valor,
	})
	writeJSON(w, http.StatusOK, toMemberResponse(updated))
}

func (h *Handler) handlePromote(w http.ResponseWriter, r *http.Request) {
	var req promoteRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if strings.TrimSpace(req.NewRank) == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "newRank is required")
		return
	}

	ctx := r.Context()
	member, err := h.roster.Resolve(ctx, r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, "api.promote.resolve.fail", err)
		return
	}

	updated, err := h.roster.SetRank(ctx, member.ID, req.NewRank)
	if err != nil {
		h.writeStoreError(w, "api.promote.fail", err)
		return
	}

	h.publish(activity.TypeMemberPromoted, map[string]any{
		"member_id": updated.ID,
		"rank":      updated.Rank,
	})
	writeJSON(w, http.StatusOK, toMemberResponse(updated))
}

func (h *Handler) handleTrainingCreate(w http.ResponseWriter, r *http.Request) {
	var req trainingCreateRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Type) == "" || strings.TrimSpace(req.Date) == "" || strings.TrimSpace(req.HostID) == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "type, date, and host_id are required")
		return
	}
	scheduledAt, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "date must be RFC 3339")
		return
	}

	ctx := r.Context()
	host, err := h.roster.Resolve(ctx, req.HostID)
	if err != nil {
		h.writeStoreError(w, "api.trainings.resolve_host.fail", err)
		return
	}

	tr, err := h.roster.CreateTraining(ctx, req.Type, scheduledAt, host.ID)
	if err != nil {
		h.writeStoreError(w, "api.trainings.create.fail", err)
		return
	}

	h.publish(activity.TypeTrainingLogged, map[string]any{
		"training_id": tr.ID,
		"type":        tr.Type,
		"host_id":     tr.HostID,
	})
	writeJSON(w, http.StatusOK, trainingCreateResponse{ID: tr.ID})
}

func (h *Handler) handleAttendees(w http.ResponseWriter, r *http.Request) {
	var req attendeesRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if len(req.Attendees) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_input", "attendees must not be empty")
		return
	}

	// Entries may name members by internal or external id; resolve each
	// one the same way the other member endpoints do. Unresolved entries
	// are reported back, never aborting the batch.
	ctx := r.Context()
	memberIDs := make([]string, 0, len(req.Attendees))
	failed := []string{}
	for _, entry := range req.Attendees {
		member, err := h.roster.Resolve(ctx, entry)
		if err != nil {
			if roster.IsNotFound(err) {
				failed = append(failed, entry)
				continue
			}
			h.writeStoreError(w, "api.attendees.resolve.fail", err)
			return
		}
		memberIDs = append(memberIDs, member.ID)
	}

	recorded := 0
	if len(memberIDs) > 0 {
		report, err := h.roster.AddAttendees(ctx, r.PathValue("id"), memberIDs)
		if err != nil {
			h.writeStoreError(w, "api.attendees.fail", err)
			return
		}
		recorded = report.Recorded
		failed = append(failed, report.Failed...)
	}

	writeJSON(w, http.StatusOK, attendeesResponse{Recorded: recorded, Failed: failed})
}

func (h *Handler) handleMedalAward(w http.ResponseWriter, r *http.Request) {
	var req medalAwardRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if strings.TrimSpace(req.MedalID) == "" || strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "medal_id and user_id are required")
		return
	}

	ctx := r.Context()
	member, err := h.roster.Resolve(ctx, req.UserID)
	if err != nil {
		h.writeStoreError(w, "api.medals.resolve.fail", err)
		return
	}

	var awardedBy *string
	if strings.TrimSpace(req.AwardedBy) != "" {
		awarder, err := h.roster.Resolve(ctx, req.AwardedBy)
		if err != nil {
			h.writeStoreError(w, "api.medals.resolve_awarder.fail", err)
			return
		}
		awardedBy = &awarder.ID
	}

	award, err := h.roster.AwardMedal(ctx, req.MedalID, member.ID, awardedBy, req.Reason)
	if err != nil {
		h.writeStoreError(w, "api.medals.award.fail", err)
		return
	}

	h.publish(activity.TypeMedalAwarded, map[string]any{
		"award_id":  award.ID,
		"medal_id":  award.MedalID,
		"member_id": award.MemberID,
	})
	writeJSON(w, http.StatusOK, medalAwardResponse{ID: award.ID})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.roster.Stats(r.Context(), time.Now().UTC())
	if err != nil {
		h.writeStoreError(w, "api.stats.fail", err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		ActivePersonnel: stats.ActivePersonnel,
		TrainingsToday:  stats.TrainingsToday,
		MedalsAwarded:   stats.MedalsAwarded,
	})
}
