package rosterapi

import (
	"time"

	"usaffe/cmd/roster"
)

type memberResponse struct {
	ID           string    `json:"id"`
	RobloxUserID int64     `json:"roblox_user_id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	Rank         string    `json:"rank"`
	Points       int64     `json:"points"`
	Valor        int64     `json:"valor"`
	CreatedAt    time.Time `json:"created_at"`
}

func toMemberResponse(m roster.Member) memberResponse {
	return memberResponse{
		ID:           m.ID,
		RobloxUserID: m.RobloxUserID,
		Username:     m.Username,
		DisplayName:  m.DisplayName,
		Rank:         m.Rank,
		Points:       m.Points,
		Valor:        m.Valor,
		CreatedAt:    m.CreatedAt,
	}
}

type medalResponse struct {
	ID        string    `json:"id"`
	MedalID   string    `json:"medal_id"`
	AwardedBy *string   `json:"awarded_by"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

type trainingResponse struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	ScheduledAt time.Time `json:"scheduled_at"`
	HostID      string    `json:"host_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func toTrainingResponse(t roster.TrainingEvent) trainingResponse {
	return trainingResponse{
		ID:          t.ID,
		Type:        t.Type,
		ScheduledAt: t.ScheduledAt,
		HostID:      t.HostID,
		CreatedAt:   t.CreatedAt,
	}
}

type profileResponse struct {
	Member    memberResponse     `json:"member"`
	Medals    []medalResponse    `json:"medals"`
	Trainings []trainingResponse `json:"trainings"`
}

type adjustRequest struct {
	PointsDelta *int64 `json:"pointsDelta"`
	ValorDelta  *int64 `json:"valorDelta"`
}

type promoteRequest struct {
	NewRank string `json:"newRank"`
}

type trainingCreateRequest struct {
	Type   string `json:"type"`
	Date   string `json:"date"`
	HostID string `json:"host_id"`
}

type trainingCreateResponse struct {
	ID string `json:"id"`
}

type attendeesRequest struct {
	Attendees []string `json:"attendees"`
}

type attendeesResponse struct {
	Recorded int      `json:"recorded"`
	Failed   []string `json:"failed"`
}

type medalAwardRequest struct {
	MedalID   string `json:"medal_id"`
	UserID    string `json:"user_id"`
	AwardedBy string `json:"awarded_by"`
	Reason    string `json:"reason"`
}

type medalAwardResponse struct {
	ID string `json:"id"`
}

type statsResponse struct {
	ActivePersonnel int64 `json:"active_personnel"`
	TrainingsToday  int64 `json:"trainings_today"`
	MedalsAwarded   int64 `json:"medals_awarded"`
}

type keyCreateResponse struct {
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

type keyResponse struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
}

type adminLoginRequest struct {
	Key string `json:"key"`
}

type adminLoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type lookupRequest struct {
	Username string `json:"username"`
}

type lookupResponse struct {
	ExternalID  int64  `json:"external_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

type startVerificationRequest struct {
	ExternalID int64 `json:"external_id"`
}

type startVerificationResponse struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

type checkRequest struct {
	ExternalID int64 `json:"external_id"`
}

type checkResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Member    memberResponse `json:"member"`
}

type avatarResponse struct {
	ImageURL *string `json:"imageUrl"`
}
