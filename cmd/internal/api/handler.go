// Package rosterapi wires the HTTP JSON endpoints of the roster
// backend: member reads and mutations, trainings and medals, aggregate
// stats, Roblox verification, and the admin key exchange.
package rosterapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"usaffe/cmd/internal/activity"
	"usaffe/cmd/internal/adminauth"
	"usaffe/cmd/internal/roblox"
	"usaffe/cmd/internal/verify"
	"usaffe/cmd/roster"
)

// Roster is the storage surface the handlers depend on. *roster.PostgresStore
// satisfies it; tests substitute fakes.
type Roster interface {
	Resolve(ctx context.Context, identifier string) (roster.Member, error)
	AdjustCounters(ctx context.Context, memberID string, deltas roster.CounterDeltas) (roster.Member, error)
	SetRank(ctx context.Context, memberID, rank string) (roster.Member, error)
	ListMembers(ctx context.Context, limit int) ([]roster.Member, error)
	CreateTraining(ctx context.Context, trainingType string, scheduledAt time.Time, hostID string) (roster.TrainingEvent, error)
	AddAttendees(ctx context.Context, trainingID string, memberIDs []string) (roster.AttendeeReport, error)
	AwardMedal(ctx context.Context, medalID, memberID string, awardedBy *string, reason string) (roster.MedalAward, error)
	GetProfile(ctx context.Context, memberID string) (roster.Profile, error)
	Stats(ctx context.Context, now time.Time) (roster.Stats, error)
}

// Verifier is the verification protocol surface. *verify.Service
// satisfies it.
type Verifier interface {
	Issue(ctx context.Context, now time.Time, userID int64) (verify.Issued, error)
	Check(ctx context.Context, now time.Time, userID int64) (verify.Verified, error)
	Authenticate(ctx context.Context, now time.Time, plainToken string) (roster.Member, error)
}

// Admin is the admin key/session surface. *adminauth.Service satisfies
// it.
type Admin interface {
	MintKey(ctx context.Context, now time.Time) (adminauth.Minted, error)
	Exchange(ctx context.Context, now time.Time, plainKey string) (adminauth.Exchanged, error)
	Authorize(now time.Time, sessionToken string) error
	ListKeys(ctx context.Context, limit int) ([]adminauth.Key, error)
	OpenKeyMint() bool
}

// Metrics receives protocol outcome counts. The app layer provides a
// Prometheus implementation; NoopMetrics is the default.
type Metrics interface {
	ObserveVerification(outcome string)
	ObserveAdminExchange(outcome string)
}

// NoopMetrics discards all observations.
type NoopMetrics struct{}

func (NoopMetrics) ObserveVerification(string) {}
func (NoopMetrics) ObserveAdminExchange(string) {}

// Handler wires HTTP endpoints to the roster, verification, and admin
// services.
type Handler struct {
	log *slog.Logger
	cfg Config

	roster   Roster
	verifier Verifier
	admin    Admin
	platform roblox.Client

	hub     *activity.Hub
	metrics Metrics
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithActivityHub publishes roster activity to the given hub.
func WithActivityHub(hub *activity.Hub) HandlerOption {
	return func(h *Handler) {
		if h == nil || hub == nil {
			return
		}
		h.hub = hub
	}
}

// WithMetrics overrides the default no-op metrics sink.
func WithMetrics(m Metrics) HandlerOption {
	return func(h *Handler) {
		if h == nil || m == nil {
			return
		}
		h.metrics = m
	}
}

// NewHandler constructs an API Handler.
func NewHandler(log *slog.Logger, cfg Config, ros Roster, verifier Verifier, admin Admin, platform roblox.Client, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if ros == nil || verifier == nil || admin == nil || platform == nil {
		return nil, errors.New("rosterapi: missing dependency")
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		roster:   ros,
		verifier: verifier,
		admin:    admin,
		platform: platform,
		metrics:  NoopMetrics{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Register wires API routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}

	mux.HandleFunc("GET /api/users/me", h.handleMe)
	mux.HandleFunc("GET /api/users/{id}", h.handleUserProfile)
	mux.HandleFunc("POST /api/users/{id}/adjust", h.handleAdjust)
	mux.HandleFunc("POST /api/users/{id}/promote", h.handlePromote)

	mux.HandleFunc("POST /api/trainings/create", h.handleTrainingCreate)
	mux.HandleFunc("POST /api/trainings/{id}/attendees", h.handleAttendees)
	mux.HandleFunc("POST /api/medals/award", h.handleMedalAward)

	mux.HandleFunc("GET /api/admin/stats", h.handleStats)
	mux.HandleFunc("POST /api/admin-keys/create", h.handleKeyCreate)
	mux.HandleFunc("POST /api/admin/login", h.handleAdminLogin)
	mux.HandleFunc("GET /api/admin/users", h.handleAdminUsers)
	mux.HandleFunc("GET /api/admin/keys", h.handleAdminKeys)

	mux.HandleFunc("POST /api/roblox/lookup", h.handleLookup)
	mux.HandleFunc("POST /api/roblox/start-verification", h.handleStartVerification)
	mux.HandleFunc("POST /api/roblox/check", h.handleCheck)

	mux.HandleFunc("GET /api/avatar/{id}", h.handleAvatar)
}

// AuthorizeAdminRequest checks the request's bearer token against the
// admin session table. The activity feed gateway uses this as its
// Authorizer.
func (h *Handler) AuthorizeAdminRequest(r *http.Request) error {
	return h.admin.Authorize(time.Now().UTC(), bearerToken(r))
}

func (h *Handler) publish(eventType string, data map[string]any) {
	if h.hub == nil {
		return
	}
	h.hub.Publish(activity.Event{Type: eventType, At: time.Now().UTC(), Data: data})
}
