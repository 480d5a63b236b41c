package rosterapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"usaffe/cmd/internal/adminauth"
	"usaffe/cmd/internal/roblox"
	"usaffe/cmd/internal/verify"
	"usaffe/cmd/roster"
)

// ---- fakes ----

type fakeRoster struct {
	members   map[string]roster.Member // keyed by internal id
	trainings map[string]roster.TrainingEvent
	awards    []roster.MedalAward
	nextID    int
	stats     roster.Stats
}

func newFakeRoster() *fakeRoster {
	return &fakeRoster{
		members:   map[string]roster.Member{},
		trainings: map[string]roster.TrainingEvent{},
	}
}

func (f *fakeRoster) addMember(robloxID int64, username, rank string) roster.Member {
	f.nextID++
	m := roster.Member{
		ID:           fmt.Sprintf("member-%d", f.nextID),
		RobloxUserID: robloxID,
		Username:     username,
		DisplayName:  username,
		Rank:         rank,
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	f.members[m.ID] = m
	return m
}

func (f *fakeRoster) Resolve(_ context.Context, identifier string) (roster.Member, error) {
	if m, ok := f.members[identifier]; ok {
		return m, nil
	}
	for _, m := range f.members {
		if fmt.Sprintf("%d", m.RobloxUserID) == identifier {
			return m, nil
		}
	}
	return roster.Member{}, roster.NotFoundError{Op: "fake.Resolve", Resource: "member"}
}

func (f *fakeRoster) AdjustCounters(_ context.Context, memberID string, deltas roster.CounterDeltas) (roster.Member, error) {
	m, ok := f.members[memberID]
	if !ok {
		return roster.Member{}, roster.NotFoundError{Op: "fake.AdjustCounters", Resource: "member"}
	}
	m.Points += deltas.Points
	m.Valor += deltas.Valor
	f.members[memberID] = m
	return m, nil
}

func (f *fakeRoster) SetRank(_ context.Context, memberID, rank string) (roster.Member, error) {
	m, ok := f.members[memberID]
	if !ok {
		return roster.Member{}, roster.NotFoundError{Op: "fake.SetRank", Resource: "member"}
	}
	m.Rank = rank
	f.members[memberID] = m
	return m, nil
}

func (f *fakeRoster) ListMembers(_ context.Context, _ int) ([]roster.Member, error) {
	out := make([]roster.Member, 0, len(f.members))
	for _, m := range f.members {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeRoster) CreateTraining(_ context.Context, trainingType string, scheduledAt time.Time, hostID string) (roster.TrainingEvent, error) {
	if _, ok := f.members[hostID]; !ok {
		return roster.TrainingEvent{}, roster.NotFoundError{Op: "fake.CreateTraining", Resource: "host"}
	}
	f.nextID++
	tr := roster.TrainingEvent{
		ID:          fmt.Sprintf("training-%d", f.nextID),
		Type:        trainingType,
		ScheduledAt: scheduledAt,
		HostID:      hostID,
		CreatedAt:   scheduledAt,
	}
	f.trainings[tr.ID] = tr
	return tr, nil
}

func (f *fakeRoster) AddAttendees(_ context.Context, trainingID string, memberIDs []string) (roster.AttendeeReport, error) {
	if _, ok := f.trainings[trainingID]; !ok {
		return roster.AttendeeReport{}, roster.NotFoundError{Op: "fake.AddAttendees", Resource: "training"}
	}
	var report roster.AttendeeReport
	for _, id := range memberIDs {
		if _, ok := f.members[id]; ok {
			report.Recorded++
		} else {
			report.Failed = append(report.Failed, id)
		}
	}
	return report, nil
}

func (f *fakeRoster) AwardMedal(_ context.Context, medalID, memberID string, awardedBy *string, reason string) (roster.MedalAward, error) {
	if _, ok := f.members[memberID]; !ok {
		return roster.MedalAward{}, roster.NotFoundError{Op: "fake.AwardMedal", Resource: "member"}
	}
	f.nextID++
	award := roster.MedalAward{
		ID:        fmt.Sprintf("award-%d", f.nextID),
		MedalID:   medalID,
		MemberID:  memberID,
		AwardedBy: awardedBy,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}
	f.awards = append(f.awards, award)
	return award, nil
}

func (f *fakeRoster) GetProfile(_ context.Context, memberID string) (roster.Profile, error) {
	m, ok := f.members[memberID]
	if !ok {
		return roster.Profile{}, roster.NotFoundError{Op: "fake.GetProfile", Resource: "member"}
	}
	return roster.Profile{Member: m, Medals: []roster.MedalAward{}, Trainings: []roster.TrainingEvent{}}, nil
}

func (f *fakeRoster) Stats(_ context.Context, _ time.Time) (roster.Stats, error) {
	return f.stats, nil
}

type stubVerifier struct {
	issueFn func(int64) (verify.Issued, error)
	checkFn func(int64) (verify.Verified, error)
	authFn  func(string) (roster.Member, error)
}

func (s *stubVerifier) Issue(_ context.Context, _ time.Time, userID int64) (verify.Issued, error) {
	return s.issueFn(userID)
}

func (s *stubVerifier) Check(_ context.Context, _ time.Time, userID int64) (verify.Verified, error) {
	return s.checkFn(userID)
}

func (s *stubVerifier) Authenticate(_ context.Context, _ time.Time, token string) (roster.Member, error) {
	if s.authFn == nil {
		return roster.Member{}, verify.ErrUnauthorized
	}
	return s.authFn(token)
}

type stubAdmin struct {
	openMint    bool
	validTokens map[string]bool
	exchangeFn  func(string) (adminauth.Exchanged, error)
	keys        []adminauth.Key
}

func (s *stubAdmin) MintKey(_ context.Context, now time.Time) (adminauth.Minted, error) {
	return adminauth.Minted{Key: "minted-key", ID: "key-1", ExpiresAt: now.Add(12 * time.Hour)}, nil
}

func (s *stubAdmin) Exchange(_ context.Context, _ time.Time, plainKey string) (adminauth.Exchanged, error) {
	return s.exchangeFn(plainKey)
}

func (s *stubAdmin) Authorize(_ time.Time, token string) error {
	if s.validTokens[token] {
		return nil
	}
	return adminauth.ErrUnauthorized
}

func (s *stubAdmin) ListKeys(_ context.Context, _ int) ([]adminauth.Key, error) {
	return s.keys, nil
}

func (s *stubAdmin) OpenKeyMint() bool { return s.openMint }

type stubPlatform struct {
	ids      map[string]int64
	profiles map[int64]roblox.Profile
	avatars  map[int64]string
	err      error
}

func (s *stubPlatform) ResolveUsername(_ context.Context, username string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	id, ok := s.ids[username]
	if !ok {
		return 0, roblox.ErrUserNotFound
	}
	return id, nil
}

func (s *stubPlatform) Profile(_ context.Context, userID int64) (roblox.Profile, error) {
	if s.err != nil {
		return roblox.Profile{}, s.err
	}
	p, ok := s.profiles[userID]
	if !ok {
		return roblox.Profile{}, roblox.ErrUserNotFound
	}
	return p, nil
}

func (s *stubPlatform) AvatarURL(_ context.Context, userID int64) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.avatars[userID], nil
}

// ---- harness ----

type testEnv struct {
	mux      *http.ServeMux
	roster   *fakeRoster
	verifier *stubVerifier
	admin    *stubAdmin
	platform *stubPlatform
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		roster: newFakeRoster(),
		verifier: &stubVerifier{
			issueFn: func(int64) (verify.Issued, error) { return verify.Issued{}, verify.ErrUnknownUser },
			checkFn: func(int64) (verify.Verified, error) { return verify.Verified{}, verify.ErrNoChallenge },
		},
		admin: &stubAdmin{
			validTokens: map[string]bool{"good-admin-token": true},
			exchangeFn: func(string) (adminauth.Exchanged, error) {
				return adminauth.Exchanged{}, adminauth.ErrInvalidKey
			},
		},
		platform: &stubPlatform{
			ids:      map[string]int64{},
			profiles: map[int64]roblox.Profile{},
			avatars:  map[int64]string{},
		},
	}

	h, err := NewHandler(slog.Default(), LoadConfigFromEnv(), env.roster, env.verifier, env.admin, env.platform)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	env.mux = http.NewServeMux()
	h.Register(env.mux)
	return env
}

func (env *testEnv) do(t *testing.T, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if bearer != "" {
		r.Header.Set("Authorization", "Bearer "+bearer)
	}

	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, r)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return v
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[errorResponse](t, w).Error.Code
}

// ---- tests ----

func TestHandleUserProfile(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	m := env.roster.addMember(4412871, "grunt", "Recruit")

	// By internal id.
	w := env.do(t, "GET", "/api/users/"+m.ID, "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got := decodeBody[profileResponse](t, w)
	if got.Member.ID != m.ID || got.Member.Username != "grunt" {
		t.Fatalf("unexpected profile: %+v", got)
	}

	// By external id.
	w = env.do(t, "GET", "/api/users/4412871", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 by external id, got %d", w.Code)
	}

	// Unknown.
	w = env.do(t, "GET", "/api/users/nope", "", "")
	if w.Code != http.StatusNotFound || errCode(t, w) != "not_found" {
		t.Fatalf("expected 404 not_found, got %d %s", w.Code, w.Body.String())
	}
}

func TestHandleAdjust(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	m := env.roster.addMember(1, "grunt", "Recruit")

	w := env.do(t, "POST", "/api/users/"+m.ID+"/adjust", `{"pointsDelta":5,"valorDelta":-1}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got := decodeBody[memberResponse](t, w)
	if got.Points != 5 || got.Valor != -1 {
		t.Fatalf("unexpected counters: %+v", got)
	}

	// Neither delta present.
	w = env.do(t, "POST", "/api/users/"+m.ID+"/adjust", `{}`, "")
	if w.Code != http.StatusBadRequest || errCode(t, w) != "invalid_input" {
		t.Fatalf("expected 400 invalid_input, got %d %s", w.Code, w.Body.String())
	}

	// Unknown member.
	w = env.do(t, "POST", "/api/users/nope/adjust", `{"pointsDelta":1}`, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHandlePromote(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	m := env.roster.addMember(1, "grunt", "Recruit")

	w := env.do(t, "POST", "/api/users/"+m.ID+"/promote", `{"newRank":"Corporal"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := decodeBody[memberResponse](t, w); got.Rank != "Corporal" {
		t.Fatalf("unexpected rank: %+v", got)
	}

	w = env.do(t, "POST", "/api/users/"+m.ID+"/promote", `{"newRank":""}`, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty rank, got %d", w.Code)
	}
}

func TestHandleTrainingCreate(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	host := env.roster.addMember(1, "host", "Captain")

	body := fmt.Sprintf(`{"type":"Drill","date":"2026-03-01T18:00:00Z","host_id":"%s"}`, host.ID)
	w := env.do(t, "POST", "/api/trainings/create", body, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := decodeBody[trainingCreateResponse](t, w); got.ID == "" {
		t.Fatalf("expected a training id, got %+v", got)
	}

	// Missing fields.
	w = env.do(t, "POST", "/api/trainings/create", `{"type":"Drill"}`, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing fields, got %d", w.Code)
	}

	// Bad date.
	w = env.do(t, "POST", "/api/trainings/create",
		fmt.Sprintf(`{"type":"Drill","date":"tomorrow","host_id":"%s"}`, host.ID), "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", w.Code)
	}
}

func TestHandleAttendees_PartialSuccess(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	host := env.roster.addMember(1, "host", "Captain")
	a := env.roster.addMember(2, "a", "Recruit")
	env.roster.addMember(3, "b", "Recruit")
	tr, err := env.roster.CreateTraining(context.Background(), "Drill", time.Now().UTC(), host.ID)
	if err != nil {
		t.Fatalf("seed training: %v", err)
	}

	// One attendee by internal id, one by external roblox id, one unknown.
	body := fmt.Sprintf(`{"attendees":["%s","3","missing-id"]}`, a.ID)
	w := env.do(t, "POST", "/api/trainings/"+tr.ID+"/attendees", body, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got := decodeBody[attendeesResponse](t, w)
	if got.Recorded != 2 || len(got.Failed) != 1 || got.Failed[0] != "missing-id" {
		t.Fatalf("unexpected report: %+v", got)
	}

	// Empty list.
	w = env.do(t, "POST", "/api/trainings/"+tr.ID+"/attendees", `{"attendees":[]}`, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty list, got %d", w.Code)
	}

	// Unknown training.
	w = env.do(t, "POST", "/api/trainings/nope/attendees", body, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown training, got %d", w.Code)
	}
}

func TestHandleMedalAward(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	member := env.roster.addMember(1, "grunt", "Recruit")
	officer := env.roster.addMember(2, "officer", "Captain")

	// Award resolving the target by external id and the awarder by
	// internal id.
	body := fmt.Sprintf(`{"medal_id":"moh","user_id":"1","awarded_by":"%s","reason":"held the line"}`, officer.ID)
	w := env.do(t, "POST", "/api/medals/award", body, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := decodeBody[medalAwardResponse](t, w); got.ID == "" {
		t.Fatalf("expected an award id, got %+v", got)
	}
	if len(env.roster.awards) != 1 || env.roster.awards[0].MemberID != member.ID {
		t.Fatalf("unexpected recorded award: %+v", env.roster.awards)
	}

	// Missing fields.
	w = env.do(t, "POST", "/api/medals/award", `{"medal_id":"moh"}`, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing user_id, got %d", w.Code)
	}
}

func TestHandleStats(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.roster.stats = roster.Stats{ActivePersonnel: 42, TrainingsToday: 3, MedalsAwarded: 7}

	w := env.do(t, "GET", "/api/admin/stats", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	got := decodeBody[statsResponse](t, w)
	if got.ActivePersonnel != 42 || got.TrainingsToday != 3 || got.MedalsAwarded != 7 {
		t.Fatalf("unexpected stats: %+v", got)
	}
}

func TestHandleKeyCreate_Gated(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	// Closed minting rejects anonymous callers.
	w := env.do(t, "POST", "/api/admin-keys/create", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", w.Code)
	}

	// An admin session may mint.
	w = env.do(t, "POST", "/api/admin-keys/create", "", "good-admin-token")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with session, got %d: %s", w.Code, w.Body.String())
	}
	if got := decodeBody[keyCreateResponse](t, w); got.Key == "" {
		t.Fatalf("expected a key, got %+v", got)
	}

	// Open minting skips the gate.
	env.admin.openMint = true
	w = env.do(t, "POST", "/api/admin-keys/create", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with open minting, got %d", w.Code)
	}
}

func TestHandleAdminLogin_ErrorMapping(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	cases := []struct {
		err  error
		code string
	}{
		{adminauth.ErrInvalidKey, "invalid_key"},
		{adminauth.ErrKeyExpired, "key_expired"},
		{adminauth.ErrKeyUsed, "key_used"},
	}
	for _, tc := range cases {
		env.admin.exchangeFn = func(string) (adminauth.Exchanged, error) {
			return adminauth.Exchanged{}, tc.err
		}
		w := env.do(t, "POST", "/api/admin/login", `{"key":"whatever"}`, "")
		if w.Code != http.StatusUnauthorized || errCode(t, w) != tc.code {
			t.Fatalf("%v: expected 401 %s, got %d %s", tc.err, tc.code, w.Code, w.Body.String())
		}
	}

	env.admin.exchangeFn = func(string) (adminauth.Exchanged, error) {
		return adminauth.Exchanged{SessionToken: "fresh", ExpiresAt: time.Now().Add(8 * time.Hour)}, nil
	}
	w := env.do(t, "POST", "/api/admin/login", `{"key":"good"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := decodeBody[adminLoginResponse](t, w); got.Token != "fresh" {
		t.Fatalf("unexpected login response: %+v", got)
	}
}

func TestAdminListEndpoints_RequireSession(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.roster.addMember(1, "grunt", "Recruit")
	env.admin.keys = []adminauth.Key{{ID: "key-1", CreatedAt: time.Now().UTC(), ExpiresAt: time.Now().UTC().Add(time.Hour)}}

	for _, path := range []string{"/api/admin/users", "/api/admin/keys"} {
		w := env.do(t, "GET", path, "", "")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, w.Code)
		}
		w = env.do(t, "GET", path, "", "bad-token")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 for bad token, got %d", path, w.Code)
		}
		w = env.do(t, "GET", path, "", "good-admin-token")
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", path, w.Code, w.Body.String())
		}
	}
}

func TestHandleLookup(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.platform.ids["grunt"] = 4412871
	env.platform.profiles[4412871] = roblox.Profile{UserID: 4412871, Username: "grunt", DisplayName: "Grunt"}

	w := env.do(t, "POST", "/api/roblox/lookup", `{"username":"grunt"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got := decodeBody[lookupResponse](t, w)
	if got.ExternalID != 4412871 || got.Username != "grunt" {
		t.Fatalf("unexpected lookup: %+v", got)
	}

	w = env.do(t, "POST", "/api/roblox/lookup", `{"username":"nobody"}`, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", w.Code)
	}

	env.platform.err = roblox.ErrUnavailable
	w = env.do(t, "POST", "/api/roblox/lookup", `{"username":"grunt"}`, "")
	if w.Code != http.StatusBadGateway || errCode(t, w) != "upstream_unavailable" {
		t.Fatalf("expected 502, got %d %s", w.Code, w.Body.String())
	}
}

func TestHandleStartVerification(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.verifier.issueFn = func(userID int64) (verify.Issued, error) {
		if userID != 4412871 {
			return verify.Issued{}, verify.ErrUnknownUser
		}
		return verify.Issued{RobloxUserID: userID, Code: "USAFFE-TESTCODE", ExpiresAt: time.Now().Add(10 * time.Minute)}, nil
	}

	w := env.do(t, "POST", "/api/roblox/start-verification", `{"external_id":4412871}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := decodeBody[startVerificationResponse](t, w); got.Code != "USAFFE-TESTCODE" {
		t.Fatalf("unexpected response: %+v", got)
	}

	w = env.do(t, "POST", "/api/roblox/start-verification", `{"external_id":0}`, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing external_id, got %d", w.Code)
	}
}

func TestHandleCheck_ErrorMapping(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	cases := []struct {
		err    error
		status int
		code   string
	}{
		{verify.ErrNoChallenge, http.StatusBadRequest, "no_challenge"},
		{verify.ErrChallengeExpired, http.StatusBadRequest, "code_expired"},
		{verify.ErrCodeMismatch, http.StatusBadRequest, "code_mismatch"},
		{verify.ErrUnknownUser, http.StatusBadRequest, "unknown_user"},
		{verify.ErrUpstream, http.StatusBadGateway, "upstream_unavailable"},
	}
	for _, tc := range cases {
		env.verifier.checkFn = func(int64) (verify.Verified, error) {
			return verify.Verified{}, tc.err
		}
		w := env.do(t, "POST", "/api/roblox/check", `{"external_id":1}`, "")
		if w.Code != tc.status || errCode(t, w) != tc.code {
			t.Fatalf("%v: expected %d %s, got %d %s", tc.err, tc.status, tc.code, w.Code, w.Body.String())
		}
	}

	member := roster.Member{ID: "member-1", RobloxUserID: 1, Username: "grunt", Rank: "Recruit"}
	env.verifier.checkFn = func(int64) (verify.Verified, error) {
		return verify.Verified{Member: member, SessionToken: "session-token", SessionExpiresAt: time.Now().Add(time.Hour)}, nil
	}
	w := env.do(t, "POST", "/api/roblox/check", `{"external_id":1}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	got := decodeBody[checkResponse](t, w)
	if got.Token != "session-token" || got.Member.ID != "member-1" {
		t.Fatalf("unexpected check response: %+v", got)
	}
}

func TestHandleMe(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	member := roster.Member{ID: "member-1", RobloxUserID: 1, Username: "grunt", Rank: "Recruit"}
	env.verifier.authFn = func(token string) (roster.Member, error) {
		if token == "member-token" {
			return member, nil
		}
		return roster.Member{}, verify.ErrUnauthorized
	}

	w := env.do(t, "GET", "/api/users/me", "", "member-token")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := decodeBody[memberResponse](t, w); got.ID != "member-1" {
		t.Fatalf("unexpected member: %+v", got)
	}

	w = env.do(t, "GET", "/api/users/me", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}

func TestHandleAvatar_NeverHardFails(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.platform.avatars[4412871] = "https://cdn.example/headshot.png"

	w := env.do(t, "GET", "/api/avatar/4412871", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	got := decodeBody[avatarResponse](t, w)
	if got.ImageURL == nil || *got.ImageURL != "https://cdn.example/headshot.png" {
		t.Fatalf("unexpected avatar: %+v", got)
	}

	// Non-numeric id degrades.
	w = env.do(t, "GET", "/api/avatar/not-a-number", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for bad id, got %d", w.Code)
	}
	if got := decodeBody[avatarResponse](t, w); got.ImageURL != nil {
		t.Fatalf("expected null image for bad id, got %+v", got)
	}

	// Upstream failure degrades.
	env.platform.err = roblox.ErrUnavailable
	w = env.do(t, "GET", "/api/avatar/4412871", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on upstream failure, got %d", w.Code)
	}
	if got := decodeBody[avatarResponse](t, w); got.ImageURL != nil {
		t.Fatalf("expected null image on upstream failure, got %+v", got)
	}
}
