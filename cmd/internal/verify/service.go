// Package verify implements Roblox proof-of-control verification.
//
// A member requests a challenge code, pastes it into their Roblox
// profile description, and asks for a check. The check reads the live
// profile: if the code is present the account is enrolled on the roster
// and a member session token is minted. The challenge is consumed only
// after everything else succeeded, so a failed check can be retried
// with the same code until the window closes.
package verify

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"usaffe/cmd/roster"
	"usaffe/cmd/security/token"
)

// Service implements the verification operations.
type Service struct {
	cfg        Config
	challenges ChallengeStore
	sessions   SessionStore
	directory  Directory
	profiles   ProfileSource
}

// Issued is the result of issuing a challenge.
type Issued struct {
	RobloxUserID int64
	Code         string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// Verified is the result of a successful check: the enrolled roster
// member plus a fresh session token. The token is returned in plain
// form exactly once; only its hash is persisted.
type Verified struct {
	Member           roster.Member
	SessionToken     string
	SessionExpiresAt time.Time
}

// NewService constructs a verification service.
func NewService(cfg Config, challenges ChallengeStore, sessions SessionStore, directory Directory, profiles ProfileSource) *Service {
	return &Service{
		cfg:        cfg,
		challenges: challenges,
		sessions:   sessions,
		directory:  directory,
		profiles:   profiles,
	}
}

// Issue starts (or restarts) verification for a Roblox account.
// Re-issuing replaces any pending challenge for the same account, so
// only the most recent code can ever succeed.
func (s *Service) Issue(ctx context.Context, now time.Time, userID int64) (Issued, error) {
	if userID <= 0 {
		return Issued{}, ErrUnknownUser
	}

	code, err := NewCode()
	if err != nil {
		return Issued{}, err
	}

	ch := Challenge{RobloxUserID: userID, Code: code, IssuedAt: now}
	if err := s.challenges.Put(ctx, ch); err != nil {
		return Issued{}, err
	}

	return Issued{
		RobloxUserID: userID,
		Code:         code,
		IssuedAt:     now,
		ExpiresAt:    now.Add(s.cfg.CodeWindow),
	}, nil
}

// Check reads the account's live profile and decides the pending
// challenge.
//
// Ordering matters: the challenge is deleted and the member enrolled
// only after the profile fetch succeeded and contained the code. An
// upstream failure or a missing code leaves the challenge in place.
func (s *Service) Check(ctx context.Context, now time.Time, userID int64) (Verified, error) {
	if userID <= 0 {
		return Verified{}, ErrUnknownUser
	}

	ch, err := s.challenges.Get(ctx, userID)
	if err != nil {
		return Verified{}, err
	}

	if !now.Before(ch.IssuedAt.Add(s.cfg.CodeWindow)) {
		// Best-effort cleanup; an expired challenge can never succeed.
		_ = s.challenges.Delete(ctx, userID)
		return Verified{}, ErrChallengeExpired
	}

	profile, err := s.profiles.Profile(ctx, userID)
	if err != nil {
		return Verified{}, err
	}

	if !strings.Contains(profile.Description, ch.Code) {
		return Verified{}, ErrCodeMismatch
	}

	member, err := s.directory.Upsert(ctx, roster.UpsertMemberInput{
		RobloxUserID: userID,
		Username:     profile.Username,
		DisplayName:  profile.DisplayName,
		Now:          now,
	})
	if err != nil {
		return Verified{}, err
	}

	plain, hashHex, err := newSessionToken(s.cfg.SessionTokenBytes)
	if err != nil {
		return Verified{}, err
	}
	expiresAt := now.Add(s.cfg.SessionTTL)

	if err := s.sessions.Create(ctx, member.ID, hashHex, now, expiresAt); err != nil {
		return Verified{}, err
	}

	// Consume last. A crash before this point leaves a decided but
	// unconsumed challenge, which is harmless: the next check simply
	// succeeds again.
	if err := s.challenges.Delete(ctx, userID); err != nil {
		return Verified{}, err
	}

	return Verified{
		Member:           member,
		SessionToken:     plain,
		SessionExpiresAt: expiresAt,
	}, nil
}

// Authenticate resolves a member session token to its roster member.
func (s *Service) Authenticate(ctx context.Context, now time.Time, plainToken string) (roster.Member, error) {
	plainToken = strings.TrimSpace(plainToken)
	if plainToken == "" || len(plainToken) > 4096 {
		return roster.Member{}, ErrUnauthorized
	}

	hashHex := token.HashCredentialHex(plainToken)

	memberID, err := s.sessions.MemberIDByTokenHash(ctx, hashHex, now)
	if err != nil {
		return roster.Member{}, err
	}

	return s.directory.MemberByID(ctx, memberID)
}

func newSessionToken(nBytes int) (plain string, hashHex string, err error) {
	b := make([]byte, nBytes)
	if _, err = rand.Read(b); err != nil {
		return "", "", fmt.Errorf("verify: generate session token: %w", err)
	}

	// URL-safe, no padding.
	plain = base64.RawURLEncoding.EncodeToString(b)

	hashHex = token.HashCredentialHex(plain)

	return plain, hashHex, nil
}
