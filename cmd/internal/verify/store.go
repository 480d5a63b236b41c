package verify

import (
	"context"
	"time"

	"usaffe/cmd/roster"
)

// Challenge is a pending proof-of-control check for one Roblox account.
// At most one challenge exists per account; re-issuing replaces it.
type Challenge struct {
	RobloxUserID int64
	Code         string
	IssuedAt     time.Time
}

// ChallengeStore persists pending challenges keyed by Roblox user id.
type ChallengeStore interface {
	// Put stores the challenge, replacing any existing one for the same
	// Roblox user id.
	Put(ctx context.Context, ch Challenge) error

	// Get returns the challenge for the given Roblox user id, or
	// ErrNoChallenge when none exists.
	Get(ctx context.Context, robloxUserID int64) (Challenge, error)

	// Delete removes the challenge. Deleting a missing challenge is not
	// an error.
	Delete(ctx context.Context, robloxUserID int64) error
}

// SessionStore persists member session tokens. Only the token hash is
// stored; the plain token exists in-memory at mint time and in the
// member's client afterwards.
type SessionStore interface {
	Create(ctx context.Context, memberID, tokenHash string, issuedAt, expiresAt time.Time) error

	// MemberIDByTokenHash returns the member id of an unexpired session,
	// or ErrUnauthorized when the hash is unknown or expired.
	MemberIDByTokenHash(ctx context.Context, tokenHash string, now time.Time) (string, error)
}

// Directory is the roster surface the verification flow needs: enroll a
// verified account and look members up for authenticated reads.
type Directory interface {
	Upsert(ctx context.Context, in roster.UpsertMemberInput) (roster.Member, error)
	MemberByID(ctx context.Context, id string) (roster.Member, error)
}

// AccountProfile is what verification inspects about a Roblox account.
type AccountProfile struct {
	UserID      int64
	Username    string
	DisplayName string
	Description string
}

// ProfileSource fetches profile text from the upstream platform.
// Unknown ids yield ErrUnknownUser; transport failures yield
// ErrUpstream.
type ProfileSource interface {
	Profile(ctx context.Context, userID int64) (AccountProfile, error)
}
