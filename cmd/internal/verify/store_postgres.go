package verify

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultSchema = "usaffe"

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

// PostgresChallengeStore keeps the single pending challenge per Roblox
// account in the verification_challenges table.
type PostgresChallengeStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewPostgresChallengeStore builds a challenge store on the given pool.
func NewPostgresChallengeStore(pool *pgxpool.Pool, schema string) (*PostgresChallengeStore, error) {
	if pool == nil {
		return nil, errors.New("verify: nil pool")
	}
	if schema == "" {
		schema = defaultSchema
	}
	if !pgIdentRe.MatchString(schema) {
		return nil, fmt.Errorf("verify: invalid schema name %q", schema)
	}
	return &PostgresChallengeStore{pool: pool, schema: schema}, nil
}

// Put performs a keyed replace: issuing a new challenge for an account
// that already has one overwrites the previous code and window.
func (s *PostgresChallengeStore) Put(ctx context.Context, ch Challenge) error {
	sql := `
INSERT INTO ` + pgIdent(s.schema, "verification_challenges") + ` (roblox_user_id, code, issued_at)
VALUES ($1, $2, $3)
ON CONFLICT (roblox_user_id) DO UPDATE
SET code = EXCLUDED.code,
    issued_at = EXCLUDED.issued_at
`
	if _, err := s.pool.Exec(ctx, sql, ch.RobloxUserID, ch.Code, ch.IssuedAt); err != nil {
		return fmt.Errorf("verify: store challenge: %w", err)
	}
	return nil
}

func (s *PostgresChallengeStore) Get(ctx context.Context, robloxUserID int64) (Challenge, error) {
	sql := `
SELECT roblox_user_id, code, issued_at
FROM ` + pgIdent(s.schema, "verification_challenges") + `
WHERE roblox_user_id = $1
`
	var ch Challenge
	err := s.pool.QueryRow(ctx, sql, robloxUserID).Scan(&ch.RobloxUserID, &ch.Code, &ch.IssuedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Challenge{}, ErrNoChallenge
	}
	if err != nil {
		return Challenge{}, fmt.Errorf("verify: load challenge: %w", err)
	}
	return ch, nil
}

func (s *PostgresChallengeStore) Delete(ctx context.Context, robloxUserID int64) error {
	sql := `DELETE FROM ` + pgIdent(s.schema, "verification_challenges") + ` WHERE roblox_user_id = $1`
	if _, err := s.pool.Exec(ctx, sql, robloxUserID); err != nil {
		return fmt.Errorf("verify: delete challenge: %w", err)
	}
	return nil
}

// PostgresSessionStore persists member session token hashes in the
// member_sessions table. Plain tokens are never written to the database.
type PostgresSessionStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewPostgresSessionStore builds a session store on the given pool.
func NewPostgresSessionStore(pool *pgxpool.Pool, schema string) (*PostgresSessionStore, error) {
	if pool == nil {
		return nil, errors.New("verify: nil pool")
	}
	if schema == "" {
		schema = defaultSchema
	}
	if !pgIdentRe.MatchString(schema) {
		return nil, fmt.Errorf("verify: invalid schema name %q", schema)
	}
	return &PostgresSessionStore{pool: pool, schema: schema}, nil
}

func (s *PostgresSessionStore) Create(ctx context.Context, memberID, tokenHash string, issuedAt, expiresAt time.Time) error {
	sql := `
INSERT INTO ` + pgIdent(s.schema, "member_sessions") + ` (token_hash, member_id, issued_at, expires_at)
VALUES ($1, $2, $3, $4)
`
	if _, err := s.pool.Exec(ctx, sql, tokenHash, memberID, issuedAt, expiresAt); err != nil {
		return fmt.Errorf("verify: create session: %w", err)
	}
	return nil
}

// MemberIDByTokenHash enforces expiry in the query itself so an expired
// session is indistinguishable from a missing one.
func (s *PostgresSessionStore) MemberIDByTokenHash(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	sql := `
SELECT member_id
FROM ` + pgIdent(s.schema, "member_sessions") + `
WHERE token_hash = $1 AND expires_at > $2
`
	var memberID string
	err := s.pool.QueryRow(ctx, sql, tokenHash, now).Scan(&memberID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrUnauthorized
	}
	if err != nil {
		return "", fmt.Errorf("verify: load session: %w", err)
	}
	return memberID, nil
}
