package roster

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements roster persistence over PostgreSQL.
//
// Design notes:
// - The pgx pool is owned by the caller; this store must NOT close it.
// - Schema/table identifiers are safely quoted to avoid SQL injection via identifiers.
// - Counter adjustment and upsert are single-statement atomic operations;
//   no read-then-write pairs.
// - Errors are mapped to roster sentinel kinds where appropriate.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the roster store (default "usaffe").
// The schema name is validated to be a legal PostgreSQL identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("roster: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("roster: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore with secure defaults.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "usaffe",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("roster: nil pool")
	}
	return st, nil
}

const memberColumns = `id, roblox_user_id, username, display_name, rank, points, valor, created_at`

// Resolve finds a member by either the internal ULID or the external Roblox
// user id (decimal string). Resolution is strictly read-only: a miss is
// ErrNotFound, never an implicit create.
func (s *PostgresStore) Resolve(ctx context.Context, identifier string) (Member, error) {
	const op = "roster.Resolve"

	if s == nil || s.pool == nil {
		return Member{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return Member{}, err
	}

	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return Member{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing identifier"}
	}

	// A purely numeric identifier may be a Roblox user id; the internal ULID
	// alphabet never collides with it, so one query covers both.
	robloxID, _ := strconv.ParseInt(identifier, 10, 64)

	members := pgIdent(s.schema, "members")

	var out Member
	err := s.pool.QueryRow(ctx,
		`SELECT `+memberColumns+`
		   FROM `+members+`
		  WHERE id = $1 OR roblox_user_id = $2`,
		identifier, robloxID,
	).Scan(
		&out.ID,
		&out.RobloxUserID,
		&out.Username,
		&out.DisplayName,
		&out.Rank,
		&out.Points,
		&out.Valor,
		&out.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, NotFoundError{Op: op, Resource: "member"}
		}
		return Member{}, err
	}
	return out, nil
}

// MemberByID loads a member by internal ULID only.
func (s *PostgresStore) MemberByID(ctx context.Context, id string) (Member, error) {
	const op = "roster.MemberByID"

	if s == nil || s.pool == nil {
		return Member{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return Member{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Member{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing id"}
	}

	members := pgIdent(s.schema, "members")

	var out Member
	err := s.pool.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM `+members+` WHERE id = $1`,
		id,
	).Scan(
		&out.ID,
		&out.RobloxUserID,
		&out.Username,
		&out.DisplayName,
		&out.Rank,
		&out.Points,
		&out.Valor,
		&out.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, NotFoundError{Op: op, Resource: "member"}
		}
		return Member{}, err
	}
	return out, nil
}

// Upsert creates a member for the Roblox user id if none exists, otherwise
// overwrites only the mutable profile fields. Rank and counters survive.
//
// The insert-or-update is a single statement, so two concurrent upserts for
// the same roblox_user_id cannot produce two rows.
func (s *PostgresStore) Upsert(ctx context.Context, in UpsertMemberInput) (Member, error) {
	const op = "roster.Upsert"

	if s == nil || s.pool == nil {
		return Member{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return Member{}, err
	}
	if in.RobloxUserID <= 0 {
		return Member{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing roblox_user_id"}
	}
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return Member{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing username"}
	}
	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName = username
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	// The generated ULID is only consumed on the insert path; on conflict the
	// existing id and created_at are returned untouched.
	memberID, err := NewULID(now)
	if err != nil {
		return Member{}, err
	}

	members := pgIdent(s.schema, "members")

	var out Member
	err = s.pool.QueryRow(ctx,
		`INSERT INTO `+members+` (
		     id, roblox_user_id, username, display_name, rank, points, valor, created_at
		   ) VALUES ($1, $2, $3, $4, $5, 0, 0, $6)
		   ON CONFLICT (roblox_user_id) DO UPDATE
		      SET username = EXCLUDED.username,
		          display_name = EXCLUDED.display_name
		   RETURNING `+memberColumns,
		memberID, in.RobloxUserID, username, displayName, DefaultRank, now,
	).Scan(
		&out.ID,
		&out.RobloxUserID,
		&out.Username,
		&out.DisplayName,
		&out.Rank,
		&out.Points,
		&out.Valor,
		&out.CreatedAt,
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return Member{}, ConflictError{Op: op, Field: field}
		}
		return Member{}, err
	}
	return out, nil
}

// AdjustCounters applies signed deltas to the member counters in one atomic
// UPDATE. The read-modify-write is never observable as two steps.
func (s *PostgresStore) AdjustCounters(ctx context.Context, memberID string, deltas CounterDeltas) (Member, error) {
	const op = "roster.AdjustCounters"

	if s == nil || s.pool == nil {
		return Member{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return Member{}, err
	}
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return Member{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing member id"}
	}

	members := pgIdent(s.schema, "members")

	var out Member
	err := s.pool.QueryRow(ctx,
		`UPDATE `+members+`
		    SET points = points + $1,
		        valor = valor + $2
		  WHERE id = $3
		RETURNING `+memberColumns,
		deltas.Points, deltas.Valor, memberID,
	).Scan(
		&out.ID,
		&out.RobloxUserID,
		&out.Username,
		&out.DisplayName,
		&out.Rank,
		&out.Points,
		&out.Valor,
		&out.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, NotFoundError{Op: op, Resource: "member"}
		}
		return Member{}, err
	}
	return out, nil
}

// SetRank unconditionally overwrites a member's rank.
func (s *PostgresStore) SetRank(ctx context.Context, memberID, rank string) (Member, error) {
	const op = "roster.SetRank"

	if s == nil || s.pool == nil {
		return Member{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return Member{}, err
	}
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return Member{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing member id"}
	}
	rank = strings.TrimSpace(rank)
	if rank == "" {
		return Member{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing rank"}
	}

	members := pgIdent(s.schema, "members")

	var out Member
	err := s.pool.QueryRow(ctx,
		`UPDATE `+members+`
		    SET rank = $1
		  WHERE id = $2
		RETURNING `+memberColumns,
		rank, memberID,
	).Scan(
		&out.ID,
		&out.RobloxUserID,
		&out.Username,
		&out.DisplayName,
		&out.Rank,
		&out.Points,
		&out.Valor,
		&out.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, NotFoundError{Op: op, Resource: "member"}
		}
		return Member{}, err
	}
	return out, nil
}

// ListMembers returns the roster ordered by creation time, newest first.
func (s *PostgresStore) ListMembers(ctx context.Context, limit int) ([]Member, error) {
	const op = "roster.ListMembers"

	if s == nil || s.pool == nil {
		return nil, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}

	members := pgIdent(s.schema, "members")

	rows, err := s.pool.Query(ctx,
		`SELECT `+memberColumns+`
		   FROM `+members+`
		  ORDER BY created_at DESC, id DESC
		  LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Member, 0, limit)
	for rows.Next() {
		var m Member
		if err := rows.Scan(
			&m.ID,
			&m.RobloxUserID,
			&m.Username,
			&m.DisplayName,
			&m.Rank,
			&m.Points,
			&m.Valor,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ---- helpers ----

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgIsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23503" // foreign_key_violation
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	// Prefer stable schema constraint names; fall back to heuristic matching.
	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))

	switch c {
	case "uq_members_roblox_user_id":
		return "roblox_user_id", true
	case "uq_training_attendees":
		return "attendee", true
	default:
		switch {
		case strings.Contains(c, "roblox"):
			return "roblox_user_id", true
		case strings.Contains(c, "attendee"):
			return "attendee", true
		default:
			return "unique", true
		}
	}
}
