package adminauth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultSchema = "usaffe"

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

// PostgresKeyStore persists admin keys in the admin_keys table.
type PostgresKeyStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewPostgresKeyStore builds a key store on the given pool.
func NewPostgresKeyStore(pool *pgxpool.Pool, schema string) (*PostgresKeyStore, error) {
	if pool == nil {
		return nil, errors.New("adminauth: nil pool")
	}
	if schema == "" {
		schema = defaultSchema
	}
	if !pgIdentRe.MatchString(schema) {
		return nil, fmt.Errorf("adminauth: invalid schema name %q", schema)
	}
	return &PostgresKeyStore{pool: pool, schema: schema}, nil
}

func (s *PostgresKeyStore) Create(ctx context.Context, in CreateKeyRecord) (Key, error) {
	if strings.TrimSpace(in.ID) == "" || strings.TrimSpace(in.TokenHash) == "" {
		return Key{}, ErrConfig
	}

	sql := `
INSERT INTO ` + pgIdent(s.schema, "admin_keys") + ` (id, token_hash, created_at, expires_at, used_at)
VALUES ($1, $2, $3, $4, NULL)
`
	if _, err := s.pool.Exec(ctx, sql, in.ID, in.TokenHash, in.CreatedAt, in.ExpiresAt); err != nil {
		return Key{}, fmt.Errorf("adminauth: create key: %w", err)
	}

	return Key{ID: in.ID, CreatedAt: in.CreatedAt, ExpiresAt: in.ExpiresAt}, nil
}

// Consume is a single conditional UPDATE. Under concurrency exactly one
// caller observes RowsAffected on the guarded row; everyone else falls
// through to the diagnostic SELECT.
func (s *PostgresKeyStore) Consume(ctx context.Context, tokenHash string, now time.Time) (Key, error) {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return Key{}, ErrInvalidKey
	}

	keys := pgIdent(s.schema, "admin_keys")

	var out Key
	err := s.pool.QueryRow(ctx, `
UPDATE `+keys+`
   SET used_at = $1
 WHERE token_hash = $2
   AND used_at IS NULL
   AND expires_at > $1
RETURNING id, created_at, expires_at, used_at`,
		now, tokenHash,
	).Scan(&out.ID, &out.CreatedAt, &out.ExpiresAt, &out.UsedAt)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Key{}, fmt.Errorf("adminauth: consume key: %w", err)
	}

	// Distinguish unknown vs expired vs already used.
	var probe Key
	selErr := s.pool.QueryRow(ctx, `
SELECT id, created_at, expires_at, used_at
  FROM `+keys+`
 WHERE token_hash = $1`,
		tokenHash,
	).Scan(&probe.ID, &probe.CreatedAt, &probe.ExpiresAt, &probe.UsedAt)
	if errors.Is(selErr, pgx.ErrNoRows) {
		return Key{}, ErrInvalidKey
	}
	if selErr != nil {
		return Key{}, fmt.Errorf("adminauth: probe key: %w", selErr)
	}
	if probe.UsedAt != nil {
		return Key{}, ErrKeyUsed
	}
	return Key{}, ErrKeyExpired
}

func (s *PostgresKeyStore) List(ctx context.Context, limit int) ([]Key, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	sql := `
SELECT id, created_at, expires_at, used_at
  FROM ` + pgIdent(s.schema, "admin_keys") + `
 ORDER BY created_at DESC, id DESC
 LIMIT $1`

	rows, err := s.pool.Query(ctx, sql, limit)
	if err != nil {
		return nil, fmt.Errorf("adminauth: list keys: %w", err)
	}
	defer rows.Close()

	out := make([]Key, 0, limit)
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.ID, &k.CreatedAt, &k.ExpiresAt, &k.UsedAt); err != nil {
			return nil, fmt.Errorf("adminauth: scan key: %w", err)
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("adminauth: iterate keys: %w", err)
	}
	return out, nil
}
