package adminauth

import (
	"context"
	"time"
)

// Key is the stored record of a single-use admin key. The plain key is
// never stored; TokenHash is its 64-hex digest.
type Key struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// CreateKeyRecord is the input for persisting a freshly minted key.
type CreateKeyRecord struct {
	ID        string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// KeyStore persists admin keys.
//
// Consume is the atomicity point of the key exchange: exactly one
// caller may consume a given key, concurrent attempts lose with
// ErrKeyUsed.
type KeyStore interface {
	Create(ctx context.Context, in CreateKeyRecord) (Key, error)

	// Consume marks the key used if and only if it is not yet used and
	// unexpired at now. Returns ErrInvalidKey, ErrKeyExpired, or
	// ErrKeyUsed otherwise.
	Consume(ctx context.Context, tokenHash string, now time.Time) (Key, error)

	// List returns recent keys, newest first, for the admin console.
	List(ctx context.Context, limit int) ([]Key, error)
}
