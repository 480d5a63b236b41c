// Package adminauth implements single-use admin keys and the in-memory
// admin sessions they are exchanged for.
//
// A key is minted once, handed to an operator out of band, and
// exchanged exactly once for a session token. The exchange is decided
// by a single conditional UPDATE so concurrent attempts with the same
// key produce exactly one winner.
package adminauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"usaffe/cmd/roster/ids"
	"usaffe/cmd/security/token"
)

// Service implements the admin auth operations.
type Service struct {
	cfg      Config
	keys     KeyStore
	sessions *SessionTable
}

// Minted is the result of minting an admin key. Key is the plain key,
// returned exactly once.
type Minted struct {
	Key       string
	ID        string
	ExpiresAt time.Time
}

// Exchanged is the result of a successful key exchange.
type Exchanged struct {
	SessionToken string
	ExpiresAt    time.Time
}

// NewService constructs an admin auth service.
func NewService(cfg Config, keys KeyStore, sessions *SessionTable) *Service {
	return &Service{cfg: cfg, keys: keys, sessions: sessions}
}

// OpenKeyMint reports whether unauthenticated minting is enabled.
func (s *Service) OpenKeyMint() bool { return s.cfg.OpenKeyMint }

// MintKey creates a fresh single-use key. Only its hash is persisted.
func (s *Service) MintKey(ctx context.Context, now time.Time) (Minted, error) {
	plain, hashHex, err := newOpaqueCredential(s.cfg.KeyBytes)
	if err != nil {
		return Minted{}, err
	}

	id, err := ids.NewULID(now)
	if err != nil {
		return Minted{}, err
	}

	expiresAt := now.Add(s.cfg.KeyTTL)
	if _, err := s.keys.Create(ctx, CreateKeyRecord{
		ID:        id,
		TokenHash: hashHex,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}); err != nil {
		return Minted{}, err
	}

	return Minted{Key: plain, ID: id, ExpiresAt: expiresAt}, nil
}

// Exchange consumes a key and mints an admin session. The key is
// burned even if the caller then loses the session token; they must
// request a new key.
func (s *Service) Exchange(ctx context.Context, now time.Time, plainKey string) (Exchanged, error) {
	plainKey = strings.TrimSpace(plainKey)
	if plainKey == "" || len(plainKey) > 4096 {
		return Exchanged{}, ErrInvalidKey
	}

	keyHash := token.HashCredentialHex(plainKey)

	if _, err := s.keys.Consume(ctx, keyHash, now); err != nil {
		return Exchanged{}, err
	}

	sessionPlain, sessionHash, err := newOpaqueCredential(s.cfg.SessionTokenBytes)
	if err != nil {
		return Exchanged{}, err
	}

	expiresAt := now.Add(s.cfg.SessionTTL)
	s.sessions.Put(Session{
		TokenHash: sessionHash,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	})

	return Exchanged{SessionToken: sessionPlain, ExpiresAt: expiresAt}, nil
}

// Authorize checks an admin session token. Returns ErrUnauthorized for
// missing, unknown, or expired tokens.
func (s *Service) Authorize(now time.Time, sessionToken string) error {
	sessionToken = strings.TrimSpace(sessionToken)
	if sessionToken == "" || len(sessionToken) > 4096 {
		return ErrUnauthorized
	}

	if _, ok := s.sessions.Get(token.HashCredentialHex(sessionToken), now); !ok {
		return ErrUnauthorized
	}
	return nil
}

// Logout invalidates an admin session token. Unknown tokens are a
// no-op.
func (s *Service) Logout(sessionToken string) {
	sessionToken = strings.TrimSpace(sessionToken)
	if sessionToken == "" {
		return
	}
	s.sessions.Invalidate(token.HashCredentialHex(sessionToken))
}

// ListKeys returns recent keys, newest first.
func (s *Service) ListKeys(ctx context.Context, limit int) ([]Key, error) {
	return s.keys.List(ctx, limit)
}

func newOpaqueCredential(nBytes int) (plain string, hashHex string, err error) {
	b := make([]byte, nBytes)
	if _, err = rand.Read(b); err != nil {
		return "", "", fmt.Errorf("adminauth: generate credential: %w", err)
	}

	// URL-safe, no padding.
	plain = base64.RawURLEncoding.EncodeToString(b)

	hashHex = token.HashCredentialHex(plain)

	return plain, hashHex, nil
}
