package adminauth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// memKeyStore mirrors the conditional-update semantics of the Postgres
// store under a mutex so concurrency tests exercise the same contract.
type memKeyStore struct {
	mu     sync.Mutex
	byHash map[string]*Key
}

func newMemKeyStore() *memKeyStore {
	return &memKeyStore{byHash: map[string]*Key{}}
}

func (m *memKeyStore) Create(_ context.Context, in CreateKeyRecord) (Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := &Key{ID: in.ID, CreatedAt: in.CreatedAt, ExpiresAt: in.ExpiresAt}
	m.byHash[in.TokenHash] = k
	return *k, nil
}

func (m *memKeyStore) Consume(_ context.Context, tokenHash string, now time.Time) (Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, ok := m.byHash[tokenHash]
	if !ok {
		return Key{}, ErrInvalidKey
	}
	if k.UsedAt != nil {
		return Key{}, ErrKeyUsed
	}
	if !k.ExpiresAt.After(now) {
		return Key{}, ErrKeyExpired
	}
	used := now
	k.UsedAt = &used
	return *k, nil
}

func (m *memKeyStore) List(_ context.Context, _ int) ([]Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Key, 0, len(m.byHash))
	for _, k := range m.byHash {
		out = append(out, *k)
	}
	return out, nil
}

func newTestService() (*Service, *memKeyStore, *SessionTable) {
	keys := newMemKeyStore()
	sessions := NewSessionTable()
	return NewService(DefaultConfig(), keys, sessions), keys, sessions
}

func TestService_MintThenExchange(t *testing.T) {
	t.Parallel()

	svc, _, sessions := newTestService()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	minted, err := svc.MintKey(ctx, now)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if minted.Key == "" || minted.ID == "" {
		t.Fatalf("incomplete mint result: %+v", minted)
	}
	if minted.ExpiresAt.Sub(now) != DefaultConfig().KeyTTL {
		t.Fatalf("unexpected key expiry: %+v", minted)
	}

	ex, err := svc.Exchange(ctx, now.Add(time.Minute), minted.Key)
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if ex.SessionToken == "" {
		t.Fatal("expected a session token")
	}
	if sessions.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", sessions.Len())
	}

	if err := svc.Authorize(now.Add(2*time.Minute), ex.SessionToken); err != nil {
		t.Fatalf("authorize: %v", err)
	}
}

func TestService_Exchange_SingleUse(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	minted, err := svc.MintKey(ctx, now)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := svc.Exchange(ctx, now, minted.Key); err != nil {
		t.Fatalf("first exchange: %v", err)
	}
	if _, err := svc.Exchange(ctx, now, minted.Key); !errors.Is(err, ErrKeyUsed) {
		t.Fatalf("replay must fail with ErrKeyUsed, got %v", err)
	}
}

func TestService_Exchange_ConcurrentSingleWinner(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	minted, err := svc.MintKey(ctx, now)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Exchange(ctx, now, minted.Key)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins, losses := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrKeyUsed):
			losses++
		default:
			t.Fatalf("unexpected exchange error: %v", err)
		}
	}
	if wins != 1 || losses != workers-1 {
		t.Fatalf("expected exactly one winner, got %d wins and %d losses", wins, losses)
	}
}

func TestService_Exchange_ExpiredAndUnknown(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	minted, err := svc.MintKey(ctx, now)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	late := now.Add(DefaultConfig().KeyTTL)
	if _, err := svc.Exchange(ctx, late, minted.Key); !errors.Is(err, ErrKeyExpired) {
		t.Fatalf("expected ErrKeyExpired, got %v", err)
	}

	if _, err := svc.Exchange(ctx, now, "never-minted"); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	if _, err := svc.Exchange(ctx, now, "  "); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey for blank key, got %v", err)
	}
}

func TestService_Authorize_ExpiryAndLogout(t *testing.T) {
	t.Parallel()

	svc, _, sessions := newTestService()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	minted, err := svc.MintKey(ctx, now)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	ex, err := svc.Exchange(ctx, now, minted.Key)
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}

	if err := svc.Authorize(ex.ExpiresAt, ex.SessionToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized at expiry, got %v", err)
	}
	// Expired entry is swept by the failed lookup.
	if sessions.Len() != 0 {
		t.Fatalf("expected expired session removed, table has %d", sessions.Len())
	}

	// Fresh session, then explicit logout.
	minted2, err := svc.MintKey(ctx, now)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	ex2, err := svc.Exchange(ctx, now, minted2.Key)
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	svc.Logout(ex2.SessionToken)
	if err := svc.Authorize(now, ex2.SessionToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after logout, got %v", err)
	}

	if err := svc.Authorize(now, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for empty token, got %v", err)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("USAFFE_ADMIN_KEY_TTL", "1h")
	t.Setenv("USAFFE_ADMIN_SESSION_TTL", "30m")
	t.Setenv("USAFFE_ADMIN_OPEN_KEY_MINT", "true")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.KeyTTL != time.Hour || cfg.SessionTTL != 30*time.Minute || !cfg.OpenKeyMint {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	t.Setenv("USAFFE_ADMIN_OPEN_KEY_MINT", "sometimes")
	if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}
